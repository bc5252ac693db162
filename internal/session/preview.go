package session

import (
	"fmt"
	"strings"

	"github.com/leadflow/backend/internal/mapper"
	"github.com/leadflow/backend/internal/models"
)

// PreviewRow is one sample row projected onto the system field
// catalog. Every catalog field is present; unmapped fields carry "".
type PreviewRow map[string]string

// Preview advances mapping → preview and returns up to PreviewRows
// sample rows with the best mapping and the current normalization
// rules applied. Nothing is persisted. Blocked while any required
// system field is unmapped.
func (m *Manager) Preview(id string) ([]PreviewRow, error) {
	m.mu.RLock()
	state, ok := m.sessions[id]
	if !ok {
		m.mu.RUnlock()
		return nil, ErrSessionNotFound
	}
	status := state.Session.Status
	rules := append([]models.MappingRule(nil), state.Mappings...)
	config := state.Normalize
	pf := state.File
	m.mu.RUnlock()

	m.TouchSession(id)

	if status != models.SessionStatusMapping && status != models.SessionStatusPreview {
		return nil, fmt.Errorf("%w: status is %s", ErrNotReady, status)
	}
	if missing := mapper.MissingRequired(rules); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrRequiredUnmapped, strings.Join(missing, ", "))
	}

	best := mapper.BestByTarget(rules)
	sample := sampleRows(pf, PreviewRows)

	preview := make([]PreviewRow, 0, len(sample))
	for _, raw := range sample {
		row := mapper.ApplyMapping(raw, best)
		for field, value := range row {
			if field == "dnc" {
				continue // raw flag value is what the user reviews
			}
			row[field] = config.Apply(field, value)
		}
		preview = append(preview, row)
	}

	m.setStatus(id, models.SessionStatusPreview)
	return preview, nil
}
