package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leadflow/backend/internal/leadstore"
	"github.com/leadflow/backend/internal/mapper"
	"github.com/leadflow/backend/internal/models"
)

// ErrNoCommitter means the manager was built without a persistence
// boundary.
var ErrNoCommitter = errors.New("no persistence backend configured")

// Commit sends the full row set with the finalized settings to the
// persistence boundary. This is the only durable write of a session;
// everything before it leaves the database untouched.
func (m *Manager) Commit(ctx context.Context, id string) (*leadstore.CommitResult, error) {
	if m.committer == nil {
		return nil, ErrNoCommitter
	}

	m.mu.RLock()
	state, ok := m.sessions[id]
	if !ok {
		m.mu.RUnlock()
		return nil, ErrSessionNotFound
	}
	status := state.Session.Status
	req := leadstore.CommitRequest{
		Rows:          state.File.Rows,
		Mappings:      append([]models.MappingRule(nil), state.Mappings...),
		Filename:      state.Session.Filename,
		Cleaning:      state.Cleaning,
		Normalization: state.Normalize,
		Tags:          append([]string(nil), state.Tags...),
	}
	m.mu.RUnlock()

	if status != models.SessionStatusPreview {
		return nil, fmt.Errorf("%w: status is %s, preview first", ErrNotReady, status)
	}
	if missing := mapper.MissingRequired(req.Mappings); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrRequiredUnmapped, strings.Join(missing, ", "))
	}

	m.setStatus(id, models.SessionStatusProcessing)

	// The processor runs cleaning, normalization and tagging as one
	// pass; the per-step ticks exist for UI feedback.
	for _, stepID := range []string{models.StepCleaning, models.StepNormalization, models.StepTagging} {
		m.setStep(id, stepID, models.StepProcessing, "")
		m.setStep(id, stepID, models.StepCompleted, "")
	}
	m.setStep(id, models.StepUpload, models.StepProcessing, "")

	res, err := m.committer.Process(ctx, req)
	if err != nil {
		m.mu.Lock()
		if state, ok := m.sessions[id]; ok {
			state.Session.Error = err.Error()
		}
		m.mu.Unlock()
		m.setStep(id, models.StepUpload, models.StepError, err.Error())
		m.setStatus(id, models.SessionStatusFailed)
		return nil, err
	}

	m.mu.Lock()
	if state, ok := m.sessions[id]; ok {
		stats := res.Stats
		state.Session.Stats = &stats
		state.Session.BatchID = res.BatchID
	}
	m.mu.Unlock()

	m.setStep(id, models.StepUpload, models.StepCompleted,
		fmt.Sprintf("%d of %d leads inserted", res.Stats.Inserted, res.Stats.Total))
	m.setStatus(id, models.SessionStatusCompleted)

	return res, nil
}
