// Package tagging attaches a batch-scoped tag list to lead rows.
package tagging

import (
	"strings"

	"github.com/leadflow/backend/internal/models"
)

// Dedupe removes repeated tags case-sensitively, keeping first-seen
// order, and drops empty entries. A nil result means no tags.
func Dedupe(tags []string) []string {
	var out []string
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// Apply attaches the deduplicated tag list to every lead in the batch.
// Each lead gets its own copy so later edits cannot alias across rows.
// An empty tag list is valid and clears nothing: leads keep nil tags.
func Apply(leads []*models.Lead, tags []string) {
	deduped := Dedupe(tags)
	if len(deduped) == 0 {
		return
	}
	for _, lead := range leads {
		lead.Tags = append([]string(nil), deduped...)
	}
}
