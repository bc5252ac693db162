package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/backend/internal/leadstore"
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/parser"
)

type fakeCommitter struct {
	mu     sync.Mutex
	req    *leadstore.CommitRequest
	result *leadstore.CommitResult
	err    error
}

func (f *fakeCommitter) Process(_ context.Context, req leadstore.CommitRequest) (*leadstore.CommitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.req = &req
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &leadstore.CommitResult{
		BatchID: "batch-1",
		Stats: models.CommitStats{
			Total: len(req.Rows), Cleaned: len(req.Rows), Inserted: len(req.Rows),
		},
	}, nil
}

func testFile() *parser.ParsedFile {
	return &parser.ParsedFile{
		Headers: []string{"Email", "First Name", "Last Name", "Phone"},
		Rows: []parser.RawRow{
			{"Email": "john@x.com", "First Name": "john", "Last Name": "doe", "Phone": "5551234567"},
			{"Email": "jane@x.com", "First Name": "jane", "Last Name": "roe", "Phone": "5559876543"},
		},
	}
}

func waitForStatus(t *testing.T, m *Manager, id string, status models.SessionStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		s, ok := m.GetSession(id)
		return ok && s.Status == status
	}, 2*time.Second, 5*time.Millisecond, "session never reached %s", status)
}

func startReadySession(t *testing.T, m *Manager) string {
	t.Helper()
	s := m.StartSession("file-1", "leads.csv", testFile())
	waitForStatus(t, m, s.ID, models.SessionStatusMapping)
	return s.ID
}

func TestStartSession_AutoStages(t *testing.T) {
	m := NewManager(nil, &fakeCommitter{})
	s := m.StartSession("file-1", "leads.csv", testFile())

	assert.Equal(t, 2, s.RowCount)
	assert.Equal(t, []string{"Email", "First Name", "Last Name", "Phone"}, s.Headers)

	waitForStatus(t, m, s.ID, models.SessionStatusMapping)

	cur, ok := m.GetSession(s.ID)
	require.True(t, ok)
	for _, stepID := range []string{models.StepParse, models.StepDuplicateCheck, models.StepMapping} {
		assert.Equal(t, models.StepCompleted, stepStatus(t, cur, stepID), "step %s", stepID)
	}

	rules, ok := m.Mappings(s.ID)
	require.True(t, ok)
	targets := make(map[string]string)
	for _, r := range rules {
		targets[r.SourceField] = r.TargetField
	}
	assert.Equal(t, "email", targets["Email"])
	assert.Equal(t, "firstname", targets["First Name"])
	assert.Equal(t, "lastname", targets["Last Name"])
	assert.Equal(t, "phone", targets["Phone"])

	dup, ok := m.DuplicateResults(s.ID)
	require.True(t, ok)
	require.Len(t, dup, 3)
	for _, r := range dup {
		assert.Equal(t, 2, r.TotalChecked, "field %s", r.Field)
		assert.Zero(t, r.FileDuplicates, "field %s", r.Field)
	}
}

func stepStatus(t *testing.T, s *models.UploadSession, stepID string) models.StepStatus {
	t.Helper()
	for _, step := range s.Steps {
		if step.ID == stepID {
			return step.Status
		}
	}
	t.Fatalf("step %s not found", stepID)
	return ""
}

func TestStepTransitionsAreMonotonic(t *testing.T) {
	m := NewManager(nil, nil)
	id := startReadySession(t, m)

	// Completed steps must never move backwards.
	m.setStep(id, models.StepParse, models.StepProcessing, "late update")
	m.setStep(id, models.StepParse, models.StepPending, "")

	s, _ := m.GetSession(id)
	assert.Equal(t, models.StepCompleted, stepStatus(t, s, models.StepParse))

	// Error is terminal too.
	m.setStep(id, models.StepCleaning, models.StepError, "boom")
	m.setStep(id, models.StepCleaning, models.StepCompleted, "")
	s, _ = m.GetSession(id)
	assert.Equal(t, models.StepError, stepStatus(t, s, models.StepCleaning))
}

func TestUpdateMappings(t *testing.T) {
	m := NewManager(nil, nil)
	id := startReadySession(t, m)

	err := m.UpdateMappings(id, []models.MappingRule{
		{SourceField: "Email", TargetField: "nonsense", Confidence: 1},
	})
	require.ErrorIs(t, err, ErrUnknownTargetField)

	err = m.UpdateMappings(id, []models.MappingRule{
		{SourceField: "Email", TargetField: "email", Confidence: 1, IsRequired: true},
		{SourceField: "Junk", TargetField: "", Confidence: 0},
	})
	require.NoError(t, err)

	rules, _ := m.Mappings(id)
	assert.Len(t, rules, 2)

	assert.ErrorIs(t, m.UpdateMappings("nope", nil), ErrSessionNotFound)
}

func TestPreview(t *testing.T) {
	m := NewManager(nil, nil)
	id := startReadySession(t, m)

	rows, err := m.Preview(id)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Every system field key present, normalization applied.
	row := rows[0]
	assert.Equal(t, "john@x.com", row["email"])
	assert.Equal(t, "John", row["firstname"])
	assert.Equal(t, "Doe", row["lastname"])
	assert.Equal(t, "(555) 123-4567", row["phone"])
	for _, f := range models.SystemFields {
		_, present := row[f.Value]
		assert.True(t, present, "field %s must be present even when unmapped", f.Value)
	}
	assert.Equal(t, "", row["companyname"])

	s, _ := m.GetSession(id)
	assert.Equal(t, models.SessionStatusPreview, s.Status)
}

func TestPreview_BlockedWhileRequiredUnmapped(t *testing.T) {
	m := NewManager(nil, nil)
	id := startReadySession(t, m)

	require.NoError(t, m.UpdateMappings(id, []models.MappingRule{
		{SourceField: "Email", TargetField: "email", Confidence: 1, IsRequired: true},
	}))

	_, err := m.Preview(id)
	require.ErrorIs(t, err, ErrRequiredUnmapped)
	assert.Contains(t, err.Error(), "firstname")

	s, _ := m.GetSession(id)
	assert.Equal(t, models.SessionStatusMapping, s.Status, "blocked preview must not advance state")
}

func TestCommit(t *testing.T) {
	committer := &fakeCommitter{}
	m := NewManager(nil, committer)
	id := startReadySession(t, m)

	_, err := m.Preview(id)
	require.NoError(t, err)

	cl, nz, _, ok := m.Settings(id)
	require.True(t, ok)
	require.NoError(t, m.UpdateSettings(id, cl, nz, []string{"q3"}))

	res, err := m.Commit(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "batch-1", res.BatchID)

	s, _ := m.GetSession(id)
	assert.Equal(t, models.SessionStatusCompleted, s.Status)
	require.NotNil(t, s.Stats)
	assert.Equal(t, 2, s.Stats.Inserted)
	assert.Equal(t, "batch-1", s.BatchID)
	for _, step := range s.Steps {
		assert.Equal(t, models.StepCompleted, step.Status, "step %s", step.ID)
	}

	// The committer received the full row set, not the preview sample.
	require.NotNil(t, committer.req)
	assert.Len(t, committer.req.Rows, 2)
	assert.Equal(t, "leads.csv", committer.req.Filename)
	assert.Equal(t, []string{"q3"}, committer.req.Tags)
}

func TestCommit_RequiresPreviewFirst(t *testing.T) {
	m := NewManager(nil, &fakeCommitter{})
	id := startReadySession(t, m)

	_, err := m.Commit(context.Background(), id)
	require.ErrorIs(t, err, ErrNotReady)
}

func TestCommit_FailureMarksSessionFailed(t *testing.T) {
	committer := &fakeCommitter{err: errors.New("database unavailable")}
	m := NewManager(nil, committer)
	id := startReadySession(t, m)

	_, err := m.Preview(id)
	require.NoError(t, err)

	_, err = m.Commit(context.Background(), id)
	require.Error(t, err)

	s, _ := m.GetSession(id)
	assert.Equal(t, models.SessionStatusFailed, s.Status)
	assert.Equal(t, models.StepError, stepStatus(t, s, models.StepUpload))
	assert.Contains(t, s.Error, "database unavailable")

	// Terminal: no further transitions.
	m.setStatus(id, models.SessionStatusPreview)
	s, _ = m.GetSession(id)
	assert.Equal(t, models.SessionStatusFailed, s.Status)
}

func TestSubscribe(t *testing.T) {
	m := NewManager(nil, nil)

	var mu sync.Mutex
	var events []models.ProcessingStep
	m.Subscribe(func(_ string, _ models.SessionStatus, step models.ProcessingStep) {
		mu.Lock()
		defer mu.Unlock()
		if step.ID != "" {
			events = append(events, step)
		}
	})

	startReadySession(t, m)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, events)
	assert.Equal(t, models.StepParse, events[0].ID)
	assert.Equal(t, models.StepCompleted, events[0].Status)
}

func TestCleanupOldSessions(t *testing.T) {
	m := NewManager(nil, &fakeCommitter{})
	id := startReadySession(t, m)

	// Mark terminal and age it out.
	m.setStatus(id, models.SessionStatusFailed)
	m.mu.Lock()
	m.sessions[id].LastAccessed = time.Now().Add(-time.Hour)
	m.mu.Unlock()

	m.CleanupOldSessions(SessionMaxAge)

	_, ok := m.GetSession(id)
	assert.False(t, ok)
}

func TestCleanup_KeepsActiveSessions(t *testing.T) {
	m := NewManager(nil, nil)
	id := startReadySession(t, m)

	m.CleanupOldSessions(SessionMaxAge)

	_, ok := m.GetSession(id)
	assert.True(t, ok, "non-terminal sessions are never cleaned up")
}
