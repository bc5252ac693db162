// Package session owns the upload session state machine: parse →
// duplicate-check → mapping → preview → processing → completed|failed.
// Each session carries its own step list; transitions are monotonic
// and observable through subscriber callbacks.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leadflow/backend/internal/cleaning"
	"github.com/leadflow/backend/internal/dupcheck"
	"github.com/leadflow/backend/internal/leadstore"
	"github.com/leadflow/backend/internal/mapper"
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/normalize"
	"github.com/leadflow/backend/internal/parser"
)

// MaxSessions limits concurrent sessions to prevent memory exhaustion.
const MaxSessions = 20

// SessionMaxAge is how long to keep finished sessions before cleanup.
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow protects recently touched sessions from
// cleanup.
const SessionKeepAliveWindow = 5 * time.Minute

// PreviewRows is the sample size preview generation works on.
const PreviewRows = 10

var (
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrRequiredUnmapped blocks preview and commit while a required
	// field has no mapping.
	ErrRequiredUnmapped = errors.New("required fields are not mapped")

	// ErrNotReady is returned when an operation is requested before
	// the session reached the state it needs.
	ErrNotReady = errors.New("session is not ready for this operation")

	// ErrUnknownTargetField rejects mapping edits naming a field
	// outside the system catalog.
	ErrUnknownTargetField = errors.New("unknown target field")
)

// Committer is the persistence boundary the commit step talks to.
type Committer interface {
	Process(ctx context.Context, req leadstore.CommitRequest) (*leadstore.CommitResult, error)
}

// Subscriber observes step transitions for one session. Callbacks run
// outside the manager lock and must not block for long.
type Subscriber func(sessionID string, status models.SessionStatus, step models.ProcessingStep)

// State is everything the manager tracks for one upload session.
type State struct {
	Session      *models.UploadSession
	File         *parser.ParsedFile
	Mappings     []models.MappingRule
	DupResults   []dupcheck.Result
	Cleaning     cleaning.Settings
	Normalize    normalize.Config
	Tags         []string
	LastAccessed time.Time
}

// Manager coordinates upload sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*State

	checker   *dupcheck.Checker
	mapper    *mapper.Mapper
	committer Committer

	subMu       sync.RWMutex
	subscribers []Subscriber
}

// NewManager wires a Manager. lookup may be nil (no store-side
// duplicate counts); committer may be nil only in tests that never
// commit.
func NewManager(lookup dupcheck.Lookup, committer Committer) *Manager {
	return &Manager{
		sessions:  make(map[string]*State),
		checker:   dupcheck.New(lookup),
		mapper:    mapper.New(),
		committer: committer,
	}
}

// Subscribe registers a step transition observer.
func (m *Manager) Subscribe(fn Subscriber) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

func (m *Manager) notify(sessionID string, status models.SessionStatus, step models.ProcessingStep) {
	m.subMu.RLock()
	subs := make([]Subscriber, len(m.subscribers))
	copy(subs, m.subscribers)
	m.subMu.RUnlock()

	for _, fn := range subs {
		fn(sessionID, status, step)
	}
}

// StartSession registers a freshly parsed file and kicks off the
// automatic duplicate-check and auto-mapping stages in the background.
// Parse failures belong to the caller; by the time a session exists
// the parse step is already done.
func (m *Manager) StartSession(fileID, filename string, pf *parser.ParsedFile) *models.UploadSession {
	m.cleanupOldSessionsIfNeeded()

	session := &models.UploadSession{
		ID:        uuid.New().String(),
		FileID:    fileID,
		Filename:  filename,
		Status:    models.SessionStatusUpload,
		Steps:     models.NewProcessingSteps(),
		RowCount:  len(pf.Rows),
		Headers:   pf.Headers,
		CreatedAt: time.Now().UnixMilli(),
	}

	state := &State{
		Session:      session,
		File:         pf,
		Cleaning:     cleaning.DefaultSettings(),
		Normalize:    normalize.DefaultConfig(),
		LastAccessed: time.Now(),
	}

	m.mu.Lock()
	m.sessions[session.ID] = state
	m.mu.Unlock()

	m.setStep(session.ID, models.StepParse, models.StepCompleted,
		fmt.Sprintf("parsed %d rows, %d columns", len(pf.Rows), len(pf.Headers)))

	go m.runAutoStages(session.ID)

	return m.snapshot(session.ID)
}

// runAutoStages advances upload → duplicate-check → mapping without
// user action. A stage failure marks its step error and stops; the
// macro-state stays where it was.
func (m *Manager) runAutoStages(sessionID string) {
	defer func() {
		if r := recover(); r != nil {
			m.failStep(sessionID, models.StepDuplicateCheck, fmt.Sprintf("pipeline panicked: %v", r))
		}
	}()

	m.mu.RLock()
	state, ok := m.sessions[sessionID]
	if !ok {
		m.mu.RUnlock()
		return
	}
	pf := state.File
	m.mu.RUnlock()

	// Mapping rules are computed up front: the duplicate checker needs
	// to know which columns hold email, phone and name.
	rules := m.mapper.Map(pf.Headers, sampleRows(pf, 20))
	best := mapper.BestByTarget(rules)

	m.setStatus(sessionID, models.SessionStatusDuplicateCheck)
	m.setStep(sessionID, models.StepDuplicateCheck, models.StepProcessing, "")

	cols := dupcheck.Columns{
		Email:     best[dupcheck.FieldEmail].SourceField,
		Phone:     best[dupcheck.FieldPhone].SourceField,
		FirstName: best["firstname"].SourceField,
		LastName:  best["lastname"].SourceField,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results, err := m.checker.Check(ctx, pf.Rows, cols)
	if err != nil {
		m.failStep(sessionID, models.StepDuplicateCheck, fmt.Sprintf("duplicate check failed: %v", err))
		return
	}

	m.mu.Lock()
	if state, ok := m.sessions[sessionID]; ok {
		state.DupResults = results
	}
	m.mu.Unlock()
	m.setStep(sessionID, models.StepDuplicateCheck, models.StepCompleted, "")

	m.setStatus(sessionID, models.SessionStatusMapping)
	m.setStep(sessionID, models.StepMapping, models.StepProcessing, "")

	m.mu.Lock()
	if state, ok := m.sessions[sessionID]; ok {
		state.Mappings = rules
	}
	m.mu.Unlock()
	m.setStep(sessionID, models.StepMapping, models.StepCompleted,
		fmt.Sprintf("%d of %d columns mapped", mappedCount(rules), len(pf.Headers)))
}

// GetSession returns a copy of the session for safe concurrent reads.
func (m *Manager) GetSession(id string) (*models.UploadSession, bool) {
	s := m.snapshot(id)
	return s, s != nil
}

// TouchSession refreshes the keep-alive timestamp.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// DuplicateResults returns the advisory duplicate counts.
func (m *Manager) DuplicateResults(id string) ([]dupcheck.Result, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return append([]dupcheck.Result(nil), state.DupResults...), true
}

// Mappings returns the session's current mapping rules.
func (m *Manager) Mappings(id string) ([]models.MappingRule, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return append([]models.MappingRule(nil), state.Mappings...), true
}

// UpdateMappings replaces the mapping rules with user edits. Rules
// must target catalog fields or leave the target empty.
func (m *Manager) UpdateMappings(id string, rules []models.MappingRule) error {
	for _, r := range rules {
		if r.TargetField == "" {
			continue
		}
		if _, ok := models.SystemFieldByValue(r.TargetField); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownTargetField, r.TargetField)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	state.Mappings = rules
	state.LastAccessed = time.Now()
	return nil
}

// UpdateSettings replaces the cleaning, normalization and tagging
// configuration for the session.
func (m *Manager) UpdateSettings(id string, cl cleaning.Settings, nz normalize.Config, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	state.Cleaning = cl
	state.Normalize = nz
	state.Tags = tags
	state.LastAccessed = time.Now()
	return nil
}

// Settings returns the session's current cleaning/normalization/tag
// configuration.
func (m *Manager) Settings(id string) (cleaning.Settings, normalize.Config, []string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[id]
	if !ok {
		return cleaning.Settings{}, nil, nil, false
	}
	return state.Cleaning, append(normalize.Config(nil), state.Normalize...), append([]string(nil), state.Tags...), true
}

func (m *Manager) snapshot(id string) *models.UploadSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[id]
	if !ok {
		return nil
	}
	cp := *state.Session
	cp.Steps = append([]models.ProcessingStep(nil), state.Session.Steps...)
	if state.Session.Stats != nil {
		stats := *state.Session.Stats
		cp.Stats = &stats
	}
	return &cp
}

func sampleRows(pf *parser.ParsedFile, n int) []parser.RawRow {
	if len(pf.Rows) <= n {
		return pf.Rows
	}
	return pf.Rows[:n]
}

func mappedCount(rules []models.MappingRule) int {
	n := 0
	for _, r := range rules {
		if r.TargetField != "" {
			n++
		}
	}
	return n
}

// setStatus advances the macro-state. Terminal states never change.
func (m *Manager) setStatus(id string, status models.SessionStatus) {
	m.mu.Lock()
	state, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	cur := state.Session.Status
	if cur == models.SessionStatusCompleted || cur == models.SessionStatusFailed {
		m.mu.Unlock()
		return
	}
	state.Session.Status = status
	m.mu.Unlock()

	m.notify(id, status, models.ProcessingStep{})
}

var stepRank = map[models.StepStatus]int{
	models.StepPending:    0,
	models.StepProcessing: 1,
	models.StepCompleted:  2,
	models.StepError:      2,
}

// setStep applies a monotonic step transition: pending → processing →
// completed|error, never backwards, terminal states frozen.
func (m *Manager) setStep(id, stepID string, status models.StepStatus, message string) {
	m.mu.Lock()
	state, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return
	}

	var changed *models.ProcessingStep
	for i := range state.Session.Steps {
		step := &state.Session.Steps[i]
		if step.ID != stepID {
			continue
		}
		if stepRank[status] <= stepRank[step.Status] {
			break
		}
		step.Status = status
		if message != "" {
			step.Message = message
		}
		cp := *step
		changed = &cp
		break
	}
	sessionStatus := state.Session.Status
	m.mu.Unlock()

	if changed != nil {
		m.notify(id, sessionStatus, *changed)
	}
}

// failStep marks a step error and records the message on the session.
// The macro-state deliberately stays put: stage errors do not advance
// the machine.
func (m *Manager) failStep(id, stepID, message string) {
	m.mu.Lock()
	if state, ok := m.sessions[id]; ok {
		state.Session.Error = message
	}
	m.mu.Unlock()
	m.setStep(id, stepID, models.StepError, message)
}

// cleanupOldSessionsIfNeeded evicts finished sessions once the map is
// at capacity.
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < MaxSessions {
		return
	}

	toFree := len(m.sessions) - MaxSessions + 1
	for id, state := range m.sessions {
		if toFree == 0 {
			break
		}
		status := state.Session.Status
		if status == models.SessionStatusCompleted || status == models.SessionStatusFailed {
			delete(m.sessions, id)
			toFree--
		}
	}
}

// CleanupOldSessions drops finished sessions older than maxAge that
// have not been touched within the keep-alive window.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAlive := time.Now().Add(-SessionKeepAliveWindow)

	for id, state := range m.sessions {
		status := state.Session.Status
		if status != models.SessionStatusCompleted && status != models.SessionStatusFailed {
			continue
		}
		if state.LastAccessed.After(keepAlive) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}
