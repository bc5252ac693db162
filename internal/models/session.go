package models

// SessionStatus represents the macro-state of an upload session.
type SessionStatus string

const (
	SessionStatusUpload         SessionStatus = "upload"
	SessionStatusDuplicateCheck SessionStatus = "duplicate-check"
	SessionStatusMapping        SessionStatus = "mapping"
	SessionStatusPreview        SessionStatus = "preview"
	SessionStatusProcessing     SessionStatus = "processing"
	SessionStatusCompleted      SessionStatus = "completed"
	SessionStatusFailed         SessionStatus = "failed"
)

// StepStatus represents the status of a single processing step.
// Transitions are monotonic: pending -> processing -> completed|error.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepProcessing StepStatus = "processing"
	StepCompleted  StepStatus = "completed"
	StepError      StepStatus = "error"
)

// Step identifiers, in pipeline order.
const (
	StepParse          = "parse"
	StepDuplicateCheck = "duplicate-check"
	StepMapping        = "mapping"
	StepCleaning       = "cleaning"
	StepNormalization  = "normalization"
	StepTagging        = "tagging"
	StepUpload         = "upload"
)

// ProcessingStep mirrors one pipeline stage for UI display.
type ProcessingStep struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Status  StepStatus `json:"status"`
	Message string     `json:"message,omitempty"`
}

// NewProcessingSteps returns the fixed step sequence in pending state.
func NewProcessingSteps() []ProcessingStep {
	return []ProcessingStep{
		{ID: StepParse, Name: "Parse File", Status: StepPending},
		{ID: StepDuplicateCheck, Name: "Duplicate Check", Status: StepPending},
		{ID: StepMapping, Name: "Field Mapping", Status: StepPending},
		{ID: StepCleaning, Name: "Data Cleaning", Status: StepPending},
		{ID: StepNormalization, Name: "Normalization", Status: StepPending},
		{ID: StepTagging, Name: "Lead Tagging", Status: StepPending},
		{ID: StepUpload, Name: "Upload", Status: StepPending},
	}
}

// UploadSession represents one user-initiated ingestion session.
type UploadSession struct {
	ID        string           `json:"id"`
	FileID    string           `json:"fileId"`
	Filename  string           `json:"filename"`
	Status    SessionStatus    `json:"status"`
	Steps     []ProcessingStep `json:"steps"`
	RowCount  int              `json:"rowCount,omitempty"`
	Headers   []string         `json:"headers,omitempty"`
	Error     string           `json:"error,omitempty"`
	BatchID   string           `json:"batchId,omitempty"`
	Stats     *CommitStats     `json:"stats,omitempty"`
	CreatedAt int64            `json:"createdAt"` // Unix ms
}

// CommitStats is the persistence boundary's accounting for one commit.
// Invariants: Inserted <= Cleaned <= Total and Duplicates+DNC+Inserted <= Total.
type CommitStats struct {
	Total      int `json:"total"`
	Cleaned    int `json:"cleaned"`
	Duplicates int `json:"duplicates"`
	DNC        int `json:"dnc"`
	Inserted   int `json:"inserted"`
}

// Valid reports whether the stats satisfy the commit accounting invariants.
func (s CommitStats) Valid() bool {
	if s.Total < 0 || s.Cleaned < 0 || s.Duplicates < 0 || s.DNC < 0 || s.Inserted < 0 {
		return false
	}
	if s.Inserted > s.Cleaned || s.Cleaned > s.Total {
		return false
	}
	return s.Duplicates+s.DNC+s.Inserted <= s.Total
}
