package leadstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leadflow/backend/internal/cleaning"
	"github.com/leadflow/backend/internal/dupcheck"
	"github.com/leadflow/backend/internal/mapper"
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/normalize"
	"github.com/leadflow/backend/internal/parser"
	"github.com/leadflow/backend/internal/tagging"
)

var (
	// ErrDuplicateFile means a completed batch with this filename
	// already exists.
	ErrDuplicateFile = errors.New("file has already been uploaded and processed")

	// ErrRequiredUnmapped means a required system field has no mapping.
	ErrRequiredUnmapped = errors.New("required fields are not mapped")

	// ErrStatsInvariant means the computed statistics are inconsistent.
	ErrStatsInvariant = errors.New("commit statistics violate accounting invariants")
)

// Persister is the slice of the store the commit pipeline needs.
type Persister interface {
	HasCompletedBatch(ctx context.Context, filename string) (bool, error)
	CreateBatch(ctx context.Context, b *models.UploadBatch) error
	UpdateBatch(ctx context.Context, b *models.UploadBatch) error
	InsertLeads(ctx context.Context, batchID string, leads []*models.Lead) (int, error)
	AddDNCEntries(ctx context.Context, listName string, entries []DNCEntry) (int, error)
	ExistingKeys(ctx context.Context, field string, keys []string) (map[string]bool, error)
}

var _ Persister = (*Store)(nil)

// CommitRequest carries the full row set plus the finalized settings
// for one commit.
type CommitRequest struct {
	Rows          []parser.RawRow      `json:"data"`
	Mappings      []models.MappingRule `json:"mappings"`
	Filename      string               `json:"filename"`
	Cleaning      cleaning.Settings    `json:"cleaningSettings"`
	Normalization normalize.Config     `json:"normalizationSettings"`
	Tags          []string             `json:"tags"`
	Source        string               `json:"source,omitempty"`
	SupplierID    string               `json:"supplierId,omitempty"`
}

// CommitResult is what the persistence boundary reports back.
type CommitResult struct {
	BatchID         string             `json:"batchId"`
	Stats           models.CommitStats `json:"stats"`
	DNCEntriesAdded int                `json:"newDncEntriesAdded"`
}

// Processor runs the commit pipeline: map, clean, normalize, flag DNC,
// dedupe, tag, insert, and account for every row.
type Processor struct {
	store         Persister
	defaultSource string
}

// NewProcessor builds a Processor over the persistence boundary.
// defaultSource is stamped on leads whose commit request carries no
// explicit source; empty falls back to "File Upload".
func NewProcessor(store Persister, defaultSource string) *Processor {
	if defaultSource == "" {
		defaultSource = "File Upload"
	}
	return &Processor{store: store, defaultSource: defaultSource}
}

// Process commits one upload batch. Only this call performs durable
// writes for a session; everything before it is preview-only.
func (p *Processor) Process(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	if missing := mapper.MissingRequired(req.Mappings); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrRequiredUnmapped, strings.Join(missing, ", "))
	}

	exists, err := p.store.HasCompletedBatch(ctx, req.Filename)
	if err != nil {
		return nil, fmt.Errorf("duplicate file check: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateFile, req.Filename)
	}

	batch := &models.UploadBatch{
		ID:         uuid.New().String(),
		Filename:   req.Filename,
		Status:     models.BatchProcessing,
		TotalLeads: len(req.Rows),
		SupplierID: req.SupplierID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := p.store.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}

	result, err := p.run(ctx, batch, req)
	if err != nil {
		p.failBatch(ctx, batch, err)
		return nil, err
	}
	return result, nil
}

func (p *Processor) run(ctx context.Context, batch *models.UploadBatch, req CommitRequest) (*CommitResult, error) {
	best := mapper.BestByTarget(req.Mappings)
	source := req.Source
	if source == "" {
		source = p.defaultSource
	}

	stats := models.CommitStats{Total: len(req.Rows)}
	var candidates []*models.Lead
	var dncEntries []DNCEntry
	seen := make(map[string]bool)

	for _, raw := range req.Rows {
		row := mapper.ApplyMapping(raw, best)
		req.Cleaning.CleanRow(row)
		for field, value := range row {
			if field == "dnc" {
				continue
			}
			row[field] = req.Normalization.Apply(field, value)
		}

		// DNC wins over every other disposition: the row is kept out
		// of the lead table and feeds the suppression list instead.
		if models.IsDNCValue(row["dnc"]) {
			stats.DNC++
			if row["email"] != "" {
				dncEntries = append(dncEntries, DNCEntry{
					Value: row["email"], ValueType: "email", Source: req.Filename,
				})
			}
			if row["phone"] != "" {
				dncEntries = append(dncEntries, DNCEntry{
					Value: row["phone"], ValueType: "phone", Source: req.Filename,
				})
			}
			continue
		}

		// A lead must be reachable somehow.
		if row["email"] == "" && row["phone"] == "" {
			continue
		}

		if req.Cleaning.RemoveDuplicates {
			key := dupcheck.NormalizeEmail(row["email"]) + "|" + dupcheck.NormalizePhone(row["phone"])
			if seen[key] {
				stats.Duplicates++
				continue
			}
			seen[key] = true
		}

		candidates = append(candidates, &models.Lead{
			ID:          uuid.New().String(),
			Email:       row["email"],
			FirstName:   row["firstname"],
			LastName:    row["lastname"],
			Phone:       row["phone"],
			CompanyName: row["companyname"],
			TaxID:       row["taxid"],
			Address:     row["address"],
			City:        row["city"],
			State:       row["state"],
			ZipCode:     row["zipcode"],
			Country:     row["country"],
			LoanAmount:  row["loanamount"],
			Revenue:     row["revenue"],
			LeadStatus:  "New",
			LeadSource:  source,
			BatchID:     batch.ID,
			CreatedAt:   time.Now().UTC(),
		})
	}

	leads, dbDuplicates, err := p.dropExisting(ctx, candidates, req.Cleaning.RemoveDuplicates)
	if err != nil {
		return nil, err
	}
	stats.Duplicates += dbDuplicates
	stats.Cleaned = len(leads)

	tagging.Apply(leads, req.Tags)

	dncAdded := 0
	if len(dncEntries) > 0 {
		dncAdded, err = p.store.AddDNCEntries(ctx, UploadedDNCListName, dncEntries)
		if err != nil {
			return nil, err
		}
	}

	inserted, err := p.store.InsertLeads(ctx, batch.ID, leads)
	if err != nil {
		return nil, err
	}
	stats.Inserted = inserted

	if !stats.Valid() {
		return nil, fmt.Errorf("%w: %+v", ErrStatsInvariant, stats)
	}

	now := time.Now().UTC()
	batch.Status = models.BatchCompleted
	batch.CleanedLeads = stats.Cleaned
	batch.DuplicateLeads = stats.Duplicates
	batch.DNCMatches = stats.DNC
	batch.CompletedAt = &now
	if err := p.store.UpdateBatch(ctx, batch); err != nil {
		return nil, err
	}

	return &CommitResult{
		BatchID:         batch.ID,
		Stats:           stats,
		DNCEntriesAdded: dncAdded,
	}, nil
}

// dropExisting filters out candidates whose email or phone is already
// persisted. Skipped when dedupe is disabled in the cleaning settings.
func (p *Processor) dropExisting(ctx context.Context, candidates []*models.Lead, enabled bool) ([]*models.Lead, int, error) {
	if !enabled || len(candidates) == 0 {
		return candidates, 0, nil
	}

	var emailKeys, phoneKeys []string
	for _, lead := range candidates {
		if k := dupcheck.NormalizeEmail(lead.Email); k != "" {
			emailKeys = append(emailKeys, k)
		}
		if k := dupcheck.NormalizePhone(lead.Phone); k != "" {
			phoneKeys = append(phoneKeys, k)
		}
	}

	existingEmails, err := p.existing(ctx, dupcheck.FieldEmail, emailKeys)
	if err != nil {
		return nil, 0, err
	}
	existingPhones, err := p.existing(ctx, dupcheck.FieldPhone, phoneKeys)
	if err != nil {
		return nil, 0, err
	}

	kept := candidates[:0]
	dropped := 0
	for _, lead := range candidates {
		if existingEmails[dupcheck.NormalizeEmail(lead.Email)] ||
			existingPhones[dupcheck.NormalizePhone(lead.Phone)] {
			dropped++
			continue
		}
		kept = append(kept, lead)
	}
	return kept, dropped, nil
}

func (p *Processor) existing(ctx context.Context, field string, keys []string) (map[string]bool, error) {
	if len(keys) == 0 {
		return map[string]bool{}, nil
	}
	existing, err := p.store.ExistingKeys(ctx, field, keys)
	if err != nil {
		return nil, fmt.Errorf("existing %s lookup: %w", field, err)
	}
	return existing, nil
}

func (p *Processor) failBatch(ctx context.Context, batch *models.UploadBatch, cause error) {
	now := time.Now().UTC()
	batch.Status = models.BatchFailed
	batch.ErrorMessage = cause.Error()
	batch.CompletedAt = &now
	// Best effort: the original error is what the caller needs to see.
	_ = p.store.UpdateBatch(ctx, batch)
}
