// Package leadstore persists leads, upload batches and DNC lists in
// Postgres. Batch and DNC bookkeeping go through GORM; the hot bulk
// lead insert goes through pgx CopyFrom.
package leadstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"

	"github.com/leadflow/backend/internal/dupcheck"
	"github.com/leadflow/backend/internal/models"
)

// ErrBatchNotFound is returned when a batch id has no row.
var ErrBatchNotFound = errors.New("upload batch not found")

// UploadedDNCListName is the list collecting DNC flags found in files.
const UploadedDNCListName = "Uploaded DNC"

// Store is the Postgres-backed persistence boundary.
type Store struct {
	db   *gorm.DB
	pool *pgxpool.Pool
}

// New wires a Store over an open GORM handle and pgx pool.
func New(db *gorm.DB, pool *pgxpool.Pool) *Store {
	return &Store{db: db, pool: pool}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&LeadRecord{},
		&stagingLeadRecord{},
		&UploadBatchRecord{},
		&DNCListRecord{},
		&DNCEntryRecord{},
	)
}

// CreateBatch inserts a new batch row. A missing ID or CreatedAt is
// filled in.
func (s *Store) CreateBatch(ctx context.Context, b *models.UploadBatch) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	rec := batchToRecord(b)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("create upload batch: %w", err)
	}
	return nil
}

// UpdateBatch saves the batch's mutable fields.
func (s *Store) UpdateBatch(ctx context.Context, b *models.UploadBatch) error {
	rec := batchToRecord(b)
	res := s.db.WithContext(ctx).Model(&UploadBatchRecord{}).
		Where("id = ?", b.ID).
		Updates(map[string]any{
			"status":          rec.Status,
			"total_leads":     rec.TotalLeads,
			"cleaned_leads":   rec.CleanedLeads,
			"duplicate_leads": rec.DuplicateLeads,
			"dnc_matches":     rec.DNCMatches,
			"error_message":   rec.ErrorMessage,
			"completed_at":    rec.CompletedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("update upload batch %s: %w", b.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrBatchNotFound
	}
	return nil
}

// GetBatch fetches one batch by id.
func (s *Store) GetBatch(ctx context.Context, id string) (*models.UploadBatch, error) {
	var rec UploadBatchRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get upload batch %s: %w", id, err)
	}
	b := batchFromRecord(rec)
	return &b, nil
}

// ListBatches returns the most recent batches, newest first.
func (s *Store) ListBatches(ctx context.Context, limit int) ([]models.UploadBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []UploadBatchRecord
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list upload batches: %w", err)
	}
	out := make([]models.UploadBatch, 0, len(recs))
	for _, rec := range recs {
		out = append(out, batchFromRecord(rec))
	}
	return out, nil
}

// HasCompletedBatch reports whether a completed batch already exists
// for this filename. Used as the duplicate file upload guard.
func (s *Store) HasCompletedBatch(ctx context.Context, filename string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&UploadBatchRecord{}).
		Where("filename = ? AND status = ?", filename, string(models.BatchCompleted)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check completed batches for %s: %w", filename, err)
	}
	return count > 0, nil
}

// GetOrCreateDNCList finds a DNC list by name, creating it on first
// use.
func (s *Store) GetOrCreateDNCList(ctx context.Context, name, source string) (string, error) {
	rec := DNCListRecord{Name: name}
	err := s.db.WithContext(ctx).
		Where("name = ?", name).
		Attrs(DNCListRecord{ID: uuid.New().String(), Source: source, CreatedAt: time.Now().UTC()}).
		FirstOrCreate(&rec).Error
	if err != nil {
		return "", fmt.Errorf("get or create dnc list %q: %w", name, err)
	}
	return rec.ID, nil
}

// DNCEntry is one suppressed value captured during a commit.
type DNCEntry struct {
	Value     string `json:"value"`
	ValueType string `json:"valuetype"`
	Source    string `json:"source"`
}

// AddDNCEntries appends entries to the named list and returns how many
// were stored.
func (s *Store) AddDNCEntries(ctx context.Context, listName string, entries []DNCEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	listID, err := s.GetOrCreateDNCList(ctx, listName, "manual")
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	recs := make([]DNCEntryRecord, 0, len(entries))
	for _, e := range entries {
		recs = append(recs, DNCEntryRecord{
			Value:     e.Value,
			ValueType: e.ValueType,
			DNCListID: listID,
			Source:    e.Source,
			CreatedAt: now,
		})
	}
	if err := s.db.WithContext(ctx).CreateInBatches(recs, 500).Error; err != nil {
		return 0, fmt.Errorf("add dnc entries to %q: %w", listName, err)
	}
	return len(recs), nil
}

// ExistingKeys implements the duplicate checker's store lookup: it
// answers which normalized keys already exist among persisted leads.
func (s *Store) ExistingKeys(ctx context.Context, field string, keys []string) (map[string]bool, error) {
	if len(keys) == 0 {
		return map[string]bool{}, nil
	}

	query, err := existingKeysQuery(field)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("query existing %s keys: %w", field, err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan existing %s key: %w", field, err)
		}
		existing[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read existing %s keys: %w", field, err)
	}
	return existing, nil
}

// existingKeysQuery builds the lookup statement for one check field.
// The SQL normalization must mirror the dupcheck normalizers, or stored
// leads become invisible to the duplicate check: phones shed every
// non-digit and then a leading country code 1 from 11-digit values.
func existingKeysQuery(field string) (string, error) {
	switch field {
	case dupcheck.FieldEmail:
		return `SELECT DISTINCT lower(email) FROM leads WHERE email <> '' AND lower(email) = ANY($1)`, nil
	case dupcheck.FieldPhone:
		return `SELECT DISTINCT CASE WHEN length(d) > 10 AND left(d, 1) = '1' THEN substr(d, 2) ELSE d END
			FROM (SELECT regexp_replace(phone, '\D', '', 'g') AS d FROM leads WHERE phone <> '') p
			WHERE CASE WHEN length(d) > 10 AND left(d, 1) = '1' THEN substr(d, 2) ELSE d END = ANY($1)`, nil
	case dupcheck.FieldName:
		return `SELECT DISTINCT lower(first_name || ' ' || last_name) FROM leads
			WHERE first_name <> '' AND last_name <> ''
			AND lower(first_name || ' ' || last_name) = ANY($1)`, nil
	default:
		return "", fmt.Errorf("unknown duplicate check field %q", field)
	}
}
