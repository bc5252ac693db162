package leadstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/leadflow/backend/internal/models"
)

var stagingColumns = []string{
	"batch_id", "row_index", "id", "email", "first_name", "last_name",
	"phone", "company_name", "tax_id", "address", "city", "state",
	"zip_code", "country", "loan_amount", "revenue", "lead_status",
	"lead_source", "tags",
}

// InsertLeads bulk-inserts a batch's accepted leads. Rows are staged
// with CopyFrom, then moved into the leads table in the same
// transaction, skipping any whose email meanwhile appeared in the
// store. Returns the number of rows actually inserted.
func (s *Store) InsertLeads(ctx context.Context, batchID string, leads []*models.Lead) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin insert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	staged := make([][]any, 0, len(leads))
	for i, lead := range leads {
		rec := leadToRecord(lead)
		staged = append(staged, []any{
			batchID, int64(i), rec.ID, rec.Email, rec.FirstName, rec.LastName,
			rec.Phone, rec.CompanyName, rec.TaxID, rec.Address, rec.City, rec.State,
			rec.ZipCode, rec.Country, rec.LoanAmount, rec.Revenue, rec.LeadStatus,
			rec.LeadSource, rec.Tags,
		})
	}

	if _, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"stg_leads"},
		stagingColumns,
		pgx.CopyFromRows(staged),
	); err != nil {
		return 0, fmt.Errorf("copy leads staging: %w", err)
	}

	tag, err := tx.Exec(ctx, `
INSERT INTO leads (id, email, first_name, last_name, phone, company_name,
                   tax_id, address, city, state, zip_code, country,
                   loan_amount, revenue, lead_status, lead_source, tags,
                   batch_id, created_at, updated_at)
SELECT s.id, s.email, s.first_name, s.last_name, s.phone, s.company_name,
       s.tax_id, s.address, s.city, s.state, s.zip_code, s.country,
       s.loan_amount, s.revenue, s.lead_status, s.lead_source, s.tags,
       s.batch_id, NOW(), NOW()
FROM stg_leads s
WHERE s.batch_id = $1
  AND (s.email = '' OR NOT EXISTS (
        SELECT 1 FROM leads l WHERE l.email <> '' AND lower(l.email) = lower(s.email)
      ))
ORDER BY s.row_index
`, batchID)
	if err != nil {
		return 0, fmt.Errorf("insert leads from staging: %w", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM stg_leads WHERE batch_id = $1", batchID); err != nil {
		return 0, fmt.Errorf("cleanup stg_leads: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit lead insert: %w", err)
	}

	return int(tag.RowsAffected()), nil
}
