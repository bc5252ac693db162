package leadstore

import (
	"encoding/json"
	"time"

	"github.com/leadflow/backend/internal/models"
)

// LeadRecord is the persisted shape of a lead row.
type LeadRecord struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Email       string `gorm:"size:320;index"`
	FirstName   string `gorm:"size:120"`
	LastName    string `gorm:"size:120"`
	Phone       string `gorm:"size:32;index"`
	CompanyName string `gorm:"size:255"`
	TaxID       string `gorm:"size:32"`
	Address     string `gorm:"size:255"`
	City        string `gorm:"size:120"`
	State       string `gorm:"size:64"`
	ZipCode     string `gorm:"size:20"`
	Country     string `gorm:"size:120"`
	LoanAmount  string `gorm:"size:64"`
	Revenue     string `gorm:"size:64"`
	LeadStatus  string `gorm:"size:16;not null"`
	LeadSource  string `gorm:"size:64;not null"`
	Tags        string `gorm:"type:text"` // JSON-encoded string array
	BatchID     string `gorm:"type:uuid;index;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (LeadRecord) TableName() string {
	return "leads"
}

// stagingLeadRecord backs the CopyFrom bulk path; rows live here only
// for the duration of one insert transaction.
type stagingLeadRecord struct {
	BatchID     string `gorm:"type:uuid;index;not null"`
	RowIndex    int64
	ID          string `gorm:"type:uuid"`
	Email       string `gorm:"size:320"`
	FirstName   string `gorm:"size:120"`
	LastName    string `gorm:"size:120"`
	Phone       string `gorm:"size:32"`
	CompanyName string `gorm:"size:255"`
	TaxID       string `gorm:"size:32"`
	Address     string `gorm:"size:255"`
	City        string `gorm:"size:120"`
	State       string `gorm:"size:64"`
	ZipCode     string `gorm:"size:20"`
	Country     string `gorm:"size:120"`
	LoanAmount  string `gorm:"size:64"`
	Revenue     string `gorm:"size:64"`
	LeadStatus  string `gorm:"size:16"`
	LeadSource  string `gorm:"size:64"`
	Tags        string `gorm:"type:text"`
}

func (stagingLeadRecord) TableName() string {
	return "stg_leads"
}

// UploadBatchRecord is the persisted shape of one ingestion session.
type UploadBatchRecord struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	Filename       string `gorm:"size:255;not null;index"`
	Status         string `gorm:"size:16;not null"`
	TotalLeads     int
	CleanedLeads   int
	DuplicateLeads int
	DNCMatches     int
	SupplierID     string `gorm:"size:64"`
	ErrorMessage   string `gorm:"type:text"`
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

func (UploadBatchRecord) TableName() string {
	return "upload_batches"
}

// DNCListRecord is a named do-not-call list.
type DNCListRecord struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"size:120;not null;uniqueIndex"`
	Source    string `gorm:"size:64;not null"`
	CreatedAt time.Time
}

func (DNCListRecord) TableName() string {
	return "dnc_lists"
}

// DNCEntryRecord is one suppressed contact value within a list.
type DNCEntryRecord struct {
	ID        int64  `gorm:"primaryKey"`
	Value     string `gorm:"size:320;not null;index"`
	ValueType string `gorm:"size:16;not null"` // "email" or "phone"
	DNCListID string `gorm:"type:uuid;index;not null"`
	Source    string `gorm:"size:255"`
	CreatedAt time.Time
}

func (DNCEntryRecord) TableName() string {
	return "dnc_entries"
}

func leadToRecord(lead *models.Lead) LeadRecord {
	return LeadRecord{
		ID:          lead.ID,
		Email:       lead.Email,
		FirstName:   lead.FirstName,
		LastName:    lead.LastName,
		Phone:       lead.Phone,
		CompanyName: lead.CompanyName,
		TaxID:       lead.TaxID,
		Address:     lead.Address,
		City:        lead.City,
		State:       lead.State,
		ZipCode:     lead.ZipCode,
		Country:     lead.Country,
		LoanAmount:  lead.LoanAmount,
		Revenue:     lead.Revenue,
		LeadStatus:  lead.LeadStatus,
		LeadSource:  lead.LeadSource,
		Tags:        encodeTags(lead.Tags),
		BatchID:     lead.BatchID,
		CreatedAt:   lead.CreatedAt,
	}
}

func batchToRecord(b *models.UploadBatch) UploadBatchRecord {
	return UploadBatchRecord{
		ID:             b.ID,
		Filename:       b.Filename,
		Status:         string(b.Status),
		TotalLeads:     b.TotalLeads,
		CleanedLeads:   b.CleanedLeads,
		DuplicateLeads: b.DuplicateLeads,
		DNCMatches:     b.DNCMatches,
		SupplierID:     b.SupplierID,
		ErrorMessage:   b.ErrorMessage,
		CreatedAt:      b.CreatedAt,
		CompletedAt:    b.CompletedAt,
	}
}

func batchFromRecord(r UploadBatchRecord) models.UploadBatch {
	return models.UploadBatch{
		ID:             r.ID,
		Filename:       r.Filename,
		Status:         models.BatchStatus(r.Status),
		TotalLeads:     r.TotalLeads,
		CleanedLeads:   r.CleanedLeads,
		DuplicateLeads: r.DuplicateLeads,
		DNCMatches:     r.DNCMatches,
		SupplierID:     r.SupplierID,
		ErrorMessage:   r.ErrorMessage,
		CreatedAt:      r.CreatedAt,
		CompletedAt:    r.CompletedAt,
	}
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return ""
	}
	return string(b)
}
