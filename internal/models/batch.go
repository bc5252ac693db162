package models

import "time"

// BatchStatus is the lifecycle state of a persisted upload batch.
type BatchStatus string

const (
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

// UploadBatch is the persisted record of one ingestion session.
type UploadBatch struct {
	ID             string      `json:"id"`
	Filename       string      `json:"filename"`
	Status         BatchStatus `json:"status"`
	TotalLeads     int         `json:"totalleads"`
	CleanedLeads   int         `json:"cleanedleads"`
	DuplicateLeads int         `json:"duplicateleads"`
	DNCMatches     int         `json:"dncmatches"`
	SupplierID     string      `json:"supplierid,omitempty"`
	CreatedAt      time.Time   `json:"createdat"`
	CompletedAt    *time.Time  `json:"completedat,omitempty"`
	ErrorMessage   string      `json:"errormessage,omitempty"`
}

// Lead is one accepted, mapped and normalized record.
type Lead struct {
	ID          string    `json:"id"`
	Email       string    `json:"email,omitempty"`
	FirstName   string    `json:"firstname,omitempty"`
	LastName    string    `json:"lastname,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	CompanyName string    `json:"companyname,omitempty"`
	TaxID       string    `json:"taxid,omitempty"`
	Address     string    `json:"address,omitempty"`
	City        string    `json:"city,omitempty"`
	State       string    `json:"state,omitempty"`
	ZipCode     string    `json:"zipcode,omitempty"`
	Country     string    `json:"country,omitempty"`
	LoanAmount  string    `json:"loanamount,omitempty"`
	Revenue     string    `json:"revenue,omitempty"`
	LeadStatus  string    `json:"leadstatus"` // "New" or "DNC"
	LeadSource  string    `json:"leadsource"`
	Tags        []string  `json:"tags,omitempty"`
	BatchID     string    `json:"uploadbatchid"`
	CreatedAt   time.Time `json:"createdat"`
}
