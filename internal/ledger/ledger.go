// Package ledger is the durable store of processed identities and run
// statistics. It answers "have I seen this tax ID" and records
// per-record and per-run outcomes.
package ledger

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/ikasa-digital/leads-cli/internal/model"
)

// ErrDuplicateTaxID reports an insert for an identity that already has
// a row. Expected, not exceptional: callers count it as a duplicate.
var ErrDuplicateTaxID = eris.New("ledger: duplicate tax id")

// StatusUpdate is a partial update: only non-nil fields are applied.
// updated_at is always refreshed.
type StatusUpdate struct {
	Status    model.ProcessingStatus
	CRMLeadID *string
	EmailSent *bool
}

// DailyCount is one bucket of the per-day lead histogram.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Stats aggregates ledger contents over a trailing window.
type Stats struct {
	WindowDays  int          `json:"window_days"`
	TotalLeads  int          `json:"total_leads"`
	Processed   int          `json:"processed"`
	Failed      int          `json:"failed"`
	EmailsSent  int          `json:"emails_sent"`
	DailyCounts []DailyCount `json:"daily_counts"`
}

// Ledger defines the persistence contract for the ingestion pipeline.
// Every mutating call is one transaction; there are no multi-statement
// transactions, so a crash between pipeline steps leaves the record in
// a valid intermediate status.
type Ledger interface {
	// Exists reports whether a lead row holds this tax ID.
	Exists(ctx context.Context, taxID string) (bool, error)
	// Insert creates the single row for a new identity. The unique
	// index on tax_id is the authoritative gate: a second insert for
	// the same identity fails with ErrDuplicateTaxID.
	Insert(ctx context.Context, company model.Company, crmLeadID string, emailSent bool) (int64, error)
	// UpdateStatus applies a partial update to one lead row.
	UpdateStatus(ctx context.Context, taxID string, upd StatusUpdate) error
	// GetByTaxID fetches one lead row, nil when absent.
	GetByTaxID(ctx context.Context, taxID string) (*model.LeadRecord, error)
	// ListByDate returns lead rows created on the given day (YYYY-MM-DD).
	ListByDate(ctx context.Context, date string) ([]model.LeadRecord, error)

	// LogRun appends one execution log row and returns its id.
	LogRun(ctx context.Context, entry model.ExecutionLog) (int64, error)
	// Stats aggregates lead counts over the trailing window.
	Stats(ctx context.Context, windowDays int) (*Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
