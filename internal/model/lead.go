package model

import "time"

// ProcessingStatus tracks a lead record through the pipeline.
type ProcessingStatus string

const (
	LeadStatusPending   ProcessingStatus = "pending"
	LeadStatusProcessed ProcessingStatus = "processed"
	LeadStatusFailed    ProcessingStatus = "failed"
)

// LeadRecord is one ledger row: a company we have seen, exactly once
// per tax ID, plus the outcome of its CRM registration and outreach.
type LeadRecord struct {
	ID        int64            `json:"id"`
	Company   Company          `json:"company"`
	CRMLeadID string           `json:"crm_lead_id,omitempty"`
	EmailSent bool             `json:"email_sent"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt *time.Time       `json:"updated_at,omitempty"`
	Status    ProcessingStatus `json:"status"`
}

// RunStatus tracks a pipeline run in the execution log.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ExecutionLog is one ledger row per pipeline run.
type ExecutionLog struct {
	ID            int64     `json:"id"`
	ExecutionDate string    `json:"execution_date"`
	Found         int       `json:"found"`
	Processed     int       `json:"processed"`
	Duplicated    int       `json:"duplicated"`
	Failed        int       `json:"failed"`
	ElapsedSecs   float64   `json:"elapsed_secs"`
	Status        RunStatus `json:"status"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// RunSummary is the in-memory result of one pipeline run.
// Found == Processed + Duplicated + Failed always holds.
type RunSummary struct {
	RunID      string        `json:"run_id"`
	SearchDate string        `json:"search_date"`
	Found      int           `json:"found"`
	Processed  int           `json:"processed"`
	Duplicated int           `json:"duplicated"`
	Failed     int           `json:"failed"`
	Elapsed    time.Duration `json:"elapsed"`
	Status     RunStatus     `json:"status"`
}
