package model

import "time"

// RunStatus represents the current state of a report-generation run.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusFinancials RunStatus = "financials"
	RunStatusMarket     RunStatus = "market"
	RunStatusDrafting   RunStatus = "drafting"
	RunStatusRevising   RunStatus = "revising"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
)

// Run represents a single report generation for a company.
type Run struct {
	ID        string     `json:"id"`
	Company   string     `json:"company"`
	JobDigest string     `json:"job_digest,omitempty"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Financials   *FinancialRecord `json:"financials,omitempty"`
	FinancialErr string           `json:"financial_error,omitempty"`
	Industry     string           `json:"industry,omitempty"`
	Report       string           `json:"report,omitempty"`
	DurationMS   int64            `json:"duration_ms"`
}
