package database

import (
	"encoding/json"
	"time"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunQueued  RunStatus = "queued"
	RunRunning RunStatus = "running"
	RunDone    RunStatus = "done"
	RunFailed  RunStatus = "failed"
)

// Valid reports whether s is a known status.
func (s RunStatus) Valid() bool {
	switch s {
	case RunQueued, RunRunning, RunDone, RunFailed:
		return true
	}
	return false
}

// Run is one pipeline execution.
type Run struct {
	ID         string          `json:"run_id"`
	RunDate    string          `json:"run_date"`
	Status     RunStatus       `json:"status"`
	Request    json.RawMessage `json:"request"`
	DigestMD   *string         `json:"digest_md,omitempty"`
	Logs       []string        `json:"logs,omitempty"`
	Errors     []string        `json:"errors,omitempty"`
	Error      *string         `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// RunPaper is a ranked paper recorded for a run.
type RunPaper struct {
	Rank          int     `json:"rank"`
	PaperID       string  `json:"paper_id"`
	Title         string  `json:"title"`
	URL           string  `json:"url,omitempty"`
	PDFURL        string  `json:"pdf_url,omitempty"`
	Score         float64 `json:"score"`
	ContentStatus string  `json:"content_status,omitempty"`
	ContentError  string  `json:"content_error,omitempty"`
}

// RunOutcome holds what a finished run produced.
type RunOutcome struct {
	DigestMD string
	Logs     []string
	Errors   []string
}

// RunFilter narrows ListRuns. Zero values mean no constraint.
type RunFilter struct {
	Status RunStatus
	Limit  int
}
