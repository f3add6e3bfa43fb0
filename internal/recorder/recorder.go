package recorder

import (
	"time"

	"PowerPosition/internal/model"
)

// RunEvent is one dispatched report run.
type RunEvent struct {
	RunID      string          `json:"run_id"`
	Trigger    time.Time       `json:"trigger"`
	ReportDate string          `json:"report_date"` // YYYY-MM-DD in the report zone
	Status     model.RunStatus `json:"status"`
	Attempts   int             `json:"attempts"`
	OutputPath string          `json:"output_path,omitempty"`
	Error      string          `json:"error,omitempty"`
	Duration   time.Duration   `json:"duration_ns"`
}

// Recorder persists the run journal for later inspection.
type Recorder interface {
	RecordRun(evt *RunEvent) error
	// RecentRuns returns at most limit runs, newest first.
	RecentRuns(limit int) ([]RunEvent, error)
	Close() error
}
