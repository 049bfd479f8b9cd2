package model

import (
	"time"
)

// RunStatus represents the status of an analysis run.
type RunStatus int

const (
	RunStatusPending   RunStatus = 0 // Accepted, not started
	RunStatusRunning   RunStatus = 1 // Analysis in progress
	RunStatusCompleted RunStatus = 2 // Report produced
	RunStatusFailed    RunStatus = 3 // Analysis failed
)

// String returns the string representation of RunStatus.
func (s RunStatus) String() string {
	switch s {
	case RunStatusPending:
		return "pending"
	case RunStatusRunning:
		return "running"
	case RunStatusCompleted:
		return "completed"
	case RunStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true once the run can no longer change status.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Run is the history record of one module analysis.
type Run struct {
	ID           int64      `json:"id"`
	RunID        string     `json:"run_id"`
	Source       string     `json:"source"`
	Format       string     `json:"format"`
	Status       RunStatus  `json:"status"`
	StatusInfo   string     `json:"status_info,omitempty"`
	InputSize    int64      `json:"input_size"`
	ItemCount    int        `json:"item_count"`
	AliveCount   int        `json:"alive_count"`
	GarbageCount int        `json:"garbage_count"`
	TotalSize    uint64     `json:"total_size"`
	GarbageSize  uint64     `json:"garbage_size"`
	SharedSize   uint64     `json:"shared_size"`
	ReportKey    string     `json:"report_key,omitempty"`
	CreateTime   time.Time  `json:"create_time"`
	BeginTime    *time.Time `json:"begin_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
}

// NewRun creates a pending Run.
func NewRun(runID, source string) *Run {
	return &Run{
		RunID:      runID,
		Source:     source,
		Status:     RunStatusPending,
		CreateTime: time.Now(),
	}
}

// ApplySummary copies the aggregate figures of a finished analysis.
func (r *Run) ApplySummary(s *Summary) {
	if s == nil {
		return
	}
	r.ItemCount = s.ItemCount
	r.AliveCount = s.AliveCount
	r.GarbageCount = s.GarbageCount
	r.TotalSize = s.TotalSize
	r.GarbageSize = s.GarbageSize
	r.SharedSize = s.SharedSize
}

// Duration returns how long the run took, or zero if it has not finished.
func (r *Run) Duration() time.Duration {
	if r.BeginTime == nil || r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(*r.BeginTime)
}
