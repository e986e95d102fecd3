package domain

import "time"

// TaskStatus represents the current state of an analysis run
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusRunning TaskStatus = "running"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusFailed  TaskStatus = "failed"
)

// AnalysisTask is one triggered ingestion run for a user's mailbox.
// The run coordinator owns it exclusively: created pending, moved to
// running on the first progress write, then to done or failed.
type AnalysisTask struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	UserID      string     `json:"user_id" gorm:"index;not null"`
	TaskType    string     `json:"task_type"`
	Status      TaskStatus `json:"status" gorm:"default:pending"`
	ProgressPct int        `json:"progress_pct"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	ErrorMsg    *string    `json:"error_msg,omitempty"`
	// HistoryID is the last successfully ingested provider cursor.
	// It only advances on a fully successful run; a failed run restores
	// the value it held on entry so a retry re-covers the same window.
	HistoryID *string `json:"history_id,omitempty"`
}

// TaskTypeEmailAnalysis is the only task type this service runs today.
const TaskTypeEmailAnalysis = "email-analysis"

// ProgressView is the user-facing status of the latest run for a user
type ProgressView struct {
	InProgress  bool   `json:"in_progress"`
	ProgressPct int    `json:"progress_pct"`
	Status      string `json:"status,omitempty"`
	ErrorMsg    string `json:"error_msg,omitempty"`
}
