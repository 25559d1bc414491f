package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle status of a persisted extraction run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// ExtractionRun is the persisted record of one pipeline execution: the input
// note, the structured result (when the run succeeded), and the full
// trajectory for audit.
type ExtractionRun struct {
	ID          uuid.UUID       `json:"id"`
	Status      RunStatus       `json:"status"`
	NoteText    string          `json:"noteText"`
	Note        *StructuredNote `json:"note,omitempty"`
	Trajectory  map[string]any  `json:"trajectory,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}
