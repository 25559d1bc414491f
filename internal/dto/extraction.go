package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/medextract/medextract/api/internal/domain"
)

// ExtractRequest is the request body for extraction endpoints.
type ExtractRequest struct {
	NoteText string `json:"noteText" validate:"required,min=1,max=100000"`
}

// ExtractionRunResponse is the API representation of an extraction run.
type ExtractionRunResponse struct {
	ID          uuid.UUID              `json:"id"`
	Status      domain.RunStatus       `json:"status"`
	Note        *domain.StructuredNote `json:"note,omitempty"`
	Trajectory  map[string]any         `json:"trajectory,omitempty"`
	Warnings    []string               `json:"warnings,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
}

// ToExtractionRunResponse converts a domain run to its API shape. The input
// note text is intentionally omitted from responses; callers already have it
// and clinical notes can be large.
func ToExtractionRunResponse(run *domain.ExtractionRun) ExtractionRunResponse {
	return ExtractionRunResponse{
		ID:          run.ID,
		Status:      run.Status,
		Note:        run.Note,
		Trajectory:  run.Trajectory,
		Warnings:    run.Warnings,
		Error:       run.Error,
		CreatedAt:   run.CreatedAt,
		CompletedAt: run.CompletedAt,
	}
}

// ToExtractionRunSummary converts a run to a list-item shape without the
// structured note or trajectory payloads.
func ToExtractionRunSummary(run *domain.ExtractionRun) ExtractionRunResponse {
	return ExtractionRunResponse{
		ID:          run.ID,
		Status:      run.Status,
		Error:       run.Error,
		CreatedAt:   run.CreatedAt,
		CompletedAt: run.CompletedAt,
	}
}
