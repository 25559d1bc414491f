package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medextract/medextract/api/internal/domain"
	apperrors "github.com/medextract/medextract/api/internal/pkg/errors"
	"github.com/medextract/medextract/api/internal/pkg/id"
)

// ExtractionRepository persists extraction runs.
type ExtractionRepository interface {
	Create(ctx context.Context, run *domain.ExtractionRun) error
	Update(ctx context.Context, run *domain.ExtractionRun) error
	GetByID(ctx context.Context, runID uuid.UUID) (*domain.ExtractionRun, error)
	List(ctx context.Context, limit, offset int) ([]*domain.ExtractionRun, error)
}

// TaskEnqueuer schedules extraction runs for background processing.
type TaskEnqueuer interface {
	EnqueueExtraction(ctx context.Context, runID uuid.UUID) error
}

// PipelineRunner is the pure extraction pipeline contract.
type PipelineRunner interface {
	Run(ctx context.Context, noteText string) *PipelineResult
}

// ExtractionService wires persistence and job scheduling around the pure
// pipeline. The pipeline never touches storage; this layer owns the run
// lifecycle (queued, running, succeeded, failed).
type ExtractionService struct {
	repo     ExtractionRepository
	enqueuer TaskEnqueuer
	pipeline PipelineRunner
	logger   *zap.Logger
}

// NewExtractionService creates the extraction service. enqueuer may be nil
// when async processing is not configured.
func NewExtractionService(
	repo ExtractionRepository,
	enqueuer TaskEnqueuer,
	pipeline PipelineRunner,
	logger *zap.Logger,
) *ExtractionService {
	return &ExtractionService{
		repo:     repo,
		enqueuer: enqueuer,
		pipeline: pipeline,
		logger:   logger.Named("extraction_service"),
	}
}

// Extract runs the pipeline synchronously and persists the outcome. The run
// record is returned in its terminal state, failed runs included, so the
// caller always gets the trajectory back.
func (s *ExtractionService) Extract(ctx context.Context, noteText string) (*domain.ExtractionRun, error) {
	if strings.TrimSpace(noteText) == "" {
		return nil, apperrors.Validation("note text must not be empty")
	}

	run := &domain.ExtractionRun{
		ID:        id.NewRunID(),
		Status:    domain.RunStatusRunning,
		NoteText:  noteText,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, run); err != nil {
		return nil, apperrors.Internal("failed to create extraction run").WithError(err)
	}

	s.applyResult(run, s.pipeline.Run(ctx, noteText))

	if err := s.repo.Update(ctx, run); err != nil {
		return nil, apperrors.Internal("failed to store extraction result").WithError(err)
	}
	return run, nil
}

// ExtractAsync records a queued run and schedules it for background
// processing, returning immediately with the queued record.
func (s *ExtractionService) ExtractAsync(ctx context.Context, noteText string) (*domain.ExtractionRun, error) {
	if strings.TrimSpace(noteText) == "" {
		return nil, apperrors.Validation("note text must not be empty")
	}
	if s.enqueuer == nil {
		return nil, apperrors.Internal("async extraction is not configured")
	}

	run := &domain.ExtractionRun{
		ID:        id.NewRunID(),
		Status:    domain.RunStatusQueued,
		NoteText:  noteText,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, run); err != nil {
		return nil, apperrors.Internal("failed to create extraction run").WithError(err)
	}

	if err := s.enqueuer.EnqueueExtraction(ctx, run.ID); err != nil {
		return nil, apperrors.Internal("failed to enqueue extraction run").WithError(err)
	}

	s.logger.Info("extraction run enqueued", zap.String("run_id", run.ID.String()))
	return run, nil
}

// ProcessRun executes a previously queued run. Called by the background
// worker; the pipeline outcome, success or failure, is stored on the run.
func (s *ExtractionService) ProcessRun(ctx context.Context, runID uuid.UUID) error {
	run, err := s.repo.GetByID(ctx, runID)
	if err != nil {
		return err
	}

	run.Status = domain.RunStatusRunning
	if err := s.repo.Update(ctx, run); err != nil {
		return apperrors.Internal("failed to mark run as running").WithError(err)
	}

	s.applyResult(run, s.pipeline.Run(ctx, run.NoteText))

	if err := s.repo.Update(ctx, run); err != nil {
		return apperrors.Internal("failed to store extraction result").WithError(err)
	}

	s.logger.Info("queued extraction run processed",
		zap.String("run_id", runID.String()),
		zap.String("status", string(run.Status)))
	return nil
}

// GetRun fetches a stored extraction run by id.
func (s *ExtractionService) GetRun(ctx context.Context, runID uuid.UUID) (*domain.ExtractionRun, error) {
	return s.repo.GetByID(ctx, runID)
}

// ListRuns returns stored runs, newest first.
func (s *ExtractionService) ListRuns(ctx context.Context, limit, offset int) ([]*domain.ExtractionRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// applyResult copies a pipeline outcome onto the run record.
func (s *ExtractionService) applyResult(run *domain.ExtractionRun, result *PipelineResult) {
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.Trajectory = result.Trajectory.ToMap(false)

	if result.Success {
		run.Status = domain.RunStatusSucceeded
		run.Note = result.Note
		run.Warnings = result.Warnings
		return
	}
	run.Status = domain.RunStatusFailed
	run.Error = result.Error
}
