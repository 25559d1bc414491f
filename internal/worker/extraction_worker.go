package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/medextract/medextract/api/internal/service"
)

const (
	// TypeExtraction is the task type for running a queued extraction
	TypeExtraction = "extraction:run"
)

// ExtractionPayload is the payload for extraction tasks
type ExtractionPayload struct {
	RunID uuid.UUID `json:"run_id"`
}

// NewExtractionTask creates a new extraction task
func NewExtractionTask(payload *ExtractionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extraction payload: %w", err)
	}
	return asynq.NewTask(TypeExtraction, data, asynq.MaxRetry(3), asynq.Timeout(10*time.Minute)), nil
}

// ExtractionWorker handles queued extraction runs
type ExtractionWorker struct {
	logger            *zap.Logger
	extractionService *service.ExtractionService
}

// NewExtractionWorker creates a new extraction worker
func NewExtractionWorker(logger *zap.Logger, extractionService *service.ExtractionService) *ExtractionWorker {
	return &ExtractionWorker{
		logger:            logger,
		extractionService: extractionService,
	}
}

// ProcessTask processes an extraction task. Pipeline failures are stored on
// the run record and do not requeue the task; only infrastructure errors
// (storage, missing run) propagate to asynq for retry.
func (w *ExtractionWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ExtractionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal extraction payload: %w", err)
	}

	w.logger.Info("processing queued extraction",
		zap.String("run_id", payload.RunID.String()),
	)

	if err := w.extractionService.ProcessRun(ctx, payload.RunID); err != nil {
		return fmt.Errorf("failed to process extraction run: %w", err)
	}

	return nil
}
