package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Enqueuer submits extraction tasks to the queue. It implements
// service.TaskEnqueuer for the API server side.
type Enqueuer struct {
	client *asynq.Client
	queue  string
}

// NewEnqueuer creates an enqueuer using the given asynq client.
func NewEnqueuer(client *asynq.Client, queue string) *Enqueuer {
	if queue == "" {
		queue = "default"
	}
	return &Enqueuer{client: client, queue: queue}
}

// EnqueueExtraction schedules a queued extraction run for processing.
func (e *Enqueuer) EnqueueExtraction(ctx context.Context, runID uuid.UUID) error {
	task, err := NewExtractionTask(&ExtractionPayload{RunID: runID})
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue(e.queue)); err != nil {
		return fmt.Errorf("failed to enqueue extraction task: %w", err)
	}
	return nil
}

// Close releases the underlying client connection.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}
