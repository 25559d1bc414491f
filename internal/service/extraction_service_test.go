package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medextract/medextract/api/internal/domain"
	apperrors "github.com/medextract/medextract/api/internal/pkg/errors"
	"github.com/medextract/medextract/api/internal/testutil"
	"github.com/medextract/medextract/api/internal/trajectory"
)

// MockExtractionRepository is a mock ExtractionRepository
type MockExtractionRepository struct {
	mock.Mock
}

func (m *MockExtractionRepository) Create(ctx context.Context, run *domain.ExtractionRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockExtractionRepository) Update(ctx context.Context, run *domain.ExtractionRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockExtractionRepository) GetByID(ctx context.Context, runID uuid.UUID) (*domain.ExtractionRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionRun), args.Error(1)
}

func (m *MockExtractionRepository) List(ctx context.Context, limit, offset int) ([]*domain.ExtractionRun, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ExtractionRun), args.Error(1)
}

// MockTaskEnqueuer is a mock TaskEnqueuer
type MockTaskEnqueuer struct {
	mock.Mock
}

func (m *MockTaskEnqueuer) EnqueueExtraction(ctx context.Context, runID uuid.UUID) error {
	args := m.Called(ctx, runID)
	return args.Error(0)
}

// stubRunner returns a fixed pipeline outcome.
type stubRunner struct {
	result *PipelineResult
	calls  int
}

func (s *stubRunner) Run(_ context.Context, _ string) *PipelineResult {
	s.calls++
	return s.result
}

func successResult() *PipelineResult {
	rec := trajectory.NewRecorder("ClinicalExtractionAgent", "test")
	rec.Complete(true, "", "2 entities extracted")
	return &PipelineResult{
		Success:    true,
		Note:       testutil.SampleStructuredNote(),
		Warnings:   []string{"Patient identification is incomplete"},
		Trajectory: rec.Trajectory(),
	}
}

func failureResult(errMsg string) *PipelineResult {
	rec := trajectory.NewRecorder("ClinicalExtractionAgent", "test")
	rec.Complete(false, errMsg, "")
	return &PipelineResult{
		Success:    false,
		Error:      errMsg,
		Trajectory: rec.Trajectory(),
	}
}

func TestExtractionService_Extract(t *testing.T) {
	t.Run("persists a successful run", func(t *testing.T) {
		repo := new(MockExtractionRepository)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		repo.On("Update", mock.Anything, mock.Anything).Return(nil)

		runner := &stubRunner{result: successResult()}
		svc := NewExtractionService(repo, nil, runner, zap.NewNop())

		run, err := svc.Extract(context.Background(), testutil.SampleNoteText)
		require.NoError(t, err)

		assert.Equal(t, domain.RunStatusSucceeded, run.Status)
		assert.NotEqual(t, uuid.Nil, run.ID)
		require.NotNil(t, run.Note)
		assert.Equal(t, []string{"Patient identification is incomplete"}, run.Warnings)
		require.NotNil(t, run.CompletedAt)
		assert.NotNil(t, run.Trajectory)
		assert.Equal(t, 1, runner.calls)
		repo.AssertExpectations(t)
	})

	t.Run("persists a failed run with its trajectory", func(t *testing.T) {
		repo := new(MockExtractionRepository)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		repo.On("Update", mock.Anything, mock.Anything).Return(nil)

		runner := &stubRunner{result: failureResult("text generation failed")}
		svc := NewExtractionService(repo, nil, runner, zap.NewNop())

		run, err := svc.Extract(context.Background(), "some note")
		require.NoError(t, err)

		assert.Equal(t, domain.RunStatusFailed, run.Status)
		assert.Equal(t, "text generation failed", run.Error)
		assert.Nil(t, run.Note)
		assert.NotNil(t, run.Trajectory)
	})

	t.Run("rejects blank note text", func(t *testing.T) {
		repo := new(MockExtractionRepository)
		svc := NewExtractionService(repo, nil, &stubRunner{}, zap.NewNop())

		_, err := svc.Extract(context.Background(), "   ")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		repo.AssertNotCalled(t, "Create")
	})

	t.Run("surfaces storage failures", func(t *testing.T) {
		repo := new(MockExtractionRepository)
		repo.On("Create", mock.Anything, mock.Anything).Return(assert.AnError)

		runner := &stubRunner{result: successResult()}
		svc := NewExtractionService(repo, nil, runner, zap.NewNop())

		_, err := svc.Extract(context.Background(), "note")
		require.Error(t, err)
		assert.Equal(t, 0, runner.calls)
	})
}

func TestExtractionService_ExtractAsync(t *testing.T) {
	t.Run("records a queued run and enqueues it", func(t *testing.T) {
		repo := new(MockExtractionRepository)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)

		enqueuer := new(MockTaskEnqueuer)
		enqueuer.On("EnqueueExtraction", mock.Anything, mock.Anything).Return(nil)

		svc := NewExtractionService(repo, enqueuer, &stubRunner{}, zap.NewNop())

		run, err := svc.ExtractAsync(context.Background(), testutil.SampleNoteText)
		require.NoError(t, err)

		assert.Equal(t, domain.RunStatusQueued, run.Status)
		assert.Nil(t, run.CompletedAt)
		enqueuer.AssertCalled(t, "EnqueueExtraction", mock.Anything, run.ID)
	})

	t.Run("fails when async is not configured", func(t *testing.T) {
		svc := NewExtractionService(new(MockExtractionRepository), nil, &stubRunner{}, zap.NewNop())

		_, err := svc.ExtractAsync(context.Background(), "note")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not configured")
	})

	t.Run("surfaces enqueue failures", func(t *testing.T) {
		repo := new(MockExtractionRepository)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)

		enqueuer := new(MockTaskEnqueuer)
		enqueuer.On("EnqueueExtraction", mock.Anything, mock.Anything).Return(assert.AnError)

		svc := NewExtractionService(repo, enqueuer, &stubRunner{}, zap.NewNop())

		_, err := svc.ExtractAsync(context.Background(), "note")
		require.Error(t, err)
	})
}

func TestExtractionService_ProcessRun(t *testing.T) {
	t.Run("runs a queued extraction to completion", func(t *testing.T) {
		runID := uuid.New()
		stored := &domain.ExtractionRun{
			ID:       runID,
			Status:   domain.RunStatusQueued,
			NoteText: testutil.SampleNoteText,
		}

		repo := new(MockExtractionRepository)
		repo.On("GetByID", mock.Anything, runID).Return(stored, nil)
		repo.On("Update", mock.Anything, stored).Return(nil)

		runner := &stubRunner{result: successResult()}
		svc := NewExtractionService(repo, nil, runner, zap.NewNop())

		err := svc.ProcessRun(context.Background(), runID)
		require.NoError(t, err)

		assert.Equal(t, domain.RunStatusSucceeded, stored.Status)
		assert.Equal(t, 1, runner.calls)
		repo.AssertNumberOfCalls(t, "Update", 2)
	})

	t.Run("propagates a missing run", func(t *testing.T) {
		runID := uuid.New()
		repo := new(MockExtractionRepository)
		repo.On("GetByID", mock.Anything, runID).Return(nil, apperrors.NotFound("extraction run"))

		runner := &stubRunner{}
		svc := NewExtractionService(repo, nil, runner, zap.NewNop())

		err := svc.ProcessRun(context.Background(), runID)
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
		assert.Equal(t, 0, runner.calls)
	})
}

func TestExtractionService_ListRuns(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{"defaults applied", 0, -5, 20, 0},
		{"limit clamped", 500, 10, 20, 10},
		{"valid passthrough", 50, 100, 50, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockExtractionRepository)
			repo.On("List", mock.Anything, tt.wantLimit, tt.wantOffset).
				Return([]*domain.ExtractionRun{}, nil)

			svc := NewExtractionService(repo, nil, &stubRunner{}, zap.NewNop())

			_, err := svc.ListRuns(context.Background(), tt.limit, tt.offset)
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}
