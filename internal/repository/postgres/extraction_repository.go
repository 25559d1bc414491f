package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medextract/medextract/api/internal/domain"
	"github.com/medextract/medextract/api/internal/pkg/database"
	apperrors "github.com/medextract/medextract/api/internal/pkg/errors"
)

// ExtractionRepository handles extraction run persistence in PostgreSQL.
// Structured notes and trajectories are stored as JSONB so the full audit
// trail survives in queryable form.
type ExtractionRepository struct {
	db *database.PostgresDB
}

// NewExtractionRepository creates a new extraction repository
func NewExtractionRepository(db *database.PostgresDB) *ExtractionRepository {
	return &ExtractionRepository{db: db}
}

// Create inserts a new extraction run
func (r *ExtractionRepository) Create(ctx context.Context, run *domain.ExtractionRun) error {
	query := `
		INSERT INTO extraction_runs (id, status, note_text, structured_note, trajectory, warnings, error, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	noteJSON, trajectoryJSON, warningsJSON, err := marshalRun(run)
	if err != nil {
		return err
	}

	_, err = r.db.Pool.Exec(ctx, query,
		run.ID,
		run.Status,
		run.NoteText,
		noteJSON,
		trajectoryJSON,
		warningsJSON,
		run.Error,
		run.CreatedAt,
		run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create extraction run: %w", err)
	}

	return nil
}

// Update updates the status and results of an extraction run
func (r *ExtractionRepository) Update(ctx context.Context, run *domain.ExtractionRun) error {
	query := `
		UPDATE extraction_runs
		SET status = $2, structured_note = $3, trajectory = $4, warnings = $5, error = $6, completed_at = $7
		WHERE id = $1
	`

	noteJSON, trajectoryJSON, warningsJSON, err := marshalRun(run)
	if err != nil {
		return err
	}

	tag, err := r.db.Pool.Exec(ctx, query,
		run.ID,
		run.Status,
		noteJSON,
		trajectoryJSON,
		warningsJSON,
		run.Error,
		run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update extraction run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("extraction run")
	}

	return nil
}

// GetByID retrieves an extraction run by ID
func (r *ExtractionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionRun, error) {
	query := `
		SELECT id, status, note_text, structured_note, trajectory, warnings, error, created_at, completed_at
		FROM extraction_runs
		WHERE id = $1
	`

	run, err := scanRun(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("extraction run")
		}
		return nil, fmt.Errorf("failed to get extraction run: %w", err)
	}

	return run, nil
}

// List retrieves extraction runs ordered by creation time, newest first
func (r *ExtractionRepository) List(ctx context.Context, limit, offset int) ([]*domain.ExtractionRun, error) {
	query := `
		SELECT id, status, note_text, structured_note, trajectory, warnings, error, created_at, completed_at
		FROM extraction_runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list extraction runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.ExtractionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan extraction run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate extraction runs: %w", err)
	}

	return runs, nil
}

// Delete removes an extraction run
func (r *ExtractionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM extraction_runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete extraction run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("extraction run")
	}
	return nil
}

func marshalRun(run *domain.ExtractionRun) (noteJSON, trajectoryJSON, warningsJSON []byte, err error) {
	if run.Note != nil {
		noteJSON, err = json.Marshal(run.Note)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal structured note: %w", err)
		}
	}
	if run.Trajectory != nil {
		trajectoryJSON, err = json.Marshal(run.Trajectory)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal trajectory: %w", err)
		}
	}
	if run.Warnings != nil {
		warningsJSON, err = json.Marshal(run.Warnings)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal warnings: %w", err)
		}
	}
	return noteJSON, trajectoryJSON, warningsJSON, nil
}

func scanRun(row pgx.Row) (*domain.ExtractionRun, error) {
	var run domain.ExtractionRun
	var noteJSON, trajectoryJSON, warningsJSON []byte

	err := row.Scan(
		&run.ID,
		&run.Status,
		&run.NoteText,
		&noteJSON,
		&trajectoryJSON,
		&warningsJSON,
		&run.Error,
		&run.CreatedAt,
		&run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(noteJSON) > 0 {
		run.Note = &domain.StructuredNote{}
		if err := json.Unmarshal(noteJSON, run.Note); err != nil {
			return nil, fmt.Errorf("failed to unmarshal structured note: %w", err)
		}
	}
	if len(trajectoryJSON) > 0 {
		if err := json.Unmarshal(trajectoryJSON, &run.Trajectory); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trajectory: %w", err)
		}
	}
	if len(warningsJSON) > 0 {
		if err := json.Unmarshal(warningsJSON, &run.Warnings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
		}
	}

	return &run, nil
}
