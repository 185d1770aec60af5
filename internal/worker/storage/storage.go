package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/domain"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/model"
	"github.com/jmoiron/sqlx"
)

// Storage handles the checkpoint writes made while a job runs. Every write is
// guarded by status = 'processing', so a row that was deleted or already
// finalized is left untouched and the write is a no-op.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// GetTranscriptByID loads a job without an ownership check; only the runner uses it
func (s *Storage) GetTranscriptByID(ctx context.Context, id string) (*model.Transcript, error) {
	query := `
		SELECT id, user_id, file_name, file_size, file_path, language,
		       status, progress, transcript, duration, created_at, updated_at
		FROM transcripts
		WHERE id = $1
	`

	var t model.Transcript
	if err := s.db.GetContext(ctx, &t, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTranscriptNotFound
		}
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}

	return &t, nil
}

// UpdateProgress moves a processing job forward; progress never goes back
func (s *Storage) UpdateProgress(ctx context.Context, id string, progress int) error {
	query := `
		UPDATE transcripts
		SET progress = $1,
		    updated_at = NOW()
		WHERE id = $2
		  AND status = $3
		  AND progress <= $1
	`

	result, err := s.db.ExecContext(ctx, query, progress, id, domain.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}

	s.logSkipped(result, id, "progress")
	return nil
}

// CompleteTranscript finalizes a job with its text and estimated duration
func (s *Storage) CompleteTranscript(ctx context.Context, id, text string, durationSeconds int) error {
	query := `
		UPDATE transcripts
		SET status = $1,
		    progress = $2,
		    transcript = $3,
		    duration = $4,
		    updated_at = NOW()
		WHERE id = $5
		  AND status = $6
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.StatusCompleted, domain.ProgressDone, text, durationSeconds, id, domain.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to complete transcript: %w", err)
	}

	s.logSkipped(result, id, "complete")
	return nil
}

// FailTranscript marks a job failed, resets progress and stores message as the transcript
func (s *Storage) FailTranscript(ctx context.Context, id, message string) error {
	query := `
		UPDATE transcripts
		SET status = $1,
		    progress = $2,
		    transcript = $3,
		    updated_at = NOW()
		WHERE id = $4
		  AND status = $5
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.StatusFailed, domain.ProgressQueued, message, id, domain.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark transcript failed: %w", err)
	}

	s.logSkipped(result, id, "fail")
	return nil
}

func (s *Storage) logSkipped(result sql.Result, id, write string) {
	rowsAffected, err := result.RowsAffected()
	if err != nil || rowsAffected > 0 {
		return
	}

	s.logger.Warn("Transcript write skipped - row missing or no longer processing",
		slog.String("job_id", id),
		slog.String("write", write),
	)
}
