package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/domain"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/model"
)

const transcriptColumns = `
	id, user_id, file_name, file_size, file_path, language,
	status, progress, transcript, duration, created_at, updated_at
`

func (s *Storage) CreateTranscript(ctx context.Context, t *model.Transcript) error {
	query := `
		INSERT INTO transcripts (
			id, user_id, file_name, file_size, file_path,
			language, status, progress, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		t.ID,
		t.UserID,
		t.FileName,
		t.FileSize,
		t.FilePath,
		t.Language,
		t.Status,
		t.Progress,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transcript: %w", err)
	}

	return nil
}

// GetTranscript returns the transcript only when it belongs to userID
func (s *Storage) GetTranscript(ctx context.Context, userID, id string) (*model.Transcript, error) {
	var t model.Transcript
	query := `SELECT ` + transcriptColumns + `
		FROM transcripts
		WHERE id = $1 AND user_id = $2
	`

	err := s.db.GetContext(ctx, &t, query, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTranscriptNotFound
		}
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}

	return &t, nil
}

type TranscriptFilter struct {
	UserID string
	// PageSize 0 returns every row
	PageSize int
	Cursor   *TranscriptCursor
}

type TranscriptCursor struct {
	CreatedAt time.Time
	ID        string
}

// ListTranscripts returns the user's transcripts newest first. With a page
// size it fetches one extra row so callers can tell whether more exist.
func (s *Storage) ListTranscripts(ctx context.Context, filter TranscriptFilter) ([]model.Transcript, error) {
	query := `SELECT ` + transcriptColumns + `
		FROM transcripts
		WHERE user_id = $1
	`
	args := []interface{}{filter.UserID}
	argIdx := 2

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filter.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.PageSize+1)
	}

	transcripts := []model.Transcript{}
	if err := s.db.SelectContext(ctx, &transcripts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}

	return transcripts, nil
}

// DeleteTranscript removes the row when it belongs to userID
func (s *Storage) DeleteTranscript(ctx context.Context, userID, id string) error {
	query := `DELETE FROM transcripts WHERE id = $1 AND user_id = $2`

	result, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrTranscriptNotFound
	}

	return nil
}
