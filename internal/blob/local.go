package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// LocalStore keeps uploads on the local filesystem
type LocalStore struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewLocalStore creates dir when missing and resolves it to an absolute path
func NewLocalStore(dir string, logger *slog.Logger) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload dir: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	return &LocalStore{dir: abs, logger: logger, now: time.Now}, nil
}

func (s *LocalStore) Backend() string { return "local" }

func (s *LocalStore) Store(ctx context.Context, r io.Reader, size int64, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, ObjectName(s.now(), originalName))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create blob: %w", err)
	}

	written, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	s.logger.Debug("Blob stored",
		slog.String("path", path),
		slog.Int64("size", written),
		slog.Int64("declared_size", size),
	)

	return path, nil
}
