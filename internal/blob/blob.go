// Package blob persists uploaded audio and hands back a locator the
// transcription client can read from.
package blob

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// Store writes one upload and returns its locator: an absolute file path for
// the local backend, a public URL for the s3 backend.
type Store interface {
	Store(ctx context.Context, r io.Reader, size int64, originalName string) (string, error)
	Backend() string
}

// ObjectName prefixes the sanitized base name with a nanosecond timestamp
func ObjectName(now time.Time, originalName string) string {
	return fmt.Sprintf("%d-%s", now.UnixNano(), sanitize(originalName))
}

func sanitize(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}

	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
}
