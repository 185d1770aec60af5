package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/storage"
	"github.com/google/uuid"
)

// DecodeTranscriptCursor parses an opaque list cursor; "" means the first page
func DecodeTranscriptCursor(cursorStr string) (*storage.TranscriptCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	decodedParts := strings.Split(string(decoded), "|")
	if len(decodedParts) != 2 || decodedParts[1] == "" {
		return nil, fmt.Errorf("invalid cursor format")
	}

	if _, err := uuid.Parse(decodedParts[1]); err != nil {
		return nil, fmt.Errorf("invalid id in cursor: %w", err)
	}

	var createdAt int64
	_, err = fmt.Sscanf(decodedParts[0], "%d", &createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return &storage.TranscriptCursor{
		CreatedAt: time.Unix(0, createdAt).UTC(),
		ID:        decodedParts[1],
	}, nil
}

func EncodeTranscriptCursor(cursor *storage.TranscriptCursor) string {
	cs := fmt.Sprintf("%d|%s", cursor.CreatedAt.UnixNano(), cursor.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(cs))
}
