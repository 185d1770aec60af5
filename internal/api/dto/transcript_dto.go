package dto

import (
	"time"

	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/model"
)

type ListTranscriptsRequest struct {
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

// TranscriptDTO is the camelCase job shape polled by the web client
type TranscriptDTO struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	FileName   string    `json:"fileName"`
	FileSize   int64     `json:"fileSize"`
	FilePath   string    `json:"filePath"`
	Language   string    `json:"language"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"`
	Transcript *string   `json:"transcript"`
	Duration   *int64    `json:"duration"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func NewTranscriptDTO(t *model.Transcript) TranscriptDTO {
	out := TranscriptDTO{
		ID:        t.ID,
		UserID:    t.UserID,
		FileName:  t.FileName,
		FileSize:  t.FileSize,
		FilePath:  t.FilePath,
		Language:  t.Language,
		Status:    t.Status,
		Progress:  t.Progress,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.Transcript.Valid {
		text := t.Transcript.String
		out.Transcript = &text
	}
	if t.Duration.Valid {
		d := t.Duration.Int64
		out.Duration = &d
	}
	return out
}

func NewTranscriptList(ts []model.Transcript) []TranscriptDTO {
	out := make([]TranscriptDTO, len(ts))
	for i := range ts {
		out[i] = NewTranscriptDTO(&ts[i])
	}
	return out
}
