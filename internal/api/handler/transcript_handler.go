package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/domain"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/dto"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/audio"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/blob"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// NextCursorHeader carries the cursor of the following page
	NextCursorHeader = "X-Next-Cursor"

	maxPageSize = 100

	// room for the multipart envelope and the language field
	multipartOverhead = 1 << 20
)

// TranscriptHandler handles transcript upload, polling and deletion
type TranscriptHandler struct {
	logger      *slog.Logger
	blobs       blob.Store
	jobs        JobService
	maxFileSize int64
}

// NewTranscriptHandler creates a new TranscriptHandler instance
func NewTranscriptHandler(deps *Dependencies) *TranscriptHandler {
	return &TranscriptHandler{
		logger:      deps.Logger,
		blobs:       deps.Blobs,
		jobs:        deps.Jobs,
		maxFileSize: domain.MaxFileSize,
	}
}

// ListTranscripts handles GET /api/transcripts
// Returns every transcript of the caller, newest first, unless page_size is given
func (h *TranscriptHandler) ListTranscripts(c *gin.Context) {
	var req dto.ListTranscriptsRequest
	if err := c.ShouldBindQuery(&req); err != nil || req.PageSize < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := DecodeTranscriptCursor(req.Cursor)
	if err != nil {
		h.logger.Warn("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor"})
		return
	}

	page, err := h.jobs.List(c.Request.Context(), callerID(c), worker.ListOptions{
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list transcripts", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get transcripts"})
		return
	}

	if page.Next != nil {
		c.Header(NextCursorHeader, EncodeTranscriptCursor(page.Next))
	}

	c.JSON(http.StatusOK, dto.NewTranscriptList(page.Items))
}

// CreateTranscript handles POST /api/transcripts
// Stores the upload, creates the job and returns it without waiting for the run
func (h *TranscriptHandler) CreateTranscript(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize+multipartOverhead)

	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	files := form.File["file"]
	switch {
	case len(files) == 0:
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	case len(files) > 1:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only one file allowed"})
		return
	}
	fh := files[0]

	if fh.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
		return
	}

	if !audio.SupportedExtension(fh.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file type"})
		return
	}

	language := domain.DefaultLanguage
	if values := form.Value["language"]; len(values) > 0 && values[0] != "" {
		language = values[0]
	}
	if !domain.ValidLanguage(language) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported language"})
		return
	}

	ctx := c.Request.Context()
	userID := callerID(c)

	f, err := fh.Open()
	if err != nil {
		h.logger.Error("Failed to open upload", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}
	defer f.Close()

	locator, err := h.blobs.Store(ctx, f, fh.Size, fh.Filename)
	if err != nil {
		h.logger.Error("Failed to store upload",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}

	job, err := h.jobs.Submit(ctx, worker.SubmitRequest{
		UserID:   userID,
		Locator:  locator,
		FileName: fh.Filename,
		FileSize: fh.Size,
		Language: language,
	})
	if err != nil {
		h.logger.Error("Failed to submit transcript job",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}

	c.JSON(http.StatusCreated, dto.NewTranscriptDTO(job))
}

// GetTranscript handles GET /api/transcripts/:id
func (h *TranscriptHandler) GetTranscript(c *gin.Context) {
	id := c.Param("id")

	// a malformed id cannot belong to the caller
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transcript not found"})
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), callerID(c), id)
	if err != nil {
		if errors.Is(err, domain.ErrTranscriptNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transcript not found"})
			return
		}
		h.logger.Error("Failed to get transcript", slog.String("id", id), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get transcript"})
		return
	}

	c.JSON(http.StatusOK, dto.NewTranscriptDTO(job))
}

// DeleteTranscript handles DELETE /api/transcripts/:id
func (h *TranscriptHandler) DeleteTranscript(c *gin.Context) {
	id := c.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transcript not found"})
		return
	}

	if err := h.jobs.Delete(c.Request.Context(), callerID(c), id); err != nil {
		if errors.Is(err, domain.ErrTranscriptNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transcript not found"})
			return
		}
		h.logger.Error("Failed to delete transcript", slog.String("id", id), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete transcript"})
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Transcript deleted"})
}
