// Package worker owns transcript jobs: it creates them, advances them through
// their progress checkpoints in the background and serves ownership-checked
// reads and deletes.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/domain"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/model"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/storage"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/transcription"
	workerdomain "github.com/Myo-Myint-Han/audio-transcript-pro/internal/worker/domain"
	"github.com/google/uuid"
)

// TranscriptStore is the ownership-checked CRUD side of the transcripts table
type TranscriptStore interface {
	CreateTranscript(ctx context.Context, t *model.Transcript) error
	GetTranscript(ctx context.Context, userID, id string) (*model.Transcript, error)
	ListTranscripts(ctx context.Context, filter storage.TranscriptFilter) ([]model.Transcript, error)
	DeleteTranscript(ctx context.Context, userID, id string) error
}

// ProgressStore holds the checkpoint writes made during a run
type ProgressStore interface {
	GetTranscriptByID(ctx context.Context, id string) (*model.Transcript, error)
	UpdateProgress(ctx context.Context, id string, progress int) error
	CompleteTranscript(ctx context.Context, id, text string, durationSeconds int) error
	FailTranscript(ctx context.Context, id, message string) error
}

// Transcriber turns stored audio into text
type Transcriber interface {
	Transcribe(ctx context.Context, a transcription.Audio) (transcription.Result, error)
}

// SubmitRequest describes an upload that has already been stored
type SubmitRequest struct {
	UserID   string
	Locator  string
	FileName string
	FileSize int64
	Language string
}

// ListOptions pages a user's transcripts; PageSize 0 returns all of them
type ListOptions struct {
	PageSize int
	Cursor   *storage.TranscriptCursor
}

// Page is one slice of a listing; Next is nil on the last page
type Page struct {
	Items []model.Transcript
	Next  *storage.TranscriptCursor
}

// Options configures an Orchestrator
type Options struct {
	Transcripts    TranscriptStore
	Progress       ProgressStore
	Transcriber    Transcriber
	Dispatcher     Dispatcher
	Registry       *Registry
	Logger         *slog.Logger
	CancelOnDelete bool
}

type Orchestrator struct {
	transcripts    TranscriptStore
	progress       ProgressStore
	transcriber    Transcriber
	dispatcher     Dispatcher
	registry       *Registry
	logger         *slog.Logger
	cancelOnDelete bool
	now            func() time.Time
}

func NewOrchestrator(opts Options) *Orchestrator {
	registry := opts.Registry
	if registry == nil {
		registry = NewRegistry()
	}

	return &Orchestrator{
		transcripts:    opts.Transcripts,
		progress:       opts.Progress,
		transcriber:    opts.Transcriber,
		dispatcher:     opts.Dispatcher,
		registry:       registry,
		logger:         opts.Logger,
		cancelOnDelete: opts.CancelOnDelete,
		now:            time.Now,
	}
}

// Registry exposes the running-task registry
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Submit creates the job row and dispatches it. It never waits for the run.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*model.Transcript, error) {
	if o.dispatcher == nil {
		return nil, workerdomain.ErrNoDispatcher
	}

	now := o.now().UTC()
	t := &model.Transcript{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		FileName:  req.FileName,
		FileSize:  req.FileSize,
		FilePath:  req.Locator,
		Language:  req.Language,
		Status:    domain.StatusProcessing,
		Progress:  domain.ProgressQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := o.transcripts.CreateTranscript(ctx, t); err != nil {
		return nil, err
	}

	// the run outlives the request
	bg := context.WithoutCancel(ctx)
	if err := o.dispatcher.Dispatch(bg, t.ID); err != nil {
		o.fail(bg, t.ID, err)
		return nil, fmt.Errorf("failed to dispatch transcript job: %w", err)
	}

	o.logger.Info("Transcript job submitted",
		slog.String("job_id", t.ID),
		slog.String("user_id", t.UserID),
		slog.String("language", t.Language),
		slog.Int64("file_size", t.FileSize),
	)

	return t, nil
}

// Handle adapts Run to the pool
func (o *Orchestrator) Handle(ctx context.Context, msg *workerdomain.JobMessage) error {
	return o.Run(ctx, msg.JobID)
}

// Run advances one job to a terminal state. A job that no longer exists or is
// no longer processing is skipped. The returned error is only set when the job
// could not be loaded, its failure could not be recorded, or ctx was canceled
// mid-run; an abandoned job stays processing so it can be picked up again.
func (o *Orchestrator) Run(parent context.Context, jobID string) error {
	ctx, task := o.registry.Start(parent, jobID)
	defer o.registry.Finish(task)

	t, err := o.progress.GetTranscriptByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrTranscriptNotFound) {
			o.logger.Info("Transcript job skipped - row deleted",
				slog.String("job_id", jobID),
			)
			return nil
		}
		return workerdomain.NewRetryableError(err)
	}

	if t.Status != domain.StatusProcessing {
		o.logger.Info("Transcript job skipped - already finished",
			slog.String("job_id", jobID),
			slog.String("status", t.Status),
		)
		return nil
	}

	if err := o.advance(ctx, t); err != nil {
		if parent.Err() != nil {
			o.logger.Warn("Transcript job abandoned",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
			return workerdomain.NewRetryableError(fmt.Errorf("run of %s abandoned: %w", jobID, parent.Err()))
		}

		o.logger.Error("Transcript job failed",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		if failErr := o.fail(context.WithoutCancel(ctx), jobID, err); failErr != nil {
			return workerdomain.NewRetryableError(failErr)
		}
	}

	return nil
}

func (o *Orchestrator) advance(ctx context.Context, t *model.Transcript) error {
	if err := o.checkpoint(ctx, t.ID, domain.ProgressStarted); err != nil {
		return err
	}
	if err := o.checkpoint(ctx, t.ID, domain.ProgressTranscribing); err != nil {
		return err
	}

	res, err := o.transcriber.Transcribe(ctx, transcription.Audio{
		Locator:  t.FilePath,
		FileName: t.FileName,
		FileSize: t.FileSize,
		Language: t.Language,
	})
	if err != nil {
		return err
	}

	if err := o.checkpoint(ctx, t.ID, domain.ProgressTranscribed); err != nil {
		return err
	}

	if err := o.progress.CompleteTranscript(ctx, t.ID, res.Text, res.Duration); err != nil {
		return err
	}

	o.logger.Info("Transcript job completed",
		slog.String("job_id", t.ID),
		slog.String("provider", res.Provider),
		slog.Int("duration", res.Duration),
	)

	return nil
}

func (o *Orchestrator) checkpoint(ctx context.Context, jobID string, progress int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := o.progress.UpdateProgress(ctx, jobID, progress); err != nil {
		return err
	}

	o.logger.Debug("Transcript job checkpoint",
		slog.String("job_id", jobID),
		slog.Int("progress", progress),
	)
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, jobID string, cause error) error {
	if err := o.progress.FailTranscript(ctx, jobID, "Error: "+cause.Error()); err != nil {
		o.logger.Error("Failed to record transcript failure",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

// List returns the user's transcripts newest first
func (o *Orchestrator) List(ctx context.Context, userID string, opts ListOptions) (Page, error) {
	items, err := o.transcripts.ListTranscripts(ctx, storage.TranscriptFilter{
		UserID:   userID,
		PageSize: opts.PageSize,
		Cursor:   opts.Cursor,
	})
	if err != nil {
		return Page{}, err
	}

	page := Page{Items: items}
	if opts.PageSize > 0 && len(items) > opts.PageSize {
		page.Items = items[:opts.PageSize]
		last := page.Items[len(page.Items)-1]
		page.Next = &storage.TranscriptCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	return page, nil
}

// Get returns the job when userID owns it
func (o *Orchestrator) Get(ctx context.Context, userID, jobID string) (*model.Transcript, error) {
	return o.transcripts.GetTranscript(ctx, userID, jobID)
}

// Delete removes the job when userID owns it. A running job keeps going and
// its remaining writes become no-ops, unless cancel-on-delete is enabled.
func (o *Orchestrator) Delete(ctx context.Context, userID, jobID string) error {
	if err := o.transcripts.DeleteTranscript(ctx, userID, jobID); err != nil {
		return err
	}

	canceled := false
	if o.cancelOnDelete {
		canceled = o.registry.Cancel(jobID)
	}

	o.logger.Info("Transcript deleted",
		slog.String("job_id", jobID),
		slog.String("user_id", userID),
		slog.Bool("run_canceled", canceled),
	)

	return nil
}
