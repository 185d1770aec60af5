package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/domain"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/model"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/storage"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/transcription"
	workerdomain "github.com/Myo-Myint-Han/audio-transcript-pro/internal/worker/domain"
	"github.com/Myo-Myint-Han/audio-transcript-pro/shared/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory transcripts table with the same guards as Postgres
type memStore struct {
	mu       sync.Mutex
	rows     map[string]*model.Transcript
	progress map[string][]int
	getErr   error
	failErr  error
}

func newMemStore() *memStore {
	return &memStore{
		rows:     make(map[string]*model.Transcript),
		progress: make(map[string][]int),
	}
}

func (m *memStore) CreateTranscript(_ context.Context, t *model.Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.rows[t.ID] = &cp
	return nil
}

func (m *memStore) GetTranscript(_ context.Context, userID, id string) (*model.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok || t.UserID != userID {
		return nil, domain.ErrTranscriptNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) ListTranscripts(_ context.Context, filter storage.TranscriptFilter) ([]model.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Transcript{}
	for _, t := range m.rows {
		if t.UserID != filter.UserID {
			continue
		}
		if c := filter.Cursor; c != nil {
			if !t.CreatedAt.Before(c.CreatedAt) && !(t.CreatedAt.Equal(c.CreatedAt) && t.ID < c.ID) {
				continue
			}
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.PageSize > 0 && len(out) > filter.PageSize+1 {
		out = out[:filter.PageSize+1]
	}
	return out, nil
}

func (m *memStore) DeleteTranscript(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok || t.UserID != userID {
		return domain.ErrTranscriptNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memStore) GetTranscriptByID(_ context.Context, id string) (*model.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	t, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrTranscriptNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) processing(id string) (*model.Transcript, bool) {
	t, ok := m.rows[id]
	if !ok || t.Status != domain.StatusProcessing {
		return nil, false
	}
	return t, true
}

func (m *memStore) UpdateProgress(_ context.Context, id string, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.processing(id); ok && progress >= t.Progress {
		t.Progress = progress
		m.progress[id] = append(m.progress[id], progress)
	}
	return nil
}

func (m *memStore) CompleteTranscript(_ context.Context, id, text string, durationSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.processing(id); ok {
		t.Status = domain.StatusCompleted
		t.Progress = domain.ProgressDone
		t.Transcript.String, t.Transcript.Valid = text, true
		t.Duration.Int64, t.Duration.Valid = int64(durationSeconds), true
	}
	return nil
}

func (m *memStore) FailTranscript(_ context.Context, id, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	if t, ok := m.processing(id); ok {
		t.Status = domain.StatusFailed
		t.Progress = domain.ProgressQueued
		t.Transcript.String, t.Transcript.Valid = message, true
	}
	return nil
}

func (m *memStore) row(id string) model.Transcript {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rows[id]
}

type fakeTranscriber struct {
	result transcription.Result
	err    error
	// block, when set, makes Transcribe wait for ctx
	block   bool
	started chan struct{}
	gotCtx  error
	gotReq  transcription.Audio
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, a transcription.Audio) (transcription.Result, error) {
	f.gotReq = a
	if f.block {
		close(f.started)
		<-ctx.Done()
		f.gotCtx = ctx.Err()
		return transcription.Result{}, ctx.Err()
	}
	return f.result, f.err
}

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, jobID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, jobID)
	return d.err
}

func newTestOrchestrator(store *memStore, tr Transcriber, d Dispatcher, cancelOnDelete bool) *Orchestrator {
	return NewOrchestrator(Options{
		Transcripts:    store,
		Progress:       store,
		Transcriber:    tr,
		Dispatcher:     d,
		Logger:         logger.NewDiscard(),
		CancelOnDelete: cancelOnDelete,
	})
}

func submit(t *testing.T, o *Orchestrator, userID string) *model.Transcript {
	t.Helper()
	job, err := o.Submit(context.Background(), SubmitRequest{
		UserID:   userID,
		Locator:  "/uploads/1-voice.mp3",
		FileName: "voice.mp3",
		FileSize: 10,
		Language: domain.LanguageEnglish,
	})
	require.NoError(t, err)
	return job
}

func TestOrchestrator_Submit(t *testing.T) {
	store := newMemStore()
	d := &recordingDispatcher{}
	o := newTestOrchestrator(store, &fakeTranscriber{}, d, false)

	job := submit(t, o, "user-1")

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, domain.StatusProcessing, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.False(t, job.Transcript.Valid)
	assert.Equal(t, []string{job.ID}, d.ids)

	stored := store.row(job.ID)
	assert.Equal(t, "/uploads/1-voice.mp3", stored.FilePath)
	assert.Equal(t, "user-1", stored.UserID)
}

func TestOrchestrator_SubmitDispatchFailure(t *testing.T) {
	store := newMemStore()
	d := &recordingDispatcher{err: errors.New("broker down")}
	o := newTestOrchestrator(store, &fakeTranscriber{}, d, false)

	_, err := o.Submit(context.Background(), SubmitRequest{UserID: "user-1", Language: "en"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to dispatch transcript job")

	require.Len(t, d.ids, 1)
	row := store.row(d.ids[0])
	assert.Equal(t, domain.StatusFailed, row.Status)
	assert.Equal(t, "Error: broker down", row.Transcript.String)
}

func TestOrchestrator_SubmitWithoutDispatcher(t *testing.T) {
	o := newTestOrchestrator(newMemStore(), &fakeTranscriber{}, nil, false)

	_, err := o.Submit(context.Background(), SubmitRequest{UserID: "user-1"})
	assert.ErrorIs(t, err, workerdomain.ErrNoDispatcher)
}

func TestOrchestrator_Run(t *testing.T) {
	tests := []struct {
		name           string
		transcriber    *fakeTranscriber
		wantStatus     string
		wantProgress   int
		wantCheckpoint []int
		wantTranscript string
		wantDuration   bool
	}{
		{
			name: "completed",
			transcriber: &fakeTranscriber{result: transcription.Result{
				Text: "hello world", Provider: "groq", Duration: 7,
			}},
			wantStatus:     domain.StatusCompleted,
			wantProgress:   100,
			wantCheckpoint: []int{10, 30, 90},
			wantTranscript: "hello world",
			wantDuration:   true,
		},
		{
			name: "placeholder still completes",
			transcriber: &fakeTranscriber{result: transcription.Result{
				Text: "[DEMO MODE - API Key Required]", Provider: transcription.ProviderPlaceholder,
			}},
			wantStatus:     domain.StatusCompleted,
			wantProgress:   100,
			wantCheckpoint: []int{10, 30, 90},
			wantTranscript: "[DEMO MODE - API Key Required]",
			wantDuration:   true,
		},
		{
			name:           "transcriber error fails the job",
			transcriber:    &fakeTranscriber{err: errors.New("audio file not found")},
			wantStatus:     domain.StatusFailed,
			wantProgress:   0,
			wantCheckpoint: []int{10, 30},
			wantTranscript: "Error: audio file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			o := newTestOrchestrator(store, tt.transcriber, &recordingDispatcher{}, false)
			job := submit(t, o, "user-1")

			require.NoError(t, o.Run(context.Background(), job.ID))

			row := store.row(job.ID)
			assert.Equal(t, tt.wantStatus, row.Status)
			assert.Equal(t, tt.wantProgress, row.Progress)
			assert.Equal(t, tt.wantCheckpoint, store.progress[job.ID])
			assert.Equal(t, tt.wantTranscript, row.Transcript.String)
			assert.Equal(t, tt.wantDuration, row.Duration.Valid)
			assert.Equal(t, "voice.mp3", tt.transcriber.gotReq.FileName)
			assert.Empty(t, o.Registry().Running())
		})
	}
}

func TestOrchestrator_RunSkipsMissingAndFinishedJobs(t *testing.T) {
	store := newMemStore()
	tr := &fakeTranscriber{result: transcription.Result{Text: "x"}}
	o := newTestOrchestrator(store, tr, &recordingDispatcher{}, false)

	require.NoError(t, o.Run(context.Background(), "00000000-0000-0000-0000-000000000000"))

	job := submit(t, o, "user-1")
	require.NoError(t, o.Run(context.Background(), job.ID))
	require.NoError(t, o.Run(context.Background(), job.ID))

	assert.Equal(t, []int{10, 30, 90}, store.progress[job.ID])
}

func TestOrchestrator_RunLoadErrorIsRetryable(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("connection refused")
	o := newTestOrchestrator(store, &fakeTranscriber{}, &recordingDispatcher{}, false)

	err := o.Run(context.Background(), "job-1")

	var retryable *workerdomain.RetryableError
	assert.ErrorAs(t, err, &retryable)
}

func TestOrchestrator_RunFailWriteErrorIsRetryable(t *testing.T) {
	store := newMemStore()
	o := newTestOrchestrator(store, &fakeTranscriber{err: errors.New("boom")}, &recordingDispatcher{}, false)
	job := submit(t, o, "user-1")
	store.failErr = errors.New("connection reset")

	err := o.Run(context.Background(), job.ID)

	var retryable *workerdomain.RetryableError
	assert.ErrorAs(t, err, &retryable)
}

func TestOrchestrator_GetIsOwnershipChecked(t *testing.T) {
	store := newMemStore()
	o := newTestOrchestrator(store, &fakeTranscriber{}, &recordingDispatcher{}, false)
	job := submit(t, o, "owner")

	got, err := o.Get(context.Background(), "owner", job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = o.Get(context.Background(), "intruder", job.ID)
	assert.ErrorIs(t, err, domain.ErrTranscriptNotFound)

	err = o.Delete(context.Background(), "intruder", job.ID)
	assert.ErrorIs(t, err, domain.ErrTranscriptNotFound)
}

func TestOrchestrator_ListPages(t *testing.T) {
	store := newMemStore()
	o := newTestOrchestrator(store, &fakeTranscriber{}, &recordingDispatcher{}, false)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		o.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		ids = append(ids, submit(t, o, "user-1").ID)
	}
	submit(t, o, "someone-else")

	all, err := o.List(context.Background(), "user-1", ListOptions{})
	require.NoError(t, err)
	require.Len(t, all.Items, 3)
	assert.Nil(t, all.Next)
	assert.Equal(t, ids[2], all.Items[0].ID)

	first, err := o.List(context.Background(), "user-1", ListOptions{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotNil(t, first.Next)
	assert.Equal(t, ids[1], first.Next.ID)

	second, err := o.List(context.Background(), "user-1", ListOptions{PageSize: 2, Cursor: first.Next})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, ids[0], second.Items[0].ID)
	assert.Nil(t, second.Next)
}

func TestOrchestrator_DeleteDuringRun(t *testing.T) {
	tests := []struct {
		name           string
		cancelOnDelete bool
	}{
		{name: "run continues after delete", cancelOnDelete: false},
		{name: "run canceled on delete", cancelOnDelete: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			tr := &fakeTranscriber{block: true, started: make(chan struct{})}
			o := newTestOrchestrator(store, tr, &recordingDispatcher{}, tt.cancelOnDelete)
			job := submit(t, o, "user-1")

			runCtx, stopRun := context.WithCancel(context.Background())
			defer stopRun()

			done := make(chan error, 1)
			go func() { done <- o.Run(runCtx, job.ID) }()
			<-tr.started

			task, ok := o.Registry().Get(job.ID)
			require.True(t, ok)

			require.NoError(t, o.Delete(context.Background(), "user-1", job.ID))

			if !tt.cancelOnDelete {
				select {
				case <-task.Done():
					t.Fatal("run stopped although cancel-on-delete is off")
				case <-time.After(50 * time.Millisecond):
				}
				stopRun()
			}

			select {
			case err := <-done:
				if tt.cancelOnDelete {
					// writes against the deleted row are no-ops
					assert.NoError(t, err)
				} else {
					// stopRun cancels the caller's context: the run is abandoned
					var retryable *workerdomain.RetryableError
					assert.ErrorAs(t, err, &retryable)
				}
			case <-time.After(time.Second):
				t.Fatal("run did not finish")
			}

			assert.ErrorIs(t, tr.gotCtx, context.Canceled)
			_, err := o.Get(context.Background(), "user-1", job.ID)
			assert.ErrorIs(t, err, domain.ErrTranscriptNotFound)
		})
	}
}
