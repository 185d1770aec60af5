package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/domain"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/model"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/auth"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/worker"
	"github.com/Myo-Myint-Han/audio-transcript-pro/shared/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	mu        sync.Mutex
	byEmail   map[string]*model.User
	lookupErr error
	createErr error
}

func newFakeUsers(users ...*model.User) *fakeUsers {
	f := &fakeUsers{byEmail: make(map[string]*model.User)}
	for _, u := range users {
		f.byEmail[u.Email] = u
	}
	return f
}

func (f *fakeUsers) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.byEmail[user.Email] = user
	return nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

type fakeJobs struct {
	submitted []worker.SubmitRequest
	listOpts  worker.ListOptions
	listUser  string
	page      worker.Page
	job       *model.Transcript
	deleted   []string
	err       error
}

func (f *fakeJobs) Submit(_ context.Context, req worker.SubmitRequest) (*model.Transcript, error) {
	f.submitted = append(f.submitted, req)
	if f.err != nil {
		return nil, f.err
	}
	return &model.Transcript{
		ID:       "2b0e3c5a-1d4f-4e6a-9b7c-8d9e0f1a2b3c",
		UserID:   req.UserID,
		FileName: req.FileName,
		FileSize: req.FileSize,
		FilePath: req.Locator,
		Language: req.Language,
		Status:   domain.StatusProcessing,
	}, nil
}

func (f *fakeJobs) List(_ context.Context, userID string, opts worker.ListOptions) (worker.Page, error) {
	f.listUser = userID
	f.listOpts = opts
	return f.page, f.err
}

func (f *fakeJobs) Get(_ context.Context, userID, jobID string) (*model.Transcript, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.job == nil || f.job.ID != jobID || f.job.UserID != userID {
		return nil, domain.ErrTranscriptNotFound
	}
	return f.job, nil
}

func (f *fakeJobs) Delete(_ context.Context, userID, jobID string) error {
	if f.err != nil {
		return f.err
	}
	if f.job == nil || f.job.ID != jobID || f.job.UserID != userID {
		return domain.ErrTranscriptNotFound
	}
	f.deleted = append(f.deleted, jobID)
	return nil
}

type fakeBlobs struct {
	name string
	data []byte
	err  error
}

func (f *fakeBlobs) Backend() string { return "local" }

func (f *fakeBlobs) Store(_ context.Context, r io.Reader, _ int64, originalName string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.name = originalName
	f.data = data
	return "/srv/uploads/1-" + originalName, nil
}

var testCaller = &model.User{
	ID:    "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d",
	Name:  "A",
	Email: "a@x.com",
}

func newGateway(t *testing.T) *auth.Gateway {
	t.Helper()
	g, err := auth.NewGateway("test-secret")
	require.NoError(t, err)
	return g
}

// newTestEngine mounts the handlers the way the router does, with the caller
// injected instead of resolved from a token
func newTestEngine(deps *Dependencies, user *model.User, opts ...func(*TranscriptHandler)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if deps.Logger == nil {
		deps.Logger = logger.NewDiscard()
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if user != nil {
			c.Set(CallerIDKey, user.ID)
			c.Set(CallerKey, user)
		}
		c.Next()
	})

	authHandler := NewAuthHandler(deps)
	transcriptHandler := NewTranscriptHandler(deps)
	for _, opt := range opts {
		opt(transcriptHandler)
	}
	systemHandler := NewSystemHandler(deps)

	r.GET("/health", systemHandler.Health)
	r.GET("/api/debug", systemHandler.Debug)
	r.POST("/api/auth/register", authHandler.Register)
	r.POST("/api/auth/login", authHandler.Login)
	r.GET("/api/auth/me", authHandler.Me)
	r.GET("/api/transcripts", transcriptHandler.ListTranscripts)
	r.POST("/api/transcripts", transcriptHandler.CreateTranscript)
	r.GET("/api/transcripts/:id", transcriptHandler.GetTranscript)
	r.DELETE("/api/transcripts/:id", transcriptHandler.DeleteTranscript)

	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

type uploadFile struct {
	name string
	data []byte
}

func uploadRequest(t *testing.T, files []uploadFile, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile("file", f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/transcripts", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorBody(msg string) string {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return strings.TrimSpace(string(b))
}
