package handler

import (
	"context"
	"log/slog"

	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/model"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/blob"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/transcription"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/worker"
	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware
const (
	CallerIDKey = "caller_id"
	CallerKey   = "caller"
)

// UserStore is the credential store
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Authenticator issues tokens and checks passwords
type Authenticator interface {
	IssueToken(userID string) (string, error)
	ResolveCaller(token string) (string, bool)
	HashSecret(plaintext string) (string, error)
	VerifySecret(plaintext, hash string) bool
	BurnVerify(plaintext string)
}

// JobService is the transcript job orchestrator
type JobService interface {
	Submit(ctx context.Context, req worker.SubmitRequest) (*model.Transcript, error)
	List(ctx context.Context, userID string, opts worker.ListOptions) (worker.Page, error)
	Get(ctx context.Context, userID, jobID string) (*model.Transcript, error)
	Delete(ctx context.Context, userID, jobID string) error
}

// ProviderStatusReporter lists transcription providers for /api/debug
type ProviderStatusReporter interface {
	Status() []transcription.ProviderStatus
}

// HealthChecker pings the database
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	ServiceName string
	Users       UserStore
	Auth        Authenticator
	Blobs       blob.Store
	Jobs        JobService
	Providers   ProviderStatusReporter
	DB          HealthChecker
}

func callerID(c *gin.Context) string {
	return c.GetString(CallerIDKey)
}

func caller(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(CallerKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}
