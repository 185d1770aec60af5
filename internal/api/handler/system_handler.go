package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/transcription"
	"github.com/gin-gonic/gin"
)

// SystemHandler serves health and configuration probes
type SystemHandler struct {
	logger      *slog.Logger
	serviceName string
	db          HealthChecker
	providers   ProviderStatusReporter
	blobBackend string
	signingKey  bool
}

// NewSystemHandler creates a new SystemHandler instance
func NewSystemHandler(deps *Dependencies) *SystemHandler {
	h := &SystemHandler{
		logger:      deps.Logger,
		serviceName: deps.ServiceName,
		db:          deps.DB,
		providers:   deps.Providers,
		signingKey:  deps.Auth != nil,
	}
	if deps.Blobs != nil {
		h.blobBackend = deps.Blobs.Backend()
	}
	return h
}

// Health handles GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	if err := h.pingDB(c.Request.Context()); err != nil {
		h.logger.Warn("Health check failed", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": h.serviceName,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.serviceName,
	})
}

// Debug handles GET /api/debug. It only reports whether things are configured.
func (h *SystemHandler) Debug(c *gin.Context) {
	providers := []transcription.ProviderStatus{}
	if h.providers != nil {
		providers = h.providers.Status()
	}

	c.JSON(http.StatusOK, gin.H{
		"signingKey":  h.signingKey,
		"database":    h.pingDB(c.Request.Context()) == nil,
		"blobBackend": h.blobBackend,
		"providers":   providers,
	})
}

func (h *SystemHandler) pingDB(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return h.db.HealthCheck(ctx)
}
