package router

import (
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	systemHandler := handler.NewSystemHandler(deps)
	authHandler := handler.NewAuthHandler(deps)
	transcriptHandler := handler.NewTranscriptHandler(deps)

	r.GET("/health", systemHandler.Health)

	requireAuth := AuthMiddleware(deps.Auth, deps.Users, deps.Logger)

	api := r.Group("/api")
	{
		api.GET("/debug", systemHandler.Debug)

		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", requireAuth, authHandler.Me)
		}

		transcripts := api.Group("/transcripts", requireAuth)
		{
			// GET /api/transcripts - caller's jobs, newest first
			transcripts.GET("", transcriptHandler.ListTranscripts)

			// POST /api/transcripts - multipart upload, starts a job
			transcripts.POST("", transcriptHandler.CreateTranscript)

			// GET /api/transcripts/:id - poll one job
			transcripts.GET("/:id", transcriptHandler.GetTranscript)

			// DELETE /api/transcripts/:id
			transcripts.DELETE("/:id", transcriptHandler.DeleteTranscript)
		}
	}

	return r
}
