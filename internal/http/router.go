package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/careerpath-backend/internal/http/handlers"
	httpMW "github.com/yungbote/careerpath-backend/internal/http/middleware"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins string

	AuthMiddleware *httpMW.AuthMiddleware
	JournalHandler *httpH.JournalHandler
	CareerHandler  *httpH.CareerHandler
	MentorHandler  *httpH.MentorHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	protected := r.Group("/api")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Journal
		if cfg.JournalHandler != nil {
			protected.POST("/journal/entries", cfg.JournalHandler.CreateEntry)
			protected.GET("/journal/entries", cfg.JournalHandler.ListEntries)
			protected.GET("/journal/mood", cfg.JournalHandler.MoodTrend)
		}

		// Careers
		if cfg.CareerHandler != nil {
			protected.POST("/careers/predictions", cfg.CareerHandler.Analyze)
			protected.GET("/careers/predictions", cfg.CareerHandler.GetPredictions)
		}

		// Mentor (SSE replies)
		if cfg.MentorHandler != nil {
			protected.POST("/mentor/sessions", cfg.MentorHandler.CreateSession)
			protected.GET("/mentor/sessions/:id", cfg.MentorHandler.GetSession)
			protected.DELETE("/mentor/sessions/:id", cfg.MentorHandler.DeleteSession)
			protected.POST("/mentor/sessions/:id/messages", cfg.MentorHandler.SendMessage)
		}
	}

	return r
}
