package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/careerpath-backend/internal/data/db"
	"github.com/yungbote/careerpath-backend/internal/http"
	httpH "github.com/yungbote/careerpath-backend/internal/http/handlers"
	httpMW "github.com/yungbote/careerpath-backend/internal/http/middleware"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health  *httpH.HealthHandler
	Journal *httpH.JournalHandler
	Career  *httpH.CareerHandler
	Mentor  *httpH.MentorHandler
}

func wireHandlers(log *logger.Logger, theDB *gorm.DB, services Services, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(map[string]httpH.Pinger{
			"database": db.Pinger(theDB),
			"cache":    clients.Cache,
		}),
		Journal: httpH.NewJournalHandler(services.Journal),
		Career:  httpH.NewCareerHandler(services.Career),
		Mentor:  httpH.NewMentorHandler(log, services.Mentor),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware) *http.Server {
	serviceName := ""
	if cfg.Tracing.Enabled {
		serviceName = cfg.Tracing.ServiceName
	}
	return http.NewServer(http.RouterConfig{
		Log:            log,
		ServiceName:    serviceName,
		AllowedOrigins: cfg.AllowedOrigins,
		AuthMiddleware: middleware.Auth,
		JournalHandler: handlers.Journal,
		CareerHandler:  handlers.Career,
		MentorHandler:  handlers.Mentor,
		HealthHandler:  handlers.Health,
	})
}
