package app

import (
	"time"

	"github.com/yungbote/careerpath-backend/internal/data/cache"
	"github.com/yungbote/careerpath-backend/internal/data/db"
	"github.com/yungbote/careerpath-backend/internal/observability"
	"github.com/yungbote/careerpath-backend/internal/pkg/envutil"
	"github.com/yungbote/careerpath-backend/internal/platform/openai"
	"github.com/yungbote/careerpath-backend/internal/services"
)

type Config struct {
	LogMode string
	Addr    string

	AllowedOrigins  string
	ShutdownTimeout time.Duration

	// MentorIdleTTL drops mentor sessions with no turn for this long.
	MentorIdleTTL       time.Duration
	MentorSweepInterval time.Duration

	Auth       services.AuthConfig
	DB         db.Config
	Redis      cache.RedisConfig
	Completion openai.Config
	Tracing    observability.TracingConfig
}

func LoadConfig() Config {
	return Config{
		LogMode:             envutil.String("development", "LOG_MODE"),
		Addr:                ":" + envutil.String("8080", "PORT"),
		AllowedOrigins:      envutil.String("", "CORS_ALLOWED_ORIGINS"),
		ShutdownTimeout:     envutil.Seconds("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		MentorIdleTTL:       envutil.Seconds("MENTOR_SESSION_IDLE_SECONDS", 2*time.Hour),
		MentorSweepInterval: envutil.Seconds("MENTOR_SWEEP_INTERVAL_SECONDS", 5*time.Minute),
		Auth: services.AuthConfig{
			SecretKey: envutil.String("", "JWT_SECRET_KEY", "SUPABASE_JWT_SECRET"),
			Issuer:    envutil.String("", "JWT_ISSUER"),
			Audience:  envutil.String("", "JWT_AUDIENCE"),
		},
		DB:         db.ConfigFromEnv(),
		Redis:      cache.RedisConfigFromEnv(),
		Completion: openai.ConfigFromEnv(),
		Tracing:    observability.TracingConfigFromEnv(),
	}
}
