package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/careerpath-backend/internal/data/cache"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
	"github.com/yungbote/careerpath-backend/internal/platform/openai"
)

type Clients struct {
	Cache      cache.Store
	Completion openai.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Cache: redis when configured, process memory otherwise
	var store cache.Store
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		s, err := cache.NewRedisStore(log, cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis cache: %w", err)
		}
		store = s
	} else {
		log.Warn("REDIS_ADDR not set; using in-memory cache")
		store = cache.NewMemoryStore()
	}

	// Completion service
	completion, err := openai.NewClient(log, cfg.Completion)
	if err != nil {
		_ = store.Close()
		return Clients{}, fmt.Errorf("init completion client: %w", err)
	}

	return Clients{Cache: store, Completion: completion}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
}
