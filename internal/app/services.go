package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/careerpath-backend/internal/data/cache"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
	"github.com/yungbote/careerpath-backend/internal/prompts"
	"github.com/yungbote/careerpath-backend/internal/services"
)

type Services struct {
	Auth     services.AuthService
	Analyzer services.EntryAnalyzer
	Journal  services.JournalService
	Career   services.CareerService
	Mentor   *services.MentorSessionManager
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	auth, err := services.NewAuthService(log, cfg.Auth)
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}
	catalog := prompts.Default(log)

	analyzer := services.NewEntryAnalyzer(log, clients.Completion, catalog)
	journal := services.NewJournalService(db, log, reposet.JournalEntry, analyzer)
	career := services.NewCareerService(
		db,
		log,
		reposet.JournalEntry,
		reposet.CareerPrediction,
		reposet.CareerAvoidance,
		cache.NewAvoidanceCache(clients.Cache),
		clients.Completion,
		catalog,
	)
	mentor := services.NewMentorSessionManager(
		log,
		clients.Completion,
		services.NewMentorContextBuilder(log, reposet.JournalEntry, reposet.CareerPrediction),
		catalog,
		cfg.MentorIdleTTL,
	)

	return Services{
		Auth:     auth,
		Analyzer: analyzer,
		Journal:  journal,
		Career:   career,
		Mentor:   mentor,
	}, nil
}
