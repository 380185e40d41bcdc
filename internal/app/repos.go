package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/careerpath-backend/internal/data/repos"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
)

type Repos struct {
	JournalEntry     repos.JournalEntryRepo
	CareerPrediction repos.CareerPredictionRepo
	CareerAvoidance  repos.CareerAvoidanceRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		JournalEntry:     repos.NewJournalEntryRepo(db, log),
		CareerPrediction: repos.NewCareerPredictionRepo(db, log),
		CareerAvoidance:  repos.NewCareerAvoidanceRepo(db, log),
	}
}
