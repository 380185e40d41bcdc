package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/careerpath-backend/internal/data/repos/journal"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
)

type JournalEntryRepo = journal.JournalEntryRepo
type CareerPredictionRepo = journal.CareerPredictionRepo
type CareerAvoidanceRepo = journal.CareerAvoidanceRepo

func NewJournalEntryRepo(db *gorm.DB, baseLog *logger.Logger) JournalEntryRepo {
	return journal.NewJournalEntryRepo(db, baseLog)
}

func NewCareerPredictionRepo(db *gorm.DB, baseLog *logger.Logger) CareerPredictionRepo {
	return journal.NewCareerPredictionRepo(db, baseLog)
}

func NewCareerAvoidanceRepo(db *gorm.DB, baseLog *logger.Logger) CareerAvoidanceRepo {
	return journal.NewCareerAvoidanceRepo(db, baseLog)
}
