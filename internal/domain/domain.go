package domain

import (
	"github.com/yungbote/careerpath-backend/internal/domain/journal"
)

const (
	DefaultEntryTitle = journal.DefaultEntryTitle
	DefaultMoodScore  = journal.DefaultMoodScore
	MinMoodScore      = journal.MinMoodScore
	MaxMoodScore      = journal.MaxMoodScore
)

type JournalEntry = journal.JournalEntry
type MoodPoint = journal.MoodPoint
type CareerPrediction = journal.CareerPrediction
type CareerAvoidance = journal.CareerAvoidance
type LearningResource = journal.LearningResource

// Models lists every persisted type, in migration order.
func Models() []any {
	return []any{
		&JournalEntry{},
		&CareerPrediction{},
		&CareerAvoidance{},
	}
}
