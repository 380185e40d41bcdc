package journal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultEntryTitle = "Untitled Entry"
	DefaultMoodScore  = 5
	MinMoodScore      = 1
	MaxMoodScore      = 10
)

// JournalEntry is one analyzed journal write-up. Rows are immutable once created.
type JournalEntry struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_journal_entries_user_created,priority:1" json:"user_id"`

	Title   string `gorm:"column:title;not null" json:"title"`
	Content string `gorm:"column:content;type:text;not null" json:"content"`

	MoodScore         int                         `gorm:"column:mood_score;not null" json:"mood_score"`
	Emotions          datatypes.JSONSlice[string] `gorm:"column:emotions" json:"emotions"`
	DetectedSkills    datatypes.JSONSlice[string] `gorm:"column:detected_skills" json:"detected_skills"`
	DetectedInterests datatypes.JSONSlice[string] `gorm:"column:detected_interests" json:"detected_interests"`
	AISummary         string                      `gorm:"column:ai_summary;type:text" json:"ai_summary"`
	AIInsights        string                      `gorm:"column:ai_insights;type:text" json:"ai_insights"`

	CreatedAt time.Time `gorm:"not null;index:idx_journal_entries_user_created,priority:2" json:"created_at"`
}

func (JournalEntry) TableName() string { return "journal_entries" }

func (e *JournalEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// MoodPoint is one sample of the mood trend.
type MoodPoint struct {
	CreatedAt time.Time `json:"created_at"`
	MoodScore int       `json:"mood_score"`
}
