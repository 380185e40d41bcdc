package journal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LearningResource struct {
	Title string `json:"title"`
	Type  string `json:"type"`
	URL   string `json:"url"`
}

// CareerPrediction is one row of a user's active prediction set. A new
// generation replaces the whole set.
type CareerPrediction struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	CareerPath        string                                `gorm:"column:career_path;not null" json:"career_path"`
	ConfidenceScore   int                                   `gorm:"column:confidence_score;not null" json:"confidence_score"`
	Reasoning         string                                `gorm:"column:reasoning;type:text" json:"reasoning"`
	RecommendedSkills datatypes.JSONSlice[string]           `gorm:"column:recommended_skills" json:"recommended_skills"`
	LearningResources datatypes.JSONSlice[LearningResource] `gorm:"column:learning_resources" json:"learning_resources"`
	IsActive          bool                                  `gorm:"column:is_active;not null;index" json:"is_active"`
	Rank              int                                   `gorm:"column:rank;not null" json:"rank"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CareerPrediction) TableName() string { return "career_predictions" }

func (p *CareerPrediction) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// CareerAvoidance is a career path the user is advised against. Position
// preserves generation order.
type CareerAvoidance struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	CareerPath string `gorm:"column:career_path;not null" json:"career_path"`
	Reason     string `gorm:"column:reason;type:text" json:"reason"`
	Position   int    `gorm:"column:position;not null" json:"position"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (CareerAvoidance) TableName() string { return "career_avoidances" }

func (a *CareerAvoidance) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
