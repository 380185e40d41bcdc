package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/careerpath-backend/internal/domain"
)

func SeedEntry(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, content string, mood int, at time.Time) *types.JournalEntry {
	tb.Helper()
	e := &types.JournalEntry{
		ID:                uuid.New(),
		UserID:            userID,
		Title:             types.DefaultEntryTitle,
		Content:           content,
		MoodScore:         mood,
		Emotions:          datatypes.NewJSONSlice([]string{"curious"}),
		DetectedSkills:    datatypes.NewJSONSlice([]string{"writing"}),
		DetectedInterests: datatypes.NewJSONSlice([]string{"design"}),
		AISummary:         "summary",
		AIInsights:        "insight",
		CreatedAt:         at.UTC(),
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed entry: %v", err)
	}
	return e
}

func SeedPrediction(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, path string, confidence int) *types.CareerPrediction {
	tb.Helper()
	p := &types.CareerPrediction{
		ID:                uuid.New(),
		UserID:            userID,
		CareerPath:        path,
		ConfidenceScore:   confidence,
		Reasoning:         "because",
		RecommendedSkills: datatypes.NewJSONSlice([]string{"skill"}),
		LearningResources: datatypes.NewJSONSlice([]types.LearningResource{}),
		IsActive:          true,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed prediction: %v", err)
	}
	return p
}

func SeedAvoidance(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, path string, position int) *types.CareerAvoidance {
	tb.Helper()
	a := &types.CareerAvoidance{
		ID:         uuid.New(),
		UserID:     userID,
		CareerPath: path,
		Reason:     "reason",
		Position:   position,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed avoidance: %v", err)
	}
	return a
}
