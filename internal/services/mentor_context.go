package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/careerpath-backend/internal/data/repos"
	types "github.com/yungbote/careerpath-backend/internal/domain"
	"github.com/yungbote/careerpath-backend/internal/pkg/dbctx"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
)

const NoJournalContext = "User has not journaled yet."

// MentorContextBuilder renders a user's stored history into the text block
// embedded in the mentor system prompt. It is rebuilt for every turn.
type MentorContextBuilder interface {
	BuildContext(ctx context.Context, userID uuid.UUID) (string, error)
}

type mentorContextBuilder struct {
	log            *logger.Logger
	entryRepo      repos.JournalEntryRepo
	predictionRepo repos.CareerPredictionRepo
}

func NewMentorContextBuilder(log *logger.Logger, entryRepo repos.JournalEntryRepo, predictionRepo repos.CareerPredictionRepo) MentorContextBuilder {
	return &mentorContextBuilder{
		log:            log.With("service", "MentorContextBuilder"),
		entryRepo:      entryRepo,
		predictionRepo: predictionRepo,
	}
}

func (b *mentorContextBuilder) BuildContext(ctx context.Context, userID uuid.UUID) (string, error) {
	dbc := dbctx.Context{Ctx: ctx}
	entries, err := b.entryRepo.ListRecent(dbc, userID, historyWindow)
	if err != nil {
		return "", fmt.Errorf("load journal history: %w", err)
	}
	if len(entries) == 0 {
		return NoJournalContext, nil
	}
	predictions, err := b.predictionRepo.ListActive(dbc, userID)
	if err != nil {
		return "", fmt.Errorf("load predictions: %w", err)
	}
	return formatMentorContext(entries, predictions), nil
}

func formatMentorContext(entries []*types.JournalEntry, predictions []*types.CareerPrediction) string {
	var b strings.Builder
	b.WriteString("USER'S JOURNAL INSIGHTS:\n")
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- Emotions: %s\n", joinOrNA(e.Emotions))
		fmt.Fprintf(&b, "- Skills: %s\n", joinOrNA(e.DetectedSkills))
		fmt.Fprintf(&b, "- Interests: %s\n", joinOrNA(e.DetectedInterests))
		fmt.Fprintf(&b, "- Mood: %d/10\n", e.MoodScore)
		fmt.Fprintf(&b, "- Recent insight: %s\n", orNA(e.AIInsights))
	}

	b.WriteString("\nCAREER PREDICTIONS FOR THIS USER:\n")
	if len(predictions) == 0 {
		b.WriteString("No predictions yet\n")
	}
	for _, p := range predictions {
		fmt.Fprintf(&b, "- %s (%d%% match): %s\n", p.CareerPath, p.ConfidenceScore, p.Reasoning)
	}
	return b.String()
}

func joinOrNA(items []string) string {
	if len(items) == 0 {
		return "N/A"
	}
	return strings.Join(items, ", ")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
