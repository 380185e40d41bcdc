package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/careerpath-backend/internal/data/repos"
	types "github.com/yungbote/careerpath-backend/internal/domain"
	"github.com/yungbote/careerpath-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/careerpath-backend/internal/pkg/errors"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
)

const (
	maxEntryRunes     = 20000
	maxTitleRunes     = 200
	defaultEntryLimit = 50
	maxEntryLimit     = 200
	defaultMoodPoints = 30
	maxMoodPoints     = 365
	maxMoodDays       = 365
)

// MoodQuery selects mood samples either by a trailing day window or, when
// Days is zero, as the user's first Limit entries.
type MoodQuery struct {
	Days  int
	Limit int
}

type CreateEntryInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type JournalService interface {
	// CreateEntry analyzes the text and persists the entry. Analysis failures
	// degrade to the fallback analysis; persistence failures are returned.
	CreateEntry(ctx context.Context, userID uuid.UUID, in CreateEntryInput) (*types.JournalEntry, Analysis, error)
	ListEntries(ctx context.Context, userID uuid.UUID, limit int) ([]*types.JournalEntry, error)
	MoodTrend(ctx context.Context, userID uuid.UUID, q MoodQuery) ([]types.MoodPoint, error)
}

type journalService struct {
	db        *gorm.DB
	log       *logger.Logger
	entryRepo repos.JournalEntryRepo
	analyzer  EntryAnalyzer
	now       func() time.Time
}

func NewJournalService(db *gorm.DB, log *logger.Logger, entryRepo repos.JournalEntryRepo, analyzer EntryAnalyzer) JournalService {
	return &journalService{
		db:        db,
		log:       log.With("service", "JournalService"),
		entryRepo: entryRepo,
		analyzer:  analyzer,
		now:       time.Now,
	}
}

func (s *journalService) CreateEntry(ctx context.Context, userID uuid.UUID, in CreateEntryInput) (*types.JournalEntry, Analysis, error) {
	if userID == uuid.Nil {
		return nil, Analysis{}, pkgerrors.ErrUnauthorized
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, Analysis{}, fmt.Errorf("%w: content is required", pkgerrors.ErrInvalidArgument)
	}
	if utf8.RuneCountInString(content) > maxEntryRunes {
		return nil, Analysis{}, fmt.Errorf("%w: content exceeds %d characters", pkgerrors.ErrInvalidArgument, maxEntryRunes)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = types.DefaultEntryTitle
	}
	title = truncateRunes(title, maxTitleRunes)

	analysis := s.analyzer.Analyze(ctx, content)

	entry := &types.JournalEntry{
		UserID:            userID,
		Title:             title,
		Content:           content,
		MoodScore:         analysis.MoodScore,
		Emotions:          datatypes.NewJSONSlice(analysis.Emotions),
		DetectedSkills:    datatypes.NewJSONSlice(analysis.Skills),
		DetectedInterests: datatypes.NewJSONSlice(analysis.Interests),
		AISummary:         analysis.Summary,
		AIInsights:        analysis.Insights,
		CreatedAt:         s.now().UTC(),
	}
	created, err := s.entryRepo.Create(dbctx.Context{Ctx: ctx}, entry)
	if err != nil {
		return nil, analysis, fmt.Errorf("save journal entry: %w", err)
	}
	s.log.Info("journal entry created",
		"user_id", userID.String(),
		"entry_id", created.ID.String(),
		"fallback", analysis.Fallback,
	)
	return created, analysis, nil
}

func (s *journalService) ListEntries(ctx context.Context, userID uuid.UUID, limit int) ([]*types.JournalEntry, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	if limit <= 0 {
		limit = defaultEntryLimit
	}
	if limit > maxEntryLimit {
		limit = maxEntryLimit
	}
	out, err := s.entryRepo.ListRecent(dbctx.Context{Ctx: ctx}, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	return out, nil
}

func (s *journalService) MoodTrend(ctx context.Context, userID uuid.UUID, q MoodQuery) ([]types.MoodPoint, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	dbc := dbctx.Context{Ctx: ctx}
	if q.Days > 0 {
		days := q.Days
		if days > maxMoodDays {
			days = maxMoodDays
		}
		since := s.now().UTC().AddDate(0, 0, -days)
		out, err := s.entryRepo.MoodSince(dbc, userID, since)
		if err != nil {
			return nil, fmt.Errorf("load mood trend: %w", err)
		}
		return out, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultMoodPoints
	}
	if limit > maxMoodPoints {
		limit = maxMoodPoints
	}
	out, err := s.entryRepo.MoodOldest(dbc, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("load mood trend: %w", err)
	}
	return out, nil
}
