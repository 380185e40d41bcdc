package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/careerpath-backend/internal/data/cache"
	"github.com/yungbote/careerpath-backend/internal/data/repos"
	types "github.com/yungbote/careerpath-backend/internal/domain"
	"github.com/yungbote/careerpath-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/careerpath-backend/internal/pkg/errors"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
	"github.com/yungbote/careerpath-backend/internal/platform/openai"
	"github.com/yungbote/careerpath-backend/internal/prompts"
)

const (
	historyWindow       = 10
	historyContentRunes = 500
	maxCareersPerList   = 3

	InsufficientDataMessage = "Not enough data yet. Keep journaling to get personalized career predictions!"
)

var (
	fallbackRecommendation = recommendedCareer{
		CareerPath:        "Technology & Innovation",
		ConfidenceScore:   70,
		Reasoning:         "Based on your reflective thinking and problem-solving approach",
		RecommendedSkills: []string{"Critical Thinking", "Communication", "Adaptability"},
	}
	fallbackAvoidance = avoidedCareer{
		CareerPath: "Routine Administrative Work",
		Reason:     "May not align with your creative and analytical thinking patterns",
	}
)

type AggregateResult struct {
	Predictions      []*types.CareerPrediction `json:"predictions"`
	Avoidances       []*types.CareerAvoidance  `json:"avoid"`
	InsufficientData bool                      `json:"insufficient_data"`
	Fallback         bool                      `json:"fallback"`
	Message          string                    `json:"message,omitempty"`
}

type PredictionsView struct {
	Predictions  []*types.CareerPrediction `json:"predictions"`
	Avoid        []cache.CachedAvoidance   `json:"avoid"`
	LastAnalyzed *time.Time                `json:"last_analyzed"`
}

type CareerService interface {
	// Aggregate regenerates the user's prediction set and avoid list from the
	// most recent entries. Upstream failures degrade to the fallback set.
	Aggregate(ctx context.Context, userID uuid.UUID) (*AggregateResult, error)
	LoadPredictions(ctx context.Context, userID uuid.UUID) (*PredictionsView, error)
}

type careerService struct {
	db             *gorm.DB
	log            *logger.Logger
	entryRepo      repos.JournalEntryRepo
	predictionRepo repos.CareerPredictionRepo
	avoidanceRepo  repos.CareerAvoidanceRepo
	avoidCache     *cache.AvoidanceCache
	client         openai.Client
	prompts        *prompts.Catalog
	group          singleflight.Group
}

func NewCareerService(
	db *gorm.DB,
	log *logger.Logger,
	entryRepo repos.JournalEntryRepo,
	predictionRepo repos.CareerPredictionRepo,
	avoidanceRepo repos.CareerAvoidanceRepo,
	avoidCache *cache.AvoidanceCache,
	client openai.Client,
	catalog *prompts.Catalog,
) CareerService {
	return &careerService{
		db:             db,
		log:            log.With("service", "CareerService"),
		entryRepo:      entryRepo,
		predictionRepo: predictionRepo,
		avoidanceRepo:  avoidanceRepo,
		avoidCache:     avoidCache,
		client:         client,
		prompts:        catalog,
	}
}

func (s *careerService) Aggregate(ctx context.Context, userID uuid.UUID) (*AggregateResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	// Callers for the same user share one run; it must outlive any single caller.
	shared := context.WithoutCancel(ctx)
	v, err, joined := s.group.Do(userID.String(), func() (any, error) {
		return s.aggregate(shared, userID)
	})
	if joined {
		s.log.Debug("aggregate: joined in-flight run", "user_id", userID.String())
	}
	if err != nil {
		return nil, err
	}
	return v.(*AggregateResult), nil
}

func (s *careerService) aggregate(ctx context.Context, userID uuid.UUID) (*AggregateResult, error) {
	start := time.Now()
	entries, err := s.entryRepo.ListRecent(dbctx.Context{Ctx: ctx}, userID, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("load journal history: %w", err)
	}
	if len(entries) == 0 {
		if err := s.avoidCache.Clear(ctx, userID); err != nil {
			s.log.Warn("aggregate: clear avoidance cache failed", "user_id", userID.String(), "error", err)
		}
		return &AggregateResult{
			Predictions:      []*types.CareerPrediction{},
			Avoidances:       []*types.CareerAvoidance{},
			InsufficientData: true,
			Message:          InsufficientDataMessage,
		}, nil
	}

	recommended, avoided, fallback := s.requestCareers(ctx, entries)

	now := time.Now().UTC()
	predictions := make([]*types.CareerPrediction, 0, len(recommended))
	for i, rc := range recommended {
		predictions = append(predictions, &types.CareerPrediction{
			UserID:            userID,
			CareerPath:        rc.CareerPath,
			ConfidenceScore:   rc.ConfidenceScore,
			Reasoning:         rc.Reasoning,
			RecommendedSkills: datatypes.NewJSONSlice(rc.RecommendedSkills),
			LearningResources: datatypes.NewJSONSlice(rc.LearningResources),
			IsActive:          true,
			Rank:              i,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}
	avoidances := make([]*types.CareerAvoidance, 0, len(avoided))
	for i, ac := range avoided {
		avoidances = append(avoidances, &types.CareerAvoidance{
			UserID:     userID,
			CareerPath: ac.CareerPath,
			Reason:     ac.Reason,
			Position:   i,
			CreatedAt:  now,
		})
	}

	if err := s.replace(ctx, userID, predictions, avoidances); err != nil {
		return nil, err
	}

	if err := s.avoidCache.Set(ctx, userID, toCachedAvoidances(avoidances)); err != nil {
		s.log.Warn("aggregate: write avoidance cache failed", "user_id", userID.String(), "error", err)
	}

	s.log.Info("aggregate: predictions replaced",
		"user_id", userID.String(),
		"entries", len(entries),
		"predictions", len(predictions),
		"avoidances", len(avoidances),
		"fallback", fallback,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &AggregateResult{
		Predictions: predictions,
		Avoidances:  avoidances,
		Fallback:    fallback,
	}, nil
}

// replace swaps the user's prediction set and avoid list in one transaction.
func (s *careerService) replace(ctx context.Context, userID uuid.UUID, predictions []*types.CareerPrediction, avoidances []*types.CareerAvoidance) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.predictionRepo.DeleteByUser(dbc, userID); err != nil {
			return fmt.Errorf("delete predictions: %w", err)
		}
		if _, err := s.predictionRepo.CreateMany(dbc, predictions); err != nil {
			return fmt.Errorf("insert predictions: %w", err)
		}
		if err := s.avoidanceRepo.DeleteByUser(dbc, userID); err != nil {
			return fmt.Errorf("delete avoidances: %w", err)
		}
		if _, err := s.avoidanceRepo.CreateMany(dbc, avoidances); err != nil {
			return fmt.Errorf("insert avoidances: %w", err)
		}
		return nil
	})
}

type recommendedCareer struct {
	CareerPath        string
	ConfidenceScore   int
	Reasoning         string
	RecommendedSkills []string
	LearningResources []types.LearningResource
}

type avoidedCareer struct {
	CareerPath string
	Reason     string
}

type historyItem struct {
	Content   string   `json:"content"`
	Emotions  []string `json:"emotions"`
	Skills    []string `json:"skills"`
	Interests []string `json:"interests"`
	Insights  string   `json:"insights"`
}

func (s *careerService) requestCareers(ctx context.Context, entries []*types.JournalEntry) ([]recommendedCareer, []avoidedCareer, bool) {
	fallback := func() ([]recommendedCareer, []avoidedCareer, bool) {
		return []recommendedCareer{fallbackRecommendation}, []avoidedCareer{fallbackAvoidance}, true
	}

	history := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		history = append(history, historyItem{
			Content:   truncateRunes(e.Content, historyContentRunes),
			Emotions:  nonNilStrings(e.Emotions),
			Skills:    nonNilStrings(e.DetectedSkills),
			Interests: nonNilStrings(e.DetectedInterests),
			Insights:  e.AIInsights,
		})
	}
	journalData, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		s.log.Warn("aggregate: encode history failed", "error", err)
		return fallback()
	}

	system, err := s.prompts.Render(prompts.PredictCareerSystem, nil)
	if err != nil {
		s.log.Warn("aggregate: render system prompt failed", "error", err)
		return fallback()
	}
	user, err := s.prompts.Render(prompts.PredictCareerUser, struct{ JournalData string }{JournalData: string(journalData)})
	if err != nil {
		s.log.Warn("aggregate: render user prompt failed", "error", err)
		return fallback()
	}

	raw, err := s.client.Complete(ctx, openai.Request{Messages: []openai.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}})
	if err != nil {
		s.log.Warn("aggregate: completion failed; using fallback", "status", openai.Classify(err).String(), "error", err)
		return fallback()
	}

	recommended, avoided, ok := parseCareers(raw)
	if !ok || len(recommended) == 0 {
		s.log.Warn("aggregate: no usable recommendations; using fallback", "response_len", len(raw))
		return fallback()
	}
	return recommended, avoided, false
}

type rawCareers struct {
	Recommended []struct {
		CareerPath        string `json:"careerPath"`
		ConfidenceScore   any    `json:"confidenceScore"`
		Reasoning         string `json:"reasoning"`
		RecommendedSkills any    `json:"recommendedSkills"`
		LearningResources []struct {
			Title string `json:"title"`
			Type  string `json:"type"`
			URL   string `json:"url"`
		} `json:"learningResources"`
	} `json:"recommended"`
	Avoid []struct {
		CareerPath string `json:"careerPath"`
		Reason     string `json:"reason"`
	} `json:"avoid"`
}

// parseCareers keeps at most three entries per list and never pads.
func parseCareers(raw string) ([]recommendedCareer, []avoidedCareer, bool) {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return nil, nil, false
	}
	var r rawCareers
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		return nil, nil, false
	}

	recommended := make([]recommendedCareer, 0, maxCareersPerList)
	for _, rc := range r.Recommended {
		if len(recommended) == maxCareersPerList {
			break
		}
		path := strings.TrimSpace(rc.CareerPath)
		if path == "" {
			continue
		}
		resources := make([]types.LearningResource, 0, len(rc.LearningResources))
		for _, lr := range rc.LearningResources {
			if strings.TrimSpace(lr.Title) == "" {
				continue
			}
			resources = append(resources, types.LearningResource{
				Title: strings.TrimSpace(lr.Title),
				Type:  strings.TrimSpace(lr.Type),
				URL:   strings.TrimSpace(lr.URL),
			})
		}
		recommended = append(recommended, recommendedCareer{
			CareerPath:        path,
			ConfidenceScore:   normalizeConfidence(rc.ConfidenceScore),
			Reasoning:         strings.TrimSpace(rc.Reasoning),
			RecommendedSkills: normalizeLabels(rc.RecommendedSkills),
			LearningResources: resources,
		})
	}

	avoided := make([]avoidedCareer, 0, maxCareersPerList)
	for _, ac := range r.Avoid {
		if len(avoided) == maxCareersPerList {
			break
		}
		path := strings.TrimSpace(ac.CareerPath)
		if path == "" {
			continue
		}
		avoided = append(avoided, avoidedCareer{CareerPath: path, Reason: strings.TrimSpace(ac.Reason)})
	}
	return recommended, avoided, true
}

func normalizeConfidence(v any) int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		if _, err := fmt.Sscanf(strings.TrimSuffix(strings.TrimSpace(t), "%"), "%g", &f); err != nil {
			return 0
		}
	default:
		return 0
	}
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 100:
		return 100
	}
	return int(math.Round(f))
}

func (s *careerService) LoadPredictions(ctx context.Context, userID uuid.UUID) (*PredictionsView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	dbc := dbctx.Context{Ctx: ctx}
	predictions, err := s.predictionRepo.ListActive(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load predictions: %w", err)
	}
	avoidances, err := s.avoidanceRepo.ListByUser(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load avoidances: %w", err)
	}

	view := &PredictionsView{
		Predictions: predictions,
		Avoid:       []cache.CachedAvoidance{},
	}
	if view.Predictions == nil {
		view.Predictions = []*types.CareerPrediction{}
	}
	for _, p := range predictions {
		if view.LastAnalyzed == nil || p.UpdatedAt.After(*view.LastAnalyzed) {
			t := p.UpdatedAt
			view.LastAnalyzed = &t
		}
	}

	if len(avoidances) > 0 {
		view.Avoid = toCachedAvoidances(avoidances)
		if err := s.avoidCache.Set(ctx, userID, view.Avoid); err != nil {
			s.log.Warn("load predictions: refresh avoidance cache failed", "user_id", userID.String(), "error", err)
		}
		return view, nil
	}

	cached, err := s.avoidCache.Get(ctx, userID)
	if err != nil {
		s.log.Warn("load predictions: read avoidance cache failed", "user_id", userID.String(), "error", err)
		return view, nil
	}
	if len(cached) > 0 {
		view.Avoid = cached
	}
	return view, nil
}

func toCachedAvoidances(rows []*types.CareerAvoidance) []cache.CachedAvoidance {
	out := make([]cache.CachedAvoidance, 0, len(rows))
	for _, r := range rows {
		out = append(out, cache.CachedAvoidance{CareerPath: r.CareerPath, Reason: r.Reason})
	}
	return out
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
