package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/careerpath-backend/internal/data/cache"
	"github.com/yungbote/careerpath-backend/internal/data/repos"
	"github.com/yungbote/careerpath-backend/internal/data/repos/testutil"
	types "github.com/yungbote/careerpath-backend/internal/domain"
	"github.com/yungbote/careerpath-backend/internal/pkg/dbctx"
	"github.com/yungbote/careerpath-backend/internal/platform/openai"
)

const fourCareers = `Here is my analysis:
{
  "recommended": [
    {"careerPath": "Data Engineering", "confidenceScore": 91, "reasoning": "Enjoys pipelines", "recommendedSkills": ["SQL", "Airflow"],
     "learningResources": [{"title": "DE Zoomcamp", "type": "course", "url": "https://example.com/de"}]},
    {"careerPath": "Technical Writing", "confidenceScore": 140, "reasoning": "Clear writer", "recommendedSkills": []},
    {"careerPath": "Developer Relations", "confidenceScore": "64", "reasoning": "Likes people"},
    {"careerPath": "Fourth Option", "confidenceScore": 50, "reasoning": "dropped"}
  ],
  "avoid": [
    {"careerPath": "Cold Calling Sales", "reason": "Drains energy"},
    {"careerPath": "Night Shift Ops", "reason": "Sleep"}
  ]
}`

type careerFixture struct {
	deps   testDeps
	store  cache.Store
	cache  *cache.AvoidanceCache
	client *fakeClient
	svc    CareerService
}

func newCareerFixture(t *testing.T, client *fakeClient) careerFixture {
	t.Helper()
	deps := newTestDeps(t)
	store := cache.NewMemoryStore()
	ac := cache.NewAvoidanceCache(store)
	svc := NewCareerService(deps.db, testutil.Logger(t), deps.entries, deps.predictions, deps.avoidances, ac, client, deps.prompts)
	return careerFixture{deps: deps, store: store, cache: ac, client: client, svc: svc}
}

func TestAggregateInsufficientData(t *testing.T) {
	f := newCareerFixture(t, &fakeClient{completeFn: completeWith(fourCareers)})
	ctx := context.Background()
	userID := uuid.New()
	_ = f.cache.Set(ctx, userID, []cache.CachedAvoidance{{CareerPath: "Stale", Reason: "old"}})
	testutil.SeedPrediction(t, ctx, f.deps.db, userID, "Kept", 60)

	res, err := f.svc.Aggregate(ctx, userID)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !res.InsufficientData || res.Message != InsufficientDataMessage {
		t.Fatalf("result: %+v", res)
	}
	if c, _ := f.client.calls(); c != 0 {
		t.Fatalf("expected no completion call, got %d", c)
	}
	if _, err := f.store.Get(ctx, cache.AvoidanceKey(userID)); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("expected cache cleared, got %v", err)
	}
	kept, err := f.deps.predictions.ListActive(dbctx.Context{Ctx: ctx}, userID)
	if err != nil || len(kept) != 1 {
		t.Fatalf("store must not change: got=%d err=%v", len(kept), err)
	}
}

func TestAggregateReplacesPredictionSet(t *testing.T) {
	f := newCareerFixture(t, &fakeClient{completeFn: completeWith(fourCareers)})
	ctx := context.Background()
	userID := uuid.New()
	otherID := uuid.New()

	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	long := strings.Repeat("é", 800)
	for i := 0; i < 12; i++ {
		testutil.SeedEntry(t, ctx, f.deps.db, userID, long, 6, base.Add(time.Duration(i)*time.Hour))
	}
	testutil.SeedPrediction(t, ctx, f.deps.db, userID, "Old Guess", 99)
	testutil.SeedAvoidance(t, ctx, f.deps.db, userID, "Old Avoid", 0)
	testutil.SeedPrediction(t, ctx, f.deps.db, otherID, "Someone Else", 80)

	res, err := f.svc.Aggregate(ctx, userID)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if res.Fallback || res.InsufficientData {
		t.Fatalf("unexpected flags: %+v", res)
	}
	if len(res.Predictions) != 3 || len(res.Avoidances) != 2 {
		t.Fatalf("expected 3 predictions and 2 avoidances, got %d and %d", len(res.Predictions), len(res.Avoidances))
	}
	if res.Predictions[1].ConfidenceScore != 100 || res.Predictions[2].ConfidenceScore != 64 {
		t.Fatalf("confidence not normalized: %d, %d", res.Predictions[1].ConfidenceScore, res.Predictions[2].ConfidenceScore)
	}

	req := f.client.lastRequest()
	prompt := req.Messages[1].Content
	if got := strings.Count(prompt, `"content"`); got != 10 {
		t.Fatalf("expected 10 entries in prompt, got %d", got)
	}
	if strings.Contains(prompt, strings.Repeat("é", 501)) || !strings.Contains(prompt, strings.Repeat("é", 500)) {
		t.Fatalf("entry content not truncated to 500 characters")
	}

	dbc := dbctx.Context{Ctx: ctx}
	active, err := f.deps.predictions.ListActive(dbc, userID)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 3 || active[0].CareerPath != "Technical Writing" {
		t.Fatalf("active set: %+v", active)
	}
	for _, p := range active {
		if p.CareerPath == "Old Guess" || !p.IsActive {
			t.Fatalf("old set not replaced: %+v", p)
		}
	}
	avoid, err := f.deps.avoidances.ListByUser(dbc, userID)
	if err != nil || len(avoid) != 2 || avoid[0].CareerPath != "Cold Calling Sales" {
		t.Fatalf("avoidances: %+v err=%v", avoid, err)
	}
	other, _ := f.deps.predictions.ListActive(dbc, otherID)
	if len(other) != 1 {
		t.Fatalf("other user's predictions touched")
	}

	cached, err := f.cache.Get(ctx, userID)
	if err != nil || len(cached) != 2 || cached[1].CareerPath != "Night Shift Ops" {
		t.Fatalf("cache mirror: %+v err=%v", cached, err)
	}
}

func TestAggregateFallback(t *testing.T) {
	cases := []struct {
		name string
		fn   func(context.Context, openai.Request) (string, error)
	}{
		{name: "rate_limited", fn: completeErr(&openai.HTTPError{StatusCode: 429})},
		{name: "garbage", fn: completeWith("I'm not sure.")},
		{name: "no_recommendations", fn: completeWith(`{"recommended": [], "avoid": [{"careerPath": "X", "reason": "y"}]}`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newCareerFixture(t, &fakeClient{completeFn: tc.fn})
			ctx := context.Background()
			userID := uuid.New()
			testutil.SeedEntry(t, ctx, f.deps.db, userID, "I like puzzles", 6, time.Now())

			res, err := f.svc.Aggregate(ctx, userID)
			if err != nil {
				t.Fatalf("Aggregate: %v", err)
			}
			if !res.Fallback {
				t.Fatalf("expected fallback")
			}
			if len(res.Predictions) != 1 || res.Predictions[0].CareerPath != "Technology & Innovation" || res.Predictions[0].ConfidenceScore != 70 {
				t.Fatalf("fallback prediction: %+v", res.Predictions)
			}
			if len(res.Predictions[0].RecommendedSkills) != 3 || len(res.Predictions[0].LearningResources) != 0 {
				t.Fatalf("fallback skills/resources: %+v", res.Predictions[0])
			}
			if len(res.Avoidances) != 1 || res.Avoidances[0].CareerPath != "Routine Administrative Work" {
				t.Fatalf("fallback avoidance: %+v", res.Avoidances)
			}
			stored, err := f.deps.predictions.ListActive(dbctx.Context{Ctx: ctx}, userID)
			if err != nil || len(stored) != 1 {
				t.Fatalf("fallback not persisted: %d err=%v", len(stored), err)
			}
		})
	}
}

type failingAvoidanceRepo struct {
	repos.CareerAvoidanceRepo
}

func (failingAvoidanceRepo) CreateMany(dbctx.Context, []*types.CareerAvoidance) ([]*types.CareerAvoidance, error) {
	return nil, errors.New("disk full")
}

func TestAggregateRollsBackOnPersistenceFailure(t *testing.T) {
	deps := newTestDeps(t)
	ac := cache.NewAvoidanceCache(cache.NewMemoryStore())
	client := &fakeClient{completeFn: completeWith(fourCareers)}
	svc := NewCareerService(deps.db, testutil.Logger(t), deps.entries, deps.predictions,
		failingAvoidanceRepo{deps.avoidances}, ac, client, deps.prompts)

	ctx := context.Background()
	userID := uuid.New()
	testutil.SeedEntry(t, ctx, deps.db, userID, "entry", 6, time.Now())
	testutil.SeedPrediction(t, ctx, deps.db, userID, "Previous", 77)
	testutil.SeedAvoidance(t, ctx, deps.db, userID, "Previous Avoid", 0)

	if _, err := svc.Aggregate(ctx, userID); err == nil {
		t.Fatalf("expected persistence error")
	}

	dbc := dbctx.Context{Ctx: ctx}
	active, err := deps.predictions.ListActive(dbc, userID)
	if err != nil || len(active) != 1 || active[0].CareerPath != "Previous" {
		t.Fatalf("prediction set not restored: %+v err=%v", active, err)
	}
	avoid, err := deps.avoidances.ListByUser(dbc, userID)
	if err != nil || len(avoid) != 1 || avoid[0].CareerPath != "Previous Avoid" {
		t.Fatalf("avoid list not restored: %+v err=%v", avoid, err)
	}
	if cached, _ := ac.Get(ctx, userID); cached != nil {
		t.Fatalf("cache must not be written on failure: %+v", cached)
	}
}

func TestLoadPredictionsUsesCacheWhenStoreIsEmpty(t *testing.T) {
	f := newCareerFixture(t, &fakeClient{})
	ctx := context.Background()
	userID := uuid.New()
	testutil.SeedPrediction(t, ctx, f.deps.db, userID, "Low", 40)
	testutil.SeedPrediction(t, ctx, f.deps.db, userID, "High", 90)
	_ = f.cache.Set(ctx, userID, []cache.CachedAvoidance{{CareerPath: "From Cache", Reason: "cached"}})

	view, err := f.svc.LoadPredictions(ctx, userID)
	if err != nil {
		t.Fatalf("LoadPredictions: %v", err)
	}
	if len(view.Predictions) != 2 || view.Predictions[0].CareerPath != "High" {
		t.Fatalf("predictions: %+v", view.Predictions)
	}
	if view.LastAnalyzed == nil {
		t.Fatalf("expected last analyzed timestamp")
	}
	if len(view.Avoid) != 1 || view.Avoid[0].CareerPath != "From Cache" {
		t.Fatalf("avoid from cache: %+v", view.Avoid)
	}
}

func TestLoadPredictionsStoreWinsAndRefreshesCache(t *testing.T) {
	f := newCareerFixture(t, &fakeClient{})
	ctx := context.Background()
	userID := uuid.New()
	testutil.SeedAvoidance(t, ctx, f.deps.db, userID, "From Store", 0)
	_ = f.cache.Set(ctx, userID, []cache.CachedAvoidance{{CareerPath: "Stale", Reason: "old"}})

	view, err := f.svc.LoadPredictions(ctx, userID)
	if err != nil {
		t.Fatalf("LoadPredictions: %v", err)
	}
	if len(view.Avoid) != 1 || view.Avoid[0].CareerPath != "From Store" {
		t.Fatalf("avoid: %+v", view.Avoid)
	}
	if view.LastAnalyzed != nil || len(view.Predictions) != 0 {
		t.Fatalf("expected empty prediction view: %+v", view)
	}
	cached, _ := f.cache.Get(ctx, userID)
	if len(cached) != 1 || cached[0].CareerPath != "From Store" {
		t.Fatalf("cache not refreshed: %+v", cached)
	}
}

func TestNormalizeConfidence(t *testing.T) {
	cases := []struct {
		in   any
		want int
	}{
		{float64(85), 85},
		{float64(85.5), 86},
		{float64(-1), 0},
		{float64(250), 100},
		{"72%", 72},
		{"n/a", 0},
		{nil, 0},
	}
	for _, tc := range cases {
		if got := normalizeConfidence(tc.in); got != tc.want {
			t.Fatalf("normalizeConfidence(%v)=%d, want %d", tc.in, got, tc.want)
		}
	}
}
