package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/careerpath-backend/internal/data/repos"
	"github.com/yungbote/careerpath-backend/internal/data/repos/testutil"
	"github.com/yungbote/careerpath-backend/internal/pkg/ctxutil"
	"github.com/yungbote/careerpath-backend/internal/platform/openai"
	"github.com/yungbote/careerpath-backend/internal/prompts"
)

type fakeClient struct {
	mu            sync.Mutex
	completeFn    func(ctx context.Context, req openai.Request) (string, error)
	streamFn      func(ctx context.Context, req openai.Request) (io.ReadCloser, error)
	completeCalls int
	streamCalls   int
	requests      []openai.Request
}

func (f *fakeClient) Complete(ctx context.Context, req openai.Request) (string, error) {
	f.mu.Lock()
	f.completeCalls++
	f.requests = append(f.requests, req)
	fn := f.completeFn
	f.mu.Unlock()
	if fn == nil {
		return "", &openai.HTTPError{StatusCode: 500, Body: "no fake"}
	}
	return fn(ctx, req)
}

func (f *fakeClient) Stream(ctx context.Context, req openai.Request) (io.ReadCloser, error) {
	f.mu.Lock()
	f.streamCalls++
	f.requests = append(f.requests, req)
	fn := f.streamFn
	f.mu.Unlock()
	if fn == nil {
		return nil, &openai.HTTPError{StatusCode: 500, Body: "no fake"}
	}
	return fn(ctx, req)
}

func (f *fakeClient) calls() (complete, stream int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completeCalls, f.streamCalls
}

func (f *fakeClient) lastRequest() openai.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return openai.Request{}
	}
	return f.requests[len(f.requests)-1]
}

func completeWith(s string) func(context.Context, openai.Request) (string, error) {
	return func(context.Context, openai.Request) (string, error) { return s, nil }
}

func completeErr(err error) func(context.Context, openai.Request) (string, error) {
	return func(context.Context, openai.Request) (string, error) { return "", err }
}

func sseFrame(content string) string {
	return `data: {"choices":[{"delta":{"content":"` + content + `"}}]}` + "\n\n"
}

func streamBody(s string) func(context.Context, openai.Request) (io.ReadCloser, error) {
	return func(context.Context, openai.Request) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(s)), nil
	}
}

func streamErr(err error) func(context.Context, openai.Request) (io.ReadCloser, error) {
	return func(context.Context, openai.Request) (io.ReadCloser, error) { return nil, err }
}

type testDeps struct {
	db          *gorm.DB
	entries     repos.JournalEntryRepo
	predictions repos.CareerPredictionRepo
	avoidances  repos.CareerAvoidanceRepo
	prompts     *prompts.Catalog
}

func newTestDeps(t *testing.T) testDeps {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	catalog, err := prompts.Load()
	if err != nil {
		t.Fatalf("prompts.Load: %v", err)
	}
	return testDeps{
		db:          db,
		entries:     repos.NewJournalEntryRepo(db, log),
		predictions: repos.NewCareerPredictionRepo(db, log),
		avoidances:  repos.NewCareerAvoidanceRepo(db, log),
		prompts:     catalog,
	}
}

func authedContext(userID uuid.UUID) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{
		TokenString: "token",
		UserID:      userID,
	})
}
