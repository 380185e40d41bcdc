package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/yungbote/careerpath-backend/internal/pkg/httpx"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(logger.Nop(), Config{BaseURL: srv.URL + "/", APIKey: "k", Model: "test-model"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresConfig(t *testing.T) {
	if _, err := NewClient(logger.Nop(), Config{BaseURL: "http://x", Model: "m"}); err == nil {
		t.Fatalf("expected error for missing api key")
	}
	if _, err := NewClient(nil, Config{BaseURL: "http://x", APIKey: "k", Model: "m"}); err == nil {
		t.Fatalf("expected error for missing logger")
	}
}

func TestCompleteSendsRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != chatCompletionsPath {
			t.Errorf("path: got=%s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("authorization: got=%q", got)
		}
		var body chatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Model != "test-model" || body.Stream || len(body.Messages) != 2 {
			t.Errorf("body: got=%+v", body)
		}
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"hi there"}}]}`)
	})

	out, err := c.Complete(context.Background(), Request{Messages: []Message{
		{Role: "system", Content: "s"},
		{Role: "user", Content: "u"},
	}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "hi there" {
		t.Fatalf("content: got=%q", out)
	}
}

func TestCompleteClassifiesFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   Status
		is     error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":"slow down"}`, want: StatusRateLimited, is: ErrRateLimited},
		{name: "quota", status: http.StatusPaymentRequired, body: `{"error":"pay"}`, want: StatusQuotaExceeded, is: ErrQuotaExceeded},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", want: StatusTransportError},
		{name: "empty choices", status: http.StatusOK, body: `{"choices":[]}`, want: StatusTransportError, is: ErrEmptyBody},
		{name: "empty body", status: http.StatusOK, body: "", want: StatusTransportError, is: ErrEmptyBody},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}})
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := Classify(err); got != tc.want {
				t.Fatalf("classify: got=%v want=%v (err=%v)", got, tc.want, err)
			}
			if tc.is != nil && !errors.Is(err, tc.is) {
				t.Fatalf("errors.Is(%v): false for %v", tc.is, err)
			}
			if tc.status >= 400 && httpx.StatusOf(err) != tc.status {
				t.Fatalf("status: got=%d want=%d", httpx.StatusOf(err), tc.status)
			}
		})
	}
}

func TestRateLimitAndQuotaAreDistinct(t *testing.T) {
	rl := &HTTPError{StatusCode: http.StatusTooManyRequests}
	q := &HTTPError{StatusCode: http.StatusPaymentRequired}
	if errors.Is(rl, ErrQuotaExceeded) || errors.Is(q, ErrRateLimited) {
		t.Fatalf("rate limit and quota must not match each other")
	}
	if Classify(nil) != StatusOK {
		t.Fatalf("nil error must classify as ok")
	}
	if Classify(errors.New("dial tcp: refused")) != StatusTransportError {
		t.Fatalf("network error must classify as transport error")
	}
}

func TestStreamReturnsRawBody(t *testing.T) {
	payload := frame("a") + frame("b") + "data: [DONE]\n"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if !body.Stream {
			t.Errorf("stream flag not set")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, payload)
	})

	rc, err := c.Stream(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(raw) != payload {
		t.Fatalf("body: got=%q want=%q", raw, payload)
	}
}

func TestStreamBodyConcurrentClose(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "data: [DONE]\n")
	})
	body, err := c.Stream(context.Background(), Request{Messages: []Message{{Role: "user", Content: "u"}}})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = body.Close()
		}(i)
	}
	wg.Wait()
	for i := 1; i < len(errs); i++ {
		if errs[i] != errs[0] {
			t.Fatalf("close results differ: %v vs %v", errs[i], errs[0])
		}
	}
}

func TestStreamRateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	rc, err := c.Stream(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}})
	if rc != nil {
		t.Fatalf("expected nil body on failure")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	var he *HTTPError
	if !errors.As(err, &he) || he.RetryAfter.Seconds() != 3 {
		t.Fatalf("retry after: got=%+v", he)
	}
}
