package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/careerpath-backend/internal/pkg/ctxutil"
	"github.com/yungbote/careerpath-backend/internal/pkg/envutil"
	"github.com/yungbote/careerpath-backend/internal/pkg/httpx"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
)

const chatCompletionsPath = "/v1/chat/completions"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	// Model overrides the client default when non-empty.
	Model    string
	Messages []Message
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client interface {
	// Complete returns choices[0].message.content of a non-streaming call.
	Complete(ctx context.Context, req Request) (string, error)

	// Stream starts a streaming call and hands back the raw response body.
	// The caller owns the body and must close it.
	Stream(ctx context.Context, req Request) (io.ReadCloser, error)
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// Timeout bounds non-streaming calls only.
	Timeout time.Duration
	// HTTPClient is used for streaming calls and, when Timeout is zero, for all calls.
	HTTPClient *http.Client
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL: envutil.String("https://ai.gateway.lovable.dev", "LLM_BASE_URL", "OPENAI_BASE_URL"),
		APIKey:  envutil.String("", "LLM_API_KEY", "OPENAI_API_KEY"),
		Model:   envutil.String("google/gemini-2.5-flash", "LLM_MODEL", "OPENAI_MODEL"),
		Timeout: envutil.Seconds("LLM_TIMEOUT_SECONDS", 120*time.Second),
	}
}

type client struct {
	log          *logger.Logger
	baseURL      string
	apiKey       string
	model        string
	httpClient   *http.Client
	streamClient *http.Client
	tracer       trace.Tracer
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("missing LLM_API_KEY")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing LLM_BASE_URL")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("missing LLM_MODEL")
	}

	streamClient := cfg.HTTPClient
	if streamClient == nil {
		// Streams are long-lived; the transport layer owns their deadlines.
		streamClient = &http.Client{}
	}
	httpClient := streamClient
	if cfg.Timeout > 0 {
		httpClient = &http.Client{Transport: streamClient.Transport, Timeout: cfg.Timeout}
	}

	return &client{
		log:          log.With("service", "CompletionClient"),
		baseURL:      baseURL,
		apiKey:       apiKey,
		model:        model,
		httpClient:   httpClient,
		streamClient: streamClient,
		tracer:       otel.Tracer("careerpath/openai"),
	}, nil
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *client) Complete(ctx context.Context, req Request) (string, error) {
	body := c.buildBody(req, false)
	ctx, span := c.startSpan(ctxutil.Default(ctx), body)
	defer span.End()
	start := time.Now()

	resp, err := c.send(ctx, c.httpClient, body)
	if err != nil {
		c.finish(span, body, start, err)
		return "", err
	}
	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		err = fmt.Errorf("read completion body: %w", err)
		c.finish(span, body, start, err)
		return "", err
	}

	var out chatResponse
	if len(bytes.TrimSpace(raw)) == 0 {
		c.finish(span, body, start, ErrEmptyBody)
		return "", ErrEmptyBody
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		err = fmt.Errorf("completion decode error: %w", err)
		c.finish(span, body, start, err)
		return "", err
	}
	if len(out.Choices) == 0 {
		c.finish(span, body, start, ErrEmptyBody)
		return "", ErrEmptyBody
	}
	c.finish(span, body, start, nil)
	return out.Choices[0].Message.Content, nil
}

func (c *client) Stream(ctx context.Context, req Request) (io.ReadCloser, error) {
	body := c.buildBody(req, true)
	ctx, span := c.startSpan(ctxutil.Default(ctx), body)
	start := time.Now()

	resp, err := c.send(ctx, c.streamClient, body)
	if err != nil {
		c.finish(span, body, start, err)
		span.End()
		return nil, err
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		c.finish(span, body, start, ErrEmptyBody)
		span.End()
		return nil, ErrEmptyBody
	}
	c.log.Debug("completion stream opened", "model", body.Model, "latency_ms", time.Since(start).Milliseconds())
	return &tracedBody{ReadCloser: resp.Body, span: span}, nil
}

func (c *client) buildBody(req Request, stream bool) chatRequest {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}
	return chatRequest{Model: model, Messages: req.Messages, Stream: stream}
}

// send returns the response only for 2xx statuses; everything else becomes an error.
func (c *client) send(ctx context.Context, httpClient *http.Client, body chatRequest) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionsPath, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if body.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	if httpx.IsSuccess(resp.StatusCode) {
		return resp, nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	_ = resp.Body.Close()
	return nil, &HTTPError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(raw)),
		RetryAfter: httpx.RetryAfter(resp, 10*time.Minute),
	}
}

func (c *client) startSpan(ctx context.Context, body chatRequest) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "completion.chat",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.model", body.Model),
			attribute.Bool("llm.stream", body.Stream),
			attribute.Int("llm.messages", len(body.Messages)),
		),
	)
}

func (c *client) finish(span trace.Span, body chatRequest, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Classify(err).String())
		c.log.Warn("completion request failed",
			"model", body.Model,
			"stream", body.Stream,
			"status", statusLabel(err),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err.Error(),
		)
		return
	}
	c.log.Debug("completion request ok",
		"model", body.Model,
		"stream", body.Stream,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// tracedBody ends the request span when the caller releases the stream.
// Close may be called from several goroutines; only the first one acts.
type tracedBody struct {
	io.ReadCloser
	span trace.Span
	once sync.Once
	err  error
}

func (b *tracedBody) Close() error {
	b.once.Do(func() {
		b.err = b.ReadCloser.Close()
		b.span.End()
	})
	return b.err
}
