package services

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	types "github.com/yungbote/careerpath-backend/internal/domain"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
	"github.com/yungbote/careerpath-backend/internal/platform/openai"
	"github.com/yungbote/careerpath-backend/internal/prompts"
)

const (
	fallbackEmotion  = "thoughtful"
	fallbackSummary  = "Analysis in progress..."
	fallbackInsights = "Keep journaling to discover patterns in your career journey."
)

// Analysis is the structured reading of one journal entry.
type Analysis struct {
	Emotions  []string `json:"emotions"`
	Skills    []string `json:"skills"`
	Interests []string `json:"interests"`
	Summary   string   `json:"summary"`
	Insights  string   `json:"insights"`
	MoodScore int      `json:"mood_score"`
	// Fallback is set when the default analysis was substituted.
	Fallback bool `json:"fallback"`
}

func FallbackAnalysis() Analysis {
	return Analysis{
		Emotions:  []string{fallbackEmotion},
		Skills:    []string{},
		Interests: []string{},
		Summary:   fallbackSummary,
		Insights:  fallbackInsights,
		MoodScore: types.DefaultMoodScore,
		Fallback:  true,
	}
}

// EntryAnalyzer never fails outward: any upstream or parse problem yields FallbackAnalysis.
type EntryAnalyzer interface {
	Analyze(ctx context.Context, text string) Analysis
}

type entryAnalyzer struct {
	log     *logger.Logger
	client  openai.Client
	prompts *prompts.Catalog
}

func NewEntryAnalyzer(log *logger.Logger, client openai.Client, catalog *prompts.Catalog) EntryAnalyzer {
	return &entryAnalyzer{
		log:     log.With("service", "EntryAnalyzer"),
		client:  client,
		prompts: catalog,
	}
}

func (a *entryAnalyzer) Analyze(ctx context.Context, text string) Analysis {
	start := time.Now()
	system, err := a.prompts.Render(prompts.AnalyzeJournalSystem, nil)
	if err != nil {
		a.log.Warn("analyze: render system prompt failed", "error", err)
		return FallbackAnalysis()
	}
	user, err := a.prompts.Render(prompts.AnalyzeJournalUser, struct{ Content string }{Content: text})
	if err != nil {
		a.log.Warn("analyze: render user prompt failed", "error", err)
		return FallbackAnalysis()
	}

	raw, err := a.client.Complete(ctx, openai.Request{Messages: []openai.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}})
	if err != nil {
		a.log.Warn("analyze: completion failed; using fallback",
			"status", openai.Classify(err).String(),
			"error", err,
		)
		return FallbackAnalysis()
	}

	out, ok := parseAnalysis(raw)
	if !ok {
		a.log.Warn("analyze: no usable JSON in completion; using fallback", "response_len", len(raw))
		return FallbackAnalysis()
	}
	a.log.Debug("analyze: ok",
		"mood_score", out.MoodScore,
		"emotions", len(out.Emotions),
		"skills", len(out.Skills),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out
}

type rawAnalysis struct {
	Emotions  any `json:"emotions"`
	Skills    any `json:"skills"`
	Interests any `json:"interests"`
	Summary   any `json:"summary"`
	Insights  any `json:"insights"`
	MoodScore any `json:"moodScore"`
}

func parseAnalysis(raw string) (Analysis, bool) {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return Analysis{}, false
	}
	var r rawAnalysis
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		return Analysis{}, false
	}
	return Analysis{
		Emotions:  normalizeLabels(r.Emotions),
		Skills:    normalizeLabels(r.Skills),
		Interests: normalizeLabels(r.Interests),
		Summary:   stringValue(r.Summary),
		Insights:  stringValue(r.Insights),
		MoodScore: normalizeMood(r.MoodScore),
	}, true
}

// extractJSONObject returns the first balanced top-level {...} in s. Braces
// inside JSON strings and escaped quotes are skipped.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// normalizeLabels keeps trimmed non-empty strings, dropping case-insensitive
// duplicates after their first occurrence.
func normalizeLabels(v any) []string {
	out := []string{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	seen := map[string]bool{}
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func normalizeMood(v any) int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return types.DefaultMoodScore
		}
		f = parsed
	default:
		return types.DefaultMoodScore
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return types.DefaultMoodScore
	}
	n := int(math.Round(f))
	if n < types.MinMoodScore || n > types.MaxMoodScore {
		return types.DefaultMoodScore
	}
	return n
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
