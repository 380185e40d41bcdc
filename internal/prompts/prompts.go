package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
)

const promptsEnv = "PROMPTS_YAML"

const (
	AnalyzeJournalSystem = "analyze_journal_system"
	AnalyzeJournalUser   = "analyze_journal_user"
	PredictCareerSystem  = "predict_career_system"
	PredictCareerUser    = "predict_career_user"
	MentorSystem         = "mentor_system"
)

var requiredPrompts = []string{
	AnalyzeJournalSystem,
	AnalyzeJournalUser,
	PredictCareerSystem,
	PredictCareerUser,
	MentorSystem,
}

//go:embed prompts.yaml
var promptsFS embed.FS

// used when the YAML is missing or invalid
var fallbackPrompts = map[string]string{
	AnalyzeJournalSystem: "You are a career guidance AI that analyzes journal entries.",
	AnalyzeJournalUser: "Analyze this journal entry. Reply with one JSON object with keys " +
		`"emotions", "skills", "interests" (string arrays), "summary", "insights" (strings) and "moodScore" (1-10).` +
		"\n\nJournal entry:\n{{.Content}}",
	PredictCareerSystem: "You are an expert career guidance AI that predicts ideal career paths from journal entries.",
	PredictCareerUser: "Journal data:\n{{.JournalData}}\n\nReply with one JSON object " +
		`{"recommended":[{"careerPath","confidenceScore","reasoning","recommendedSkills","learningResources":[{"title","type","url"}]}],"avoid":[{"careerPath","reason"}]}. ` +
		"Provide exactly 3 recommended careers and 3 careers to avoid.",
	MentorSystem: `You are "CareerPath AI", an empathetic career mentor.{{if .UserName}} The user's name is {{.UserName}}.{{end}}` +
		"\n\n{{.Context}}\n\nBase every answer on the user's data above.",
}

type yamlCatalog struct {
	Version int               `yaml:"version"`
	Prompts map[string]string `yaml:"prompts"`
}

// Catalog renders named prompt templates.
type Catalog struct {
	templates map[string]*template.Template
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default loads the catalog once, from PROMPTS_YAML when set, otherwise from
// the embedded file, and falls back to compiled-in prompts on any error.
func Default(log *logger.Logger) *Catalog {
	defaultOnce.Do(func() {
		c, err := Load()
		if err != nil {
			if log != nil {
				log.Warn("prompts: catalog load failed; using fallback", "error", err)
			}
			c = mustCompile(fallbackPrompts)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

func Load() (*Catalog, error) {
	data, err := readPrompts()
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var catalog yamlCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, err
	}
	if err := validateCatalog(&catalog); err != nil {
		return nil, err
	}
	return compile(catalog.Prompts)
}

func readPrompts() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(promptsEnv)); path != "" {
		return os.ReadFile(path)
	}
	return promptsFS.ReadFile("prompts.yaml")
}

func validateCatalog(catalog *yamlCatalog) error {
	if catalog == nil {
		return errors.New("missing catalog")
	}
	if catalog.Version != 1 {
		return fmt.Errorf("unsupported prompts version: %d", catalog.Version)
	}
	for _, name := range requiredPrompts {
		if strings.TrimSpace(catalog.Prompts[name]) == "" {
			return fmt.Errorf("prompt %s is missing", name)
		}
	}
	return nil
}

func compile(src map[string]string) (*Catalog, error) {
	c := &Catalog{templates: make(map[string]*template.Template, len(src))}
	for name, text := range src {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: %w", name, err)
		}
		c.templates[name] = tmpl
	}
	return c, nil
}

func mustCompile(src map[string]string) *Catalog {
	c, err := compile(src)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Render(name string, data any) (string, error) {
	tmpl, ok := c.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %s", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// Fallback returns the compiled-in catalog.
func Fallback() *Catalog {
	return mustCompile(fallbackPrompts)
}
