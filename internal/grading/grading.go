// Package grading scores a learner's free-text answer as strong, partial or
// needs_work.
package grading

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/brainbrew/internal/llm"
	"github.com/abhisek/brainbrew/internal/logging"
	"github.com/abhisek/brainbrew/internal/tutor"
)

// Config holds grading settings.
type Config struct {
	MaxTokens   int     `toml:"max_tokens" validate:"min=64"`
	Temperature float64 `toml:"temperature" validate:"min=0,max=2"`
}

// DefaultConfig returns a low temperature so the same answer grades the
// same way twice.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   384,
		Temperature: 0.1,
	}
}

// GradeSchema defines the JSON schema for a grade.
var GradeSchema = &llm.Schema{
	Name:        "answer-grade",
	Description: "Assessment of a learner's answer to a study question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"quality": map[string]any{
				"type":        "string",
				"enum":        []any{"strong", "partial", "needs_work"},
				"description": "strong: correct and well reasoned; partial: on the right track but incomplete; needs_work: incorrect or missing the key idea",
			},
			"feedback": map[string]any{
				"type":        "string",
				"description": "1-3 sentences addressed to the learner; for partial and needs_work, say what is missing without giving the answer",
			},
		},
		"required":             []any{"quality", "feedback"},
		"additionalProperties": false,
	},
}

const systemPrompt = `You grade a learner's answer to a Socratic question about their study material. Judge understanding, not wording. Be encouraging but honest.`

// Service implements tutor.GradingService on an LLM provider.
type Service struct {
	provider llm.Provider
	cfg      Config
	log      *logging.Logger
}

var _ tutor.GradingService = (*Service)(nil)

// NewService creates a grading service.
func NewService(provider llm.Provider, cfg Config, log *logging.Logger) *Service {
	return &Service{provider: provider, cfg: cfg, log: logging.OrNop(log).Named("grading")}
}

type gradeOutput struct {
	Quality  string `json:"quality"`
	Feedback string `json:"feedback"`
}

// Evaluate grades answer against question in the context of the document.
func (s *Service) Evaluate(ctx context.Context, question, answer, documentText string, difficulty tutor.Difficulty) (tutor.Outcome, error) {
	ctx = llm.WithPurpose(ctx, "grading")

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(question, answer, documentText, difficulty)},
		},
		Schema:      GradeSchema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return tutor.Outcome{}, gradingError(err)
	}

	var out gradeOutput
	if err := resp.Decode(&out); err != nil {
		return tutor.Outcome{}, gradingError(err)
	}

	q, err := tutor.ParseQuality(strings.ToLower(strings.TrimSpace(out.Quality)))
	if err != nil {
		return tutor.Outcome{}, gradingError(&llm.ErrInvalidResponse{Content: resp.Content, Err: err})
	}

	s.log.Debug("answer graded", "quality", q, "difficulty", difficulty)
	return tutor.Outcome{Quality: q, Feedback: strings.TrimSpace(out.Feedback)}, nil
}

func buildUserMessage(question, answer, documentText string, difficulty tutor.Difficulty) string {
	var b strings.Builder

	b.WriteString("Material:\n")
	b.WriteString(documentText)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Difficulty: %s (%s)\n", difficulty, difficulty.Guidance())
	fmt.Fprintf(&b, "Question: %s\n", question)
	fmt.Fprintf(&b, "Learner's answer: %s\n", answer)

	b.WriteString(`
Instructions:
1. Grade the answer as strong, partial or needs_work against what the material supports.
2. Expect the depth appropriate to the difficulty, no more.
3. Write feedback to the learner. Do not reveal the full answer when it is partial or needs_work.`)

	return b.String()
}

func gradingError(err error) error {
	var rl *llm.ErrRateLimit
	return &tutor.GradingError{
		RateLimited: errors.As(err, &rl) || tutor.IsRateLimited(err),
		Err:         err,
	}
}
