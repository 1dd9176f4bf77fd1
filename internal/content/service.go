// Package content generates the tutor's side of a study session: document
// analysis, the introduction, Socratic questions, explanations and hints.
package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/brainbrew/internal/cache"
	"github.com/abhisek/brainbrew/internal/llm"
	"github.com/abhisek/brainbrew/internal/logging"
	"github.com/abhisek/brainbrew/internal/tutor"
)

// Extractor turns an uploaded document into plain text.
type Extractor interface {
	Extract(ctx context.Context, doc tutor.Document) (string, error)
}

// Service implements tutor.ContentService on an LLM provider.
type Service struct {
	provider  llm.Provider
	extractor Extractor
	cache     cache.Cache
	cfg       Config
	log       *logging.Logger

	group singleflight.Group
}

var _ tutor.ContentService = (*Service)(nil)

// NewService creates a content service. A nil cache disables analysis
// caching.
func NewService(provider llm.Provider, extractor Extractor, c cache.Cache, cfg Config, log *logging.Logger) *Service {
	return &Service{
		provider:  provider,
		extractor: extractor,
		cache:     c,
		cfg:       cfg,
		log:       logging.OrNop(log).Named("content"),
	}
}

type analysisOutput struct {
	Topics   []string `json:"topics"`
	Concepts []string `json:"concepts"`
}

// Analyze extracts the document text and asks the model for its topics.
// Identical documents analysed concurrently share one model call, and the
// result is cached by a hash of the extracted text.
func (s *Service) Analyze(ctx context.Context, doc tutor.Document) (*tutor.Analysis, error) {
	text, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &tutor.ExtractionError{Reason: "document has no extractable text"}
	}

	key := analysisKey(text)
	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.analyze(ctx, key, text)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.Debug("analysis shared with concurrent caller", "key", key)
	}

	out := v.(analysisOutput)
	return &tutor.Analysis{
		Text:     text,
		Topics:   append([]string(nil), out.Topics...),
		Concepts: append([]string(nil), out.Concepts...),
	}, nil
}

func (s *Service) analyze(ctx context.Context, key, text string) (analysisOutput, error) {
	if out, ok := s.cached(ctx, key); ok {
		return out, nil
	}

	ctx = llm.WithPurpose(ctx, "analysis")

	req := llm.Request{
		System: analysisSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildAnalysisUserMessage(s.truncate(text))},
		},
		Schema:      AnalysisSchema,
		MaxTokens:   s.cfg.AnalysisMaxTokens,
		Temperature: 0.2,
	}

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return analysisOutput{}, generationError("analysis", err)
	}

	var out analysisOutput
	if err := resp.Decode(&out); err != nil {
		return analysisOutput{}, generationError("analysis", err)
	}
	out.Topics = normalize(out.Topics, s.cfg.MaxTopics)
	out.Concepts = normalize(out.Concepts, 0)

	if s.cache != nil {
		if data, err := json.Marshal(out); err == nil {
			if err := s.cache.Set(ctx, key, data, s.cfg.CacheTTL); err != nil {
				s.log.Warn("cache analysis", "key", key, "error", err)
			}
		}
	}
	return out, nil
}

func (s *Service) cached(ctx context.Context, key string) (analysisOutput, bool) {
	if s.cache == nil {
		return analysisOutput{}, false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("read cached analysis", "key", key, "error", err)
		return analysisOutput{}, false
	}
	if !ok {
		return analysisOutput{}, false
	}
	var out analysisOutput
	if err := json.Unmarshal(data, &out); err != nil {
		s.log.Warn("decode cached analysis", "key", key, "error", err)
		return analysisOutput{}, false
	}
	return out, true
}

type introOutput struct {
	Introduction string `json:"introduction"`
}

func (s *Service) Introduce(ctx context.Context, documentText string, difficulty tutor.Difficulty, topicHint string) (string, error) {
	var out introOutput
	err := s.generate(ctx, "introduction", IntroSchema, []llm.Message{
		{Role: llm.RoleUser, Content: buildIntroUserMessage(s.truncate(documentText), difficulty, topicHint)},
	}, &out)
	if err != nil {
		return "", err
	}
	return s.nonEmpty("introduction", out.Introduction)
}

type questionOutput struct {
	Question string `json:"question"`
}

func (s *Service) NextQuestion(ctx context.Context, documentText string, difficulty tutor.Difficulty, transcript []tutor.Entry, topicHint string) (string, error) {
	var out questionOutput
	msgs := buildQuestionMessages(s.truncate(documentText), difficulty, transcript, topicHint)
	if err := s.generate(ctx, "question", QuestionSchema, msgs, &out); err != nil {
		return "", err
	}
	return s.nonEmpty("question", out.Question)
}

type explanationOutput struct {
	Explanation string `json:"explanation"`
}

func (s *Service) Explain(ctx context.Context, question, answer, documentText string, difficulty tutor.Difficulty) (string, error) {
	var out explanationOutput
	err := s.generate(ctx, "explanation", ExplanationSchema, []llm.Message{
		{Role: llm.RoleUser, Content: buildExplanationUserMessage(question, answer, s.truncate(documentText), difficulty)},
	}, &out)
	if err != nil {
		return "", err
	}
	return s.nonEmpty("explanation", out.Explanation)
}

type hintOutput struct {
	Hint string `json:"hint"`
}

func (s *Service) Hint(ctx context.Context, question, draftAnswer string, ordinal int, documentText string, difficulty tutor.Difficulty) (string, error) {
	var out hintOutput
	err := s.generate(ctx, "hint", HintSchema, []llm.Message{
		{Role: llm.RoleUser, Content: buildHintUserMessage(question, draftAnswer, ordinal, s.truncate(documentText), difficulty)},
	}, &out)
	if err != nil {
		return "", err
	}
	return s.nonEmpty("hint", out.Hint)
}

func (s *Service) generate(ctx context.Context, op string, schema *llm.Schema, msgs []llm.Message, out any) error {
	ctx = llm.WithPurpose(ctx, op)

	req := llm.Request{
		System:      tutorSystemPrompt,
		Messages:    msgs,
		Schema:      schema,
		MaxTokens:   s.cfg.MessageMaxTokens,
		Temperature: s.cfg.Temperature,
	}

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return generationError(op, err)
	}
	if err := resp.Decode(out); err != nil {
		return generationError(op, err)
	}
	return nil
}

func (s *Service) nonEmpty(op, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", generationError(op, &llm.ErrInvalidResponse{Err: errors.New("empty " + op)})
	}
	return text, nil
}

// truncate limits text to the configured number of runes.
func (s *Service) truncate(text string) string {
	if s.cfg.MaxDocumentChars <= 0 {
		return text
	}
	r := []rune(text)
	if len(r) <= s.cfg.MaxDocumentChars {
		return text
	}
	return string(r[:s.cfg.MaxDocumentChars])
}

func generationError(op string, err error) error {
	return &tutor.GenerationError{
		Op:          op,
		RateLimited: llm.IsRateLimit(err) || tutor.IsRateLimited(err),
		Err:         err,
	}
}

func analysisKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "analysis:" + hex.EncodeToString(sum[:])
}

// normalize trims entries, drops blanks and case-insensitive duplicates,
// and keeps at most limit entries when limit is positive.
func normalize(items []string, limit int) []string {
	items = lo.FilterMap(items, func(s string, _ int) (string, bool) {
		s = strings.TrimSpace(s)
		return s, s != ""
	})
	items = lo.UniqBy(items, strings.ToLower)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
