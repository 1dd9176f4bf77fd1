package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/abhisek/brainbrew/internal/store"
)

type recordingEventRepo struct {
	mu     sync.Mutex
	events []store.LLMRequestEventData
	err    error
}

func (r *recordingEventRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
	return r.err
}

func (r *recordingEventRepo) QueryLLMEvents(context.Context, store.QueryOpts) ([]store.LLMEventRecord, error) {
	return nil, nil
}

func (r *recordingEventRepo) GetLLMEvent(context.Context, int64) (*store.LLMEventRecord, error) {
	return nil, nil
}

func (r *recordingEventRepo) LLMUsageByPurpose(context.Context) ([]store.PurposeUsage, error) {
	return nil, nil
}

func (r *recordingEventRepo) LLMUsageByModel(context.Context) ([]store.ModelUsage, error) {
	return nil, nil
}

func TestLogging_RecordsEvent(t *testing.T) {
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`{"question":"Why?"}`),
		Usage:   Usage{InputTokens: 120, OutputTokens: 30, TotalTokens: 150},
	})
	repo := &recordingEventRepo{}
	p := WithLogging(mock, "gemini", repo, nil, nil)

	ctx := WithPurpose(context.Background(), "question")
	_, err := p.Generate(ctx, Request{
		System:   "You are a Socratic tutor.",
		Messages: []Message{{Role: RoleUser, Content: "Ask about mitosis."}},
		Schema:   &Schema{Name: "tutor-question", Definition: map[string]any{"type": "object"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.events))
	}
	ev := repo.events[0]
	if ev.Provider != "gemini" || ev.Purpose != "question" || !ev.Success {
		t.Errorf("event = %+v", ev)
	}
	if ev.InputTokens != 120 || ev.OutputTokens != 30 {
		t.Errorf("tokens = %d/%d, want 120/30", ev.InputTokens, ev.OutputTokens)
	}
	for _, want := range []string{"[system]", "[user]", "Ask about mitosis.", "[schema: tutor-question]"} {
		if !strings.Contains(ev.RequestBody, want) {
			t.Errorf("request body missing %q:\n%s", want, ev.RequestBody)
		}
	}
	if ev.ResponseBody != `{"question":"Why?"}` {
		t.Errorf("response body = %q", ev.ResponseBody)
	}
}

func TestLogging_FailureStillReturnsResult(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrRateLimit{Err: errors.New("quota")}})
	repo := &recordingEventRepo{err: errors.New("disk full")}
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	p := WithLogging(mock, "gemini", repo, nil, m)

	_, err := p.Generate(WithPurpose(context.Background(), "hint"), Request{})
	if !IsRateLimit(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if len(repo.events) != 1 || repo.events[0].Success || repo.events[0].ErrorMessage == "" {
		t.Fatalf("events = %+v", repo.events)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("hint", "rate_limited")); got != 1 {
		t.Errorf("rate_limited counter = %v, want 1", got)
	}
}

func TestLogging_NilRepo(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	p := WithLogging(mock, "mock", nil, nil, nil)
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	mock := NewMockProvider()
	if p := WithRateLimit(mock, RateLimitConfig{}); p != Provider(mock) {
		t.Fatal("zero requests per minute should return the provider unchanged")
	}
}

func TestRateLimit_WaitsForToken(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{}`)},
		MockResponse{Content: json.RawMessage(`{}`)},
	)
	p := WithRateLimit(mock, RateLimitConfig{RequestsPerMinute: 1, Burst: 1})

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := p.Generate(ctx, Request{})
	if err == nil {
		t.Fatal("second call inside the same minute should be throttled")
	}
	if !IsRateLimit(err) && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 upstream call, got %d", mock.CallCount())
	}
}

func TestWrap_Chain(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("503")}},
		MockResponse{Content: json.RawMessage(`{"ok":true}`)},
	)
	repo := &recordingEventRepo{}
	cfg := DefaultConfig()
	cfg.Retry = retryConfig()
	cfg.RateLimit = RateLimitConfig{}

	p := Wrap(mock, cfg, Deps{Events: repo})
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.events) != 2 {
		t.Fatalf("every attempt should be logged, got %d events", len(repo.events))
	}
	if repo.events[0].Success || !repo.events[1].Success {
		t.Errorf("events = %+v", repo.events)
	}
	if p.ModelID() != "mock" {
		t.Errorf("ModelID = %q", p.ModelID())
	}
}

func TestResponseDecode(t *testing.T) {
	resp := &Response{Content: json.RawMessage(`{"topics":["Cells"]}`)}
	var out struct {
		Topics []string `json:"topics"`
	}
	if err := resp.Decode(&out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out.Topics) != 1 || out.Topics[0] != "Cells" {
		t.Errorf("topics = %v", out.Topics)
	}

	bad := &Response{Content: json.RawMessage(`{"topics":"Cells"}`)}
	var invErr *ErrInvalidResponse
	if err := bad.Decode(&out); !errors.As(err, &invErr) {
		t.Fatalf("expected ErrInvalidResponse, got %T", err)
	}
}
