package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
	CostUSD      float64
}

// LLMEventRecord is a stored LLM request event.
type LLMEventRecord struct {
	ID        int64
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// PurposeUsage aggregates token usage for one request purpose.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// ModelUsage aggregates token usage for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEventRecord, error)

	// GetLLMEvent returns one event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int64) (*LLMEventRecord, error)

	LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error)
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)
}

// Document is an uploaded study document and its analysis.
type Document struct {
	ID          string
	UserID      string
	FileName    string
	FilePath    string
	FileSize    int64
	ContentType string
	Topics      []string
	Concepts    []string
	Text        string
	CreatedAt   time.Time
}

// DocumentRepo stores document records. Missing records give
// tutor.ErrNotFound.
type DocumentRepo interface {
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	// ListByUser returns the user's documents newest first.
	ListByUser(ctx context.Context, userID string) ([]Document, error)
	Delete(ctx context.Context, id string) error
}

// Exchange is one persisted transcript entry.
type Exchange struct {
	ID         int64
	Sequence   int64
	SessionID  string
	UserID     string
	DocumentID string
	Seq        int
	Role       string
	Kind       string
	Text       string
	Difficulty int
	CreatedAt  time.Time
}

// SessionSummary describes one recorded study session.
type SessionSummary struct {
	SessionID  string
	DocumentID string
	Entries    int
	StartedAt  time.Time
	LastAt     time.Time
}

// ExchangeRepo stores session transcripts.
type ExchangeRepo interface {
	Append(ctx context.Context, ex *Exchange) error
	// BySession returns the session's entries in order.
	BySession(ctx context.Context, sessionID string) ([]Exchange, error)
	// Sessions lists the user's sessions, most recent first.
	Sessions(ctx context.Context, userID string, limit int) ([]SessionSummary, error)
}
