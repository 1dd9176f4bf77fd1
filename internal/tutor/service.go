package tutor

import (
	"context"
	"time"
)

// Analysis is the content service's reading of a document.
type Analysis struct {
	Text     string
	Topics   []string
	Concepts []string
}

// Document is raw input handed to ContentService.Analyze.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// ContentService produces the tutor's side of the conversation.
type ContentService interface {
	Analyze(ctx context.Context, doc Document) (*Analysis, error)
	Introduce(ctx context.Context, documentText string, difficulty Difficulty, topicHint string) (string, error)
	NextQuestion(ctx context.Context, documentText string, difficulty Difficulty, transcript []Entry, topicHint string) (string, error)
	Explain(ctx context.Context, question, answer, documentText string, difficulty Difficulty) (string, error)
	Hint(ctx context.Context, question, draftAnswer string, ordinal int, documentText string, difficulty Difficulty) (string, error)
}

// GradingService scores a free-text answer against a question.
type GradingService interface {
	Evaluate(ctx context.Context, question, answer, documentText string, difficulty Difficulty) (Outcome, error)
}

// Record is a stored document as listed by a PersistenceService.
type Record struct {
	ID        string
	UserID    string
	FileName  string
	FilePath  string
	FileSize  int64
	Topics    []string
	CreatedAt time.Time
}

// Blob is an uploaded document awaiting storage. Topics, Concepts and Text
// carry its analysis so a later session can start without re-analysis.
type Blob struct {
	FileName    string
	ContentType string
	Data        []byte
	Topics      []string
	Concepts    []string
	Text        string
}

// PersistenceService stores and retrieves a user's documents.
type PersistenceService interface {
	Store(ctx context.Context, userID string, blob Blob) (Record, error)
	List(ctx context.Context, userID string) ([]Record, error)
	URL(ctx context.Context, handle string) (string, error)
	Delete(ctx context.Context, handle string) error
}

// Recorder receives every transcript entry as it is appended.
type Recorder interface {
	Record(ctx context.Context, e Entry, difficulty Difficulty) error
}
