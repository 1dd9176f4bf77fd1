package tutor

import "time"

// Role identifies who produced a transcript entry.
type Role string

const (
	RoleTutor   Role = "tutor"
	RoleLearner Role = "learner"
)

// Kind classifies a transcript entry.
type Kind string

const (
	KindQuestion    Kind = "question"
	KindAnswer      Kind = "answer"
	KindExplanation Kind = "explanation"
)

// Entry is one message exchanged during a session.
type Entry struct {
	Role      Role
	Kind      Kind
	Text      string
	Timestamp time.Time
}

// Transcript is the append-only record of a session. Entries are never
// edited, removed or reordered; the whole log is replayed to the content
// service as conversational context.
//
// The log grows for the life of the session with no pruning.
type Transcript struct {
	entries []Entry
}

// Append adds e to the end of the log.
func (t *Transcript) Append(e Entry) {
	t.entries = append(t.entries, e)
}

// All returns the entries in order. The returned slice is a copy.
func (t *Transcript) All() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Transcript) Len() int { return len(t.entries) }
