package tutor

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// MaxAttempts non-strong grades on one question force advancement.
	MaxAttempts = 3

	// MaxHints is the per-question hint budget.
	MaxHints = 3

	// MinAnswerLength is the shortest answer (in characters, after trimming)
	// that is sent for grading.
	MinAnswerLength = 20

	// QuestionsPerTopic is how many questions target a topic before moving on.
	QuestionsPerTopic = 3

	// NoTopic is returned by TopicIndex when there are no topics to hint.
	NoTopic = -1
)

// SessionState is the data model for one learning session.
type SessionState struct {
	DocumentText string
	Topics       []string

	QuestionNumber  int
	Attempts        int
	HintsUsed       int
	Difficulty      Difficulty
	Recent          Window
	ExploredTopics  map[string]struct{}
	CurrentQuestion string
}

// NewSessionState returns the state for a fresh session over a document.
func NewSessionState(documentText string, topics []string) *SessionState {
	t := make([]string, 0, len(topics))
	for _, topic := range topics {
		if topic = strings.TrimSpace(topic); topic != "" {
			t = append(t, topic)
		}
	}
	return &SessionState{
		DocumentText:   documentText,
		Topics:         t,
		QuestionNumber: 1,
		Difficulty:     DifficultyBasic,
		ExploredTopics: make(map[string]struct{}),
	}
}

// TopicIndex returns the topic to steer question n towards. It walks the
// topic list every QuestionsPerTopic questions and sticks on the last topic.
// NoTopic is returned when numTopics is zero.
func TopicIndex(questionNumber, numTopics int) int {
	if numTopics <= 0 {
		return NoTopic
	}
	if questionNumber < 1 {
		questionNumber = 1
	}
	return min((questionNumber-1)/QuestionsPerTopic, numTopics-1)
}

// TopicHint returns the topic label for the current question, or "".
func (s *SessionState) TopicHint() string {
	i := TopicIndex(s.QuestionNumber, len(s.Topics))
	if i == NoTopic {
		return ""
	}
	return s.Topics[i]
}

// FirstTopic returns the first topic, used to steer the introduction.
func (s *SessionState) FirstTopic() string {
	if len(s.Topics) == 0 {
		return ""
	}
	return s.Topics[0]
}

func (s *SessionState) markExplored(topic string) {
	if topic != "" {
		s.ExploredTopics[topic] = struct{}{}
	}
}

// Explored returns the explored topics sorted alphabetically.
func (s *SessionState) Explored() []string {
	out := make([]string, 0, len(s.ExploredTopics))
	for t := range s.ExploredTopics {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// recordGrade pushes q into the window and applies any difficulty change.
// The window is cleared only when an adjustment fires.
func (s *SessionState) recordGrade(q Quality) Decision {
	s.Recent.Push(q)
	if !s.Recent.Full() {
		return DecisionNone
	}
	dec := Decide(s.Recent.Items(), s.Difficulty)
	if dec != DecisionNone {
		s.Difficulty = s.Difficulty.Apply(dec)
		s.Recent.Clear()
	}
	return dec
}

// advance resolves the current question and resets per-question counters.
func (s *SessionState) advance() {
	s.Attempts = 0
	s.HintsUsed = 0
	s.QuestionNumber++
}

// HintsRemaining returns how many hints are left for the current question.
func (s *SessionState) HintsRemaining() int {
	return MaxHints - s.HintsUsed
}

// AnswerLongEnough reports whether an answer meets MinAnswerLength.
func AnswerLongEnough(answer string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(answer)) >= MinAnswerLength
}
