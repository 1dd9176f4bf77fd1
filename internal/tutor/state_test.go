package tutor

import (
	"strings"
	"testing"
)

func TestWindowFIFO(t *testing.T) {
	var w Window
	w.Push(QualityStrong)
	w.Push(QualityPartial)
	if w.Full() {
		t.Fatal("window with 2 items should not be full")
	}
	w.Push(QualityNeedsWork)
	w.Push(QualityStrong)

	got := w.Items()
	want := []Quality{QualityPartial, QualityNeedsWork, QualityStrong}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	got[0] = QualityStrong
	if w.Items()[0] != QualityPartial {
		t.Error("Items should return a copy")
	}
}

func TestRecordGrade_ClearsOnlyOnAdjustment(t *testing.T) {
	s := NewSessionState("doc", nil)

	for _, q := range []Quality{QualityStrong, QualityPartial, QualityStrong} {
		if dec := s.recordGrade(q); dec != DecisionNone {
			t.Fatalf("unexpected decision %v", dec)
		}
	}
	if s.Recent.Len() != 3 {
		t.Fatalf("mixed window len = %d, want 3", s.Recent.Len())
	}

	s.recordGrade(QualityStrong) // window: partial, strong, strong
	if dec := s.recordGrade(QualityStrong); dec != DecisionIncrement {
		t.Fatalf("decision = %v, want increment", dec)
	}
	if s.Difficulty != DifficultyFoundational {
		t.Errorf("difficulty = %v, want Foundational", s.Difficulty)
	}
	if s.Recent.Len() != 0 {
		t.Errorf("window len after adjustment = %d, want 0", s.Recent.Len())
	}
}

func TestTopicIndex(t *testing.T) {
	tests := []struct {
		question, topics, want int
	}{
		{1, 0, NoTopic},
		{7, 0, NoTopic},
		{1, 1, 0},
		{10, 1, 0},
		{1, 3, 0},
		{3, 3, 0},
		{4, 3, 1},
		{6, 3, 1},
		{7, 3, 2},
		{100, 3, 2},
	}
	for _, tt := range tests {
		if got := TopicIndex(tt.question, tt.topics); got != tt.want {
			t.Errorf("TopicIndex(%d, %d) = %d, want %d", tt.question, tt.topics, got, tt.want)
		}
	}
}

func TestTopicIndex_AlwaysInRange(t *testing.T) {
	for n := 1; n <= 8; n++ {
		for q := 1; q <= 60; q++ {
			i := TopicIndex(q, n)
			if i < 0 || i > n-1 {
				t.Fatalf("TopicIndex(%d, %d) = %d out of range", q, n, i)
			}
		}
	}
}

func TestNewSessionState_DropsBlankTopics(t *testing.T) {
	s := NewSessionState("doc", []string{" Cells ", "", "  ", "Mitosis"})
	if len(s.Topics) != 2 || s.Topics[0] != "Cells" || s.Topics[1] != "Mitosis" {
		t.Errorf("Topics = %q", s.Topics)
	}
	if s.QuestionNumber != 1 || s.Difficulty != DifficultyBasic {
		t.Errorf("fresh state = q%d %v, want q1 Basic", s.QuestionNumber, s.Difficulty)
	}
	if s.TopicHint() != "Cells" || s.FirstTopic() != "Cells" {
		t.Errorf("TopicHint = %q, FirstTopic = %q", s.TopicHint(), s.FirstTopic())
	}
}

func TestAnswerLongEnough(t *testing.T) {
	if AnswerLongEnough(strings.Repeat("a", 19)) {
		t.Error("19 characters should be rejected")
	}
	if !AnswerLongEnough(strings.Repeat("a", 20)) {
		t.Error("20 characters should be accepted")
	}
	if AnswerLongEnough("   " + strings.Repeat("a", 19) + "   ") {
		t.Error("surrounding whitespace should not count")
	}
	if !AnswerLongEnough(strings.Repeat("é", 20)) {
		t.Error("length is counted in characters, not bytes")
	}
}

func TestCanTransition(t *testing.T) {
	if !CanTransition(PhaseGrading, PhaseExplaining) {
		t.Error("grading -> explaining should be legal")
	}
	if CanTransition(PhaseIdle, PhaseAwaitingAnswer) {
		t.Error("idle -> awaiting_answer should be illegal")
	}
	for p := PhaseIdle; p <= PhaseAdvancing; p++ {
		if !CanTransition(p, PhaseIdle) {
			t.Errorf("%v -> idle should always be legal", p)
		}
	}
}
