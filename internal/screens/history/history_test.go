package history

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/brainbrew/internal/store"
)

type fakeExchanges struct {
	sessions []store.SessionSummary
	entries  map[string][]store.Exchange
	err      error
}

func (f *fakeExchanges) BySession(_ context.Context, id string) ([]store.Exchange, error) {
	return f.entries[id], f.err
}

func (f *fakeExchanges) Sessions(context.Context, string, int) ([]store.SessionSummary, error) {
	return f.sessions, f.err
}

func testRepo() *fakeExchanges {
	start := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	return &fakeExchanges{
		sessions: []store.SessionSummary{
			{SessionID: "s1", DocumentID: "d1", Entries: 4, StartedAt: start, LastAt: start.Add(5 * time.Minute)},
			{SessionID: "s2", Entries: 2, StartedAt: start.Add(-time.Hour), LastAt: start.Add(-50 * time.Minute)},
		},
		entries: map[string][]store.Exchange{
			"s1": {
				{Seq: 1, Role: "tutor", Kind: "question", Text: "What do mitochondria do?", Difficulty: 1, CreatedAt: start},
				{Seq: 2, Role: "learner", Kind: "answer", Text: "They produce energy for the cell.", Difficulty: 1, CreatedAt: start},
			},
		},
	}
}

func TestHistoryScreen_ListsSessions(t *testing.T) {
	s := New(testRepo(), "local", map[string]string{"d1": "biology.pdf"})
	s.Update(s.Init()())

	view := s.View(100, 30)
	for _, want := range []string{"biology.pdf", "pasted text", "4 messages", "5m0s"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestHistoryScreen_Empty(t *testing.T) {
	s := New(&fakeExchanges{}, "local", nil)
	s.Update(s.Init()())

	if view := s.View(100, 30); !strings.Contains(view, "No sessions yet") {
		t.Errorf("view missing empty hint:\n%s", view)
	}
}

func TestHistoryScreen_LoadError(t *testing.T) {
	s := New(&fakeExchanges{err: errors.New("db locked")}, "local", nil)
	s.Update(s.Init()())

	if view := s.View(100, 30); !strings.Contains(view, "db locked") {
		t.Errorf("view missing error:\n%s", view)
	}
}

func TestHistoryScreen_OpenTranscript(t *testing.T) {
	s := New(testRepo(), "local", nil)
	s.Update(s.Init()())

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command to load the transcript")
	}
	s.Update(cmd())

	if !s.InterceptsBack() {
		t.Error("expected Esc to be handled while reading")
	}
	view := s.View(100, 30)
	for _, want := range []string{"What do mitochondria do?", "They produce energy", "Basic"} {
		if !strings.Contains(view, want) {
			t.Errorf("transcript missing %q:\n%s", want, view)
		}
	}

	s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if s.InterceptsBack() {
		t.Error("expected Esc to return to the list")
	}
}

func TestHistoryScreen_Navigation(t *testing.T) {
	s := New(testRepo(), "local", nil)
	s.Update(s.Init()())

	s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if s.selected != 1 {
		t.Errorf("selected = %d, want 1", s.selected)
	}
	s.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	if s.selected != 0 {
		t.Errorf("selected = %d, want 0", s.selected)
	}
}
