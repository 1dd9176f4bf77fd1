package home

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/brainbrew/internal/router"
	"github.com/abhisek/brainbrew/internal/screens/session"
	"github.com/abhisek/brainbrew/internal/store"
	"github.com/abhisek/brainbrew/internal/tutor"
)

type fakeLibrary struct {
	records []tutor.Record
	docs    map[string]*store.Document
	listErr error
}

func (f *fakeLibrary) List(context.Context, string) ([]tutor.Record, error) {
	return f.records, f.listErr
}

func (f *fakeLibrary) Document(_ context.Context, id string) (*store.Document, error) {
	if d, ok := f.docs[id]; ok {
		return d, nil
	}
	return nil, tutor.ErrNotFound
}

func testLibrary() *fakeLibrary {
	return &fakeLibrary{
		records: []tutor.Record{
			{ID: "d1", FileName: "biology.pdf", Topics: []string{"Cells", "Energy"}, CreatedAt: time.Now()},
			{ID: "d2", FileName: "history.txt", Topics: []string{"Rome"}, CreatedAt: time.Now()},
		},
		docs: map[string]*store.Document{
			"d1": {ID: "d1", FileName: "biology.pdf", Text: "Cells make energy.", Topics: []string{"Cells", "Energy"}},
		},
	}
}

func loaded(t *testing.T, lib *fakeLibrary) *HomeScreen {
	t.Helper()
	h := New(Deps{Library: lib, UserID: "local"})
	h.Update(h.Init()())
	return h
}

func TestHomeScreen_ListsDocuments(t *testing.T) {
	h := loaded(t, testLibrary())

	view := h.View(100, 30)
	for _, want := range []string{"biology.pdf", "history.txt", "Cells · Energy"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if got := len(h.menu.Items); got != 3 {
		t.Errorf("menu items = %d, want 3 (two documents and quit)", got)
	}
}

func TestHomeScreen_HistoryEntryNeedsRepo(t *testing.T) {
	h := New(Deps{Library: testLibrary(), Exchanges: stubExchanges{}, UserID: "local"})
	h.Update(h.Init()())

	var found bool
	for _, it := range h.menu.Items {
		if it.Label == "Session history" {
			found = true
		}
	}
	if !found {
		t.Error("expected a history entry")
	}
}

func TestHomeScreen_EmptyLibrary(t *testing.T) {
	h := loaded(t, &fakeLibrary{})

	if view := h.View(100, 30); !strings.Contains(view, "No documents yet") {
		t.Errorf("view missing empty hint:\n%s", view)
	}
}

func TestHomeScreen_LoadError(t *testing.T) {
	h := loaded(t, &fakeLibrary{listErr: &tutor.StorageError{Op: "list", Err: errors.New("disk gone")}})

	if h.errMsg == "" {
		t.Error("expected an error message")
	}
}

func TestHomeScreen_OpenPushesSession(t *testing.T) {
	h := loaded(t, testLibrary())

	_, cmd := h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command to open the document")
	}
	_, cmd = h.Update(cmd())
	if cmd == nil {
		t.Fatal("expected a command to push the session")
	}
	push, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatalf("expected PushScreenMsg, got %T", cmd())
	}
	s, ok := push.Screen.(*session.SessionScreen)
	if !ok {
		t.Fatalf("pushed %T, want *session.SessionScreen", push.Screen)
	}
	if s.Title() != "biology.pdf" {
		t.Errorf("title = %q, want biology.pdf", s.Title())
	}
	s.Close()
}

func TestHomeScreen_OpenMissingDocument(t *testing.T) {
	h := loaded(t, testLibrary())
	h.Update(tea.KeyPressMsg{Code: 'j', Text: "j"})

	_, cmd := h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	h.Update(cmd())

	if h.errMsg != tutor.UserMessage(tutor.ErrNotFound) {
		t.Errorf("errMsg = %q", h.errMsg)
	}
}

func TestHomeScreen_ReloadKeepsSelection(t *testing.T) {
	lib := testLibrary()
	h := loaded(t, lib)
	h.Update(tea.KeyPressMsg{Code: 'j', Text: "j"})

	_, cmd := h.Update(tea.KeyPressMsg{Code: 'r', Text: "r"})
	h.Update(cmd())

	if h.menu.Selected != 1 {
		t.Errorf("selected = %d, want 1", h.menu.Selected)
	}
}

type stubExchanges struct{}

func (stubExchanges) Append(context.Context, *store.Exchange) error { return nil }
func (stubExchanges) BySession(context.Context, string) ([]store.Exchange, error) {
	return nil, nil
}
func (stubExchanges) Sessions(context.Context, string, int) ([]store.SessionSummary, error) {
	return nil, nil
}
