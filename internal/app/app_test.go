package app

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/brainbrew/internal/router"
	"github.com/abhisek/brainbrew/internal/screen"
	"github.com/abhisek/brainbrew/internal/ui/layout"
)

type stubScreen struct {
	title     string
	status    string
	intercept bool
	keys      []string
	closed    bool
}

func (s *stubScreen) Init() tea.Cmd { return nil }
func (s *stubScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if k, ok := msg.(tea.KeyPressMsg); ok {
		s.keys = append(s.keys, k.String())
	}
	return s, nil
}
func (s *stubScreen) View(int, int) string    { return "content of " + s.title }
func (s *stubScreen) Title() string           { return s.title }
func (s *stubScreen) Status() string          { return s.status }
func (s *stubScreen) InterceptsBack() bool    { return s.intercept }
func (s *stubScreen) Close()                  { s.closed = true }
func (s *stubScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{{Key: "Ctrl+S", Description: "Submit"}}
}

func sized(m AppModel) AppModel {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(AppModel)
}

func TestView_HeaderAndFooter(t *testing.T) {
	m := sized(New(Options{Root: &stubScreen{title: "Library"}, Status: "local"}))

	out := m.render()
	for _, want := range []string{"brainbrew", "Library", "local", "Ctrl+S", "content of Library"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestView_ScreenStatusWins(t *testing.T) {
	m := sized(New(Options{Root: &stubScreen{title: "Study", status: "Q3 · Advanced"}, Status: "local"}))

	if out := m.render(); !strings.Contains(out, "Q3 · Advanced") {
		t.Error("expected the screen status in the header")
	}
}

func TestView_TooSmall(t *testing.T) {
	m := New(Options{Root: &stubScreen{title: "Library"}})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 30, Height: 10})

	if out := next.(AppModel).render(); !strings.Contains(out, "Terminal too small") {
		t.Error("expected the minimum size message")
	}
}

func TestEscPopsScreen(t *testing.T) {
	m := New(Options{Root: &stubScreen{title: "Library"}})
	top := &stubScreen{title: "Study"}
	m.router.Push(top)

	_, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if cmd == nil {
		t.Fatal("expected a pop command")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Fatalf("expected PopScreenMsg, got %T", cmd())
	}
}

func TestEscInterceptedByScreen(t *testing.T) {
	m := New(Options{Root: &stubScreen{title: "Library"}})
	top := &stubScreen{title: "Study", intercept: true}
	m.router.Push(top)

	m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})

	if len(top.keys) != 1 || top.keys[0] != "esc" {
		t.Errorf("screen keys = %v, want [esc]", top.keys)
	}
	if m.router.Depth() != 2 {
		t.Errorf("depth = %d, want 2", m.router.Depth())
	}
}

func TestCtrlCClosesScreens(t *testing.T) {
	root := &stubScreen{title: "Library"}
	m := New(Options{Root: root})

	_, cmd := m.Update(tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl})

	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !root.closed {
		t.Error("expected screens to be closed")
	}
}
