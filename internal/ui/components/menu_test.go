package components

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
)

func key(s string) tea.KeyPressMsg {
	switch s {
	case "up":
		return tea.KeyPressMsg{Code: tea.KeyUp}
	case "down":
		return tea.KeyPressMsg{Code: tea.KeyDown}
	case "enter":
		return tea.KeyPressMsg{Code: tea.KeyEnter}
	}
	r := []rune(s)[0]
	return tea.KeyPressMsg{Code: r, Text: s}
}

type picked string

func TestMenu_SkipsDisabledItems(t *testing.T) {
	m := NewMenu([]MenuItem{
		{Label: "Locked", Disabled: true},
		{Label: "Biology"},
		{Label: "Archived", Disabled: true},
		{Label: "Chemistry"},
	})
	if m.Selected != 1 {
		t.Fatalf("Selected = %d, want 1", m.Selected)
	}

	m, _ = m.Update(key("down"))
	if m.Selected != 3 {
		t.Errorf("after down Selected = %d, want 3", m.Selected)
	}
	m, _ = m.Update(key("j"))
	if m.Selected != 3 {
		t.Errorf("down past the end moved to %d", m.Selected)
	}
	m, _ = m.Update(key("k"))
	if m.Selected != 1 {
		t.Errorf("after k Selected = %d, want 1", m.Selected)
	}
}

func TestMenu_EnterRunsAction(t *testing.T) {
	m := NewMenu([]MenuItem{
		{Label: "Biology", Action: func() tea.Cmd {
			return func() tea.Msg { return picked("biology") }
		}},
	})

	_, cmd := m.Update(key("enter"))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if got := cmd(); got != picked("biology") {
		t.Errorf("msg = %v, want biology", got)
	}
}

func TestMenu_CurrentOnEmpty(t *testing.T) {
	m := NewMenu(nil)
	if _, ok := m.Current(); ok {
		t.Error("expected no current item")
	}
	if _, cmd := m.Update(key("enter")); cmd != nil {
		t.Error("expected no command on an empty menu")
	}
}

func TestMenu_ViewTruncatesDetail(t *testing.T) {
	m := NewMenu([]MenuItem{
		{Label: "Notes", Detail: strings.Repeat("photosynthesis ", 10)},
	})
	out := m.View(40)
	if !strings.Contains(out, "▸ Notes") {
		t.Errorf("view missing selected label:\n%s", out)
	}
	if !strings.Contains(out, "...") {
		t.Errorf("expected truncated detail:\n%s", out)
	}
}

func TestAnswerBox_Value(t *testing.T) {
	a := NewAnswerBox("Type your answer")
	a.SetWidth(40)
	a.SetValue("Plants make sugar.")
	if a.Value() != "Plants make sugar." {
		t.Errorf("Value = %q", a.Value())
	}
	a.Reset()
	if a.Value() != "" {
		t.Errorf("Value after Reset = %q, want empty", a.Value())
	}
}
