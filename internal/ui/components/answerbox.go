package components

import (
	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/brainbrew/internal/ui/theme"
)

// AnswerBox is the multi-line input where the learner composes answers.
// Enter inserts a newline; submission is bound by the owning screen.
type AnswerBox struct {
	Model textarea.Model
}

// NewAnswerBox creates a focused answer box.
func NewAnswerBox(placeholder string) AnswerBox {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.SetHeight(3)
	return AnswerBox{Model: ta}
}

// Focus focuses the box and returns the cursor blink command.
func (a *AnswerBox) Focus() tea.Cmd {
	return a.Model.Focus()
}

// Blur removes focus so key presses are ignored.
func (a *AnswerBox) Blur() {
	a.Model.Blur()
}

// Focused reports whether the box accepts input.
func (a AnswerBox) Focused() bool {
	return a.Model.Focused()
}

// SetWidth sizes the box to the outer width including its border.
func (a *AnswerBox) SetWidth(w int) {
	inner := w - theme.AnswerBox.GetHorizontalFrameSize()
	if inner < 10 {
		inner = 10
	}
	a.Model.SetWidth(inner)
}

// Update forwards messages to the textarea.
func (a AnswerBox) Update(msg tea.Msg) (AnswerBox, tea.Cmd) {
	var cmd tea.Cmd
	a.Model, cmd = a.Model.Update(msg)
	return a, cmd
}

// View renders the bordered box.
func (a AnswerBox) View() string {
	style := theme.AnswerBox
	if a.Model.Focused() {
		style = theme.AnswerBoxFocused
	}
	return style.Render(a.Model.View())
}

// Value returns the current text.
func (a AnswerBox) Value() string {
	return a.Model.Value()
}

// SetValue replaces the text, keeping the cursor at the end.
func (a *AnswerBox) SetValue(s string) {
	if a.Model.Value() == s {
		return
	}
	a.Model.SetValue(s)
}

// Reset clears the text.
func (a *AnswerBox) Reset() {
	a.Model.Reset()
}
