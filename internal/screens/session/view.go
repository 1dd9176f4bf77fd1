package session

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/brainbrew/internal/tutor"
	"github.com/abhisek/brainbrew/internal/ui/layout"
	"github.com/abhisek/brainbrew/internal/ui/theme"
)

// Rows used around the transcript: status and rule above; message, busy
// line and the bordered answer box below.
const chromeRows = 2 + 2 + 5

func (s *SessionScreen) View(width, height int) string {
	if width != s.width || height != s.height {
		s.width, s.height = width, height
		s.layoutTranscript()
	}
	if s.confirming {
		return renderResetConfirm(width, height)
	}

	var b strings.Builder
	b.WriteString(s.renderStatus(width))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-2, 0))))
	b.WriteString("\n")
	b.WriteString(s.transcript.View())
	b.WriteString("\n")
	b.WriteString(s.renderMessage(width))
	b.WriteString("\n")
	b.WriteString(s.renderBusy())
	b.WriteString("\n")
	b.WriteString(s.input.View())
	return b.String()
}

// layoutTranscript sizes the transcript viewport and the answer box and
// reloads the transcript, keeping it pinned to the newest entry.
func (s *SessionScreen) layoutTranscript() {
	if s.width == 0 {
		return
	}
	s.transcript.SetWidth(s.width)
	s.transcript.SetHeight(max(s.height-chromeRows, 3))
	s.input.SetWidth(s.width - 2)
	s.transcript.SetContent(renderTranscript(s.view.Transcript, s.width))
	s.transcript.GotoBottom()
}

func (s *SessionScreen) renderStatus(width int) string {
	v := s.view
	if v.QuestionNumber == 0 {
		label := "Preparing your session..."
		if v.Phase == tutor.PhaseIdle && !v.Busy {
			label = "Session not started"
		}
		return theme.Hint.Render("  " + label)
	}

	left := lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render(fmt.Sprintf("  Question %d · %s", v.QuestionNumber, v.Difficulty))

	parts := []string{fmt.Sprintf("Attempt %d/%d", min(v.Attempts+1, tutor.MaxAttempts), tutor.MaxAttempts)}
	parts = append(parts, fmt.Sprintf("Hints left %d", v.HintsRemaining))
	if len(v.Topics) > 0 {
		parts = append(parts, fmt.Sprintf("Topics %d/%d", len(v.ExploredTopics), len(v.Topics)))
	}
	right := lipgloss.NewStyle().Foreground(theme.TextDim).Render(strings.Join(parts, "  "))

	line := left
	if pad := width - lipgloss.Width(left) - lipgloss.Width(right) - 2; pad > 0 {
		line += strings.Repeat(" ", pad) + right
	}
	return line
}

// renderMessage shows, in priority order, an error, a local validation
// message, a difficulty change or the controller's notice.
func (s *SessionScreen) renderMessage(width int) string {
	v := s.view
	switch {
	case v.Error != "":
		msg := v.Error
		if v.CanRetry {
			msg += "  (Ctrl+R to retry)"
		}
		return theme.Warning.Width(width).Render("  " + msg)
	case s.errMsg != "":
		return theme.Warning.Width(width).Render("  " + s.errMsg)
	case v.DifficultyShift == tutor.DecisionIncrement:
		return theme.Notice.Render(fmt.Sprintf("  Nice streak! Stepping up to %s questions.", v.Difficulty))
	case v.DifficultyShift == tutor.DecisionDecrement:
		return lipgloss.NewStyle().Foreground(theme.Accent).Render(fmt.Sprintf("  Let's ease back to %s questions.", v.Difficulty))
	case v.Notice != "":
		return theme.Notice.Render("  " + v.Notice)
	}
	return ""
}

func (s *SessionScreen) renderBusy() string {
	switch {
	case s.dictating:
		return lipgloss.NewStyle().Foreground(theme.Accent).Render("  ● Listening... (Ctrl+D to stop)")
	case !s.view.Busy:
		return ""
	}
	return "  " + s.spinner.View() + theme.Hint.Render(" "+busyLabel(s.view.Phase))
}

func busyLabel(p tutor.Phase) string {
	switch p {
	case tutor.PhaseIntroPending:
		return "Reading your material..."
	case tutor.PhaseGrading:
		return "Checking your answer..."
	case tutor.PhaseExplaining:
		return "Writing an explanation..."
	case tutor.PhaseHinting:
		return "Thinking of a hint..."
	case tutor.PhaseAdvancing:
		return "Moving on..."
	}
	return "Preparing a question..."
}

// renderTranscript renders every entry as a labelled, wrapped paragraph.
func renderTranscript(entries []tutor.Entry, width int) string {
	if len(entries) == 0 {
		return ""
	}
	body := lipgloss.NewStyle().
		Foreground(theme.Text).
		PaddingLeft(4).
		Width(max(width-2, 10))

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("  ")
		b.WriteString(entryLabel(e))
		b.WriteString("\n")
		b.WriteString(body.Render(e.Text))
	}
	return b.String()
}

func entryLabel(e tutor.Entry) string {
	if e.Role == tutor.RoleLearner {
		return theme.LearnerLabel.Render("You")
	}
	label := theme.TutorLabel.Render("Tutor")
	if e.Kind == tutor.KindQuestion {
		label += theme.Hint.Render(" · question")
	}
	return label
}

// renderResetConfirm renders the new-session confirmation dialog.
func renderResetConfirm(width, height int) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("\n", max(height/3, 1)))
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Text).
		Bold(true).
		Render("Start a new session?"))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render(lipgloss.Wrap(tutor.ResetPrompt, max(width-8, 20), " ")))
	b.WriteString("\n\n")
	b.WriteString(layout.Centered("[Y] Yes, start over", width, theme.Error))
	b.WriteString("\n")
	b.WriteString(layout.Centered("[N] No, keep studying", width, theme.Primary))
	return b.String()
}
