package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/brainbrew/internal/screen"
	"github.com/abhisek/brainbrew/internal/store"
	"github.com/abhisek/brainbrew/internal/tutor"
	"github.com/abhisek/brainbrew/internal/ui/layout"
	"github.com/abhisek/brainbrew/internal/ui/theme"
)

const sessionLimit = 50

type historyLoadedMsg struct {
	Sessions []store.SessionSummary
	Err      error
}

type transcriptLoadedMsg struct {
	SessionID string
	Entries   []store.Exchange
	Err       error
}

// Exchanges is the read side of the recorded transcripts.
type Exchanges interface {
	BySession(ctx context.Context, sessionID string) ([]store.Exchange, error)
	Sessions(ctx context.Context, userID string, limit int) ([]store.SessionSummary, error)
}

// HistoryScreen lists past study sessions and replays their transcripts.
type HistoryScreen struct {
	repo     Exchanges
	userID   string
	titles   map[string]string // document id → file name
	sessions []store.SessionSummary
	selected int
	loaded   bool
	errMsg   string

	open   string // session id whose transcript is shown
	reader viewport.Model
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)
var _ screen.BackInterceptor = (*HistoryScreen)(nil)

// New creates a HistoryScreen for userID. titles names the documents
// sessions were studied from.
func New(repo Exchanges, userID string, titles map[string]string) *HistoryScreen {
	return &HistoryScreen{
		repo:   repo,
		userID: userID,
		titles: titles,
		reader: viewport.New(),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	repo, userID := s.repo, s.userID
	return func() tea.Msg {
		sessions, err := repo.Sessions(context.Background(), userID, sessionLimit)
		return historyLoadedMsg{Sessions: sessions, Err: err}
	}
}

func (s *HistoryScreen) Title() string {
	return "History"
}

func (s *HistoryScreen) InterceptsBack() bool {
	return s.open != ""
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	if s.open != "" {
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Scroll"},
			{Key: "Esc", Description: "Sessions"},
		}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Transcript"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		s.loaded = true
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.sessions = msg.Sessions
		return s, nil

	case transcriptLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.open = msg.SessionID
		s.reader.SetContent(renderExchanges(msg.Entries, max(s.reader.Width(), 40)))
		s.reader.GotoTop()
		return s, nil

	case tea.KeyPressMsg:
		if s.open != "" {
			if msg.String() == "esc" {
				s.open = ""
				return s, nil
			}
			var cmd tea.Cmd
			s.reader, cmd = s.reader.Update(msg)
			return s, cmd
		}
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.sessions)-1 {
				s.selected++
			}
		case "enter":
			if s.selected < len(s.sessions) {
				return s, s.loadTranscript(s.sessions[s.selected].SessionID)
			}
		}
	}
	return s, nil
}

func (s *HistoryScreen) loadTranscript(id string) tea.Cmd {
	repo := s.repo
	s.errMsg = ""
	return func() tea.Msg {
		entries, err := repo.BySession(context.Background(), id)
		return transcriptLoadedMsg{SessionID: id, Entries: entries, Err: err}
	}
}

func (s *HistoryScreen) View(width, height int) string {
	if s.open != "" {
		s.reader.SetWidth(width)
		s.reader.SetHeight(max(height-1, 3))
		return s.reader.View()
	}
	if s.errMsg != "" {
		return layout.Centered(fmt.Sprintf("\n\nError: %s", s.errMsg), width, theme.Error)
	}
	if !s.loaded {
		return layout.Centered("\n\n  Loading history...", width, theme.TextDim)
	}
	if len(s.sessions) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No sessions yet. Pick a document and start studying!")
	}

	var b strings.Builder
	b.WriteString("\n")
	for i, sess := range s.sessions {
		title := s.titles[sess.DocumentID]
		if title == "" {
			title = "pasted text"
		}
		duration := sess.LastAt.Sub(sess.StartedAt).Round(time.Second)

		prefix := "  "
		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			prefix = "> "
			style = theme.Selected
		}
		line := fmt.Sprintf("%s%s  %-24s  %3d messages  %s",
			prefix, sess.StartedAt.Format("Jan 02, 2006 15:04"), truncate(title, 24), sess.Entries, duration)
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")
	}
	return b.String()
}

// renderExchanges formats a stored transcript for reading.
func renderExchanges(entries []store.Exchange, width int) string {
	body := lipgloss.NewStyle().Foreground(theme.Text).PaddingLeft(4).Width(width - 2)

	var b strings.Builder
	for i, ex := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := theme.TutorLabel.Render("Tutor")
		if tutor.Role(ex.Role) == tutor.RoleLearner {
			label = theme.LearnerLabel.Render("You")
		}
		meta := ex.CreatedAt.Format("15:04")
		if d := tutor.Difficulty(ex.Difficulty); d.Valid() {
			meta += " · " + d.String()
		}
		b.WriteString("  " + label + theme.Hint.Render("  "+meta))
		b.WriteString("\n")
		b.WriteString(body.Render(ex.Text))
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
