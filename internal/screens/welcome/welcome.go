package welcome

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/brainbrew/internal/router"
	"github.com/abhisek/brainbrew/internal/screen"
	"github.com/abhisek/brainbrew/internal/ui/theme"
)

const (
	tickInterval = 100 * time.Millisecond
	taglineAt    = 500 * time.Millisecond
	hintAt       = 1500 * time.Millisecond
	totalDur     = 3000 * time.Millisecond
)

const tagline = "Study any document with a patient, Socratic tutor."

// steam frames drift above the banner
var steamFrames = []string{"  ~  ~ ~", " ~ ~  ~ ", "~  ~ ~  "}

type tickMsg time.Time

// WelcomeScreen shows a short splash before the library.
type WelcomeScreen struct {
	next         func() screen.Screen
	elapsed      time.Duration
	tickCount    int
	transitioned bool
}

var _ screen.Screen = (*WelcomeScreen)(nil)

// New creates a WelcomeScreen that replaces itself with next() on a key press.
func New(next func() screen.Screen) *WelcomeScreen {
	return &WelcomeScreen{next: next}
}

func (w *WelcomeScreen) Title() string {
	return ""
}

func (w *WelcomeScreen) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (w *WelcomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg.(type) {
	case tickMsg:
		if w.transitioned {
			return w, nil
		}
		if w.elapsed < totalDur {
			w.elapsed += tickInterval
		}
		w.tickCount++
		return w, tick()

	case tea.KeyPressMsg:
		return w, w.transition()
	}
	return w, nil
}

func (w *WelcomeScreen) transition() tea.Cmd {
	if w.transitioned {
		return nil
	}
	w.transitioned = true
	next := w.next()
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: next}
	}
}

func (w *WelcomeScreen) View(width, height int) string {
	steam := lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render(steamFrames[w.tickCount%len(steamFrames)])

	sections := []string{steam, RenderBanner(width)}

	if w.elapsed >= taglineAt {
		sections = append(sections, "", lipgloss.NewStyle().
			Foreground(theme.Text).
			Bold(true).
			Render(tagline))
	}
	if w.elapsed >= hintAt {
		sections = append(sections, "", lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Italic(true).
			Render("press any key to continue"))
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, strings.Join(sections, "\n"))
}
