package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/brainbrew/internal/router"
	"github.com/abhisek/brainbrew/internal/screen"
	"github.com/abhisek/brainbrew/internal/screens/history"
	"github.com/abhisek/brainbrew/internal/screens/session"
	"github.com/abhisek/brainbrew/internal/store"
	"github.com/abhisek/brainbrew/internal/tutor"
	"github.com/abhisek/brainbrew/internal/ui/components"
	"github.com/abhisek/brainbrew/internal/ui/layout"
	"github.com/abhisek/brainbrew/internal/ui/theme"
)

// Library is the part of the document library the home screen reads.
type Library interface {
	List(ctx context.Context, userID string) ([]tutor.Record, error)
	Document(ctx context.Context, handle string) (*store.Document, error)
}

// Deps are the collaborators of the home screen.
type Deps struct {
	Library   Library
	Exchanges store.ExchangeRepo // optional; enables the history entry
	UserID    string
	Session   session.Deps
}

type libraryLoadedMsg struct {
	Records []tutor.Record
	Err     error
}

type documentOpenedMsg struct {
	Doc *store.Document
	Err error
}

// HomeScreen lists the learner's documents and starts study sessions.
type HomeScreen struct {
	deps    Deps
	records []tutor.Record
	menu    components.Menu
	loaded  bool
	opening bool
	errMsg  string
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)

// New creates a HomeScreen. The library loads on Init.
func New(deps Deps) *HomeScreen {
	h := &HomeScreen{deps: deps}
	h.menu = components.NewMenu(h.items())
	return h
}

func (h *HomeScreen) Init() tea.Cmd {
	return h.load()
}

func (h *HomeScreen) Title() string {
	return "Library"
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Study"},
		{Key: "R", Description: "Reload"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (h *HomeScreen) load() tea.Cmd {
	lib, userID := h.deps.Library, h.deps.UserID
	return func() tea.Msg {
		if lib == nil {
			return libraryLoadedMsg{}
		}
		recs, err := lib.List(context.Background(), userID)
		return libraryLoadedMsg{Records: recs, Err: err}
	}
}

func (h *HomeScreen) open(id string) tea.Cmd {
	lib := h.deps.Library
	h.opening = true
	h.errMsg = ""
	return func() tea.Msg {
		doc, err := lib.Document(context.Background(), id)
		return documentOpenedMsg{Doc: doc, Err: err}
	}
}

func (h *HomeScreen) items() []components.MenuItem {
	items := make([]components.MenuItem, 0, len(h.records)+2)
	for _, r := range h.records {
		id := r.ID
		items = append(items, components.MenuItem{
			Label:  r.FileName,
			Detail: strings.Join(r.Topics, " · "),
			Action: func() tea.Cmd { return h.open(id) },
		})
	}
	if h.deps.Exchanges != nil {
		repo, userID := h.deps.Exchanges, h.deps.UserID
		titles := make(map[string]string, len(h.records))
		for _, r := range h.records {
			titles[r.ID] = r.FileName
		}
		items = append(items, components.MenuItem{
			Label: "Session history",
			Action: func() tea.Cmd {
				return func() tea.Msg {
					return router.PushScreenMsg{Screen: history.New(repo, userID, titles)}
				}
			},
		})
	}
	return append(items, components.MenuItem{Label: "Quit", Action: func() tea.Cmd { return tea.Quit }})
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case libraryLoadedMsg:
		h.loaded = true
		if msg.Err != nil {
			h.errMsg = tutor.UserMessage(msg.Err)
			return h, nil
		}
		h.errMsg = ""
		h.records = msg.Records
		selected := h.menu.Selected
		h.menu = components.NewMenu(h.items())
		if selected < len(h.menu.Items) {
			h.menu.Selected = selected
		}
		return h, nil

	case documentOpenedMsg:
		h.opening = false
		if msg.Err != nil {
			h.errMsg = tutor.UserMessage(msg.Err)
			return h, nil
		}
		m := session.Material{
			Title:      msg.Doc.FileName,
			DocumentID: msg.Doc.ID,
			Text:       msg.Doc.Text,
			Topics:     msg.Doc.Topics,
		}
		return h, func() tea.Msg {
			return router.PushScreenMsg{Screen: session.New(h.deps.Session, m)}
		}

	case tea.KeyPressMsg:
		if h.opening {
			return h, nil
		}
		if msg.String() == "r" {
			return h, h.load()
		}
		var cmd tea.Cmd
		h.menu, cmd = h.menu.Update(msg)
		return h, cmd
	}
	return h, nil
}

func (h *HomeScreen) View(width, height int) string {
	cw := min(width-4, 72)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(theme.Title.Width(width).Render("Your study library"))
	b.WriteString("\n\n")

	switch {
	case !h.loaded:
		b.WriteString(layout.Centered("Loading documents...", width, theme.TextDim))
		return b.String()
	case len(h.records) == 0:
		b.WriteString(theme.Subtitle.Width(width).Render(
			"No documents yet. Add one with `brainbrew docs upload <file>`\nor study a file directly with `brainbrew study <file>`."))
		b.WriteString("\n\n")
	}

	menu := theme.Card.Width(cw).Render(strings.TrimRight(h.menu.View(cw-6), "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, menu))
	b.WriteString("\n")

	switch {
	case h.opening:
		b.WriteString(layout.Centered("Opening document...", width, theme.TextDim))
	case h.errMsg != "":
		b.WriteString(layout.Centered(h.errMsg, width, theme.Error))
	default:
		b.WriteString(layout.Centered(fmt.Sprintf("%d document(s)", len(h.records)), width, theme.TextDim))
	}
	return b.String()
}
