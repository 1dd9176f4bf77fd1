package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/brainbrew/internal/ui/layout"
)

// Screen is one page of the study app.
type Screen interface {
	// Init returns an initial command when the screen is first shown.
	Init() tea.Cmd

	// Update handles messages and returns updated screen + command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the screen content (excluding header/footer).
	View(width, height int) string

	// Title returns the screen name for the header.
	Title() string
}

// KeyHintProvider is implemented by screens with their own footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// BackInterceptor is implemented by screens that handle Esc themselves,
// for example while a dialog is open.
type BackInterceptor interface {
	InterceptsBack() bool
}

// Closer is implemented by screens that own background work. Close is
// called once when the screen leaves the stack.
type Closer interface {
	Close()
}

// StatusProvider is implemented by screens that contribute text to the
// right side of the header.
type StatusProvider interface {
	Status() string
}
