package tutor

import (
	"context"
	"errors"
	"regexp"
	"sync"
)

// ListeningMarker is shown at the end of a draft while dictation hears speech
// that has not been finalized yet.
const ListeningMarker = "[Listening...]"

var (
	ErrDictationUnsupported = errors.New("speech recognition is not available")
	ErrNoSpeech             = errors.New("no speech detected")
	ErrMicrophoneDenied     = errors.New("microphone permission denied")
)

// DictationHandler receives recognition results.
type DictationHandler struct {
	OnPartial func(text string)
	OnFinal   func(text string)
	OnEnd     func(err error)
}

// DictationProvider is an optional speech-to-text capability feeding the
// answer draft. Start returns once recognition is running; results arrive on
// the handler until Stop is called or ctx ends, after which OnEnd fires once.
type DictationProvider interface {
	Start(ctx context.Context, h DictationHandler) error
	Stop() error
}

var trailingMarker = regexp.MustCompile(` ?\[Listening\.\.\.\]$`)

// Draft is the learner's answer being composed, by keyboard or dictation.
// It is safe for concurrent use since recognition callbacks arrive on their
// own goroutine.
type Draft struct {
	mu        sync.Mutex
	text      string
	listening bool
}

// Set replaces the draft with typed text.
func (d *Draft) Set(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
}

// Text returns the draft as displayed, including any listening marker.
func (d *Draft) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// Value returns the draft without the listening marker.
func (d *Draft) Value() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return trailingMarker.ReplaceAllString(d.text, "")
}

// Listening reports whether dictation is active.
func (d *Draft) Listening() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listening
}

// Clear empties the draft.
func (d *Draft) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = ""
}

func (d *Draft) partial(string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = trailingMarker.ReplaceAllString(d.text, "") + " " + ListeningMarker
}

func (d *Draft) final(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = trailingMarker.ReplaceAllString(d.text, "") + text + " "
}

func (d *Draft) end() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listening = false
	d.text = trailingMarker.ReplaceAllString(d.text, "")
}

// Dictate starts p and routes its results into the draft. onEnd, if set, is
// called after recognition stops with the terminating error, if any.
func (d *Draft) Dictate(ctx context.Context, p DictationProvider, onEnd func(error)) error {
	if p == nil {
		return ErrDictationUnsupported
	}
	d.mu.Lock()
	d.listening = true
	d.mu.Unlock()

	err := p.Start(ctx, DictationHandler{
		OnPartial: d.partial,
		OnFinal:   d.final,
		OnEnd: func(err error) {
			d.end()
			if onEnd != nil {
				onEnd(err)
			}
		},
	})
	if err != nil {
		d.end()
		return err
	}
	return nil
}
