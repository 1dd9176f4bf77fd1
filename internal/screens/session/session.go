package session

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"

	"github.com/abhisek/brainbrew/internal/screen"
	"github.com/abhisek/brainbrew/internal/tutor"
	"github.com/abhisek/brainbrew/internal/ui/components"
	"github.com/abhisek/brainbrew/internal/ui/layout"
	"github.com/abhisek/brainbrew/internal/ui/theme"
)

// Material is what a study session is about.
type Material struct {
	Title      string
	DocumentID string
	Text       string
	Topics     []string
}

// Deps are the collaborators of a study session.
type Deps struct {
	Content tutor.ContentService
	Grader  tutor.GradingService
	Options tutor.Options

	// Dictation is optional; without it the dictation key is hidden.
	Dictation tutor.DictationProvider

	// Recorder, if set, returns the recorder persisting a new session.
	Recorder func(sessionID, documentID string) tutor.Recorder
}

// SessionScreen is the study chat: a scrolling transcript above an answer
// box, driven by a tutor.Controller.
type SessionScreen struct {
	deps     Deps
	material Material

	sid     string // stable across new sessions; tags async messages
	id      string // current session id
	ctrl    *tutor.Controller
	view    tutor.View
	changes chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc

	draft      *tutor.Draft
	dictating  bool
	input      components.AnswerBox
	transcript viewport.Model
	spinner    spinner.Model

	confirming bool
	errMsg     string
	width      int
	height     int
}

var (
	_ screen.Screen          = (*SessionScreen)(nil)
	_ screen.KeyHintProvider = (*SessionScreen)(nil)
	_ screen.BackInterceptor = (*SessionScreen)(nil)
	_ screen.Closer          = (*SessionScreen)(nil)
	_ screen.StatusProvider  = (*SessionScreen)(nil)
)

// New creates a session screen over m. The session starts on Init.
func New(deps Deps, m Material) *SessionScreen {
	ctx, cancel := context.WithCancel(context.Background())
	s := &SessionScreen{
		deps:       deps,
		material:   m,
		sid:        uuid.NewString(),
		changes:    make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
		draft:      &tutor.Draft{},
		input:      components.NewAnswerBox("Type your answer..."),
		transcript: viewport.New(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(theme.Hint)),
	}
	s.newController()
	return s
}

// newController replaces the controller with a fresh one under a new
// session id.
func (s *SessionScreen) newController() {
	s.id = uuid.NewString()
	opts := s.deps.Options
	opts.OnChange = func(tutor.View) { s.signal() }
	if s.deps.Recorder != nil {
		opts.Recorder = s.deps.Recorder(s.id, s.material.DocumentID)
	}
	s.ctrl = tutor.NewController(s.deps.Content, s.deps.Grader, opts)
	s.view = s.ctrl.View()
}

func (s *SessionScreen) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *SessionScreen) Init() tea.Cmd {
	return tea.Batch(
		s.start(),
		s.waitForChange(),
		s.spinner.Tick,
	)
}

func (s *SessionScreen) Title() string {
	if s.material.Title != "" {
		return s.material.Title
	}
	return "Study"
}

// Status shows the question number and difficulty in the header.
func (s *SessionScreen) Status() string {
	if s.view.QuestionNumber == 0 {
		return ""
	}
	return "Q" + strconv.Itoa(s.view.QuestionNumber) + " · " + s.view.Difficulty.String() + "  "
}

func (s *SessionScreen) InterceptsBack() bool {
	return s.confirming
}

// Close cancels anything in flight and stops dictation.
func (s *SessionScreen) Close() {
	s.cancel()
	if s.dictating && s.deps.Dictation != nil {
		_ = s.deps.Dictation.Stop()
	}
	_ = s.ctrl.Reset(true)
}

func (s *SessionScreen) KeyHints() []layout.KeyHint {
	if s.confirming {
		return []layout.KeyHint{
			{Key: "Y", Description: "Start over"},
			{Key: "N", Description: "Keep studying"},
		}
	}
	hints := []layout.KeyHint{{Key: "Ctrl+S", Description: "Submit"}}
	if s.view.HintAvailable {
		hints = append(hints, layout.KeyHint{Key: "Ctrl+T", Description: tutor.HintLabel(s.view.HintsUsed + 1)})
	}
	if s.view.CanRetry {
		hints = append(hints, layout.KeyHint{Key: "Ctrl+R", Description: "Retry"})
	}
	if s.deps.Dictation != nil {
		label := "Dictate"
		if s.dictating {
			label = "Stop dictation"
		}
		hints = append(hints, layout.KeyHint{Key: "Ctrl+D", Description: label})
	}
	return append(hints,
		layout.KeyHint{Key: "Ctrl+N", Description: "New session"},
		layout.KeyHint{Key: "Esc", Description: "Back"},
	)
}

func (s *SessionScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case viewChangedMsg:
		if msg.id != s.sid {
			return s, nil
		}
		s.refresh()
		return s, s.waitForChange()

	case opDoneMsg:
		return s.handleOpDone(msg)

	case dictationEndedMsg:
		if msg.id != s.sid {
			return s, nil
		}
		s.dictating = false
		s.input.SetValue(s.draft.Value())
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			s.errMsg = dictationMessage(msg.Err)
		}
		return s, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyPressMsg:
		return s.handleKey(msg)
	}

	var cmd tea.Cmd
	s.transcript, cmd = s.transcript.Update(msg)
	return s, cmd
}

func (s *SessionScreen) waitForChange() tea.Cmd {
	ctx, ch, id := s.ctx, s.changes, s.sid
	return func() tea.Msg {
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ch:
			return viewChangedMsg{id: id}
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *SessionScreen) refresh() {
	s.view = s.ctrl.View()
	if s.dictating {
		s.input.SetValue(s.draft.Text())
	}
	if s.view.Phase == tutor.PhaseAwaitingAnswer && !s.view.Busy && !s.confirming {
		if !s.input.Focused() {
			s.input.Focus()
		}
	} else {
		s.input.Blur()
	}
	s.layoutTranscript()
}

func (s *SessionScreen) start() tea.Cmd {
	text, topics := s.material.Text, s.material.Topics
	return s.run("start", "", func(ctx context.Context, c *tutor.Controller) error {
		return c.StartSession(ctx, text, topics)
	})
}

// run executes op against the current controller off the UI goroutine.
func (s *SessionScreen) run(op, answer string, fn func(context.Context, *tutor.Controller) error) tea.Cmd {
	ctx, ctrl, id := s.ctx, s.ctrl, s.sid
	return func() tea.Msg {
		return opDoneMsg{id: id, op: op, answer: answer, Err: fn(ctx, ctrl)}
	}
}

func (s *SessionScreen) handleOpDone(msg opDoneMsg) (screen.Screen, tea.Cmd) {
	if msg.id != s.sid {
		return s, nil
	}
	s.refresh()
	err := msg.Err
	if err == nil || errors.Is(err, tutor.ErrSessionReset) || errors.Is(err, context.Canceled) {
		return s, nil
	}
	var grading *tutor.GradingError
	if msg.op == "answer" && errors.As(err, &grading) && s.input.Value() == "" {
		s.input.SetValue(msg.answer)
		s.draft.Set(msg.answer)
	}
	if s.view.Error == "" {
		s.errMsg = tutor.UserMessage(err)
	}
	return s, nil
}

func (s *SessionScreen) handleKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.confirming {
		switch key {
		case "y", "Y":
			s.confirming = false
			return s, s.restart()
		case "n", "N", "esc":
			s.confirming = false
			s.refresh()
		}
		return s, nil
	}

	switch key {
	case "ctrl+s":
		return s, s.submit()
	case "ctrl+t":
		return s, s.hint()
	case "ctrl+r":
		if !s.view.CanRetry {
			return s, nil
		}
		s.errMsg = ""
		return s, s.run("retry", "", func(ctx context.Context, c *tutor.Controller) error {
			return c.Retry(ctx)
		})
	case "ctrl+d":
		return s, s.toggleDictation()
	case "ctrl+n":
		s.confirming = true
		s.input.Blur()
		return s, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		s.transcript, cmd = s.transcript.Update(msg)
		return s, cmd
	}

	if !s.input.Focused() || s.dictating {
		return s, nil
	}
	s.errMsg = ""
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	s.draft.Set(s.input.Value())
	return s, cmd
}

func (s *SessionScreen) submit() tea.Cmd {
	if s.view.Phase != tutor.PhaseAwaitingAnswer || s.view.Busy {
		return nil
	}
	answer := strings.TrimSpace(s.draft.Value())
	if !tutor.AnswerLongEnough(answer) {
		s.errMsg = tutor.UserMessage(tutor.ErrAnswerTooShort)
		return nil
	}
	s.errMsg = ""
	s.input.Reset()
	s.draft.Clear()
	s.input.Blur()
	return s.run("answer", answer, func(ctx context.Context, c *tutor.Controller) error {
		return c.SubmitAnswer(ctx, answer)
	})
}

func (s *SessionScreen) hint() tea.Cmd {
	if !s.view.HintAvailable {
		if s.view.Phase == tutor.PhaseAwaitingAnswer && s.view.HintsRemaining == 0 {
			s.errMsg = tutor.UserMessage(tutor.ErrHintsExhausted)
		}
		return nil
	}
	s.errMsg = ""
	draft := s.draft.Value()
	return s.run("hint", "", func(ctx context.Context, c *tutor.Controller) error {
		return c.RequestHint(ctx, draft)
	})
}

// restart discards the session and starts a new one over the same material.
func (s *SessionScreen) restart() tea.Cmd {
	if s.dictating && s.deps.Dictation != nil {
		_ = s.deps.Dictation.Stop()
	}
	if err := s.ctrl.Reset(true); err != nil {
		s.errMsg = tutor.UserMessage(err)
		return nil
	}
	s.newController()
	s.errMsg = ""
	s.input.Reset()
	s.draft.Clear()
	s.layoutTranscript()
	return s.start()
}

func (s *SessionScreen) toggleDictation() tea.Cmd {
	if s.deps.Dictation == nil {
		s.errMsg = dictationMessage(tutor.ErrDictationUnsupported)
		return nil
	}
	if s.dictating {
		_ = s.deps.Dictation.Stop()
		return nil
	}
	if !s.input.Focused() {
		return nil
	}
	s.errMsg = ""
	s.draft.Set(s.input.Value())
	ended := make(chan error, 1)
	provider := notifyingProvider{DictationProvider: s.deps.Dictation, notify: s.signal}
	if err := s.draft.Dictate(s.ctx, provider, func(err error) { ended <- err }); err != nil {
		s.errMsg = dictationMessage(err)
		return nil
	}
	s.dictating = true
	ctx, id := s.ctx, s.sid
	return func() tea.Msg {
		select {
		case err := <-ended:
			return dictationEndedMsg{id: id, Err: err}
		case <-ctx.Done():
			return nil
		}
	}
}

// notifyingProvider wakes the screen whenever recognition changes the draft.
type notifyingProvider struct {
	tutor.DictationProvider
	notify func()
}

func (p notifyingProvider) Start(ctx context.Context, h tutor.DictationHandler) error {
	wrap := func(fn func(string)) func(string) {
		return func(text string) {
			fn(text)
			p.notify()
		}
	}
	return p.DictationProvider.Start(ctx, tutor.DictationHandler{
		OnPartial: wrap(h.OnPartial),
		OnFinal:   wrap(h.OnFinal),
		OnEnd:     h.OnEnd,
	})
}

func dictationMessage(err error) string {
	switch {
	case errors.Is(err, tutor.ErrMicrophoneDenied):
		return "Microphone access was denied."
	case errors.Is(err, tutor.ErrNoSpeech):
		return "No speech was detected. Try again."
	case errors.Is(err, tutor.ErrDictationUnsupported):
		return "Dictation is not available on this system."
	}
	return "Dictation stopped: " + err.Error()
}
