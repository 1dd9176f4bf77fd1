package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/abhisek/brainbrew/internal/logging"
)

const (
	// EncouragementNotice is shown after a strong answer while the next
	// question is prepared.
	EncouragementNotice = "Great job! Moving to the next question..."

	// ResetPrompt is the confirmation text shown before Reset discards a session.
	ResetPrompt = "Are you sure you want to start a new session? This will clear all progress and conversation history."
)

// Options tunes a Controller.
type Options struct {
	// IntroDelay separates the introduction from the first question.
	IntroDelay time.Duration

	// AdvanceDelay is how long a resolved question's explanation stays on
	// screen before the next question is requested.
	AdvanceDelay time.Duration

	// CallTimeout bounds every collaborator call. Zero disables the bound.
	CallTimeout time.Duration

	// StartDifficulty is the level of the first question. Zero means
	// DifficultyBasic.
	StartDifficulty Difficulty

	Logger   *logging.Logger
	Metrics  *Metrics
	Recorder Recorder

	// OnChange, if set, is called with a fresh View after every state change.
	// It runs on the goroutine of the operation that caused the change and
	// must not call back into the controller's mutating methods.
	OnChange func(View)

	Now func() time.Time
}

// DefaultOptions returns the production timings.
func DefaultOptions() Options {
	return Options{
		IntroDelay:   500 * time.Millisecond,
		AdvanceDelay: 2 * time.Second,
		CallTimeout:  45 * time.Second,
	}
}

type stepFunc func(ctx context.Context, epoch uint64) error

// Controller drives one learning session. Operations are serialized: while
// one is in flight every other mutating call fails fast with ErrBusy. Reset
// is the exception; it cancels the in-flight operation and any result that
// arrives afterwards is discarded.
type Controller struct {
	content ContentService
	grader  GradingService
	opts    Options
	log     *logging.Logger

	mu         sync.Mutex
	phase      Phase
	state      *SessionState
	transcript Transcript
	busy       bool
	epoch      uint64
	cancel     context.CancelFunc
	retry      stepFunc
	retryOp    string
	lastErr    string
	notice     string
	change     Decision
	pending    []Entry
}

// NewController creates an idle controller.
func NewController(content ContentService, grader GradingService, opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		content: content,
		grader:  grader,
		opts:    opts,
		log:     logging.OrNop(opts.Logger).Named("tutor"),
	}
}

// StartSession begins a session over documentText, introduces the material
// and asks the first question. If the introduction fails the session stays
// in PhaseIntroPending with a retry bound.
func (c *Controller) StartSession(ctx context.Context, documentText string, topics []string) (err error) {
	defer c.observe("start", time.Now(), &err)

	if strings.TrimSpace(documentText) == "" {
		return ErrEmptyDocument
	}
	ctx, epoch, done, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	err = c.update(ctx, epoch, func() error {
		if c.phase != PhaseIdle {
			return &PhaseError{Op: "start session", Phase: c.phase}
		}
		c.lastErr = ""
		c.state = NewSessionState(documentText, topics)
		if c.opts.StartDifficulty.Valid() {
			c.state.Difficulty = c.opts.StartDifficulty
		}
		c.transcript = Transcript{}
		c.setPhase(PhaseIntroPending)
		return nil
	})
	if err != nil {
		return err
	}
	c.log.Info("session started", "topics", len(topics), "chars", len(documentText))
	return c.introduce(ctx, epoch)
}

// RequestNextQuestion asks for a question when the session is waiting for one.
func (c *Controller) RequestNextQuestion(ctx context.Context) (err error) {
	defer c.observe("question", time.Now(), &err)

	ctx, epoch, done, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer done()
	return c.nextQuestion(ctx, epoch)
}

// SubmitAnswer grades answer against the current question and moves the
// session on. Answers shorter than MinAnswerLength are rejected without
// touching the session.
func (c *Controller) SubmitAnswer(ctx context.Context, answer string) (err error) {
	if !AnswerLongEnough(answer) {
		return ErrAnswerTooShort
	}
	defer c.observe("answer", time.Now(), &err)

	ctx, epoch, done, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	var question, text string
	var difficulty Difficulty
	err = c.update(ctx, epoch, func() error {
		if c.phase != PhaseAwaitingAnswer || c.state.CurrentQuestion == "" {
			return ErrNoActiveQuestion
		}
		c.lastErr = ""
		c.appendEntry(RoleLearner, KindAnswer, answer)
		question, text, difficulty = c.state.CurrentQuestion, c.state.DocumentText, c.state.Difficulty
		c.setPhase(PhaseGrading)
		return nil
	})
	if err != nil {
		return err
	}

	callCtx, cancel := c.withTimeout(ctx)
	outcome, err := c.grader.Evaluate(callCtx, question, answer, text, difficulty)
	cancel()

	graded := true
	if err != nil {
		if !timedOut(ctx, err) {
			gerr := asGradingError(err)
			return c.report(ctx, epoch, gerr, PhaseAwaitingAnswer)
		}
		c.log.Warn("grading timed out, using fallback outcome", "timeout", c.opts.CallTimeout)
		outcome, graded = timeoutOutcome(), false
	}

	exhausted := false
	err = c.update(ctx, epoch, func() error {
		if graded {
			c.opts.Metrics.observeGrade(outcome.Quality)
			if dec := c.state.recordGrade(outcome.Quality); dec != DecisionNone {
				c.change = dec
				c.opts.Metrics.observeDecision(dec)
				c.log.Info("difficulty adjusted", "direction", dec, "difficulty", c.state.Difficulty)
			}
		}
		if outcome.Quality == QualityStrong {
			c.setPhase(PhaseExplaining)
			return nil
		}
		c.appendEntry(RoleTutor, KindExplanation, outcome.Feedback)
		if c.state.Attempts+1 >= MaxAttempts {
			exhausted = true
			c.setPhase(PhaseAdvancing)
			return nil
		}
		c.state.Attempts++
		c.setPhase(PhaseAwaitingAnswer)
		return nil
	})
	if err != nil {
		return err
	}

	switch {
	case outcome.Quality == QualityStrong:
		return c.explain(ctx, epoch, question, answer, text, difficulty, outcome.Feedback)
	case exhausted:
		c.log.Debug("attempts exhausted, advancing")
		return c.advance(ctx, epoch)
	}
	return nil
}

// RequestHint asks for the next hint on the current question. draft is the
// learner's answer in progress and may be empty.
func (c *Controller) RequestHint(ctx context.Context, draft string) (err error) {
	defer c.observe("hint", time.Now(), &err)

	ctx, epoch, done, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	var question, text string
	var difficulty Difficulty
	var ordinal int
	err = c.update(ctx, epoch, func() error {
		if c.phase != PhaseAwaitingAnswer || c.state.CurrentQuestion == "" {
			return ErrNoActiveQuestion
		}
		if c.state.HintsUsed >= MaxHints {
			return ErrHintsExhausted
		}
		c.lastErr = ""
		ordinal = c.state.HintsUsed + 1
		question, text, difficulty = c.state.CurrentQuestion, c.state.DocumentText, c.state.Difficulty
		c.setPhase(PhaseHinting)
		return nil
	})
	if err != nil {
		return err
	}

	draft = strings.TrimSpace(trailingMarker.ReplaceAllString(draft, ""))

	callCtx, cancel := c.withTimeout(ctx)
	hint, err := c.content.Hint(callCtx, question, draft, ordinal, text, difficulty)
	cancel()
	if err != nil {
		return c.report(ctx, epoch, asGenerationError("hint", err), PhaseAwaitingAnswer)
	}

	return c.update(ctx, epoch, func() error {
		c.appendEntry(RoleTutor, KindExplanation, HintLabel(ordinal)+": "+hint)
		c.state.HintsUsed = ordinal
		c.setPhase(PhaseAwaitingAnswer)
		return nil
	})
}

// Retry re-runs the step that last failed with a bound retry: the
// introduction or a question request.
func (c *Controller) Retry(ctx context.Context) (err error) {
	defer c.observe("retry", time.Now(), &err)

	ctx, epoch, done, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	c.mu.Lock()
	step := c.retry
	c.mu.Unlock()
	if step == nil {
		return ErrNothingToRetry
	}
	return step(ctx, epoch)
}

// Reset discards the session and returns to PhaseIdle. It must be confirmed
// because all progress is lost. Any in-flight operation is cancelled.
func (c *Controller) Reset(confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.epoch++
	c.busy = false
	c.phase = PhaseIdle
	c.state = nil
	c.transcript = Transcript{}
	c.retry = nil
	c.retryOp = ""
	c.lastErr = ""
	c.notice = ""
	c.change = DecisionNone
	c.pending = nil
	c.mu.Unlock()

	c.notify()
	return nil
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Transcript returns a copy of the session transcript.
func (c *Controller) Transcript() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.All()
}

// HintLabel returns the ordinal label prefixed to the n-th hint.
func HintLabel(n int) string {
	return fmt.Sprintf("Hint %d/%d", n, MaxHints)
}

func (c *Controller) introduce(ctx context.Context, epoch uint64) error {
	var text, topic string
	var difficulty Difficulty
	err := c.update(ctx, epoch, func() error {
		if c.phase != PhaseIntroPending {
			return &PhaseError{Op: "introduction", Phase: c.phase}
		}
		c.lastErr = ""
		text, topic, difficulty = c.state.DocumentText, c.state.FirstTopic(), c.state.Difficulty
		return nil
	})
	if err != nil {
		return err
	}

	callCtx, cancel := c.withTimeout(ctx)
	intro, err := c.content.Introduce(callCtx, text, difficulty, topic)
	cancel()
	if err != nil {
		return c.fail(ctx, epoch, asGenerationError("introduction", err), "introduction", c.introduce)
	}

	err = c.update(ctx, epoch, func() error {
		c.appendEntry(RoleTutor, KindExplanation, intro)
		c.clearRetry()
		c.setPhase(PhaseAwaitingQuestion)
		return nil
	})
	if err != nil {
		return err
	}

	if err := c.pause(ctx, epoch, c.opts.IntroDelay); errors.Is(err, ErrSessionReset) {
		return err
	}
	return c.nextQuestion(ctx, epoch)
}

func (c *Controller) nextQuestion(ctx context.Context, epoch uint64) error {
	var text, topic string
	var difficulty Difficulty
	var history []Entry
	err := c.update(ctx, epoch, func() error {
		if c.phase != PhaseAwaitingQuestion {
			return &PhaseError{Op: "request question", Phase: c.phase}
		}
		c.lastErr = ""
		topic = c.state.TopicHint()
		c.state.markExplored(topic)
		text, difficulty = c.state.DocumentText, c.state.Difficulty
		history = c.transcript.All()
		return nil
	})
	if err != nil {
		return err
	}

	callCtx, cancel := c.withTimeout(ctx)
	question, err := c.content.NextQuestion(callCtx, text, difficulty, history, topic)
	cancel()
	if err != nil {
		return c.fail(ctx, epoch, asGenerationError("question", err), "question", c.nextQuestion)
	}

	return c.update(ctx, epoch, func() error {
		c.appendEntry(RoleTutor, KindQuestion, question)
		c.state.CurrentQuestion = question
		c.clearRetry()
		c.setPhase(PhaseAwaitingAnswer)
		return nil
	})
}

func (c *Controller) explain(ctx context.Context, epoch uint64, question, answer, text string, difficulty Difficulty, feedback string) error {
	callCtx, cancel := c.withTimeout(ctx)
	explanation, err := c.content.Explain(callCtx, question, answer, text, difficulty)
	cancel()
	if err != nil {
		if !timedOut(ctx, err) {
			return c.report(ctx, epoch, asGenerationError("explanation", err), PhaseAwaitingAnswer)
		}
		c.log.Warn("explanation timed out, using grader feedback", "timeout", c.opts.CallTimeout)
		explanation = feedback
	}

	err = c.update(ctx, epoch, func() error {
		if explanation != "" {
			c.appendEntry(RoleTutor, KindExplanation, explanation)
		}
		c.notice = EncouragementNotice
		c.setPhase(PhaseAdvancing)
		return nil
	})
	if err != nil {
		return err
	}
	return c.advance(ctx, epoch)
}

// advance resolves the current question after the display delay and asks
// for the next one.
func (c *Controller) advance(ctx context.Context, epoch uint64) error {
	if err := c.pause(ctx, epoch, c.opts.AdvanceDelay); errors.Is(err, ErrSessionReset) {
		return err
	}
	err := c.update(ctx, epoch, func() error {
		c.state.advance()
		c.setPhase(PhaseAwaitingQuestion)
		return nil
	})
	if err != nil {
		return err
	}
	return c.nextQuestion(ctx, epoch)
}

// begin claims the single operation slot.
func (c *Controller) begin(ctx context.Context) (context.Context, uint64, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return nil, 0, nil, ErrBusy
	}
	opCtx, cancel := context.WithCancel(ctx)
	c.busy = true
	c.cancel = cancel
	c.notice = ""
	c.change = DecisionNone
	epoch := c.epoch

	done := func() {
		cancel()
		c.mu.Lock()
		if c.epoch == epoch {
			c.busy = false
			c.cancel = nil
		}
		c.mu.Unlock()
		c.notify()
	}
	return opCtx, epoch, done, nil
}

// update runs fn under the lock unless the session was reset since epoch.
// Entries appended by fn are handed to the recorder after the lock is released.
func (c *Controller) update(ctx context.Context, epoch uint64, fn func() error) error {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return ErrSessionReset
	}
	err := fn()
	pending := c.pending
	c.pending = nil
	var difficulty Difficulty
	if c.state != nil {
		difficulty = c.state.Difficulty
	}
	c.mu.Unlock()

	c.record(ctx, pending, difficulty)
	if err == nil {
		c.notify()
	}
	return err
}

// fail records a retryable failure and binds step as the retry action.
func (c *Controller) fail(ctx context.Context, epoch uint64, err error, op string, step stepFunc) error {
	c.log.Warn("step failed", "op", op, "error", err, "rate_limited", IsRateLimited(err))
	uerr := c.update(ctx, epoch, func() error {
		c.lastErr = UserMessage(err)
		c.retry = step
		c.retryOp = op
		return nil
	})
	if uerr != nil {
		return uerr
	}
	return err
}

// report records a non-retryable failure and returns to phase.
func (c *Controller) report(ctx context.Context, epoch uint64, err error, phase Phase) error {
	c.log.Warn("operation failed", "error", err, "rate_limited", IsRateLimited(err))
	uerr := c.update(ctx, epoch, func() error {
		c.lastErr = UserMessage(err)
		c.setPhase(phase)
		return nil
	})
	if uerr != nil {
		return uerr
	}
	return err
}

func (c *Controller) pause(ctx context.Context, epoch uint64, d time.Duration) error {
	err := sleep(ctx, d)
	if c.stale(epoch) {
		return ErrSessionReset
	}
	return err
}

func (c *Controller) stale(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch != epoch
}

// setPhase moves the machine; the caller holds c.mu.
func (c *Controller) setPhase(to Phase) {
	if !CanTransition(c.phase, to) {
		c.log.Error("illegal phase transition", "from", c.phase, "to", to)
	}
	c.phase = to
}

// appendEntry adds to the transcript; the caller holds c.mu.
func (c *Controller) appendEntry(role Role, kind Kind, text string) {
	e := Entry{Role: role, Kind: kind, Text: text, Timestamp: c.opts.Now()}
	c.transcript.Append(e)
	c.pending = append(c.pending, e)
}

// clearRetry drops the bound retry; the caller holds c.mu.
func (c *Controller) clearRetry() {
	c.retry = nil
	c.retryOp = ""
}

func (c *Controller) record(ctx context.Context, entries []Entry, difficulty Difficulty) {
	if c.opts.Recorder == nil || len(entries) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, e := range entries {
		if err := c.opts.Recorder.Record(ctx, e, difficulty); err != nil {
			c.log.Warn("failed to record transcript entry", "kind", e.Kind, "error", err)
		}
	}
}

func (c *Controller) notify() {
	if c.opts.OnChange != nil {
		c.opts.OnChange(c.View())
	}
}

func (c *Controller) observe(op string, start time.Time, err *error) {
	c.opts.Metrics.observeOp(op, start, *err)
}

func (c *Controller) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opts.CallTimeout)
}

// timedOut reports whether err came from the per-call timeout rather than
// from the operation's own context ending.
func timedOut(parent context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func asGenerationError(op string, err error) error {
	var gen *GenerationError
	if errors.As(err, &gen) {
		return err
	}
	return &GenerationError{Op: op, RateLimited: IsRateLimited(err), Err: err}
}

func asGradingError(err error) error {
	var grade *GradingError
	if errors.As(err, &grade) {
		return err
	}
	return &GradingError{RateLimited: IsRateLimited(err), Err: err}
}
