package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBusy                 = errors.New("another operation is in progress")
	ErrAnswerTooShort       = fmt.Errorf("answer must be at least %d characters", MinAnswerLength)
	ErrNoActiveQuestion     = errors.New("no question is awaiting an answer")
	ErrHintsExhausted       = fmt.Errorf("all %d hints for this question have been used", MaxHints)
	ErrConfirmationRequired = errors.New("starting a new session discards all progress and must be confirmed")
	ErrNothingToRetry       = errors.New("nothing to retry")
	ErrEmptyDocument        = errors.New("document has no text")
	ErrSessionReset         = errors.New("session was reset")
	ErrNotFound             = errors.New("not found")
)

// PhaseError reports an operation attempted in a phase that does not allow it.
type PhaseError struct {
	Op    string
	Phase Phase
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s not allowed while %s", e.Op, e.Phase)
}

// ExtractionError reports a document that could not be read.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract document: %s: %v", e.Reason, e.Err)
	}
	return "extract document: " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// GenerationError reports a content service failure. RateLimited marks
// quota and throttling failures that resolve by waiting.
type GenerationError struct {
	Op          string
	RateLimited bool
	Err         error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// GradingError reports a grading service failure.
type GradingError struct {
	RateLimited bool
	Err         error
}

func (e *GradingError) Error() string {
	return fmt.Sprintf("grade answer: %v", e.Err)
}

func (e *GradingError) Unwrap() error { return e.Err }

// StorageError reports a persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

const rateLimitMessage = "API rate limit reached. Please wait a moment and try again."

// IsRateLimited reports whether err is a quota or throttling failure.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var gen *GenerationError
	if errors.As(err, &gen) && gen.RateLimited {
		return true
	}
	var grade *GradingError
	if errors.As(err, &grade) && grade.RateLimited {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota")
}

// UserMessage turns err into text suitable for showing to the learner.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if IsRateLimited(err) {
		return rateLimitMessage
	}

	var (
		gen     *GenerationError
		grade   *GradingError
		extract *ExtractionError
		storage *StorageError
		phase   *PhaseError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "The tutor took too long to respond. Please try again."
	case errors.As(err, &gen):
		return fmt.Sprintf("Failed to generate %s. Please try again.", gen.Op)
	case errors.As(err, &grade):
		return "Failed to evaluate answer. Please submit it again."
	case errors.As(err, &extract):
		return "Could not read that document: " + extract.Reason + "."
	case errors.As(err, &storage):
		return "Could not reach storage. Please try again."
	case errors.As(err, &phase):
		return "Please wait for the tutor to finish."
	case errors.Is(err, ErrBusy):
		return "Please wait for the tutor to finish."
	case errors.Is(err, ErrNoSpeech):
		return "No speech detected. Please try again."
	case errors.Is(err, ErrMicrophoneDenied):
		return "Microphone permission denied. Please enable it in your settings."
	case errors.Is(err, ErrDictationUnsupported):
		return "Speech recognition is not supported here."
	}
	return err.Error()
}
