package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/brainbrew/internal/llm"
	"github.com/abhisek/brainbrew/internal/tutor"
)

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error   apiError     `json:"error"`
	Session *sessionJSON `json:"session,omitempty"`
}

// statusFor maps a domain error to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	var (
		phase   *tutor.PhaseError
		extract *tutor.ExtractionError
		gen     *tutor.GenerationError
		grade   *tutor.GradingError
	)
	switch {
	case tutor.IsRateLimited(err) || llm.IsRateLimit(err):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, tutor.ErrBusy):
		return http.StatusConflict, "busy"
	case errors.As(err, &phase):
		return http.StatusConflict, "wrong_phase"
	case errors.Is(err, tutor.ErrNoActiveQuestion):
		return http.StatusConflict, "no_active_question"
	case errors.Is(err, tutor.ErrNothingToRetry):
		return http.StatusConflict, "nothing_to_retry"
	case errors.Is(err, tutor.ErrSessionReset):
		return http.StatusConflict, "session_reset"
	case errors.Is(err, tutor.ErrAnswerTooShort):
		return http.StatusUnprocessableEntity, "answer_too_short"
	case errors.Is(err, tutor.ErrHintsExhausted):
		return http.StatusUnprocessableEntity, "hints_exhausted"
	case errors.Is(err, tutor.ErrConfirmationRequired):
		return http.StatusUnprocessableEntity, "confirmation_required"
	case errors.Is(err, tutor.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &extract):
		return http.StatusBadRequest, "extraction_failed"
	case errors.Is(err, tutor.ErrEmptyDocument):
		return http.StatusBadRequest, "empty_document"
	case errors.As(err, &gen):
		return http.StatusBadGateway, "generation_failed"
	case errors.As(err, &grade):
		return http.StatusBadGateway, "grading_failed"
	}
	return http.StatusInternalServerError, "internal"
}

func (h *handler) respondError(c *gin.Context, err error, sess *sessionJSON) {
	status, code := statusFor(err)
	if status >= 500 {
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, errorEnvelope{
		Error:   apiError{Message: tutor.UserMessage(err), Code: code},
		Session: sess,
	})
}

func badRequest(c *gin.Context, code string, err error) {
	msg := "invalid request"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(http.StatusBadRequest, errorEnvelope{Error: apiError{Message: msg, Code: code}})
}
