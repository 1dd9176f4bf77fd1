package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/abhisek/brainbrew/internal/account"
	"github.com/abhisek/brainbrew/internal/logging"
	"github.com/abhisek/brainbrew/internal/store"
	"github.com/abhisek/brainbrew/internal/tutor"
)

// DefaultSessionTTL evicts sessions nobody has touched for two hours.
const DefaultSessionTTL = 2 * time.Hour

type liveSession struct {
	id         string
	userID     string
	documentID string
	ctrl       *tutor.Controller
	lastUsed   time.Time
}

// Sessions is the in-memory registry of running study sessions.
type Sessions struct {
	mu    sync.Mutex
	items map[string]*liveSession
	ttl   time.Duration
	now   func() time.Time
}

// NewSessions creates a registry that evicts sessions idle for ttl.
func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{items: make(map[string]*liveSession), ttl: ttl, now: time.Now}
}

func (s *Sessions) add(ls *liveSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls.lastUsed = s.now()
	s.items[ls.id] = ls
}

// get returns the session if it exists and belongs to userID. Sessions of
// other users are reported as missing.
func (s *Sessions) get(id, userID string) (*liveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.items[id]
	if !ok || ls.userID != userID {
		return nil, tutor.ErrNotFound
	}
	ls.lastUsed = s.now()
	return ls, nil
}

func (s *Sessions) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep evicts idle sessions, cancelling anything they still run, and
// returns how many were removed.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	cutoff := s.now().Add(-s.ttl)
	var idle []*liveSession
	for id, ls := range s.items {
		if ls.lastUsed.Before(cutoff) {
			idle = append(idle, ls)
			delete(s.items, id)
		}
	}
	s.mu.Unlock()

	for _, ls := range idle {
		_ = ls.ctrl.Reset(true)
	}
	return len(idle)
}

// RunSweeper sweeps every quarter TTL until ctx is done.
func (s *Sessions) RunSweeper(ctx context.Context, log *logging.Logger) {
	log = logging.OrNop(log)
	ticker := time.NewTicker(s.ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Info("evicted idle sessions", "count", n)
			}
		}
	}
}

// Close resets and drops every session.
func (s *Sessions) Close() {
	s.mu.Lock()
	all := lo.Values(s.items)
	s.items = make(map[string]*liveSession)
	s.mu.Unlock()
	for _, ls := range all {
		_ = ls.ctrl.Reset(true)
	}
}

type createSessionRequest struct {
	DocumentID string   `json:"document_id" binding:"required_without=Text"`
	Text       string   `json:"text" binding:"required_without=DocumentID"`
	Topics     []string `json:"topics"`
}

type answerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

type hintRequest struct {
	Draft string `json:"draft"`
}

// opContext detaches a controller operation from the HTTP request so a
// dropped connection does not abandon a half-finished step. The
// controller bounds each call with its own timeout.
func opContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func (h *handler) createSession(c *gin.Context) {
	userID, err := account.UserID(c.Request.Context())
	if err != nil {
		abortUnauthorized(c, err.Error())
		return
	}
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_body", err)
		return
	}

	text, topics := req.Text, req.Topics
	if req.DocumentID != "" {
		doc, err := h.ownedDocument(c.Request.Context(), req.DocumentID, userID)
		if err != nil {
			h.respondError(c, err, nil)
			return
		}
		text, topics = doc.Text, doc.Topics
	}
	if strings.TrimSpace(text) == "" {
		h.respondError(c, tutor.ErrEmptyDocument, nil)
		return
	}

	id := uuid.NewString()
	opts := h.deps.Tutor
	opts.Logger = h.log.With("session_id", id)
	opts.Metrics = h.metrics
	if h.deps.Exchanges != nil {
		opts.Recorder = store.NewSessionRecorder(h.deps.Exchanges, id, userID, req.DocumentID)
	}
	ls := &liveSession{
		id:         id,
		userID:     userID,
		documentID: req.DocumentID,
		ctrl:       tutor.NewController(h.deps.Content, h.deps.Grader, opts),
	}
	h.sessions.add(ls)

	if err := ls.ctrl.StartSession(opContext(c), text, topics); err != nil {
		view := toSessionJSON(ls)
		h.respondError(c, err, &view)
		return
	}
	c.JSON(http.StatusCreated, toSessionJSON(ls))
}

func (h *handler) session(c *gin.Context) (*liveSession, bool) {
	userID, err := account.UserID(c.Request.Context())
	if err != nil {
		abortUnauthorized(c, err.Error())
		return nil, false
	}
	ls, err := h.sessions.get(c.Param("id"), userID)
	if err != nil {
		h.respondError(c, err, nil)
		return nil, false
	}
	return ls, true
}

func (h *handler) getSession(c *gin.Context) {
	ls, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toSessionJSON(ls))
}

func (h *handler) answer(c *gin.Context) {
	ls, ok := h.session(c)
	if !ok {
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_body", err)
		return
	}
	h.run(c, ls, func(ctx context.Context) error {
		return ls.ctrl.SubmitAnswer(ctx, req.Answer)
	})
}

func (h *handler) hint(c *gin.Context) {
	ls, ok := h.session(c)
	if !ok {
		return
	}
	var req hintRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid_body", err)
			return
		}
	}
	h.run(c, ls, func(ctx context.Context) error {
		return ls.ctrl.RequestHint(ctx, req.Draft)
	})
}

func (h *handler) retry(c *gin.Context) {
	ls, ok := h.session(c)
	if !ok {
		return
	}
	h.run(c, ls, ls.ctrl.Retry)
}

func (h *handler) resetSession(c *gin.Context) {
	ls, ok := h.session(c)
	if !ok {
		return
	}
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	if err := ls.ctrl.Reset(confirmed); err != nil {
		view := toSessionJSON(ls)
		h.respondError(c, err, &view)
		return
	}
	h.sessions.remove(ls.id)
	c.Status(http.StatusNoContent)
}

func (h *handler) run(c *gin.Context, ls *liveSession, op func(context.Context) error) {
	if err := op(opContext(c)); err != nil {
		view := toSessionJSON(ls)
		h.respondError(c, err, &view)
		return
	}
	c.JSON(http.StatusOK, toSessionJSON(ls))
}

type entryJSON struct {
	Role      string    `json:"role"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type sessionJSON struct {
	ID              string      `json:"id"`
	DocumentID      string      `json:"document_id,omitempty"`
	Phase           string      `json:"phase"`
	Busy            bool        `json:"busy"`
	QuestionNumber  int         `json:"question_number"`
	Attempts        int         `json:"attempts"`
	HintsUsed       int         `json:"hints_used"`
	HintsRemaining  int         `json:"hints_remaining"`
	HintAvailable   bool        `json:"hint_available"`
	Difficulty      int         `json:"difficulty"`
	DifficultyName  string      `json:"difficulty_name,omitempty"`
	DifficultyShift string      `json:"difficulty_shift,omitempty"`
	CurrentQuestion string      `json:"current_question,omitempty"`
	Topics          []string    `json:"topics"`
	ExploredTopics  []string    `json:"explored_topics"`
	Transcript      []entryJSON `json:"transcript"`
	CanRetry        bool        `json:"can_retry"`
	RetryOp         string      `json:"retry_op,omitempty"`
	Error           string      `json:"error,omitempty"`
	Notice          string      `json:"notice,omitempty"`
}

func toSessionJSON(ls *liveSession) sessionJSON {
	v := ls.ctrl.View()
	out := sessionJSON{
		ID:              ls.id,
		DocumentID:      ls.documentID,
		Phase:           v.Phase.String(),
		Busy:            v.Busy,
		QuestionNumber:  v.QuestionNumber,
		Attempts:        v.Attempts,
		HintsUsed:       v.HintsUsed,
		HintsRemaining:  v.HintsRemaining,
		HintAvailable:   v.HintAvailable,
		Difficulty:      int(v.Difficulty),
		CurrentQuestion: v.CurrentQuestion,
		Topics:          lo.Ternary(v.Topics == nil, []string{}, v.Topics),
		ExploredTopics:  lo.Ternary(v.ExploredTopics == nil, []string{}, v.ExploredTopics),
		Transcript: lo.Map(v.Transcript, func(e tutor.Entry, _ int) entryJSON {
			return entryJSON{Role: string(e.Role), Kind: string(e.Kind), Text: e.Text, Timestamp: e.Timestamp}
		}),
		CanRetry: v.CanRetry,
		RetryOp:  v.RetryOp,
		Error:    v.Error,
		Notice:   v.Notice,
	}
	if v.Difficulty.Valid() {
		out.DifficultyName = v.Difficulty.String()
	}
	if v.DifficultyShift != tutor.DecisionNone {
		out.DifficultyShift = v.DifficultyShift.String()
	}
	return out
}
