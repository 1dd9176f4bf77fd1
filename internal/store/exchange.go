package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abhisek/brainbrew/internal/tutor"
)

type exchangeRepo struct {
	s *Store
}

func (r *exchangeRepo) Append(ctx context.Context, ex *Exchange) error {
	seqNum, err := r.s.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now()
	}
	ex.Sequence = seqNum

	_, err = r.s.exec(ctx, `INSERT INTO exchanges
		(sequence, session_id, user_id, document_id, seq, role, kind, text, difficulty, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seqNum, ex.SessionID, ex.UserID, ex.DocumentID, ex.Seq, ex.Role, ex.Kind,
		ex.Text, ex.Difficulty, ex.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save exchange: %w", err)
	}
	return nil
}

func (r *exchangeRepo) BySession(ctx context.Context, sessionID string) ([]Exchange, error) {
	rows, err := r.s.query(ctx, `SELECT id, sequence, session_id, user_id, document_id, seq,
		role, kind, text, difficulty, created_at
		FROM exchanges WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var (
			ex      Exchange
			created int64
		)
		if err := rows.Scan(&ex.ID, &ex.Sequence, &ex.SessionID, &ex.UserID, &ex.DocumentID, &ex.Seq,
			&ex.Role, &ex.Kind, &ex.Text, &ex.Difficulty, &created); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		ex.CreatedAt = time.UnixMilli(created)
		out = append(out, ex)
	}
	return out, rows.Err()
}

func (r *exchangeRepo) Sessions(ctx context.Context, userID string, limit int) ([]SessionSummary, error) {
	q := `SELECT session_id, MAX(document_id), COUNT(*), MIN(created_at), MAX(created_at)
		FROM exchanges WHERE user_id = ? GROUP BY session_id ORDER BY MAX(created_at) DESC`
	args := []any{userID}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var (
			s           SessionSummary
			first, last int64
		)
		if err := rows.Scan(&s.SessionID, &s.DocumentID, &s.Entries, &first, &last); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.StartedAt, s.LastAt = time.UnixMilli(first), time.UnixMilli(last)
		out = append(out, s)
	}
	return out, rows.Err()
}

// SessionRecorder persists one session's transcript entries as they are
// appended. It implements tutor.Recorder.
type SessionRecorder struct {
	repo       ExchangeRepo
	sessionID  string
	userID     string
	documentID string

	mu  sync.Mutex
	seq int
}

var _ tutor.Recorder = (*SessionRecorder)(nil)

// NewSessionRecorder creates a recorder for one session.
func NewSessionRecorder(repo ExchangeRepo, sessionID, userID, documentID string) *SessionRecorder {
	return &SessionRecorder{repo: repo, sessionID: sessionID, userID: userID, documentID: documentID}
}

func (r *SessionRecorder) Record(ctx context.Context, e tutor.Entry, difficulty tutor.Difficulty) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	err := r.repo.Append(ctx, &Exchange{
		SessionID:  r.sessionID,
		UserID:     r.userID,
		DocumentID: r.documentID,
		Seq:        r.seq,
		Role:       string(e.Role),
		Kind:       string(e.Kind),
		Text:       e.Text,
		Difficulty: int(difficulty),
		CreatedAt:  e.Timestamp,
	})
	if err != nil {
		r.seq--
		return &tutor.StorageError{Op: "record exchange", Err: err}
	}
	return nil
}
