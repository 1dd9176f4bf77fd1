package store

import (
	"context"
	"fmt"
	"strings"
)

// Timestamps are stored as Unix milliseconds so both dialects scan them
// the same way.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS llm_events (
		id {{serial}},
		sequence BIGINT NOT NULL,
		timestamp BIGINT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms BIGINT NOT NULL DEFAULT 0,
		success BOOLEAN NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT '',
		cost_usd DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS llm_events_sequence ON llm_events (sequence)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		file_name TEXT NOT NULL,
		file_path TEXT NOT NULL,
		file_size BIGINT NOT NULL,
		content_type TEXT NOT NULL DEFAULT '',
		topics TEXT NOT NULL DEFAULT '[]',
		concepts TEXT NOT NULL DEFAULT '[]',
		body TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS documents_user_created ON documents (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS exchanges (
		id {{serial}},
		sequence BIGINT NOT NULL,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		document_id TEXT NOT NULL DEFAULT '',
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		kind TEXT NOT NULL,
		text TEXT NOT NULL,
		difficulty INTEGER NOT NULL,
		created_at BIGINT NOT NULL,
		UNIQUE (session_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS exchanges_user ON exchanges (user_id, created_at)`,
}

func (s *Store) migrate(ctx context.Context) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.dialect == Postgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}
	for _, stmt := range schemaStatements {
		stmt = strings.ReplaceAll(stmt, "{{serial}}", serial)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
