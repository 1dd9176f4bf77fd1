package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/brainbrew/internal/tutor"
)

type documentRepo struct {
	s *Store
}

func (r *documentRepo) Create(ctx context.Context, doc *Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	topics, err := json.Marshal(nonNil(doc.Topics))
	if err != nil {
		return fmt.Errorf("encode topics: %w", err)
	}
	concepts, err := json.Marshal(nonNil(doc.Concepts))
	if err != nil {
		return fmt.Errorf("encode concepts: %w", err)
	}

	_, err = r.s.exec(ctx, `INSERT INTO documents
		(id, user_id, file_name, file_path, file_size, content_type, topics, concepts, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.UserID, doc.FileName, doc.FilePath, doc.FileSize, doc.ContentType,
		string(topics), string(concepts), doc.Text, doc.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

const documentColumns = `id, user_id, file_name, file_path, file_size, content_type, topics, concepts, body, created_at`

func scanDocument(sc interface{ Scan(...any) error }) (Document, error) {
	var (
		d                Document
		topics, concepts string
		created          int64
	)
	if err := sc.Scan(&d.ID, &d.UserID, &d.FileName, &d.FilePath, &d.FileSize, &d.ContentType,
		&topics, &concepts, &d.Text, &created); err != nil {
		return d, err
	}
	d.CreatedAt = time.UnixMilli(created)
	if err := json.Unmarshal([]byte(topics), &d.Topics); err != nil {
		return d, fmt.Errorf("decode topics: %w", err)
	}
	if err := json.Unmarshal([]byte(concepts), &d.Concepts); err != nil {
		return d, fmt.Errorf("decode concepts: %w", err)
	}
	return d, nil
}

func (r *documentRepo) Get(ctx context.Context, id string) (*Document, error) {
	d, err := scanDocument(r.s.queryRow(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tutor.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return &d, nil
}

func (r *documentRepo) ListByUser(ctx context.Context, userID string) ([]Document, error) {
	rows, err := r.s.query(ctx, "SELECT "+documentColumns+
		" FROM documents WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *documentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.s.exec(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return tutor.ErrNotFound
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
