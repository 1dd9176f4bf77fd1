// Package library keeps each user's uploaded study documents: the file in
// blob storage and a record with its analysis in the database.
package library

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/abhisek/brainbrew/internal/blob"
	"github.com/abhisek/brainbrew/internal/logging"
	"github.com/abhisek/brainbrew/internal/store"
	"github.com/abhisek/brainbrew/internal/tutor"
)

// Service implements tutor.PersistenceService. Handles are document IDs.
type Service struct {
	docs  store.DocumentRepo
	blobs blob.Store
	log   *logging.Logger

	now   func() time.Time
	newID func() string
}

var _ tutor.PersistenceService = (*Service)(nil)

// NewService creates a library over a document repo and a blob store.
func NewService(docs store.DocumentRepo, blobs blob.Store, log *logging.Logger) *Service {
	return &Service{
		docs:  docs,
		blobs: blobs,
		log:   logging.OrNop(log).Named("library"),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// ObjectKey returns the blob key for a file uploaded by userID at t:
// <userID>/<unix millis>.<ext>.
func ObjectKey(userID, fileName string, t time.Time) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(fileName)), ".")
	if ext == "" {
		ext = "pdf"
	}
	return fmt.Sprintf("%s/%d.%s", userID, t.UnixMilli(), ext)
}

// Store uploads the file and then saves its record. If the record cannot
// be saved the uploaded file is removed again.
func (s *Service) Store(ctx context.Context, userID string, b tutor.Blob) (tutor.Record, error) {
	if strings.TrimSpace(userID) == "" {
		return tutor.Record{}, errors.New("library: user id is required")
	}
	if strings.ContainsAny(userID, `/\`) {
		return tutor.Record{}, fmt.Errorf("library: invalid user id %q", userID)
	}

	now := s.now()
	key := ObjectKey(userID, b.FileName, now)
	if err := s.blobs.Put(ctx, key, b.ContentType, b.Data); err != nil {
		return tutor.Record{}, &tutor.StorageError{Op: "upload", Err: err}
	}

	doc := &store.Document{
		ID:          s.newID(),
		UserID:      userID,
		FileName:    b.FileName,
		FilePath:    key,
		FileSize:    int64(len(b.Data)),
		ContentType: b.ContentType,
		Topics:      b.Topics,
		Concepts:    b.Concepts,
		Text:        b.Text,
		CreatedAt:   now,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.Warn("orphaned upload", "key", key, "error", delErr)
		}
		return tutor.Record{}, &tutor.StorageError{Op: "save record", Err: err}
	}

	s.log.Info("document stored", "user", userID, "id", doc.ID, "bytes", doc.FileSize)
	return toRecord(*doc), nil
}

// List returns the user's documents newest first.
func (s *Service) List(ctx context.Context, userID string) ([]tutor.Record, error) {
	docs, err := s.docs.ListByUser(ctx, userID)
	if err != nil {
		return nil, &tutor.StorageError{Op: "list", Err: err}
	}
	return lo.Map(docs, func(d store.Document, _ int) tutor.Record { return toRecord(d) }), nil
}

// Document returns the full record, including the analysed text, for
// handle.
func (s *Service) Document(ctx context.Context, handle string) (*store.Document, error) {
	doc, err := s.docs.Get(ctx, handle)
	if err != nil {
		return nil, storageErr("get", err)
	}
	return doc, nil
}

// URL returns a link to the stored file.
func (s *Service) URL(ctx context.Context, handle string) (string, error) {
	doc, err := s.docs.Get(ctx, handle)
	if err != nil {
		return "", storageErr("get", err)
	}
	u, err := s.blobs.URL(ctx, doc.FilePath)
	if err != nil {
		return "", storageErr("url", err)
	}
	return u, nil
}

// Delete removes the file and then the record. A file that is already
// gone does not block removing the record.
func (s *Service) Delete(ctx context.Context, handle string) error {
	doc, err := s.docs.Get(ctx, handle)
	if err != nil {
		return storageErr("get", err)
	}
	if err := s.blobs.Delete(ctx, doc.FilePath); err != nil && !errors.Is(err, tutor.ErrNotFound) {
		return &tutor.StorageError{Op: "delete file", Err: err}
	}
	if err := s.docs.Delete(ctx, handle); err != nil {
		return storageErr("delete record", err)
	}
	s.log.Info("document deleted", "id", handle)
	return nil
}

func storageErr(op string, err error) error {
	if errors.Is(err, tutor.ErrNotFound) {
		return tutor.ErrNotFound
	}
	return &tutor.StorageError{Op: op, Err: err}
}

func toRecord(d store.Document) tutor.Record {
	return tutor.Record{
		ID:        d.ID,
		UserID:    d.UserID,
		FileName:  d.FileName,
		FilePath:  d.FilePath,
		FileSize:  d.FileSize,
		Topics:    d.Topics,
		CreatedAt: d.CreatedAt,
	}
}
