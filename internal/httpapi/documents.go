package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/abhisek/brainbrew/internal/account"
	"github.com/abhisek/brainbrew/internal/extract"
	"github.com/abhisek/brainbrew/internal/store"
	"github.com/abhisek/brainbrew/internal/tutor"
)

// multipartOverhead leaves room for form boundaries and fields around the
// largest accepted file.
const multipartOverhead = 1 << 20

type documentJSON struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	FilePath  string    `json:"file_path"`
	FileSize  int64     `json:"file_size"`
	Topics    []string  `json:"topics"`
	Concepts  []string  `json:"concepts,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toDocumentJSON(r tutor.Record) documentJSON {
	return documentJSON{
		ID:        r.ID,
		FileName:  r.FileName,
		FilePath:  r.FilePath,
		FileSize:  r.FileSize,
		Topics:    lo.Ternary(r.Topics == nil, []string{}, r.Topics),
		CreatedAt: r.CreatedAt,
	}
}

// uploadDocument analyses an uploaded file and stores it with its topics.
func (h *handler) uploadDocument(c *gin.Context) {
	userID, err := account.UserID(c.Request.Context())
	if err != nil {
		abortUnauthorized(c, err.Error())
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, extract.MaxDocumentBytes+multipartOverhead)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(c, &tutor.ExtractionError{Reason: fmt.Sprintf("the file is larger than %d MB", extract.MaxDocumentBytes>>20)}, nil)
			return
		}
		badRequest(c, "missing_file", errors.New("a multipart field named \"file\" is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "invalid_file", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, extract.MaxDocumentBytes+1))
	if err != nil {
		badRequest(c, "invalid_file", err)
		return
	}

	name := filepath.Base(fh.Filename)
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = extract.ContentType(name)
	}

	ctx := c.Request.Context()
	analysis, err := h.deps.Content.Analyze(ctx, tutor.Document{Name: name, ContentType: contentType, Data: data})
	if err != nil {
		h.respondError(c, err, nil)
		return
	}

	rec, err := h.deps.Library.Store(ctx, userID, tutor.Blob{
		FileName:    name,
		ContentType: contentType,
		Data:        data,
		Topics:      analysis.Topics,
		Concepts:    analysis.Concepts,
		Text:        analysis.Text,
	})
	if err != nil {
		h.respondError(c, err, nil)
		return
	}

	out := toDocumentJSON(rec)
	out.Concepts = analysis.Concepts
	c.JSON(http.StatusCreated, out)
}

func (h *handler) listDocuments(c *gin.Context) {
	userID, err := account.UserID(c.Request.Context())
	if err != nil {
		abortUnauthorized(c, err.Error())
		return
	}
	recs, err := h.deps.Library.List(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": lo.Map(recs, func(r tutor.Record, _ int) documentJSON {
		return toDocumentJSON(r)
	})})
}

func (h *handler) documentURL(c *gin.Context) {
	userID, err := account.UserID(c.Request.Context())
	if err != nil {
		abortUnauthorized(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	doc, err := h.ownedDocument(ctx, c.Param("id"), userID)
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	u, err := h.deps.Library.URL(ctx, doc.ID)
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": u})
}

func (h *handler) deleteDocument(c *gin.Context) {
	userID, err := account.UserID(c.Request.Context())
	if err != nil {
		abortUnauthorized(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	doc, err := h.ownedDocument(ctx, c.Param("id"), userID)
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	if err := h.deps.Library.Delete(ctx, doc.ID); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// ownedDocument loads a document and hides documents of other users.
func (h *handler) ownedDocument(ctx context.Context, id, userID string) (*store.Document, error) {
	doc, err := h.deps.Library.Document(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.UserID != userID {
		return nil, tutor.ErrNotFound
	}
	return doc, nil
}
