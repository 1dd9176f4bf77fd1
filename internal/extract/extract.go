// Package extract turns uploaded documents into plain text.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/abhisek/brainbrew/internal/tutor"
)

// MaxDocumentBytes is the largest document accepted for study.
const MaxDocumentBytes = 10 << 20

const pdfContentType = "application/pdf"

var pdfMagic = []byte("%PDF-")

// PDFReader extracts text from a validated PDF.
type PDFReader interface {
	ReadPDF(ctx context.Context, data []byte) (string, error)
}

// Router validates a document and dispatches it by type. PDFs go to the
// configured PDFReader. Plain text and markdown are read directly.
type Router struct {
	pdf      PDFReader
	maxBytes int
}

// NewRouter creates a Router. A nil pdf reader rejects PDFs.
func NewRouter(pdf PDFReader) *Router {
	return &Router{pdf: pdf, maxBytes: MaxDocumentBytes}
}

func (r *Router) Extract(ctx context.Context, doc tutor.Document) (string, error) {
	if len(doc.Data) == 0 {
		return "", &tutor.ExtractionError{Reason: "the file is empty"}
	}
	if len(doc.Data) > r.maxBytes {
		return "", &tutor.ExtractionError{Reason: fmt.Sprintf("the file is larger than %d MB", r.maxBytes>>20)}
	}

	switch kind(doc) {
	case kindPDF:
		if !bytes.HasPrefix(doc.Data, pdfMagic) {
			return "", &tutor.ExtractionError{Reason: "the file is not a valid PDF"}
		}
		if r.pdf == nil {
			return "", &tutor.ExtractionError{Reason: "PDF extraction is not configured"}
		}
		return r.pdf.ReadPDF(ctx, doc.Data)
	case kindText:
		return readText(doc.Data)
	}
	return "", &tutor.ExtractionError{Reason: "please upload a PDF file"}
}

type docKind int

const (
	kindUnknown docKind = iota
	kindPDF
	kindText
)

func kind(doc tutor.Document) docKind {
	ct := strings.ToLower(strings.TrimSpace(doc.ContentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch {
	case ct == pdfContentType:
		return kindPDF
	case ct == "text/plain" || ct == "text/markdown":
		return kindText
	}

	switch strings.ToLower(filepath.Ext(doc.Name)) {
	case ".pdf":
		return kindPDF
	case ".txt", ".md", ".markdown":
		return kindText
	}
	if bytes.HasPrefix(doc.Data, pdfMagic) {
		return kindPDF
	}
	return kindUnknown
}

func readText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", &tutor.ExtractionError{Reason: "the text file is not valid UTF-8"}
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", &tutor.ExtractionError{Reason: "the file has no text"}
	}
	return text, nil
}

// ContentType guesses a content type from a file name for callers that
// read documents from disk.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return pdfContentType
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	}
	return ""
}
