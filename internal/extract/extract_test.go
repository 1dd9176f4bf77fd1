package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/abhisek/brainbrew/internal/tutor"
)

type stubPDF struct {
	text  string
	calls int
}

func (s *stubPDF) ReadPDF(context.Context, []byte) (string, error) {
	s.calls++
	return s.text, nil
}

func TestRouter_Extract(t *testing.T) {
	pdf := []byte("%PDF-1.7\n...")
	tests := []struct {
		name       string
		doc        tutor.Document
		want       string
		wantReason string
		pdfCalls   int
	}{
		{"pdf by content type", tutor.Document{Name: "notes", ContentType: "application/pdf", Data: pdf}, "pdf text", "", 1},
		{"pdf by extension", tutor.Document{Name: "Notes.PDF", Data: pdf}, "pdf text", "", 1},
		{"pdf by magic", tutor.Document{Name: "upload", Data: pdf}, "pdf text", "", 1},
		{"pdf content type with params", tutor.Document{ContentType: "application/pdf; charset=binary", Data: pdf}, "pdf text", "", 1},
		{"markdown", tutor.Document{Name: "ch1.md", Data: []byte("  # Cells\n")}, "# Cells", "", 0},
		{"plain text", tutor.Document{ContentType: "text/plain", Data: []byte("mitosis")}, "mitosis", "", 0},
		{"empty", tutor.Document{Name: "a.pdf"}, "", "the file is empty", 0},
		{"fake pdf", tutor.Document{Name: "a.pdf", Data: []byte("hello")}, "", "the file is not a valid PDF", 0},
		{"image", tutor.Document{Name: "a.png", Data: []byte{0x89, 'P', 'N', 'G'}}, "", "please upload a PDF file", 0},
		{"blank text", tutor.Document{Name: "a.txt", Data: []byte(" \n ")}, "", "the file has no text", 0},
		{"bad utf8", tutor.Document{Name: "a.txt", Data: []byte{0xff, 0xfe}}, "", "the text file is not valid UTF-8", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubPDF{text: "pdf text"}
			r := NewRouter(stub)

			got, err := r.Extract(t.Context(), tt.doc)
			if tt.wantReason != "" {
				var ee *tutor.ExtractionError
				if !errors.As(err, &ee) {
					t.Fatalf("err = %v, want ExtractionError", err)
				}
				if ee.Reason != tt.wantReason {
					t.Errorf("Reason = %q, want %q", ee.Reason, tt.wantReason)
				}
			} else if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
			if stub.calls != tt.pdfCalls {
				t.Errorf("pdf calls = %d, want %d", stub.calls, tt.pdfCalls)
			}
		})
	}
}

func TestRouter_SizeLimit(t *testing.T) {
	r := NewRouter(&stubPDF{})
	data := append([]byte("%PDF-"), make([]byte, MaxDocumentBytes)...)

	_, err := r.Extract(t.Context(), tutor.Document{Name: "big.pdf", Data: data})
	var ee *tutor.ExtractionError
	if !errors.As(err, &ee) || !strings.Contains(ee.Reason, "10 MB") {
		t.Errorf("err = %v, want size ExtractionError", err)
	}
}

func TestRouter_NoPDFReader(t *testing.T) {
	_, err := NewRouter(nil).Extract(t.Context(), tutor.Document{Name: "a.pdf", Data: []byte("%PDF-1.4")})
	var ee *tutor.ExtractionError
	if !errors.As(err, &ee) {
		t.Errorf("err = %v, want ExtractionError", err)
	}
}

func TestDocumentAI_ReadPDF(t *testing.T) {
	var got *documentaipb.ProcessRequest
	d := newDocumentAI(DocumentAIConfig{ProjectID: "p", ProcessorID: "ocr"}, func(_ context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error) {
		got = req
		return &documentaipb.ProcessResponse{Document: &documentaipb.Document{Text: " Cells divide.\n"}}, nil
	}, nil)

	text, err := d.ReadPDF(t.Context(), []byte("%PDF-1.7"))
	if err != nil {
		t.Fatalf("ReadPDF: %v", err)
	}
	if text != "Cells divide." {
		t.Errorf("text = %q", text)
	}
	if got.GetName() != "projects/p/locations/us/processors/ocr" {
		t.Errorf("processor name = %q", got.GetName())
	}
	if got.GetRawDocument().GetMimeType() != "application/pdf" {
		t.Errorf("mime type = %q", got.GetRawDocument().GetMimeType())
	}
}

func TestDocumentAI_Errors(t *testing.T) {
	tests := []struct {
		name  string
		resp  *documentaipb.ProcessResponse
		err   error
		check func(t *testing.T, err error)
	}{
		{
			name: "no text",
			resp: &documentaipb.ProcessResponse{Document: &documentaipb.Document{}},
			check: func(t *testing.T, err error) {
				var ee *tutor.ExtractionError
				if !errors.As(err, &ee) {
					t.Errorf("err = %v, want ExtractionError", err)
				}
			},
		},
		{
			name: "corrupt",
			err:  status.Error(codes.InvalidArgument, "Unsupported input file format"),
			check: func(t *testing.T, err error) {
				var ee *tutor.ExtractionError
				if !errors.As(err, &ee) || ee.Reason != "the PDF appears to be corrupted" {
					t.Errorf("err = %v, want corrupted ExtractionError", err)
				}
			},
		},
		{
			name: "quota",
			err:  status.Error(codes.ResourceExhausted, "Quota exceeded"),
			check: func(t *testing.T, err error) {
				if !tutor.IsRateLimited(err) {
					t.Errorf("err = %v, want rate limited", err)
				}
			},
		},
		{
			name: "unavailable",
			err:  status.Error(codes.Unavailable, "down"),
			check: func(t *testing.T, err error) {
				var ee *tutor.ExtractionError
				if err == nil || errors.As(err, &ee) || tutor.IsRateLimited(err) {
					t.Errorf("err = %v, want plain wrapped error", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDocumentAI(DocumentAIConfig{ProjectID: "p", ProcessorID: "ocr", Location: "eu"}, func(context.Context, *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error) {
				return tt.resp, tt.err
			}, nil)
			_, err := d.ReadPDF(t.Context(), []byte("%PDF-1.7"))
			tt.check(t, err)
		})
	}
}

func TestContentType(t *testing.T) {
	for name, want := range map[string]string{
		"a.pdf": "application/pdf",
		"b.MD":  "text/markdown",
		"c.txt": "text/plain",
		"d.doc": "",
	} {
		if got := ContentType(name); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", name, got, want)
		}
	}
}
