package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/abhisek/brainbrew/internal/logging"
	"github.com/abhisek/brainbrew/internal/tutor"
)

// DocumentAIConfig names the Document AI OCR processor.
type DocumentAIConfig struct {
	ProjectID   string        `toml:"project_id"`
	Location    string        `toml:"location"`
	ProcessorID string        `toml:"processor_id"`
	Timeout     time.Duration `toml:"timeout"`
}

// Enabled reports whether a processor is configured.
func (c DocumentAIConfig) Enabled() bool {
	return c.ProjectID != "" && c.ProcessorID != ""
}

func (c DocumentAIConfig) processorName() string {
	loc := c.Location
	if loc == "" {
		loc = "us"
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		strings.TrimSpace(c.ProjectID), strings.TrimSpace(loc), strings.TrimSpace(c.ProcessorID))
}

type processFunc func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error)

// DocumentAI reads PDFs with a Google Document AI processor.
type DocumentAI struct {
	name    string
	timeout time.Duration
	process processFunc
	close   func() error
	log     *logging.Logger
}

// NewDocumentAI dials the regional Document AI endpoint.
func NewDocumentAI(ctx context.Context, cfg DocumentAIConfig, log *logging.Logger, opts ...option.ClientOption) (*DocumentAI, error) {
	if !cfg.Enabled() {
		return nil, errors.New("documentai: project and processor are required")
	}
	loc := cfg.Location
	if loc == "" {
		loc = "us"
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", loc)

	c, err := documentai.NewDocumentProcessorClient(ctx, append([]option.ClientOption{option.WithEndpoint(endpoint)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}

	d := newDocumentAI(cfg, func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error) {
		return c.ProcessDocument(ctx, req)
	}, log)
	d.close = c.Close
	d.log.Info("document AI initialized", "endpoint", endpoint)
	return d, nil
}

func newDocumentAI(cfg DocumentAIConfig, process processFunc, log *logging.Logger) *DocumentAI {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &DocumentAI{
		name:    cfg.processorName(),
		timeout: timeout,
		process: process,
		close:   func() error { return nil },
		log:     logging.OrNop(log).Named("documentai"),
	}
}

// ReadPDF sends the bytes inline and returns the document text.
func (d *DocumentAI) ReadPDF(ctx context.Context, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	resp, err := d.process(ctx, &documentaipb.ProcessRequest{
		Name: d.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: pdfContentType,
			},
		},
	})
	if err != nil {
		return "", mapDocumentAIError(err)
	}

	text := ""
	if resp != nil && resp.GetDocument() != nil {
		text = strings.TrimSpace(resp.GetDocument().GetText())
	}
	d.log.Debug("pdf processed", "bytes", len(data), "chars", len(text), "took", time.Since(start))
	if text == "" {
		return "", &tutor.ExtractionError{Reason: "no text could be read from the PDF"}
	}
	return text, nil
}

func (d *DocumentAI) Close() error { return d.close() }

func mapDocumentAIError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("documentai process: %w", err)
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return &tutor.ExtractionError{Reason: "the PDF appears to be corrupted", Err: err}
	case codes.ResourceExhausted:
		return &tutor.GenerationError{Op: "analysis", RateLimited: true, Err: err}
	}
	return fmt.Errorf("documentai process: %w", err)
}
