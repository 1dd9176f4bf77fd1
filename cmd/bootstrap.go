package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/abhisek/brainbrew/internal/blob"
	"github.com/abhisek/brainbrew/internal/cache"
	"github.com/abhisek/brainbrew/internal/content"
	"github.com/abhisek/brainbrew/internal/extract"
	"github.com/abhisek/brainbrew/internal/grading"
	"github.com/abhisek/brainbrew/internal/library"
	"github.com/abhisek/brainbrew/internal/llm"
	"github.com/abhisek/brainbrew/internal/store"
)

// deps are the services a command needs. Content and Grader are nil unless
// the command asked for a model.
type deps struct {
	Store   *store.Store
	Library *library.Service
	Content *content.Service
	Grader  *grading.Service

	closers []func() error
}

type bootOptions struct {
	// LLM builds the provider, extraction and the analysis cache.
	LLM bool

	// Registry receives the provider metrics. Nil skips them.
	Registry prometheus.Registerer
}

// bootstrap opens storage and, when asked, the model-backed services.
// Callers must Close the result.
func bootstrap(ctx context.Context, opts bootOptions) (_ *deps, err error) {
	if opts.LLM {
		if err := cfg.RequireLLM(); err != nil {
			return nil, err
		}
	}

	st, dbPath, err := openStore()
	if err != nil {
		return nil, err
	}
	d := &deps{Store: st, closers: []func() error{st.Close}}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	blobs, err := blob.Open(ctx, cfg.Blob, log.Named("blob"))
	if err != nil {
		return nil, fmt.Errorf("open document storage: %w", err)
	}
	if c, ok := blobs.(interface{ Close() error }); ok {
		d.closers = append(d.closers, c.Close)
	}
	d.Library = library.NewService(st.DocumentRepo(), blobs, log.Named("library"))

	if !opts.LLM {
		return d, nil
	}

	cacheCfg := cfg.Cache
	if cacheCfg.Backend == "badger" && cacheCfg.Dir == "" && !strings.Contains(dbPath, "://") {
		cacheCfg.Dir = filepath.Join(filepath.Dir(dbPath), "cache")
	}
	analyses, err := cache.Open(ctx, cacheCfg, log.Named("cache"))
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if analyses != nil {
		d.closers = append(d.closers, analyses.Close)
	}

	var metrics *llm.Metrics
	if opts.Registry != nil {
		metrics = llm.NewMetrics(opts.Registry)
	}
	provider, err := llm.NewProvider(ctx, cfg.LLM, llm.Deps{
		Events:  st.EventRepo(),
		Logger:  log.Named("llm"),
		Metrics: metrics,
	})
	if err != nil {
		return nil, err
	}

	var pdf extract.PDFReader
	if cfg.DocumentAI.Enabled() {
		dai, err := extract.NewDocumentAI(ctx, cfg.DocumentAI, log.Named("documentai"))
		if err != nil {
			return nil, fmt.Errorf("document ai: %w", err)
		}
		d.closers = append(d.closers, dai.Close)
		pdf = dai
	}

	d.Content = content.NewService(provider, extract.NewRouter(pdf), analyses, cfg.Content, log.Named("content"))
	d.Grader = grading.NewService(provider, cfg.Grading, log.Named("grading"))
	return d, nil
}

// Close releases everything in reverse order of opening.
func (d *deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}
