package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"catalog-builder/catalog"
	"catalog-builder/config"
	"catalog-builder/models"
	"catalog-builder/publish"
	"catalog-builder/render"
	"catalog-builder/screenshot"
	"catalog-builder/storage"
	"catalog-builder/thumbnail"
	"catalog-builder/utils"
)

// BrowserSession is a Capturer that holds resources until Close.
type BrowserSession interface {
	screenshot.Capturer
	Close()
}

// Publisher pushes the finished page somewhere public.
type Publisher interface {
	Publish(ctx context.Context, pagePath, thumbDir, thumbKeyDir string) (int, error)
}

// Pipeline runs load → index → capture → thumbnail → render, then the
// optional record and publish steps.
type Pipeline struct {
	cfg    *config.Config
	logger *utils.Logger

	// OpenBrowser starts the capture session. It is only called when at
	// least one screenshot is missing.
	OpenBrowser func(ctx context.Context) (BrowserSession, error)
	// Manifests receive the capture results. Errors are logged, not fatal.
	Manifests []storage.ManifestWriter
	// Publisher is optional; a failed publish fails the run.
	Publisher Publisher
}

// NewPipeline wires the default Chrome session. Manifests and Publisher are
// left for the caller to attach.
func NewPipeline(cfg *config.Config, logger *utils.Logger) *Pipeline {
	p := &Pipeline{cfg: cfg, logger: logger}
	p.OpenBrowser = func(ctx context.Context) (BrowserSession, error) {
		return screenshot.NewSession(ctx, screenshot.Options{
			ChromeBin:         cfg.ChromeBin,
			Width:             cfg.ViewportWidth,
			Height:            cfg.ViewportHeight,
			Tabs:              cfg.MaxConcurrency,
			NavigationTimeout: cfg.NavigationTimeout,
			Logger:            logger,
		})
	}
	return p
}

// Run executes every stage and returns the run summary. Load errors abort
// before any browser or filesystem work.
func (p *Pipeline) Run(ctx context.Context) (*models.CatalogSummary, error) {
	cfg := p.cfg
	start := time.Now()

	products, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	p.logger.Info("[catalog] Loaded %d products from %s", len(products), cfg.CatalogPath)

	idx := catalog.BuildIndex(products)
	p.logger.Info("[catalog] Indexed %d categories", len(idx.Keys))

	results, err := p.capture(ctx, catalog.URLs(products))
	if err != nil {
		return nil, err
	}

	thumbs := &thumbnail.Generator{
		SrcDir:      cfg.ScreenshotDir,
		DstDir:      cfg.ThumbnailDir,
		MaxWidth:    cfg.ThumbnailWidth,
		MaxHeight:   cfg.ThumbnailHeight,
		Concurrency: cfg.MaxConcurrency,
		Logger:      p.logger,
	}
	thumbCount, err := thumbs.Run(ctx)
	if err != nil {
		return nil, err
	}

	renderer := &render.Renderer{
		TemplatePath:  cfg.TemplatePath,
		OutputPath:    cfg.OutputPath,
		ThumbnailDir:  cfg.ThumbnailDir,
		ScreenshotDir: cfg.ScreenshotDir,
		Logger:        p.logger,
	}
	if err := renderer.Render(idx); err != nil {
		return nil, err
	}

	p.record(products, results)

	if p.Publisher != nil {
		rel, err := filepath.Rel(filepath.Dir(cfg.OutputPath), cfg.ThumbnailDir)
		if err != nil {
			rel = filepath.Base(cfg.ThumbnailDir)
		}
		if _, err := p.Publisher.Publish(ctx, cfg.OutputPath, cfg.ThumbnailDir, rel); err != nil {
			return nil, err
		}
	}

	summary := NewSummaryService(p.logger).Generate(idx, products, results, thumbCount, cfg.OutputPath)
	p.logger.Info("[pipeline] Finished in %v", time.Since(start).Round(time.Millisecond))
	return summary, nil
}

// capture owns the browser for exactly the duration of the screenshot stage.
func (p *Pipeline) capture(ctx context.Context, urls []string) ([]*models.CaptureResult, error) {
	cfg := p.cfg
	fetcher := &screenshot.Fetcher{
		Dir:          cfg.ScreenshotDir,
		Concurrency:  cfg.MaxConcurrency,
		Interval:     cfg.CaptureInterval,
		AbortOnError: cfg.AbortOnCaptureError,
		Retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      p.logger,
		},
		Logger: p.logger,
	}

	pending := fetcher.Pending(urls)
	p.logger.Info("[screenshot] %d URLs, %d need a screenshot", len(urls), len(pending))

	if len(pending) > 0 {
		session, err := p.OpenBrowser(ctx)
		if err != nil {
			return nil, fmt.Errorf("screenshot: start browser: %w", err)
		}
		defer session.Close()
		fetcher.Capturer = session
	} else {
		fetcher.Capturer = noBrowser{}
	}

	return fetcher.Fetch(ctx, urls)
}

func (p *Pipeline) record(products []*models.Product, results []*models.CaptureResult) {
	for _, m := range p.Manifests {
		if err := m.WriteCaptures(products, results); err != nil {
			p.logger.Error("[storage] Writing capture records failed: %v", err)
		}
	}
}

// noBrowser stands in when every screenshot is already cached.
type noBrowser struct{}

func (noBrowser) Capture(ctx context.Context, url string) ([]byte, error) {
	return nil, fmt.Errorf("no browser session for %s", url)
}

var _ Publisher = (*publish.S3Publisher)(nil)
