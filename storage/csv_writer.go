package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"catalog-builder/models"
)

var manifestHeader = []string{
	"name", "url", "image_name", "status", "error", "duration_ms", "recorded_at",
}

// CSVWriter records the outcome of every capture in a manifest file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *csv.Writer
	now    func() time.Time
}

// NewCSVWriter prepares a manifest at path. The file is created (or
// truncated) on the first write, so a run that fails before recording keeps
// the previous manifest.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("csv: empty manifest path")
	}
	return &CSVWriter{path: path, now: time.Now}, nil
}

func (c *CSVWriter) open() error {
	if c.writer != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", c.path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(manifestHeader); err != nil {
		_ = f.Close()
		return fmt.Errorf("csv: write header: %w", err)
	}

	c.file, c.writer = f, w
	return nil
}

// WriteCaptures writes one row per product. A product whose URL has no
// result (the run stopped before reaching it) is recorded as "skipped".
func (c *CSVWriter) WriteCaptures(products []*models.Product, results []*models.CaptureResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.open(); err != nil {
		return err
	}

	byURL := resultsByURL(results)
	recordedAt := c.now().UTC().Format(time.RFC3339)

	for _, p := range products {
		status, errText, durationMs := "skipped", "", "0"
		if r, ok := byURL[p.URL]; ok {
			status = string(r.Status)
			if r.Err != nil {
				errText = r.Err.Error()
			}
			durationMs = strconv.FormatInt(r.Duration.Milliseconds(), 10)
		}

		row := []string{
			p.Name,
			p.URL,
			p.ImageName(),
			status,
			errText,
			durationMs,
			recordedAt,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file. It is a no-op if nothing was
// written.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writer == nil {
		return nil
	}
	c.writer.Flush()
	err := c.file.Close()
	c.file, c.writer = nil, nil
	return err
}

// resultsByURL keeps the first result per URL.
func resultsByURL(results []*models.CaptureResult) map[string]*models.CaptureResult {
	byURL := make(map[string]*models.CaptureResult, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		if _, seen := byURL[r.URL]; !seen {
			byURL[r.URL] = r
		}
	}
	return byURL
}
