package screenshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"catalog-builder/models"
	"catalog-builder/utils"
)

// ErrAborted is wrapped into the error Fetch returns when AbortOnError stops
// the run after a failed capture.
var ErrAborted = errors.New("screenshot: capture aborted")

// CaptureError ties a navigation failure to its URL.
type CaptureError struct {
	URL string
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.URL, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Capturer loads a page and returns its screenshot as PNG bytes.
type Capturer interface {
	Capture(ctx context.Context, url string) ([]byte, error)
}

// Fetcher writes one <sha1(url)>.png per URL into Dir, skipping URLs whose
// file is already there.
type Fetcher struct {
	Dir          string
	Capturer     Capturer
	Concurrency  int
	Interval     time.Duration
	Retry        *utils.RetryConfig
	AbortOnError bool
	Logger       *utils.Logger
}

// Fetch captures every URL. Results line up with urls by index. A URL that
// appears more than once is captured at most once per run; its later entries
// report cached, or failed if the first attempt failed.
//
// Navigation failures are recorded and skipped unless AbortOnError is set.
// Filesystem errors and cancellation always stop the run.
func (f *Fetcher) Fetch(ctx context.Context, urls []string) ([]*models.CaptureResult, error) {
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return nil, fmt.Errorf("screenshot: create output dir: %w", err)
	}
	logger := f.logger()

	results := make([]*models.CaptureResult, len(urls))
	firstIndex := make(map[string]int, len(urls))
	claimed := utils.NewKeySet()

	pool := utils.NewWorkerPool(ctx, f.Concurrency, f.Interval)
	for i, url := range urls {
		name := models.ImageName(url)
		if !claimed.Claim(name) {
			logger.Debug("[screenshot] Duplicate URL deferred: %s", url)
			continue
		}
		firstIndex[name] = i

		pool.Submit(func(ctx context.Context) error {
			res, err := f.captureOne(ctx, url, name)
			results[i] = res
			return err
		})
	}
	runErr := pool.Wait()
	if runErr == nil && ctx.Err() != nil {
		// jobs dropped after cancellation leave gaps, so the run is incomplete
		runErr = fmt.Errorf("screenshot: %w", ctx.Err())
	}

	for i, url := range urls {
		if results[i] != nil {
			continue
		}
		name := models.ImageName(url)
		first := results[firstIndex[name]]
		if first == nil {
			// never started because the run was stopped
			continue
		}
		dup := &models.CaptureResult{URL: url, ImageName: name, Status: models.CaptureCached}
		if first.Status == models.CaptureFailed {
			dup.Status = models.CaptureFailed
			dup.Err = first.Err
		}
		results[i] = dup
	}

	if runErr != nil {
		return compact(results), runErr
	}
	return results, nil
}

// Pending returns the distinct URLs that have no screenshot on disk yet, in
// first-seen order. Callers use it to skip launching a browser at all.
func (f *Fetcher) Pending(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	var pending []string
	for _, url := range urls {
		name := models.ImageName(url)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, err := os.Stat(filepath.Join(f.Dir, name+".png")); err != nil {
			pending = append(pending, url)
		}
	}
	return pending
}

func (f *Fetcher) captureOne(ctx context.Context, url, name string) (*models.CaptureResult, error) {
	logger := f.logger()
	res := &models.CaptureResult{URL: url, ImageName: name}
	path := filepath.Join(f.Dir, name+".png")

	if _, err := os.Stat(path); err == nil {
		logger.Debug("[screenshot] Cached: %s -> %s", url, path)
		res.Status = models.CaptureCached
		return res, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		res.Status = models.CaptureFailed
		res.Err = err
		return res, fmt.Errorf("screenshot: stat %q: %w", path, err)
	}

	start := time.Now()
	var data []byte
	err := f.retry().Do(ctx, "capture "+url, func(ctx context.Context) error {
		var err error
		data, err = f.Capturer.Capture(ctx, url)
		return err
	})
	res.Duration = time.Since(start)

	if err != nil {
		res.Status = models.CaptureFailed
		res.Err = &CaptureError{URL: url, Err: err}
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return res, fmt.Errorf("screenshot: %w", res.Err)
		}
		if f.AbortOnError {
			logger.Error("[screenshot] %v", res.Err)
			return res, fmt.Errorf("%w: %w", ErrAborted, res.Err)
		}
		logger.Warn("[screenshot] Skipping %s: %v", url, err)
		return res, nil
	}

	if err := utils.WriteFileAtomic(path, data); err != nil {
		res.Status = models.CaptureFailed
		res.Err = err
		return res, fmt.Errorf("screenshot: write %q: %w", path, err)
	}

	res.Status = models.CaptureCaptured
	logger.Info("[screenshot] Captured %s (%d KB, %v)", url, len(data)/1024, res.Duration.Round(time.Millisecond))
	return res, nil
}

func (f *Fetcher) logger() *utils.Logger {
	if f.Logger == nil {
		return utils.Discard()
	}
	return f.Logger
}

func (f *Fetcher) retry() *utils.RetryConfig {
	if f.Retry == nil {
		return &utils.RetryConfig{MaxAttempts: 1}
	}
	return f.Retry
}

func compact(results []*models.CaptureResult) []*models.CaptureResult {
	out := results[:0:0]
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
