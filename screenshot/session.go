package screenshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"catalog-builder/utils"
)

// Options configures the headless browser session.
type Options struct {
	ChromeBin         string
	Width             int
	Height            int
	Tabs              int
	NavigationTimeout time.Duration
	Logger            *utils.Logger
}

var _ Capturer = (*Session)(nil)

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Session owns one headless Chrome process and a fixed set of tabs. Tabs are
// handed out one capture at a time, so with a single tab every URL reuses the
// same page. Close must be called once the capture stage ends.
type Session struct {
	logger  *utils.Logger
	timeout time.Duration

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	tabs []*tab
	idle chan *tab
}

// NewSession launches Chrome and opens opts.Tabs pages sized to the viewport.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	if opts.Tabs < 1 {
		opts.Tabs = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewLogger()
	}

	chromeBin := opts.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[screenshot] Using browser binary: %s", displayBinary(chromeBin))

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(opts.Width, opts.Height),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)

	// Suppress chromedp log noise
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	s := &Session{
		logger:        logger,
		timeout:       opts.NavigationTimeout,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		idle:          make(chan *tab, opts.Tabs),
	}

	for i := 0; i < opts.Tabs; i++ {
		t := &tab{ctx: browserCtx, cancel: func() {}}
		if i > 0 {
			t.ctx, t.cancel = chromedp.NewContext(browserCtx)
		}

		// The first Run on a chromedp context allocates its target, so it must
		// not carry a per-navigation timeout.
		err := chromedp.Run(t.ctx,
			chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
			network.Enable(),
			network.SetExtraHTTPHeaders(network.Headers{
				"Accept-Language": "en-US,en;q=0.9",
			}),
		)
		if err != nil {
			t.cancel()
			s.Close()
			return nil, fmt.Errorf("screenshot: open tab %d: %w", i+1, err)
		}

		s.tabs = append(s.tabs, t)
		s.idle <- t
	}

	logger.Debug("[screenshot] Browser ready with %d tab(s) at %dx%d", opts.Tabs, opts.Width, opts.Height)
	return s, nil
}

// Capture navigates a free tab to url and returns a full-page PNG.
func (s *Session) Capture(ctx context.Context, url string) ([]byte, error) {
	var t *tab
	select {
	case t = <-s.idle:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { s.idle <- t }()

	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	if s.timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, s.timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var buf []byte
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// quality 100 selects PNG encoding
		chromedp.FullScreenshot(&buf, 100),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("navigation timed out after %v: %w", s.timeout, err)
		}
		return nil, err
	}
	return buf, nil
}

// Close shuts down every tab, the browser and its allocator. It is safe to
// call more than once.
func (s *Session) Close() {
	for i := len(s.tabs) - 1; i >= 0; i-- {
		s.tabs[i].cancel()
	}
	s.tabs = nil
	if s.browserCancel != nil {
		if err := chromedp.Cancel(s.browserCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Debug("[screenshot] Browser close: %v", err)
		}
		s.browserCancel()
		s.browserCancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
	s.logger.Debug("[screenshot] Browser session closed")
}

func displayBinary(bin string) string {
	if bin == "" {
		return "(chromedp default lookup)"
	}
	return bin
}

func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
