package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/jsamuelsen/quote-scraper/internal/domain"
	"github.com/jsamuelsen/quote-scraper/internal/platform/logging"
	"github.com/jsamuelsen/quote-scraper/internal/ports"
)

const browserName = "browser"

// lifecycleNetworkAlmostIdle fires once a frame has had at most two network
// connections for 500ms.
const lifecycleNetworkAlmostIdle = "networkAlmostIdle"

// Defaults for the render stages that RenderRequest does not bound.
const (
	DefaultLaunchTimeout   = 30 * time.Second
	DefaultSnapshotTimeout = 10 * time.Second
)

var errLaunchTimeout = errors.New("browser did not start in time")

// chromeCandidates are looked up on PATH when no executable is configured.
var chromeCandidates = []string{
	"headless_shell",
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"google-chrome-beta",
	"google-chrome-unstable",
	"/usr/bin/google-chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
}

// BrowserConfig configures the headless Chrome renderer.
type BrowserConfig struct {
	Headless  bool
	ExecPath  string
	NoSandbox bool

	// LaunchTimeout bounds browser startup. Defaults to DefaultLaunchTimeout.
	LaunchTimeout time.Duration

	// SnapshotTimeout bounds reading the rendered document once the page
	// has settled. Defaults to DefaultSnapshotTimeout.
	SnapshotTimeout time.Duration
}

// Browser renders pages in headless Chrome over the DevTools protocol.
// Every render launches its own browser process and tab and tears both down
// before returning.
type Browser struct {
	cfg    BrowserConfig
	logger *slog.Logger
}

var (
	_ ports.PageRenderer  = (*Browser)(nil)
	_ ports.HealthChecker = (*Browser)(nil)
)

// NewBrowser creates a browser renderer.
func NewBrowser(cfg BrowserConfig, logger *slog.Logger) *Browser {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.LaunchTimeout <= 0 {
		cfg.LaunchTimeout = DefaultLaunchTimeout
	}

	if cfg.SnapshotTimeout <= 0 {
		cfg.SnapshotTimeout = DefaultSnapshotTimeout
	}

	return &Browser{cfg: cfg, logger: logger}
}

// Name implements ports.PageRenderer and ports.HealthChecker.
func (b *Browser) Name() string {
	return "renderer-" + browserName
}

// Render implements ports.PageRenderer.
//
// Navigation waits until the main frame's network is almost idle and is
// bounded by req.NavigationTimeout. The wait for req.WaitSelector is
// best-effort: if it times out the page is still returned with
// ContentReady=false.
func (b *Browser) Render(ctx context.Context, req *ports.RenderRequest) (*ports.RenderedPage, error) {
	start := time.Now()
	logger := logging.FromContextOr(ctx, b.logger).With(slog.String("url", req.URL))

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.allocatorOptions(req.UserAgent)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Log(ctx, logging.LevelTrace, fmt.Sprintf(format, args...))
		}),
		chromedp.WithDebugf(func(format string, args ...any) {
			logger.Log(ctx, logging.LevelTrace-1, fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.DebugContext(ctx, "devtools error", slog.String("detail", fmt.Sprintf(format, args...)))
		}),
	)
	defer cancelBrowser()

	// The first Run starts the browser. It must not carry a deadline or
	// the browser would be killed when the deadline passes, so a slow start
	// cancels the whole browser context instead.
	launchTimer := time.AfterFunc(b.cfg.LaunchTimeout, cancelBrowser)
	err := chromedp.Run(browserCtx)

	if !launchTimer.Stop() {
		return nil, domain.NewRenderError(req.URL, "launch", errLaunchTimeout)
	}

	if err != nil {
		return nil, domain.NewRenderError(req.URL, "launch", err)
	}

	navCtx, cancelNav := withOptionalTimeout(browserCtx, req.NavigationTimeout)
	defer cancelNav()

	if err := chromedp.Run(navCtx, navigateUntilIdle(req.URL)); err != nil {
		return nil, domain.NewRenderError(req.URL, "navigate", err)
	}

	logger.Log(ctx, logging.LevelTrace, "navigation settled", slog.Duration("elapsed", time.Since(start)))

	ready, err := waitForContent(browserCtx, req)
	if err != nil {
		return nil, domain.NewRenderError(req.URL, "wait", err)
	}

	var location, markup string

	err = runWithin(browserCtx, b.cfg.SnapshotTimeout, func(ctx context.Context) error {
		return chromedp.Run(ctx,
			chromedp.Location(&location),
			chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
		)
	})
	if err != nil {
		return nil, domain.NewRenderError(req.URL, "snapshot", err)
	}

	return &ports.RenderedPage{
		URL:          location,
		HTML:         markup,
		ContentReady: ready,
		Duration:     time.Since(start),
	}, nil
}

// Check implements ports.HealthChecker by confirming a Chrome executable is
// available. It does not launch the browser.
func (b *Browser) Check(_ context.Context) error {
	if _, err := b.findExecutable(); err != nil {
		return domain.NewUnavailableError(b.Name(), err.Error())
	}

	return nil
}

func (b *Browser) allocatorOptions(userAgent string) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.WSURLReadTimeout(b.cfg.LaunchTimeout),
	)

	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}

	if b.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	if b.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.cfg.ExecPath))
	}

	return opts
}

func (b *Browser) findExecutable() (string, error) {
	if b.cfg.ExecPath != "" {
		info, err := os.Stat(b.cfg.ExecPath)
		if err != nil {
			return "", fmt.Errorf("chrome executable: %w", err)
		}

		if info.IsDir() {
			return "", fmt.Errorf("chrome executable %q is a directory", b.cfg.ExecPath)
		}

		return b.cfg.ExecPath, nil
	}

	for _, name := range chromeCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	return "", errors.New("no chrome executable found")
}

// navigateUntilIdle navigates the tab and blocks until the main frame of the
// new document reports networkAlmostIdle.
func navigateUntilIdle(url string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		listenCtx, stop := context.WithCancel(ctx)
		defer stop()

		mainFrame := cdp.FrameID(chromedp.FromContext(ctx).Target.TargetID)

		var (
			mu     sync.Mutex
			loader cdp.LoaderID
			once   sync.Once
		)

		idle := make(chan struct{})

		chromedp.ListenTarget(listenCtx, func(ev any) {
			e, ok := ev.(*page.EventLifecycleEvent)
			if !ok || e.FrameID != mainFrame {
				return
			}

			mu.Lock()
			defer mu.Unlock()

			switch e.Name {
			case "init":
				loader = e.LoaderID
			case lifecycleNetworkAlmostIdle:
				if e.LoaderID == loader {
					once.Do(func() { close(idle) })
				}
			}
		})

		if err := page.SetLifecycleEventsEnabled(true).Do(ctx); err != nil {
			return fmt.Errorf("enabling lifecycle events: %w", err)
		}

		if err := chromedp.Navigate(url).Do(ctx); err != nil {
			return err
		}

		select {
		case <-idle:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// waitForContent waits for the selector up to the content wait timeout.
// A timeout is not an error: it yields ready=false.
func waitForContent(ctx context.Context, req *ports.RenderRequest) (bool, error) {
	if req.WaitSelector == "" || req.ContentWaitTimeout <= 0 {
		return true, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, req.ContentWaitTimeout)
	defer cancel()

	err := chromedp.Run(waitCtx, chromedp.WaitReady(req.WaitSelector, chromedp.ByQuery))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return false, nil
	default:
		return false, err
	}
}

// runWithin runs fn with a deadline d from now. d <= 0 means no deadline.
func runWithin(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	ctx, cancel := withOptionalTimeout(ctx, d)
	defer cancel()

	return fn(ctx)
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, d)
}
