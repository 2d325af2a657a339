package backend

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/forage/config"
	"github.com/use-agent/forage/models"
)

// RodBackend drives Chrome over the DevTools protocol through a
// launcher it manages itself.
type RodBackend struct {
	cfg config.BrowserConfig
}

func NewRodBackend(cfg config.BrowserConfig) *RodBackend {
	return &RodBackend{cfg: cfg}
}

func (b *RodBackend) Name() string { return models.BackendRod.String() }

// Open launches Chrome, connects over DevTools and prepares a page
// with stealth and resource blocking installed. Both must be in place
// before the first navigation to take effect.
func (b *RodBackend) Open(ctx context.Context, opts Options) (Session, error) {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(b.cfg.NoSandbox)

	if b.cfg.BrowserBin != "" {
		l = l.Bin(b.cfg.BrowserBin)
	}
	if opts.ProfileDir != "" {
		l = l.UserDataDir(opts.ProfileDir)
	}

	userAgent := b.cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("window-size"), "1920,1080")
	l.Set(flags.Flag("lang"), "en-US,en")
	l.Set(flags.Flag("user-agent"), userAgent)
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, models.NewBrowseError(models.ErrCodeLaunch, "failed to launch browser", err)
	}
	slog.Debug("browser launched", "backend", b.Name(), "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewBrowseError(models.ErrCodeLaunch, "failed to connect to browser", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, models.NewBrowseError(models.ErrCodeLaunch, "failed to open page", err)
	}

	// Stealth must be injected before navigation; it only affects
	// documents created after it is installed.
	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
	}

	router := setupHijack(page, b.cfg.BlockedResourceTypes)

	return &rodSession{
		browser:   browser,
		launch:    l,
		page:      page,
		router:    router,
		ephemeral: opts.ProfileDir == "",
	}, nil
}

type rodSession struct {
	browser   *rod.Browser
	launch    *launcher.Launcher
	page      *rod.Page
	router    *rod.HijackRouter
	ephemeral bool
	lastURL   string
	closeOnce sync.Once
}

// Navigate loads target and waits for the load event, all bounded by
// timeout.
func (s *rodSession) Navigate(ctx context.Context, target string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	p := s.page.Context(navCtx)

	s.setReferer(target)
	s.lastURL = target

	if err := p.Navigate(target); err != nil {
		return categorizeNavError(err, "navigation to target URL failed")
	}
	if err := p.WaitLoad(); err != nil {
		return categorizeNavError(err, "page load did not complete")
	}
	return nil
}

// Snapshot gives late-rendering content wait time to settle, then
// captures the page.
func (s *rodSession) Snapshot(ctx context.Context, wait time.Duration) (*PageSnapshot, error) {
	captureStart := time.Now()
	p := s.page.Context(ctx)

	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, categorizeNavError(ctx.Err(), "interrupted while waiting for content")
		}
	}
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, capturing current DOM", "error", stableErr)
	}

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeNavError(err, "failed to capture page HTML")
	}

	title := evalStringOrEmpty(p, `() => document.title`)
	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = s.lastURL
	}

	return &PageSnapshot{HTML: rawHTML, Title: title, FinalURL: finalURL, Elapsed: time.Since(captureStart)}, nil
}

// Close stops the hijack router, shuts the browser down and kills the
// launcher-managed process. The ephemeral user-data dir is removed;
// real profiles are left alone.
func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		if s.router != nil {
			_ = s.router.Stop()
		}
		if err := s.browser.Close(); err != nil {
			slog.Debug("browser close", "error", err)
		}
		s.launch.Kill()
		if s.ephemeral {
			s.launch.Cleanup()
		}
	})
	return nil
}

// setReferer makes the target look reached from a Google search.
// Best-effort; navigation proceeds regardless.
func (s *rodSession) setReferer(target string) {
	u, err := url.Parse(target)
	if err != nil {
		return
	}
	headers := map[string]string{
		"Referer": "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
	}
	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(headers),
	}.Call(s.page)
}

// evalStringOrEmpty evaluates a JS expression and returns the string
// result, swallowing any errors (useful for optional metadata).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders
// type (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeNavError wraps raw transport errors into typed errors so
// the orchestrator can decide whether a failover is worthwhile.
func categorizeNavError(err error, msg string) *models.BrowseError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewBrowseError(models.ErrCodeNavTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewBrowseError(models.ErrCodeNavTimeout, "request canceled", err)
	default:
		return models.NewBrowseError(models.ErrCodeNavigation, msg, err)
	}
}
