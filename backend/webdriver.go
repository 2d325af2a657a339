package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"

	"github.com/use-agent/forage/config"
	"github.com/use-agent/forage/models"
)

// navigatorMaskJS hides the obvious WebDriver traits that chromedriver
// cannot mask through launch flags alone. Applied after each
// navigation because every new document resets the overrides.
const navigatorMaskJS = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
window.chrome = {runtime: {}};
`

// WebDriverBackend drives Chrome through chromedriver. It either
// manages a chromedriver child process per session or attaches to an
// externally running WebDriver endpoint.
type WebDriverBackend struct {
	browserCfg config.BrowserConfig
	driverCfg  config.WebDriverConfig
}

func NewWebDriverBackend(browserCfg config.BrowserConfig, driverCfg config.WebDriverConfig) *WebDriverBackend {
	return &WebDriverBackend{browserCfg: browserCfg, driverCfg: driverCfg}
}

func (b *WebDriverBackend) Name() string { return models.BackendWebDriver.String() }

// Open starts chromedriver (unless a remote endpoint is configured)
// and creates a Chrome session with the anti-detection capabilities.
func (b *WebDriverBackend) Open(ctx context.Context, opts Options) (Session, error) {
	var service *selenium.Service
	remoteURL := b.driverCfg.RemoteURL

	if remoteURL == "" {
		port := b.driverCfg.Port
		if port == 0 {
			p, err := freePort()
			if err != nil {
				return nil, models.NewBrowseError(models.ErrCodeLaunch, "no free port for chromedriver", err)
			}
			port = p
		}

		svc, err := selenium.NewChromeDriverService(
			b.driverCfg.DriverPath, port, selenium.Output(io.Discard))
		if err != nil {
			return nil, models.NewBrowseError(models.ErrCodeLaunch, "failed to start chromedriver", err)
		}
		service = svc
		remoteURL = fmt.Sprintf("http://localhost:%d/wd/hub", port)
		slog.Debug("chromedriver started", "port", port)
	}

	caps := selenium.Capabilities{"browserName": "chrome"}
	chromeCaps := chrome.Capabilities{
		Args:            b.chromeArgs(opts),
		ExcludeSwitches: []string{"enable-automation"},
	}
	if b.browserCfg.BrowserBin != "" {
		chromeCaps.Path = b.browserCfg.BrowserBin
	}
	caps.AddChrome(chromeCaps)

	wd, err := newRemoteWithin(ctx, caps, remoteURL)
	if err != nil {
		if service != nil {
			_ = service.Stop()
		}
		return nil, classifySessionError(err, opts.ProfileDir != "")
	}

	return &webDriverSession{wd: wd, service: service}, nil
}

func (b *WebDriverBackend) chromeArgs(opts Options) []string {
	userAgent := b.browserCfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	args := []string{
		"--window-size=1920,1080",
		"--disable-blink-features=AutomationControlled",
		"--lang=en-US,en",
		"--user-agent=" + userAgent,
		"--disable-dev-shm-usage",
		"--disable-gpu",
	}
	if opts.Headless {
		args = append(args, "--headless=new")
	}
	if b.browserCfg.NoSandbox {
		args = append(args, "--no-sandbox")
	}
	if opts.ProfileDir != "" {
		args = append(args, "--user-data-dir="+opts.ProfileDir)
	}
	return args
}

// newRemoteWithin bounds the blocking session handshake with ctx. A
// session that comes up after expiry is quit, not leaked.
func newRemoteWithin(ctx context.Context, caps selenium.Capabilities, remoteURL string) (selenium.WebDriver, error) {
	type remote struct {
		wd  selenium.WebDriver
		err error
	}
	done := make(chan remote, 1)
	go func() {
		wd, err := selenium.NewRemote(caps, remoteURL)
		done <- remote{wd, err}
	}()

	select {
	case r := <-done:
		return r.wd, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil && r.wd != nil {
				_ = r.wd.Quit()
			}
		}()
		return nil, ctx.Err()
	}
}

type webDriverSession struct {
	wd        selenium.WebDriver
	service   *selenium.Service
	lastURL   string
	closeOnce sync.Once
}

// Navigate loads target. The page-load timeout is enforced by the
// driver; ctx expiry force-closes the session to unblock the call.
func (s *webDriverSession) Navigate(ctx context.Context, target string, timeout time.Duration) error {
	if err := s.wd.SetPageLoadTimeout(timeout); err != nil {
		slog.Debug("failed to set page load timeout", "error", err)
	}
	s.lastURL = target

	if err := s.callWithin(ctx, func() error { return s.wd.Get(target) }); err != nil {
		return classifyWebDriverError(err, "navigation to target URL failed")
	}

	if _, err := s.wd.ExecuteScript(navigatorMaskJS, nil); err != nil {
		slog.Debug("navigator mask failed, proceeding without it", "error", err)
	}
	return nil
}

// Snapshot gives late-rendering content wait time to settle, then
// captures the page.
func (s *webDriverSession) Snapshot(ctx context.Context, wait time.Duration) (*PageSnapshot, error) {
	captureStart := time.Now()
	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, categorizeNavError(ctx.Err(), "interrupted while waiting for content")
		}
	}

	var snap PageSnapshot
	err := s.callWithin(ctx, func() error {
		html, srcErr := s.wd.PageSource()
		if srcErr != nil {
			return srcErr
		}
		snap.HTML = html

		// Title and final URL are optional metadata.
		if title, titleErr := s.wd.Title(); titleErr == nil {
			snap.Title = title
		}
		if current, urlErr := s.wd.CurrentURL(); urlErr == nil {
			snap.FinalURL = current
		}
		return nil
	})
	if err != nil {
		return nil, classifyWebDriverError(err, "failed to capture page HTML")
	}

	if snap.FinalURL == "" {
		snap.FinalURL = s.lastURL
	}
	snap.Elapsed = time.Since(captureStart)
	return &snap, nil
}

// Close quits the browser session and stops the chromedriver child.
func (s *webDriverSession) Close() error {
	s.closeOnce.Do(func() {
		if err := s.wd.Quit(); err != nil {
			slog.Debug("webdriver quit", "error", err)
		}
		if s.service != nil {
			if err := s.service.Stop(); err != nil {
				slog.Debug("chromedriver stop", "error", err)
			}
		}
	})
	return nil
}

// callWithin runs a blocking driver call under ctx. The WebDriver wire
// protocol has no cancellation, so expiry kills the whole session to
// unblock the call.
func (s *webDriverSession) callWithin(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = s.Close()
		return ctx.Err()
	}
}

// freePort asks the kernel for an unused localhost port to run
// chromedriver on.
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// classifySessionError distinguishes a locked profile from other
// session-creation failures by the chromedriver error text.
func classifySessionError(err error, hasProfile bool) *models.BrowseError {
	if hasProfile && strings.Contains(strings.ToLower(err.Error()), "user data directory is already in use") {
		return models.NewBrowseError(models.ErrCodeProfileLocked, "profile is in use by another browser", err)
	}
	return models.NewBrowseError(models.ErrCodeLaunch, "failed to create webdriver session", err)
}

// classifyWebDriverError maps driver errors onto the shared error
// codes. The wire protocol reports timeouts as text, not as typed
// errors.
func classifyWebDriverError(err error, msg string) *models.BrowseError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return categorizeNavError(err, msg)
	}
	text := strings.ToLower(err.Error())
	if strings.Contains(text, "timeout") || strings.Contains(text, "timed out") {
		return models.NewBrowseError(models.ErrCodeNavTimeout, msg, err)
	}
	return models.NewBrowseError(models.ErrCodeNavigation, msg, err)
}
