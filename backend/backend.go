package backend

import (
	"context"
	"time"
)

// defaultUserAgent is presented by both transports unless overridden in
// config. It matches a current desktop Chrome so fingerprinting checks
// see an ordinary browser.
const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// PageSnapshot is the rendered state of a page at capture time. It
// holds plain values only, no live browser handles.
type PageSnapshot struct {
	HTML     string
	Title    string
	FinalURL string

	// Elapsed is the time spent capturing: render wait plus DOM
	// serialization.
	Elapsed time.Duration
}

// Options configure a single browser session. Transport-wide settings
// (browser binary, blocked resources, driver paths) come from config at
// backend construction.
type Options struct {
	Headless bool

	// ProfileDir is the resolved Chrome user-data directory, already
	// locked by the caller. Empty means an ephemeral profile.
	ProfileDir string
}

// Backend is one browser transport. Implementations are safe for
// concurrent use; the sessions they open are not.
type Backend interface {
	// Name identifies the transport in envelopes and logs.
	Name() string

	// Open launches (or connects to) a browser and returns a live
	// session. The caller owns the session and must Close it.
	Open(ctx context.Context, opts Options) (Session, error)
}

// Session is one live browser page.
//
// Lifecycle: Open → Navigate → (Navigate again for further pages) →
// Snapshot → Close. Close is always called, on success and on every
// failure path.
type Session interface {
	// Navigate loads url. The timeout bounds the page load itself;
	// ctx expiry abandons the attempt and is reported as a timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// Snapshot waits for late-rendering content, then captures the
	// page HTML, title and final URL.
	Snapshot(ctx context.Context, wait time.Duration) (*PageSnapshot, error)

	// Close releases the page and every process the session started.
	// Safe to call more than once.
	Close() error
}
