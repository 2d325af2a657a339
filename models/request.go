package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// FetchRequest describes one fetch operation.
type FetchRequest struct {
	// URL is the target page. Required, absolute, http or https.
	URL string

	// Backend selects the transport. Default: auto (rod with webdriver failover).
	Backend BackendKind

	// Headless controls whether the browser window is visible.
	// Default: false — a visible window with the user's profile is the
	// least detectable configuration.
	Headless bool

	// Timeout bounds navigation. Default: 30s.
	Timeout time.Duration

	// Wait is the post-load pause for JavaScript rendering. Default: 2s.
	Wait time.Duration

	// MaxLength is the content length ceiling before truncation.
	// Default: 50000.
	MaxLength int
}

// Defaults applies default values to unset fields.
func (r *FetchRequest) Defaults() {
	if r.Backend == "" {
		r.Backend = BackendAuto
	}
	if r.Timeout == 0 {
		r.Timeout = 30 * time.Second
	}
	if r.Wait == 0 {
		r.Wait = 2 * time.Second
	}
	if r.MaxLength == 0 {
		r.MaxLength = 50000
	}
}

// Validate checks the request and returns an INVALID_INPUT error on the
// first violation. Call Defaults first.
func (r *FetchRequest) Validate() error {
	if err := validateTargetURL(r.URL); err != nil {
		return err
	}
	if _, err := ParseBackendKind(string(r.Backend)); err != nil {
		return NewBrowseError(ErrCodeInvalidInput, err.Error(), nil)
	}
	if r.Timeout <= 0 {
		return NewBrowseError(ErrCodeInvalidInput, "timeout must be positive", nil)
	}
	if r.Wait < 0 {
		return NewBrowseError(ErrCodeInvalidInput, "wait must not be negative", nil)
	}
	if r.MaxLength <= 0 {
		return NewBrowseError(ErrCodeInvalidInput, "max length must be positive", nil)
	}
	return nil
}

// SearchRequest describes one search operation.
type SearchRequest struct {
	// Query is the search query. Required.
	Query string

	// Engine selects the search engine. Default: bing.
	Engine SearchEngine

	// Backend selects the transport. Default: auto.
	Backend BackendKind

	// MaxResults caps the number of returned results. Must be positive;
	// zero is rejected, never treated as unlimited or defaulted.
	MaxResults int

	// Headless controls whether the browser window is visible. Default: false.
	Headless bool

	// Timeout bounds navigation per results page. Default: 30s.
	Timeout time.Duration
}

// Defaults applies default values to unset fields.
func (r *SearchRequest) Defaults() {
	if r.Engine == "" {
		r.Engine = EngineBing
	}
	if r.Backend == "" {
		r.Backend = BackendAuto
	}
	if r.Timeout == 0 {
		r.Timeout = 30 * time.Second
	}
}

// Validate checks the request and returns an INVALID_INPUT error on the
// first violation.
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return NewBrowseError(ErrCodeInvalidInput, "query must not be empty", nil)
	}
	if _, err := ParseSearchEngine(string(r.Engine)); err != nil {
		return NewBrowseError(ErrCodeInvalidInput, err.Error(), nil)
	}
	if _, err := ParseBackendKind(string(r.Backend)); err != nil {
		return NewBrowseError(ErrCodeInvalidInput, err.Error(), nil)
	}
	if r.MaxResults <= 0 {
		return NewBrowseError(ErrCodeInvalidInput, "max results must be positive", nil)
	}
	if r.Timeout <= 0 {
		return NewBrowseError(ErrCodeInvalidInput, "timeout must be positive", nil)
	}
	return nil
}

// validateTargetURL checks that raw is an absolute http(s) URL.
func validateTargetURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return NewBrowseError(ErrCodeInvalidInput, "url must not be empty", nil)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return NewBrowseError(ErrCodeInvalidInput, fmt.Sprintf("invalid url: %v", err), nil)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NewBrowseError(ErrCodeInvalidInput,
			fmt.Sprintf("unsupported url scheme %q (use http or https)", u.Scheme), nil)
	}
	if u.Host == "" {
		return NewBrowseError(ErrCodeInvalidInput, "url must be absolute", nil)
	}
	return nil
}
