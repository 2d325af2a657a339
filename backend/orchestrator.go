package backend

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/use-agent/forage/config"
	"github.com/use-agent/forage/extract"
	"github.com/use-agent/forage/models"
)

// searchRenderWait gives a results page time to finish client-side
// rendering before the snapshot.
const searchRenderWait = 2 * time.Second

// attemptOverhead bounds session setup and capture beyond the
// navigation timeout and render wait.
const attemptOverhead = 10 * time.Second

// Orchestrator owns the transports and the failover policy. Operations
// always return a result envelope, never a bare error.
type Orchestrator struct {
	backends  []Backend
	extractor *extract.Extractor
	cfg       *config.Config
	pager     *rate.Limiter
}

// NewOrchestrator wires the transports in failover priority order:
// DevTools first, WebDriver second.
func NewOrchestrator(cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		backends: []Backend{
			NewRodBackend(cfg.Browser),
			NewWebDriverBackend(cfg.Browser, cfg.WebDriver),
		},
		extractor: extract.New(),
		cfg:       cfg,
		pager:     rate.NewLimiter(rate.Every(cfg.Search.PageDelay), 1),
	}
}

// newOrchestratorWith injects transports directly; tests use it to run
// the failover policy against fakes.
func newOrchestratorWith(cfg *config.Config, backends ...Backend) *Orchestrator {
	return &Orchestrator{
		backends:  backends,
		extractor: extract.New(),
		cfg:       cfg,
		pager:     rate.NewLimiter(rate.Every(cfg.Search.PageDelay), 1),
	}
}

// Fetch renders req.URL and extracts its content as Markdown.
func (o *Orchestrator) Fetch(ctx context.Context, req *models.FetchRequest) *models.FetchResponse {
	start := time.Now()

	req.Defaults()
	if err := req.Validate(); err != nil {
		return models.NewFetchFailure(req.URL, err, models.FetchMetadata{
			FetchTimeMS: time.Since(start).Milliseconds(),
		})
	}

	timeout := req.Timeout
	if timeout > o.cfg.Fetch.MaxTimeout {
		timeout = o.cfg.Fetch.MaxTimeout
	}

	var (
		lastErr  error
		lastName string
		tried    int
	)
	for _, b := range o.candidates(req.Backend) {
		tried++
		lastName = b.Name()

		snap, err := o.fetchAttempt(ctx, b, req, timeout)
		if err != nil {
			lastErr = err
			slog.Warn("fetch attempt failed",
				"backend", b.Name(), "url", req.URL, "error", err)
			if req.Backend == models.BackendAuto && o.shouldFallback(err) {
				continue
			}
			break
		}

		slog.Debug("fetch attempt succeeded",
			"backend", b.Name(), "url", req.URL,
			"htmlLength", len(snap.HTML), "captureMs", snap.Elapsed.Milliseconds())
		return o.assembleFetch(req, snap, b.Name(), tried, start)
	}

	return models.NewFetchFailure(req.URL, orDefaultErr(lastErr), models.FetchMetadata{
		FetchTimeMS:   time.Since(start).Milliseconds(),
		Backend:       lastName,
		BackendsTried: tried,
	})
}

// Search runs req.Query against a search engine and extracts
// structured results. Zero results is a success, not an error.
func (o *Orchestrator) Search(ctx context.Context, req *models.SearchRequest) *models.SearchResponse {
	start := time.Now()

	req.Defaults()
	if err := req.Validate(); err != nil {
		return models.NewSearchFailure(req.Query, req.Engine, err, models.SearchMetadata{
			SearchTimeMS: time.Since(start).Milliseconds(),
		})
	}

	timeout := req.Timeout
	if timeout > o.cfg.Fetch.MaxTimeout {
		timeout = o.cfg.Fetch.MaxTimeout
	}
	plan := extract.PlanFor(req.Engine)

	var (
		lastErr  error
		lastName string
		tried    int
	)
	for _, b := range o.candidates(req.Backend) {
		tried++
		lastName = b.Name()

		results, pages, err := o.searchAttempt(ctx, b, req, plan, timeout)
		if err != nil {
			lastErr = err
			slog.Warn("search attempt failed",
				"backend", b.Name(), "engine", req.Engine, "query", req.Query, "error", err)
			if req.Backend == models.BackendAuto && o.shouldFallback(err) {
				continue
			}
			break
		}

		slog.Debug("search attempt succeeded",
			"backend", b.Name(), "engine", req.Engine, "results", len(results), "pages", pages)
		if results == nil {
			results = []models.SearchResult{}
		}
		return &models.SearchResponse{
			Success: true,
			Query:   req.Query,
			Engine:  req.Engine.String(),
			Results: results,
			Metadata: models.SearchMetadata{
				SearchTimeMS:  time.Since(start).Milliseconds(),
				ResultCount:   len(results),
				Backend:       b.Name(),
				BackendsTried: tried,
				PagesFetched:  pages,
			},
		}
	}

	return models.NewSearchFailure(req.Query, req.Engine, orDefaultErr(lastErr), models.SearchMetadata{
		SearchTimeMS:  time.Since(start).Milliseconds(),
		Backend:       lastName,
		BackendsTried: tried,
	})
}

// candidates returns the transports to try, in order. A pinned backend
// gets exactly one attempt.
func (o *Orchestrator) candidates(kind models.BackendKind) []Backend {
	if kind == models.BackendAuto {
		return o.backends
	}
	for _, b := range o.backends {
		if b.Name() == kind.String() {
			return []Backend{b}
		}
	}
	return nil
}

// shouldFallback decides whether the next transport could plausibly do
// better. Navigation failures are a property of the target, extraction
// failures a property of the content; neither improves by switching.
func (o *Orchestrator) shouldFallback(err error) bool {
	switch models.CodeOf(err) {
	case models.ErrCodeLaunch, models.ErrCodeNavTimeout:
		return true
	case models.ErrCodeProfileLocked:
		return o.cfg.Browser.LockFallback
	default:
		return false
	}
}

// fetchAttempt runs one open→navigate→snapshot→close cycle on a single
// transport. The deferred close and lock release run on every path.
func (o *Orchestrator) fetchAttempt(ctx context.Context, b Backend, req *models.FetchRequest, timeout time.Duration) (*PageSnapshot, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout+req.Wait+attemptOverhead)
	defer cancel()

	profileDir := ResolveProfileDir(o.cfg.Browser.ProfileDir, req.Headless)
	var lock *ProfileLock
	if profileDir != "" {
		var err error
		if lock, err = AcquireProfile(profileDir); err != nil {
			return nil, err
		}
	}
	defer lock.Release()

	sess, err := b.Open(attemptCtx, Options{Headless: req.Headless, ProfileDir: profileDir})
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Close() }()

	if err := sess.Navigate(attemptCtx, req.URL, timeout); err != nil {
		return nil, err
	}
	return sess.Snapshot(attemptCtx, req.Wait)
}

// searchAttempt walks a search engine's results pages in one session,
// accumulating deduplicated results. Errors past the first page end
// pagination but keep what was already collected.
func (o *Orchestrator) searchAttempt(ctx context.Context, b Backend, req *models.SearchRequest, plan extract.Plan, timeout time.Duration) ([]models.SearchResult, int, error) {
	maxPages := o.cfg.Search.MaxPages
	if maxPages < 1 || !plan.Paginates() {
		maxPages = 1
	}

	budget := time.Duration(maxPages)*(timeout+searchRenderWait+o.cfg.Search.PageDelay) + attemptOverhead
	attemptCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	profileDir := ResolveProfileDir(o.cfg.Browser.ProfileDir, req.Headless)
	var lock *ProfileLock
	if profileDir != "" {
		var err error
		if lock, err = AcquireProfile(profileDir); err != nil {
			return nil, 0, err
		}
	}
	defer lock.Release()

	sess, err := b.Open(attemptCtx, Options{Headless: req.Headless, ProfileDir: profileDir})
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = sess.Close() }()

	var results []models.SearchResult
	seen := make(map[string]struct{})
	pages := 0

	for page := 0; page < maxPages && len(results) < req.MaxResults; page++ {
		if err := o.pager.Wait(attemptCtx); err != nil {
			if page == 0 {
				return nil, pages, categorizeNavError(attemptCtx.Err(), "interrupted while pacing page loads")
			}
			break
		}

		target := plan.SearchURL(req.Query, page)
		if err := sess.Navigate(attemptCtx, target, timeout); err != nil {
			if page == 0 {
				return nil, pages, err
			}
			slog.Warn("pagination stopped early", "engine", req.Engine, "page", page, "error", err)
			break
		}

		snap, err := sess.Snapshot(attemptCtx, searchRenderWait)
		if err != nil {
			if page == 0 {
				return nil, pages, err
			}
			slog.Warn("pagination stopped early", "engine", req.Engine, "page", page, "error", err)
			break
		}
		pages++

		parsed, err := extract.ParseResults(snap.HTML, plan, snap.FinalURL, req.MaxResults-len(results))
		if err != nil {
			if page == 0 {
				return nil, pages, err
			}
			break
		}

		added := 0
		for _, r := range parsed {
			if _, dup := seen[r.URL]; dup {
				continue
			}
			seen[r.URL] = struct{}{}
			results = append(results, r)
			added++
		}
		// A page that adds nothing new means the engine ran out.
		if added == 0 {
			break
		}
	}

	return results, pages, nil
}

// assembleFetch runs the content pipeline on a snapshot and builds the
// success envelope. Extraction failures become failure envelopes and
// are never retried on another transport.
func (o *Orchestrator) assembleFetch(req *models.FetchRequest, snap *PageSnapshot, backendName string, tried int, start time.Time) *models.FetchResponse {
	markdown, err := o.extractor.ToMarkdown(snap.HTML, snap.FinalURL)
	if err != nil {
		return models.NewFetchFailure(req.URL, err, models.FetchMetadata{
			FetchTimeMS:   time.Since(start).Milliseconds(),
			HTMLLength:    len(snap.HTML),
			Backend:       backendName,
			BackendsTried: tried,
		})
	}

	markdown = extract.EnsureTitleHeading(markdown, snap.Title)
	markdown, truncated := extract.Truncate(markdown, req.MaxLength)

	return &models.FetchResponse{
		Success:  true,
		URL:      req.URL,
		FinalURL: snap.FinalURL,
		Title:    snap.Title,
		Content:  &markdown,
		Metadata: models.FetchMetadata{
			FetchTimeMS:   time.Since(start).Milliseconds(),
			ContentLength: len(markdown),
			HTMLLength:    len(snap.HTML),
			Backend:       backendName,
			BackendsTried: tried,
			Truncated:     truncated,
		},
	}
}

// orDefaultErr guards the failure envelopes against a nil error when no
// transport was attempted at all.
func orDefaultErr(err error) error {
	if err != nil {
		return err
	}
	return models.NewBrowseError(models.ErrCodeInternal, "no transport available", nil)
}
