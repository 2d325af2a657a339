package extract

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"

	"github.com/use-agent/forage/models"
)

// Plan describes how to read one search engine's results pages: where
// the results live, how to pull the fields out of each block, and how
// the engine paginates. Engines differ only in this data, never in
// code paths.
type Plan struct {
	// Container matches one result block.
	Container string

	// Title matches the title element inside a container.
	Title string

	// Link matches the anchor carrying the result URL. Empty means the
	// URL comes from the title's closest enclosing anchor, falling back
	// to the first anchor in the container.
	Link string

	// Snippets are tried in order; the first non-empty text wins.
	Snippets []string

	// SkipHosts drops results whose host contains one of these
	// fragments (the engine's own navigation links).
	SkipHosts []string

	// PageParam is the query parameter advancing pagination. Empty
	// means the engine serves a single page.
	PageParam string

	// PageStride is the result offset added per page.
	PageStride int

	// PageBase is the offset value encoded for the first page.
	PageBase int

	endpoint string
}

var plans = map[models.SearchEngine]Plan{
	models.EngineGoogle: {
		Container:  "#search .g, #rso .g, #search .MjjYud, #rso .MjjYud",
		Title:      "h3",
		Snippets:   []string{"div[data-sncf]", "div.VwiC3b", "span.aCOpRe", "div > span"},
		SkipHosts:  []string{"google.com"},
		PageParam:  "start",
		PageStride: 10,
		endpoint:   "https://www.google.com/search",
	},
	models.EngineBing: {
		Container:  "li.b_algo",
		Title:      "h2 a",
		Link:       "h2 a",
		Snippets:   []string{"div.b_caption p", "p"},
		PageParam:  "first",
		PageStride: 10,
		PageBase:   1,
		endpoint:   "https://www.bing.com/search",
	},
	models.EngineDuckDuckGo: {
		Container: "article[data-testid=result], article, .result",
		Title:     "h2 a, a.result__a",
		Snippets:  []string{"div[data-result=snippet]", ".result__snippet"},
		SkipHosts: []string{"duckduckgo.com"},
		endpoint:  "https://duckduckgo.com/",
	},
}

func init() {
	for engine, plan := range plans {
		for _, sel := range plan.selectors() {
			if _, err := cascadia.ParseGroup(sel); err != nil {
				panic(fmt.Sprintf("extract: invalid %s selector %q: %v", engine, sel, err))
			}
		}
	}
}

// PlanFor returns the extraction plan for a validated engine.
func PlanFor(engine models.SearchEngine) Plan {
	return plans[engine]
}

// SearchURL builds the results-page URL for a query. Pages are
// zero-based; the pagination parameter is omitted on the first page.
func (p Plan) SearchURL(query string, page int) string {
	u := p.endpoint + "?q=" + url.QueryEscape(query)
	if page > 0 && p.PageParam != "" {
		u += "&" + p.PageParam + "=" + strconv.Itoa(p.PageBase+page*p.PageStride)
	}
	return u
}

// Paginates reports whether the engine supports URL pagination.
func (p Plan) Paginates() bool {
	return p.PageParam != ""
}

func (p Plan) skipHost(host string) bool {
	for _, fragment := range p.SkipHosts {
		if strings.Contains(host, fragment) {
			return true
		}
	}
	return false
}

func (p Plan) selectors() []string {
	sels := []string{p.Container, p.Title}
	if p.Link != "" {
		sels = append(sels, p.Link)
	}
	sels = append(sels, p.Snippets...)
	return sels
}
