package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/forage/models"
)

// ParseResults pulls organic results out of one results-page snapshot.
// Blocks missing a title or a usable link are skipped, duplicate URLs
// keep their first occurrence, and at most max results are returned.
// pageURL is the address the snapshot was taken from; relative hrefs
// resolve against it.
func ParseResults(rawHTML string, plan Plan, pageURL string, max int) ([]models.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, models.NewBrowseError(models.ErrCodeExtraction, "failed to parse results page", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, models.NewBrowseError(models.ErrCodeExtraction, "invalid results page URL", err)
	}

	var results []models.SearchResult
	seen := make(map[string]struct{})

	doc.Find(plan.Container).EachWithBreak(func(_ int, block *goquery.Selection) bool {
		titleSel := block.Find(plan.Title).First()
		title := flattenSpace(titleSel.Text())
		if title == "" {
			return true
		}

		href, ok := resultHref(block, titleSel, plan)
		if !ok {
			return true
		}
		resolved, ok := resolveResultURL(href, base, plan)
		if !ok {
			return true
		}
		if _, dup := seen[resolved]; dup {
			return true
		}
		seen[resolved] = struct{}{}

		results = append(results, models.SearchResult{
			Title:   title,
			URL:     resolved,
			Snippet: extractSnippet(block, plan),
		})
		return len(results) < max
	})

	return results, nil
}

// resultHref finds the anchor carrying the result URL. Plans without a
// dedicated link selector use the title's enclosing anchor, then the
// first anchor in the block.
func resultHref(block *goquery.Selection, titleSel *goquery.Selection, plan Plan) (string, bool) {
	var linkSel *goquery.Selection
	if plan.Link != "" {
		linkSel = block.Find(plan.Link).First()
	} else {
		linkSel = titleSel.Closest("a")
		if linkSel.Length() == 0 {
			linkSel = block.Find("a[href]").First()
		}
	}
	href, ok := linkSel.Attr("href")
	href = strings.TrimSpace(href)
	return href, ok && href != ""
}

// resolveResultURL turns a raw href into an absolute http(s) URL,
// unwrapping engine redirect wrappers and dropping the engine's own
// navigation links.
func resolveResultURL(href string, base *url.URL, plan Plan) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := unwrapRedirect(base.ResolveReference(ref))
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if abs.Host == "" || plan.skipHost(abs.Host) {
		return "", false
	}
	return abs.String(), true
}

// unwrapRedirect resolves DuckDuckGo /l/?uddg=... wrappers to their
// destination. Anything else passes through unchanged.
func unwrapRedirect(u *url.URL) *url.URL {
	if !strings.Contains(u.Host, "duckduckgo.com") || !strings.HasPrefix(u.Path, "/l/") {
		return u
	}
	target := u.Query().Get("uddg")
	if target == "" {
		return u
	}
	dest, err := url.Parse(target)
	if err != nil {
		return u
	}
	return dest
}

func extractSnippet(block *goquery.Selection, plan Plan) string {
	for _, sel := range plan.Snippets {
		if text := flattenSpace(block.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func flattenSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
