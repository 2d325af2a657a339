package extract

import (
	"log/slog"
	nurl "net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/use-agent/forage/models"
)

// minContentLength is the minimum text length (in characters) for a
// content region to be considered real. Below this the heuristics are
// assumed to have picked a hollow container.
const minContentLength = 50

// removeTags lists elements that never carry main content. Images are
// included because the Markdown output is text-only.
var removeTags = []string{
	"script", "style", "nav", "header", "footer", "aside",
	"noscript", "iframe", "form", "button", "input", "img",
}

// noisePattern matches id/class fragments that typically mark page
// chrome rather than content.
var noisePattern = regexp.MustCompile(`(?i)nav|menu|sidebar|footer|header|cookie|banner|advertisement|social|comment|related`)

// mainCandidates are tried in order when locating the main content
// container.
var mainCandidates = []string{
	"main", "article", "[role=main]",
	"#content", "#main", "#main-content",
	".content", ".post", ".article",
}

// scrub removes non-content elements from the document in place.
func scrub(doc *goquery.Document) {
	doc.Find(strings.Join(removeTags, ", ")).Remove()

	doc.Find("[id], [class]").Each(func(_ int, s *goquery.Selection) {
		if id, ok := s.Attr("id"); ok && noisePattern.MatchString(id) {
			s.Remove()
			return
		}
		if class, ok := s.Attr("class"); ok && noisePattern.MatchString(class) {
			s.Remove()
		}
	})
}

// mainContent reduces a full rendered page to the HTML of its main
// content region.
//
// Order of preference:
//  1. the first scrubbed semantic candidate (main, article, ...) with
//     enough text;
//  2. readability over the original HTML when the candidates are
//     missing or hollow;
//  3. the scrubbed <body> (an empty page stays empty rather than
//     becoming an error).
func mainContent(rawHTML string, sourceURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", models.NewBrowseError(models.ErrCodeExtraction, "failed to parse page HTML", err)
	}
	scrub(doc)

	var hollow string
	for _, candidate := range mainCandidates {
		sel := doc.Find(candidate).First()
		if sel.Length() == 0 {
			continue
		}
		outer, err := goquery.OuterHtml(sel)
		if err != nil {
			continue
		}
		if len(strings.TrimSpace(sel.Text())) >= minContentLength {
			return outer, nil
		}
		if hollow == "" {
			hollow = outer
		}
	}

	if article, ok := extractReadable(rawHTML, sourceURL); ok {
		return article.Content, nil
	}

	if hollow != "" {
		return hollow, nil
	}

	if body := doc.Find("body").First(); body.Length() > 0 {
		if outer, err := goquery.OuterHtml(body); err == nil {
			return outer, nil
		}
	}

	full, err := doc.Html()
	if err != nil {
		return "", models.NewBrowseError(models.ErrCodeExtraction, "failed to serialize page HTML", err)
	}
	return full, nil
}

// extractReadable runs the Mozilla Readability algorithm on rawHTML.
// It reports false when the algorithm errored or extracted too little
// text to trust.
func extractReadable(rawHTML string, sourceURL string) (readability.Article, bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		return readability.Article{}, false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability extraction failed", "url", sourceURL, "error", err)
		return article, false
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		return article, false
	}
	return article, true
}
