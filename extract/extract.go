package extract

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"

	"github.com/use-agent/forage/models"
)

// Extractor converts rendered page snapshots into Markdown.
//
// The converter is created once and reused across all requests
// (goroutine-safe).
type Extractor struct {
	mdConverter *converter.Converter
}

// New initialises an Extractor with a pre-configured Markdown converter.
func New() *Extractor {
	return &Extractor{
		mdConverter: newMarkdownConverter(),
	}
}

// ToMarkdown runs the content pipeline on a page snapshot:
//
//  1. scrub scripts, styles and navigation chrome;
//  2. locate the main content region (readability as fallback);
//  3. convert to Markdown, resolving links against sourceURL;
//  4. collapse runs of blank lines.
//
// The result is deterministic for identical input. An empty page yields
// empty Markdown; input that cannot be parsed at all yields a
// CONTENT_EXTRACTION_FAILED error.
func (e *Extractor) ToMarkdown(rawHTML string, sourceURL string) (string, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return "", models.NewBrowseError(models.ErrCodeExtraction, "page snapshot is empty", nil)
	}

	content, err := mainContent(rawHTML, sourceURL)
	if err != nil {
		return "", err
	}

	md, err := toMarkdown(e.mdConverter, content, sourceURL)
	if err != nil {
		return "", models.NewBrowseError(models.ErrCodeExtraction, "markdown conversion failed", err)
	}

	return collapseBlankLines(md), nil
}

// EnsureTitleHeading prepends a level-one heading derived from the page
// title when the Markdown does not already open with a heading. Empty
// content stays empty.
func EnsureTitleHeading(markdown string, title string) string {
	title = strings.TrimSpace(title)
	if title == "" || markdown == "" {
		return markdown
	}
	if strings.HasPrefix(markdown, "#") {
		return markdown
	}
	return "# " + title + "\n\n" + markdown
}

// collapseBlankLines trims trailing whitespace per line and folds runs
// of blank lines into one.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	cleaned := make([]string, 0, len(lines))
	prevEmpty := false

	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		empty := strings.TrimSpace(line) == ""
		if empty && prevEmpty {
			continue
		}
		cleaned = append(cleaned, line)
		prevEmpty = empty
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
