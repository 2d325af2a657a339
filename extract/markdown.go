package extract

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// newMarkdownConverter creates a reusable, goroutine-safe Converter:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta,
//     link, input, textarea and HTML comments.
//   - commonmark plugin: standard Markdown rendering (ATX headings,
//     lists, links, code blocks, emphasis, blockquotes).
//   - table plugin: preserves table structure with minimal cell padding.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// toMarkdown converts clean HTML to Markdown. The base URL resolves
// relative links in <a> tags into absolute URLs, so the Markdown output
// is self-contained.
func toMarkdown(conv *converter.Converter, htmlContent string, baseURL string) (string, error) {
	return conv.ConvertString(htmlContent, converter.WithDomain(baseURL))
}
