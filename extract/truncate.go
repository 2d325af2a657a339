package extract

import (
	"strings"
	"unicode/utf8"
)

// truncationNotice is appended whenever content is cut.
const truncationNotice = "\n\n[Content truncated...]"

// Truncate cuts content that exceeds max, preferring a paragraph break
// past 80% of the limit, then a sentence break, then a hard cut. The
// second return reports whether anything was removed.
func Truncate(content string, max int) (string, bool) {
	if max <= 0 || len(content) <= max {
		return content, false
	}

	truncated := content[:max]
	for len(truncated) > 0 && !utf8.ValidString(truncated) {
		truncated = truncated[:len(truncated)-1]
	}

	threshold := int(float64(max) * 0.8)
	if i := strings.LastIndex(truncated, "\n\n"); i > threshold {
		truncated = truncated[:i]
	} else if i := lastSentenceEnd(truncated); i > threshold {
		truncated = truncated[:i+1]
	}

	return truncated + truncationNotice, true
}

// lastSentenceEnd returns the byte index of the final sentence
// terminator in s, or -1.
func lastSentenceEnd(s string) int {
	end := -1
	for _, mark := range []string{". ", ".\n", "? ", "! "} {
		if i := strings.LastIndex(s, mark); i > end {
			end = i
		}
	}
	return end
}
