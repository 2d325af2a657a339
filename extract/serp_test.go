package extract

import (
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/use-agent/forage/models"
)

const googleSERP = `<html><body><div id="search"><div id="rso">
	<div class="MjjYud">
		<div class="g">
			<a href="https://example.com/alpha"><h3>Alpha result</h3></a>
			<div class="VwiC3b">Alpha snippet text</div>
		</div>
	</div>
	<div class="g">
		<a href="https://www.google.com/preferences"><h3>Search settings</h3></a>
	</div>
	<div class="g">
		<a href="https://example.com/beta"><h3>Beta result</h3></a>
		<span class="aCOpRe">Beta snippet</span>
	</div>
	<div class="g"><div>block without a title</div></div>
	<div class="g">
		<h3>Gamma result</h3>
		<div><a href="https://example.com/gamma">open</a></div>
	</div>
</div></div></body></html>`

func TestParseResults_Google(t *testing.T) {
	plan := PlanFor(models.EngineGoogle)
	results, err := ParseResults(googleSERP, plan, plan.SearchURL("q", 0), 10)
	if err != nil {
		t.Fatalf("ParseResults returned error: %v", err)
	}

	want := []models.SearchResult{
		{Title: "Alpha result", URL: "https://example.com/alpha", Snippet: "Alpha snippet text"},
		{Title: "Beta result", URL: "https://example.com/beta", Snippet: "Beta snippet"},
		{Title: "Gamma result", URL: "https://example.com/gamma", Snippet: ""},
	}
	assertResults(t, results, want)
}

const bingSERP = `<html><body><ol id="b_results">
	<li class="b_algo">
		<h2><a href="https://example.com/one">First page</a></h2>
		<div class="b_caption"><p>Primary snippet</p></div>
	</li>
	<li class="b_algo">
		<h2><a href="/relative/path">Second page</a></h2>
		<p>Fallback snippet</p>
	</li>
	<li class="b_algo">
		<h2><a href="javascript:void(0)">Script link</a></h2>
	</li>
</ol></body></html>`

func TestParseResults_Bing(t *testing.T) {
	plan := PlanFor(models.EngineBing)
	results, err := ParseResults(bingSERP, plan, "https://www.bing.com/search?q=test", 10)
	if err != nil {
		t.Fatalf("ParseResults returned error: %v", err)
	}

	want := []models.SearchResult{
		{Title: "First page", URL: "https://example.com/one", Snippet: "Primary snippet"},
		{Title: "Second page", URL: "https://www.bing.com/relative/path", Snippet: "Fallback snippet"},
	}
	assertResults(t, results, want)
}

const duckduckgoSERP = `<html><body>
	<article data-testid="result">
		<h2><a href="https://duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fdocs&amp;rut=abc123">Docs page</a></h2>
		<div data-result="snippet">Documentation snippet</div>
	</article>
	<article data-testid="result">
		<h2><a href="https://duckduckgo.com/settings">Settings</a></h2>
	</article>
	<div class="result">
		<a class="result__a" href="https://example.org/legacy">Legacy result</a>
		<div class="result__snippet">Legacy snippet</div>
	</div>
</body></html>`

func TestParseResults_DuckDuckGo(t *testing.T) {
	plan := PlanFor(models.EngineDuckDuckGo)
	results, err := ParseResults(duckduckgoSERP, plan, plan.SearchURL("q", 0), 10)
	if err != nil {
		t.Fatalf("ParseResults returned error: %v", err)
	}

	want := []models.SearchResult{
		{Title: "Docs page", URL: "https://example.com/docs", Snippet: "Documentation snippet"},
		{Title: "Legacy result", URL: "https://example.org/legacy", Snippet: "Legacy snippet"},
	}
	assertResults(t, results, want)
}

func TestParseResults_DeduplicatesKeepingFirst(t *testing.T) {
	page := `<html><body><ol>
		<li class="b_algo"><h2><a href="https://example.com/dup">Original title</a></h2></li>
		<li class="b_algo"><h2><a href="https://example.com/dup">Repeated title</a></h2></li>
		<li class="b_algo"><h2><a href="https://example.com/other">Other</a></h2></li>
	</ol></body></html>`

	plan := PlanFor(models.EngineBing)
	results, err := ParseResults(page, plan, "https://www.bing.com/search?q=test", 10)
	if err != nil {
		t.Fatalf("ParseResults returned error: %v", err)
	}

	want := []models.SearchResult{
		{Title: "Original title", URL: "https://example.com/dup"},
		{Title: "Other", URL: "https://example.com/other"},
	}
	assertResults(t, results, want)
}

func TestParseResults_StopsAtMax(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body><ol>")
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&sb, `<li class="b_algo"><h2><a href="https://example.com/p%d">Result %d</a></h2></li>`, i, i)
	}
	sb.WriteString("</ol></body></html>")

	plan := PlanFor(models.EngineBing)
	results, err := ParseResults(sb.String(), plan, "https://www.bing.com/search?q=test", 3)
	if err != nil {
		t.Fatalf("ParseResults returned error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[2].URL != "https://example.com/p2" {
		t.Errorf("expected results in document order, third is %q", results[2].URL)
	}
}

func TestParseResults_EmptyPage(t *testing.T) {
	plan := PlanFor(models.EngineBing)
	results, err := ParseResults("<html><body><p>No matches.</p></body></html>", plan, "https://www.bing.com/search?q=test", 10)
	if err != nil {
		t.Fatalf("ParseResults returned error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d: %+v", len(results), results)
	}
}

func TestParseResults_NormalizesWhitespace(t *testing.T) {
	page := `<html><body><ol>
		<li class="b_algo">
			<h2><a href="https://example.com/spacey">Spread
				across   lines</a></h2>
			<p>  snippet	with   gaps  </p>
		</li>
	</ol></body></html>`

	plan := PlanFor(models.EngineBing)
	results, err := ParseResults(page, plan, "https://www.bing.com/search?q=test", 10)
	if err != nil {
		t.Fatalf("ParseResults returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Title != "Spread across lines" {
		t.Errorf("title not normalized: %q", results[0].Title)
	}
	if results[0].Snippet != "snippet with gaps" {
		t.Errorf("snippet not normalized: %q", results[0].Snippet)
	}
}

func TestUnwrapRedirect(t *testing.T) {
	tests := []struct {
		name string
		href string
		want string
	}{
		{"uddg wrapper", "https://duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpage&rut=x", "https://example.com/page"},
		{"wrapper without uddg", "https://duckduckgo.com/l/?rut=x", "https://duckduckgo.com/l/?rut=x"},
		{"non-wrapper path", "https://duckduckgo.com/settings", "https://duckduckgo.com/settings"},
		{"other host untouched", "https://example.com/l/?uddg=https%3A%2F%2Fevil.test", "https://example.com/l/?uddg=https%3A%2F%2Fevil.test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := mustParseURL(t, tt.href)
			if got := unwrapRedirect(u).String(); got != tt.want {
				t.Errorf("unwrapRedirect(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func assertResults(t *testing.T, got, want []models.SearchResult) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d results, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i].Title != want[i].Title {
			t.Errorf("result[%d].Title = %q, want %q", i, got[i].Title, want[i].Title)
		}
		if got[i].URL != want[i].URL {
			t.Errorf("result[%d].URL = %q, want %q", i, got[i].URL, want[i].URL)
		}
		if got[i].Snippet != want[i].Snippet {
			t.Errorf("result[%d].Snippet = %q, want %q", i, got[i].Snippet, want[i].Snippet)
		}
	}
}
