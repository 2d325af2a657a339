package models

// FetchResponse is the envelope printed for a fetch operation.
//
// Exactly one of Content and Error is populated: Content is non-nil
// (possibly empty) on success, Error is non-nil on failure.
type FetchResponse struct {
	// Success indicates whether the fetch produced content.
	Success bool `json:"success"`

	// URL echoes the requested URL.
	URL string `json:"url"`

	// FinalURL is the URL after redirects. Success only.
	FinalURL string `json:"final_url,omitempty"`

	// Title is the rendered page title. Success only.
	Title string `json:"title,omitempty"`

	// Content is the extracted Markdown. Non-nil iff Success; an empty
	// page yields an empty string, not a failure.
	Content *string `json:"content,omitempty"`

	// Metadata carries timing and provenance for the operation.
	Metadata FetchMetadata `json:"metadata"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// FetchMetadata holds timing and provenance for a fetch.
type FetchMetadata struct {
	// FetchTimeMS is the wall time from operation start to final
	// session release, in milliseconds.
	FetchTimeMS int64 `json:"fetch_time_ms"`

	// ContentLength is the length of the emitted Markdown.
	ContentLength int `json:"content_length,omitempty"`

	// HTMLLength is the length of the raw rendered HTML.
	HTMLLength int `json:"html_length,omitempty"`

	// Backend names the transport that actually produced the result,
	// even after failover. On failure it names the last transport tried.
	Backend string `json:"backend,omitempty"`

	// BackendsTried counts the transports attempted.
	BackendsTried int `json:"backends_tried,omitempty"`

	// Truncated is set when Content was cut at MaxLength.
	Truncated bool `json:"truncated,omitempty"`
}

// SearchResult is one structured result extracted from a results page.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchResponse is the envelope printed for a search operation.
//
// Exactly one of Results and Error is populated: Results is non-nil
// (possibly empty — zero results is a success) on success, Error is
// non-nil on failure.
type SearchResponse struct {
	// Success indicates whether the results page was fetched and parsed.
	Success bool `json:"success"`

	// Query echoes the search query.
	Query string `json:"query"`

	// Engine echoes the search engine used.
	Engine string `json:"engine"`

	// Results holds the extracted results in page order, deduplicated
	// by URL. Non-nil iff Success.
	Results []SearchResult `json:"results,omitzero"`

	// Metadata carries timing and provenance for the operation.
	Metadata SearchMetadata `json:"metadata"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// SearchMetadata holds timing and provenance for a search.
type SearchMetadata struct {
	// SearchTimeMS is the wall time from operation start to final
	// session release, in milliseconds.
	SearchTimeMS int64 `json:"search_time_ms"`

	// ResultCount always equals len(Results).
	ResultCount int `json:"result_count"`

	// Backend names the transport that actually produced the result,
	// even after failover. On failure it names the last transport tried.
	Backend string `json:"backend,omitempty"`

	// BackendsTried counts the transports attempted.
	BackendsTried int `json:"backends_tried,omitempty"`

	// PagesFetched counts the results pages navigated.
	PagesFetched int `json:"pages_fetched,omitempty"`
}

// NewFetchFailure builds a well-formed failure envelope for a fetch.
func NewFetchFailure(url string, err error, meta FetchMetadata) *FetchResponse {
	return &FetchResponse{
		Success:  false,
		URL:      url,
		Metadata: meta,
		Error:    DetailOf(err),
	}
}

// NewSearchFailure builds a well-formed failure envelope for a search.
func NewSearchFailure(query string, engine SearchEngine, err error, meta SearchMetadata) *SearchResponse {
	return &SearchResponse{
		Success:  false,
		Query:    query,
		Engine:   engine.String(),
		Metadata: meta,
		Error:    DetailOf(err),
	}
}
