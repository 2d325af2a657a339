package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/forage/backend"
	"github.com/use-agent/forage/config"
	"github.com/use-agent/forage/models"
)

func getCmdSearch(cfg *config.Config, orch *backend.Orchestrator) *cobra.Command {
	var (
		query      string
		engineSel  string
		backendSel string
		maxResults int
		headless   bool
		timeout    time.Duration
	)

	searchCmd := &cobra.Command{
		Use:   "search --query <query>",
		Short: "Run a web search and print structured results",
		Long: `search loads a search engine's results pages in a browser and prints
the extracted results as a JSON envelope. Results keep page order, are
deduplicated by URL and capped at --max-results.

A results page with zero results is still a success; the envelope
carries an empty results array.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := &models.SearchRequest{
				Query:      query,
				Engine:     models.SearchEngine(engineSel),
				Backend:    models.BackendKind(backendSel),
				MaxResults: maxResults,
				Headless:   headless,
				Timeout:    timeout,
			}

			resp := orch.Search(cmd.Context(), req)
			if err := printEnvelope(resp); err != nil {
				return err
			}
			if !resp.Success {
				return errOperationFailed
			}
			return nil
		},
	}

	flags := searchCmd.Flags()
	flags.StringVar(&query, "query", "", "search query (required)")
	flags.StringVar(&engineSel, "engine", models.EngineBing.String(), "search engine: google, bing or duckduckgo")
	flags.StringVar(&backendSel, "backend", models.BackendAuto.String(), "transport: auto, rod or webdriver")
	flags.IntVar(&maxResults, "max-results", 10, "maximum number of results")
	flags.BoolVar(&headless, "headless", cfg.Browser.Headless, "run the browser without a visible window")
	flags.DurationVar(&timeout, "timeout", cfg.Fetch.DefaultTimeout, "navigation timeout per results page")
	_ = searchCmd.MarkFlagRequired("query")

	return searchCmd
}
