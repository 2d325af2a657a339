package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/forage/backend"
	"github.com/use-agent/forage/config"
	"github.com/use-agent/forage/models"
)

func getCmdFetch(cfg *config.Config, orch *backend.Orchestrator) *cobra.Command {
	var (
		rawURL     string
		backendSel string
		headless   bool
		timeout    time.Duration
		wait       time.Duration
		maxLength  int
	)

	fetchCmd := &cobra.Command{
		Use:   "fetch --url <url>",
		Short: "Fetch a page and print its content as Markdown",
		Long: `fetch navigates a browser to the URL, waits for JavaScript to render,
extracts the main content as Markdown and prints the result envelope.

Invalid requests produce an INVALID_INPUT failure envelope without
launching a browser.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := &models.FetchRequest{
				URL:       rawURL,
				Backend:   models.BackendKind(backendSel),
				Headless:  headless,
				Timeout:   timeout,
				Wait:      wait,
				MaxLength: maxLength,
			}

			resp := orch.Fetch(cmd.Context(), req)
			if err := printEnvelope(resp); err != nil {
				return err
			}
			if !resp.Success {
				return errOperationFailed
			}
			return nil
		},
	}

	flags := fetchCmd.Flags()
	flags.StringVar(&rawURL, "url", "", "URL to fetch (required)")
	flags.StringVar(&backendSel, "backend", models.BackendAuto.String(), "transport: auto, rod or webdriver")
	flags.BoolVar(&headless, "headless", cfg.Browser.Headless, "run the browser without a visible window")
	flags.DurationVar(&timeout, "timeout", cfg.Fetch.DefaultTimeout, "navigation timeout")
	flags.DurationVar(&wait, "wait", cfg.Fetch.DefaultWait, "post-load pause for JavaScript rendering")
	flags.IntVar(&maxLength, "max-length", cfg.Fetch.MaxContentLength, "truncate content beyond this many bytes")
	_ = fetchCmd.MarkFlagRequired("url")

	return fetchCmd
}
