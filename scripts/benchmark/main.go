package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/use-agent/forage/backend"
	"github.com/use-agent/forage/config"
	"github.com/use-agent/forage/models"
)

// CLI flags
var (
	backendSel = flag.String("backend", "auto", "transport to benchmark: auto, rod or webdriver")
	runs       = flag.Int("runs", 3, "number of runs per URL for averaging")
	headless   = flag.Bool("headless", true, "run the browser headless")
	output     = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test URLs covering 5 site types.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Blog", "https://go.dev/blog/go1.21"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"News", "https://www.bbc.com/news"},
	{"Complex", "https://github.com/go-rod/rod"},
}

// --- Benchmark result types ---

type runResult struct {
	Run              int     `json:"run"`
	FetchMs          int64   `json:"fetch_ms"`
	ContentLength    int     `json:"content_length"`
	HTMLLength       int     `json:"html_length"`
	ReductionPercent float64 `json:"reduction_percent"`
	Backend          string  `json:"backend"`
	HasTitle         bool    `json:"has_title"`
	Truncated        bool    `json:"truncated"`
	Success          bool    `json:"success"`
	Error            string  `json:"error,omitempty"`
}

type urlAverages struct {
	FetchMs          float64 `json:"fetch_ms"`
	ContentLength    float64 `json:"content_length"`
	ReductionPercent float64 `json:"reduction_percent"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Label    string       `json:"label"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	Backend    string      `json:"backend"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== Forage Benchmark Suite ===")
	fmt.Printf("Backend:   %s\n", *backendSel)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	cfg := config.Load()
	cfg.Browser.Headless = *headless
	orch := backend.NewOrchestrator(cfg)

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Backend:    *backendSel,
		RunsPerURL: *runs,
	}

	for _, t := range testURLs {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkURL(orch, t.URL, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %.1f%% smaller  via %s\n", rr.FetchMs, rr.ReductionPercent, rr.Backend)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	// Print summary table.
	printTable(report.Results)

	// Write JSON report.
	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func benchmarkURL(orch *backend.Orchestrator, url string, run int) runResult {
	rr := runResult{Run: run}

	req := &models.FetchRequest{
		URL:      url,
		Backend:  models.BackendKind(*backendSel),
		Headless: *headless,
		Timeout:  60 * time.Second,
	}

	resp := orch.Fetch(context.Background(), req)

	rr.Success = resp.Success
	rr.FetchMs = resp.Metadata.FetchTimeMS
	rr.ContentLength = resp.Metadata.ContentLength
	rr.HTMLLength = resp.Metadata.HTMLLength
	rr.Backend = resp.Metadata.Backend
	rr.Truncated = resp.Metadata.Truncated
	rr.HasTitle = resp.Title != ""
	if resp.Metadata.HTMLLength > 0 {
		rr.ReductionPercent = 100 * (1 - float64(resp.Metadata.ContentLength)/float64(resp.Metadata.HTMLLength))
	}
	if resp.Error != nil {
		rr.Error = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
	}

	return rr
}

func computeAverages(runs []runResult) *urlAverages {
	var successCount int
	var avg urlAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.FetchMs += float64(r.FetchMs)
		avg.ContentLength += float64(r.ContentLength)
		avg.ReductionPercent += r.ReductionPercent
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.FetchMs /= n
	avg.ContentLength /= n
	avg.ReductionPercent /= n
	return &avg
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tSize Reduction\tContent Len\tBackend\n")
	fmt.Fprintf(w, "───\t───────────\t──────────────\t───────────\t───────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}

		fmt.Fprintf(w, "%s\t%dms\t%.1f%%\t%s\t%s\n",
			truncateURL(r.URL, 40),
			int64(r.Averages.FetchMs),
			r.Averages.ReductionPercent,
			formatInt(int(r.Averages.ContentLength)),
			dominantBackend(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

// dominantBackend names the transport that served most successful runs.
func dominantBackend(runs []runResult) string {
	counts := map[string]int{}
	for _, r := range runs {
		if r.Success {
			counts[r.Backend]++
		}
	}
	best, bestCount := "-", 0
	for name, count := range counts {
		if count > bestCount {
			best = name
			bestCount = count
		}
	}
	return best
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func formatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
