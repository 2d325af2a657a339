package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/forage/backend"
	"github.com/use-agent/forage/config"
	"github.com/use-agent/forage/models"
)

func main() {
	cfg := config.Load()
	// The MCP client owns the session; a visible browser window has no
	// place on a server, whatever the config says.
	cfg.Browser.Headless = true

	initLogger(cfg.Log)

	orch := backend.NewOrchestrator(cfg)

	s := server.NewMCPServer(
		"forage",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	webFetchTool := mcp.NewTool("web_fetch",
		mcp.WithDescription("Fetch a web page through a real browser and return its main content as Markdown inside a JSON result envelope. Renders JavaScript-heavy pages."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to fetch"),
		),
		mcp.WithString("backend",
			mcp.Description("Browser transport: 'auto' (default, DevTools with WebDriver failover), 'rod' (DevTools protocol) or 'webdriver' (chromedriver)"),
			mcp.Enum("auto", "rod", "webdriver"),
		),
		mcp.WithNumber("max_length",
			mcp.Description("Truncate content beyond this many bytes (default: 50000)"),
		),
	)
	s.AddTool(webFetchTool, handleWebFetch(orch, cfg))

	webSearchTool := mcp.NewTool("web_search",
		mcp.WithDescription("Run a web search through a real browser and return structured results (title, URL, snippet) inside a JSON result envelope."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query"),
		),
		mcp.WithString("engine",
			mcp.Description("Search engine: 'bing' (default), 'google' or 'duckduckgo'"),
			mcp.Enum("google", "bing", "duckduckgo"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of results (default: 10)"),
		),
	)
	s.AddTool(webSearchTool, handleWebSearch(orch, cfg))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleWebFetch(orch *backend.Orchestrator, cfg *config.Config) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		req := &models.FetchRequest{
			URL:       url,
			Backend:   models.BackendKind(request.GetString("backend", "")),
			Headless:  true,
			Timeout:   cfg.Fetch.DefaultTimeout,
			Wait:      cfg.Fetch.DefaultWait,
			MaxLength: intArg(request, "max_length", cfg.Fetch.MaxContentLength),
		}

		resp := orch.Fetch(ctx, req)
		if !resp.Success {
			return mcp.NewToolResultError(toolError(resp.Error)), nil
		}
		return envelopeResult(resp)
	}
}

func handleWebSearch(orch *backend.Orchestrator, cfg *config.Config) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		req := &models.SearchRequest{
			Query:      query,
			Engine:     models.SearchEngine(request.GetString("engine", "")),
			Backend:    models.BackendAuto,
			MaxResults: intArg(request, "max_results", 10),
			Headless:   true,
			Timeout:    cfg.Fetch.DefaultTimeout,
		}

		resp := orch.Search(ctx, req)
		if !resp.Success {
			return mcp.NewToolResultError(toolError(resp.Error)), nil
		}
		return envelopeResult(resp)
	}
}

// intArg reads an optional numeric tool argument. JSON numbers arrive as
// float64 regardless of the declared type.
func intArg(request mcp.CallToolRequest, key string, fallback int) int {
	if v, ok := request.GetArguments()[key].(float64); ok {
		return int(v)
	}
	return fallback
}

// toolError renders a failure envelope's error as "[CODE] message".
func toolError(detail *models.ErrorDetail) string {
	if detail == nil {
		return "operation failed"
	}
	return fmt.Sprintf("[%s] %s", detail.Code, detail.Message)
}

// envelopeResult renders a success envelope as the tool's text content.
func envelopeResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// initLogger configures slog based on the LogConfig. Everything goes to
// stderr; stdout belongs to the MCP stdio transport.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
