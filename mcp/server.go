// Package mcp exposes site analysis as Model Context Protocol tools.
//
// An MCP client (an editor or agent host) connects over stdio and calls
// analyze_site, list_runs and get_run.
//
// Information Hiding:
// - SDK server construction and tool registration hidden
// - Run record decoding hidden
// - Tool input and output schemas derived from unexported types

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/richinex/seoscout/cli"
	"github.com/richinex/seoscout/logging"
	"github.com/richinex/seoscout/pipeline"
	"github.com/richinex/seoscout/report"
	"github.com/richinex/seoscout/storage"
)

// Tool names.
const (
	ToolAnalyzeSite = "analyze_site"
	ToolListRuns    = "list_runs"
	ToolGetRun      = "get_run"
)

const defaultListLimit = 20

// Server wraps the MCP SDK server around an Analyzer and its run store.
type Server struct {
	MCPServer *sdkmcp.Server

	analyzer *cli.Analyzer
	store    storage.RunStore
	logger   *slog.Logger
}

// NewServer creates an MCP server with the analysis tools registered.
func NewServer(analyzer *cli.Analyzer, store storage.RunStore, version string) *Server {
	s := &Server{
		MCPServer: sdkmcp.NewServer(
			&sdkmcp.Implementation{Name: "seoscout", Version: version},
			nil,
		),
		analyzer: analyzer,
		store:    store,
		logger:   logging.New("mcp"),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        ToolAnalyzeSite,
		Description: "Run keyword research, a Lighthouse audit and a summary for a website. Returns the report; a failing stage yields a partial report.",
	}, s.handleAnalyzeSite)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        ToolListRuns,
		Description: "List recorded analysis runs, newest first.",
	}, s.handleListRuns)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        ToolGetRun,
		Description: "Get the report, narrative and stage log of a recorded run.",
	}, s.handleGetRun)
}

// Run serves MCP over stdin/stdout until ctx is canceled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server over stdio")
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

// --- Tool input/output types ---

type analyzeSiteInput struct {
	Target string `json:"target" jsonschema:"domain or URL of the site to analyze"`
	Query  string `json:"query,omitempty" jsonschema:"search query for keyword research (defaults to the target)"`
}

type analyzeSiteOutput struct {
	RunID     string        `json:"run_id"`
	Report    report.Report `json:"report"`
	Narrative string        `json:"narrative,omitempty"`
	Warning   string        `json:"warning,omitempty"`
}

type listRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to return (default 20, 0 for the default)"`
}

type runSummary struct {
	ID          string `json:"id"`
	Target      string `json:"target"`
	Query       string `json:"query,omitempty"`
	Status      string `json:"status"`
	FailedStage string `json:"failed_stage,omitempty"`
	StartedAt   string `json:"started_at"`
	DurationMS  int64  `json:"duration_ms"`
}

type listRunsOutput struct {
	Runs []runSummary `json:"runs"`
}

type getRunInput struct {
	RunID string `json:"run_id" jsonschema:"run ID from analyze_site or list_runs"`
}

type getRunOutput struct {
	Run       runSummary    `json:"run"`
	Report    report.Report `json:"report"`
	Narrative string        `json:"narrative,omitempty"`
	Log       []string      `json:"log"`
}

// --- Handlers ---

func (s *Server) handleAnalyzeSite(ctx context.Context, _ *sdkmcp.CallToolRequest, input analyzeSiteInput) (*sdkmcp.CallToolResult, analyzeSiteOutput, error) {
	if input.Target == "" {
		return nil, analyzeSiteOutput{}, errors.New("target is required")
	}

	out, err := s.analyzer.Analyze(ctx, input.Target, input.Query)
	if err != nil {
		return nil, analyzeSiteOutput{}, fmt.Errorf("analyze_site: %w", err)
	}

	result := analyzeSiteOutput{
		RunID:     out.Run.ID,
		Report:    out.Report,
		Narrative: out.Narrative,
	}
	if out.NarrativeErr != nil {
		result.Warning = "narrative unavailable: " + out.NarrativeErr.Error()
	}
	return nil, result, nil
}

func (s *Server) handleListRuns(ctx context.Context, _ *sdkmcp.CallToolRequest, input listRunsInput) (*sdkmcp.CallToolResult, listRunsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	runs, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, listRunsOutput{}, fmt.Errorf("list_runs: %w", err)
	}

	result := listRunsOutput{Runs: make([]runSummary, 0, len(runs))}
	for _, r := range runs {
		result.Runs = append(result.Runs, summarize(r))
	}
	return nil, result, nil
}

func (s *Server) handleGetRun(ctx context.Context, _ *sdkmcp.CallToolRequest, input getRunInput) (*sdkmcp.CallToolResult, getRunOutput, error) {
	run, err := s.store.Get(ctx, input.RunID)
	if err != nil {
		return nil, getRunOutput{}, fmt.Errorf("get_run %s: %w", input.RunID, err)
	}

	result := getRunOutput{Run: summarize(run), Narrative: run.Narrative, Log: []string{}}
	if err := json.Unmarshal(run.Report, &result.Report); err != nil {
		return nil, getRunOutput{}, fmt.Errorf("decode report of run %s: %w", run.ID, err)
	}

	var c pipeline.Context
	if err := json.Unmarshal(run.Context, &c); err == nil {
		result.Log = append(result.Log, c.Log...)
	}
	return nil, result, nil
}

func summarize(r storage.Run) runSummary {
	return runSummary{
		ID:          r.ID,
		Target:      r.Target,
		Query:       r.Query,
		Status:      r.Status,
		FailedStage: r.FailedStage,
		StartedAt:   r.StartedAt.Format(time.RFC3339),
		DurationMS:  r.Duration().Milliseconds(),
	}
}
