// Package main provides the seoscout CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/richinex/seoscout/cli"
	"github.com/richinex/seoscout/mcp"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Global flags
	configPath  string
	provider    string
	format      string
	noNarrative bool
	noHistory   bool
	verbose     bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "seoscout",
		Short: "SEO analysis pipeline for websites",
		Long: `Run an SEO analysis for one or more websites.

Each run executes three stages against a shared context:
- keyword_research: search results, related questions, and keywords
- technical_audit: Lighthouse category scores and failing audits
- summary: findings derived from everything gathered

If a stage fails the run stops there and a partial report is produced.`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider for the narrative (openai, anthropic, deepseek, gemini)")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", cli.FormatMarkdown, "Output format (markdown, json)")
	rootCmd.PersistentFlags().BoolVar(&noNarrative, "no-narrative", false, "Skip the LLM-written narrative")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "Do not read or record run history")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logging")

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(toolsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, cli.ErrPartialRun) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func options() (cli.Options, error) {
	if format != cli.FormatMarkdown && format != cli.FormatJSON {
		return cli.Options{}, fmt.Errorf("unknown format %q (use markdown or json)", format)
	}
	opts := cli.DefaultOptions()
	opts.ConfigPath = configPath
	opts.Provider = provider
	opts.Format = format
	opts.NoNarrative = noNarrative
	opts.NoHistory = noHistory
	opts.Verbose = verbose
	return opts, nil
}

func analyzeCmd() *cobra.Command {
	var query string
	var parallel int

	cmd := &cobra.Command{
		Use:   "analyze [targets...]",
		Short: "Analyze one or more websites",
		Long: `Analyze one or more websites and print a report per target.

Targets are domains or URLs. With --parallel, up to that many targets are
analyzed at once; stages within one target always run in order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := options()
			if err != nil {
				return err
			}
			opts.Query = query
			opts.Parallel = parallel
			return cli.Analyze(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Search query (defaults to the target)")
	cmd.Flags().IntVar(&parallel, "parallel", 1, "Maximum number of targets analyzed at once")

	return cmd
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := options()
			if err != nil {
				return err
			}
			return cli.History(cmd.Context(), cmd.OutOrStdout(), limit, opts)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")

	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [run-id]",
		Short: "Print the report and stage log of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := options()
			if err != nil {
				return err
			}
			return cli.Show(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		Long: `Serve the analysis API over HTTP.

Routes:
  GET  /healthz
  POST /api/analyze     {"target": "...", "query": "..."}
  GET  /api/runs?limit=N
  GET  /api/runs/:id`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := options()
			if err != nil {
				return err
			}
			return cli.Serve(cmd.Context(), addr, opts)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")

	return cmd
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analysis tools over MCP (stdio)",
		Long: `Start a Model Context Protocol server over stdin/stdout.

Tools:
- analyze_site: run the pipeline for a target and return its report
- list_runs: list recorded runs, newest first
- get_run: report, narrative and stage log of one run

Logs go to stderr so stdout carries only protocol messages.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := options()
			if err != nil {
				return err
			}
			analyzer, store, err := cli.OpenAnalyzer(opts)
			if err != nil {
				return err
			}
			defer store.Close()
			return mcp.NewServer(analyzer, store, version).Run(cmd.Context())
		},
	}
}

func toolsCmd() *cobra.Command {
	var showDetails bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available fetchers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListTools(cmd.OutOrStdout(), showDetails)
		},
	}

	cmd.Flags().BoolVarP(&showDetails, "details", "V", false, "Show parameter details")

	return cmd
}
