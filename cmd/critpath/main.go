package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshharrison/critpath/internal/api"
	"github.com/joshharrison/critpath/internal/config"
	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/gantt"
	"github.com/joshharrison/critpath/internal/graph"
	"github.com/joshharrison/critpath/internal/reporter"
	"github.com/joshharrison/critpath/internal/ui"
)

var (
	flagConfig  string
	flagDB      string
	flagFile    string
	flagView    string
	flagJSON    bool
	flagNoColor bool
	flagOutput  string
	flagFormat  string
	flagPort    int
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "critpath",
		Short: "Critical path analysis for Gantt task snapshots",
		Long: `critpath reads tasks and dependency links from a Gantt database or JSON export,
computes the earliest and latest schedule of every task, and reports the
critical path that determines the project's duration.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default "+config.DefaultFile+")")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "Gantt SQLite database path")
	root.PersistentFlags().StringVar(&flagFile, "file", "", "Gantt JSON export path (- for stdin)")
	root.PersistentFlags().StringVar(&flagView, "view", "", "Task view: project, product or all")
	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	root.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")

	root.AddCommand(analyzeCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(vizCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(serveCmd())

	return root
}

// loadConfig reads the config file and applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Input.DB = flagDB
	}
	if flags.Changed("file") {
		cfg.Input.File = flagFile
	}
	if flags.Changed("view") {
		cfg.Input.View = flagView
	}
	if cfg.Input.View == "all" {
		cfg.Input.View = ""
	}
	if flags.Changed("json") && flagJSON {
		cfg.Output.Format = "json"
	}
	if flags.Changed("no-color") && flagNoColor {
		cfg.Output.Color = false
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	ui.SetColor(cfg.Output.Color)
	return cfg, nil
}

// loadSnapshot reads the configured input and applies the view filter.
func loadSnapshot(ctx context.Context, in config.InputConfig) (*gantt.Snapshot, error) {
	var snap *gantt.Snapshot

	switch {
	case in.DB != "":
		store, err := gantt.OpenStore(in.DB)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		snap, err = store.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", in.DB, err)
		}
	case in.File != "":
		var (
			data []byte
			err  error
		)
		if in.File == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(in.File)
		}
		if err != nil {
			return nil, fmt.Errorf("read export: %w", err)
		}
		snap, err = gantt.ParseExport(data)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("no input: pass --db or --file, or set [input] in the config file")
	}

	return snap.FilterView(in.View), nil
}

// analysis is shared by analyze, viz and export.
type analysis struct {
	cfg      config.Config
	snapshot *gantt.Snapshot
	links    []graph.DependencyLink
	graph    *graph.TaskGraph
	result   *cpm.CriticalPathResult
}

func analyze(cmd *cobra.Command) (*analysis, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logging.NewLogger(os.Stderr)

	snap, err := loadSnapshot(cmd.Context(), cfg.Input)
	if err != nil {
		return nil, err
	}

	tasks, links, skipped := snap.Engine()
	warnSkipped(logger, snap, skipped)
	if len(tasks) == 0 {
		logger.Warn("snapshot has no tasks", "view", cfg.Input.View)
	}

	g := graph.Build(tasks, links)
	result := cpm.Analyze(g)
	logger.Debug("analysed snapshot",
		"tasks", g.TaskCount(),
		"dependencies", g.EdgeCount(),
		"acyclic", result.Acyclic,
		"project_duration", result.ProjectDuration)

	return &analysis{cfg: cfg, snapshot: snap, links: links, graph: g, result: result}, nil
}

// warnSkipped logs the links Engine left out because their type code is unknown.
func warnSkipped(logger *slog.Logger, snap *gantt.Snapshot, skipped []int) {
	for _, i := range skipped {
		logger.Warn("skipping link with unknown type",
			"link", snap.Links[i].ID,
			"source", snap.Links[i].Source,
			"target", snap.Links[i].Target,
			"type", snap.Links[i].Type)
	}
}

func (a *analysis) reporter() *reporter.Reporter {
	return reporter.New(a.graph, a.result, a.links, a.snapshot.Titles())
}

func analyzeCmd() *cobra.Command {
	var flagStrict bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute the schedule and critical path",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := analyze(cmd)
			if err != nil {
				return err
			}

			rpt := a.reporter()
			if a.cfg.Output.Format == "json" {
				if err := outputJSON(rpt.Report()); err != nil {
					return err
				}
			} else {
				rpt.PrintSchedule(os.Stdout)
			}

			if flagStrict {
				return a.result.Err()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagStrict, "strict", false, "Exit non-zero when the dependencies contain a cycle")

	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the dependency graph for dangling links, self loops and cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			snap, err := loadSnapshot(cmd.Context(), cfg.Input)
			if err != nil {
				return err
			}

			tasks, links, skipped := snap.Engine()
			warnSkipped(cfg.Logging.NewLogger(os.Stderr), snap, skipped)
			report := cpm.Validate(tasks, links)

			if cfg.Output.Format == "json" {
				if err := outputJSON(report); err != nil {
					return err
				}
			} else {
				reporter.PrintValidation(os.Stdout, report)
			}

			if !report.Valid {
				return fmt.Errorf("%d validation problem(s)", len(report.Issues))
			}
			return nil
		},
	}
}

func vizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Print the dependency graph as ASCII waves or Graphviz DOT",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := analyze(cmd)
			if err != nil {
				return err
			}

			switch flagFormat {
			case "dot":
				a.reporter().PrintDOT(os.Stdout)
			case "ascii":
				a.reporter().PrintASCII(os.Stdout)
			default:
				return fmt.Errorf("unsupported format %q (use ascii or dot)", flagFormat)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagFormat, "format", "ascii", "Output format (ascii, dot)")

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the full analysis as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := analyze(cmd)
			if err != nil {
				return err
			}

			data, err := a.reporter().JSON()
			if err != nil {
				return err
			}
			if flagOutput == "" || flagOutput == "-" {
				fmt.Println(string(data))
				return nil
			}
			if err := os.WriteFile(flagOutput, append(data, '\n'), 0644); err != nil {
				return fmt.Errorf("write %s: %w", flagOutput, err)
			}
			fmt.Fprintf(os.Stderr, "%s wrote %s\n", ui.Green("✓"), flagOutput)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagOutput, "output", "", "Output file (default stdout)")

	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the critical path API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = flagPort
			}
			logger := cfg.Logging.NewLogger(os.Stderr)

			srv := api.NewServer(api.Options{
				Logger:       logger,
				CacheEntries: cfg.Server.CacheEntries,
				DefaultView:  cfg.Input.View,
			})
			if cfg.Input.DB != "" {
				store, err := gantt.OpenStore(cfg.Input.DB)
				if err != nil {
					return err
				}
				defer store.Close()
				srv.SetSource(store)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, logger, cfg.Server.Addr(), srv.Handler())
		},
	}

	cmd.Flags().IntVar(&flagPort, "port", 0, "Listen port (overrides [server] port)")

	return cmd
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, logger *slog.Logger, addr string, h http.Handler) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	fmt.Fprintf(os.Stderr, "\n🛑 %s\n", ui.Yellow("Received interrupt, shutting down..."))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// --- Output helpers ---

func outputJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
