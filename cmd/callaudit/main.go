package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rohrwerk/callaudit/internal/audit"
	"github.com/rohrwerk/callaudit/internal/call"
	"github.com/rohrwerk/callaudit/internal/collector"
	"github.com/rohrwerk/callaudit/internal/config"
	"github.com/rohrwerk/callaudit/internal/correlate"
	"github.com/rohrwerk/callaudit/internal/pipeline"
	"github.com/rohrwerk/callaudit/internal/report"
	"github.com/rohrwerk/callaudit/internal/storage/sqlite"
	"github.com/rohrwerk/callaudit/pkg/logger"
)

var (
	version = "dev"

	configPath string
	lastN      int
	callIDs    []string
	files      []string
	noIndex    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "callaudit",
		Short: "Quality verification for recorded intake calls",
		Long: `Callaudit audits recorded phone-intake calls: it normalizes the
transcript, runs heuristic quality checks, optionally cross-checks an
independent re-transcription of the audio, and writes per-call and
batch reports with a pass/warn/fail verdict.`,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "callaudit.toml", "Path to config file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Audit a batch of calls and write reports",
		Long: `Audits calls fetched from the upstream API (--last / --id) or read
from local record files (--file). A <name>.words.json file next to a
local record is picked up as the secondary transcription.

Exits 1 when any critical finding is present.`,
		RunE: runBatch,
	}
	runCmd.Flags().IntVarP(&lastN, "last", "n", 0, "Audit the most recent N calls")
	runCmd.Flags().StringArrayVar(&callIDs, "id", nil, "Audit a specific call id (repeatable)")
	runCmd.Flags().StringArrayVarP(&files, "file", "f", nil, "Audit a local call record file (repeatable)")
	runCmd.Flags().BoolVar(&noIndex, "no-index", false, "Skip writing the run index database")
	rootCmd.AddCommand(runCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a directory and audit call records as they appear",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := app.pipeline.Watch(ctx, args[0]); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "runs",
		Short: "List recent audit runs from the run index",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if app.runs == nil {
				return fmt.Errorf("run index is not configured")
			}
			runs, err := app.runs.ListRuns(20)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Printf("%s  %s  %s  calls=%d critical=%d warning=%d\n",
					r.StartedAt.Format("2006-01-02 15:04"), r.RunID[:8],
					strings.ToUpper(r.Overall), r.CallCount, r.Criticals, r.Warnings)
			}
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("callaudit %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired components for one command invocation.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	runs     *sqlite.RunStorage
	pipeline *pipeline.Pipeline
	closeFns []func() error
}

func newApp() (*app, error) {
	// .env is optional; real deployments set the key in the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(logger.Config(cfg.Logging))
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}

	if !noIndex {
		db, err := sqlite.Open(cfg.Storage.DBPath)
		if err != nil {
			return nil, err
		}
		a.closeFns = append(a.closeFns, db.Close)
		a.runs, err = sqlite.NewRunStorage(db, log)
		if err != nil {
			return nil, err
		}
	}

	auditCfg := audit.DefaultConfig()
	auditCfg.Gibberish.CriticalScore = cfg.Audit.GibberishCritical
	auditCfg.Gibberish.WarningScore = cfg.Audit.GibberishWarning
	auditCfg.Timing.AgentRatioMax = cfg.Audit.AgentRatioMax
	auditCfg.Timing.TurnGapMs = cfg.Audit.TurnGapMs
	auditCfg.Timing.MaxCallMs = cfg.Audit.MaxCallMs

	corrCfg := correlate.DefaultConfig()
	corrCfg.HandoffWindowS = cfg.Correlate.HandoffWindowS
	corrCfg.AgentBufferS = cfg.Correlate.AgentBufferS
	corrCfg.DedupWindowS = cfg.Correlate.DedupWindowS

	a.pipeline = pipeline.New(
		audit.NewAuditor(auditCfg, log),
		correlate.NewCorrelator(corrCfg, log),
		report.NewReporter(cfg.Output.ReportsDir, log),
		a.runs,
		cfg.Output.ReportsDir,
		cfg.Pipeline.MaxConcurrency,
		log,
	)
	return a, nil
}

func (a *app) Close() {
	for _, fn := range a.closeFns {
		_ = fn()
	}
	_ = a.log.Sync()
}

func runBatch(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var inputs []pipeline.Input
	if len(files) > 0 {
		inputs, err = loadLocalInputs(files, app.log)
		if err != nil {
			return err
		}
	} else {
		coll, err := collector.New(app.cfg.Upstream, app.cfg.Output.RawDir, app.log)
		if err != nil {
			return err
		}
		last := lastN
		if last == 0 && len(callIDs) == 0 {
			last = app.cfg.Pipeline.DefaultLast
		}
		collected, err := coll.Collect(ctx, collector.Options{IDs: callIDs, Last: last})
		if err != nil {
			return err
		}
		for _, c := range collected {
			inputs = append(inputs, pipeline.Input{Record: c.Record})
		}
	}

	run, err := app.pipeline.Run(ctx, inputs)
	if err != nil {
		return err
	}

	fmt.Printf("\nverdict: %s (%d critical, %d warning)\n",
		strings.ToUpper(run.Overall), run.Criticals, run.Warnings)
	fmt.Printf("summary: %s\n", run.SummaryPath)

	if run.Criticals > 0 {
		os.Exit(1)
	}
	return nil
}

// loadLocalInputs reads call record files, picking up <name>.words.json
// secondary transcriptions when present.
func loadLocalInputs(paths []string, log *logger.Logger) ([]pipeline.Input, error) {
	var inputs []pipeline.Input
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		rec, err := call.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		input := pipeline.Input{Record: rec}

		sidecar := strings.TrimSuffix(path, ".json") + ".words.json"
		if wordsData, err := os.ReadFile(sidecar); err == nil {
			words, err := correlate.DecodeWords(wordsData)
			if err != nil {
				log.Warn("Ignoring unreadable secondary transcription",
					logger.String("path", sidecar),
					logger.Error(err))
			} else {
				input.SecondaryWords = words
			}
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}
