// Command coco analyzes the class structure of a JVM workspace.
//
//	coco [flags] [workspace]
//
// Flags mirror the keys of coco.toml; COCO_* environment variables override
// the file and flags override both.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ritzau/coco/pkg/analysis"
	"github.com/ritzau/coco/pkg/analysis/api"
	"github.com/ritzau/coco/pkg/config"
	"github.com/ritzau/coco/pkg/ctags"
	"github.com/ritzau/coco/pkg/logging"
	"github.com/ritzau/coco/pkg/output"
	"github.com/ritzau/coco/pkg/plugin"
	"github.com/ritzau/coco/pkg/plugin/linkage"
	"github.com/ritzau/coco/pkg/pubsub"
	"github.com/ritzau/coco/pkg/structanalysis"
	"github.com/ritzau/coco/pkg/watcher"
	"github.com/ritzau/coco/pkg/web"
)

// Debounce settings for --watch
const (
	quietPeriod = 500 * time.Millisecond
	maxWait     = 5 * time.Second
)

var errUsage = errors.New("too many arguments")

// parseArgs parses the command line into flags. A single positional
// argument sets the workspace.
func parseArgs(flags *pflag.FlagSet, args []string) error {
	if err := flags.Parse(args); err != nil {
		return err
	}
	switch flags.NArg() {
	case 0:
		return nil
	case 1:
		if err := flags.Set("workspace", flags.Arg(0)); err != nil {
			return fmt.Errorf("setting workspace: %w", err)
		}
		return nil
	}
	return errUsage
}

func main() {
	flags := config.NewFlagSet("coco")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: coco [flags] [workspace]\n\n")
		flags.PrintDefaults()
	}
	if err := parseArgs(flags, os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		if errors.Is(err, errUsage) {
			flags.Usage()
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(2)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	level := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
	if cfg.Log.JSON {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := analysis.NewRunner(cfg, newRegistry(cfg), ctags.NewExecutor(cfg.Ctags.Binary))

	switch {
	case cfg.WebMode:
		err = serve(ctx, cfg, runner)
	case cfg.Watch:
		err = watch(ctx, runner, func(report *analysis.Report) { printReport(cfg, report) })
	default:
		var report *analysis.Report
		report, err = runner.Run(ctx, analysis.Options{Reason: "initial"})
		if err == nil {
			err = printReport(cfg, report)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error("Analysis failed", "error", err)
		os.Exit(1)
	}
}

// newRegistry loads plugin artifacts natively, falling back to the
// in-process analyzers when plugin.builtin is set
func newRegistry(cfg *config.Config) *plugin.Registry {
	descriptors := plugin.DefaultDescriptors()
	opts := []plugin.Option{
		plugin.WithDir(cfg.Plugin.Dir),
		plugin.WithBuildType(cfg.Plugin.Build),
		plugin.WithConcurrency(cfg.Concurrency),
		plugin.WithLinkChecker(linkage.NewChecker()),
	}

	if cfg.Plugin.Builtin {
		builtin := plugin.NewStaticLoader()
		for _, d := range descriptors {
			language := d.LanguageKey
			builtin.Register(d.BinaryName, func() api.Analyzer { return structanalysis.New(language) })
		}
		opts = append(opts, plugin.WithFallback(builtin))
	}

	return plugin.NewRegistry(plugin.NewNativeLoader(), descriptors, opts...)
}

func printReport(cfg *config.Config, report *analysis.Report) error {
	if cfg.Format == config.FormatJSON {
		return output.WriteJSON(os.Stdout, report)
	}
	output.PrintReport(os.Stdout, report)
	return nil
}

// serve runs the analysis in the background and serves the latest report.
// With --watch every debounced change produces a new report.
func serve(ctx context.Context, cfg *config.Config, runner *analysis.Runner) error {
	server := web.NewServer()

	publish := func(report *analysis.Report) {
		server.SetReport(report)
		server.PublishStatus(pubsub.AnalysisStatus{State: pubsub.StateComplete, RunID: report.RunID, Reason: report.Reason})
	}

	go func() {
		if cfg.Watch {
			err := watch(ctx, runner, publish)
			if err != nil && !errors.Is(err, context.Canceled) {
				logging.Error("Watch failed", "error", err)
			}
			return
		}

		server.PublishStatus(pubsub.AnalysisStatus{State: pubsub.StateRunning, Reason: "initial"})
		report, err := runner.Run(ctx, analysis.Options{Reason: "initial"})
		if err != nil {
			logging.Error("Error during analysis", "error", err)
			server.PublishStatus(pubsub.AnalysisStatus{State: pubsub.StateFailed, Reason: "initial", Message: err.Error()})
			return
		}
		publish(report)
	}()

	return server.Start(ctx, cfg.Port)
}

// watch runs an initial analysis, then re-runs on every debounced batch of
// changes until ctx is done. A failed re-run is logged and the previous
// report stays current.
func watch(ctx context.Context, runner *analysis.Runner, onReport func(*analysis.Report)) error {
	report, err := runner.Run(ctx, analysis.Options{Reason: "initial"})
	if err != nil {
		return err
	}
	onReport(report)

	fw, err := watcher.NewFileWatcher(report.Workspace)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := watcher.NewDebouncer(fw.Events(), quietPeriod, maxWait)
	debouncer.Start(ctx)

	for event := range debouncer.Output() {
		if ctx.Err() != nil {
			break
		}
		reason := watcher.Describe(event)
		logging.Info("Re-running analysis", "reason", reason)

		report, err := runner.Run(ctx, analysis.Options{Reason: reason})
		if err != nil {
			logging.Error("Re-analysis failed", "reason", reason, "error", err)
			continue
		}
		onReport(report)
	}
	return ctx.Err()
}
