// Package analysis drives one analysis run: scan the workspace, detect its
// tags, run the matching plugins and build the class graph.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ritzau/coco/pkg/config"
	"github.com/ritzau/coco/pkg/ctags"
	"github.com/ritzau/coco/pkg/cycles"
	"github.com/ritzau/coco/pkg/graph"
	"github.com/ritzau/coco/pkg/logging"
	"github.com/ritzau/coco/pkg/plugin"
	"github.com/ritzau/coco/pkg/workspace"
)

// Runner orchestrates analysis runs
type Runner struct {
	cfg      *config.Config
	registry *plugin.Registry
	executor ctags.Executor
	logger   *logging.Logger

	mu   sync.Mutex // Prevent concurrent analysis runs
	last *Report
}

// Options configures a single run
type Options struct {
	Reason string // e.g., "initial analysis", "build.gradle changed"
}

// NewRunner creates a runner. The registry decides which plugins run; the
// executor produces their tag files.
func NewRunner(cfg *config.Config, registry *plugin.Registry, executor ctags.Executor) *Runner {
	return &Runner{
		cfg:      cfg,
		registry: registry,
		executor: executor,
		logger:   logging.New("analysis"),
	}
}

// Last returns the report of the most recent successful run, or nil
func (r *Runner) Last() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Run executes one analysis. Only a failed workspace scan is an error;
// plugin failures, unsupported languages and unresolved parents are
// recorded in the report.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	// Lock to prevent concurrent analysis
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	root, err := filepath.Abs(r.cfg.Workspace)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace: %w", err)
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Workspace: root,
		Reason:    opts.Reason,
		StartedAt: time.Now(),
	}
	ctx = logging.WithRunID(ctx, report.RunID)
	r.logger.InfoContext(ctx, "Starting analysis", "workspace", root, "reason", opts.Reason)

	// Phase 1: Scan
	r.logger.InfoContext(ctx, "[1/4] Scanning workspace...")
	listing, err := workspace.Scan(root, workspace.ScanOptions{
		Ignore:      r.cfg.Ignore,
		NoGitignore: !r.cfg.Gitignore,
	})
	if err != nil {
		return nil, fmt.Errorf("scanning workspace: %w", err)
	}
	report.Files = len(listing.Files)

	// Phase 2: Detect
	report.Tags = workspace.Detect(listing.Names())
	if err := report.Tags.Validate(); err != nil {
		report.warn(ctx, r.logger, err.Error())
	}
	r.logger.InfoContext(ctx, "[2/4] Detected workspace", "files", report.Files, "tags", report.Tags.Active())

	for _, key := range r.registry.Uncovered(report.Tags) {
		report.warn(ctx, r.logger, fmt.Errorf("%w: %s", plugin.ErrNoPlugin, key).Error())
	}

	// Phase 3: Plugins
	r.logger.InfoContext(ctx, "[3/4] Running analyzer plugins...")
	src := NewCtagsSource(r.executor, root, listing.ByLanguage(), r.cfg.Ctags.Timeout)
	result := r.registry.Run(ctx, report.Tags, src)

	for _, batch := range result.Batches {
		report.Plugins = append(report.Plugins, PluginRun{
			Language: batch.Descriptor.LanguageKey,
			Binary:   batch.Descriptor.BinaryName,
			Plugin:   batch.PluginName,
			Records:  len(batch.Records),
			Duration: batch.Duration,
		})
	}
	report.PluginErrors = result.Errors
	for _, perr := range result.Errors {
		if errors.Is(perr, context.DeadlineExceeded) || errors.Is(perr, context.Canceled) {
			report.warn(ctx, r.logger, fmt.Sprintf("%s analysis did not finish: %v", perr.Language, perr.Err))
		}
	}

	// Phase 4: Graph
	report.Graph = graph.Build(result.Records())
	report.Cycles = cycles.FindClassCycles(report.Graph)
	report.UncoveredFiles = FindUncoveredFiles(sourcesOf(listing, result), report.Graph)
	report.CrossPackage = FindCrossPackageEdges(report.Graph)

	for _, amb := range report.Graph.Ambiguous() {
		child, _ := report.Graph.Node(amb.Child)
		report.warn(ctx, r.logger, fmt.Sprintf("%s: parent %q matches %d classes, left unresolved", child.Name, amb.Name, len(amb.Candidates)))
	}
	for _, cycle := range report.Cycles {
		r.logger.InfoContext(ctx, "Inheritance cycle", "classes", cycle.Classes)
	}

	report.Duration = time.Since(report.StartedAt)
	summary := report.Summary()
	r.logger.InfoContext(ctx, "[4/4] Analysis complete",
		"classes", summary.Classes,
		"edges", summary.Edges,
		"unresolved", summary.Unresolved,
		"cycles", summary.Cycles,
		"pluginErrors", summary.PluginErrors,
		"durationMs", report.Duration.Milliseconds())

	r.last = report
	return report, nil
}

// sourcesOf returns the scanned files of the languages whose plugins ran
func sourcesOf(listing *workspace.Listing, result *plugin.RunResult) map[string][]string {
	byLanguage := listing.ByLanguage()
	sources := make(map[string][]string, len(result.Batches))
	for _, batch := range result.Batches {
		key := batch.Descriptor.LanguageKey
		sources[key] = byLanguage[key]
	}
	return sources
}

func (r *Report) warn(ctx context.Context, logger *logging.Logger, msg string) {
	r.Warnings = append(r.Warnings, msg)
	logger.WarnContext(ctx, msg)
}
