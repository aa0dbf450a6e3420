package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ritzau/coco/pkg/logging"
	"github.com/ritzau/coco/pkg/model"
	"github.com/ritzau/coco/pkg/workspace"
)

// TagSource produces the tag-file text for one language of the workspace
type TagSource interface {
	TagFile(ctx context.Context, languageKey string) (string, error)
}

// TagSourceFunc adapts a function to the TagSource interface
type TagSourceFunc func(ctx context.Context, languageKey string) (string, error)

func (f TagSourceFunc) TagFile(ctx context.Context, languageKey string) (string, error) {
	return f(ctx, languageKey)
}

// LinkChecker reports unresolved shared-library dependencies of an artifact
type LinkChecker interface {
	Missing(path string) ([]string, error)
}

// Batch is the output of one plugin
type Batch struct {
	Descriptor Descriptor
	PluginName string
	Records    []model.RawClassRecord
	Duration   time.Duration
}

// RunResult holds the successful batches in selection order and the
// per-plugin failures
type RunResult struct {
	Batches []Batch
	Errors  []*Error
}

// Records returns the record batches in selection order, ready for graph building
func (r *RunResult) Records() [][]model.RawClassRecord {
	out := make([][]model.RawClassRecord, 0, len(r.Batches))
	for _, b := range r.Batches {
		out = append(out, b.Records)
	}
	return out
}

// Registry maps detected tags to plugins and runs them
type Registry struct {
	loader      Loader
	fallback    Loader
	linkChecker LinkChecker
	descriptors []Descriptor
	dir         string
	build       string
	concurrency int
	logger      *logging.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithDir sets the artifact root directory (default "target")
func WithDir(dir string) Option {
	return func(r *Registry) { r.dir = dir }
}

// WithBuildType sets the build configuration directory (default release)
func WithBuildType(build string) Option {
	return func(r *Registry) { r.build = build }
}

// WithConcurrency bounds the number of plugins running at once; 0 runs all at once
func WithConcurrency(n int) Option {
	return func(r *Registry) { r.concurrency = n }
}

// WithFallback sets a loader tried when the primary loader fails
func WithFallback(loader Loader) Option {
	return func(r *Registry) { r.fallback = loader }
}

// WithLinkChecker enables missing-library diagnostics for failed loads
func WithLinkChecker(checker LinkChecker) Option {
	return func(r *Registry) { r.linkChecker = checker }
}

// NewRegistry creates a registry over a fixed descriptor set
func NewRegistry(loader Loader, descriptors []Descriptor, opts ...Option) *Registry {
	r := &Registry{
		loader:      loader,
		descriptors: append([]Descriptor(nil), descriptors...),
		dir:         "target",
		build:       BuildRelease,
		logger:      logging.New("plugin.registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Descriptors returns a copy of the registered descriptors
func (r *Registry) Descriptors() []Descriptor {
	return append([]Descriptor(nil), r.descriptors...)
}

// ArtifactPath returns where the artifact for d is expected on this host
func (r *Registry) ArtifactPath(d Descriptor) string {
	return ArtifactPath(r.dir, r.build, hostOS(), d.BinaryName)
}

// Select returns the descriptors whose language tag is present, in registration order
func (r *Registry) Select(tags workspace.Tags) []Descriptor {
	var selected []Descriptor
	for _, d := range r.descriptors {
		if tags.Has(d.LanguageKey) {
			selected = append(selected, d)
		}
	}
	return selected
}

// Uncovered returns the detected source languages that no descriptor handles
func (r *Registry) Uncovered(tags workspace.Tags) []string {
	covered := make(map[string]bool, len(r.descriptors))
	for _, d := range r.descriptors {
		covered[d.LanguageKey] = true
	}

	var uncovered []string
	for _, key := range workspace.SourceTags {
		if tags.Has(key) && !covered[key] {
			uncovered = append(uncovered, key)
		}
	}
	return uncovered
}

type outcome struct {
	index int
	batch *Batch
	err   *Error
}

// openHandles tracks the handles of one run. Whoever takes a handle out
// closes it: the worker when it finishes, or Run for workers still pending
// when the caller stops waiting.
type openHandles struct {
	mu     sync.Mutex
	open   map[int]Handle
	closed bool
}

// add registers h; it reports false once the run has returned
func (o *openHandles) add(i int, h Handle) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	o.open[i] = h
	return true
}

func (o *openHandles) take(i int) Handle {
	o.mu.Lock()
	defer o.mu.Unlock()
	h := o.open[i]
	delete(o.open, i)
	return h
}

// takeAll empties the set and refuses further handles
func (o *openHandles) takeAll() map[int]Handle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	all := o.open
	o.open = make(map[int]Handle)
	return all
}

// Run invokes every selected plugin on its own goroutine and collects the
// results. A failing plugin never affects the others. When ctx is done
// before all plugins report, the missing ones are recorded as failed with
// the context error, their handles are closed, and the batches received
// so far are returned.
func (r *Registry) Run(ctx context.Context, tags workspace.Tags, src TagSource) *RunResult {
	selected := r.Select(tags)
	result := &RunResult{}
	if len(selected) == 0 {
		return result
	}

	workers := r.concurrency
	if workers <= 0 || workers > len(selected) {
		workers = len(selected)
	}

	r.logger.InfoContext(ctx, "Running plugins", "count", len(selected), "workers", workers)

	sem := make(chan struct{}, workers)
	// Buffered so workers can finish after the caller stops waiting
	outcomes := make(chan outcome, len(selected))
	handles := &openHandles{open: make(map[int]Handle)}

	for i, d := range selected {
		i, d := i, d // per-iteration copies (go 1.21 loop semantics)
		go func() {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				outcomes <- outcome{index: i, err: r.newError(d, ErrInvocationFailed, ctx.Err())}
				return
			}
			defer func() { <-sem }()

			batch, err := r.runOne(ctx, i, d, src, handles)
			outcomes <- outcome{index: i, batch: batch, err: err}
		}()
	}

	received, pending := collect(ctx, outcomes, len(selected))

	if pending > 0 {
		r.logger.WarnContext(ctx, "Run aborted, returning partial results", "pending", pending, "error", ctx.Err())
	}
	for i, h := range handles.takeAll() {
		if err := h.Close(); err != nil {
			r.logger.WarnContext(ctx, "Failed to release plugin", "binary", selected[i].BinaryName, "error", err)
		}
	}

	for i, d := range selected {
		o := received[i]
		switch {
		case o == nil:
			result.Errors = append(result.Errors, r.newError(d, ErrInvocationFailed, ctx.Err()))
		case o.err != nil:
			result.Errors = append(result.Errors, o.err)
		default:
			result.Batches = append(result.Batches, *o.batch)
		}
	}

	for _, perr := range result.Errors {
		r.logger.WarnContext(ctx, "Plugin failed", "language", perr.Language, "binary", perr.Binary, "error", perr)
	}
	return result
}

// collect gathers n outcomes or stops when ctx is done. Outcomes already
// buffered when ctx is done are still taken. It returns the outcomes by
// index and the number still missing.
func collect(ctx context.Context, outcomes <-chan outcome, n int) ([]*outcome, int) {
	received := make([]*outcome, n)
	pending := n
	for pending > 0 {
		select {
		case o := <-outcomes:
			received[o.index] = &o
			pending--
			continue
		case <-ctx.Done():
		}

		for pending > 0 {
			select {
			case o := <-outcomes:
				received[o.index] = &o
				pending--
			default:
				return received, pending
			}
		}
	}
	return received, pending
}

// runOne registers the handle with the run and closes it on every path,
// unless Run has already taken it
func (r *Registry) runOne(ctx context.Context, i int, d Descriptor, src TagSource, handles *openHandles) (batch *Batch, perr *Error) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			batch = nil
			perr = r.newError(d, ErrInvocationFailed, fmt.Errorf("plugin panicked: %v", rec))
		}
		if h := handles.take(i); h != nil {
			if err := h.Close(); err != nil {
				r.logger.WarnContext(ctx, "Failed to release plugin", "binary", d.BinaryName, "error", err)
			}
		}
	}()

	handle, err := r.load(ctx, d)
	if err != nil {
		return nil, r.newError(d, ErrLoadFailed, err)
	}
	if !handles.add(i, handle) {
		handle.Close()
		return nil, r.newError(d, ErrInvocationFailed, ctx.Err())
	}

	analyzer := handle.Analyzer()
	if analyzer == nil {
		return nil, r.newError(d, ErrLoadFailed, errors.New("entry point returned no analyzer"))
	}

	text, err := src.TagFile(ctx, d.LanguageKey)
	if err != nil {
		return nil, r.newError(d, ErrInvocationFailed, fmt.Errorf("producing tag file: %w", err))
	}

	records, err := analyzer.Analyze(text)
	if err != nil {
		return nil, r.newError(d, ErrInvocationFailed, err)
	}

	duration := time.Since(start)
	r.logger.DebugContext(ctx, "Plugin finished",
		"plugin", analyzer.Name(),
		"records", len(records),
		"durationMs", duration.Milliseconds())

	return &Batch{Descriptor: d, PluginName: analyzer.Name(), Records: records, Duration: duration}, nil
}

func (r *Registry) load(ctx context.Context, d Descriptor) (Handle, error) {
	path := r.ArtifactPath(d)
	handle, err := r.loader.Load(path)
	if err == nil {
		r.logger.DebugContext(ctx, "Plugin loaded", "path", path)
		return handle, nil
	}

	err = r.explainLoadFailure(path, err)

	if r.fallback == nil {
		return nil, err
	}
	handle, fallbackErr := r.fallback.Load(path)
	if fallbackErr != nil {
		return nil, errors.Join(err, fallbackErr)
	}
	r.logger.DebugContext(ctx, "Using built-in analyzer", "path", path, "reason", err)
	return handle, nil
}

// explainLoadFailure appends unresolved library dependencies to a native
// load error when the artifact itself exists
func (r *Registry) explainLoadFailure(path string, err error) error {
	if r.linkChecker == nil || errors.Is(err, os.ErrNotExist) || errors.Is(err, ErrUnsupportedPlatform) {
		return err
	}
	missing, checkErr := r.linkChecker.Missing(path)
	if checkErr != nil || len(missing) == 0 {
		return err
	}
	return fmt.Errorf("%w (missing libraries: %s)", err, strings.Join(missing, ", "))
}

func (r *Registry) newError(d Descriptor, kind, err error) *Error {
	return &Error{
		Language: d.LanguageKey,
		Binary:   d.BinaryName,
		Path:     r.ArtifactPath(d),
		Kind:     kind,
		Err:      err,
	}
}
