package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ritzau/coco/pkg/analysis/api"
)

// Handle is an opened plugin. It is closed exactly once per run, either by
// the worker using it or by the run that gave up waiting for that worker,
// so Close may race with Analyzer and must be safe for that.
type Handle interface {
	Analyzer() api.Analyzer
	Close() error
}

// Loader opens plugin artifacts
type Loader interface {
	Load(path string) (Handle, error)
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc func(path string) (Handle, error)

func (f LoaderFunc) Load(path string) (Handle, error) {
	return f(path)
}

// StaticLoader serves in-process analyzers in place of artifacts. An
// analyzer registered for binary b answers loads of any path whose base
// name is the host artifact name of b.
type StaticLoader struct {
	mu        sync.RWMutex
	factories map[string]api.NewAnalyzerFunc
}

// NewStaticLoader creates an empty static loader
func NewStaticLoader() *StaticLoader {
	return &StaticLoader{factories: make(map[string]api.NewAnalyzerFunc)}
}

// Register adds the analyzer factory for a binary name
func (l *StaticLoader) Register(binary string, factory api.NewAnalyzerFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.factories[HostArtifactName(binary)] = factory
}

// Binaries returns the registered binary artifact names, sorted
func (l *StaticLoader) Binaries() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.factories))
	for name := range l.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *StaticLoader) Load(path string) (Handle, error) {
	l.mu.RLock()
	factory, ok := l.factories[filepath.Base(path)]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no built-in analyzer for %s: %w", path, os.ErrNotExist)
	}
	return &staticHandle{factory: factory}, nil
}

type staticHandle struct {
	mu      sync.Mutex
	factory api.NewAnalyzerFunc
	closed  bool
}

func (h *staticHandle) Analyzer() api.Analyzer {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return nil
	}
	return h.factory()
}

func (h *staticHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}
