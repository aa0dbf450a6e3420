//go:build (linux || darwin || freebsd) && cgo

package plugin

import (
	"fmt"
	"os"
	goplugin "plugin"
	"sync"

	"github.com/ritzau/coco/pkg/analysis/api"
)

// NativeLoader opens artifacts built with -buildmode=plugin
type NativeLoader struct{}

// NewNativeLoader creates a loader backed by the Go plugin runtime
func NewNativeLoader() *NativeLoader {
	return &NativeLoader{}
}

// Load opens the artifact at path and checks its ABI version before
// resolving the entry point.
func (l *NativeLoader) Load(path string) (Handle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	p, err := goplugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	sym, err := p.Lookup(api.VersionSymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrABIMismatch, err)
	}
	version, ok := sym.(*int)
	if !ok {
		return nil, fmt.Errorf("%w: %s has type %T", ErrABIMismatch, api.VersionSymbol, sym)
	}
	if *version != api.ABIVersion {
		return nil, fmt.Errorf("%w: plugin version %d, host version %d", ErrABIMismatch, *version, api.ABIVersion)
	}

	sym, err = p.Lookup(api.EntryPoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrABIMismatch, err)
	}
	entry, ok := sym.(func() api.Analyzer)
	if !ok {
		return nil, fmt.Errorf("%w: %s has type %T", ErrABIMismatch, api.EntryPoint, sym)
	}

	return &nativeHandle{entry: entry}, nil
}

// nativeHandle wraps an opened plugin. The Go runtime never unmaps a
// plugin, so Close only drops the reference to the entry point.
type nativeHandle struct {
	mu    sync.Mutex
	entry api.NewAnalyzerFunc
}

func (h *nativeHandle) Analyzer() api.Analyzer {
	h.mu.Lock()
	entry := h.entry
	h.mu.Unlock()
	if entry == nil {
		return nil
	}
	return entry()
}

func (h *nativeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entry = nil
	return nil
}
