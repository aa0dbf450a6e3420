package plugin

import (
	"errors"
	"fmt"
)

var (
	// ErrLoadFailed means the artifact is missing or does not export the entry point
	ErrLoadFailed = errors.New("plugin load failed")
	// ErrInvocationFailed means the plugin failed or panicked while analyzing
	ErrInvocationFailed = errors.New("plugin invocation failed")
	// ErrABIMismatch means the artifact was built against another capability interface version
	ErrABIMismatch = errors.New("plugin ABI mismatch")
	// ErrUnsupportedPlatform is returned by the native loader on builds without dynamic loading
	ErrUnsupportedPlatform = errors.New("dynamic plugin loading not supported on this platform")
	// ErrNoPlugin means a detected language has no registered plugin
	ErrNoPlugin = errors.New("no plugin for language")
)

// Error is a per-plugin failure. Kind is ErrLoadFailed or ErrInvocationFailed;
// errors.Is matches both the kind and the cause.
type Error struct {
	Language string
	Binary   string
	Path     string
	Kind     error
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %v: %v", e.Binary, e.Language, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
