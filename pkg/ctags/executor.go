package ctags

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultArgs are passed to ctags before the file list. The tag file is
// written to stdout; file names are read from stdin.
var DefaultArgs = []string{
	"--output-format=u-ctags",
	"--sort=no",
	"--fields=+aiKlnSt",
	"--extras=-F",
	"-f", "-",
	"-L", "-",
}

// Executor produces tag-file text for a set of source files
type Executor interface {
	Run(ctx context.Context, dir string, files []string) ([]byte, error)
}

// ExecutorFunc adapts a function to the Executor interface
type ExecutorFunc func(ctx context.Context, dir string, files []string) ([]byte, error)

func (f ExecutorFunc) Run(ctx context.Context, dir string, files []string) ([]byte, error) {
	return f(ctx, dir, files)
}

// DefaultExecutor runs a universal-ctags binary
type DefaultExecutor struct {
	Binary string
}

// NewExecutor creates an executor for the given ctags binary ("ctags" if empty)
func NewExecutor(binary string) Executor {
	if binary == "" {
		binary = "ctags"
	}
	return &DefaultExecutor{Binary: binary}
}

// Run executes ctags over files (relative to dir) and returns the tag file.
// It respects the provided context for cancellation.
func (e *DefaultExecutor) Run(ctx context.Context, dir string, files []string) ([]byte, error) {
	if len(files) == 0 {
		return nil, nil
	}

	cmd := exec.CommandContext(ctx, e.Binary, DefaultArgs...)
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(strings.Join(files, "\n") + "\n")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w\nOutput: %s", e.Binary, err, stderr.String())
	}

	return output, nil
}
