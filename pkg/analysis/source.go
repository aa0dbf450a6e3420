package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/ritzau/coco/pkg/ctags"
	"github.com/ritzau/coco/pkg/logging"
)

// CtagsSource produces per-language tag files by running ctags over the
// workspace files of that language
type CtagsSource struct {
	Executor ctags.Executor
	Root     string
	Files    map[string][]string // source tag key -> workspace-relative files
	Timeout  time.Duration       // per invocation, 0 for none
	logger   *logging.Logger
}

// NewCtagsSource creates a tag source over a scanned workspace
func NewCtagsSource(executor ctags.Executor, root string, files map[string][]string, timeout time.Duration) *CtagsSource {
	return &CtagsSource{
		Executor: executor,
		Root:     root,
		Files:    files,
		Timeout:  timeout,
		logger:   logging.New("source.ctags"),
	}
}

// TagFile runs ctags over the files of one language. A language without
// files yields an empty tag file.
func (s *CtagsSource) TagFile(ctx context.Context, languageKey string) (string, error) {
	files := s.Files[languageKey]
	if len(files) == 0 {
		return "", nil
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	start := time.Now()
	output, err := s.Executor.Run(ctx, s.Root, files)
	if err != nil {
		return "", fmt.Errorf("ctags over %d %s files: %w", len(files), languageKey, err)
	}

	s.logger.DebugContext(ctx, "Tag file generated",
		"language", languageKey,
		"files", len(files),
		"bytes", len(output),
		"durationMs", time.Since(start).Milliseconds())
	return string(output), nil
}
