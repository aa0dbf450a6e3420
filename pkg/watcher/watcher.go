// Package watcher re-triggers analysis when sources or build files change.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/coco/pkg/logging"
	"github.com/ritzau/coco/pkg/workspace"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeBuildFile ChangeType = iota
	ChangeTypeSource
)

func (c ChangeType) String() string {
	switch c {
	case ChangeTypeBuildFile:
		return "build"
	case ChangeTypeSource:
		return "source"
	}
	return "unknown"
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// batchDelay groups the raw events of one save or checkout
const batchDelay = 100 * time.Millisecond

// FileWatcher watches every workspace directory the scan would visit
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	workspace string
	events    chan ChangeEvent
	logger    *logging.Logger
}

// NewFileWatcher creates a new file system watcher for a workspace
func NewFileWatcher(workspace string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher:   watcher,
		workspace: workspace,
		events:    make(chan ChangeEvent, 100),
		logger:    logging.New("watcher"),
	}, nil
}

// Start registers the workspace directories and processes events until ctx is done
func (fw *FileWatcher) Start(ctx context.Context) error {
	count, err := fw.addTree(fw.workspace)
	if err != nil {
		fw.watcher.Close()
		return err
	}
	fw.logger.Info("Started watching workspace", "path", fw.workspace, "directories", count)

	go fw.processEvents(ctx)
	return nil
}

// addTree watches root and its subdirectories, skipping build output and hidden dirs
func (fw *FileWatcher) addTree(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && workspace.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			fw.logger.Warn("Failed to watch directory", "path", path, "error", err)
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to walk workspace: %w", err)
	}
	return count, nil
}

// processEvents processes file system events and batches them by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	pending := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(batchDelay)
	flushTimer.Stop()

	flush := func() {
		for _, t := range []ChangeType{ChangeTypeBuildFile, ChangeTypeSource} {
			if paths := pending[t]; len(paths) > 0 {
				fw.events <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}
			}
		}
		pending = make(map[ChangeType][]string)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) {
				if fw.watchIfDir(event.Name) {
					continue
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}

			changeType, relevant := Classify(event.Name)
			if !relevant {
				continue
			}
			fw.logger.Trace("File changed", "path", event.Name, "op", event.Op.String())
			pending[changeType] = append(pending[changeType], event.Name)
			flushTimer.Reset(batchDelay)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("Watcher error", "error", err)
		}
	}
}

// watchIfDir adds a newly created directory tree and reports whether path was a directory
func (fw *FileWatcher) watchIfDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	if workspace.SkipDir(filepath.Base(path)) {
		return true
	}
	if _, err := fw.addTree(path); err != nil {
		fw.logger.Warn("Failed to watch new directory", "path", path, "error", err)
	}
	return true
}

// Events returns the channel of change events; it is closed when the watcher stops
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}
