package watcher

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ritzau/coco/pkg/workspace"
)

// Classify maps a changed file to a change type; ok is false for files
// that cannot affect the analysis
func Classify(path string) (ChangeType, bool) {
	name := filepath.Base(path)
	switch {
	case workspace.IsBuildFile(name):
		return ChangeTypeBuildFile, true
	case workspace.LanguageOf(name) != "":
		return ChangeTypeSource, true
	}
	return 0, false
}

// Describe turns a change event into the reason recorded for the re-run,
// e.g. "build.gradle changed" or "3 source files changed"
func Describe(event ChangeEvent) string {
	names := make(map[string]bool)
	for _, p := range event.Paths {
		names[filepath.Base(p)] = true
	}
	unique := make([]string, 0, len(names))
	for n := range names {
		unique = append(unique, n)
	}
	sort.Strings(unique)

	switch {
	case len(unique) == 0:
		return event.Type.String() + " changed"
	case len(unique) <= 3:
		return strings.Join(unique, ", ") + " changed"
	}
	return fmt.Sprintf("%d %s files changed", len(unique), event.Type)
}
