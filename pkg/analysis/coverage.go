package analysis

import (
	"path"
	"sort"
	"strings"

	"github.com/ritzau/coco/pkg/graph"
)

// UncoveredFile is a source file that contributed no class to the graph:
// a file with only top-level declarations, or one whose plugin failed
type UncoveredFile struct {
	Path     string `json:"path"`     // workspace-relative, slash-separated
	Language string `json:"language"` // source tag key
	Package  string `json:"package"`  // source directory, e.g. "src/main/java/com/acme"
}

// FindUncoveredFiles compares the scanned source files with the source
// files of the graph's classes and returns the files without classes,
// sorted by path
func FindUncoveredFiles(sources map[string][]string, g *graph.ClassGraph) []UncoveredFile {
	// ctags reports paths as given, relative to the workspace root
	coveredSet := make(map[string]bool)
	for _, node := range g.Nodes() {
		coveredSet[normalizePath(node.SourceFile)] = true
	}

	var uncovered []UncoveredFile
	for language, files := range sources {
		for _, file := range files {
			if coveredSet[normalizePath(file)] {
				continue
			}
			uncovered = append(uncovered, UncoveredFile{
				Path:     file,
				Language: language,
				Package:  fileToPackage(file),
			})
		}
	}

	sort.Slice(uncovered, func(i, j int) bool { return uncovered[i].Path < uncovered[j].Path })
	return uncovered
}

// normalizePath normalizes a file path for comparison
func normalizePath(p string) string {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimPrefix(p, "./")
}

// fileToPackage returns the source directory of a file, "." at the root.
// JVM packages follow directories, so the directory stands in for the package.
func fileToPackage(file string) string {
	return path.Dir(normalizePath(file))
}
