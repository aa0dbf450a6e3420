package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"
)

// skipDirs are never descended into: VCS metadata, IDE state and build output
var skipDirs = map[string]struct{}{
	".git":         {},
	".gradle":      {},
	".idea":        {},
	".mvn":         {},
	"build":        {},
	"target":       {},
	"out":          {},
	"node_modules": {},
}

// ScanOptions configures a workspace scan
type ScanOptions struct {
	// Ignore holds extra glob patterns matched against slash-separated
	// workspace-relative paths (e.g. "**/generated/**").
	Ignore []string
	// NoGitignore disables .gitignore handling
	NoGitignore bool
}

// Listing is the result of a workspace scan
type Listing struct {
	Root  string
	Files []string // workspace-relative, slash-separated, sorted
}

// Names returns the unique base names of all files, sorted
func (l *Listing) Names() []string {
	seen := make(map[string]struct{}, len(l.Files))
	names := make([]string, 0, len(l.Files))
	for _, f := range l.Files {
		base := path.Base(f)
		if _, ok := seen[base]; ok {
			continue
		}
		seen[base] = struct{}{}
		names = append(names, base)
	}
	sort.Strings(names)
	return names
}

// ByLanguage groups JVM source files by their language tag
func (l *Listing) ByLanguage() map[string][]string {
	groups := make(map[string][]string)
	for _, f := range l.Files {
		if tag := LanguageOf(path.Base(f)); tag != "" {
			groups[tag] = append(groups[tag], f)
		}
	}
	return groups
}

// SkipDir reports whether a directory with this base name is excluded from scans
func SkipDir(name string) bool {
	if _, ok := skipDirs[name]; ok {
		return true
	}
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// Scan walks the workspace and lists its files, excluding build output,
// hidden directories, .gitignore'd paths and paths matching opts.Ignore.
func Scan(root string, opts ScanOptions) (*Listing, error) {
	globs := make([]glob.Glob, 0, len(opts.Ignore))
	for _, pattern := range opts.Ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}

	var gi *ignore.GitIgnore
	if !opts.NoGitignore {
		gi = loadGitignore(root)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("workspace %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace %s is not a directory", root)
	}

	listing := &Listing{Root: root}
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if SkipDir(d.Name()) || ignored(rel+"/", gi, globs) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if ignored(rel, gi, globs) {
			return nil
		}

		listing.Files = append(listing.Files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(listing.Files)
	return listing, nil
}

func ignored(rel string, gi *ignore.GitIgnore, globs []glob.Glob) bool {
	if gi != nil && gi.MatchesPath(rel) {
		return true
	}
	rel = strings.TrimSuffix(rel, "/")
	for _, g := range globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
