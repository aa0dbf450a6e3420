// Package linkage lists the shared libraries a plugin artifact links
// against, to explain why a native load failed.
package linkage

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Library is one dynamic dependency of an artifact
type Library struct {
	Name  string
	Path  string
	Found bool
}

// Checker runs ldd (Linux) or otool -L (macOS) on artifacts
type Checker struct {
	// Function to execute commands (can be mocked for testing)
	Executor func(name string, args ...string) ([]byte, error)
	// Exists reports whether a library path is present on disk
	Exists func(path string) bool
	GOOS   string
}

// NewChecker creates a Checker for the host platform
func NewChecker() *Checker {
	return &Checker{
		Executor: func(name string, args ...string) ([]byte, error) {
			cmd := exec.Command(name, args...)
			return cmd.CombinedOutput()
		},
		Exists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
		GOOS: runtime.GOOS,
	}
}

// Libraries returns the dynamic dependencies of the artifact at path
func (c *Checker) Libraries(path string) ([]Library, error) {
	switch c.GOOS {
	case "darwin":
		return c.scanMacOS(path)
	case "linux", "freebsd":
		return c.scanLinux(path)
	}
	return nil, fmt.Errorf("no linkage tool for %s", c.GOOS)
}

// Missing returns the names of dependencies that could not be found
func (c *Checker) Missing(path string) ([]string, error) {
	libs, err := c.Libraries(path)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, lib := range libs {
		if !lib.Found {
			missing = append(missing, lib.Name)
		}
	}
	return missing, nil
}

func (c *Checker) scanLinux(path string) ([]Library, error) {
	output, err := c.Executor("ldd", path)
	if err != nil {
		return nil, fmt.Errorf("ldd failed: %w", err)
	}

	var libs []Library
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.Contains(line, "statically linked") {
			continue
		}

		// 	libfoo.so.1 => not found
		// 	libc.so.6 => /lib/x86_64-linux-gnu/libc.so.6 (0x00007f0c2a367000)
		// 	/lib64/ld-linux-x86-64.so.2 (0x00007f0c2a57e000)
		name, right, mapped := strings.Cut(line, "=>")
		name = stripAddress(strings.TrimSpace(name))
		if name == "linux-vdso.so.1" {
			continue
		}

		if !mapped {
			libs = append(libs, Library{Name: name, Path: name, Found: true})
			continue
		}

		right = stripAddress(strings.TrimSpace(right))
		if right == "not found" {
			libs = append(libs, Library{Name: name})
			continue
		}
		libs = append(libs, Library{Name: name, Path: right, Found: true})
	}
	return libs, nil
}

func (c *Checker) scanMacOS(path string) ([]Library, error) {
	output, err := c.Executor("otool", "-L", path)
	if err != nil {
		return nil, fmt.Errorf("otool failed: %w", err)
	}

	var libs []Library
	scanner := bufio.NewScanner(bytes.NewReader(output))
	// First line is the artifact name followed by ":"
	scanner.Scan()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		idx := strings.Index(line, " (")
		if idx == -1 {
			continue
		}

		// 	@rpath/libfoo.dylib (compatibility version 0.0.0, current version 0.0.0)
		libPath := strings.TrimSpace(line[:idx])
		libs = append(libs, Library{
			Name:  libPath,
			Path:  libPath,
			Found: c.foundOnMacOS(libPath),
		})
	}
	return libs, nil
}

// System libraries live in the dyld shared cache and rpath-relative
// names cannot be resolved without the loader, so only other absolute
// paths are checked on disk.
func (c *Checker) foundOnMacOS(path string) bool {
	if strings.HasPrefix(path, "@") ||
		strings.HasPrefix(path, "/usr/lib/") ||
		strings.HasPrefix(path, "/System/") {
		return true
	}
	return c.Exists(path)
}

func stripAddress(s string) string {
	if idx := strings.Index(s, " ("); idx != -1 {
		return s[:idx]
	}
	return s
}
