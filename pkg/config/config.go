package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is the optional config file read from the working directory
const DefaultFile = "coco.toml"

// EnvPrefix prefixes environment overrides, e.g. COCO_PLUGIN_DIR=out
const EnvPrefix = "COCO_"

// Config holds all configuration for the application
type Config struct {
	Workspace   string        `koanf:"workspace"`
	Plugin      PluginConfig  `koanf:"plugin"`
	Ctags       CtagsConfig   `koanf:"ctags"`
	Timeout     time.Duration `koanf:"timeout"`
	Concurrency int           `koanf:"concurrency"`
	Ignore      []string      `koanf:"ignore"`
	Gitignore   bool          `koanf:"gitignore"`
	Format      string        `koanf:"format"`
	WebMode     bool          `koanf:"web"`
	Port        int           `koanf:"port"`
	Watch       bool          `koanf:"watch"`
	Verbosity   string        `koanf:"verbosity"`
	VerboseCnt  int           `koanf:"verbose"`
	Log         LogConfig     `koanf:"log"`
}

// PluginConfig locates the analyzer plugin artifacts
type PluginConfig struct {
	Dir   string `koanf:"dir"`
	Build string `koanf:"build"`
	// Builtin falls back to the in-process analyzers when an artifact cannot be loaded
	Builtin bool `koanf:"builtin"`
}

// CtagsConfig configures the external tagging tool
type CtagsConfig struct {
	Binary  string        `koanf:"binary"`
	Timeout time.Duration `koanf:"timeout"`
}

type LogConfig struct {
	JSON bool `koanf:"json"`
}

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"workspace": ".",
		"plugin": map[string]interface{}{
			"dir":     "target",
			"build":   "release",
			"builtin": false,
		},
		"ctags": map[string]interface{}{
			"binary":  "ctags",
			"timeout": "30s",
		},
		"timeout":     "2m",
		"concurrency": 0,
		"ignore":      []string{},
		"gitignore":   true,
		"format":      FormatText,
		"web":         false,
		"port":        8080,
		"watch":       false,
		"verbosity":   "",
		"verbose":     0,
		"log": map[string]interface{}{
			"json": false,
		},
	}
}

// Load loads configuration from defaults, coco.toml, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFrom(DefaultFile, f)
}

// LoadFrom is Load with an explicit config file path. A missing file is not an error.
func LoadFrom(path string, f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional)
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	// 3. Environment Variables
	// COCO_PLUGIN_DIR=out sets plugin.dir
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can work with
func (c *Config) Validate() error {
	var errs []error

	if c.Workspace == "" {
		errs = append(errs, errors.New("workspace must not be empty"))
	}
	switch c.Plugin.Build {
	case "debug", "release":
	default:
		errs = append(errs, fmt.Errorf("plugin.build: unknown build type %q (want debug or release)", c.Plugin.Build))
	}
	switch c.Format {
	case FormatText, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("format: unknown format %q (want %s or %s)", c.Format, FormatText, FormatJSON))
	}
	if c.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency: must not be negative, got %d", c.Concurrency))
	}
	if c.Timeout < 0 || c.Ctags.Timeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port: %d out of range", c.Port))
	}

	return errors.Join(errs...)
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
