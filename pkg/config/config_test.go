package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"), nil)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Workspace != "." {
		t.Errorf("Workspace = %q, want .", cfg.Workspace)
	}
	if cfg.Plugin.Dir != "target" || cfg.Plugin.Build != "release" || cfg.Plugin.Builtin {
		t.Errorf("Plugin = %+v", cfg.Plugin)
	}
	if cfg.Ctags.Binary != "ctags" || cfg.Ctags.Timeout != 30*time.Second {
		t.Errorf("Ctags = %+v", cfg.Ctags)
	}
	if cfg.Timeout != 2*time.Minute {
		t.Errorf("Timeout = %v, want 2m", cfg.Timeout)
	}
	if cfg.Port != 8080 || cfg.Format != FormatText || !cfg.Gitignore {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coco.toml")
	content := `
workspace = "from-file"
port = 9000
ignore = ["**/generated/**"]

[plugin]
dir = "file-dir"
build = "debug"

[ctags]
binary = "/opt/ctags"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("COCO_PLUGIN_DIR", "env-dir")
	t.Setenv("COCO_PORT", "9100")

	flags := NewFlagSet("test")
	if err := flags.Parse([]string{"--port=9200", "-vv", "--plugin.builtin"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path, flags)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Workspace != "from-file" {
		t.Errorf("Workspace = %q, want from-file", cfg.Workspace)
	}
	if cfg.Plugin.Build != "debug" {
		t.Errorf("Plugin.Build = %q, want debug", cfg.Plugin.Build)
	}
	if cfg.Plugin.Dir != "env-dir" {
		t.Errorf("Plugin.Dir = %q, want env-dir (env beats file)", cfg.Plugin.Dir)
	}
	if cfg.Port != 9200 {
		t.Errorf("Port = %d, want 9200 (flag beats env)", cfg.Port)
	}
	if !cfg.Plugin.Builtin {
		t.Error("Plugin.Builtin should be set by flag")
	}
	if cfg.VerboseCnt != 2 {
		t.Errorf("VerboseCnt = %d, want 2", cfg.VerboseCnt)
	}
	if cfg.Ctags.Binary != "/opt/ctags" {
		t.Errorf("Ctags.Binary = %q", cfg.Ctags.Binary)
	}
	if !reflect.DeepEqual(cfg.Ignore, []string{"**/generated/**"}) {
		t.Errorf("Ignore = %v", cfg.Ignore)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coco.toml")
	if err := os.WriteFile(path, []byte("port = = 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path, nil); err == nil {
		t.Error("expected error for malformed config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Workspace: ".", Plugin: PluginConfig{Build: "release"}, Format: FormatText, Port: 8080}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"Build Type", func(c *Config) { c.Plugin.Build = "profile" }, "plugin.build"},
		{"Format", func(c *Config) { c.Format = "xml" }, "format"},
		{"Concurrency", func(c *Config) { c.Concurrency = -1 }, "concurrency"},
		{"Port", func(c *Config) { c.Port = 70000 }, "port"},
		{"Workspace", func(c *Config) { c.Workspace = "" }, "workspace"},
		{"Timeout", func(c *Config) { c.Timeout = -time.Second }, "timeouts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
