package main

import (
	"errors"
	"testing"

	"github.com/spf13/pflag"

	"github.com/ritzau/coco/pkg/config"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		workspace string
		wantErr   error
	}{
		{name: "Default", args: nil, workspace: "."},
		{name: "Positional", args: []string{"/ws"}, workspace: "/ws"},
		{name: "Flag", args: []string{"-w", "/other"}, workspace: "/other"},
		{name: "Too Many", args: []string{"/a", "/b"}, wantErr: errUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := config.NewFlagSet("coco")
			err := parseArgs(flags, tt.args)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("parseArgs() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if got, _ := flags.GetString("workspace"); got != tt.workspace {
				t.Errorf("workspace = %q, want %q", got, tt.workspace)
			}
		})
	}
}

func TestParseArgs_WorkspaceSetFails(t *testing.T) {
	// A flag set without the workspace flag cannot take a positional workspace
	flags := pflag.NewFlagSet("bare", pflag.ContinueOnError)
	if err := parseArgs(flags, []string{"/ws"}); err == nil {
		t.Fatal("parseArgs() error = nil, want error")
	}
}
