// Package output renders analysis reports for the terminal
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/ritzau/coco/pkg/analysis"
)

// maxListed caps long sections of the text report
const maxListed = 20

// PrintReport writes a colored, human-readable report to w.
// Colors follow color.NoColor, which is set when w is not a terminal.
func PrintReport(w io.Writer, report *analysis.Report) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	summary := report.Summary()

	// Header
	bold.Fprintln(w, "JVM Class Structure Report")
	bold.Fprintln(w, "==========================")
	fmt.Fprintf(w, "Workspace: %s\n", report.Workspace)
	fmt.Fprintf(w, "Scanned: %d files\n", summary.Files)
	if active := report.Tags.Active(); len(active) > 0 {
		cyan.Fprintf(w, "Tags: %s\n", strings.Join(active, ", "))
	}
	fmt.Fprintln(w)

	// Plugins
	for _, run := range report.Plugins {
		green.Fprintf(w, "  ✓ %s", run.Plugin)
		fmt.Fprintf(w, " %d classes (%s)\n", run.Records, run.Duration.Round(1e6))
	}
	for _, perr := range report.PluginErrors {
		red.Fprintf(w, "  ✗ %s", perr.Binary)
		fmt.Fprintf(w, " %v\n", perr)
	}
	if len(report.Plugins)+len(report.PluginErrors) > 0 {
		fmt.Fprintln(w)
	}

	// Graph
	fmt.Fprintf(w, "Classes: %d\n", summary.Classes)
	fmt.Fprintf(w, "Inheritance edges: %d\n", summary.Edges)
	if summary.Unresolved > 0 {
		yellow.Fprintf(w, "Unresolved parents: %d\n", summary.Unresolved)
	}
	if summary.Ambiguous > 0 {
		yellow.Fprintf(w, "Ambiguous parents: %d\n", summary.Ambiguous)
	}
	fmt.Fprintln(w)

	if len(report.Cycles) > 0 {
		red.Fprintln(w, "INHERITANCE CYCLES:")
		for _, cycle := range report.Cycles {
			ring := append(append([]string(nil), cycle.Classes...), cycle.Classes[0])
			yellow.Fprintf(w, "  %s\n", strings.Join(ring, " → "))
		}
		fmt.Fprintln(w)
	}

	if len(report.UncoveredFiles) > 0 {
		yellow.Fprintln(w, "FILES WITHOUT CLASSES:")
		for i, uf := range report.UncoveredFiles {
			if i == maxListed {
				fmt.Fprintf(w, "  ... and %d more\n", len(report.UncoveredFiles)-maxListed)
				break
			}
			fmt.Fprintf(w, "  %s\n", uf.Path)
		}
		fmt.Fprintln(w)
	}

	if len(report.Warnings) > 0 {
		yellow.Fprintln(w, "WARNINGS:")
		for _, warning := range report.Warnings {
			fmt.Fprintf(w, "  %s\n", warning)
		}
		fmt.Fprintln(w)
	}

	// Summary line colored by outcome
	summaryColor := green
	if summary.Unresolved > 0 || len(report.Warnings) > 0 {
		summaryColor = yellow
	}
	if summary.PluginErrors > 0 || summary.Cycles > 0 {
		summaryColor = red
	}
	summaryColor.Fprintf(w, "Summary: %d classes, %d edges, %d cycles, %d plugin errors in %s\n",
		summary.Classes, summary.Edges, summary.Cycles, summary.PluginErrors, report.Duration.Round(1e6))

	if summary.PluginErrors == 0 && summary.Cycles == 0 {
		green.Fprintln(w, "✓ No inheritance cycles or plugin failures")
	}
}

// WriteJSON writes the report as indented JSON
func WriteJSON(w io.Writer, report *analysis.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report.JSON()); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}
