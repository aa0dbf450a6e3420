package analysis

import (
	"time"

	"github.com/ritzau/coco/pkg/cycles"
	"github.com/ritzau/coco/pkg/graph"
	"github.com/ritzau/coco/pkg/model"
	"github.com/ritzau/coco/pkg/plugin"
	"github.com/ritzau/coco/pkg/workspace"
)

// PluginRun records one successful plugin invocation
type PluginRun struct {
	Language string        `json:"language"`
	Binary   string        `json:"binary"`
	Plugin   string        `json:"plugin"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"-"`
}

// Report is the outcome of one analysis run
type Report struct {
	RunID          string
	Workspace      string
	Reason         string
	StartedAt      time.Time
	Files          int
	Tags           workspace.Tags
	Graph          *graph.ClassGraph
	Cycles         []cycles.ClassCycle
	Plugins        []PluginRun
	PluginErrors   []*plugin.Error
	Warnings       []string
	UncoveredFiles []UncoveredFile
	CrossPackage   []CrossPackageEdge
	Duration       time.Duration
}

// Summary holds the headline numbers of a report
type Summary struct {
	Files          int `json:"files"`
	Classes        int `json:"classes"`
	Edges          int `json:"edges"`
	Unresolved     int `json:"unresolved"`
	Ambiguous      int `json:"ambiguous"`
	Cycles         int `json:"cycles"`
	Plugins        int `json:"plugins"`
	PluginErrors   int `json:"pluginErrors"`
	UncoveredFiles int `json:"uncoveredFiles"`
	CrossPackage   int `json:"crossPackage"`
}

// Summary counts the report's contents
func (r *Report) Summary() Summary {
	s := Summary{
		Files:          r.Files,
		Cycles:         len(r.Cycles),
		Plugins:        len(r.Plugins),
		PluginErrors:   len(r.PluginErrors),
		UncoveredFiles: len(r.UncoveredFiles),
		CrossPackage:   len(r.CrossPackage),
	}
	if r.Graph != nil {
		s.Classes = r.Graph.Len()
		s.Edges = len(r.Graph.Edges())
		s.Unresolved = r.Graph.Unresolved()
		s.Ambiguous = len(r.Graph.Ambiguous())
	}
	return s
}

// PluginErrorJSON is the serialized form of a plugin failure
type PluginErrorJSON struct {
	Language string `json:"language"`
	Binary   string `json:"binary"`
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	Error    string `json:"error"`
}

// ReportJSON is the serialized form of a report
type ReportJSON struct {
	RunID          string                `json:"runId"`
	Workspace      string                `json:"workspace"`
	Reason         string                `json:"reason,omitempty"`
	StartedAt      time.Time             `json:"startedAt"`
	DurationMs     int64                 `json:"durationMs"`
	Summary        Summary               `json:"summary"`
	Tags           map[string]bool       `json:"tags"`
	Classes        []*model.ClassNode    `json:"classes"`
	Edges          []model.Edge          `json:"edges"`
	Ambiguous      []graph.AmbiguousRef  `json:"ambiguous"`
	Cycles         []cycles.ClassCycle   `json:"cycles"`
	Plugins        []PluginRun           `json:"plugins"`
	PluginErrors   []PluginErrorJSON     `json:"pluginErrors"`
	Warnings       []string              `json:"warnings"`
	UncoveredFiles []UncoveredFile       `json:"uncoveredFiles"`
	CrossPackage   []CrossPackageEdge    `json:"crossPackage"`
}

// JSON converts the report to its serialized form. Slices are never nil,
// so empty sections encode as [].
func (r *Report) JSON() *ReportJSON {
	out := &ReportJSON{
		RunID:          r.RunID,
		Workspace:      r.Workspace,
		Reason:         r.Reason,
		StartedAt:      r.StartedAt,
		DurationMs:     r.Duration.Milliseconds(),
		Summary:        r.Summary(),
		Tags:           map[string]bool(r.Tags),
		Classes:        make([]*model.ClassNode, 0),
		Edges:          make([]model.Edge, 0),
		Ambiguous:      make([]graph.AmbiguousRef, 0),
		Cycles:         nonNil(r.Cycles),
		Plugins:        nonNil(r.Plugins),
		PluginErrors:   make([]PluginErrorJSON, 0, len(r.PluginErrors)),
		Warnings:       nonNil(r.Warnings),
		UncoveredFiles: nonNil(r.UncoveredFiles),
		CrossPackage:   nonNil(r.CrossPackage),
	}

	if r.Graph != nil {
		out.Classes = append(out.Classes, r.Graph.Nodes()...)
		out.Edges = append(out.Edges, r.Graph.Edges()...)
		out.Ambiguous = append(out.Ambiguous, r.Graph.Ambiguous()...)
	}

	for _, perr := range r.PluginErrors {
		entry := PluginErrorJSON{
			Language: perr.Language,
			Binary:   perr.Binary,
			Path:     perr.Path,
		}
		if perr.Kind != nil {
			entry.Kind = perr.Kind.Error()
		}
		if perr.Err != nil {
			entry.Error = perr.Err.Error()
		}
		out.PluginErrors = append(out.PluginErrors, entry)
	}

	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
