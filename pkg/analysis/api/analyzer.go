package api

import (
	"github.com/ritzau/coco/pkg/model"
)

// ABIVersion is the version of the plugin contract. A plugin built against a
// different version is rejected at load time.
const ABIVersion = 1

// Symbols every plugin artifact must export
const (
	// EntryPoint is a func() Analyzer
	EntryPoint = "Plugin"
	// VersionSymbol is an int variable holding the plugin's ABIVersion
	VersionSymbol = "ABIVersion"
)

// Analyzer is the capability every language plugin provides.
// Implementations encapsulate turning the tag file of one language into raw
// class records; they must not retain the returned slice.
type Analyzer interface {
	// Name returns the unique name of the analyzer (e.g., "coco_struct_analysis/java").
	Name() string

	// Analyze parses the tag-file text for its language.
	Analyze(tagFile string) ([]model.RawClassRecord, error)
}

// NewAnalyzerFunc is the signature of the exported entry point
type NewAnalyzerFunc = func() Analyzer
