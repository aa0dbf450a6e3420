// Package plugin selects, loads and runs the per-language analyzer plugins
// for a workspace.
package plugin

import (
	"github.com/ritzau/coco/pkg/workspace"
)

// Descriptor associates a source-language tag with the artifact that analyzes it
type Descriptor struct {
	LanguageKey string
	BinaryName  string
}

// DefaultDescriptors returns the analyzers shipped with coco, one per JVM language
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{LanguageKey: workspace.TagJava, BinaryName: "java"},
		{LanguageKey: workspace.TagGroovy, BinaryName: "groovy"},
		{LanguageKey: workspace.TagKotlin, BinaryName: "kotlin"},
		{LanguageKey: workspace.TagScala, BinaryName: "scala"},
	}
}
