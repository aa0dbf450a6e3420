// Package workspace characterizes a JVM workspace: which build tools and
// source languages are present.
package workspace

import (
	"fmt"
	"sort"
)

// Tag keys
const (
	TagGradle          = "workspace.gradle"
	TagGradleComposite = "workspace.gradle.composite"
	TagPom             = "workspace.pom"
	TagJava            = "workspace.source.java"
	TagGroovy          = "workspace.source.groovy"
	TagKotlin          = "workspace.source.kotlin"
	TagScala           = "workspace.source.scala"
	TagTest            = "workspace.source.test"
)

// KnownTags lists every key Detect emits, in lexicographic order
var KnownTags = []string{
	TagGradle,
	TagGradleComposite,
	TagPom,
	TagGroovy,
	TagJava,
	TagKotlin,
	TagScala,
	TagTest,
}

// SourceTags are the tags that name a source language
var SourceTags = []string{TagJava, TagGroovy, TagKotlin, TagScala}

// Tags maps a tag key to whether it holds for the workspace
type Tags map[string]bool

// Has reports whether key is present and true
func (t Tags) Has(key string) bool {
	return t[key]
}

// Keys returns all keys in lexicographic order
func (t Tags) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Active returns the keys that are true, in lexicographic order
func (t Tags) Active() []string {
	var active []string
	for _, k := range t.Keys() {
		if t[k] {
			active = append(active, k)
		}
	}
	return active
}

// Validate checks that composite tags agree with their constituents
func (t Tags) Validate() error {
	if t[TagGradleComposite] && !t[TagGradle] {
		return fmt.Errorf("tag %s set without %s", TagGradleComposite, TagGradle)
	}
	return nil
}
