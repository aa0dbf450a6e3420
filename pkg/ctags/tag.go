// Package ctags parses tag files produced by universal-ctags into raw class records.
package ctags

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedLine is returned for tag lines that cannot be parsed.
// Such lines are skipped; parsing continues with the next line.
var ErrMalformedLine = errors.New("malformed tag line")

// LineError records a malformed line and its position in the tag file
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Tag is a single tag line split into its fields
// Format: <name>\t<file>\t<address>;"\t<kind>[\t<key>:<value>...]
type Tag struct {
	Name    string
	File    string
	Address string
	Kind    string
	Fields  map[string]string
}

// ParseTag splits a tag line. It returns (nil, nil) for blank lines and
// tool metadata lines (those starting with '!').
func ParseTag(line string) (*Tag, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" || strings.HasPrefix(line, "!") {
		return nil, nil
	}

	parts := strings.Split(line, "\t")
	if len(parts) < 4 {
		return nil, fmt.Errorf("%w: expected at least 4 tab-separated fields, got %d", ErrMalformedLine, len(parts))
	}
	if parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: empty name or file", ErrMalformedLine)
	}

	tag := &Tag{
		Name:    parts[0],
		File:    parts[1],
		Address: strings.TrimSuffix(parts[2], `;"`),
		Fields:  make(map[string]string),
	}

	// The kind is either the bare 4th field or a "kind:" extension field
	rest := parts[3:]
	if !strings.Contains(rest[0], ":") {
		tag.Kind = rest[0]
		rest = rest[1:]
	}

	for _, field := range rest {
		key, value, ok := strings.Cut(field, ":")
		if !ok || key == "" {
			continue
		}
		tag.Fields[key] = value
	}

	if tag.Kind == "" {
		tag.Kind = tag.Fields["kind"]
	}
	if tag.Kind == "" {
		return nil, fmt.Errorf("%w: missing kind", ErrMalformedLine)
	}

	return tag, nil
}

// Language returns the lower-cased language field, or "" if absent
func (t *Tag) Language() string {
	return strings.ToLower(t.Fields["language"])
}

// Line returns the line field, or 0 if absent or invalid
func (t *Tag) Line() int {
	n, err := strconv.Atoi(t.Fields["line"])
	if err != nil {
		return 0
	}
	return n
}

// Inherits returns the comma-separated inherits field as a list.
// Tokens are kept verbatim apart from surrounding whitespace.
func (t *Tag) Inherits() []string {
	raw, ok := t.Fields["inherits"]
	if !ok || raw == "" {
		return nil
	}

	var parents []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parents = append(parents, p)
		}
	}
	return parents
}

// scopeKinds are the extension keys ctags uses to name an enclosing type
var scopeKinds = []string{"class", "interface", "enum", "trait", "object", "annotation"}

// Scope returns the short name of the enclosing type, or "" when the tag is
// not scoped to a type. Both "class:Outer.Inner" and "scope:class:Outer.Inner"
// forms are understood.
func (t *Tag) Scope() string {
	for _, k := range scopeKinds {
		if v, ok := t.Fields[k]; ok && v != "" {
			return ShortName(v)
		}
	}
	if v, ok := t.Fields["scope"]; ok {
		kind, name, found := strings.Cut(v, ":")
		if found {
			for _, k := range scopeKinds {
				if kind == k {
					return ShortName(name)
				}
			}
		}
	}
	return ""
}

// TypeRef returns the referenced type name with ctags' "typename:" prefix stripped
func (t *Tag) TypeRef() string {
	v := t.Fields["typeref"]
	if _, name, ok := strings.Cut(v, ":"); ok {
		return name
	}
	return v
}

// ShortName strips namespace qualifiers ('.', '::', '$') from a type name
func ShortName(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	if i := strings.LastIndexAny(name, ".$"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
