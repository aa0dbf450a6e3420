package model

// Kind is the declared kind of a class-like declaration
type Kind string

const (
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindEnum      Kind = "enum"
	KindTrait     Kind = "trait"
)

// Access is the access modifier of a member or method
type Access string

const (
	AccessPublic    Access = "public"
	AccessPrivate   Access = "private"
	AccessProtected Access = "protected"
	AccessPackage   Access = "package" // Java default (no modifier)
)

// ParseAccess maps a modifier keyword to an Access.
// Unknown or empty input returns fallback.
func ParseAccess(s string, fallback Access) Access {
	switch Access(s) {
	case AccessPublic, AccessPrivate, AccessProtected, AccessPackage:
		return Access(s)
	case "default":
		return AccessPackage
	}
	return fallback
}

// MemberInfo describes a field or property declared in a class
type MemberInfo struct {
	Name         string `json:"name"`
	Access       Access `json:"access"`
	DeclaredType string `json:"declaredType,omitempty"`
}

// MethodInfo describes a method declared in a class
type MethodInfo struct {
	Name       string `json:"name"`
	Access     Access `json:"access"`
	ReturnType string `json:"returnType,omitempty"`
}

// RawClassRecord is one class declaration as extracted from a tag file.
// ParentNames are textual references, not links; they are resolved when the
// class graph is built.
type RawClassRecord struct {
	Name        string       `json:"name"`
	SourceFile  string       `json:"sourceFile"`
	Kind        Kind         `json:"kind"`
	Language    string       `json:"language,omitempty"`
	Line        int          `json:"line,omitempty"`
	ParentNames []string     `json:"parentNames,omitempty"`
	Members     []MemberInfo `json:"members,omitempty"`
	Methods     []MethodInfo `json:"methods,omitempty"`
}

// NewRawClassRecord creates a record of kind class for the given name and file
func NewRawClassRecord(name, sourceFile string) *RawClassRecord {
	return &RawClassRecord{
		Name:       name,
		SourceFile: sourceFile,
		Kind:       KindClass,
	}
}

// ClassNode is a resolved class in the class graph.
// IDs are assigned once per analysis run and are not stable across runs.
type ClassNode struct {
	ID                int64        `json:"id"`
	Name              string       `json:"name"`
	SourceFile        string       `json:"sourceFile"`
	Kind              Kind         `json:"kind"`
	Language          string       `json:"language,omitempty"`
	Members           []MemberInfo `json:"members,omitempty"`
	Methods           []MethodInfo `json:"methods,omitempty"`
	ParentNames       []string     `json:"parentNames,omitempty"`
	ResolvedParents   []int64      `json:"resolvedParents,omitempty"`   // sorted, unique
	UnresolvedParents []string     `json:"unresolvedParents,omitempty"` // sorted, unique
}

// HasParent reports whether id is among the resolved parents of the node
func (n *ClassNode) HasParent(id int64) bool {
	for _, p := range n.ResolvedParents {
		if p == id {
			return true
		}
	}
	return false
}

// Edge is an inheritance edge from a class to one of its resolved parents
type Edge struct {
	Child  int64 `json:"child"`
	Parent int64 `json:"parent"`
}
