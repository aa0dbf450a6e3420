// Package graph merges raw class records from every plugin into one class
// graph with inheritance edges resolved by name.
package graph

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/ritzau/coco/pkg/ctags"
	"github.com/ritzau/coco/pkg/model"
)

// AmbiguousRef is a parent reference whose short name matches several classes
type AmbiguousRef struct {
	Child      int64   `json:"child"`
	Name       string  `json:"name"`
	Candidates []int64 `json:"candidates"`
}

// ClassGraph is the resolved class graph of one analysis run.
// Edges point from a class to its parent.
type ClassGraph struct {
	graph     *simple.DirectedGraph
	nodes     []*model.ClassNode // indexed by ID
	ids       map[string]int64
	byShort   map[string][]int64
	selfLoops []int64
	ambiguous []AmbiguousRef
}

// NewClassGraph creates an empty class graph
func NewClassGraph() *ClassGraph {
	return &ClassGraph{
		graph:   simple.NewDirectedGraph(),
		ids:     make(map[string]int64),
		byShort: make(map[string][]int64),
	}
}

// Build merges batches in order and resolves inheritance. IDs are assigned
// in first-seen order over batch order then record order, so identical
// input always yields an identical graph.
func Build(batches [][]model.RawClassRecord) *ClassGraph {
	g := NewClassGraph()
	for _, batch := range batches {
		for _, rec := range batch {
			g.AddRecord(rec)
		}
	}
	g.Resolve()
	return g
}

// AddRecord adds a record, merging it into an existing node of the same
// name. It returns the node's ID.
func (g *ClassGraph) AddRecord(rec model.RawClassRecord) int64 {
	if id, exists := g.ids[rec.Name]; exists {
		mergeInto(g.nodes[id], rec)
		return id
	}

	id := int64(len(g.nodes))
	node := &model.ClassNode{
		ID:         id,
		Name:       rec.Name,
		SourceFile: rec.SourceFile,
		Kind:       rec.Kind,
		Language:   rec.Language,
	}
	mergeInto(node, rec)

	g.nodes = append(g.nodes, node)
	g.ids[rec.Name] = id
	short := ctags.ShortName(rec.Name)
	g.byShort[short] = append(g.byShort[short], id)

	// Add node to gonum graph
	g.graph.AddNode(simple.Node(id))
	return id
}

func mergeInto(node *model.ClassNode, rec model.RawClassRecord) {
	if node.Kind == "" {
		node.Kind = rec.Kind
	}
	for _, p := range rec.ParentNames {
		if !containsString(node.ParentNames, p) {
			node.ParentNames = append(node.ParentNames, p)
		}
	}
	for _, m := range rec.Members {
		if !containsMember(node.Members, m) {
			node.Members = append(node.Members, m)
		}
	}
	for _, m := range rec.Methods {
		if !containsMethod(node.Methods, m) {
			node.Methods = append(node.Methods, m)
		}
	}
}

// Resolve links every parent name to a node, or records it as unresolved.
// Edges are rebuilt, so it can be called again after more records are added.
func (g *ClassGraph) Resolve() {
	g.selfLoops = nil
	g.ambiguous = nil
	g.graph = simple.NewDirectedGraph()
	for _, node := range g.nodes {
		g.graph.AddNode(simple.Node(node.ID))
	}

	for _, node := range g.nodes {
		resolved := make(map[int64]bool)
		unresolved := make(map[string]bool)

		for _, name := range node.ParentNames {
			id, candidates := g.resolveName(node, name)
			switch {
			case id >= 0:
				resolved[id] = true
			case len(candidates) > 1:
				unresolved[name] = true
				g.ambiguous = append(g.ambiguous, AmbiguousRef{Child: node.ID, Name: name, Candidates: candidates})
			default:
				unresolved[name] = true
			}
		}

		node.ResolvedParents = sortedIDs(resolved)
		node.UnresolvedParents = sortedStrings(unresolved)

		for _, parent := range node.ResolvedParents {
			if parent == node.ID {
				// gonum graphs do not hold self edges
				g.selfLoops = append(g.selfLoops, node.ID)
				continue
			}
			g.graph.SetEdge(g.graph.NewEdge(g.graph.Node(node.ID), g.graph.Node(parent)))
		}
	}
}

// resolveName applies the matching policy: exact name, then unique short
// name with generic arguments and qualifiers stripped. It returns -1 when
// unresolved, along with the candidates if the short name was ambiguous.
// A short-name match never lands on the child itself: "Node extends
// org.lib.Node" names another class that happens to share the short name.
func (g *ClassGraph) resolveName(child *model.ClassNode, name string) (int64, []int64) {
	if id, ok := g.ids[name]; ok {
		return id, nil
	}

	var candidates []int64
	for _, id := range g.byShort[ShortName(name)] {
		if id != child.ID {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	return -1, candidates
}

// ShortName strips generic arguments and namespace qualifiers:
// "java.util.List<String>" and "scala::collection::Seq[Int]" become "List" and "Seq".
func ShortName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.IndexAny(name, "<["); i >= 0 {
		name = name[:i]
	}
	return ctags.ShortName(name)
}

// Len returns the number of classes
func (g *ClassGraph) Len() int {
	return len(g.nodes)
}

// Nodes returns all classes in ID order
func (g *ClassGraph) Nodes() []*model.ClassNode {
	return append([]*model.ClassNode(nil), g.nodes...)
}

// Node returns a class by ID
func (g *ClassGraph) Node(id int64) (*model.ClassNode, bool) {
	if id < 0 || id >= int64(len(g.nodes)) {
		return nil, false
	}
	return g.nodes[id], true
}

// Lookup returns a class by exact name
func (g *ClassGraph) Lookup(name string) (*model.ClassNode, bool) {
	id, ok := g.ids[name]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// Edges returns every inheritance edge, self loops included, sorted by child then parent
func (g *ClassGraph) Edges() []model.Edge {
	var edges []model.Edge
	for _, node := range g.nodes {
		for _, parent := range node.ResolvedParents {
			edges = append(edges, model.Edge{Child: node.ID, Parent: parent})
		}
	}
	return edges
}

// Children returns the IDs of classes that directly inherit from id, sorted
func (g *ClassGraph) Children(id int64) []int64 {
	if _, ok := g.Node(id); !ok {
		return nil
	}

	children := make(map[int64]bool)
	iter := g.graph.To(id)
	for iter.Next() {
		children[iter.Node().ID()] = true
	}
	for _, self := range g.selfLoops {
		if self == id {
			children[id] = true
		}
	}
	return sortedIDs(children)
}

// Ancestors returns the IDs of all transitive parents of id, sorted.
// id itself is included only when it sits on an inheritance cycle.
func (g *ClassGraph) Ancestors(id int64) []int64 {
	node, ok := g.Node(id)
	if !ok {
		return nil
	}

	seen := make(map[int64]bool)
	queue := append([]int64(nil), node.ResolvedParents...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if seen[current] {
			continue
		}
		seen[current] = true
		queue = append(queue, g.nodes[current].ResolvedParents...)
	}
	return sortedIDs(seen)
}

// SelfLoops returns the IDs of classes that list themselves as a parent
func (g *ClassGraph) SelfLoops() []int64 {
	return append([]int64(nil), g.selfLoops...)
}

// Ambiguous returns parent references left unresolved because several
// classes share their short name
func (g *ClassGraph) Ambiguous() []AmbiguousRef {
	return append([]AmbiguousRef(nil), g.ambiguous...)
}

// Unresolved returns the number of unresolved parent references
func (g *ClassGraph) Unresolved() int {
	n := 0
	for _, node := range g.nodes {
		n += len(node.UnresolvedParents)
	}
	return n
}

// Graph returns the underlying directed graph (self loops excluded)
func (g *ClassGraph) Graph() graph.Directed {
	return g.graph
}

func sortedIDs(set map[int64]bool) []int64 {
	if len(set) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedStrings(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func containsString(list []string, s string) bool {
	for _, existing := range list {
		if existing == s {
			return true
		}
	}
	return false
}

func containsMember(list []model.MemberInfo, m model.MemberInfo) bool {
	for _, existing := range list {
		if existing == m {
			return true
		}
	}
	return false
}

func containsMethod(list []model.MethodInfo, m model.MethodInfo) bool {
	for _, existing := range list {
		if existing == m {
			return true
		}
	}
	return false
}
