package cycles

import (
	"sort"

	"github.com/ritzau/coco/pkg/graph"
)

// ClassCycle is a set of classes that inherit from each other, directly or
// transitively. IDs start at the smallest member and follow parent edges
// where the cycle is a simple ring.
type ClassCycle struct {
	IDs     []int64  `json:"ids"`
	Classes []string `json:"classes"`
}

// FindClassCycles finds all inheritance cycles, self-inheritance included,
// sorted by their first ID
func FindClassCycles(g *graph.ClassGraph) []ClassCycle {
	var cycles []ClassCycle

	for _, scc := range NewTarjanSCC(g.Graph()).FindSCCs() {
		cycles = append(cycles, newClassCycle(g, orderCycle(g, scc)))
	}
	for _, id := range g.SelfLoops() {
		cycles = append(cycles, newClassCycle(g, []int64{id}))
	}

	sort.Slice(cycles, func(i, j int) bool {
		a, b := cycles[i].IDs, cycles[j].IDs
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		return len(a) < len(b)
	})
	return cycles
}

// orderCycle rotates an SCC to start at its smallest ID and then follows
// parent edges inside the component, taking the smallest unvisited parent
// each step. Members not reached that way are appended in ID order.
func orderCycle(g *graph.ClassGraph, scc []int64) []int64 {
	members := make(map[int64]bool, len(scc))
	start := scc[0]
	for _, id := range scc {
		members[id] = true
		if id < start {
			start = id
		}
	}

	ordered := []int64{start}
	visited := map[int64]bool{start: true}
	current := start
	for {
		next := int64(-1)
		if node, ok := g.Node(current); ok {
			for _, parent := range node.ResolvedParents {
				if members[parent] && !visited[parent] {
					next = parent
					break
				}
			}
		}
		if next < 0 {
			break
		}
		ordered = append(ordered, next)
		visited[next] = true
		current = next
	}

	var rest []int64
	for _, id := range scc {
		if !visited[id] {
			rest = append(rest, id)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(ordered, rest...)
}

func newClassCycle(g *graph.ClassGraph, ids []int64) ClassCycle {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if node, ok := g.Node(id); ok {
			names = append(names, node.Name)
		}
	}
	return ClassCycle{IDs: ids, Classes: names}
}
