package analysis

import (
	"github.com/ritzau/coco/pkg/graph"
	"github.com/ritzau/coco/pkg/model"
)

// ClassRef names a class in the graph
type ClassRef struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	SourceFile string `json:"sourceFile"`
}

// ClassDetails is one class with its surroundings in the graph
type ClassDetails struct {
	Class     *model.ClassNode   `json:"class"`
	Parents   []ClassRef         `json:"parents"`
	Ancestors []ClassRef         `json:"ancestors"`
	Children  []ClassRef         `json:"children"`
	Incoming  []CrossPackageEdge `json:"incoming"` // subclasses from other packages
	Outgoing  []CrossPackageEdge `json:"outgoing"` // parents in other packages
}

// GetClassDetails looks up a class by name; it returns nil when the class is unknown
func GetClassDetails(name string, g *graph.ClassGraph, crossEdges []CrossPackageEdge) *ClassDetails {
	node, ok := g.Lookup(name)
	if !ok {
		return nil
	}

	details := &ClassDetails{
		Class:     node,
		Parents:   refs(g, node.ResolvedParents),
		Ancestors: refs(g, g.Ancestors(node.ID)),
		Children:  refs(g, g.Children(node.ID)),
		Incoming:  make([]CrossPackageEdge, 0),
		Outgoing:  make([]CrossPackageEdge, 0),
	}

	for _, edge := range crossEdges {
		if edge.Parent == name {
			details.Incoming = append(details.Incoming, edge)
		}
		if edge.Child == name {
			details.Outgoing = append(details.Outgoing, edge)
		}
	}

	return details
}

func refs(g *graph.ClassGraph, ids []int64) []ClassRef {
	out := make([]ClassRef, 0, len(ids))
	for _, id := range ids {
		if node, ok := g.Node(id); ok {
			out = append(out, ClassRef{ID: node.ID, Name: node.Name, SourceFile: node.SourceFile})
		}
	}
	return out
}
