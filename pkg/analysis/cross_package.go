package analysis

import (
	"github.com/ritzau/coco/pkg/graph"
)

// CrossPackageEdge is an inheritance edge between classes declared in
// different source directories
type CrossPackageEdge struct {
	Child         string `json:"child"`
	Parent        string `json:"parent"`
	ChildFile     string `json:"childFile"`
	ParentFile    string `json:"parentFile"`
	ChildPackage  string `json:"childPackage"`
	ParentPackage string `json:"parentPackage"`
}

// FindCrossPackageEdges lists resolved inheritance edges whose child and
// parent live in different packages, in edge order
func FindCrossPackageEdges(g *graph.ClassGraph) []CrossPackageEdge {
	var crossEdges []CrossPackageEdge

	for _, edge := range g.Edges() {
		child, _ := g.Node(edge.Child)
		parent, _ := g.Node(edge.Parent)

		childPackage := fileToPackage(child.SourceFile)
		parentPackage := fileToPackage(parent.SourceFile)
		if childPackage == parentPackage {
			continue
		}

		crossEdges = append(crossEdges, CrossPackageEdge{
			Child:         child.Name,
			Parent:        parent.Name,
			ChildFile:     child.SourceFile,
			ParentFile:    parent.SourceFile,
			ChildPackage:  childPackage,
			ParentPackage: parentPackage,
		})
	}

	return crossEdges
}
