package metrics

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// clustering is the local clustering coefficient: the fraction of
// neighbour pairs that are themselves connected. Nodes with fewer than two
// neighbours score 0.
func (n *indexGraph) clustering() []float64 {
	out := make([]float64, n.size())
	linked := make([]bool, n.size())
	for i, nbs := range n.adj {
		k := len(nbs)
		if k < 2 {
			continue
		}
		for _, nb := range nbs {
			linked[nb.node] = true
		}
		triangles := 0
		for _, nb := range nbs {
			for _, second := range n.adj[nb.node] {
				if second.node > nb.node && linked[second.node] {
					triangles++
				}
			}
		}
		for _, nb := range nbs {
			linked[nb.node] = false
		}
		out[i] = float64(triangles) / float64(k*(k-1)/2)
	}
	return out
}

// components returns the connected components as sorted node indices,
// largest first and ties broken by the smallest member.
func (n *indexGraph) components() [][]int {
	var out [][]int
	for _, cc := range topo.ConnectedComponents(n.g) {
		members := make([]int, 0, len(cc))
		for _, node := range cc {
			members = append(members, int(node.ID()))
		}
		sort.Ints(members)
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) == len(out[j]) {
			return out[i][0] < out[j][0]
		}
		return len(out[i]) > len(out[j])
	})
	return out
}

// eccentricityBounds returns the diameter and radius of a connected set of
// nodes, measured in hops by breadth-first search.
func (n *indexGraph) eccentricityBounds(component []int) (diameter, radius int) {
	if len(component) < 2 {
		return 0, 0
	}
	radius = -1
	for _, start := range component {
		eccentricity := 0
		var bfs traverse.BreadthFirst
		bfs.Walk(n.g, simple.Node(start), func(_ graph.Node, depth int) bool {
			eccentricity = max(eccentricity, depth)
			return false
		})
		diameter = max(diameter, eccentricity)
		if radius < 0 || eccentricity < radius {
			radius = eccentricity
		}
	}
	return diameter, radius
}
