package metrics

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
)

const maxSweeps = 100

// labelPropagation assigns communities by asynchronous label propagation.
// Nodes are visited in index order and adopt the label with the highest
// summed edge weight among their neighbours, the smallest label winning
// ties. Labels are renumbered 0..k-1 by first appearance.
func (n *indexGraph) labelPropagation() []int {
	labels := make([]int, n.size())
	for i := range labels {
		labels[i] = i
	}

	votes := make(map[int]float64)
	for range maxSweeps {
		changed := false
		for i, nbs := range n.adj {
			if len(nbs) == 0 {
				continue
			}
			clear(votes)
			for _, nb := range nbs {
				votes[labels[nb.node]] += nb.weight
			}
			best, bestWeight := labels[i], -1.0
			for label, w := range votes {
				if w > bestWeight || (w == bestWeight && label < best) {
					best, bestWeight = label, w
				}
			}
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	renumber := make(map[int]int)
	for i, label := range labels {
		id, ok := renumber[label]
		if !ok {
			id = len(renumber)
			renumber[label] = id
		}
		labels[i] = id
	}
	return labels
}

// modularity scores a partition with Newman-Girvan Q at resolution 1.
func (n *indexGraph) modularity(labels []int) float64 {
	if n.edges == 0 {
		return 0
	}
	groups := make([][]graph.Node, countLabels(labels))
	for i, label := range labels {
		groups[label] = append(groups[label], simple.Node(i))
	}
	return community.Q(n.g, groups, 1)
}

func countLabels(labels []int) int {
	seen := make(map[int]struct{}, len(labels))
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}
