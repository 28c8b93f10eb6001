// Package metrics computes centrality, clustering, connectivity and
// community measures over a character co-occurrence graph.
package metrics

import (
	"math"
	"sort"

	"github.com/OFFIS-RIT/castnet/pkg/common"
	"github.com/OFFIS-RIT/castnet/pkg/logger"

	"gonum.org/v1/gonum/graph/simple"
)

// neighbor is one adjacency entry of the index graph.
type neighbor struct {
	node   int
	weight float64
}

// indexGraph is the indexed form of a common.Graph. Node i is the i-th node
// of the input; adjacency lists are sorted by neighbour index. g mirrors
// the same structure for the gonum algorithms.
type indexGraph struct {
	ids      []string
	adj      [][]neighbor
	strength []float64
	edges    int
	g        *simple.WeightedUndirectedGraph
}

func newIndexGraph(in common.Graph) *indexGraph {
	n := &indexGraph{
		ids: make([]string, 0, len(in.Nodes)),
		g:   simple.NewWeightedUndirectedGraph(0, 0),
	}
	index := make(map[string]int, len(in.Nodes))
	for _, node := range in.Nodes {
		if _, ok := index[node.ID]; ok {
			continue
		}
		index[node.ID] = len(n.ids)
		n.g.AddNode(simple.Node(len(n.ids)))
		n.ids = append(n.ids, node.ID)
	}

	weights := make(map[[2]int]float64, len(in.Edges))
	for _, e := range in.Edges {
		u, okU := index[e.Source]
		v, okV := index[e.Target]
		if !okU || !okV || u == v || e.Weight <= 0 {
			logger.Debug("[Metrics] Skipping invalid edge", "source", e.Source, "target", e.Target)
			continue
		}
		if u > v {
			u, v = v, u
		}
		weights[[2]int{u, v}] = float64(e.Weight)
	}

	n.adj = make([][]neighbor, len(n.ids))
	n.strength = make([]float64, len(n.ids))
	for key, w := range weights {
		u, v := key[0], key[1]
		n.adj[u] = append(n.adj[u], neighbor{node: v, weight: w})
		n.adj[v] = append(n.adj[v], neighbor{node: u, weight: w})
		n.strength[u] += w
		n.strength[v] += w
		n.g.SetWeightedEdge(n.g.NewWeightedEdge(simple.Node(u), simple.Node(v), w))
	}
	for i := range n.adj {
		sort.Slice(n.adj[i], func(a, b int) bool { return n.adj[i][a].node < n.adj[i][b].node })
	}
	n.edges = len(weights)
	return n
}

func (n *indexGraph) size() int { return len(n.ids) }

// Compute returns per-node metrics keyed by node ID and whole-graph
// statistics. It never fails: empty and single-node graphs give zero
// values, and every returned number is finite.
func Compute(g common.Graph) (map[string]common.NodeMetrics, common.NetworkStats) {
	n := newIndexGraph(g)
	out := make(map[string]common.NodeMetrics, n.size())
	stats := common.NetworkStats{
		NodeCount: n.size(),
		EdgeCount: n.edges,
	}
	if n.size() == 0 {
		return out, stats
	}

	betweenness := n.betweenness()
	eigenvector := n.eigenvector()
	pagerank := n.pagerank()
	clustering := n.clustering()
	labels := n.labelPropagation()

	components := n.components()
	largest := components[0]
	stats.ComponentCount = len(components)
	stats.LargestComponentSize = len(largest)
	stats.Diameter, stats.Radius = n.eccentricityBounds(largest)
	stats.Modularity = n.modularity(labels)
	stats.CommunityCount = countLabels(labels)

	if k := float64(n.size()); k > 1 {
		stats.Density = 2 * float64(n.edges) / (k * (k - 1))
	}
	stats.AverageDegree = 2 * float64(n.edges) / float64(n.size())

	sumClustering := 0.0
	for i, id := range n.ids {
		weighted := 0
		for _, nb := range n.adj[i] {
			weighted += int(nb.weight)
		}
		out[id] = common.NodeMetrics{
			Degree:         len(n.adj[i]),
			WeightedDegree: weighted,
			Betweenness:    finite(betweenness[i]),
			Eigenvector:    finite(eigenvector[i]),
			PageRank:       finite(pagerank[i]),
			Clustering:     finite(clustering[i]),
			Community:      labels[i],
		}
		sumClustering += clustering[i]
	}
	stats.AverageClustering = finite(sumClustering / float64(n.size()))
	stats.Density = finite(stats.Density)
	stats.AverageDegree = finite(stats.AverageDegree)
	stats.Modularity = finite(stats.Modularity)

	logger.Debug("[Metrics] Network metrics computed",
		"nodes", stats.NodeCount,
		"edges", stats.EdgeCount,
		"components", stats.ComponentCount,
		"communities", stats.CommunityCount,
	)
	return out, stats
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
