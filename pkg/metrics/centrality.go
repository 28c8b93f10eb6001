package metrics

import (
	"math"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/mat"
)

const (
	damping       = 0.85
	maxIterations = 1000
	tolerance     = 1e-12
)

// betweenness is Brandes' unweighted betweenness. gonum sums over ordered
// (s, t) pairs, so dividing by (n-1)(n-2) maps it into [0, 1].
func (n *indexGraph) betweenness() []float64 {
	out := make([]float64, n.size())
	if n.size() < 3 || n.edges == 0 {
		return out
	}
	scale := float64((n.size() - 1) * (n.size() - 2))
	for id, v := range network.Betweenness(n.g) {
		out[id] = math.Min(1, v/scale)
	}
	return out
}

// eigenvector runs power iteration on A + I with the weighted adjacency
// matrix. The identity shift keeps bipartite components from oscillating.
// Scores are divided by their maximum; isolated nodes score 0.
func (n *indexGraph) eigenvector() []float64 {
	k := n.size()
	out := make([]float64, k)
	if n.edges == 0 {
		return out
	}

	a := mat.NewDense(k, k, nil)
	for i := range k {
		a.Set(i, i, 1)
		for _, nb := range n.adj[i] {
			a.Set(i, nb.node, nb.weight)
		}
	}

	x := mat.NewVecDense(k, nil)
	for i := range k {
		x.SetVec(i, 1)
	}
	next := mat.NewVecDense(k, nil)
	for range maxIterations {
		next.MulVec(a, x)
		peak := mat.Max(next)
		if peak <= 0 {
			break
		}
		next.ScaleVec(1/peak, next)

		diff := 0.0
		for i := range k {
			diff = math.Max(diff, math.Abs(next.AtVec(i)-x.AtVec(i)))
		}
		x.CopyVec(next)
		if diff < tolerance {
			break
		}
	}

	for i := range k {
		if len(n.adj[i]) == 0 {
			continue
		}
		out[i] = math.Max(0, math.Min(1, x.AtVec(i)))
	}
	return out
}

// pagerank iterates the weighted random surfer with uniform teleport.
// Nodes without edges spread their rank uniformly. The result sums to 1.
func (n *indexGraph) pagerank() []float64 {
	k := n.size()
	rank := make([]float64, k)
	for i := range rank {
		rank[i] = 1 / float64(k)
	}
	next := make([]float64, k)

	for range maxIterations {
		dangling := 0.0
		for i := range k {
			if n.strength[i] == 0 {
				dangling += rank[i]
			}
		}
		base := (1-damping)/float64(k) + damping*dangling/float64(k)
		for i := range k {
			next[i] = base
		}
		for i := range k {
			if n.strength[i] == 0 {
				continue
			}
			share := damping * rank[i] / n.strength[i]
			for _, nb := range n.adj[i] {
				next[nb.node] += share * nb.weight
			}
		}

		diff := 0.0
		for i := range k {
			diff += math.Abs(next[i] - rank[i])
		}
		rank, next = next, rank
		if diff < tolerance {
			break
		}
	}

	sum := 0.0
	for _, r := range rank {
		sum += r
	}
	if sum > 0 {
		for i := range rank {
			rank[i] /= sum
		}
	}
	return rank
}
