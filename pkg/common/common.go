package common

import (
	"time"

	"github.com/OFFIS-RIT/castnet/pkg/ai"
)

// ExtractionMethod names the source that produced a character list.
type ExtractionMethod string

const (
	MethodLLM       ExtractionMethod = "llm"
	MethodHeuristic ExtractionMethod = "heuristic"
	MethodHybrid    ExtractionMethod = "hybrid"
)

// Character is a named character identified in a text.
//
// Name is the canonical form; Aliases never contain the canonical name
// (case-insensitively). Mentions is the authoritative whole-word count of
// the name and all aliases in the full text. Importance is a 0-100 score
// derived from mentions and extraction confidence.
type Character struct {
	Name       string           `json:"name"`
	Aliases    []string         `json:"aliases"`
	Mentions   int              `json:"mentions"`
	Importance int              `json:"importance"`
	Method     ExtractionMethod `json:"method"`
	Confidence float64          `json:"confidence"`
}

// Names returns the canonical name followed by all aliases.
func (c Character) Names() []string {
	names := make([]string, 0, len(c.Aliases)+1)
	names = append(names, c.Name)
	return append(names, c.Aliases...)
}

// Graph is an undirected, weighted co-occurrence network. It is never
// modified after construction.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphNode represents one character. ID equals the character's canonical
// name; Size is a display hint derived from mentions.
type GraphNode struct {
	ID         string   `json:"id"`
	Size       float64  `json:"size"`
	Mentions   int      `json:"mentions"`
	Importance int      `json:"importance"`
	Aliases    []string `json:"aliases"`
}

// GraphEdge connects two distinct characters. Source sorts before Target and
// Weight counts the windows in which both appear.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}

// NodeMetrics holds the centrality measures of one node. All values are
// finite; betweenness, eigenvector, PageRank and clustering are in [0, 1].
type NodeMetrics struct {
	Degree         int     `json:"degree"`
	WeightedDegree int     `json:"weighted_degree"`
	Betweenness    float64 `json:"betweenness"`
	Eigenvector    float64 `json:"eigenvector"`
	PageRank       float64 `json:"pagerank"`
	Clustering     float64 `json:"clustering"`
	Community      int     `json:"community"`
}

// NetworkStats summarises the whole graph.
type NetworkStats struct {
	NodeCount            int     `json:"node_count"`
	EdgeCount            int     `json:"edge_count"`
	Density              float64 `json:"density"`
	AverageDegree        float64 `json:"average_degree"`
	AverageClustering    float64 `json:"average_clustering"`
	Diameter             int     `json:"diameter"`
	Radius               int     `json:"radius"`
	ComponentCount       int     `json:"component_count"`
	LargestComponentSize int     `json:"largest_component_size"`
	Modularity           float64 `json:"modularity"`
	CommunityCount       int     `json:"community_count"`
}

// ProcessingInfo describes how a run went.
type ProcessingInfo struct {
	ElapsedMs        int64            `json:"elapsed_ms"`
	TextLength       int              `json:"text_length"`
	ChapterCount     int              `json:"chapter_count"`
	SentenceCount    int              `json:"sentence_count"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
	StageMs          map[string]int64 `json:"stage_ms"`
	LLM              ai.ModelMetrics  `json:"llm"`
}

// AnalysisResult is the single output of a pipeline run.
type AnalysisResult struct {
	ID         string                 `json:"id"`
	Graph      Graph                  `json:"graph"`
	Metrics    map[string]NodeMetrics `json:"metrics"`
	Stats      NetworkStats           `json:"stats"`
	Characters []Character            `json:"characters"`
	Processing ProcessingInfo         `json:"processing"`
}

// ArchivedAnalysis is the document stored for a finished run. Owner is the
// user that started the run and is empty for runs without one.
type ArchivedAnalysis struct {
	ID         string          `json:"id"`
	Owner      string          `json:"owner,omitempty"`
	FinishedAt time.Time       `json:"finished_at"`
	Result     *AnalysisResult `json:"result"`
}
