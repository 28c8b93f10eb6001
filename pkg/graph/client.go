package graph

import "runtime"

// Builder turns sentences and characters into a co-occurrence graph.
// Windows are scanned in batches that may run in parallel; the merge is
// ordered so the result does not depend on scheduling.
//
// A Builder should be created using NewBuilder. It holds no per-run state
// and is safe for concurrent use.
type Builder struct {
	parallelBatches int
	batchSize       int
}

// NewBuilderParams defines the configuration parameters for creating a
// new Builder.
//
// ParallelBatches controls how many window batches are scanned at once.
// BatchSize is the number of windows per batch and sets the granularity
// of cancellation checks and progress reports.
type NewBuilderParams struct {
	ParallelBatches int
	BatchSize       int
}

// NewBuilder creates a Builder. Zero parameters take sensible defaults.
//
// Example:
//
//	b := graph.NewBuilder(graph.NewBuilderParams{ParallelBatches: 4})
//	g, err := b.Build(ctx, sentences, characters, graph.DefaultOptions(), nil)
func NewBuilder(params NewBuilderParams) *Builder {
	parallel := params.ParallelBatches
	if parallel <= 0 {
		parallel = max(1, runtime.GOMAXPROCS(0))
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Builder{
		parallelBatches: parallel,
		batchSize:       batchSize,
	}
}
