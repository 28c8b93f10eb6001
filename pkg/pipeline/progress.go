package pipeline

import (
	"sync"

	"github.com/OFFIS-RIT/castnet/internal/util"
)

// Stage names a step of a run.
type Stage string

const (
	StageSegmenting       Stage = "segmenting"
	StageExtracting       Stage = "extracting"
	StageBuildingGraph    Stage = "building-graph"
	StageComputingMetrics Stage = "computing-metrics"
	StageComplete         Stage = "complete"
	StageCancelled        Stage = "cancelled"
	StageFailed           Stage = "failed"
)

// Terminal reports whether no further progress follows s.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageCancelled || s == StageFailed
}

var bands = map[Stage]util.Band{
	StageSegmenting:       {Start: 0, End: 10},
	StageExtracting:       {Start: 10, End: 50},
	StageBuildingGraph:    {Start: 50, End: 85},
	StageComputingMetrics: {Start: 85, End: 100},
}

// Progress is one status update of a run. Percent never decreases within a
// run.
type Progress struct {
	Stage   Stage   `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// ProgressFunc receives progress updates. Calls never overlap and arrive in
// order, but building-graph updates are made from the builder's worker
// goroutines rather than the goroutine that called Run. A slow ProgressFunc
// stalls the run.
type ProgressFunc func(Progress)

// reporter maps stage-local fractions into the overall range and keeps the
// stream monotonic.
type reporter struct {
	mu        sync.Mutex
	fn        ProgressFunc
	monotonic util.Monotonic
	last      Progress
}

func newReporter(fn ProgressFunc) *reporter {
	return &reporter{fn: fn}
}

func (r *reporter) report(stage Stage, fraction float64, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var percent float64
	switch stage {
	case StageComplete:
		percent = 100
	case StageCancelled, StageFailed:
		percent = r.last.Percent
	default:
		percent = bands[stage].At(fraction)
	}
	p := Progress{
		Stage:   stage,
		Percent: r.monotonic.Next(percent),
		Message: message,
	}
	r.last = p
	if r.fn != nil {
		r.fn(p)
	}
}
