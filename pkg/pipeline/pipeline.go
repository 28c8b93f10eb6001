// Package pipeline runs a full character network analysis: segmentation,
// character extraction, co-occurrence graph building and network metrics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/OFFIS-RIT/castnet/internal/timing"
	"github.com/OFFIS-RIT/castnet/internal/util"
	"github.com/OFFIS-RIT/castnet/pkg/ai"
	"github.com/OFFIS-RIT/castnet/pkg/common"
	"github.com/OFFIS-RIT/castnet/pkg/extract"
	"github.com/OFFIS-RIT/castnet/pkg/graph"
	"github.com/OFFIS-RIT/castnet/pkg/logger"
	"github.com/OFFIS-RIT/castnet/pkg/metrics"
	"github.com/OFFIS-RIT/castnet/pkg/segment"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultMinTextLength is the shortest text, in characters, worth analysing.
const DefaultMinTextLength = 50

// Request is the input of one run. Zero option fields take their defaults.
type Request struct {
	Text         string          `json:"text"`
	Extraction   extract.Options `json:"extraction"`
	Cooccurrence graph.Options   `json:"cooccurrence"`
}

// Analyzer runs one analysis at a time and can cancel it. Callers wanting
// concurrent runs create one Analyzer each; they may share the clients
// they were built from.
//
// An Analyzer should be created using NewAnalyzer.
type Analyzer struct {
	segmenter     *segment.Segmenter
	extractor     *extract.Extractor
	builder       *graph.Builder
	minTextLength int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewAnalyzerParams defines the collaborators of an Analyzer.
//
// Chain is the extraction strategy chain. Segmenter and Builder default
// to their package defaults when nil.
type NewAnalyzerParams struct {
	Chain         extract.Chain
	Segmenter     *segment.Segmenter
	Builder       *graph.Builder
	MinTextLength int
}

func NewAnalyzer(params NewAnalyzerParams) *Analyzer {
	a := &Analyzer{
		segmenter:     params.Segmenter,
		extractor:     extract.NewExtractor(params.Chain),
		builder:       params.Builder,
		minTextLength: params.MinTextLength,
	}
	if a.segmenter == nil {
		a.segmenter = segment.New(segment.DefaultOptions())
	}
	if a.builder == nil {
		a.builder = graph.NewBuilder(graph.NewBuilderParams{})
	}
	if a.minTextLength <= 0 {
		a.minTextLength = DefaultMinTextLength
	}
	return a
}

// Cancel stops the active run, if any. The run returns ErrCancelled once it
// reaches its next checkpoint.
func (a *Analyzer) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// Running reports whether a run is in progress.
func (a *Analyzer) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func (a *Analyzer) begin(ctx context.Context) (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return nil, ErrBusy
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.running = true
	a.cancel = cancel
	return runCtx, nil
}

func (a *Analyzer) end() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
	a.running = false
	a.cancel = nil
}

// Run analyses req.Text. onProgress may be nil. On success the result is
// complete; otherwise it is nil and the error is ErrBusy, a
// *ValidationError, ErrCancelled or a *StageError.
func (a *Analyzer) Run(ctx context.Context, req Request, onProgress ProgressFunc) (*common.AnalysisResult, error) {
	runCtx, err := a.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer a.end()

	req, err = a.validate(req)
	if err != nil {
		logger.Warn("[Pipeline] Rejected request", "err", err)
		return nil, err
	}

	usage := &ai.UsageRecorder{}
	r := &run{
		ctx:      ai.WithUsageRecorder(runCtx, usage),
		progress: newReporter(onProgress),
		timer:    timing.NewRecorder(),
		started:  time.Now(),
		usage:    usage,
	}
	return a.execute(r, req)
}

// validate normalises the text and applies option defaults.
func (a *Analyzer) validate(req Request) (Request, error) {
	req.Text = util.NormalizeText(req.Text)
	if strings.TrimSpace(req.Text) == "" {
		return req, &ValidationError{Field: "text", Reason: "must not be empty"}
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(req.Text)); n < a.minTextLength {
		return req, &ValidationError{
			Field:  "text",
			Reason: fmt.Sprintf("must be at least %d characters, got %d", a.minTextLength, n),
		}
	}

	req.Extraction = req.Extraction.WithDefaults()
	if err := req.Extraction.Validate(); err != nil {
		return req, &ValidationError{Field: "extraction", Reason: err.Error()}
	}
	req.Cooccurrence = req.Cooccurrence.WithDefaults()
	if err := req.Cooccurrence.Validate(); err != nil {
		return req, &ValidationError{Field: "cooccurrence", Reason: err.Error()}
	}
	return req, nil
}

type run struct {
	ctx      context.Context
	progress *reporter
	timer    *timing.Recorder
	started  time.Time
	usage    *ai.UsageRecorder
}

func (a *Analyzer) execute(r *run, req Request) (*common.AnalysisResult, error) {
	// segmenting
	if err := r.checkpoint(StageSegmenting); err != nil {
		return nil, err
	}
	r.progress.report(StageSegmenting, 0, "Splitting text into chapters and sentences")
	stop := r.timer.Start(string(StageSegmenting))
	segments, err := a.segmenter.Split(r.ctx, req.Text)
	stop()
	if err != nil {
		return nil, r.fail(StageSegmenting, err)
	}
	r.progress.report(StageSegmenting, 1,
		fmt.Sprintf("Found %d chapters and %d sentences", segments.ChapterCount(), segments.SentenceCount()))

	// extracting
	if err := r.checkpoint(StageExtracting); err != nil {
		return nil, err
	}
	r.progress.report(StageExtracting, 0, "Identifying characters")
	stop = r.timer.Start(string(StageExtracting))
	extraction, err := a.extractor.Extract(r.ctx, req.Text, req.Extraction)
	stop()
	if err != nil {
		return nil, r.fail(StageExtracting, err)
	}
	r.progress.report(StageExtracting, 1,
		fmt.Sprintf("Found %d characters (%s)", len(extraction.Characters), extraction.Method))

	// building-graph
	if err := r.checkpoint(StageBuildingGraph); err != nil {
		return nil, err
	}
	r.progress.report(StageBuildingGraph, 0, "Scanning co-occurrence windows")
	stop = r.timer.Start(string(StageBuildingGraph))
	network, err := a.builder.Build(r.ctx, segments.Sentences, extraction.Characters, req.Cooccurrence,
		func(done, total int) {
			r.progress.report(StageBuildingGraph, util.Fraction(done, total),
				fmt.Sprintf("Scanned %d of %d windows", done, total))
		})
	stop()
	if err != nil {
		return nil, r.fail(StageBuildingGraph, err)
	}

	// computing-metrics
	if err := r.checkpoint(StageComputingMetrics); err != nil {
		return nil, err
	}
	r.progress.report(StageComputingMetrics, 0, "Computing network metrics")
	stop = r.timer.Start(string(StageComputingMetrics))
	nodeMetrics, stats := metrics.Compute(network)
	stop()
	if err := r.checkpoint(StageComputingMetrics); err != nil {
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, r.fail(StageComputingMetrics, fmt.Errorf("failed to generate result id: %w", err))
	}

	result := &common.AnalysisResult{
		ID:         id,
		Graph:      network,
		Metrics:    nodeMetrics,
		Stats:      stats,
		Characters: extraction.Characters,
		Processing: common.ProcessingInfo{
			ElapsedMs:        time.Since(r.started).Milliseconds(),
			TextLength:       utf8.RuneCountInString(req.Text),
			ChapterCount:     segments.ChapterCount(),
			SentenceCount:    segments.SentenceCount(),
			ExtractionMethod: extraction.Method,
			StageMs:          r.timer.Milliseconds(),
			LLM:              r.usage.Total(),
		},
	}
	r.progress.report(StageComplete, 1, "Analysis complete")
	logger.Info("[Pipeline] Analysis complete",
		"id", id,
		"method", extraction.Method,
		"characters", len(result.Characters),
		"nodes", stats.NodeCount,
		"edges", stats.EdgeCount,
		"ms", result.Processing.ElapsedMs,
	)
	return result, nil
}

// checkpoint returns ErrCancelled once the run context is done.
func (r *run) checkpoint(next Stage) error {
	if r.ctx.Err() == nil {
		return nil
	}
	r.progress.report(StageCancelled, 0, "Analysis cancelled")
	logger.Info("[Pipeline] Analysis cancelled", "before", next)
	return ErrCancelled
}

// fail converts a stage error into the run's final error.
func (r *run) fail(stage Stage, err error) error {
	if r.ctx.Err() != nil || errors.Is(err, context.Canceled) {
		r.progress.report(StageCancelled, 0, "Analysis cancelled")
		logger.Info("[Pipeline] Analysis cancelled", "stage", stage)
		return ErrCancelled
	}
	r.progress.report(StageFailed, 0, err.Error())
	logger.Error("[Pipeline] Stage failed", "stage", stage, "err", err)
	return &StageError{Stage: stage, Err: err}
}
