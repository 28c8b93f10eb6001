package util

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/OFFIS-RIT/castnet/pkg/common"
	"github.com/OFFIS-RIT/castnet/pkg/pipeline"
)

var (
	ErrTooManyRuns = errors.New("too many active analyses")
	ErrRunNotFound = errors.New("analysis not found")
	ErrRunFinished = errors.New("analysis already finished")
)

// RunView is the API representation of a run.
type RunView struct {
	ID         string                 `json:"id"`
	Owner      string                 `json:"owner,omitempty"`
	Status     RunStatus              `json:"status"`
	Progress   *pipeline.Progress     `json:"progress,omitempty"`
	Result     *common.AnalysisResult `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
}

type runEntry struct {
	view   RunView
	cancel context.CancelFunc
}

// RunRegistry tracks in-process runs. At most maxActive runs may be
// unfinished at once; finished runs are dropped by Sweep after ttl.
type RunRegistry struct {
	mu        sync.Mutex
	runs      map[string]*runEntry
	active    int
	maxActive int
	ttl       time.Duration
	now       func() time.Time
}

func NewRunRegistry(maxActive int, ttl time.Duration) *RunRegistry {
	return &RunRegistry{
		runs:      make(map[string]*runEntry),
		maxActive: maxActive,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Start registers a queued run owned by owner. The returned context is
// cancelled by Cancel and must be used for the run.
func (r *RunRegistry) Start(parent context.Context, id, owner string) (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxActive > 0 && r.active >= r.maxActive {
		return nil, ErrTooManyRuns
	}
	ctx, cancel := context.WithCancel(parent)
	r.runs[id] = &runEntry{
		view: RunView{
			ID:        id,
			Owner:     owner,
			Status:    RunStatusQueued,
			CreatedAt: r.now(),
		},
		cancel: cancel,
	}
	r.active++
	return ctx, nil
}

// Update records a progress report.
func (r *RunRegistry) Update(id string, p pipeline.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.runs[id]
	if !ok || e.view.Status.Finished() {
		return
	}
	e.view.Progress = &p
	if !p.Stage.Terminal() {
		e.view.Status = RunStatusFromStage(p.Stage, true)
	}
}

// Finish stores the outcome of a run and releases its slot.
func (r *RunRegistry) Finish(id string, result *common.AnalysisResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.runs[id]
	if !ok || e.view.Status.Finished() {
		return
	}
	switch {
	case err == nil:
		e.view.Status = RunStatusCompleted
		e.view.Result = result
	case errors.Is(err, pipeline.ErrCancelled):
		e.view.Status = RunStatusCancelled
		e.view.Error = err.Error()
	default:
		e.view.Status = RunStatusFailed
		e.view.Error = err.Error()
	}
	finished := r.now()
	e.view.FinishedAt = &finished
	e.cancel()
	r.active--
}

// Get returns a snapshot of the run.
func (r *RunRegistry) Get(id string) (RunView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.runs[id]
	if !ok {
		return RunView{}, false
	}
	return e.view, true
}

// Cancel requests cancellation of an unfinished run. The run reports
// cancelled once the pipeline observes it.
func (r *RunRegistry) Cancel(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.runs[id]
	if !ok {
		return ErrRunNotFound
	}
	if e.view.Status.Finished() {
		return ErrRunFinished
	}
	e.cancel()
	return nil
}

// Active returns the number of unfinished runs.
func (r *RunRegistry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Sweep drops runs that finished more than ttl ago and returns how many
// were removed.
func (r *RunRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	cutoff := r.now().Add(-r.ttl)
	for id, e := range r.runs {
		if e.view.FinishedAt != nil && e.view.FinishedAt.Before(cutoff) {
			delete(r.runs, id)
			removed++
		}
	}
	return removed
}

// SweepEvery runs Sweep on each tick until ctx is done.
func (r *RunRegistry) SweepEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
