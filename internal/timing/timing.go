// Package timing records how long the steps of a run take.
package timing

import (
	"sync"
	"time"
)

// Recorder accumulates wall time per named step. Repeated steps add up.
// It is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	now       func() time.Time
	durations map[string]time.Duration
}

func NewRecorder() *Recorder {
	return newRecorder(time.Now)
}

func newRecorder(now func() time.Time) *Recorder {
	return &Recorder{
		now:       now,
		durations: make(map[string]time.Duration),
	}
}

// Start begins timing step and returns the function that stops it.
func (r *Recorder) Start(step string) func() {
	start := r.now()
	return func() {
		r.Add(step, r.now().Sub(start))
	}
}

// Add credits d to step.
func (r *Recorder) Add(step string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations[step] += d
}

// Milliseconds returns the recorded steps in milliseconds.
func (r *Recorder) Milliseconds() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64, len(r.durations))
	for step, d := range r.durations {
		out[step] = d.Milliseconds()
	}
	return out
}
