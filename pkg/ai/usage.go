package ai

import (
	"context"
	"sync"
)

type usageKey struct{}

// UsageRecorder sums the token usage of the completions made with a
// context carrying it. Clients shared between runs still report each call
// to the recorder of the run that made it.
type UsageRecorder struct {
	mu    sync.Mutex
	total ModelMetrics
}

func (r *UsageRecorder) Add(m ModelMetrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = r.total.Add(m)
}

func (r *UsageRecorder) Total() ModelMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// WithUsageRecorder returns a context whose completions are counted by r.
func WithUsageRecorder(ctx context.Context, r *UsageRecorder) context.Context {
	return context.WithValue(ctx, usageKey{}, r)
}

// RecordUsage adds m to the recorder of ctx, if any.
func RecordUsage(ctx context.Context, m ModelMetrics) {
	if r, ok := ctx.Value(usageKey{}).(*UsageRecorder); ok && r != nil {
		r.Add(m)
	}
}
