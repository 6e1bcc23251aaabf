package sandbox

import "sync"

// MemoryRecorder keeps instrumented results in memory. Useful for
// tests and for surfacing recent executions in diagnostics.
type MemoryRecorder struct {
	mu      sync.Mutex
	results []*Result
	limit   int
}

// NewMemoryRecorder returns a recorder that keeps at most limit
// results, discarding the oldest. A limit of zero means unbounded.
func NewMemoryRecorder(limit int) *MemoryRecorder {
	return &MemoryRecorder{limit: limit}
}

func (r *MemoryRecorder) Record(result *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	if r.limit > 0 && len(r.results) > r.limit {
		r.results = r.results[len(r.results)-r.limit:]
	}
}

// Results returns a snapshot of the recorded results, oldest first.
func (r *MemoryRecorder) Results() []*Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Result, len(r.results))
	copy(out, r.results)
	return out
}
