package pull

import "sync/atomic"

// ProgressFunc receives byte-progress updates: the delta just
// transferred, the running total so far, and the job total computed
// before any transfer began. Purely observational — a nil observer is
// valid and changes nothing about the job.
type ProgressFunc func(delta, done, total int64)

// Progress is the monotonically increasing byte counter threaded
// through the whole walk. One value per job; workers update it through
// an atomic counter.
type Progress struct {
	total    int64
	done     atomic.Int64
	observer ProgressFunc
}

// NewProgress creates a progress counter bounded above by total.
func NewProgress(total int64, observer ProgressFunc) *Progress {
	return &Progress{total: total, observer: observer}
}

// Add advances the counter by delta bytes and notifies the observer.
// Non-positive deltas are ignored.
func (p *Progress) Add(delta int64) {
	if delta <= 0 {
		return
	}

	done := p.done.Add(delta)

	if p.observer != nil {
		p.observer(delta, done, p.total)
	}
}

// Done returns the bytes transferred so far.
func (p *Progress) Done() int64 {
	return p.done.Load()
}

// Total returns the job total.
func (p *Progress) Total() int64 {
	return p.total
}
