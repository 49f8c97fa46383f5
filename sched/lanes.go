package sched

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// LaneSet caps concurrent occupancy of one named resource class —
// PARA_LITS, PROPAGATORS, HEAPLANES, LEARNERS, or MINIMIZERS in
// spec.md §5's resource table — using a weighted semaphore so Acquire
// blocks (cooperatively, from the caller's goroutine) until a lane is
// free rather than spinning.
type LaneSet struct {
	name string
	cap  int64
	sem  *semaphore.Weighted
}

// NewLaneSet creates a lane set named name with the given capacity.
func NewLaneSet(name string, capacity int) *LaneSet {
	return &LaneSet{name: name, cap: int64(capacity), sem: semaphore.NewWeighted(int64(capacity))}
}

// Name returns the resource class name, for stats/logging.
func (l *LaneSet) Name() string { return l.name }

// Capacity returns the configured number of lanes.
func (l *LaneSet) Capacity() int { return int(l.cap) }

// Acquire blocks until a lane is available or ctx is cancelled.
func (l *LaneSet) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// TryAcquire claims a lane without blocking, reporting whether one
// was available.
func (l *LaneSet) TryAcquire() bool {
	return l.sem.TryAcquire(1)
}

// Release frees a previously acquired lane.
func (l *LaneSet) Release() {
	l.sem.Release(1)
}
