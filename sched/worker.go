// Package sched provides the cooperative concurrency substrate spec.md
// §5 describes: a cycle-driven scheduler, workers that yield at memory
// requests and lock-wait points, a reorder buffer routing memory
// responses back to the waiting worker, and a write buffer giving
// store-to-load forwarding.
//
// The original models each long-latency operation as a stackful
// coroutine. Go's direct equivalent of "sequential code that suspends
// at arbitrary points" is a goroutine paired with a handoff channel:
// Worker runs its body on its own goroutine but only ever has one
// worker actually executing at a time — Worker.Resume blocks until
// the resumed worker either yields again or finishes, so there is
// never true parallelism, exactly as spec.md §5 requires.
package sched

// Yielder is handed to a worker's body; calling Yield suspends the
// worker until the scheduler resumes it again.
type Yielder struct {
	w *Worker
}

// Yield suspends the calling worker until Scheduler.Resume is called
// for it again.
func (y *Yielder) Yield() {
	y.w.parked <- struct{}{}
	<-y.w.resume
}

// Worker is one cooperatively-scheduled unit of sequential work.
type Worker struct {
	ID int

	resume chan struct{}
	parked chan struct{}
	done   bool

	// Polling is set by the body (via SetPolling) when it is blocked
	// on a lock rather than a memory response; the scheduler resumes
	// polling workers every tick regardless of memory completions.
	polling bool
}

// Spawn starts body on a new goroutine, immediately running it up to
// its first Yield (or completion). body receives a Yielder to suspend
// itself and a pointer back to the worker so it can mark itself
// polling while spin-waiting on a lock.
func Spawn(id int, body func(w *Worker, y *Yielder)) *Worker {
	w := &Worker{
		ID:     id,
		resume: make(chan struct{}),
		parked: make(chan struct{}),
	}
	y := &Yielder{w: w}

	go func() {
		body(w, y)
		w.done = true
		w.parked <- struct{}{}
	}()

	<-w.parked
	return w
}

// Done reports whether the worker's body has returned.
func (w *Worker) Done() bool { return w.done }

// SetPolling marks whether this worker is currently spin-waiting on a
// lock (as opposed to waiting on a memory response). The scheduler
// resumes polling workers unconditionally every tick.
func (w *Worker) SetPolling(polling bool) { w.polling = polling }

// Polling reports the last value passed to SetPolling.
func (w *Worker) Polling() bool { return w.polling }

// Resume hands control back to a suspended worker and blocks until it
// yields again or finishes. It must not be called on a Done worker.
func (w *Worker) Resume() {
	w.resume <- struct{}{}
	<-w.parked
}
