// Package heap implements the decision-variable priority queue: a
// classic binary heap ordered by VSIDS activity (grounded on the
// original's heap.h and async_heap.cc) and a pipelined on-chip tree
// variant (grounded on pipelined_heap.{h,cc}) behind a shared
// interface so solver.FSM can select either at configuration time.
package heap

import "github.com/sarchlab/satx/lit"

// Heap is the decision-variable priority queue contract both
// implementations satisfy. Insert/RemoveMax/Decrease/Increase/InHeap/
// Build are the synchronous operations used where no genuine
// contention exists (initial build, the decide/backtrack call sites
// that already hold exclusive access to the structure); SubmitInsert/
// Tick/Pending model the asynchronous, HEAPLANES-bounded insert path
// solver.FSM's WAIT_HEAP state drains.
type Heap interface {
	// Insert adds v to the heap if it is not already present.
	Insert(v lit.Var)
	// RemoveMax pops and returns the highest-activity variable, or
	// reports false if the heap is empty.
	RemoveMax() (lit.Var, bool)
	// Decrease re-sinks v after its activity has dropped (used after
	// an external rescale).
	Decrease(v lit.Var)
	// Increase re-floats v after a VSIDS bump raised its activity.
	Increase(v lit.Var)
	// InHeap reports whether v currently has a heap slot.
	InHeap(v lit.Var) bool
	// Build heap-ifies an initial set of variables in place, used at
	// solver start once every variable is a decision candidate.
	Build(vars []lit.Var)
	// Size reports the number of variables currently queued.
	Size() int

	// SubmitInsert enqueues an asynchronous insert of v, fanning out
	// across up to HEAPLANES concurrent cooperative workers; the
	// caller must drain Tick until Pending reports false before
	// relying on v's presence.
	SubmitInsert(v lit.Var)
	// Tick advances one cycle of in-flight asynchronous work.
	Tick()
	// Pending reports whether any submitted insert has not yet
	// retired.
	Pending() bool

	// Bump raises v's activity (delegating to the shared activity
	// vector) and, if v is already queued, restores heap order.
	Bump(v lit.Var)
	// Read returns v's current activity.
	Read(v lit.Var) float64

	// DebugCheck verifies the heap's internal invariants (index
	// consistency, max-heap property), for DEBUG_HEAP cross-checking.
	DebugCheck() error
}
