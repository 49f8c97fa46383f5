package heap

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/satx/lit"
	"github.com/sarchlab/satx/mem"
	"github.com/sarchlab/satx/sched"
	"github.com/sarchlab/satx/vars"
)

const nilIndex = -1

// Classic is the straightforward binary heap: heap[i] holds a
// variable, indices[v] holds v's current slot (or nilIndex), and
// percolateUp/percolateDown restore the max-heap property exactly as
// in the original's heap.h. Both arrays live in external memory so the
// heap shares the same address space as every other structure.
//
// The synchronous Insert/RemoveMax/Decrease/Increase/Build methods are
// used where the caller already holds exclusive access to the heap
// (solver startup, decide, backtrack); SubmitInsert instead fans the
// insert out across up to HeapLanes cooperative workers, each taking
// per-slot spin-yield locks from locks as it walks up the tree. A
// worker yields only while waiting for a slot lock another worker
// holds, and nothing else on the insert path yields, so in practice
// each insert runs to completion in the Tick that starts it.
type Classic struct {
	backing *mem.Port
	heapAddr,
	indexAddr uint64
	activity *vars.Activity
	size     int
	capacity int

	lanes int
	locks *sched.LockSet
	sched *sched.Scheduler
}

// NewClassic creates an empty classic heap with room for capacity
// variables, comparing entries by act, with up to lanes concurrent
// asynchronous inserts in flight at once.
func NewClassic(backing *mem.Port, heapAddr, indexAddr uint64, capacity int, act *vars.Activity, lanes int) *Classic {
	if lanes < 1 {
		lanes = 1
	}
	h := &Classic{
		backing: backing, heapAddr: heapAddr, indexAddr: indexAddr,
		capacity: capacity, activity: act,
		lanes: lanes, locks: sched.NewLockSet(), sched: sched.NewScheduler(lanes),
	}
	for v := 1; v <= capacity; v++ {
		h.setIndex(lit.Var(v), nilIndex)
	}
	return h
}

func (h *Classic) slot(i int) lit.Var {
	return lit.Var(int32(binary.LittleEndian.Uint32(h.backing.ReadBytes(h.heapAddr+uint64(i)*4, 4))))
}

func (h *Classic) setSlot(i int, v lit.Var) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(int32(v)))
	h.backing.WriteBytes(h.heapAddr+uint64(i)*4, buf[:])
	h.setIndex(v, i)
}

func (h *Classic) index(v lit.Var) int {
	return int(int32(binary.LittleEndian.Uint32(h.backing.ReadBytes(h.indexAddr+uint64(v)*4, 4))))
}

func (h *Classic) setIndex(v lit.Var, i int) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(int32(i)))
	h.backing.WriteBytes(h.indexAddr+uint64(v)*4, buf[:])
}

// InHeap reports whether v currently occupies a slot.
func (h *Classic) InHeap(v lit.Var) bool { return h.index(v) != nilIndex }

// Size reports the number of queued variables.
func (h *Classic) Size() int { return h.size }

func (h *Classic) less(a, b lit.Var) bool { return h.activity.Less(a, b) }

func (h *Classic) percolateUp(i int) {
	v := h.slot(i)
	for i > 0 {
		parent := (i - 1) / 2
		pv := h.slot(parent)
		if !h.less(pv, v) {
			break
		}
		h.setSlot(i, pv)
		i = parent
	}
	h.setSlot(i, v)
}

func (h *Classic) percolateDown(i int) {
	v := h.slot(i)
	for {
		left := 2*i + 1
		if left >= h.size {
			break
		}
		child := left
		if right := left + 1; right < h.size && h.less(h.slot(left), h.slot(right)) {
			child = right
		}
		if !h.less(v, h.slot(child)) {
			break
		}
		h.setSlot(i, h.slot(child))
		i = child
	}
	h.setSlot(i, v)
}

// Insert adds v to the heap if it is not already queued.
func (h *Classic) Insert(v lit.Var) {
	if h.InHeap(v) {
		return
	}
	if h.size >= h.capacity {
		panic("heap: classic heap full")
	}
	i := h.size
	h.size++
	h.setSlot(i, v)
	h.percolateUp(i)
}

// RemoveMax pops the highest-activity variable.
func (h *Classic) RemoveMax() (lit.Var, bool) {
	if h.size == 0 {
		return 0, false
	}
	top := h.slot(0)
	h.setIndex(top, nilIndex)
	h.size--
	if h.size > 0 {
		last := h.slot(h.size)
		h.setSlot(0, last)
		h.percolateDown(0)
	}
	return top, true
}

// Decrease re-sinks v after its activity has dropped.
func (h *Classic) Decrease(v lit.Var) {
	if i := h.index(v); i != nilIndex {
		h.percolateDown(i)
	}
}

// Increase re-floats v after a VSIDS bump raised its activity.
func (h *Classic) Increase(v lit.Var) {
	if i := h.index(v); i != nilIndex {
		h.percolateUp(i)
	}
}

// Build heap-ifies an initial variable set, inserting each and then
// restoring heap order bottom-up — matching the original's initHeap.
func (h *Classic) Build(vs []lit.Var) {
	for _, v := range vs {
		i := h.size
		h.size++
		h.setSlot(i, v)
	}
	for i := h.size/2 - 1; i >= 0; i-- {
		h.percolateDown(i)
	}
}

// Bump raises v's activity and restores heap order if v is queued.
func (h *Classic) Bump(v lit.Var) {
	h.activity.Bump(v)
	if h.InHeap(v) {
		h.Increase(v)
	}
}

// Read returns v's current activity.
func (h *Classic) Read(v lit.Var) float64 { return h.activity.Get(v) }

func (h *Classic) lockIndex(i int, w *sched.Worker, y *sched.Yielder) {
	h.locks.Lock(uint64(i), w.ID, w, y)
}

func (h *Classic) unlockIndex(i int, w *sched.Worker) {
	h.locks.Unlock(uint64(i), w.ID)
}

// SubmitInsert enqueues v for asynchronous insertion. Up to lanes
// inserts run as concurrent cooperative workers; each takes the
// spin-yield lock on every slot index it touches, so two inserts
// racing through overlapping tree paths interleave correctly instead
// of one clobbering the other's write.
func (h *Classic) SubmitInsert(v lit.Var) {
	if h.InHeap(v) {
		return
	}
	h.sched.Submit(func(id int) *sched.Worker {
		return sched.Spawn(id, func(w *sched.Worker, y *sched.Yielder) {
			h.insertAsync(v, w, y)
		})
	})
}

func (h *Classic) insertAsync(v lit.Var, w *sched.Worker, y *sched.Yielder) {
	if h.InHeap(v) {
		return
	}
	if h.size >= h.capacity {
		panic("heap: classic heap full")
	}
	i := h.size
	h.size++
	h.lockIndex(i, w, y)
	h.setSlot(i, v)
	h.unlockIndex(i, w)
	h.percolateUpAsync(i, w, y)
}

func (h *Classic) percolateUpAsync(i int, w *sched.Worker, y *sched.Yielder) {
	h.lockIndex(i, w, y)
	v := h.slot(i)
	h.unlockIndex(i, w)

	for i > 0 {
		parent := (i - 1) / 2
		h.lockIndex(parent, w, y)
		pv := h.slot(parent)
		if !h.less(pv, v) {
			h.unlockIndex(parent, w)
			break
		}
		h.setSlot(i, pv)
		h.unlockIndex(parent, w)
		i = parent
	}

	h.lockIndex(i, w, y)
	h.setSlot(i, v)
	h.unlockIndex(i, w)
}

// Tick advances one cycle of in-flight asynchronous inserts.
func (h *Classic) Tick() { h.sched.Tick() }

// Pending reports whether any submitted insert has not yet retired.
func (h *Classic) Pending() bool { return h.sched.Busy() }

// DebugCheck verifies that every queued slot's index pointer points
// back to itself and that the max-heap property holds throughout.
func (h *Classic) DebugCheck() error {
	for i := 0; i < h.size; i++ {
		v := h.slot(i)
		if h.index(v) != i {
			return fmt.Errorf("heap: index mismatch at slot %d for var %d", i, v)
		}
		left, right := 2*i+1, 2*i+2
		if left < h.size && h.less(v, h.slot(left)) {
			return fmt.Errorf("heap: max-heap property violated at slot %d", i)
		}
		if right < h.size && h.less(v, h.slot(right)) {
			return fmt.Errorf("heap: max-heap property violated at slot %d", i)
		}
	}
	return nil
}
