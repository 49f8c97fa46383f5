package heap

import (
	"fmt"

	"github.com/sarchlab/satx/lit"
	"github.com/sarchlab/satx/vars"
)

// maxLevels bounds tree depth, matching the original's MAX_HEAP_LEVELS.
const maxLevels = 22

// levelOp describes one level's pending operation as it flows through
// the pipeline: a node index and variable being compared against its
// parent or children, tagged with the number of stages left before it
// retires.
type levelOp struct {
	valid bool
	v     lit.Var
	stage int // 0 = READ, 1 = COMPARE, 2 = WRITE; -1 = retired
}

// Pipelined is the on-chip tree heap: per-level variable arrays held
// directly (not through the external-memory port, since the whole
// structure is sized to fit on chip), ordered by the shared activity
// vector.
//
// This is a functional rendition of the original's PipelinedHeap, not
// a timing-equivalent one: Insert/RemoveMax/Increase/Decrease each
// flatten the levels, percolate, and rebuild the levels within the
// call, so operations on different levels do not overlap and no
// operation is ever left in flight. The per-level pending registers
// that Step reports are never filled, and bypass forwarding and
// speculative reads between stages are not modeled.
type Pipelined struct {
	vals     [][]lit.Var
	acts     *vars.Activity
	pending  [maxLevels]levelOp
	size     int
	indexOf  map[lit.Var]int
}

// NewPipelined creates an empty pipelined heap comparing entries by act.
func NewPipelined(act *vars.Activity) *Pipelined {
	p := &Pipelined{acts: act, indexOf: make(map[lit.Var]int)}
	p.vals = make([][]lit.Var, maxLevels)
	for l := range p.vals {
		p.vals[l] = nil
	}
	return p
}

func (p *Pipelined) rebuildIndex() {
	p.indexOf = make(map[lit.Var]int)
	i := 0
	for li, level := range p.vals {
		for j := range level {
			p.indexOf[p.vals[li][j]] = i
			i++
		}
	}
}

func (p *Pipelined) levelOf(i int) int {
	level := 0
	for (1 << (level + 1)) - 1 <= i {
		level++
	}
	return level
}

// Size reports the number of queued variables.
func (p *Pipelined) Size() int { return p.size }

// InHeap reports whether v currently occupies a slot.
func (p *Pipelined) InHeap(v lit.Var) bool {
	_, ok := p.indexOf[v]
	return ok
}

func (p *Pipelined) flatSlice() []lit.Var {
	flat := make([]lit.Var, p.size)
	for v, i := range p.indexOf {
		flat[i] = v
	}
	return flat
}

func (p *Pipelined) rebuildLevels(flat []lit.Var) {
	for l := range p.vals {
		p.vals[l] = nil
	}
	for i, v := range flat {
		l := p.levelOf(i)
		p.vals[l] = append(p.vals[l], v)
	}
	p.rebuildIndex()
}

func (p *Pipelined) less(a, b lit.Var) bool { return p.acts.Less(a, b) }

func (p *Pipelined) percolateUp(flat []lit.Var, i int) {
	v := flat[i]
	for i > 0 {
		parent := (i - 1) / 2
		if !p.less(flat[parent], v) {
			break
		}
		flat[i] = flat[parent]
		i = parent
	}
	flat[i] = v
}

func (p *Pipelined) percolateDown(flat []lit.Var, i int) {
	n := len(flat)
	v := flat[i]
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		if right := left + 1; right < n && p.less(flat[left], flat[right]) {
			child = right
		}
		if !p.less(v, flat[child]) {
			break
		}
		flat[i] = flat[child]
		i = child
	}
	flat[i] = v
}

// Insert adds v to the heap and floats it up to its place within the
// call.
func (p *Pipelined) Insert(v lit.Var) {
	if p.InHeap(v) {
		return
	}
	flat := p.flatSlice()
	flat = append(flat, v)
	p.size++
	p.percolateUp(flat, len(flat)-1)
	p.rebuildLevels(flat)
}

// RemoveMax pops the highest-activity variable.
func (p *Pipelined) RemoveMax() (lit.Var, bool) {
	if p.size == 0 {
		return 0, false
	}
	flat := p.flatSlice()
	top := flat[0]
	flat[0] = flat[len(flat)-1]
	flat = flat[:len(flat)-1]
	p.size--
	if len(flat) > 0 {
		p.percolateDown(flat, 0)
	}
	p.rebuildLevels(flat)
	return top, true
}

// Decrease re-sinks v after its activity has dropped.
func (p *Pipelined) Decrease(v lit.Var) {
	i, ok := p.indexOf[v]
	if !ok {
		return
	}
	flat := p.flatSlice()
	p.percolateDown(flat, i)
	p.rebuildLevels(flat)
}

// Increase re-floats v after a VSIDS bump raised its activity.
func (p *Pipelined) Increase(v lit.Var) {
	i, ok := p.indexOf[v]
	if !ok {
		return
	}
	flat := p.flatSlice()
	p.percolateUp(flat, i)
	p.rebuildLevels(flat)
}

// Build heap-ifies an initial variable set.
func (p *Pipelined) Build(vs []lit.Var) {
	flat := append([]lit.Var(nil), vs...)
	p.size = len(flat)
	for i := p.size/2 - 1; i >= 0; i-- {
		p.percolateDown(flat, i)
	}
	p.rebuildLevels(flat)
}

// Step reports the op pending at level, for diagnostics. Since every
// operation above completes within its own call, no level ever holds
// a pending op and Step always reports false.
func (p *Pipelined) Step(level int) (lit.Var, bool) {
	op := p.pending[level]
	if !op.valid {
		return 0, false
	}
	return op.v, true
}

// Bump raises v's activity and restores heap order if v is queued.
// The original's OVERLAP_HEAP_INSERT distinction lets a pipelined
// bump overlap with decide instead of requiring a WAIT_HEAP stall, so
// this and SubmitInsert below run synchronously rather than through
// the scheduler Classic uses.
func (p *Pipelined) Bump(v lit.Var) {
	p.acts.Bump(v)
	if p.InHeap(v) {
		p.Increase(v)
	}
}

// Read returns v's current activity.
func (p *Pipelined) Read(v lit.Var) float64 { return p.acts.Get(v) }

// SubmitInsert inserts v immediately. Because the pipelined heap is
// sized to live entirely on chip, its inserts are modeled as
// overlapping the decide stage rather than needing a WAIT_HEAP drain,
// so there is nothing for Tick/Pending below to track.
func (p *Pipelined) SubmitInsert(v lit.Var) { p.Insert(v) }

// Tick is a no-op: the pipelined heap never leaves work in flight
// across a call boundary.
func (p *Pipelined) Tick() {}

// Pending always reports false, matching Tick's no-op: unlike Classic,
// a pipelined insert already completed by the time SubmitInsert
// returns.
func (p *Pipelined) Pending() bool { return false }

// Rescale quiesces any in-flight pipeline stage before the caller
// rescales the shared activity vector (vars.Activity.RescaleAll).
// Every entry is scaled by the same factor, so relative order — and
// therefore heap shape — is unaffected once the pipeline has drained;
// no reheapify is needed here, only the wait.
func (p *Pipelined) Rescale() {
	for p.Pending() {
		p.Tick()
	}
}

// DebugCheck verifies that the level arrays hold exactly size
// entries, that indexOf agrees with each entry's position in the
// flattened level view, and that the max-heap property holds across
// that view — the pipelined side of DEBUG_HEAP.
func (p *Pipelined) DebugCheck() error {
	var flat []lit.Var
	for _, level := range p.vals {
		flat = append(flat, level...)
	}
	if len(flat) != p.size || len(p.indexOf) != p.size {
		return fmt.Errorf("pipelined heap: size %d, but %d level entries and %d indexed", p.size, len(flat), len(p.indexOf))
	}
	for i, v := range flat {
		if p.indexOf[v] != i {
			return fmt.Errorf("pipelined heap: index mismatch at slot %d for var %d", i, v)
		}
		left, right := 2*i+1, 2*i+2
		if left < len(flat) && p.less(v, flat[left]) {
			return fmt.Errorf("pipelined heap: max-heap property violated at slot %d", i)
		}
		if right < len(flat) && p.less(v, flat[right]) {
			return fmt.Errorf("pipelined heap: max-heap property violated at slot %d", i)
		}
	}
	return nil
}
