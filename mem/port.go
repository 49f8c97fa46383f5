package mem

import (
	"container/heap"

	"github.com/rs/xid"

	"github.com/sarchlab/satx/sched"
)

// ReadResponse is delivered to a Port's callback once a read's
// latency has elapsed. Addr is included so the callback can resolve
// which structure the bytes belong to if it registered one callback
// for several request streams.
type ReadResponse struct {
	ID    xid.ID
	Addr  uint64
	Bytes []byte
}

// WriteAck is delivered once a write has been observed to complete;
// it carries only the address, matching spec.md §6.
type WriteAck struct {
	Addr uint64
}

// Port is the core's sole window into external memory: the
// request/response channel named in spec.md §6. SendRead/SendWrite
// model the timed path through Hierarchy; SendUntimed is the
// initialization-only path that bypasses cycle accounting entirely.
// Every write is also pushed into a WriteBuffer and every read first
// consults it, giving in-flight stores the forwarding behavior of
// spec.md §4.10/P6; SendReadFor additionally registers the request
// with a ReorderBuffer so a cooperative worker's response can be
// routed back to it out of issue order.
//
// Completions are delivered by advancing Port's internal clock one
// cycle at a time via Tick, mirroring the teacher's Pipeline.Tick
// driving model-time forward one step per call.
type Port struct {
	hierarchy *Hierarchy
	backing   *Flat
	lineSize  int

	cycle   uint64
	seq     uint64
	pending pendingQueue

	writes  *sched.WriteBuffer
	reorder *sched.ReorderBuffer
}

// NewPort creates a Port over the given hierarchy and its backing
// flat memory.
func NewPort(hierarchy *Hierarchy, backing *Flat) *Port {
	return &Port{
		hierarchy: hierarchy,
		backing:   backing,
		lineSize:  hierarchy.Config().LineSize,
		writes:    sched.NewWriteBuffer(),
		reorder:   sched.NewReorderBuffer(),
	}
}

// LineSize returns the cache line size probed at setup (spec.md §6).
func (p *Port) LineSize() int { return p.lineSize }

// Flat exposes the raw backing store, used only by package alloc for
// its own boundary-tag bookkeeping, which is allocator-internal
// metadata rather than a structure workers contend over.
func (p *Port) Flat() *Flat { return p.backing }

type pendingCompletion struct {
	readyAt uint64
	seq     uint64 // tie-break to keep FIFO order within a cycle
	onRead  func(ReadResponse)
	onWrite func(WriteAck)
	resp    ReadResponse
	ack     WriteAck
}

type pendingQueue []*pendingCompletion

func (q pendingQueue) Len() int { return len(q) }
func (q pendingQueue) Less(i, j int) bool {
	if q[i].readyAt != q[j].readyAt {
		return q[i].readyAt < q[j].readyAt
	}
	return q[i].seq < q[j].seq
}
func (q pendingQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *pendingQueue) Push(x any)   { *q = append(*q, x.(*pendingCompletion)) }
func (q *pendingQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// SendRead issues a read of size bytes at addr, first checking the
// write buffer for a fully-forwarding in-flight store before falling
// through to the timed hierarchy path. The callback fires when the
// request completes, possibly several Tick calls later, mirroring the
// asynchronous response callback of spec.md §6.
func (p *Port) SendRead(addr uint64, size int, onComplete func(ReadResponse)) xid.ID {
	id := xid.New()
	p.seq++

	if data, ok := p.writes.Forward(addr, size); ok {
		heap.Push(&p.pending, &pendingCompletion{
			readyAt: p.cycle,
			seq:     p.seq,
			onRead:  onComplete,
			resp:    ReadResponse{ID: id, Addr: addr, Bytes: append([]byte(nil), data...)},
		})
		return id
	}

	res := p.hierarchy.Read(addr, size)
	heap.Push(&p.pending, &pendingCompletion{
		readyAt: p.cycle + res.Latency,
		seq:     p.seq,
		onRead:  onComplete,
		resp:    ReadResponse{ID: id, Addr: addr, Bytes: res.Data},
	})
	return id
}

// SendReadFor is SendRead plus ReorderBuffer registration: workerID is
// recorded as id's owner, and the reorder buffer is told the response
// arrived before onComplete runs, so a scheduler resuming workerID on
// MarkReady can look the bytes up through the buffer instead of only
// via the closure.
func (p *Port) SendReadFor(workerID int, addr uint64, size int, onComplete func(ReadResponse)) xid.ID {
	var id xid.ID
	id = p.SendRead(addr, size, func(r ReadResponse) {
		p.reorder.Deliver(id, r.Bytes)
		if onComplete != nil {
			onComplete(r)
		}
	})
	p.reorder.Register(id, workerID)
	return id
}

// SendWrite issues a write of data at addr; the acknowledgement
// carries only the address, per spec.md §6. The store is pushed into
// the write buffer immediately (so a read issued before the ack fires
// can still forward from it) and acknowledged out of the buffer when
// the hierarchy access completes.
func (p *Port) SendWrite(addr uint64, data []byte, onComplete func(WriteAck)) {
	p.writes.Push(addr, data)
	res := p.hierarchy.Write(addr, data)
	p.seq++
	heap.Push(&p.pending, &pendingCompletion{
		readyAt: p.cycle + res.Latency,
		seq:     p.seq,
		onWrite: func(ack WriteAck) {
			p.writes.Ack(ack.Addr)
			if onComplete != nil {
				onComplete(ack)
			}
		},
		ack: WriteAck{Addr: addr},
	})
}

// SendUntimed writes directly to backing memory with no latency and
// no effect on cycle accounting. Used only at initialization (spec.md
// §6): bulk-populating the heap array, clause arena, and activity
// vector before the clock starts.
func (p *Port) SendUntimed(addr uint64, data []byte) {
	p.backing.WriteBytes(addr, data)
}

// ReadBytes performs a synchronous read of n bytes at addr: it issues
// a SendReadFor and drains Tick until that one request completes. This
// is the access pattern every core store (vars, watch, clause, heap)
// uses for steady-state reads — a single request/response channel
// underlies all of them exactly as spec.md §6 describes, even where
// the caller is not itself a cooperative worker able to overlap the
// latency with other work.
func (p *Port) ReadBytes(addr uint64, n int) []byte {
	var out []byte
	done := false
	p.SendReadFor(-1, addr, n, func(r ReadResponse) {
		out = r.Bytes
		done = true
	})
	for !done {
		p.Tick()
	}
	return out
}

// WriteBytes performs a synchronous write of data at addr, draining
// Tick until the write is acknowledged.
func (p *Port) WriteBytes(addr uint64, data []byte) {
	done := false
	p.SendWrite(addr, data, func(WriteAck) { done = true })
	for !done {
		p.Tick()
	}
}

// Tick advances the model clock by one cycle and fires every
// completion now due.
func (p *Port) Tick() {
	p.cycle++
	for p.pending.Len() > 0 && p.pending[0].readyAt <= p.cycle {
		c := heap.Pop(&p.pending).(*pendingCompletion)
		if c.onRead != nil {
			c.onRead(c.resp)
		}
		if c.onWrite != nil {
			c.onWrite(c.ack)
		}
	}
}

// Cycle returns the current model cycle.
func (p *Port) Cycle() uint64 { return p.cycle }

// Idle reports whether every issued request has completed.
func (p *Port) Idle() bool { return p.pending.Len() == 0 }

// Reorder exposes the port's reorder buffer, used by cooperative
// workers (see package propagate) that issue their own SendReadFor
// calls and need to look their response up by worker ID once resumed.
func (p *Port) Reorder() *sched.ReorderBuffer { return p.reorder }
