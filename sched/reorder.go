package sched

import "github.com/rs/xid"

// ReorderBuffer routes memory responses back to the worker that
// issued them (spec.md §4.10). A request ID that has no registered
// owner (a cancelled or discarded request) is silently dropped, per
// spec.md §7 — out-of-order/unmatched responses are not errors.
type ReorderBuffer struct {
	owners    map[xid.ID]int
	responses map[int][]byte
}

// NewReorderBuffer creates an empty reorder buffer.
func NewReorderBuffer() *ReorderBuffer {
	return &ReorderBuffer{
		owners:    make(map[xid.ID]int),
		responses: make(map[int][]byte),
	}
}

// Register records that request id belongs to workerID.
func (r *ReorderBuffer) Register(id xid.ID, workerID int) {
	r.owners[id] = workerID
}

// Owner looks up the worker that issued id, or -1 if the id is
// unknown (already resolved or never registered).
func (r *ReorderBuffer) Owner(id xid.ID) int {
	owner, ok := r.owners[id]
	if !ok {
		return -1
	}
	return owner
}

// Deliver stores the response payload for id's owner and forgets the
// mapping. It reports false if id had no registered owner.
func (r *ReorderBuffer) Deliver(id xid.ID, data []byte) bool {
	owner, ok := r.owners[id]
	if !ok {
		return false
	}
	delete(r.owners, id)
	r.responses[owner] = data
	return true
}

// DeliverBurst writes data into worker's pre-sized buffer at offset,
// for burst reads that arrive in multiple line-sized chunks.
func (r *ReorderBuffer) DeliverBurst(id xid.ID, workerID int, offset int, data []byte) bool {
	owner, ok := r.owners[id]
	if !ok || owner != workerID {
		return false
	}
	delete(r.owners, id)
	buf := r.responses[workerID]
	copy(buf[offset:offset+len(data)], data)
	return true
}

// StartBurst pre-sizes worker's response buffer for a burst read.
func (r *ReorderBuffer) StartBurst(workerID int, size int) {
	r.responses[workerID] = make([]byte, size)
}

// Response returns the stored response bytes for a worker.
func (r *ReorderBuffer) Response(workerID int) []byte {
	return r.responses[workerID]
}

// Reset clears all outstanding mappings.
func (r *ReorderBuffer) Reset() {
	r.owners = make(map[xid.ID]int)
	r.responses = make(map[int][]byte)
}
