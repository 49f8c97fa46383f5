package sched

// WriteBuffer gives in-flight stores store-to-load forwarding: a read
// that lies entirely within a still-unacknowledged write is served from the
// buffer instead of waiting on the memory round trip. Grounded on the
// store_queue / findStoreQueueEntry logic in the original's
// async_heap.cc.
type WriteBuffer struct {
	entries []writeEntry
}

type writeEntry struct {
	addr uint64
	data []byte
	acked bool
}

// NewWriteBuffer creates an empty write buffer.
func NewWriteBuffer() *WriteBuffer {
	return &WriteBuffer{}
}

// Push records an in-flight store.
func (b *WriteBuffer) Push(addr uint64, data []byte) {
	b.entries = append(b.entries, writeEntry{addr: addr, data: append([]byte(nil), data...)})
}

// Forward looks for the most recent entry whose range fully contains
// [addr, addr+size), newest first. It returns the overlapping bytes
// and true on a hit; only an entry that fully covers the requested
// range can forward, matching the original's containment check.
func (b *WriteBuffer) Forward(addr uint64, size int) ([]byte, bool) {
	for i := len(b.entries) - 1; i >= 0; i-- {
		e := b.entries[i]
		if addr >= e.addr && addr+uint64(size) <= e.addr+uint64(len(e.data)) {
			off := addr - e.addr
			return e.data[off : off+uint64(size)], true
		}
	}
	return nil, false
}

// Ack marks the oldest unacknowledged entry at addr as committed and
// purges it from the buffer. Stores are acknowledged in issue order.
func (b *WriteBuffer) Ack(addr uint64) {
	for i, e := range b.entries {
		if !e.acked && e.addr == addr {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return
		}
	}
}

// Reset discards all buffered entries.
func (b *WriteBuffer) Reset() {
	b.entries = nil
}
