// Package mem provides the byte-addressable external memory that backs
// every structure the solver core touches: heap arrays, variable
// records, watcher nodes, clause metadata and literal arena, and the
// activity vector. Nothing in this package is cycle-accurate by
// itself — Hierarchy (see hierarchy.go) and Port (see port.go) add
// timing on top of the flat byte array modeled here.
package mem

const pageSize = 4096

// Flat is a sparse, page-backed byte-addressable memory. Pages are
// allocated lazily so a large address map (see AddressMap) costs
// nothing until touched.
type Flat struct {
	pages map[uint64]*[pageSize]byte
}

// NewFlat creates an empty flat memory.
func NewFlat() *Flat {
	return &Flat{pages: make(map[uint64]*[pageSize]byte)}
}

func (m *Flat) page(addr uint64, write bool) *[pageSize]byte {
	base := addr &^ (pageSize - 1)
	p, ok := m.pages[base]
	if !ok {
		if !write {
			return nil
		}
		p = &[pageSize]byte{}
		m.pages[base] = p
	}
	return p
}

// ReadBytes copies n bytes starting at addr. Untouched pages read as
// zero, matching the original's zero-initialized heap.
func (m *Flat) ReadBytes(addr uint64, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		a := addr + uint64(i)
		if p := m.page(a, false); p != nil {
			out[i] = p[a&(pageSize-1)]
		}
	}
	return out
}

// WriteBytes stores data starting at addr.
func (m *Flat) WriteBytes(addr uint64, data []byte) {
	for i, b := range data {
		a := addr + uint64(i)
		p := m.page(a, true)
		p[a&(pageSize-1)] = b
	}
}
