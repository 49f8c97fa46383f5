// Package clause manages clause storage: a header (size, learnt flag,
// LBD glue level, activity) followed inline by its packed literal
// array, allocated out of the segregated-fit arena in package alloc.
// Grounded on the original's async_clauses.{h,cc} and structs.h.
package clause

import (
	"encoding/binary"
	"math"

	"github.com/sarchlab/satx/alloc"
	"github.com/sarchlab/satx/lit"
	"github.com/sarchlab/satx/mem"
)

// Ref addresses a clause's header in external memory. Undef (0) means
// "no clause" — an input literal's reason, or a sentinel.
type Ref uint32

// Undef is the reserved "no clause" reference.
const Undef Ref = 0

const headerSize = 12 // sizeCount(4) + lbd(2) + pad(2) + activity(4)
const learntBit = uint32(1) << 31

// Store owns the clause arena: a segregated-fit allocator over a
// region of external memory, plus the header encode/decode logic.
// Header and literal fields are accessed through the shared Port so
// they exercise the same write-buffer forwarding and reorder-buffer
// bookkeeping as every other core store; the allocator itself works
// directly against the raw Flat backing, since its free-list and
// boundary tags are allocator-internal metadata rather than a
// structure workers contend over.
type Store struct {
	backing *mem.Port
	alloc   *alloc.Allocator
}

// NewStore creates a clause store backed by an allocator over
// [base, base+size) of backing's raw flat memory.
func NewStore(backing *mem.Port, base uint64, size uint64) *Store {
	return &Store{backing: backing, alloc: alloc.New(backing.Flat(), base, size)}
}

// Add allocates a new clause holding lits, marked learnt or not, with
// LBD 0 and activity 0, and returns its reference.
func (s *Store) Add(lits []lit.Lit, learnt bool) Ref {
	payload, err := s.alloc.Allocate(headerSize + len(lits)*4)
	if err != nil {
		panic(err) // arena exhaustion is a fatal condition, per the original's allocateBlock
	}

	sizeWord := uint32(len(lits))
	if learnt {
		sizeWord |= learntBit
	}
	var hdr [headerSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], sizeWord)
	binary.LittleEndian.PutUint16(hdr[4:6], 0)
	binary.LittleEndian.PutUint32(hdr[8:12], 0)
	s.backing.WriteBytes(payload, hdr[:])

	buf := make([]byte, len(lits)*4)
	for i, l := range lits {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], uint32(int32(l)))
	}
	s.backing.WriteBytes(payload+headerSize, buf)

	return Ref(payload)
}

// Remove frees a clause's storage. Callers must not reference ref again.
func (s *Store) Remove(ref Ref) {
	s.alloc.Free(uint64(ref))
}

func (s *Store) sizeWord(ref Ref) uint32 {
	return binary.LittleEndian.Uint32(s.backing.ReadBytes(uint64(ref), 4))
}

// Size reports the number of literals in the clause.
func (s *Store) Size(ref Ref) int {
	return int(s.sizeWord(ref) &^ learntBit)
}

// Learnt reports whether the clause was added as a learnt clause.
func (s *Store) Learnt(ref Ref) bool {
	return s.sizeWord(ref)&learntBit != 0
}

// LBD returns the clause's glue level (literal block distance).
func (s *Store) LBD(ref Ref) uint16 {
	return binary.LittleEndian.Uint16(s.backing.ReadBytes(uint64(ref)+4, 2))
}

// SetLBD updates the clause's glue level.
func (s *Store) SetLBD(ref Ref, lbd uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], lbd)
	s.backing.WriteBytes(uint64(ref)+4, buf[:])
}

// Activity returns the clause's deletion-priority activity (used by
// the DB reduction schedule to keep the most useful learnt clauses).
func (s *Store) Activity(ref Ref) float32 {
	bits := binary.LittleEndian.Uint32(s.backing.ReadBytes(uint64(ref)+8, 4))
	return math.Float32frombits(bits)
}

// SetActivity updates the clause's activity.
func (s *Store) SetActivity(ref Ref, v float32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
	s.backing.WriteBytes(uint64(ref)+8, buf[:])
}

// Literal returns the i-th literal of the clause.
func (s *Store) Literal(ref Ref, i int) lit.Lit {
	addr := uint64(ref) + headerSize + uint64(i)*4
	return lit.Lit(int32(binary.LittleEndian.Uint32(s.backing.ReadBytes(addr, 4))))
}

// SetLiteral overwrites the i-th literal of the clause — used by
// watch-rotation to swap a falsified watched literal into place.
func (s *Store) SetLiteral(ref Ref, i int, l lit.Lit) {
	addr := uint64(ref) + headerSize + uint64(i)*4
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(int32(l)))
	s.backing.WriteBytes(addr, buf[:])
}

// Literals reads out the full literal slice of the clause.
func (s *Store) Literals(ref Ref) []lit.Lit {
	n := s.Size(ref)
	out := make([]lit.Lit, n)
	for i := 0; i < n; i++ {
		out[i] = s.Literal(ref, i)
	}
	return out
}

// Stats exposes the underlying allocator's occupancy/fragmentation
// snapshot.
func (s *Store) Stats() alloc.Stats {
	return s.alloc.Stats()
}

// DebugCheck verifies the underlying allocator's boundary tags and
// free-list bookkeeping are internally consistent.
func (s *Store) DebugCheck() error {
	return s.alloc.DebugCheck()
}
