// Package vars holds per-variable solver state: the assignment trail
// record (value, decision level, implication reason) and the VSIDS
// activity vector used to rank decision candidates. Grounded on the
// original's async_variables.h (variable records) and
// async_var_activity.{h,cc} (the bump/rescale activity vector).
package vars

import (
	"encoding/binary"

	"github.com/sarchlab/satx/lit"
	"github.com/sarchlab/satx/mem"
)

const recordStride = 12 // value(1) + pad(3) + level(4) + reason(4), byte-aligned

// Record is one variable's assignment state (structs.h's Variable).
type Record struct {
	Value  lit.Value
	Level  int32
	Reason uint32 // clause reference; 0 means "no reason" (decision or unassigned)
}

// Store is the fixed-stride external-memory array of variable
// records, one per variable (index 1..NumVars; index 0 is VarUndef
// and never read or written), accessed through the same request/
// response Port every other core structure shares.
type Store struct {
	backing *mem.Port
	base    uint64
	numVars int
}

// NewStore creates a record store for numVars variables rooted at
// base, with every record cleared to Unassigned/level 0/no reason via
// the untimed initialization path (spec.md §6) rather than the timed
// steady-state one Set uses.
func NewStore(backing *mem.Port, base uint64, numVars int) *Store {
	s := &Store{backing: backing, base: base, numVars: numVars}
	var zero [recordStride]byte
	for v := 1; v <= numVars; v++ {
		backing.SendUntimed(s.addr(lit.Var(v)), zero[:])
	}
	return s
}

func (s *Store) addr(v lit.Var) uint64 {
	return s.base + uint64(v)*recordStride
}

// Get returns variable v's current record.
func (s *Store) Get(v lit.Var) Record {
	buf := s.backing.ReadBytes(s.addr(v), recordStride)
	return Record{
		Value:  lit.Value(buf[0]),
		Level:  int32(binary.LittleEndian.Uint32(buf[4:8])),
		Reason: binary.LittleEndian.Uint32(buf[8:12]),
	}
}

// Set overwrites variable v's record.
func (s *Store) Set(v lit.Var, r Record) {
	var buf [recordStride]byte
	buf[0] = byte(r.Value)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(r.Level))
	binary.LittleEndian.PutUint32(buf[8:12], r.Reason)
	s.backing.WriteBytes(s.addr(v), buf[:])
}

// Value reports v's current assignment without fetching the whole record.
func (s *Store) Value(v lit.Var) lit.Value {
	return lit.Value(s.backing.ReadBytes(s.addr(v), 1)[0])
}

// LitValue reports the truth value of a literal given its variable's
// assignment, accounting for polarity.
func (s *Store) LitValue(l lit.Lit) lit.Value {
	v := s.Value(l.Var())
	if l.Sign() {
		return v.Negate()
	}
	return v
}

// Assign records v := value at decision level with the given
// implication reason (0 for a decision or a top-level unit).
func (s *Store) Assign(v lit.Var, value lit.Value, level int32, reason uint32) {
	s.Set(v, Record{Value: value, Level: level, Reason: reason})
}

// Unassign resets v to Unassigned, clearing level and reason — used
// when backtracking pops v off the trail.
func (s *Store) Unassign(v lit.Var) {
	s.Set(v, Record{Value: lit.Unassigned})
}

// NumVars returns the number of variables this store was sized for.
func (s *Store) NumVars() int { return s.numVars }
