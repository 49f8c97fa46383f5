package vars

import (
	"encoding/binary"
	"math"

	"github.com/sarchlab/satx/lit"
	"github.com/sarchlab/satx/mem"
)

// rescaleThreshold and rescaleFactor match the original's varBump
// overflow handling: once any activity exceeds 1e100, every activity
// and the increment itself are scaled down by 1e-100 so the float64
// range never saturates across a long run.
const (
	rescaleThreshold = 1e100
	rescaleFactor    = 1e-100
)

// Activity is the VSIDS activity vector: one float64 per variable plus
// the shared bump increment, backed by external memory so the heap
// packages can read it through the same async interface as everything
// else. Grounded on async_var_activity.{h,cc}.
type Activity struct {
	backing *mem.Port
	base    uint64
	numVars int
	varInc  float64
	decay   float64
}

// NewActivity creates an activity vector for numVars variables, all
// initialized to zero via the untimed setup path, with bump increment
// 1 and the given per-conflict decay factor (e.g. 0.95, meaning Decay
// multiplies varInc by 1/decay).
func NewActivity(backing *mem.Port, base uint64, numVars int, decay float64) *Activity {
	a := &Activity{backing: backing, base: base, numVars: numVars, varInc: 1, decay: decay}
	var zero [8]byte
	for v := 1; v <= numVars; v++ {
		backing.SendUntimed(a.addr(lit.Var(v)), zero[:])
	}
	return a
}

func (a *Activity) addr(v lit.Var) uint64 {
	return a.base + uint64(v)*8
}

// Get returns v's current activity.
func (a *Activity) Get(v lit.Var) float64 {
	bits := binary.LittleEndian.Uint64(a.backing.ReadBytes(a.addr(v), 8))
	return math.Float64frombits(bits)
}

func (a *Activity) set(v lit.Var, value float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(value))
	a.backing.WriteBytes(a.addr(v), buf[:])
}

// Bump increases v's activity by the current increment, rescaling the
// whole vector first if that would overflow the threshold.
func (a *Activity) Bump(v lit.Var) {
	next := a.Get(v) + a.varInc
	if next > rescaleThreshold {
		a.RescaleAll(rescaleFactor)
		next = a.Get(v) + a.varInc
	}
	a.set(v, next)
}

// RescaleAll multiplies every variable's activity and the bump
// increment by factor.
func (a *Activity) RescaleAll(factor float64) {
	for v := 1; v <= a.numVars; v++ {
		a.set(lit.Var(v), a.Get(lit.Var(v))*factor)
	}
	a.varInc *= factor
}

// Decay grows the bump increment so that, relative to a fixed bump of
// 1, past activity decays — the standard VSIDS move of increasing
// varInc instead of scaling every entry on every conflict.
func (a *Activity) Decay() {
	a.varInc /= a.decay
}

// Less reports whether u has lower priority than v (structs.h's
// VarOrderLt: higher activity sorts first, so Less orders the heap
// as a max-heap over activity).
func (a *Activity) Less(u, v lit.Var) bool {
	return a.Get(u) < a.Get(v)
}
