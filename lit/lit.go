// Package lit defines the literal and variable encoding shared by
// every other package: a literal is a single signed integer encoding
// (variable, sign), variable 0 is reserved as undefined.
package lit

// Var identifies a boolean variable. VarUndef (0) marks "no variable"
// — a decision-free slot or a sentinel reason.
type Var int32

// VarUndef is the reserved "no variable" sentinel (spec.md §3).
const VarUndef Var = 0

// Lit is a signed literal: Var(l) recovers the variable, Sign(l) the
// polarity (true means negated).
type Lit int32

// Undef is the reserved "no literal" sentinel.
const Undef Lit = 0

// Of builds the literal for variable v with the given sign (true =
// negative occurrence of v).
func Of(v Var, negative bool) Lit {
	if negative {
		return Lit(-int32(v))
	}
	return Lit(v)
}

// Var returns the variable underlying a literal.
func (l Lit) Var() Var {
	if l < 0 {
		return Var(-l)
	}
	return Var(l)
}

// Sign reports whether l is a negative occurrence of its variable.
func (l Lit) Sign() bool { return l < 0 }

// Negate returns ¬l.
func (l Lit) Negate() Lit { return -l }

// WatchIndex returns 2·var(l) + sign_bit(l), the index used to address
// per-literal watch lists (spec.md §3: to_watch_index).
func (l Lit) WatchIndex() int {
	idx := int(l.Var()) << 1
	if l.Sign() {
		idx |= 1
	}
	return idx
}

// FromDimacs converts a nonzero DIMACS integer into a Lit: variable
// |i|, negative i means a negated occurrence (spec.md §6).
func FromDimacs(i int) Lit {
	if i < 0 {
		return Of(Var(-i), true)
	}
	return Of(Var(i), false)
}

// Value is a variable's current truth assignment.
type Value uint8

const (
	// Unassigned means the variable has no current value.
	Unassigned Value = iota
	True
	False
)

// Negate flips True/False; Unassigned is unaffected.
func (v Value) Negate() Value {
	switch v {
	case True:
		return False
	case False:
		return True
	default:
		return Unassigned
	}
}
