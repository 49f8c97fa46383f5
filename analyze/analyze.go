// Package analyze implements first-UIP conflict analysis: resolving
// the conflicting clause back through the implication graph until
// exactly one literal from the current decision level remains, then
// minimizing and selecting the backtrack level for the learnt clause.
// Grounded on the conflict-handling path of the original's
// satsolver.{h,cc} and the Variable/reason bookkeeping in structs.h.
package analyze

import (
	"github.com/sarchlab/satx/clause"
	"github.com/sarchlab/satx/lit"
	"github.com/sarchlab/satx/sched"
	"github.com/sarchlab/satx/vars"
)

// Minimization selects how aggressively a learnt clause is shrunk
// after the 1-UIP resolution pass.
type Minimization int

const (
	// MinimizeOff skips minimization entirely.
	MinimizeOff Minimization = iota
	// MinimizeBasic removes literals whose reason clause is already
	// fully subsumed by the learnt clause's other literals.
	MinimizeBasic
	// MinimizeDeep additionally recurses through reason chains
	// (the original's "level 2" minimization).
	MinimizeDeep
)

// Result is a completed conflict analysis: the learnt clause (UIP
// literal first) and the level to backtrack to.
type Result struct {
	Learnt        []lit.Lit
	BacktrackLevel int32
	LBD           int
}

// Analyzer resolves a conflict back to a 1-UIP clause.
type Analyzer struct {
	vs    *vars.Store
	cs    *clause.Store
	mode  Minimization
	trail []lit.Lit
}

// NewAnalyzer creates an analyzer reading variable/reason state from
// vs and clause contents from cs.
func NewAnalyzer(vs *vars.Store, cs *clause.Store, mode Minimization) *Analyzer {
	return &Analyzer{vs: vs, cs: cs, mode: mode}
}

// Analyze walks back from conflictRef along the implication graph,
// given the trail (in assignment order) and the current decision
// level, producing a 1-UIP learnt clause.
func (a *Analyzer) Analyze(conflictRef clause.Ref, trail []lit.Lit, level int32) Result {
	seen := make(map[lit.Var]bool)
	var learnt []lit.Lit
	counter := 0 // literals from the current level not yet resolved away

	resolve := func(ref clause.Ref, skip lit.Lit) {
		for _, l := range a.cs.Literals(ref) {
			if l == skip {
				continue
			}
			v := l.Var()
			if seen[v] {
				continue
			}
			seen[v] = true
			rec := a.vs.Get(v)
			if rec.Level == level {
				counter++
			} else if rec.Level > 0 {
				learnt = append(learnt, l)
			}
		}
	}

	resolve(conflictRef, lit.Undef)

	ti := len(trail) - 1
	var uip lit.Lit
	for {
		for ti >= 0 && !seen[trail[ti].Var()] {
			ti--
		}
		v := trail[ti].Var()
		seen[v] = false
		counter--
		if counter == 0 {
			uip = trail[ti].Negate()
			break
		}
		rec := a.vs.Get(v)
		resolve(clause.Ref(rec.Reason), trail[ti])
		ti--
	}

	learnt = append([]lit.Lit{uip}, learnt...)
	if a.mode != MinimizeOff {
		learnt = a.minimize(learnt, seen)
	}

	return Result{
		Learnt:         learnt,
		BacktrackLevel: a.backtrackLevel(learnt, level),
		LBD:            a.lbd(learnt),
	}
}

// minimize drops a literal if every variable its reason clause
// depends on (other than itself) is already in the learnt clause,
// i.e. it is implied by literals already present and adds nothing.
func (a *Analyzer) minimize(learnt []lit.Lit, inClause map[lit.Var]bool) []lit.Lit {
	redundant := func(l lit.Lit) bool {
		rec := a.vs.Get(l.Var())
		if rec.Reason == 0 {
			return false
		}
		for _, rl := range a.cs.Literals(clause.Ref(rec.Reason)) {
			if rl.Var() == l.Var() {
				continue
			}
			if !inClause[rl.Var()] {
				if a.mode != MinimizeDeep {
					return false
				}
				if !redundantDeep(a, rl, inClause, make(map[lit.Var]bool)) {
					return false
				}
			}
		}
		return true
	}

	out := learnt[:1] // the UIP literal is never dropped
	for _, l := range learnt[1:] {
		if !redundant(l) {
			out = append(out, l)
		}
	}
	return out
}

func redundantDeep(a *Analyzer, l lit.Lit, inClause, visiting map[lit.Var]bool) bool {
	if inClause[l.Var()] {
		return true
	}
	if visiting[l.Var()] {
		return false
	}
	visiting[l.Var()] = true
	rec := a.vs.Get(l.Var())
	if rec.Reason == 0 {
		return false
	}
	for _, rl := range a.cs.Literals(clause.Ref(rec.Reason)) {
		if rl.Var() == l.Var() {
			continue
		}
		if !redundantDeep(a, rl, inClause, visiting) {
			return false
		}
	}
	return true
}

// backtrackLevel is the second-highest decision level among the
// learnt clause's literals (or 0 if it is a unit clause), the level
// propagation should resume from after the clause is added.
func (a *Analyzer) backtrackLevel(learnt []lit.Lit, conflictLevel int32) int32 {
	if len(learnt) == 1 {
		return 0
	}
	var best int32
	bestIdx := 1
	for i := 1; i < len(learnt); i++ {
		lvl := a.vs.Get(learnt[i].Var()).Level
		if lvl > best {
			best = lvl
			bestIdx = i
		}
	}
	learnt[1], learnt[bestIdx] = learnt[bestIdx], learnt[1]
	return best
}

// Merge picks the winner among several independently-computed
// analyses (e.g. one per parallel conflict candidate) by the smallest
// (backtrack level, clause size) pair, favoring the shallower, tighter
// learnt clause when several conflicts are found in the same round.
func Merge(results []Result) Result {
	best := results[0]
	for _, r := range results[1:] {
		if r.BacktrackLevel < best.BacktrackLevel ||
			(r.BacktrackLevel == best.BacktrackLevel && len(r.Learnt) < len(best.Learnt)) {
			best = r
		}
	}
	return best
}

// AnalyzeMany analyzes several simultaneously-discovered conflicting
// clauses independently, fanning the work out across up to lanes
// cooperative workers (the LEARNERS resource class — each analysis
// only reads the shared trail/variable state and builds its own
// private learnt clause, so distinct conflicts never contend), then
// returns the single result Merge selects: the analysis with the
// smallest (backtrack level, clause size).
func (a *Analyzer) AnalyzeMany(conflicts []clause.Ref, trail []lit.Lit, level int32, lanes int) Result {
	if len(conflicts) == 1 {
		return a.Analyze(conflicts[0], trail, level)
	}
	results := make([]Result, len(conflicts))
	s := sched.NewScheduler(lanes)
	for i, ref := range conflicts {
		i, ref := i, ref
		s.Submit(func(id int) *sched.Worker {
			return sched.Spawn(id, func(w *sched.Worker, y *sched.Yielder) {
				results[i] = a.Analyze(ref, trail, level)
			})
		})
	}
	for s.Busy() {
		s.Tick()
	}
	return Merge(results)
}

// lbd computes the literal block distance: the number of distinct
// decision levels represented among the learnt clause's literals,
// used both for clause quality stats and DB-reduction prioritization.
func (a *Analyzer) lbd(learnt []lit.Lit) int {
	levels := make(map[int32]bool)
	for _, l := range learnt {
		levels[a.vs.Get(l.Var()).Level] = true
	}
	return len(levels)
}
