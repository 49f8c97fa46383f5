package solver

import (
	"github.com/sarchlab/satx/analyze"
	"github.com/sarchlab/satx/clause"
	"github.com/sarchlab/satx/heap"
	"github.com/sarchlab/satx/lit"
	"github.com/sarchlab/satx/propagate"
	"github.com/sarchlab/satx/vars"
	"github.com/sarchlab/satx/watch"
)

// State is one of the control FSM's states (spec.md §4.1).
type State string

const (
	IDLE      State = "IDLE"
	INIT      State = "INIT"
	STEP      State = "STEP"
	PROPAGATE State = "PROPAGATE"
	DECIDE    State = "DECIDE"
	ANALYZE   State = "ANALYZE"
	MINIMIZE  State = "MINIMIZE"
	BTLEVEL   State = "BTLEVEL"
	BACKTRACK State = "BACKTRACK"
	REDUCE    State = "REDUCE"
	RESTART   State = "RESTART"
	WAIT_HEAP State = "WAIT_HEAP"
	DONE      State = "DONE"
)

// Outcome is the final verdict once the FSM reaches DONE.
type Outcome int

const (
	Unknown Outcome = iota
	SAT
	UNSAT
)

// FSM is the control loop tying propagation, analysis, and the
// decision heap together. Each Tick runs one state's full transition;
// PROPAGATE/ANALYZE/BACKTRACK are each implemented as a single bounded
// call into their package rather than a multi-tick resumable
// coroutine, a deliberate simplification from the original's
// instruction-level cooperative model (see DESIGN.md).
type FSM struct {
	params Params

	vs *vars.Store
	cs *clause.Store
	ws *watch.Store
	act *vars.Activity
	h  heap.Heap

	prop     *propagate.Engine
	analyzer *analyze.Analyzer
	restart  *RestartSchedule
	reduce   *ReduceSchedule
	log      *Logger

	state   State
	outcome Outcome
	level   int32

	restartConfls int
	restartRound  int

	conflictRefs []clause.Ref
	lastAnalysis analyze.Result
	learntRefs   []clause.Ref

	// afterHeap is the state WAIT_HEAP transitions to once the heap's
	// in-flight asynchronous inserts (SubmitInsert, from backtrack and
	// restart) have all retired.
	afterHeap State

	numVars int
	stats   Stats

	units []lit.Lit
}

// Config bundles the collaborators an FSM needs; solver ownership of
// each store/engine is assumed to already be wired (watches attached
// for input clauses, heap built with every variable).
type Config struct {
	Params   Params
	Vars     *vars.Store
	Clauses  *clause.Store
	Watches  *watch.Store
	Activity *vars.Activity
	Heap     heap.Heap
	NumVars  int
	Logger   *Logger
	// UnitClauses are top-level facts (DIMACS clauses of size 1):
	// literals to enqueue at level 0 before the first propagation.
	UnitClauses []lit.Lit
}

// New creates an FSM in state IDLE.
func New(cfg Config) *FSM {
	prop := propagate.NewEngine(cfg.Vars, cfg.Watches, cfg.Clauses,
		cfg.Params.ParaLits, cfg.Params.Propagators, cfg.Params.MaxConflPerRound)
	return &FSM{
		params:   cfg.Params,
		vs:       cfg.Vars,
		cs:       cfg.Clauses,
		ws:       cfg.Watches,
		act:      cfg.Activity,
		h:        cfg.Heap,
		prop:     prop,
		analyzer: analyze.NewAnalyzer(cfg.Vars, cfg.Clauses, cfg.Params.Minimize),
		restart:  NewRestartSchedule(cfg.Params),
		reduce:   NewReduceSchedule(cfg.Params),
		log:      cfg.Logger,
		state:    IDLE,
		numVars:  cfg.NumVars,
		units:    cfg.UnitClauses,
	}
}

// State returns the FSM's current state.
func (f *FSM) State() State { return f.state }

// Outcome returns the final verdict, valid once State() == DONE.
func (f *FSM) Outcome() Outcome { return f.outcome }

// Stats returns a snapshot of solver progress so far.
func (f *FSM) Stats() Stats { return f.stats }

// Model returns the current variable assignment (index 1..NumVars),
// valid once Outcome() == SAT.
func (f *FSM) Model() []lit.Value {
	m := make([]lit.Value, f.numVars+1)
	for v := 1; v <= f.numVars; v++ {
		m[v] = f.vs.Value(lit.Var(v))
	}
	return m
}

// Run ticks the FSM to completion and returns the final outcome.
func (f *FSM) Run() Outcome {
	for f.state != DONE {
		f.Tick()
		if f.params.MaxConflTotal > 0 && int(f.stats.Conflicts) >= f.params.MaxConflTotal {
			f.state = DONE
			f.outcome = Unknown
		}
	}
	return f.outcome
}

// Tick advances the FSM by one state transition.
func (f *FSM) Tick() {
	switch f.state {
	case IDLE:
		f.state = INIT
	case INIT:
		f.level = 0
		f.prop.SetLevel(0)
		for _, l := range f.units {
			if !f.prop.Enqueue(l, clause.Undef) {
				f.stats.Conflicts++
				f.state = DONE
				f.outcome = UNSAT
				return
			}
		}
		f.state = PROPAGATE
	case PROPAGATE:
		f.tickPropagate()
	case DECIDE:
		f.tickDecide()
	case ANALYZE:
		f.tickAnalyze()
	case MINIMIZE:
		// Minimization already ran inside Analyzer.Analyze; this state
		// exists to mirror spec.md's state list as a distinct hop.
		f.state = BTLEVEL
	case BTLEVEL:
		f.state = BACKTRACK
	case BACKTRACK:
		f.tickBacktrack()
	case REDUCE:
		f.tickReduce()
	case RESTART:
		f.tickRestart()
	case WAIT_HEAP:
		if f.h.Pending() {
			f.h.Tick()
			return
		}
		f.state = f.afterHeap
	case DONE:
		// terminal
	}
}

func (f *FSM) tickPropagate() {
	conflicts, ok := f.prop.Propagate()
	f.stats.Propagations++
	if !ok {
		f.conflictRefs = conflicts
		f.stats.Conflicts += uint64(len(conflicts))
		f.restartConfls += len(conflicts)
		f.reduce.OnConflict()
		f.act.Decay()
		if f.level == 0 {
			f.state = DONE
			f.outcome = UNSAT
			return
		}
		f.state = ANALYZE
		return
	}
	switch {
	case f.restartConfls >= f.restart.Limit(f.restartRound):
		f.state = RESTART
	case f.reduce.ShouldReduce(len(f.learntRefs)):
		f.state = REDUCE
	default:
		f.state = DECIDE
	}
}

func (f *FSM) tickDecide() {
	var v lit.Var
	for {
		cand, ok := f.h.RemoveMax()
		if !ok {
			f.state = DONE
			f.outcome = SAT
			return
		}
		if f.vs.Value(cand) == lit.Unassigned {
			v = cand
			break
		}
	}
	f.level++
	f.stats.Decisions++
	if f.level > f.stats.MaxDecisionLevel {
		f.stats.MaxDecisionLevel = f.level
	}
	f.prop.SetLevel(f.level)
	f.prop.Enqueue(lit.Of(v, false), clause.Undef)
	f.state = PROPAGATE
}

func (f *FSM) tickAnalyze() {
	f.lastAnalysis = f.analyzer.AnalyzeMany(f.conflictRefs, f.prop.Trail(), f.level, f.params.Learners)
	f.state = MINIMIZE
}

func (f *FSM) tickBacktrack() {
	target := f.lastAnalysis.BacktrackLevel
	trail := f.prop.Trail()
	n := len(trail)
	for n > 0 && f.vs.Get(trail[n-1].Var()).Level > target {
		n--
	}
	for i := n; i < len(trail); i++ {
		f.h.Bump(trail[i].Var())
		f.h.SubmitInsert(trail[i].Var())
	}
	f.prop.TruncateTrail(n)

	f.level = target
	f.prop.SetLevel(target)

	learnt := f.lastAnalysis.Learnt
	if len(learnt) == 1 {
		f.prop.Enqueue(learnt[0], clause.Undef)
	} else {
		ref := f.cs.Add(learnt, true)
		f.cs.SetLBD(ref, uint16(f.lastAnalysis.LBD))
		f.learntRefs = append(f.learntRefs, ref)
		f.stats.LearntClauses++
		propagate.Attach(f.cs, f.ws, ref)
		f.prop.Enqueue(learnt[0], ref)
	}
	f.afterHeap = PROPAGATE
	f.state = WAIT_HEAP
}

func (f *FSM) tickReduce() {
	kept := f.learntRefs[:0]
	for _, ref := range f.learntRefs {
		lits := f.cs.Literals(ref)
		locked := f.vs.Get(lits[0].Var()).Reason == uint32(ref)
		if f.cs.LBD(ref) <= 2 || locked {
			kept = append(kept, ref)
			continue
		}
		f.ws.Remove(lits[0].Negate().WatchIndex(), ref)
		f.ws.Remove(lits[1].Negate().WatchIndex(), ref)
		f.cs.Remove(ref)
	}
	f.learntRefs = kept
	f.stats.Reductions++
	f.state = DECIDE
}

func (f *FSM) tickRestart() {
	n := 0
	trail := f.prop.Trail()
	for n < len(trail) && f.vs.Get(trail[n].Var()).Level == 0 {
		n++
	}
	for i := n; i < len(trail); i++ {
		f.h.SubmitInsert(trail[i].Var())
	}
	f.prop.TruncateTrail(n)
	f.level = 0
	f.prop.SetLevel(0)
	f.restartConfls = 0
	f.restartRound++
	f.stats.Restarts++
	f.afterHeap = DECIDE
	f.state = WAIT_HEAP
}
