// Package main provides satcheck, an invariant-checking driver: by
// default it runs the solver core to completion the same way satx
// does, but after every FSM tick it cross-checks the heap's internal
// invariants (DEBUG_HEAP, via heap.Heap.DebugCheck) and the clause
// allocator's boundary-tag bookkeeping (alloc.Allocator.DebugCheck,
// via clause.Store.DebugCheck), then verifies a SAT verdict's model
// against every input clause. Passing -model instead checks an
// externally supplied model against a problem file without running
// the solver at all, for cross-checking a result produced elsewhere.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sarchlab/satx/clause"
	"github.com/sarchlab/satx/dimacs"
	"github.com/sarchlab/satx/heap"
	"github.com/sarchlab/satx/lit"
	"github.com/sarchlab/satx/mem"
	"github.com/sarchlab/satx/propagate"
	"github.com/sarchlab/satx/solver"
	"github.com/sarchlab/satx/vars"
	"github.com/sarchlab/satx/watch"
)

var (
	modelPath  = flag.String("model", "", "Check an externally supplied model against a problem file, without running the solver")
	configPath = flag.String("config", "", "Path to solver parameters YAML file")
	pipelined  = flag.Bool("pipelined-heap", false, "Use the pipelined on-chip heap instead of the classic heap")
	maxTicks   = flag.Int("max-ticks", 50_000_000, "Report INVALID if the FSM has not reached DONE within this many ticks")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: satcheck [options] <problem.cnf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	repoRoot, err := findRepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	cnfPath := resolve(repoRoot, flag.Arg(0))

	if *modelPath != "" {
		os.Exit(checkModel(cnfPath, resolve(repoRoot, *modelPath)))
	}
	os.Exit(checkSolve(cnfPath))
}

// findRepoRoot walks up from the working directory looking for go.mod,
// so problem and model paths given relative to the repo work no
// matter which directory satcheck is invoked from.
func findRepoRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}

	root := cwd
	for {
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
			return root, nil
		}
		parent := filepath.Dir(root)
		if parent == root {
			return "", fmt.Errorf("could not find repository root (go.mod) above %s", cwd)
		}
		root = parent
	}
}

func resolve(repoRoot, path string) string {
	if repoRoot == "" || filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return filepath.Join(repoRoot, path)
}

// checkSolve runs the solver core over cnfPath, exactly as satx's
// buildFSM wires it, but keeps its own references to the clause store
// and heap so it can call their DebugCheck methods after every tick —
// the same instances the FSM is mutating, not a copy.
func checkSolve(cnfPath string) int {
	problem, err := loadProblem(cnfPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading problem: %v\n", err)
		return 1
	}

	params := solver.DefaultParams()
	if *configPath != "" {
		params, err = solver.LoadParams(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading params: %v\n", err)
			return 1
		}
	}
	params.UsePipelinedHeap = params.UsePipelinedHeap || *pipelined

	flat := mem.NewFlat()
	hierarchy := mem.NewHierarchy(mem.DefaultLineConfig(), flat)
	backing := mem.NewPort(hierarchy, flat)
	am := mem.DefaultAddressMap()

	vs := vars.NewStore(backing, am.Variables, problem.NumVars)
	ws := watch.NewStore(backing, am.WatchHeads, am.WatcherNodes, 2*(problem.NumVars+1), uint32(len(problem.Clauses)*4+1024))
	cs := clause.NewStore(backing, am.ClauseLiterals, uint64(len(problem.Clauses))*64+1<<20)
	act := vars.NewActivity(backing, am.VariableActivity, problem.NumVars, params.VarDecay)

	var h heap.Heap
	if params.UsePipelinedHeap {
		h = heap.NewPipelined(act)
	} else {
		h = heap.NewClassic(backing, am.Heap, am.Indices, problem.NumVars, act, params.HeapLanes)
	}

	all := make([]lit.Var, problem.NumVars)
	for i := range all {
		all[i] = lit.Var(i + 1)
	}
	h.Build(all)

	var units []lit.Lit
	for _, cl := range problem.Clauses {
		if len(cl) == 1 {
			units = append(units, cl[0])
			continue
		}
		ref := cs.Add(cl, false)
		propagate.Attach(cs, ws, ref)
	}

	fsm := solver.New(solver.Config{
		Params:      params,
		Vars:        vs,
		Clauses:     cs,
		Watches:     ws,
		Activity:    act,
		Heap:        h,
		NumVars:     problem.NumVars,
		Logger:      solver.NewLogger(os.Stdout, params.Verbose),
		UnitClauses: units,
	})

	ticks, err := runChecked(fsm, h, cs)
	if err != nil {
		fmt.Printf("INVALID: %v\n", err)
		return 1
	}

	switch fsm.Outcome() {
	case solver.SAT:
		model := fsm.Model()
		violations := 0
		for i, cl := range problem.Clauses {
			if !clauseSatisfied(cl, model) {
				fmt.Printf("violated: clause %d: %v\n", i, cl)
				violations++
			}
		}
		if violations > 0 {
			fmt.Printf("INVALID: SAT model violates %d of %d clauses\n", violations, len(problem.Clauses))
			return 1
		}
		fmt.Printf("VALID: SAT, model satisfies all %d clauses (ticks=%d)\n", len(problem.Clauses), ticks)
		return 10
	case solver.UNSAT:
		fmt.Printf("VALID: UNSAT (ticks=%d)\n", ticks)
		return 20
	default:
		fmt.Printf("VALID: UNKNOWN, search budget exhausted without a conflict at level 0 or a full assignment (ticks=%d)\n", ticks)
		return 0
	}
}

// runChecked ticks fsm to completion, checking h and cs's invariants
// after every tick, and reports how many ticks it took.
func runChecked(fsm *solver.FSM, h heap.Heap, cs *clause.Store) (int, error) {
	ticks := 0
	for fsm.State() != solver.DONE {
		fsm.Tick()
		ticks++
		if ticks > *maxTicks {
			return ticks, fmt.Errorf("exceeded %d ticks without reaching DONE", *maxTicks)
		}
		if err := h.DebugCheck(); err != nil {
			return ticks, fmt.Errorf("heap invariant violated at tick %d: %w", ticks, err)
		}
		if err := cs.DebugCheck(); err != nil {
			return ticks, fmt.Errorf("allocator invariant violated at tick %d: %w", ticks, err)
		}
	}
	return ticks, nil
}

func checkModel(cnfPath, modelFile string) int {
	problem, err := loadProblem(cnfPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading problem: %v\n", err)
		return 1
	}

	assignment, err := loadModel(modelFile, problem.NumVars)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading model: %v\n", err)
		return 1
	}

	violations := 0
	for i, cl := range problem.Clauses {
		if !clauseSatisfied(cl, assignment) {
			fmt.Printf("violated: clause %d: %v\n", i, cl)
			violations++
		}
	}

	if violations > 0 {
		fmt.Printf("INVALID: %d of %d clauses violated\n", violations, len(problem.Clauses))
		return 1
	}

	fmt.Printf("VALID: all %d clauses satisfied\n", len(problem.Clauses))
	return 0
}

func loadProblem(path string) (*dimacs.Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dimacs.Parse(f, dimacs.ParseOptions{})
}

func loadModel(path string, numVars int) ([]lit.Value, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seq, err := dimacs.ParseDecisionSequence(f)
	if err != nil {
		return nil, err
	}

	assignment := make([]lit.Value, numVars+1)
	for _, l := range seq.Literals {
		v := int(l.Var())
		if v < 1 || v > numVars {
			return nil, fmt.Errorf("model literal %d out of range for %d variables", l.Var(), numVars)
		}
		if l.Sign() {
			assignment[v] = lit.False
		} else {
			assignment[v] = lit.True
		}
	}
	return assignment, nil
}

func clauseSatisfied(cl []lit.Lit, assignment []lit.Value) bool {
	for _, l := range cl {
		v := assignment[l.Var()]
		if l.Sign() && v == lit.False {
			return true
		}
		if !l.Sign() && v == lit.True {
			return true
		}
	}
	return false
}
