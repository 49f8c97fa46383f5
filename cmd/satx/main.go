// Package main provides the entry point for satx.
// satx is a cycle-accurate simulation of a memory-disaggregated,
// hardware-accelerated CDCL SAT solver core.
package main

import (
	"flag"
	"fmt"
	"os"

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
	configPath = flag.String("config", "", "Path to solver parameters YAML file")
	pipelined  = flag.Bool("pipelined-heap", false, "Use the pipelined on-chip heap instead of the classic heap")
	verbose    = flag.Bool("v", false, "Verbose output")
	maxConfl   = flag.Int("max-confl", 0, "Abort with UNKNOWN after this many conflicts (0 = unbounded)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: satx [options] <problem.cnf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cnfPath := flag.Arg(0)
	exitCode := run(cnfPath)
	os.Exit(exitCode)
}

func run(cnfPath string) int {
	f, err := os.Open(cnfPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening problem file: %v\n", err)
		return 1
	}
	defer f.Close()

	problem, err := dimacs.Parse(f, dimacs.ParseOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing problem: %v\n", err)
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
	params.Verbose = params.Verbose || *verbose
	if *maxConfl > 0 {
		params.MaxConflTotal = *maxConfl
	}

	log := solver.NewLogger(os.Stdout, params.Verbose)
	log.Debugf("Loaded: %s (vars=%d clauses=%d)", cnfPath, problem.NumVars, len(problem.Clauses))

	fsm := buildFSM(problem, params, log)

	outcome := fsm.Run()
	st := fsm.Stats()
	log.Debugf("decisions=%d conflicts=%d propagations=%d restarts=%d reductions=%d",
		st.Decisions, st.Conflicts, st.Propagations, st.Restarts, st.Reductions)

	switch outcome {
	case solver.SAT:
		fmt.Println("SAT")
		printModel(fsm.Model())
		return 10
	case solver.UNSAT:
		fmt.Println("UNSAT")
		return 20
	default:
		fmt.Println("UNKNOWN")
		return 0
	}
}

func buildFSM(p *dimacs.Problem, params solver.Params, log *solver.Logger) *solver.FSM {
	flat := mem.NewFlat()
	hierarchy := mem.NewHierarchy(mem.DefaultLineConfig(), flat)
	backing := mem.NewPort(hierarchy, flat)
	am := mem.DefaultAddressMap()

	vs := vars.NewStore(backing, am.Variables, p.NumVars)
	ws := watch.NewStore(backing, am.WatchHeads, am.WatcherNodes, 2*(p.NumVars+1), uint32(len(p.Clauses)*4+1024))
	cs := clause.NewStore(backing, am.ClauseLiterals, uint64(len(p.Clauses))*64+1<<20)
	act := vars.NewActivity(backing, am.VariableActivity, p.NumVars, params.VarDecay)

	var h heap.Heap
	if params.UsePipelinedHeap {
		h = heap.NewPipelined(act)
	} else {
		h = heap.NewClassic(backing, am.Heap, am.Indices, p.NumVars, act, params.HeapLanes)
	}

	all := make([]lit.Var, p.NumVars)
	for i := range all {
		all[i] = lit.Var(i + 1)
	}
	h.Build(all)

	var units []lit.Lit
	for _, cl := range p.Clauses {
		if len(cl) == 1 {
			units = append(units, cl[0])
			continue
		}
		ref := cs.Add(cl, false)
		propagate.Attach(cs, ws, ref)
	}

	return solver.New(solver.Config{
		Params:      params,
		Vars:        vs,
		Clauses:     cs,
		Watches:     ws,
		Activity:    act,
		Heap:        h,
		NumVars:     p.NumVars,
		Logger:      log,
		UnitClauses: units,
	})
}

func printModel(model []lit.Value) {
	for v := 1; v < len(model); v++ {
		switch model[v] {
		case lit.True:
			fmt.Printf("%d ", v)
		case lit.False:
			fmt.Printf("-%d ", v)
		}
	}
	fmt.Println("0")
}
