package solver_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/satx/clause"
	"github.com/sarchlab/satx/heap"
	"github.com/sarchlab/satx/lit"
	"github.com/sarchlab/satx/mem"
	"github.com/sarchlab/satx/propagate"
	"github.com/sarchlab/satx/solver"
	"github.com/sarchlab/satx/vars"
	"github.com/sarchlab/satx/watch"
)

func newFSM(numVars int, clauses [][]lit.Lit) *solver.FSM {
	flat := mem.NewFlat()
	backing := mem.NewPort(mem.NewHierarchy(mem.DefaultLineConfig(), flat), flat)
	vs := vars.NewStore(backing, 0x20000000, numVars)
	ws := watch.NewStore(backing, 0x30000000, 0x40000000, 2*(numVars+1), 1<<14)
	cs := clause.NewStore(backing, 0x41000000, 1<<20)
	act := vars.NewActivity(backing, 0x70000000, numVars, 0.95)
	h := heap.NewClassic(backing, 0x0, 0x10000000, numVars, act, 2)

	all := make([]lit.Var, numVars)
	for i := range all {
		all[i] = lit.Var(i + 1)
	}
	h.Build(all)

	var units []lit.Lit
	for _, lits := range clauses {
		if len(lits) == 1 {
			units = append(units, lits[0])
			continue
		}
		ref := cs.Add(lits, false)
		propagate.Attach(cs, ws, ref)
	}

	params := solver.DefaultParams()
	params.MaxConflTotal = 10000
	return solver.New(solver.Config{
		Params:      params,
		Vars:        vs,
		Clauses:     cs,
		Watches:     ws,
		Activity:    act,
		Heap:        h,
		NumVars:     numVars,
		Logger:      solver.NewLogger(nopWriter{}, false),
		UnitClauses: units,
	})
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

var _ = Describe("FSM", func() {
	It("reports SAT for a trivially satisfiable instance", func() {
		fsm := newFSM(3, [][]lit.Lit{
			{1, 2},
			{-1, 3},
		})
		Expect(fsm.Run()).To(Equal(solver.SAT))
	})

	It("reports UNSAT for a minimal contradiction", func() {
		fsm := newFSM(1, [][]lit.Lit{
			{1},
			{-1},
		})
		Expect(fsm.Run()).To(Equal(solver.UNSAT))
	})

	It("produces a model that satisfies every input clause on SAT", func() {
		clauses := [][]lit.Lit{
			{1, -2, 3},
			{-1, 2},
			{-3, -2},
		}
		fsm := newFSM(3, clauses)
		Expect(fsm.Run()).To(Equal(solver.SAT))

		model := fsm.Model()
		for _, cl := range clauses {
			satisfied := false
			for _, l := range cl {
				v := l.Var()
				val := model[v]
				if l.Sign() {
					val = val.Negate()
				}
				if val == lit.True {
					satisfied = true
					break
				}
			}
			Expect(satisfied).To(BeTrue())
		}
	})

	It("reports UNSAT for the pigeonhole-2-into-1 instance", func() {
		// Pigeons 1,2 into a single hole: p1 in hole, p2 in hole, not both.
		fsm := newFSM(2, [][]lit.Lit{
			{1},
			{2},
			{-1, -2},
		})
		Expect(fsm.Run()).To(Equal(solver.UNSAT))
	})

	It("counts the level-0 conflict that proves UNSAT", func() {
		fsm := newFSM(1, [][]lit.Lit{
			{1},
			{-1},
		})
		fsm.Run()
		Expect(fsm.Stats().Conflicts).To(BeNumerically(">=", 1))
	})
})
