package analyze_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/satx/analyze"
	"github.com/sarchlab/satx/clause"
	"github.com/sarchlab/satx/lit"
	"github.com/sarchlab/satx/mem"
	"github.com/sarchlab/satx/vars"
)

func newPort() *mem.Port {
	flat := mem.NewFlat()
	return mem.NewPort(mem.NewHierarchy(mem.DefaultLineConfig(), flat), flat)
}

var _ = Describe("Analyzer", func() {
	It("resolves a diamond conflict to a 1-UIP clause crossing one earlier level", func() {
		backing := newPort()
		vs := vars.NewStore(backing, 0x20000000, 8)
		cs := clause.NewStore(backing, 0x41000000, 1<<16)

		c1 := cs.Add([]lit.Lit{-2, 3}, false)
		c2 := cs.Add([]lit.Lit{-1, -2, 4}, false)
		conflict := cs.Add([]lit.Lit{-3, -4}, false)

		vs.Assign(1, lit.True, 1, 0)
		vs.Assign(2, lit.True, 2, 0)
		vs.Assign(3, lit.True, 2, uint32(c1))
		vs.Assign(4, lit.True, 2, uint32(c2))

		trail := []lit.Lit{1, 2, 3, 4}

		a := analyze.NewAnalyzer(vs, cs, analyze.MinimizeOff)
		result := a.Analyze(conflict, trail, 2)

		Expect(result.Learnt).To(ContainElement(lit.Lit(-2)))
		Expect(result.Learnt).To(ContainElement(lit.Lit(-1)))
		Expect(result.Learnt).To(HaveLen(2))
		Expect(result.BacktrackLevel).To(Equal(int32(1)))
		Expect(result.LBD).To(Equal(2))
	})

	It("produces a unit clause with backtrack level 0 when only the current level is involved", func() {
		backing := newPort()
		vs := vars.NewStore(backing, 0x20000000, 8)
		cs := clause.NewStore(backing, 0x41000000, 1<<16)

		c1 := cs.Add([]lit.Lit{-2, 3}, false)
		c2 := cs.Add([]lit.Lit{-2, 4}, false)
		conflict := cs.Add([]lit.Lit{-3, -4}, false)

		vs.Assign(2, lit.True, 2, 0)
		vs.Assign(3, lit.True, 2, uint32(c1))
		vs.Assign(4, lit.True, 2, uint32(c2))

		trail := []lit.Lit{2, 3, 4}

		a := analyze.NewAnalyzer(vs, cs, analyze.MinimizeOff)
		result := a.Analyze(conflict, trail, 2)

		Expect(result.Learnt).To(Equal([]lit.Lit{-2}))
		Expect(result.BacktrackLevel).To(Equal(int32(0)))
	})

	It("Merge picks the candidate with the shallower backtrack level", func() {
		deep := analyze.Result{BacktrackLevel: 3, Learnt: []lit.Lit{1, 2}}
		shallow := analyze.Result{BacktrackLevel: 1, Learnt: []lit.Lit{1, 2, 3}}

		Expect(analyze.Merge([]analyze.Result{deep, shallow})).To(Equal(shallow))
	})

	It("Merge prefers the smaller clause when backtrack levels tie", func() {
		bigger := analyze.Result{BacktrackLevel: 1, Learnt: []lit.Lit{1, 2, 3}}
		smaller := analyze.Result{BacktrackLevel: 1, Learnt: []lit.Lit{1, 2}}

		Expect(analyze.Merge([]analyze.Result{bigger, smaller})).To(Equal(smaller))
	})

	It("AnalyzeMany fans multiple conflicts out across lanes and merges to the best result", func() {
		backing := newPort()
		vs := vars.NewStore(backing, 0x20000000, 8)
		cs := clause.NewStore(backing, 0x41000000, 1<<16)

		c1 := cs.Add([]lit.Lit{-2, 3}, false)
		c2 := cs.Add([]lit.Lit{-1, -2, 4}, false)
		conflictA := cs.Add([]lit.Lit{-3, -4}, false)
		conflictB := cs.Add([]lit.Lit{-3, -4}, false)

		vs.Assign(1, lit.True, 1, 0)
		vs.Assign(2, lit.True, 2, 0)
		vs.Assign(3, lit.True, 2, uint32(c1))
		vs.Assign(4, lit.True, 2, uint32(c2))

		trail := []lit.Lit{1, 2, 3, 4}

		a := analyze.NewAnalyzer(vs, cs, analyze.MinimizeOff)
		result := a.AnalyzeMany([]clause.Ref{conflictA, conflictB}, trail, 2, 4)

		Expect(result.BacktrackLevel).To(Equal(int32(1)))
		Expect(result.Learnt).To(HaveLen(2))
	})
})
