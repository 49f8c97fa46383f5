package propagate_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/satx/clause"
	"github.com/sarchlab/satx/lit"
	"github.com/sarchlab/satx/mem"
	"github.com/sarchlab/satx/propagate"
	"github.com/sarchlab/satx/vars"
	"github.com/sarchlab/satx/watch"
)

func newPort() *mem.Port {
	flat := mem.NewFlat()
	return mem.NewPort(mem.NewHierarchy(mem.DefaultLineConfig(), flat), flat)
}

func newFixture(numVars int) (*vars.Store, *watch.Store, *clause.Store) {
	backing := newPort()
	vs := vars.NewStore(backing, 0x20000000, numVars)
	ws := watch.NewStore(backing, 0x30000000, 0x40000000, 2*(numVars+1), 4096)
	cs := clause.NewStore(backing, 0x41000000, 1<<20)
	return vs, ws, cs
}

var _ = Describe("Engine", func() {
	It("propagates a chain of binary implications to a shared conclusion", func() {
		vs, ws, cs := newFixture(4)
		e := propagate.NewEngine(vs, ws, cs, 4, 4, 8)
		e.SetLevel(1)

		c1 := cs.Add([]lit.Lit{-1, 2}, false) // 1 -> 2
		c2 := cs.Add([]lit.Lit{-2, 3}, false) // 2 -> 3
		propagate.Attach(cs, ws, c1)
		propagate.Attach(cs, ws, c2)

		Expect(e.Enqueue(1, clause.Undef)).To(BeTrue())
		conflicts, ok := e.Propagate()
		Expect(ok).To(BeTrue())
		Expect(conflicts).To(BeEmpty())

		Expect(vs.LitValue(2)).To(Equal(lit.True))
		Expect(vs.LitValue(3)).To(Equal(lit.True))
	})

	It("detects a conflict when propagation falsifies an already-true literal", func() {
		vs, ws, cs := newFixture(3)
		e := propagate.NewEngine(vs, ws, cs, 4, 4, 8)
		e.SetLevel(1)

		c1 := cs.Add([]lit.Lit{-1, 2}, false)  // 1 -> 2
		c2 := cs.Add([]lit.Lit{-1, -2}, false) // 1 -> -2
		propagate.Attach(cs, ws, c1)
		propagate.Attach(cs, ws, c2)

		Expect(e.Enqueue(1, clause.Undef)).To(BeTrue())
		conflicts, ok := e.Propagate()
		Expect(ok).To(BeFalse())
		Expect(conflicts).NotTo(BeEmpty())
	})

	It("rotates a watch onto a newly non-false literal instead of propagating", func() {
		vs, ws, cs := newFixture(4)
		e := propagate.NewEngine(vs, ws, cs, 4, 4, 8)
		e.SetLevel(1)

		c1 := cs.Add([]lit.Lit{-1, 2, 3}, false)
		propagate.Attach(cs, ws, c1)

		Expect(e.Enqueue(1, clause.Undef)).To(BeTrue())
		_, ok := e.Propagate()
		Expect(ok).To(BeTrue())
		// Neither 2 nor 3 should be forced: the clause rotated its watch
		// onto 3 rather than propagating 2.
		Expect(vs.LitValue(2)).To(Equal(lit.Unassigned))
	})

	It("unwinds assigned variables when the trail is truncated", func() {
		vs, _, cs := newFixture(3)
		e := propagate.NewEngine(vs, watch.NewStore(newPort(), 0, 0x1000, 8, 64), cs, 4, 4, 8)
		e.SetLevel(1)
		e.Enqueue(1, clause.Undef)
		e.Enqueue(2, clause.Undef)

		e.TruncateTrail(1)
		Expect(vs.LitValue(2)).To(Equal(lit.Unassigned))
		Expect(vs.LitValue(1)).To(Equal(lit.True))
		Expect(e.Trail()).To(HaveLen(1))
	})
})
