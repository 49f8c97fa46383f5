package heap_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/satx/heap"
	"github.com/sarchlab/satx/lit"
	"github.com/sarchlab/satx/mem"
	"github.com/sarchlab/satx/vars"
)

func bumpSeveralTimes(act *vars.Activity, v lit.Var, n int) {
	for i := 0; i < n; i++ {
		act.Bump(v)
	}
}

func newPort() *mem.Port {
	flat := mem.NewFlat()
	return mem.NewPort(mem.NewHierarchy(mem.DefaultLineConfig(), flat), flat)
}

var implementations = map[string]func(act *vars.Activity) heap.Heap{
	"Classic": func(act *vars.Activity) heap.Heap {
		return heap.NewClassic(newPort(), 0x0, 0x10000000, 32, act, 2)
	},
	"Pipelined": func(act *vars.Activity) heap.Heap {
		return heap.NewPipelined(act)
	},
}

var _ = Describe("Heap implementations", func() {
	for name, factory := range implementations {
		name, factory := name, factory
		Describe(name, func() {
			var (
				act *vars.Activity
				h   heap.Heap
			)

			BeforeEach(func() {
				act = vars.NewActivity(newPort(), 0x70000000, 32, 0.95)
				h = factory(act)
			})

			It("pops the highest-activity variable first", func() {
				bumpSeveralTimes(act, 1, 1)
				bumpSeveralTimes(act, 2, 5)
				bumpSeveralTimes(act, 3, 2)

				h.Insert(1)
				h.Insert(2)
				h.Insert(3)

				top, ok := h.RemoveMax()
				Expect(ok).To(BeTrue())
				Expect(top).To(Equal(lit.Var(2)))
			})

			It("drains to empty in activity order", func() {
				bumpSeveralTimes(act, 1, 3)
				bumpSeveralTimes(act, 2, 1)
				bumpSeveralTimes(act, 3, 2)
				h.Build([]lit.Var{1, 2, 3})

				var order []lit.Var
				for h.Size() > 0 {
					v, _ := h.RemoveMax()
					order = append(order, v)
				}
				Expect(order).To(Equal([]lit.Var{1, 3, 2}))
			})

			It("ignores a duplicate Insert of an already-queued variable", func() {
				h.Insert(1)
				h.Insert(1)
				Expect(h.Size()).To(Equal(1))
			})

			It("reports false from RemoveMax on an empty heap", func() {
				_, ok := h.RemoveMax()
				Expect(ok).To(BeFalse())
			})

			It("re-floats a variable after Increase following a bump", func() {
				h.Build([]lit.Var{1, 2, 3})
				bumpSeveralTimes(act, 3, 10)
				h.Increase(3)

				top, _ := h.RemoveMax()
				Expect(top).To(Equal(lit.Var(3)))
			})

			It("passes DebugCheck after a build and some removals", func() {
				h.Build([]lit.Var{1, 2, 3, 4, 5})
				h.RemoveMax()
				Expect(h.DebugCheck()).To(Succeed())
			})

			It("asynchronously inserts a variable via SubmitInsert/Tick", func() {
				h.Build([]lit.Var{1, 2})
				bumpSeveralTimes(act, 3, 5)
				h.SubmitInsert(3)
				for h.Pending() {
					h.Tick()
				}
				Expect(h.InHeap(3)).To(BeTrue())
				top, _ := h.RemoveMax()
				Expect(top).To(Equal(lit.Var(3)))
			})
		})
	}
})
