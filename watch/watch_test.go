package watch_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/satx/clause"
	"github.com/sarchlab/satx/mem"
	"github.com/sarchlab/satx/watch"
)

func refs(nodes []watch.Node) []clause.Ref {
	out := make([]clause.Ref, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clause
	}
	return out
}

var _ = Describe("Store", func() {
	var s *watch.Store

	BeforeEach(func() {
		flat := mem.NewFlat()
		port := mem.NewPort(mem.NewHierarchy(mem.DefaultLineConfig(), flat), flat)
		s = watch.NewStore(port, 0x30000000, 0x40000000, 8, 64)
	})

	It("starts every watch list empty", func() {
		Expect(s.List(3)).To(BeEmpty())
	})

	It("fills the inline pre-watchers array before allocating a block", func() {
		s.Insert(2, clause.Ref(0x100), 5)
		s.Insert(2, clause.Ref(0x200), -7)

		Expect(refs(s.List(2))).To(ConsistOf(clause.Ref(0x100), clause.Ref(0x200)))
		Expect(s.BlockChainLength(2)).To(Equal(0))
	})

	It("spills into a chained block once the pre-watchers array is full", func() {
		for i := 0; i < watch.PreWatch+1; i++ {
			s.Insert(4, clause.Ref(0x10+i), 1)
		}
		Expect(s.BlockChainLength(4)).To(Equal(1))
		Expect(s.List(4)).To(HaveLen(watch.PreWatch + 1))
	})

	It("removes a watcher and reports true", func() {
		s.Insert(1, clause.Ref(0x10), 1)
		s.Insert(1, clause.Ref(0x20), 2)

		ok := s.Remove(1, clause.Ref(0x10))
		Expect(ok).To(BeTrue())

		list := s.List(1)
		Expect(list).To(HaveLen(1))
		Expect(list[0].Clause).To(Equal(clause.Ref(0x20)))
	})

	It("reports false when removing a watcher that is not present", func() {
		s.Insert(1, clause.Ref(0x10), 1)
		ok := s.Remove(1, clause.Ref(0x99))
		Expect(ok).To(BeFalse())
	})

	It("reuses a recycled pre-watcher slot for the next insert", func() {
		s.Insert(0, clause.Ref(0x1), 1)
		s.Remove(0, clause.Ref(0x1))
		s.Insert(0, clause.Ref(0x2), 2)

		Expect(s.List(0)).To(HaveLen(1))
	})

	It("detaches and frees a block once its last watcher is removed", func() {
		for i := 0; i < watch.PreWatch+watch.BlockSize; i++ {
			s.Insert(5, clause.Ref(0x30+i), 1)
		}
		Expect(s.BlockChainLength(5)).To(Equal(1))

		for i := watch.PreWatch; i < watch.PreWatch+watch.BlockSize; i++ {
			s.Remove(5, clause.Ref(0x30+i))
		}
		Expect(s.BlockChainLength(5)).To(Equal(0))
		Expect(s.List(5)).To(HaveLen(watch.PreWatch))
	})

	It("recycles a freed block for a different watch index", func() {
		for i := 0; i < watch.PreWatch+watch.BlockSize; i++ {
			s.Insert(5, clause.Ref(0x30+i), 1)
		}
		for i := watch.PreWatch; i < watch.PreWatch+watch.BlockSize; i++ {
			s.Remove(5, clause.Ref(0x30+i))
		}

		for i := 0; i < watch.PreWatch+1; i++ {
			s.Insert(6, clause.Ref(0x60+i), 1)
		}
		Expect(s.BlockChainLength(6)).To(Equal(1))
	})

	It("updates a watcher's cached blocker in place via First/SetBlocker", func() {
		s.Insert(0, clause.Ref(0x1), 7)
		slot, node, ok := s.First(0)
		Expect(ok).To(BeTrue())
		Expect(node.Blocker).To(BeEquivalentTo(7))

		s.SetBlocker(0, slot, 9)
		_, node, _ = s.First(0)
		Expect(node.Blocker).To(BeEquivalentTo(9))
	})

	It("invalidates a slot directly via First/Invalidate", func() {
		s.Insert(0, clause.Ref(0x1), 1)
		slot, _, ok := s.First(0)
		Expect(ok).To(BeTrue())

		s.Invalidate(0, slot)
		Expect(s.List(0)).To(BeEmpty())
	})
})
