package clause_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/satx/clause"
	"github.com/sarchlab/satx/lit"
	"github.com/sarchlab/satx/mem"
)

var _ = Describe("Store", func() {
	var s *clause.Store

	BeforeEach(func() {
		flat := mem.NewFlat()
		port := mem.NewPort(mem.NewHierarchy(mem.DefaultLineConfig(), flat), flat)
		s = clause.NewStore(port, 0x40000000, 1<<16)
	})

	It("round-trips an input clause's literals", func() {
		lits := []lit.Lit{1, -2, 3}
		ref := s.Add(lits, false)

		Expect(s.Size(ref)).To(Equal(3))
		Expect(s.Learnt(ref)).To(BeFalse())
		Expect(s.Literals(ref)).To(Equal(lits))
	})

	It("tags a learnt clause and tracks its LBD and activity", func() {
		ref := s.Add([]lit.Lit{1, 2}, true)
		Expect(s.Learnt(ref)).To(BeTrue())

		s.SetLBD(ref, 3)
		s.SetActivity(ref, 1.5)
		Expect(s.LBD(ref)).To(Equal(uint16(3)))
		Expect(s.Activity(ref)).To(Equal(float32(1.5)))
	})

	It("allows a watch rotation to overwrite a literal in place", func() {
		ref := s.Add([]lit.Lit{1, -2, 3, -4}, false)
		s.SetLiteral(ref, 0, -4)
		s.SetLiteral(ref, 3, 1)

		Expect(s.Literals(ref)).To(Equal([]lit.Lit{-4, -2, 3, 1}))
	})

	It("frees a clause's storage for reuse", func() {
		ref := s.Add([]lit.Lit{1, 2, 3}, true)
		before := s.Stats().AllocatedBytes
		s.Remove(ref)
		after := s.Stats().AllocatedBytes
		Expect(after).To(BeNumerically("<", before))
	})
})
