package vars_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/satx/lit"
	"github.com/sarchlab/satx/mem"
	"github.com/sarchlab/satx/vars"
)

func newPort() *mem.Port {
	flat := mem.NewFlat()
	return mem.NewPort(mem.NewHierarchy(mem.DefaultLineConfig(), flat), flat)
}

var _ = Describe("Store", func() {
	It("starts every variable unassigned", func() {
		s := vars.NewStore(newPort(), 0x20000000, 10)
		Expect(s.Value(5)).To(Equal(lit.Unassigned))
	})

	It("round-trips an assignment with level and reason", func() {
		s := vars.NewStore(newPort(), 0x20000000, 10)
		s.Assign(3, lit.True, 2, 77)

		r := s.Get(3)
		Expect(r.Value).To(Equal(lit.True))
		Expect(r.Level).To(Equal(int32(2)))
		Expect(r.Reason).To(Equal(uint32(77)))
	})

	It("resolves literal polarity against the underlying variable value", func() {
		s := vars.NewStore(newPort(), 0x20000000, 10)
		s.Assign(4, lit.True, 1, 0)

		Expect(s.LitValue(lit.Of(4, false))).To(Equal(lit.True))
		Expect(s.LitValue(lit.Of(4, true))).To(Equal(lit.False))
	})

	It("clears value, level and reason on Unassign", func() {
		s := vars.NewStore(newPort(), 0x20000000, 10)
		s.Assign(6, lit.False, 3, 9)
		s.Unassign(6)

		r := s.Get(6)
		Expect(r.Value).To(Equal(lit.Unassigned))
		Expect(r.Level).To(Equal(int32(0)))
		Expect(r.Reason).To(Equal(uint32(0)))
	})
})

var _ = Describe("Activity", func() {
	It("bumps a variable's activity by the current increment", func() {
		a := vars.NewActivity(newPort(), 0x70000000, 10, 0.95)
		a.Bump(2)
		Expect(a.Get(2)).To(Equal(1.0))
		a.Bump(2)
		Expect(a.Get(2)).To(BeNumerically(">", 1.0))
	})

	It("orders variables by descending activity via Less", func() {
		a := vars.NewActivity(newPort(), 0x70000000, 10, 0.95)
		a.Bump(1)
		a.Bump(1)
		a.Bump(2)

		Expect(a.Less(2, 1)).To(BeTrue())
		Expect(a.Less(1, 2)).To(BeFalse())
	})

	It("rescales every entry and the increment together", func() {
		a := vars.NewActivity(newPort(), 0x70000000, 10, 0.95)
		a.Bump(1)
		a.Bump(2)
		a.RescaleAll(1e-100)

		Expect(a.Get(1)).To(BeNumerically("~", 1e-100, 1e-110))
	})
})
