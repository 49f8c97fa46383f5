package stats_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/satx/stats"
)

var _ = Describe("Set", func() {
	It("tracks count, sum, min and max per metric", func() {
		s := stats.NewSet()
		s.Observe("watchers_inspected", 3)
		s.Observe("watchers_inspected", 7)
		s.Observe("watchers_inspected", 1)

		h := s.Get("watchers_inspected")
		Expect(h.Count).To(Equal(3))
		Expect(h.Sum).To(Equal(11.0))
		Expect(h.Min).To(Equal(1.0))
		Expect(h.Max).To(Equal(7.0))
		Expect(h.Mean()).To(BeNumerically("~", 3.667, 0.01))
	})

	It("returns nil for a metric never observed", func() {
		s := stats.NewSet()
		Expect(s.Get("nope")).To(BeNil())
	})

	It("lists observed metric names sorted", func() {
		s := stats.NewSet()
		s.Observe("zeta", 1)
		s.Observe("alpha", 1)
		Expect(s.Names()).To(Equal([]string{"alpha", "zeta"}))
	})

	It("computes percentiles over recorded samples", func() {
		s := stats.NewSet()
		for i := 1; i <= 10; i++ {
			s.Observe("x", float64(i))
		}
		h := s.Get("x")
		Expect(h.Percentile(0)).To(Equal(1.0))
		Expect(h.Percentile(100)).To(Equal(10.0))
		Expect(h.Percentile(50)).To(BeNumerically("~", 5.5, 0.01))
	})
})
