package mem_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/satx/mem"
)

var _ = Describe("Hierarchy", func() {
	var (
		backing *mem.Flat
		h       *mem.Hierarchy
	)

	BeforeEach(func() {
		backing = mem.NewFlat()
		h = mem.NewHierarchy(mem.LineConfig{
			Size: 4 * 1024, Associativity: 4, LineSize: 64,
			HitLatency: 1, MissLatency: 10,
		}, backing)
	})

	It("misses on cold lines and serves from backing memory", func() {
		backing.WriteBytes(0x1000, []byte{0xEF, 0xBE, 0xAD, 0xDE})

		result := h.Read(0x1000, 4)
		Expect(result.Hit).To(BeFalse())
		Expect(result.Latency).To(Equal(uint64(10)))
		Expect(result.Data).To(Equal([]byte{0xEF, 0xBE, 0xAD, 0xDE}))

		Expect(h.Stats().Misses).To(Equal(uint64(1)))
	})

	It("hits on a line that was already fetched", func() {
		backing.WriteBytes(0x2000, []byte{1, 2, 3, 4})
		h.Read(0x2000, 4)

		result := h.Read(0x2000, 4)
		Expect(result.Hit).To(BeTrue())
		Expect(result.Latency).To(Equal(uint64(1)))
	})

	It("charges extra latency for a load right after a store to the same address", func() {
		backing.WriteBytes(0x3000, []byte{0, 0, 0, 0})
		h.Read(0x3000, 4) // warm the line

		h.Write(0x3000, []byte{9, 9, 9, 9})
		result := h.Read(0x3000, 4)
		Expect(result.Latency).To(Equal(uint64(2))) // hit + forward
	})

	It("evicts and writes back a dirty line on miss", func() {
		cfg := mem.LineConfig{Size: 1 * 64, Associativity: 1, LineSize: 64, HitLatency: 1, MissLatency: 5}
		small := mem.NewHierarchy(cfg, backing)

		small.Write(0x0, []byte{1})
		r := small.Read(0x1000, 1)
		Expect(r.Evicted).To(BeTrue())
		Expect(r.EvictedAddr).To(Equal(uint64(0)))

		// The dirty line was written back; confirm via backing memory.
		Expect(backing.ReadBytes(0x0, 1)).To(Equal([]byte{1}))
	})
})

var _ = Describe("SliceBurst", func() {
	It("never produces a chunk crossing a line boundary", func() {
		chunks := mem.SliceBurst(60, 40, 64, 4)
		for _, c := range chunks {
			Expect(mem.Straddles(c.Addr, c.Size, 64)).To(BeFalse())
		}
	})

	It("covers the whole requested range with no gaps or overlaps", func() {
		chunks := mem.SliceBurst(100, 300, 64, 8)
		covered := 0
		for _, c := range chunks {
			Expect(c.Offset).To(Equal(covered))
			covered += c.Size
		}
		Expect(covered).To(Equal(300))
	})
})
