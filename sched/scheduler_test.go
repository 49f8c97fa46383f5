package sched_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/xid"

	"github.com/sarchlab/satx/sched"
)

var _ = Describe("Worker and Scheduler", func() {
	It("runs a worker's body to completion across yields", func() {
		var trace []string
		s := sched.NewScheduler(2)

		s.Submit(func(id int) *sched.Worker {
			return sched.Spawn(id, func(w *sched.Worker, y *sched.Yielder) {
				trace = append(trace, "a1")
				y.Yield()
				trace = append(trace, "a2")
			})
		})

		s.Tick() // starts the worker, runs up to first yield
		Expect(trace).To(Equal([]string{"a1"}))

		s.MarkReady(0)
		s.Tick() // resumes past the yield to completion
		Expect(trace).To(Equal([]string{"a1", "a2"}))
		Expect(s.Busy()).To(BeFalse())
	})

	It("resumes polling workers every tick regardless of MarkReady", func() {
		attempts := 0
		s := sched.NewScheduler(1)

		s.Submit(func(id int) *sched.Worker {
			return sched.Spawn(id, func(w *sched.Worker, y *sched.Yielder) {
				for attempts < 3 {
					w.SetPolling(true)
					attempts++
					y.Yield()
				}
				w.SetPolling(false)
			})
		})

		s.Tick()
		Expect(attempts).To(Equal(1))
		s.Tick()
		s.Tick()
		Expect(attempts).To(Equal(3))
	})

	It("queues work beyond capacity and starts it as lanes free up", func() {
		started := []int{}
		s := sched.NewScheduler(1)

		for i := 0; i < 2; i++ {
			s.Submit(func(id int) *sched.Worker {
				return sched.Spawn(id, func(w *sched.Worker, y *sched.Yielder) {
					started = append(started, id)
				})
			})
		}

		s.Tick()
		Expect(started).To(Equal([]int{0}))
		s.Tick()
		Expect(started).To(Equal([]int{0, 0}))
	})
})

var _ = Describe("ReorderBuffer", func() {
	It("routes a delivered response back to its registered owner", func() {
		rb := sched.NewReorderBuffer()
		id := xid.New()
		rb.Register(id, 3)

		Expect(rb.Owner(id)).To(Equal(3))
		ok := rb.Deliver(id, []byte{1, 2, 3})
		Expect(ok).To(BeTrue())
		Expect(rb.Response(3)).To(Equal([]byte{1, 2, 3}))
		Expect(rb.Owner(id)).To(Equal(-1))
	})

	It("silently drops delivery for an unregistered id", func() {
		rb := sched.NewReorderBuffer()
		ok := rb.Deliver(xid.New(), []byte{9})
		Expect(ok).To(BeFalse())
	})

	It("assembles a burst response across multiple chunk deliveries", func() {
		rb := sched.NewReorderBuffer()
		rb.StartBurst(1, 4)
		id := xid.New()
		rb.Register(id, 1)
		rb.DeliverBurst(id, 1, 0, []byte{0xAA, 0xBB})

		id2 := xid.New()
		rb.Register(id2, 1)
		rb.DeliverBurst(id2, 1, 2, []byte{0xCC, 0xDD})

		Expect(rb.Response(1)).To(Equal([]byte{0xAA, 0xBB, 0xCC, 0xDD}))
	})
})

var _ = Describe("WriteBuffer", func() {
	It("forwards a read fully contained in the newest matching store", func() {
		wb := sched.NewWriteBuffer()
		wb.Push(100, []byte{1, 2, 3, 4})
		wb.Push(100, []byte{9, 9, 9, 9})

		data, ok := wb.Forward(101, 2)
		Expect(ok).To(BeTrue())
		Expect(data).To(Equal([]byte{9, 9}))
	})

	It("misses when no entry fully covers the requested range", func() {
		wb := sched.NewWriteBuffer()
		wb.Push(100, []byte{1, 2})

		_, ok := wb.Forward(100, 4)
		Expect(ok).To(BeFalse())
	})

	It("removes the oldest matching entry on Ack", func() {
		wb := sched.NewWriteBuffer()
		wb.Push(200, []byte{1})
		wb.Ack(200)

		_, ok := wb.Forward(200, 1)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("LaneSet", func() {
	It("caps concurrent acquisitions at its capacity", func() {
		lanes := sched.NewLaneSet("HEAPLANES", 2)

		Expect(lanes.TryAcquire()).To(BeTrue())
		Expect(lanes.TryAcquire()).To(BeTrue())
		Expect(lanes.TryAcquire()).To(BeFalse())

		lanes.Release()
		Expect(lanes.TryAcquire()).To(BeTrue())
	})

	It("lets Acquire succeed again once a lane is released", func() {
		lanes := sched.NewLaneSet("PROPAGATORS", 1)
		Expect(lanes.Acquire(context.Background())).To(Succeed())

		lanes.Release()
		Expect(lanes.Acquire(context.Background())).To(Succeed())
	})
})
