package sched_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/satx/sched"
)

var _ = Describe("LockSet", func() {
	It("lets a second worker acquire a key only after the holder unlocks", func() {
		locks := sched.NewLockSet()
		Expect(locks.TryLock(7, 1)).To(BeTrue())
		Expect(locks.TryLock(7, 2)).To(BeFalse())

		locks.Unlock(7, 1)
		Expect(locks.TryLock(7, 2)).To(BeTrue())
	})

	It("re-enters for the same worker", func() {
		locks := sched.NewLockSet()
		Expect(locks.TryLock(1, 5)).To(BeTrue())
		Expect(locks.TryLock(1, 5)).To(BeTrue())
	})

	It("spin-yields a contending worker until the key frees", func() {
		locks := sched.NewLockSet()
		locks.TryLock(9, 1)

		var acquired bool
		s := sched.NewScheduler(1)
		s.Submit(func(id int) *sched.Worker {
			return sched.Spawn(id, func(w *sched.Worker, y *sched.Yielder) {
				locks.Lock(9, id, w, y)
				acquired = true
			})
		})

		s.Tick()
		Expect(acquired).To(BeFalse())

		locks.Unlock(9, 1)
		s.Tick()
		Expect(acquired).To(BeTrue())
	})
})
