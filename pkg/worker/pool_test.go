package worker

import (
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Pool", func() {
	Describe("Submit", func() {
		It("returns true when the queue has capacity", func() {
			p, err := NewPool(&Config{})
			Expect(err).NotTo(HaveOccurred())

			var ran atomic.Bool
			ok := p.Submit(func() { ran.Store(true) })
			Expect(ok).To(BeTrue())

			p.Close()
			Expect(ran.Load()).To(BeTrue())
		})

		It("rejects nil jobs", func() {
			p, err := NewPool(&Config{})
			Expect(err).NotTo(HaveOccurred())
			defer p.Close()

			Expect(p.Submit(nil)).To(BeFalse())
		})

		It("drops jobs when the queue is full", func() {
			p, err := NewPool(&Config{NumWorkers: 1, QueueSize: 1})
			Expect(err).NotTo(HaveOccurred())

			started := make(chan struct{})
			release := make(chan struct{})

			// Occupy the single worker until released.
			Expect(p.Submit(func() {
				close(started)
				<-release
			})).To(BeTrue())
			<-started

			// Fill the queue, then overflow it.
			Expect(p.Submit(func() {})).To(BeTrue())
			Expect(p.Submit(func() {})).To(BeFalse())

			close(release)
			p.Close()
		})
	})

	Describe("Close", func() {
		It("drains queued jobs before returning", func() {
			p, err := NewPool(&Config{NumWorkers: 2, QueueSize: 64})
			Expect(err).NotTo(HaveOccurred())

			var done atomic.Int32
			for range 50 {
				Expect(p.Submit(func() { done.Add(1) })).To(BeTrue())
			}

			p.Close()
			Expect(done.Load()).To(Equal(int32(50)))
		})
	})

	Describe("NewPool", func() {
		It("applies worker and queue defaults", func() {
			p, err := NewPool(&Config{})
			Expect(err).NotTo(HaveOccurred())
			defer p.Close()

			Expect(cap(p.queue)).To(Equal(int(defaultJobQueueSize)))
		})
	})
})
