package brokerrunner_test

import (
	"code.cloudfoundry.org/cdnbroker/brokertypes"
	. "code.cloudfoundry.org/cdnbroker/brokerrunner"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ResubmitUnserved", func() {
	const maxRetries = 2

	var (
		batch   *Batch
		fresh   brokertypes.Request
		retried brokertypes.Request
		spent   brokertypes.Request
		failed  []brokertypes.Request
	)

	BeforeEach(func() {
		batch = NewBatch()
		fresh = request("fresh", "L", 10)
		retried = request("retried", "L", 10)
		retried.Attempts = 1
		spent = request("spent", "L", 10)
		spent.Attempts = maxRetries

		failed = ResubmitUnserved(batch, []brokertypes.Request{fresh, retried, spent}, maxRetries)
	})

	It("resubmits requests that still have attempts left, counting this one", func() {
		drained := batch.DedupeAndDrain()
		Ω(drained).Should(HaveLen(2))
		Ω(drained[0].ID).Should(Equal("fresh"))
		Ω(drained[0].Attempts).Should(Equal(1))
		Ω(drained[1].ID).Should(Equal("retried"))
		Ω(drained[1].Attempts).Should(Equal(2))
	})

	It("returns the requests it gave up on", func() {
		Ω(failed).Should(HaveLen(1))
		Ω(failed[0].ID).Should(Equal("spent"))
		Ω(failed[0].Attempts).Should(Equal(maxRetries + 1))
	})

	Context("when nothing was unserved", func() {
		BeforeEach(func() {
			batch = NewBatch()
			failed = ResubmitUnserved(batch, nil, maxRetries)
		})

		It("does not claim to have work", func() {
			Ω(failed).Should(BeEmpty())
			Ω(batch.HasWork).ShouldNot(Receive())
		})
	})
})
