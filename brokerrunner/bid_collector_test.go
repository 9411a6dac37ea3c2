package brokerrunner_test

import (
	"code.cloudfoundry.org/cdnbroker/brokertypes"
	. "code.cloudfoundry.org/cdnbroker/brokerrunner"
	"code.cloudfoundry.org/cdnbroker/geocache"
	"code.cloudfoundry.org/cdnbroker/scenario"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
)

var _ = Describe("CollectAllBids", func() {
	var (
		snapshot *scenario.Snapshot
		bids     brokertypes.Bids
	)

	BeforeEach(func() {
		snapshot = twoCDNScenario(request("r1", "L", 10))
		bids = CollectAllBids(logger, workPool, snapshot, geocache.New(snapshot), singleBidPolicy())
	})

	It("offers one bid per CDN for the location, in CDN order", func() {
		Ω(bids).Should(HaveLen(1))
		Ω(bids["L"]).Should(HaveLen(2))
		Ω(bids["L"][0].CDN).Should(Equal("A"))
		Ω(bids["L"][0].Cluster).Should(Equal("C1"))
		Ω(bids["L"][1].CDN).Should(Equal("B"))
		Ω(bids["L"][1].Cluster).Should(Equal("C2"))
	})

	It("exposes the safety-margined capacity", func() {
		Ω(bids["L"][0].Capacity).Should(BeNumerically("~", 70, 1e-9))
	})

	It("logs the totals", func() {
		Ω(logger).Should(gbytes.Say("collected"))
	})

	It("returns the same bids however the work is scheduled", func() {
		for i := 0; i < 10; i++ {
			Ω(CollectAllBids(logger, workPool, snapshot, geocache.New(snapshot), singleBidPolicy())).Should(Equal(bids))
		}
	})

	Context("when no CDN can serve any location", func() {
		BeforeEach(func() {
			snapshot = scenario.NewSnapshot(nil, nil, []brokertypes.CDN{{ID: "empty"}}, nil)
			bids = CollectAllBids(logger, workPool, snapshot, geocache.New(snapshot), singleBidPolicy())
		})

		It("returns no bids", func() {
			Ω(bids).Should(BeEmpty())
		})
	})
})
