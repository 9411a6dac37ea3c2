package bidgenerator_test

import (
	"code.cloudfoundry.org/cdnbroker/bidgenerator"
	"code.cloudfoundry.org/cdnbroker/brokertypes"
	"code.cloudfoundry.org/cdnbroker/geocache"
	"code.cloudfoundry.org/cdnbroker/policy"
	"code.cloudfoundry.org/cdnbroker/scenario"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func clustersOf(bids []brokertypes.Bid) []string {
	clusters := []string{}
	for _, bid := range bids {
		clusters = append(clusters, bid.Cluster)
	}
	return clusters
}

func mustPolicy(method string) policy.Policy {
	p, err := policy.ForMethod(method)
	Ω(err).ShouldNot(HaveOccurred())
	return p
}

var _ = Describe("Generator", func() {
	var (
		snapshot *scenario.Snapshot
		p        policy.Policy
		bids     brokertypes.Bids
		cdn      string
	)

	BeforeEach(func() {
		snapshot = scenario.NewSnapshot(
			[]brokertypes.ClientLocation{
				{
					ID: "L1",
					Observations: []brokertypes.Observation{
						{Cluster: "C1", Score: 10, Rate: 5},
						{Cluster: "C2", Score: 15, Rate: 3},
						{Cluster: "C3", Score: 30, Rate: 1},
						{Cluster: "C4", Score: 0, Rate: 9},
						{Cluster: "C5", Score: 12, Rate: 2},
					},
				},
				{
					ID: "L2",
					Observations: []brokertypes.Observation{
						{Cluster: "C1", Score: 5},
						{Cluster: "C3", Score: 50},
						{Cluster: "C2", Score: 80},
					},
				},
				{
					ID: "L3",
					Observations: []brokertypes.Observation{
						{Cluster: "C4", Score: 0},
					},
				},
				{
					ID: "L4",
					Observations: []brokertypes.Observation{
						{Cluster: "C1", Score: brokertypes.LinkDownScore},
					},
				},
			},
			[]brokertypes.Cluster{
				{ID: "C1", BandwidthCost: 4, ColocationCost: 4},
				{ID: "C2", BandwidthCost: 1, ColocationCost: 1},
				{ID: "C3", BandwidthCost: 2, ColocationCost: 1},
				{ID: "C4", BandwidthCost: 0.5, ColocationCost: 0.5},
				{ID: "C5", BandwidthCost: 3, ColocationCost: 3},
			},
			[]brokertypes.CDN{
				{
					ID:            "A",
					Clusters:      []string{"C1", "C2", "C3", "C4"},
					Capacities:    map[string]float64{"C1": 100, "C2": 50, "C3": 10, "C4": 200},
					StandardPrice: 2.5,
				},
				{
					ID:         "B",
					Clusters:   []string{"C5"},
					Capacities: map[string]float64{"C5": 80},
				},
				{ID: "empty"},
			},
			nil,
		)

		p = mustPolicy("Exchange")
		cdn = "A"
	})

	JustBeforeEach(func() {
		generator := bidgenerator.New(logger, snapshot, geocache.New(snapshot), p)
		bids = generator.GenerateBids(cdn)
	})

	Describe("candidate selection", func() {
		It("keeps the clusters scoring within twice the best, cheapest first", func() {
			Ω(clustersOf(bids["L1"])).Should(Equal([]string{"C2", "C1"}))
		})

		It("falls back to the best three by score when the short list is too short", func() {
			Ω(clustersOf(bids["L2"])).Should(Equal([]string{"C2", "C3", "C1"}))
		})

		It("offers nothing for a location whose only links are down", func() {
			Ω(bids).ShouldNot(HaveKey("L3"))
		})

		It("carries the historical rate and score", func() {
			Ω(bids["L1"][1].Score).Should(Equal(10.0))
			Ω(bids["L1"][1].Rate).Should(Equal(5.0))
			Ω(bids["L1"][1].CDN).Should(Equal("A"))
		})

		It("bounds every list by the bid count", func() {
			for _, locationBids := range bids {
				Ω(len(locationBids)).Should(BeNumerically("<=", p.BidCount))
				Ω(locationBids).ShouldNot(BeEmpty())
			}
		})

		Context("with a single bid per location", func() {
			BeforeEach(func() {
				p = mustPolicy("Brokered")
			})

			It("offers only the cheapest short-listed cluster", func() {
				Ω(clustersOf(bids["L1"])).Should(Equal([]string{"C2"}))
				Ω(clustersOf(bids["L2"])).Should(Equal([]string{"C2"}))
			})
		})

		Context("with exhaustive disclosure", func() {
			BeforeEach(func() {
				p = mustPolicy("Optimal")
			})

			It("offers the full fallback ranking", func() {
				Ω(clustersOf(bids["L1"])).Should(Equal([]string{"C4", "C1", "C2", "C3"}))
				Ω(bids["L1"][0].Score).Should(Equal(geocache.MinScore))
			})

			It("still requires a live measurement", func() {
				Ω(bids).ShouldNot(HaveKey("L3"))
			})
		})

		Context("for another CDN", func() {
			BeforeEach(func() {
				cdn = "B"
			})

			It("only bids its own clusters", func() {
				Ω(bids).Should(HaveLen(1))
				Ω(clustersOf(bids["L1"])).Should(Equal([]string{"C5"}))
			})
		})

		Context("for a CDN owning no clusters", func() {
			BeforeEach(func() {
				cdn = "empty"
			})

			It("returns no bids for any location", func() {
				Ω(bids).Should(BeEmpty())
			})
		})

		Context("for an unknown CDN", func() {
			BeforeEach(func() {
				cdn = "unknown"
			})

			It("returns no bids", func() {
				Ω(bids).Should(BeEmpty())
			})
		})

		Context("with no client locations", func() {
			BeforeEach(func() {
				snapshot = scenario.NewSnapshot(nil, snapshot.Clusters, snapshot.CDNs, nil)
			})

			It("returns no bids", func() {
				Ω(bids).Should(BeEmpty())
			})
		})
	})

	Describe("exposed capacity", func() {
		It("applies the safety margin when capacities are exposed to clients", func() {
			Ω(bids["L1"][0].Capacity).Should(BeNumerically("~", 35, 1e-9))
			Ω(bids["L1"][1].Capacity).Should(BeNumerically("~", 70, 1e-9))
		})

		It("exposes nothing on a link marked down", func() {
			Ω(bids["L4"]).Should(HaveLen(1))
			Ω(bids["L4"][0].Capacity).Should(BeZero())
		})

		It("is never negative and is zero on down links", func() {
			for _, locationBids := range bids {
				for _, bid := range locationBids {
					Ω(bid.Capacity).Should(BeNumerically(">=", 0))
					if bid.LinkDown() {
						Ω(bid.Capacity).Should(BeZero())
					}
				}
			}
		})

		Context("when capacities are not exposed to clients", func() {
			BeforeEach(func() {
				p = mustPolicy("BestPhonebook")
			})

			It("exposes the background traffic fraction", func() {
				Ω(bids["L1"][1].Cluster).Should(Equal("C1"))
				Ω(bids["L1"][1].Capacity).Should(BeNumerically("~", 4, 1e-9))
			})
		})
	})

	Describe("price exposure", func() {
		It("discloses true costs in FULL mode", func() {
			for _, locationBids := range bids {
				for _, bid := range locationBids {
					cluster, _ := snapshot.Cluster(bid.Cluster)
					Ω(bid.BandwidthCost).Should(Equal(cluster.BandwidthCost))
					Ω(bid.ColocationCost).Should(Equal(cluster.ColocationCost))
				}
			}
		})

		Context("in NOTHING mode", func() {
			BeforeEach(func() {
				p.PriceExposureMode = policy.ExposeNothing
			})

			It("discloses the standard price for every bid", func() {
				for _, locationBids := range bids {
					for _, bid := range locationBids {
						Ω(bid.BandwidthCost).Should(Equal(2.5))
						Ω(bid.ColocationCost).Should(Equal(2.5))
					}
				}
			})

			Context("for a CDN without a standard price", func() {
				BeforeEach(func() {
					cdn = "B"
				})

				It("discloses a price of one", func() {
					Ω(bids["L1"][0].BandwidthCost).Should(Equal(1.0))
					Ω(bids["L1"][0].ColocationCost).Should(Equal(1.0))
				})
			})
		})

		Context("in OPAQUE mode", func() {
			BeforeEach(func() {
				p.PriceExposureMode = policy.ExposeOpaque
			})

			It("prices each bid by its cost rank relative to the mean rank", func() {
				Ω(bids["L1"][0].BandwidthCost).Should(BeNumerically("~", 0, 1e-9))
				Ω(bids["L2"][0].BandwidthCost).Should(BeNumerically("~", 0.5, 1e-9))
				Ω(bids["L2"][1].BandwidthCost).Should(BeNumerically("~", 1.0, 1e-9))
				Ω(bids["L1"][1].BandwidthCost).Should(BeNumerically("~", 1.5, 1e-9))
				Ω(bids["L2"][2].BandwidthCost).Should(BeNumerically("~", 2.0, 1e-9))
				Ω(bids["L4"][0].BandwidthCost).Should(BeNumerically("~", 2.5, 1e-9))

				for _, locationBids := range bids {
					for _, bid := range locationBids {
						Ω(bid.ColocationCost).Should(Equal(bid.BandwidthCost))
					}
				}
			})

			Context("with a single bid", func() {
				BeforeEach(func() {
					cdn = "B"
				})

				It("discloses half the standard price", func() {
					Ω(bids["L1"][0].BandwidthCost).Should(BeNumerically("~", 0.5, 1e-9))
				})
			})
		})

		Context("in RELATIVE mode", func() {
			BeforeEach(func() {
				p.PriceExposureMode = policy.ExposeRelative
			})

			It("normalizes both fields by the average total cost", func() {
				// totals: 2, 8, 2, 3, 8, 8
				averageTotal := 31.0 / 6.0

				c3 := bids["L2"][1]
				Ω(c3.Cluster).Should(Equal("C3"))
				Ω(c3.BandwidthCost).Should(BeNumerically("~", 2/averageTotal*2.5, 1e-9))
				Ω(c3.ColocationCost).Should(BeNumerically("~", 1/averageTotal*2.5, 1e-9))

				// per-field averages would be 16/6 and 15/6
				averageBandwidth := 16.0 / 6.0
				Ω(c3.BandwidthCost).ShouldNot(BeNumerically("~", 2/averageBandwidth*2.5, 1e-3))
			})
		})
	})
})
