package geocache_test

import (
	"code.cloudfoundry.org/cdnbroker/brokertypes"
	"code.cloudfoundry.org/cdnbroker/geocache"
	"code.cloudfoundry.org/cdnbroker/scenario"
	"code.cloudfoundry.org/workpool"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("GeoCache", func() {
	var (
		snapshot *scenario.Snapshot
		cache    *geocache.GeoCache
	)

	newYork := brokertypes.Coordinate{Lat: 40.71, Lon: -74.01}
	philadelphia := brokertypes.Coordinate{Lat: 39.95, Lon: -75.17}
	boston := brokertypes.Coordinate{Lat: 42.36, Lon: -71.06}
	chicago := brokertypes.Coordinate{Lat: 41.88, Lon: -87.63}

	BeforeEach(func() {
		snapshot = scenario.NewSnapshot(
			[]brokertypes.ClientLocation{
				{
					ID:         "L1",
					Coordinate: newYork,
					Regression: brokertypes.Regression{Slope: 0.1, Intercept: 5},
					Observations: []brokertypes.Observation{
						{Cluster: "NYC", Score: 3, Rate: 8},
						{Cluster: "PHL", Score: 0, Rate: 2},
						{Cluster: "CHI", Score: 40, Rate: 1},
					},
				},
				{
					ID:         "L2",
					Coordinate: chicago,
					Regression: brokertypes.Regression{Slope: -1, Intercept: 0},
				},
			},
			[]brokertypes.Cluster{
				{ID: "NYC", Coordinate: newYork},
				{ID: "NYC-2", Coordinate: newYork},
				{ID: "PHL", Coordinate: philadelphia},
				{ID: "BOS", Coordinate: boston},
				{ID: "CHI", Coordinate: chicago},
			},
			[]brokertypes.CDN{
				{ID: "A", Clusters: []string{"NYC", "PHL", "BOS"}},
				{ID: "B", Clusters: []string{"NYC-2", "CHI"}},
				{ID: "empty"},
			},
			nil,
		)
		cache = geocache.New(snapshot)
	})

	Describe("Distance", func() {
		It("is roughly the great-circle distance in miles", func() {
			Ω(geocache.Distance(newYork, philadelphia)).Should(BeNumerically("~", 81, 3))
			Ω(geocache.Distance(newYork, chicago)).Should(BeNumerically("~", 712, 10))
			Ω(geocache.Distance(newYork, newYork)).Should(BeZero())
		})
	})

	Describe("NearbyClusters", func() {
		It("lists other clusters within the radius, closest first", func() {
			neighbors := cache.NearbyClusters("NYC")
			Ω(neighbors).Should(HaveLen(3))
			Ω(neighbors[0]).Should(Equal(geocache.Neighbor{Cluster: "NYC-2", Distance: geocache.MinDistance}))
			Ω(neighbors[1].Cluster).Should(Equal("PHL"))
			Ω(neighbors[2].Cluster).Should(Equal("BOS"))
		})

		It("never lists the cluster itself", func() {
			for _, n := range cache.NearbyClusters("NYC-2") {
				Ω(n.Cluster).ShouldNot(Equal("NYC-2"))
			}
			Ω(cache.NearbyClusters("NYC-2")[0].Cluster).Should(Equal("NYC"))
		})

		It("returns nothing for an isolated cluster", func() {
			Ω(cache.NearbyClusters("CHI")).Should(BeEmpty())
		})

		It("returns nothing for an unknown cluster", func() {
			Ω(cache.NearbyClusters("nope")).Should(BeNil())
		})

		It("computes each coordinate once", func() {
			first := cache.NearbyClusters("NYC")
			Ω(cache.NearbyClusters("NYC")).Should(Equal(first))
			cache.NearbyClusters("NYC-2")

			nearby, _ := cache.Computations()
			Ω(nearby).Should(Equal(1))
		})
	})

	Describe("FallbackRanking", func() {
		It("merges observed and regressed scores for the CDN's clusters", func() {
			ranking := cache.FallbackRanking("A", "L1")
			Ω(ranking).Should(HaveLen(3))

			Ω(ranking[0]).Should(Equal(geocache.Candidate{Cluster: "PHL", Score: geocache.MinScore, Rate: 2, Observed: true}))
			Ω(ranking[1]).Should(Equal(geocache.Candidate{Cluster: "NYC", Score: 3, Rate: 8, Observed: true}))

			Ω(ranking[2].Cluster).Should(Equal("BOS"))
			Ω(ranking[2].Observed).Should(BeFalse())
			Ω(ranking[2].Rate).Should(BeZero())
			Ω(ranking[2].Score).Should(BeNumerically("~", 0.1*geocache.Distance(newYork, boston)+5, 1e-9))
		})

		It("floors regressed scores", func() {
			ranking := cache.FallbackRanking("B", "L2")
			Ω(ranking).Should(HaveLen(2))
			for _, c := range ranking {
				Ω(c.Score).Should(Equal(geocache.MinScore))
			}
		})

		It("ignores observations of other CDNs' clusters", func() {
			ranking := cache.FallbackRanking("B", "L1")
			clusters := []string{}
			for _, c := range ranking {
				clusters = append(clusters, c.Cluster)
			}
			Ω(clusters).Should(ConsistOf("CHI", "NYC-2"))
		})

		It("is empty for a CDN without clusters", func() {
			Ω(cache.FallbackRanking("empty", "L1")).Should(BeEmpty())
			Ω(cache.FallbackRanking("unknown", "L1")).Should(BeEmpty())
		})

		It("serves repeated calls from the cache", func() {
			first := cache.FallbackRanking("A", "L1")
			Ω(cache.FallbackRanking("A", "L1")).Should(Equal(first))

			_, rankings := cache.Computations()
			Ω(rankings).Should(Equal(1))
		})
	})

	Describe("Precompute", func() {
		var workPool *workpool.WorkPool

		BeforeEach(func() {
			var err error
			workPool, err = workpool.NewWorkPool(4)
			Ω(err).ShouldNot(HaveOccurred())
		})

		AfterEach(func() {
			workPool.Stop()
		})

		It("fills the cache so later lookups do not recompute", func() {
			cache.Precompute(logger, workPool)

			nearby, rankings := cache.Computations()
			Ω(nearby).Should(Equal(4))
			Ω(rankings).Should(Equal(6))

			cache.NearbyClusters("NYC")
			cache.NearbyClusters("CHI")
			cache.FallbackRanking("A", "L1")
			cache.FallbackRanking("empty", "L2")

			nearbyAfter, rankingsAfter := cache.Computations()
			Ω(nearbyAfter).Should(Equal(nearby))
			Ω(rankingsAfter).Should(Equal(rankings))
		})

		It("agrees with lazily computed results", func() {
			lazy := geocache.New(snapshot)
			cache.Precompute(logger, workPool)

			Ω(cache.NearbyClusters("PHL")).Should(Equal(lazy.NearbyClusters("PHL")))
			Ω(cache.FallbackRanking("A", "L1")).Should(Equal(lazy.FallbackRanking("A", "L1")))
		})
	})
})
