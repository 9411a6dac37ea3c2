// Package simulation builds synthetic broker scenarios for demos and load
// tests.
package simulation

import (
	"code.cloudfoundry.org/cdnbroker/brokertypes"
	"code.cloudfoundry.org/cdnbroker/geocache"
	"code.cloudfoundry.org/cdnbroker/scenario"
	"code.cloudfoundry.org/cdnbroker/util"
)

// continental US
const (
	minLat = 25.0
	maxLat = 49.0
	minLon = -124.0
	maxLon = -67.0
)

// linkDownOdds is the one-in-n chance an observation reports its link down.
const linkDownOdds = 50

type Config struct {
	Seed                    int64
	NumCDNs                 int
	ClustersPerCDN          int
	NumLocations            int
	ObservationsPerLocation int
	NumRequests             int
}

var DefaultConfig = Config{
	Seed:                    1,
	NumCDNs:                 3,
	ClustersPerCDN:          5,
	NumLocations:            20,
	ObservationsPerLocation: 6,
	NumRequests:             50,
}

func NewScenario(config Config) *scenario.Snapshot {
	random := util.NewRandom(config.Seed)

	clusters := []brokertypes.Cluster{}
	cdns := []brokertypes.CDN{}
	for i := 0; i < config.NumCDNs; i++ {
		cdn := brokertypes.CDN{
			ID:         random.NewGuid("cdn"),
			Capacities: map[string]float64{},
		}
		if random.IntIn(0, 1) == 1 {
			cdn.StandardPrice = random.FloatIn(1, 5)
		}

		capacities := []float64{}
		for j := 0; j < config.ClustersPerCDN; j++ {
			cluster := brokertypes.Cluster{
				ID:             random.NewGuid("cluster"),
				Coordinate:     randomCoordinate(random),
				BandwidthCost:  random.FloatIn(0.5, 3),
				ColocationCost: random.FloatIn(0.5, 3),
			}
			capacity := random.FloatIn(500, 5000)

			clusters = append(clusters, cluster)
			cdn.Clusters = append(cdn.Clusters, cluster.ID)
			cdn.Capacities[cluster.ID] = capacity
			capacities = append(capacities, capacity)
		}
		cdn.MedianCapacity = scenario.Median(capacities)
		cdns = append(cdns, cdn)
	}

	locations := make([]brokertypes.ClientLocation, 0, config.NumLocations)
	for i := 0; i < config.NumLocations; i++ {
		location := brokertypes.ClientLocation{
			ID:         random.NewGuid("loc"),
			Coordinate: randomCoordinate(random),
			Regression: brokertypes.Regression{
				Slope:     random.FloatIn(0.01, 0.05),
				Intercept: random.FloatIn(5, 20),
			},
		}

		for _, index := range random.Pick(config.ObservationsPerLocation, len(clusters)) {
			score := geocache.RegressionScore(location, clusters[index]) * random.FloatIn(0.8, 1.2)
			if random.IntIn(1, linkDownOdds) == 1 {
				score = brokertypes.LinkDownScore
			}
			location.Observations = append(location.Observations, brokertypes.Observation{
				Cluster: clusters[index].ID,
				Score:   score,
				Rate:    random.FloatIn(1, 10),
			})
		}
		locations = append(locations, location)
	}

	requests := make([]brokertypes.Request, 0, config.NumRequests)
	for i := 0; i < config.NumRequests && len(locations) > 0; i++ {
		requests = append(requests, brokertypes.Request{
			ID:       random.NewGuid("req"),
			Location: locations[random.IntIn(0, len(locations)-1)].ID,
			Bitrate:  random.FloatIn(0.5, 8),
		})
	}

	return scenario.NewSnapshot(locations, clusters, cdns, requests)
}

func randomCoordinate(random *util.Random) brokertypes.Coordinate {
	return brokertypes.Coordinate{
		Lat: random.FloatIn(minLat, maxLat),
		Lon: random.FloatIn(minLon, maxLon),
	}
}
