// Package geocache memoizes the geometry-derived lookups used while
// generating bids: which clusters sit close to one another, and how each
// CDN's clusters rank for a client location once unseen clusters are given a
// distance-regressed score.
//
// Topology is static for the lifetime of a process, so entries are never
// evicted.
package geocache

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"code.cloudfoundry.org/cdnbroker/brokertypes"
	"code.cloudfoundry.org/cdnbroker/scenario"
	"code.cloudfoundry.org/lager/v3"
	"code.cloudfoundry.org/workpool"
)

const (
	// ProximityRadius, in miles.
	ProximityRadius = 200.0
	MinDistance     = 0.1
	MinScore        = 0.01

	earthRadiusMiles = 3958.8
)

type Neighbor struct {
	Cluster  string
	Distance float64
}

// Candidate is a cluster ranked for a location. Observed is false when the
// score was derived from the location's regression.
type Candidate struct {
	Cluster  string
	Score    float64
	Rate     float64
	Observed bool
}

type rankingKey struct {
	cdn      string
	location string
}

type GeoCache struct {
	snapshot *scenario.Snapshot

	lock     *sync.RWMutex
	nearby   map[brokertypes.Coordinate][]Neighbor
	rankings map[rankingKey][]Candidate

	nearbyComputations  int64
	rankingComputations int64
}

func New(snapshot *scenario.Snapshot) *GeoCache {
	return &GeoCache{
		snapshot: snapshot,
		lock:     &sync.RWMutex{},
		nearby:   map[brokertypes.Coordinate][]Neighbor{},
		rankings: map[rankingKey][]Candidate{},
	}
}

// NearbyClusters lists the other clusters within ProximityRadius of the
// given cluster, closest first. Lists are memoized by coordinate.
func (g *GeoCache) NearbyClusters(clusterID string) []Neighbor {
	cluster, ok := g.snapshot.Cluster(clusterID)
	if !ok {
		return nil
	}

	g.lock.RLock()
	neighbors, ok := g.nearby[cluster.Coordinate]
	g.lock.RUnlock()

	if !ok {
		neighbors = g.computeNearby(cluster.Coordinate)
		g.lock.Lock()
		if existing, found := g.nearby[cluster.Coordinate]; found {
			neighbors = existing
		} else {
			g.nearby[cluster.Coordinate] = neighbors
		}
		g.lock.Unlock()
	}

	return excluding(neighbors, clusterID)
}

// FallbackRanking ranks every cluster owned by cdn for the location,
// ascending by score. The returned slice is shared and must not be modified.
func (g *GeoCache) FallbackRanking(cdn, location string) []Candidate {
	key := rankingKey{cdn: cdn, location: location}

	g.lock.RLock()
	ranking, ok := g.rankings[key]
	g.lock.RUnlock()
	if ok {
		return ranking
	}

	ranking = g.computeRanking(key)
	g.lock.Lock()
	if existing, found := g.rankings[key]; found {
		ranking = existing
	} else {
		g.rankings[key] = ranking
	}
	g.lock.Unlock()

	return ranking
}

// Computations reports how many neighbor lists and rankings were computed
// rather than served from the cache.
func (g *GeoCache) Computations() (nearby int, rankings int) {
	return int(atomic.LoadInt64(&g.nearbyComputations)), int(atomic.LoadInt64(&g.rankingComputations))
}

// Precompute fills the cache for every cluster coordinate and every
// (cdn, location) pair. Each unit of work writes only its own slot; results
// are gathered into the cache once all units finish.
func (g *GeoCache) Precompute(logger lager.Logger, workPool *workpool.WorkPool) {
	logger = logger.Session("precompute")
	logger.Info("starting")
	defer logger.Info("finished")

	coordinates := []brokertypes.Coordinate{}
	seen := map[brokertypes.Coordinate]bool{}
	for _, cluster := range g.snapshot.Clusters {
		if seen[cluster.Coordinate] {
			continue
		}
		seen[cluster.Coordinate] = true
		coordinates = append(coordinates, cluster.Coordinate)
	}

	keys := make([]rankingKey, 0, len(g.snapshot.CDNs)*len(g.snapshot.Locations))
	for _, location := range g.snapshot.Locations {
		for _, cdn := range g.snapshot.CDNs {
			keys = append(keys, rankingKey{cdn: cdn.ID, location: location.ID})
		}
	}

	neighborLists := make([][]Neighbor, len(coordinates))
	rankings := make([][]Candidate, len(keys))

	wg := &sync.WaitGroup{}
	wg.Add(len(coordinates) + len(keys))

	for i, coordinate := range coordinates {
		i, coordinate := i, coordinate
		workPool.Submit(func() {
			defer wg.Done()
			neighborLists[i] = g.computeNearby(coordinate)
		})
	}

	for i, key := range keys {
		i, key := i, key
		workPool.Submit(func() {
			defer wg.Done()
			rankings[i] = g.computeRanking(key)
		})
	}

	wg.Wait()

	g.lock.Lock()
	for i, coordinate := range coordinates {
		g.nearby[coordinate] = neighborLists[i]
	}
	for i, key := range keys {
		g.rankings[key] = rankings[i]
	}
	g.lock.Unlock()

	logger.Debug("cached", lager.Data{"coordinates": len(coordinates), "rankings": len(keys)})
}

func (g *GeoCache) computeNearby(from brokertypes.Coordinate) []Neighbor {
	atomic.AddInt64(&g.nearbyComputations, 1)

	neighbors := []Neighbor{}
	for _, other := range g.snapshot.Clusters {
		d := Distance(from, other.Coordinate)
		if d < ProximityRadius {
			neighbors = append(neighbors, Neighbor{Cluster: other.ID, Distance: math.Max(d, MinDistance)})
		}
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		if neighbors[i].Distance == neighbors[j].Distance {
			return neighbors[i].Cluster < neighbors[j].Cluster
		}
		return neighbors[i].Distance < neighbors[j].Distance
	})
	return neighbors
}

func (g *GeoCache) computeRanking(key rankingKey) []Candidate {
	atomic.AddInt64(&g.rankingComputations, 1)

	location, ok := g.snapshot.Location(key.location)
	cdn, cdnOK := g.snapshot.CDN(key.cdn)
	if !ok || !cdnOK {
		return []Candidate{}
	}

	ranking := []Candidate{}
	observed := map[string]bool{}
	for _, o := range location.Observations {
		observed[o.Cluster] = true
		if !g.snapshot.Owns(cdn.ID, o.Cluster) {
			continue
		}
		ranking = append(ranking, Candidate{
			Cluster:  o.Cluster,
			Score:    math.Max(MinScore, o.Score),
			Rate:     o.Rate,
			Observed: true,
		})
	}

	for _, clusterID := range cdn.Clusters {
		if observed[clusterID] {
			continue
		}
		cluster, ok := g.snapshot.Cluster(clusterID)
		if !ok {
			continue
		}
		ranking = append(ranking, Candidate{
			Cluster: clusterID,
			Score:   RegressionScore(location, cluster),
		})
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Score < ranking[j].Score
	})
	return ranking
}

// RegressionScore estimates a quality score for a location/cluster pair from
// the location's distance regression.
func RegressionScore(location brokertypes.ClientLocation, cluster brokertypes.Cluster) float64 {
	d := Distance(location.Coordinate, cluster.Coordinate)
	return math.Max(MinScore, location.Regression.Slope*d+location.Regression.Intercept)
}

// Distance is the great-circle distance between two coordinates, in miles.
func Distance(a, b brokertypes.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(h)))
}

func excluding(neighbors []Neighbor, clusterID string) []Neighbor {
	result := make([]Neighbor, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Cluster != clusterID {
			result = append(result, n)
		}
	}
	return result
}
