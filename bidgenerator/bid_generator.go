package bidgenerator

import (
	"sort"

	"code.cloudfoundry.org/cdnbroker/brokertypes"
	"code.cloudfoundry.org/cdnbroker/geocache"
	"code.cloudfoundry.org/cdnbroker/policy"
	"code.cloudfoundry.org/cdnbroker/scenario"
	"code.cloudfoundry.org/lager/v3"
)

const (
	// clusters scoring within scoreCapMultiplier of the best make the short list
	scoreCapMultiplier = 2.0
	minShortList       = 2
	fallbackChoices    = 3
)

type Generator struct {
	logger   lager.Logger
	snapshot *scenario.Snapshot
	cache    *geocache.GeoCache
	policy   policy.Policy
}

func New(logger lager.Logger, snapshot *scenario.Snapshot, cache *geocache.GeoCache, p policy.Policy) *Generator {
	return &Generator{
		logger:   logger,
		snapshot: snapshot,
		cache:    cache,
		policy:   p,
	}
}

type candidate struct {
	cluster string
	score   float64
	rate    float64
	cost    float64
}

// GenerateBids produces the CDN's bids for every client location it has
// usable measurements for. Locations it cannot serve are absent from the
// result.
func (g *Generator) GenerateBids(cdnID string) brokertypes.Bids {
	logger := g.logger.Session("generate-bids", lager.Data{"cdn": cdnID})

	bids := brokertypes.Bids{}
	cdn, ok := g.snapshot.CDN(cdnID)
	if !ok || len(cdn.Clusters) == 0 {
		logger.Debug("no-clusters")
		return bids
	}

	order := []string{}
	for _, location := range g.snapshot.Locations {
		candidates := g.selectCandidates(cdnID, location)
		if len(candidates) == 0 {
			continue
		}

		locationBids := make([]brokertypes.Bid, 0, len(candidates))
		for _, c := range candidates {
			cluster, _ := g.snapshot.Cluster(c.cluster)
			locationBids = append(locationBids, brokertypes.Bid{
				CDN:            cdnID,
				Cluster:        c.cluster,
				Score:          c.score,
				Capacity:       g.exposedCapacity(cdnID, c),
				BandwidthCost:  cluster.BandwidthCost,
				ColocationCost: cluster.ColocationCost,
				Rate:           c.rate,
			})
		}

		bids[location.ID] = locationBids
		order = append(order, location.ID)
	}

	standardPrice, configured := cdn.ListPrice()
	if !configured {
		standardPrice = 1
	}
	exposePrices(g.policy.PriceExposureMode, bids, order, standardPrice)

	logger.Debug("generated", lager.Data{"locations": len(bids), "bids": bids.Count()})
	return bids
}

func (g *Generator) selectCandidates(cdnID string, location brokertypes.ClientLocation) []candidate {
	filtered := []candidate{}
	for _, o := range location.Observations {
		if o.Score == 0 || !g.snapshot.Owns(cdnID, o.Cluster) {
			continue
		}
		filtered = append(filtered, g.newCandidate(o.Cluster, o.Score, o.Rate))
	}
	if len(filtered) == 0 {
		return nil
	}

	var selected []candidate
	if g.policy.ExhaustiveDisclosure {
		for _, c := range g.cache.FallbackRanking(cdnID, location.ID) {
			selected = append(selected, g.newCandidate(c.Cluster, c.Score, c.Rate))
		}
	} else {
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].score < filtered[j].score
		})

		limit := filtered[0].score * scoreCapMultiplier
		for _, c := range filtered {
			if c.score <= limit {
				selected = append(selected, c)
			}
		}

		if len(selected) < minShortList {
			n := fallbackChoices
			if n > len(filtered) {
				n = len(filtered)
			}
			selected = append([]candidate{}, filtered[:n]...)
		}

		sort.SliceStable(selected, func(i, j int) bool {
			return selected[i].cost < selected[j].cost
		})
	}

	if !g.policy.Unlimited() && len(selected) > g.policy.BidCount {
		selected = selected[:g.policy.BidCount]
	}
	return selected
}

func (g *Generator) newCandidate(clusterID string, score, rate float64) candidate {
	cluster, _ := g.snapshot.Cluster(clusterID)
	return candidate{
		cluster: clusterID,
		score:   score,
		rate:    rate,
		cost:    cluster.TotalCost(),
	}
}

func (g *Generator) exposedCapacity(cdnID string, c candidate) float64 {
	if c.score == 0 || c.score == brokertypes.LinkDownScore {
		return 0
	}

	capacity := g.snapshot.Capacity(cdnID, c.cluster)
	if g.policy.ExposeCapacityToClient {
		capacity *= g.policy.SafetyMargin
	} else {
		capacity *= g.policy.BackgroundTrafficFraction
	}

	if capacity < 0 {
		return 0
	}
	return capacity
}
