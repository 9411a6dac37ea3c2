package bidgenerator

import (
	"sort"

	"code.cloudfoundry.org/cdnbroker/brokertypes"
	"code.cloudfoundry.org/cdnbroker/policy"
)

type bidRef struct {
	location string
	index    int
	total    float64
}

// exposePrices rewrites the disclosed cost pair of every bid according to
// mode. Bids are ranked by true total cost across all locations first.
func exposePrices(mode policy.ExposureMode, bids brokertypes.Bids, order []string, standardPrice float64) {
	refs := []bidRef{}
	for _, location := range order {
		for i, bid := range bids[location] {
			refs = append(refs, bidRef{location: location, index: i, total: bid.Price()})
		}
	}
	if len(refs) == 0 {
		return
	}

	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].total < refs[j].total
	})

	// the mean rank of 0..n-1
	meanRank := float64(len(refs)-1) / 2

	// A single average of total cost normalizes both disclosed fields.
	averageCost := 0.0
	for _, ref := range refs {
		averageCost += ref.total
	}
	averageCost /= float64(len(refs))

	for rank, ref := range refs {
		bid := &bids[ref.location][ref.index]

		switch mode {
		case policy.ExposeNothing:
			bid.BandwidthCost = standardPrice
			bid.ColocationCost = standardPrice
		case policy.ExposeOpaque:
			position := 1.0
			if meanRank > 0 {
				position = float64(rank) / meanRank
			}
			bid.BandwidthCost = 0.5 * position * standardPrice
			bid.ColocationCost = 0.5 * position * standardPrice
		case policy.ExposeRelative:
			if averageCost == 0 {
				bid.BandwidthCost = 0
				bid.ColocationCost = 0
				continue
			}
			bid.BandwidthCost = bid.BandwidthCost / averageCost * standardPrice
			bid.ColocationCost = bid.ColocationCost / averageCost * standardPrice
		}
	}
}
