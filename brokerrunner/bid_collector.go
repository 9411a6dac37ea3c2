package brokerrunner

import (
	"sync"

	"code.cloudfoundry.org/cdnbroker/bidgenerator"
	"code.cloudfoundry.org/cdnbroker/brokertypes"
	"code.cloudfoundry.org/cdnbroker/geocache"
	"code.cloudfoundry.org/cdnbroker/policy"
	"code.cloudfoundry.org/cdnbroker/scenario"
	"code.cloudfoundry.org/lager/v3"
	"code.cloudfoundry.org/workpool"
)

/*
CollectAllBids asks every CDN in the snapshot for its bids in parallel and
merges them per location. Each CDN's bids land in their own slot and are
concatenated in snapshot CDN order, so the merged lists do not depend on
which worker finished first.
*/
func CollectAllBids(
	logger lager.Logger,
	workPool *workpool.WorkPool,
	snapshot *scenario.Snapshot,
	cache *geocache.GeoCache,
	p policy.Policy,
) brokertypes.Bids {
	logger = logger.Session("collect-bids")
	generator := bidgenerator.New(logger, snapshot, cache, p)

	perCDN := make([]brokertypes.Bids, len(snapshot.CDNs))
	wg := &sync.WaitGroup{}
	wg.Add(len(snapshot.CDNs))
	for i, cdn := range snapshot.CDNs {
		i, cdnID := i, cdn.ID
		workPool.Submit(func() {
			defer wg.Done()
			perCDN[i] = generator.GenerateBids(cdnID)
		})
	}
	wg.Wait()

	merged := brokertypes.Bids{}
	for _, location := range snapshot.Locations {
		for _, bids := range perCDN {
			if locationBids, ok := bids[location.ID]; ok {
				merged[location.ID] = append(merged[location.ID], locationBids...)
			}
		}
	}

	logger.Info("collected", lager.Data{"cdns": len(snapshot.CDNs), "locations": len(merged), "bids": merged.Count()})
	return merged
}
