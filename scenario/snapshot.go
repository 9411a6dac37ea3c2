// Package scenario holds the broker's view of the world: client locations,
// CDN topology, costs, capacities and the requests pending for a round.
package scenario

import (
	"sort"

	"code.cloudfoundry.org/cdnbroker/brokertypes"
	"github.com/google/uuid"
)

// Snapshot is read-only for the duration of a clearing round. Build one with
// NewSnapshot so the lookup indexes are populated.
type Snapshot struct {
	Locations    []brokertypes.ClientLocation `json:"client_locations" yaml:"client_locations"`
	Clusters     []brokertypes.Cluster        `json:"cdn_locations" yaml:"clusters"`
	CDNs         []brokertypes.CDN            `json:"CDNs" yaml:"cdns"`
	Requests     []brokertypes.Request        `json:"requests" yaml:"requests"`
	AcceptedBids brokertypes.AcceptedBids     `json:"accepted_bids" yaml:"-"`

	locationIndex map[string]int
	clusterIndex  map[string]int
	cdnIndex      map[string]int
	ownership     map[string]map[string]struct{}
	medianRates   map[string]float64
}

func NewSnapshot(
	locations []brokertypes.ClientLocation,
	clusters []brokertypes.Cluster,
	cdns []brokertypes.CDN,
	requests []brokertypes.Request,
) *Snapshot {
	s := &Snapshot{
		Locations:    locations,
		Clusters:     clusters,
		CDNs:         cdns,
		Requests:     identify(requests),
		AcceptedBids: brokertypes.AcceptedBids{},
	}
	s.buildIndex()
	return s
}

// identify gives every request without an id a fresh one. Requests that
// already carry an id keep it.
func identify(requests []brokertypes.Request) []brokertypes.Request {
	if requests == nil {
		return nil
	}
	identified := make([]brokertypes.Request, len(requests))
	copy(identified, requests)
	for i := range identified {
		if identified[i].ID == "" {
			identified[i].ID = uuid.NewString()
		}
	}
	return identified
}

func (s *Snapshot) buildIndex() {
	s.locationIndex = make(map[string]int, len(s.Locations))
	s.medianRates = make(map[string]float64, len(s.Locations))
	for i, location := range s.Locations {
		s.locationIndex[location.ID] = i
		s.medianRates[location.ID] = medianPositiveRate(location.Observations)
	}

	s.clusterIndex = make(map[string]int, len(s.Clusters))
	for i, cluster := range s.Clusters {
		s.clusterIndex[cluster.ID] = i
	}

	s.cdnIndex = make(map[string]int, len(s.CDNs))
	s.ownership = make(map[string]map[string]struct{}, len(s.CDNs))
	for i, cdn := range s.CDNs {
		s.cdnIndex[cdn.ID] = i
		owned := make(map[string]struct{}, len(cdn.Clusters))
		for _, cluster := range cdn.Clusters {
			owned[cluster] = struct{}{}
		}
		s.ownership[cdn.ID] = owned
	}
}

func (s *Snapshot) Location(id string) (brokertypes.ClientLocation, bool) {
	i, ok := s.locationIndex[id]
	if !ok {
		return brokertypes.ClientLocation{}, false
	}
	return s.Locations[i], true
}

func (s *Snapshot) Cluster(id string) (brokertypes.Cluster, bool) {
	i, ok := s.clusterIndex[id]
	if !ok {
		return brokertypes.Cluster{}, false
	}
	return s.Clusters[i], true
}

func (s *Snapshot) CDN(id string) (brokertypes.CDN, bool) {
	i, ok := s.cdnIndex[id]
	if !ok {
		return brokertypes.CDN{}, false
	}
	return s.CDNs[i], true
}

func (s *Snapshot) Owns(cdn, cluster string) bool {
	_, ok := s.ownership[cdn][cluster]
	return ok
}

// Capacity is the configured serving capacity of a CDN's cluster, zero when
// unknown.
func (s *Snapshot) Capacity(cdn, cluster string) float64 {
	c, ok := s.CDN(cdn)
	if !ok {
		return 0
	}
	return c.Capacities[cluster]
}

// StandardPrice returns the CDN's list price and whether one is configured.
func (s *Snapshot) StandardPrice(cdn string) (float64, bool) {
	c, ok := s.CDN(cdn)
	if !ok {
		return 0, false
	}
	return c.ListPrice()
}

func (s *Snapshot) MedianCapacity(cdn string) float64 {
	c, ok := s.CDN(cdn)
	if !ok {
		return 0
	}
	return c.MedianCapacity
}

// MedianRate is the median of a location's positive historical rates, or 0.
func (s *Snapshot) MedianRate(location string) float64 {
	return s.medianRates[location]
}

// WithRequests returns a snapshot sharing this one's topology but carrying a
// different set of pending requests and no accepted bids.
func (s *Snapshot) WithRequests(requests []brokertypes.Request) *Snapshot {
	return NewSnapshot(s.Locations, s.Clusters, s.CDNs, requests)
}

func (s *Snapshot) withAcceptedBids(accepted brokertypes.AcceptedBids) *Snapshot {
	next := NewSnapshot(s.Locations, s.Clusters, s.CDNs, s.Requests)
	next.AcceptedBids = accepted
	return next
}

// normalized returns a copy with every CDN's cluster list sorted.
func (s *Snapshot) normalized() *Snapshot {
	cdns := make([]brokertypes.CDN, len(s.CDNs))
	for i, cdn := range s.CDNs {
		clusters := append([]string{}, cdn.Clusters...)
		sort.Strings(clusters)
		cdn.Clusters = clusters
		cdns[i] = cdn
	}
	next := NewSnapshot(s.Locations, s.Clusters, cdns, s.Requests)
	next.AcceptedBids = s.AcceptedBids
	return next
}

func medianPositiveRate(observations []brokertypes.Observation) float64 {
	rates := []float64{}
	for _, o := range observations {
		if o.Rate > 0 {
			rates = append(rates, o.Rate)
		}
	}
	return Median(rates)
}

// Median of the values, averaging the middle pair for even counts. Returns 0
// for no values.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
