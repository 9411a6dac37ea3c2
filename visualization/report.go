package visualization

import (
	"sort"

	"code.cloudfoundry.org/cdnbroker/brokertypes"
	"github.com/GaryBoone/GoStats/stats"
)

type Stat struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Total  float64
}

func NewStat(data []float64) Stat {
	if len(data) == 0 {
		return Stat{}
	}
	return Stat{
		Min:    stats.StatsMin(data),
		Max:    stats.StatsMax(data),
		Mean:   stats.StatsMean(data),
		StdDev: stats.StatsPopulationStandardDeviation(data),
		Total:  stats.StatsSum(data),
	}
}

// ClusterLoad is the bitrate a round assigned to one CDN cluster against the
// largest capacity any of its bids offered.
type ClusterLoad struct {
	CDN      string
	Cluster  string
	Load     float64
	Capacity float64
	Requests int
}

func (c ClusterLoad) Utilization() float64 {
	if c.Capacity <= 0 {
		return 0
	}
	return c.Load / c.Capacity
}

type Report struct {
	Round brokertypes.Round
	Loads []ClusterLoad
}

func NewReport(round brokertypes.Round) *Report {
	return &Report{
		Round: round,
		Loads: loadsFromRound(round),
	}
}

func (r *Report) NumRequests() int {
	return len(r.Round.Requests)
}

func (r *Report) NumAssigned() int {
	return len(r.Round.Result.Assignments)
}

func (r *Report) NMissingRequests() int {
	return len(r.Round.Result.Unserved)
}

func (r *Report) NumCDNs() int {
	cdns := map[string]bool{}
	for _, load := range r.Loads {
		cdns[load.CDN] = true
	}
	return len(cdns)
}

// DistributionScore is the coefficient of variation of assigned requests
// across the clusters that bid. Zero means perfectly even.
func (r *Report) DistributionScore() float64 {
	counts := []float64{}
	for _, load := range r.Loads {
		counts = append(counts, float64(load.Requests))
	}

	if len(counts) == 0 || stats.StatsSum(counts) == 0 {
		return 0
	}

	return stats.StatsPopulationStandardDeviation(counts) / stats.StatsMean(counts)
}

func (r *Report) ScoreStats() Stat {
	scores := []float64{}
	for _, assignment := range r.Round.Result.Assignments {
		scores = append(scores, assignment.Bid.Score)
	}
	return NewStat(scores)
}

func (r *Report) PriceStats() Stat {
	prices := []float64{}
	for _, assignment := range r.Round.Result.Assignments {
		prices = append(prices, assignment.Bid.Price())
	}
	return NewStat(prices)
}

func (r *Report) BidsPerLocationStats() Stat {
	counts := []float64{}
	for _, bids := range r.Round.Bids {
		counts = append(counts, float64(len(bids)))
	}
	return NewStat(counts)
}

func (r *Report) RequestsPerSecond() float64 {
	if r.Round.Duration <= 0 {
		return 0
	}
	return float64(r.NumAssigned()) / r.Round.Duration.Seconds()
}

func loadsFromRound(round brokertypes.Round) []ClusterLoad {
	type key struct{ cdn, cluster string }
	loads := map[key]*ClusterLoad{}
	lookup := func(cdn, cluster string) *ClusterLoad {
		k := key{cdn, cluster}
		if loads[k] == nil {
			loads[k] = &ClusterLoad{CDN: cdn, Cluster: cluster}
		}
		return loads[k]
	}

	for _, bids := range round.Bids {
		for _, bid := range bids {
			load := lookup(bid.CDN, bid.Cluster)
			if bid.Capacity > load.Capacity {
				load.Capacity = bid.Capacity
			}
		}
	}
	for _, assignment := range round.Result.Assignments {
		load := lookup(assignment.Bid.CDN, assignment.Bid.Cluster)
		load.Load += assignment.Request.Bitrate
		load.Requests++
	}

	sorted := make([]ClusterLoad, 0, len(loads))
	for _, load := range loads {
		sorted = append(sorted, *load)
	}
	sort.Sort(ByCDNAndCluster(sorted))
	return sorted
}

type ByCDNAndCluster []ClusterLoad

func (a ByCDNAndCluster) Len() int      { return len(a) }
func (a ByCDNAndCluster) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a ByCDNAndCluster) Less(i, j int) bool {
	if a[i].CDN != a[j].CDN {
		return a[i].CDN < a[j].CDN
	}
	return a[i].Cluster < a[j].Cluster
}
