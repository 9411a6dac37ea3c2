package marketclearer

import (
	"fmt"

	"code.cloudfoundry.org/cdnbroker/brokertypes"
	"code.cloudfoundry.org/cdnbroker/policy"
	"code.cloudfoundry.org/cdnbroker/scenario"
	"code.cloudfoundry.org/cdnbroker/solver"
)

// unratedBandwidthFactor scales a location's median rate for bids without
// rate history.
const unratedBandwidthFactor = 1.1

type clusterKey struct {
	cdn     string
	cluster string
}

// variable counts the request units at one location served by one bid.
type variable struct {
	location string
	bid      brokertypes.Bid
}

// Formulation is the integer program for one round together with what is
// needed to map a solution back onto requests.
type Formulation struct {
	Problem solver.Problem

	variables  []variable
	locations  []string
	byLocation map[string][]int
	demand     map[string]int
	bitrates   map[string]float64
	capacities map[clusterKey]float64
	requests   []brokertypes.Request
}

func (f *Formulation) NumVariables() int {
	return len(f.variables)
}

// Demand is the number of requests pending at a location.
func (f *Formulation) Demand(location string) int {
	return f.demand[location]
}

// AverageBitrate is the mean requested bitrate at a location, zero when it
// has no requests.
func (f *Formulation) AverageBitrate(location string) float64 {
	return f.bitrates[location]
}

// EffectiveCapacity is the capacity the round's regime allows for a CDN's
// cluster.
func (f *Formulation) EffectiveCapacity(cdn, cluster string) (float64, bool) {
	capacity, ok := f.capacities[clusterKey{cdn: cdn, cluster: cluster}]
	return capacity, ok
}

// Coefficient returns the objective coefficient of the i'th bid offered at
// location.
func (f *Formulation) Coefficient(location string, i int) float64 {
	vars := f.byLocation[location]
	if i < 0 || i >= len(vars) {
		return 0
	}
	return f.Problem.Objective[vars[i]]
}

func formulate(p policy.Policy, snapshot *scenario.Snapshot, bids brokertypes.Bids) *Formulation {
	f := &Formulation{
		byLocation: map[string][]int{},
		demand:     map[string]int{},
		bitrates:   map[string]float64{},
		capacities: map[clusterKey]float64{},
		requests:   snapshot.Requests,
	}

	totals := map[string]float64{}
	for _, r := range snapshot.Requests {
		if _, known := snapshot.Location(r.Location); !known {
			continue
		}
		bitrate := r.Bitrate
		if bitrate <= 0 {
			bitrate = snapshot.MedianRate(r.Location)
		}
		f.demand[r.Location]++
		totals[r.Location] += bitrate
	}
	for location, total := range totals {
		f.bitrates[location] = total / float64(f.demand[location])
	}

	weights := p.EffectiveWeights()
	for _, location := range snapshot.Locations {
		locationBids, ok := bids[location.ID]
		if !ok {
			continue
		}

		if len(locationBids) > 0 {
			f.locations = append(f.locations, location.ID)
		}
		medianRate := snapshot.MedianRate(location.ID)
		for _, bid := range locationBids {
			f.byLocation[location.ID] = append(f.byLocation[location.ID], len(f.variables))
			f.variables = append(f.variables, variable{location: location.ID, bid: bid})
			f.Problem.Objective = append(f.Problem.Objective, f.coefficient(p, weights, snapshot, location.ID, medianRate, bid))
		}
	}

	f.addCapacityConstraints(p, snapshot)
	f.addDemandConstraints()
	return f
}

func (f *Formulation) coefficient(p policy.Policy, w policy.Weights, snapshot *scenario.Snapshot, location string, medianRate float64, bid brokertypes.Bid) float64 {
	if f.demand[location] == 0 {
		return 0
	}

	price := bid.Price()
	if !p.UseCost {
		price = 0
		if standardPrice, ok := snapshot.StandardPrice(bid.CDN); ok {
			price = standardPrice
		}
	}

	rate := bid.Rate
	if rate == 0 {
		rate = medianRate * unratedBandwidthFactor
	}

	performance := w.Latency*bid.Score + w.Bandwidth*rate
	return w.Performance*performance - w.Cost*price*f.bitrates[location]
}

func (f *Formulation) addCapacityConstraints(p policy.Policy, snapshot *scenario.Snapshot) {
	order := []clusterKey{}
	terms := map[clusterKey][]solver.Term{}
	down := map[clusterKey]bool{}

	for i, v := range f.variables {
		key := clusterKey{cdn: v.bid.CDN, cluster: v.bid.Cluster}
		if _, seen := terms[key]; !seen {
			order = append(order, key)
			terms[key] = []solver.Term{}
		}

		if v.bid.LinkDown() {
			down[key] = true
		}
		if v.bid.Capacity > f.capacities[key] {
			f.capacities[key] = v.bid.Capacity
		}

		bitrate := f.bitrates[v.location]
		if bitrate != 0 {
			terms[key] = append(terms[key], solver.Term{Var: i, Coeff: bitrate})
		}
	}

	for _, key := range order {
		capacity := f.capacities[key]
		if !p.UseClusterCapacity {
			capacity = snapshot.MedianCapacity(key.cdn)
		}
		if down[key] || capacity < 0 {
			capacity = 0
		}
		f.capacities[key] = capacity

		f.Problem.Constraints = append(f.Problem.Constraints, solver.Constraint{
			Name:  fmt.Sprintf("capacity-%s-%s", key.cdn, key.cluster),
			Terms: terms[key],
			Sense: solver.LessOrEqual,
			RHS:   capacity,
		})
	}
}

func (f *Formulation) addDemandConstraints() {
	for _, location := range f.locations {
		vars := f.byLocation[location]
		terms := make([]solver.Term, 0, len(vars))
		for _, i := range vars {
			terms = append(terms, solver.Term{Var: i, Coeff: 1})
		}

		f.Problem.Constraints = append(f.Problem.Constraints, solver.Constraint{
			Name:  "demand-" + location,
			Terms: terms,
			Sense: solver.Equal,
			RHS:   float64(f.demand[location]),
		})
	}
}
