package brokertypes

import "time"

// LinkDownScore is reported by measurement for a client/cluster path that is
// currently unreachable.
const LinkDownScore = 1000000.0

type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Regression maps a distance to a fallback quality score: Slope*d + Intercept.
type Regression struct {
	Slope     float64 `json:"m" yaml:"m"`
	Intercept float64 `json:"b" yaml:"b"`
}

type Observation struct {
	Cluster string  `json:"c" yaml:"cluster"`
	Score   float64 `json:"s" yaml:"score"`
	Rate    float64 `json:"r" yaml:"rate"`
}

type ClientLocation struct {
	ID           string        `json:"id" yaml:"id"`
	Coordinate   Coordinate    `json:"ll" yaml:"coordinate"`
	Regression   Regression    `json:"regression" yaml:"regression"`
	Observations []Observation `json:"cluster_scores" yaml:"observations"`
}

type Cluster struct {
	ID             string     `json:"id" yaml:"id"`
	Coordinate     Coordinate `json:"ll" yaml:"coordinate"`
	BandwidthCost  float64    `json:"bw_cost" yaml:"bandwidth_cost"`
	ColocationCost float64    `json:"colo_cost" yaml:"colocation_cost"`
}

func (c Cluster) TotalCost() float64 {
	return c.BandwidthCost + c.ColocationCost
}

type CDN struct {
	ID             string             `json:"id" yaml:"id"`
	Clusters       []string           `json:"clusters" yaml:"clusters"`
	Capacities     map[string]float64 `json:"capacities" yaml:"capacities"`
	StandardPrice  float64            `json:"standard_price,omitempty" yaml:"standard_price"`
	MedianCapacity float64            `json:"median_capacity" yaml:"median_capacity"`
}

// ListPrice returns the CDN's standard price and whether one is configured.
func (c CDN) ListPrice() (float64, bool) {
	return c.StandardPrice, c.StandardPrice > 0
}

type Bid struct {
	CDN            string  `json:"cdn"`
	Cluster        string  `json:"cl"`
	Score          float64 `json:"s"`
	Capacity       float64 `json:"cap"`
	BandwidthCost  float64 `json:"bw"`
	ColocationCost float64 `json:"colo"`
	Rate           float64 `json:"r"`
}

// Price is the disclosed total unit price of the bid.
func (b Bid) Price() float64 {
	return b.BandwidthCost + b.ColocationCost
}

func (b Bid) LinkDown() bool {
	return b.Score == 0 || b.Score == LinkDownScore
}

// Bids maps a client location id to the bids offered for it.
type Bids map[string][]Bid

func (b Bids) Count() int {
	n := 0
	for _, bids := range b {
		n += len(bids)
	}
	return n
}

type Request struct {
	ID       string  `json:"id" yaml:"id"`
	Location string  `json:"mgID" yaml:"location"`
	Bitrate  float64 `json:"bitrate" yaml:"bitrate"`
	Attempts int     `json:"attempts,omitempty" yaml:"-"`
}

// AcceptedBids maps a client location id to the bid chosen to serve it.
type AcceptedBids map[string]Bid

type Assignment struct {
	Request Request `json:"req"`
	Bid     Bid     `json:"bid"`
}

type ViolationKind string

const (
	AssignmentMismatch ViolationKind = "assignment-mismatch"
	ResidualUnits      ViolationKind = "residual-units"
)

// Violation reports a disagreement between the solved unit counts and the
// requests they were mapped onto.
type Violation struct {
	Kind     ViolationKind `json:"kind"`
	Location string        `json:"location"`
	CDN      string        `json:"cdn,omitempty"`
	Cluster  string        `json:"cluster,omitempty"`
	Expected int           `json:"expected"`
	Actual   int           `json:"actual"`
}

type Outcome string

const (
	OutcomeCleared  Outcome = "cleared"
	OutcomeNoBids   Outcome = "no-bids"
	OutcomeUnsolved Outcome = "unsolved"
	OutcomeTimedOut Outcome = "timed-out"
	OutcomeCanceled Outcome = "canceled"
)

type ClearingResult struct {
	Outcome       Outcome       `json:"outcome"`
	Accepted      AcceptedBids  `json:"accepted"`
	Assignments   []Assignment  `json:"assignments"`
	Unserved      []Request     `json:"unserved"`
	Violations    []Violation   `json:"violations"`
	Objective     float64       `json:"objective"`
	SolveDuration time.Duration `json:"solve_duration"`
}

func NewClearingResult(outcome Outcome) ClearingResult {
	return ClearingResult{
		Outcome:  outcome,
		Accepted: AcceptedBids{},
	}
}
