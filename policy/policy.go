// Package policy describes how a broker round selects, prices and clears
// bids. A Policy is resolved from one of the named methods and may be
// overridden from a YAML file.
package policy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

var ErrUnknownMethod = errors.New("unknown broker method")

type ExposureMode string

const (
	ExposeFull     ExposureMode = "FULL"
	ExposeNothing  ExposureMode = "NOTHING"
	ExposeOpaque   ExposureMode = "OPAQUE"
	ExposeRelative ExposureMode = "RELATIVE"
)

type Criteria string

const (
	CriteriaBoth Criteria = "both"
	CriteriaPing Criteria = "ping"
	CriteriaRate Criteria = "rate"
)

// UnlimitedBids lets a CDN offer every candidate cluster it has.
const UnlimitedBids = -1

const (
	DefaultBackgroundTrafficFraction = 0.04
	DefaultSafetyMargin              = 0.7
	DefaultMethod                    = "Exchange"
)

type Weights struct {
	Performance float64 `yaml:"performance" json:"performance"`
	Cost        float64 `yaml:"cost" json:"cost"`
	Bandwidth   float64 `yaml:"bandwidth" json:"bandwidth"`
	Latency     float64 `yaml:"latency" json:"latency"`
}

var DefaultWeights = Weights{
	Performance: 1.0 - 0.01,
	Cost:        0.01,
	Bandwidth:   0.01,
	Latency:     -10,
}

type Policy struct {
	Method string `yaml:"method" json:"method"`

	BidCount               int  `yaml:"bid_count" json:"bid_count" validate:"gte=-1,ne=0"`
	UseCost                bool `yaml:"use_cost" json:"use_cost"`
	UseClusterCapacity     bool `yaml:"use_cluster_capacity" json:"use_cluster_capacity"`
	ExposeCapacityToClient bool `yaml:"expose_capacity_to_client" json:"expose_capacity_to_client"`
	// ExhaustiveDisclosure offers the full fallback ranking instead of the
	// score-capped short list.
	ExhaustiveDisclosure bool `yaml:"exhaustive_disclosure" json:"exhaustive_disclosure"`

	PriceExposureMode ExposureMode `yaml:"price_exposure_mode" json:"price_exposure_mode" validate:"oneof=FULL NOTHING OPAQUE RELATIVE"`
	Criteria          Criteria     `yaml:"criteria" json:"criteria" validate:"oneof=both ping rate"`
	Weights           Weights      `yaml:"objective_weights" json:"objective_weights"`

	BackgroundTrafficFraction float64 `yaml:"background_traffic_fraction" json:"background_traffic_fraction" validate:"gte=0"`
	SafetyMargin              float64 `yaml:"safety_margin" json:"safety_margin" validate:"gt=0,lte=1"`
}

type methodSettings struct {
	bidCount           int
	useCost            bool
	useClusterCapacity bool
	exposeClients      bool
}

var methods = map[string]methodSettings{
	"Brokered":            {1, false, false, false},
	"2Clusters":           {2, false, false, false},
	"100Clusters":         {100, false, false, false},
	"DynamicPricing":      {1, true, false, false},
	"DynamicMulticluster": {100, true, false, false},
	"BestPhonebook":       {100, true, true, false},
	"Exchange":            {100, true, true, true},
	"Optimal":             {UnlimitedBids, true, true, true},
}

func Methods() []string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForMethod returns the policy for a named method with full price exposure
// and the default objective weights.
func ForMethod(name string) (Policy, error) {
	settings, ok := methods[name]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}

	return Policy{
		Method:                    name,
		BidCount:                  settings.bidCount,
		UseCost:                   settings.useCost,
		UseClusterCapacity:        settings.useClusterCapacity,
		ExposeCapacityToClient:    settings.exposeClients,
		ExhaustiveDisclosure:      name == "Optimal",
		PriceExposureMode:         ExposeFull,
		Criteria:                  CriteriaBoth,
		Weights:                   DefaultWeights,
		BackgroundTrafficFraction: DefaultBackgroundTrafficFraction,
		SafetyMargin:              DefaultSafetyMargin,
	}, nil
}

func (p Policy) Unlimited() bool {
	return p.BidCount == UnlimitedBids
}

// EffectiveWeights applies the scoring criteria to the configured weights.
func (p Policy) EffectiveWeights() Weights {
	w := p.Weights
	switch p.Criteria {
	case CriteriaPing:
		w.Bandwidth = 0
	case CriteriaRate:
		w.Latency = 0
	}
	return w
}

var validate = validator.New()

func (p Policy) Validate() error {
	return validate.Struct(p)
}
