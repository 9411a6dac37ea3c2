// Package metrics exports per-round clearing statistics to prometheus.
package metrics

import (
	"code.cloudfoundry.org/cdnbroker/brokertypes"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cdnbroker"

// Emitter is a RoundDelegate that records each completed round.
type Emitter struct {
	rounds        *prometheus.CounterVec
	bids          prometheus.Counter
	assigned      *prometheus.CounterVec
	unserved      prometheus.Counter
	dropped       prometheus.Counter
	violations    *prometheus.CounterVec
	objective     prometheus.Gauge
	solveDuration prometheus.Histogram
	roundDuration prometheus.Histogram
}

func NewEmitter(registerer prometheus.Registerer) (*Emitter, error) {
	e := &Emitter{
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Clearing rounds completed, by outcome.",
		}, []string{"outcome"}),
		bids: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_total",
			Help:      "Bids offered across all rounds.",
		}),
		assigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_assigned_total",
			Help:      "Requests assigned to a bid, by CDN.",
		}, []string{"cdn"}),
		unserved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_unserved_total",
			Help:      "Requests left without a bid at the end of a round.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_dropped_total",
			Help:      "Unserved requests that ran out of retries.",
		}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Inconsistencies found while assigning solved units, by kind.",
		}, []string{"kind"}),
		objective: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "objective",
			Help:      "Objective value of the last cleared round.",
		}),
		solveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "Time spent in the solver per round.",
			Buckets:   prometheus.DefBuckets,
		}),
		roundDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_duration_seconds",
			Help:      "Wall time of a clearing round.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	collectors := []prometheus.Collector{
		e.rounds, e.bids, e.assigned, e.unserved, e.dropped,
		e.violations, e.objective, e.solveDuration, e.roundDuration,
	}
	for _, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}

	return e, nil
}

func (e *Emitter) RoundCompleted(round brokertypes.Round) {
	result := round.Result

	e.rounds.WithLabelValues(string(result.Outcome)).Inc()
	e.bids.Add(float64(round.Bids.Count()))
	for _, assignment := range result.Assignments {
		e.assigned.WithLabelValues(assignment.Bid.CDN).Inc()
	}
	e.unserved.Add(float64(len(result.Unserved)))
	e.dropped.Add(float64(len(round.Dropped)))
	for _, violation := range result.Violations {
		e.violations.WithLabelValues(string(violation.Kind)).Inc()
	}
	if result.Outcome == brokertypes.OutcomeCleared {
		e.objective.Set(result.Objective)
	}
	e.solveDuration.Observe(result.SolveDuration.Seconds())
	e.roundDuration.Observe(round.Duration.Seconds())
}
