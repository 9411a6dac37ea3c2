// Package brokerrunner drives clearing rounds: it drains queued requests,
// collects every CDN's bids, clears the market and writes the accepted bids
// back to the scenario store.
package brokerrunner

import (
	"context"
	"os"
	"sync"
	"time"

	"code.cloudfoundry.org/cdnbroker/brokertypes"
	"code.cloudfoundry.org/cdnbroker/geocache"
	"code.cloudfoundry.org/cdnbroker/marketclearer"
	"code.cloudfoundry.org/cdnbroker/policy"
	"code.cloudfoundry.org/cdnbroker/scenario"
	"code.cloudfoundry.org/clock"
	"code.cloudfoundry.org/lager/v3"
	"code.cloudfoundry.org/workpool"
	"github.com/google/uuid"
)

type Runner struct {
	logger     lager.Logger
	store      *scenario.Store
	cache      *geocache.GeoCache
	clearer    *marketclearer.Clearer
	batch      *Batch
	workPool   *workpool.WorkPool
	policy     policy.Policy
	clock      clock.Clock
	interval   time.Duration
	maxRetries int
	delegates  []brokertypes.RoundDelegate

	lock      *sync.RWMutex
	state     brokertypes.RoundState
	lastRound *brokertypes.Round
}

func New(
	logger lager.Logger,
	store *scenario.Store,
	cache *geocache.GeoCache,
	clearer *marketclearer.Clearer,
	batch *Batch,
	workPool *workpool.WorkPool,
	p policy.Policy,
	clock clock.Clock,
	interval time.Duration,
	maxRetries int,
	delegates ...brokertypes.RoundDelegate,
) *Runner {
	return &Runner{
		logger:     logger.Session("broker-runner"),
		store:      store,
		cache:      cache,
		clearer:    clearer,
		batch:      batch,
		workPool:   workPool,
		policy:     p,
		clock:      clock,
		interval:   interval,
		maxRetries: maxRetries,
		delegates:  delegates,
		lock:       &sync.RWMutex{},
		state:      brokertypes.RoundIdle,
	}
}

// Run warms the geo cache, then clears a round on every tick that finds
// queued requests. A signal cancels the round in flight.
func (r *Runner) Run(signals <-chan os.Signal, ready chan<- struct{}) error {
	r.cache.Precompute(r.logger, r.workPool)

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("started", lager.Data{"method": r.policy.Method, "interval": r.interval.String()})
	close(ready)

	for {
		select {
		case <-signals:
			r.logger.Info("stopped")
			return nil
		case <-ticker.C():
		}

		select {
		case <-r.batch.HasWork:
		default:
			r.logger.Debug("no-pending-requests")
			continue
		}

		requests := r.batch.DedupeAndDrain()
		if len(requests) == 0 {
			r.logger.Debug("no-pending-requests")
			continue
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			r.clearRound(ctx, requests)
		}()

		select {
		case <-done:
			cancel()
		case <-signals:
			cancel()
			<-done
			r.logger.Info("stopped")
			return nil
		}
	}
}

// RunRound clears whatever is queued right now.
func (r *Runner) RunRound(ctx context.Context) brokertypes.Round {
	return r.clearRound(ctx, r.batch.DedupeAndDrain())
}

func (r *Runner) clearRound(ctx context.Context, requests []brokertypes.Request) brokertypes.Round {
	round := brokertypes.Round{
		ID:        uuid.NewString(),
		Method:    r.policy.Method,
		State:     brokertypes.RoundIdle,
		StartedAt: r.clock.Now(),
		Requests:  requests,
	}
	logger := r.logger.Session("round", lager.Data{"round": round.ID, "requests": len(requests)})
	logger.Info("starting")

	snapshot := r.store.ReplaceRequests(requests)
	round.Requests = snapshot.Requests

	round.Bids = CollectAllBids(logger, r.workPool, snapshot, r.cache, r.policy)
	r.advance(&round, brokertypes.RoundBidsCollected)

	formulation := r.clearer.Formulate(snapshot, round.Bids)
	r.advance(&round, brokertypes.RoundFormulated)

	solution, outcome, solveDuration := r.clearer.Solve(ctx, formulation)
	r.advance(&round, brokertypes.RoundSolved)

	round.Result = r.clearer.Assign(formulation, solution, outcome)
	round.Result.SolveDuration = solveDuration
	r.store.SetAcceptedBids(round.Result.Accepted)
	r.advance(&round, brokertypes.RoundAssigned)

	round.Dropped = ResubmitUnserved(r.batch, round.Result.Unserved, r.maxRetries)
	if len(round.Dropped) > 0 {
		logger.Info("dropped-requests", lager.Data{"dropped": len(round.Dropped)})
	}

	round.Duration = r.clock.Since(round.StartedAt)

	r.lock.Lock()
	r.lastRound = &round
	r.state = brokertypes.RoundIdle
	r.lock.Unlock()

	for _, delegate := range r.delegates {
		delegate.RoundCompleted(round)
	}

	logger.Info("finished", lager.Data{
		"outcome":  round.Result.Outcome,
		"assigned": len(round.Result.Assignments),
		"unserved": len(round.Result.Unserved),
		"duration": round.Duration.String(),
	})
	return round
}

func (r *Runner) advance(round *brokertypes.Round, state brokertypes.RoundState) {
	round.State = state
	r.lock.Lock()
	r.state = state
	r.lock.Unlock()
}

func (r *Runner) State() brokertypes.RoundState {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.state
}

func (r *Runner) LastRound() (brokertypes.Round, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.lastRound == nil {
		return brokertypes.Round{}, false
	}
	return *r.lastRound, true
}

// Record captures the current scenario with the last round's bids and
// accepted bids.
func (r *Runner) Record() scenario.Record {
	snapshot := r.store.Snapshot()
	bids := brokertypes.Bids{}
	if round, ok := r.LastRound(); ok {
		bids = round.Bids
	}
	return scenario.NewRecord(snapshot, bids, snapshot.AcceptedBids)
}

// AddRequests queues requests for the next round.
func (r *Runner) AddRequests(requests []brokertypes.Request) {
	r.batch.AddRequests(requests)
}
