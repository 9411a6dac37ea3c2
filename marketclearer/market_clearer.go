// Package marketclearer decides which bid serves each pending request by
// solving a capacity-constrained integer program over all offered bids.
package marketclearer

import (
	"context"
	"errors"
	"math"
	"time"

	"code.cloudfoundry.org/cdnbroker/brokertypes"
	"code.cloudfoundry.org/cdnbroker/policy"
	"code.cloudfoundry.org/cdnbroker/scenario"
	"code.cloudfoundry.org/cdnbroker/solver"
	"code.cloudfoundry.org/clock"
	"code.cloudfoundry.org/lager/v3"
)

type Clearer struct {
	logger  lager.Logger
	solver  solver.Solver
	policy  policy.Policy
	timeout time.Duration
	clock   clock.Clock
}

// New returns a Clearer. A zero timeout lets the solver run until it
// finishes or the caller's context is done.
func New(logger lager.Logger, s solver.Solver, p policy.Policy, timeout time.Duration, clock clock.Clock) *Clearer {
	return &Clearer{
		logger:  logger.Session("market-clearer"),
		solver:  s,
		policy:  p,
		timeout: timeout,
		clock:   clock,
	}
}

// Clear formulates, solves and assigns in one step.
func (c *Clearer) Clear(ctx context.Context, snapshot *scenario.Snapshot, bids brokertypes.Bids) brokertypes.ClearingResult {
	formulation := c.Formulate(snapshot, bids)
	solution, outcome, duration := c.Solve(ctx, formulation)
	result := c.Assign(formulation, solution, outcome)
	result.SolveDuration = duration
	return result
}

func (c *Clearer) Formulate(snapshot *scenario.Snapshot, bids brokertypes.Bids) *Formulation {
	f := formulate(c.policy, snapshot, bids)
	c.logger.Debug("formulated", lager.Data{
		"variables":   f.NumVariables(),
		"constraints": len(f.Problem.Constraints),
		"requests":    len(f.requests),
	})
	return f
}

type solveResult struct {
	solution solver.Solution
	err      error
}

// Solve runs the solver with the clearer's timeout. Any failure to reach a
// solution is reported through the outcome, never as an error.
func (c *Clearer) Solve(ctx context.Context, f *Formulation) (solver.Solution, brokertypes.Outcome, time.Duration) {
	logger := c.logger.Session("solve", lager.Data{"variables": f.NumVariables()})

	if f.NumVariables() == 0 {
		logger.Info("no-bids")
		return solver.Solution{}, brokertypes.OutcomeNoBids, 0
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := c.clock.Now()
	done := make(chan solveResult, 1)
	go func() {
		solution, err := c.solver.Solve(ctx, f.Problem)
		done <- solveResult{solution: solution, err: err}
	}()

	var result solveResult
	select {
	case result = <-done:
	case <-ctx.Done():
		result = solveResult{err: ctx.Err()}
	}
	duration := c.clock.Since(started)

	if result.err != nil {
		if errors.Is(result.err, context.DeadlineExceeded) {
			logger.Error("solve-timed-out", result.err, lager.Data{"duration": duration.String()})
			return solver.Solution{}, brokertypes.OutcomeTimedOut, duration
		}
		if errors.Is(result.err, context.Canceled) {
			logger.Info("solve-canceled", lager.Data{"duration": duration.String()})
			return solver.Solution{}, brokertypes.OutcomeCanceled, duration
		}
		logger.Error("solve-failed", result.err, lager.Data{"duration": duration.String()})
		return solver.Solution{}, brokertypes.OutcomeUnsolved, duration
	}

	if len(result.solution.Values) != f.NumVariables() {
		logger.Error("solve-failed", errors.New("solution does not match the problem"), lager.Data{
			"values":    len(result.solution.Values),
			"variables": f.NumVariables(),
		})
		return solver.Solution{}, brokertypes.OutcomeUnsolved, duration
	}

	logger.Info("solved", lager.Data{"objective": result.solution.Objective, "duration": duration.String()})
	return result.solution, brokertypes.OutcomeCleared, duration
}

// Assign maps solved unit counts onto requests in submission order.
func (c *Clearer) Assign(f *Formulation, solution solver.Solution, outcome brokertypes.Outcome) brokertypes.ClearingResult {
	logger := c.logger.Session("assign")

	result := brokertypes.NewClearingResult(outcome)
	if outcome != brokertypes.OutcomeCleared {
		result.Unserved = append([]brokertypes.Request{}, f.requests...)
		return result
	}
	result.Objective = solution.Objective

	remaining := make([]int, len(solution.Values))
	for i, v := range solution.Values {
		remaining[i] = int(math.Round(v))
	}

	for _, location := range f.locations {
		units := 0
		vars := f.byLocation[location]
		for _, i := range vars {
			units += remaining[i]
		}
		if units != f.demand[location] {
			violation := brokertypes.Violation{
				Kind:     brokertypes.AssignmentMismatch,
				Location: location,
				Expected: f.demand[location],
				Actual:   units,
			}
			logger.Error("assignment-mismatch", errors.New("solved units disagree with requests"), lager.Data{
				"location": location,
				"expected": violation.Expected,
				"actual":   violation.Actual,
			})
			result.Violations = append(result.Violations, violation)
		}
	}

	for _, request := range f.requests {
		assigned := false
		for _, i := range f.byLocation[request.Location] {
			if remaining[i] <= 0 {
				continue
			}
			remaining[i]--
			bid := f.variables[i].bid
			result.Assignments = append(result.Assignments, brokertypes.Assignment{Request: request, Bid: bid})
			result.Accepted[request.Location] = bid
			assigned = true
			break
		}

		if !assigned {
			logger.Debug("client-did-not-get-a-bid", lager.Data{"request": request.ID, "location": request.Location})
			result.Unserved = append(result.Unserved, request)
		}
	}

	for i, units := range remaining {
		if units <= 0 {
			continue
		}
		v := f.variables[i]
		logger.Error("residual-units", errors.New("units left after assigning every request"), lager.Data{
			"location": v.location,
			"cdn":      v.bid.CDN,
			"cluster":  v.bid.Cluster,
			"units":    units,
		})
		result.Violations = append(result.Violations, brokertypes.Violation{
			Kind:     brokertypes.ResidualUnits,
			Location: v.location,
			CDN:      v.bid.CDN,
			Cluster:  v.bid.Cluster,
			Expected: 0,
			Actual:   units,
		})
	}

	logger.Info("assigned", lager.Data{
		"assigned":   len(result.Assignments),
		"unserved":   len(result.Unserved),
		"violations": len(result.Violations),
	})
	return result
}
