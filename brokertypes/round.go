package brokertypes

import "time"

type RoundState string

const (
	RoundIdle          RoundState = "idle"
	RoundBidsCollected RoundState = "bids-collected"
	RoundFormulated    RoundState = "formulated"
	RoundSolved        RoundState = "solved"
	RoundAssigned      RoundState = "assigned"
)

// Round is one execution of collect-bids, solve and assign.
type Round struct {
	ID        string         `json:"id"`
	Method    string         `json:"method"`
	State     RoundState     `json:"state"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Requests  []Request      `json:"-"`
	Bids      Bids           `json:"-"`
	Result    ClearingResult `json:"-"`
	Dropped   []Request      `json:"-"`
}

type RoundSummary struct {
	ID            string         `json:"id"`
	Method        string         `json:"method"`
	Outcome       Outcome        `json:"outcome"`
	StartedAt     time.Time      `json:"started_at"`
	NumRequests   int            `json:"requests"`
	NumBids       int            `json:"bids"`
	NumAssigned   int            `json:"assigned"`
	NumUnserved   int            `json:"unserved"`
	NumViolations int            `json:"violations"`
	NumDropped    int            `json:"dropped"`
	Objective     float64        `json:"objective"`
	SolveDuration time.Duration  `json:"solve_duration"`
	Duration      time.Duration  `json:"duration"`
	AcceptedByCDN map[string]int `json:"accepted_by_cdn"`
}

func (r Round) Summary() RoundSummary {
	byCDN := map[string]int{}
	for _, assignment := range r.Result.Assignments {
		byCDN[assignment.Bid.CDN]++
	}

	return RoundSummary{
		ID:            r.ID,
		Method:        r.Method,
		Outcome:       r.Result.Outcome,
		StartedAt:     r.StartedAt,
		NumRequests:   len(r.Requests),
		NumBids:       r.Bids.Count(),
		NumAssigned:   len(r.Result.Assignments),
		NumUnserved:   len(r.Result.Unserved),
		NumViolations: len(r.Result.Violations),
		NumDropped:    len(r.Dropped),
		Objective:     r.Result.Objective,
		SolveDuration: r.Result.SolveDuration,
		Duration:      r.Duration,
		AcceptedByCDN: byCDN,
	}
}

// RoundDelegate is notified once a round has been assigned and written back.
type RoundDelegate interface {
	RoundCompleted(round Round)
}
