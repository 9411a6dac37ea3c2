package brokerrunner

import (
	"sync"

	"code.cloudfoundry.org/cdnbroker/brokertypes"
)

// Batch queues requests between rounds.
type Batch struct {
	requests []brokertypes.Request
	lock     *sync.Mutex
	HasWork  chan struct{}
}

func NewBatch() *Batch {
	return &Batch{
		requests: []brokertypes.Request{},
		lock:     &sync.Mutex{},
		HasWork:  make(chan struct{}, 1),
	}
}

func (b *Batch) AddRequests(requests []brokertypes.Request) {
	if len(requests) == 0 {
		return
	}

	b.lock.Lock()
	b.requests = append(b.requests, requests...)
	b.claimToHaveWork()
	b.lock.Unlock()
}

// ResubmitRequests queues requests carried over from an earlier round ahead
// of newly added ones.
func (b *Batch) ResubmitRequests(requests []brokertypes.Request) {
	if len(requests) == 0 {
		return
	}

	b.lock.Lock()
	b.requests = append(append([]brokertypes.Request{}, requests...), b.requests...)
	b.claimToHaveWork()
	b.lock.Unlock()
}

// DedupeAndDrain empties the batch, keeping the first occurrence of each
// request id. Requests without an id are never collapsed.
func (b *Batch) DedupeAndDrain() []brokertypes.Request {
	b.lock.Lock()
	requests := b.requests
	b.requests = []brokertypes.Request{}
	select {
	case <-b.HasWork:
	default:
	}
	b.lock.Unlock()

	deduped := []brokertypes.Request{}
	present := map[string]bool{}
	for _, request := range requests {
		if request.ID != "" {
			if present[request.ID] {
				continue
			}
			present[request.ID] = true
		}
		deduped = append(deduped, request)
	}

	return deduped
}

func (b *Batch) claimToHaveWork() {
	select {
	case b.HasWork <- struct{}{}:
	default:
	}
}
