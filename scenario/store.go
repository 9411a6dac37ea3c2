package scenario

import (
	"sync"

	"code.cloudfoundry.org/cdnbroker/brokertypes"
)

// Store owns the current snapshot. It is only mutated between rounds.
type Store struct {
	lock     *sync.RWMutex
	snapshot *Snapshot
}

func NewStore(snapshot *Snapshot) *Store {
	return &Store{
		lock:     &sync.RWMutex{},
		snapshot: snapshot,
	}
}

func (s *Store) Snapshot() *Snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.snapshot
}

func (s *Store) ReplaceRequests(requests []brokertypes.Request) *Snapshot {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.snapshot = s.snapshot.WithRequests(requests)
	return s.snapshot
}

func (s *Store) SetAcceptedBids(accepted brokertypes.AcceptedBids) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.snapshot = s.snapshot.withAcceptedBids(accepted)
}
