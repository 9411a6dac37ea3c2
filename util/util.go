package util

import (
	"fmt"
	"math/rand"
	"sync"
)

// Random hands out prefixed sequential guids and bounded random numbers
// from one seeded source.
type Random struct {
	lock        *sync.Mutex
	r           *rand.Rand
	guidTracker map[string]int
}

func NewRandom(seed int64) *Random {
	return &Random{
		lock:        &sync.Mutex{},
		r:           rand.New(rand.NewSource(seed)),
		guidTracker: map[string]int{},
	}
}

func (r *Random) ResetGuids() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.guidTracker = map[string]int{}
}

func (r *Random) NewGuid(prefix string) string {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.guidTracker[prefix] = r.guidTracker[prefix] + 1
	return fmt.Sprintf("%s-%d", prefix, r.guidTracker[prefix])
}

func (r *Random) IntIn(min, max int) int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.r.Intn(max-min+1) + min
}

func (r *Random) FloatIn(min, max float64) float64 {
	r.lock.Lock()
	defer r.lock.Unlock()
	return min + r.r.Float64()*(max-min)
}

// Pick returns n distinct indices below size, or all of them when n >= size.
func (r *Random) Pick(n, size int) []int {
	r.lock.Lock()
	defer r.lock.Unlock()
	perm := r.r.Perm(size)
	if n < size {
		perm = perm[:n]
	}
	return perm
}
