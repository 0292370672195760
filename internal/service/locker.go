package service

import (
	"hash/fnv"
	"sync"
)

const tripLockStripes = 256

// TripLocker serializes operations on the same trip within this process.
// Trips hash onto a fixed set of mutexes, so unrelated trips rarely contend
// and memory does not grow with the number of trips.
type TripLocker struct {
	stripes [tripLockStripes]sync.Mutex
}

// NewTripLocker creates a new TripLocker.
func NewTripLocker() *TripLocker {
	return &TripLocker{}
}

// Lock blocks until the trip's stripe is held and returns its unlock func.
func (l *TripLocker) Lock(tripID string) (unlock func()) {
	m := &l.stripes[stripeFor(tripID)]
	m.Lock()
	return m.Unlock
}

func stripeFor(tripID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tripID))
	return h.Sum32() % tripLockStripes
}
