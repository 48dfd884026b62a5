package server

import (
	"sync"
	"time"

	"github.com/chazu/ember/ir"
)

// unit is a compiled stream kept so that later runs can refer to it by ID.
type unit struct {
	id       string
	seq      ir.Sequence
	lastUsed time.Time
}

// UnitStore maps compilation unit IDs to their instruction streams.
type UnitStore struct {
	mu    sync.RWMutex
	units map[string]*unit
}

// NewUnitStore creates an empty store.
func NewUnitStore() *UnitStore {
	return &UnitStore{units: make(map[string]*unit)}
}

// Put registers seq under id, replacing any previous stream.
func (s *UnitStore) Put(id string, seq ir.Sequence) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.units[id] = &unit{id: id, seq: seq, lastUsed: time.Now()}
}

// Lookup returns the stream registered under id.
func (s *UnitStore) Lookup(id string) (ir.Sequence, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.units[id]
	if !ok {
		return nil, false
	}
	u.lastUsed = time.Now()
	return u.seq, true
}

// Release forgets id.
func (s *UnitStore) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.units, id)
}

// Len returns the number of registered units.
func (s *UnitStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.units)
}

// Sweep removes units that haven't been used within the TTL.
func (s *UnitStore) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for id, u := range s.units {
		if u.lastUsed.Before(cutoff) {
			delete(s.units, id)
			removed++
		}
	}
	if removed > 0 {
		log.Debugf("swept %d idle units", removed)
	}
	return removed
}

// StartSweeper runs periodic TTL sweeps in the background.
// Returns a stop function.
func (s *UnitStore) StartSweeper(interval, ttl time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				s.Sweep(ttl)
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
