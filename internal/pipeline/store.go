package pipeline

import (
	"sync"

	"github.com/epiforecast/epi-pipeline/internal/domain"
)

// seriesKey identifies one stream of results: a (source, location, target)
// triple. Selections of location or target race against in-flight builds, so
// results are sequence-tagged per key and stale completions are dropped.
type seriesKey struct {
	source   string
	location string
	target   domain.TargetKind
}

// resultStore keeps the newest completed Result per key and the sequence
// number of the newest issued request, so a slow older build can never
// overwrite a newer one.
type resultStore struct {
	mu      sync.Mutex
	issued  map[seriesKey]uint64
	results map[seriesKey]*Result
}

func newResultStore() *resultStore {
	return &resultStore{
		issued:  make(map[seriesKey]uint64),
		results: make(map[seriesKey]*Result),
	}
}

// issue registers a new request for the key and returns its sequence number.
// Issuing invalidates every earlier in-flight request for the same key.
func (s *resultStore) issue(k seriesKey) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[k]++
	return s.issued[k]
}

// complete records a finished result. It reports false, and stores nothing,
// when a newer request for the key was issued after seq.
func (s *resultStore) complete(k seriesKey, seq uint64, r *Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.issued[k] {
		return false
	}
	s.results[k] = r
	return true
}

// latest returns the newest completed result for the key, if any.
func (s *resultStore) latest(k seriesKey) (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[k]
	return r, ok
}
