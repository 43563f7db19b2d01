// Package state holds the short-lived aggregated telemetry the bridge
// renders from: per-ID track histories and latest-known aircraft samples,
// both evicted relative to the newest timestamp seen, not wall time.
package state

import (
	"sync"
	"time"

	"github.com/skyfence/scenelink/pkg/telemetry"
)

// Store aggregates track and aircraft samples between display refreshes.
// All mutation happens under an internal lock, so domain methods may be
// called from any goroutine.
type Store struct {
	mu sync.Mutex

	tracks     map[string][]telemetry.Track
	trackOrder []string

	airplanes     map[string]telemetry.Airplane
	airplaneOrder []string
}

// TrackSnapshot is the retained track state after a batch was applied.
// IDs preserves first-insertion order; every listed ID has a non-empty
// history.
type TrackSnapshot struct {
	IDs       []string
	Histories map[string][]telemetry.Track
}

// AirplaneSnapshot is the retained aircraft state after a sample was
// applied, in first-insertion order.
type AirplaneSnapshot struct {
	IDs       []string
	Airplanes map[string]telemetry.Airplane
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		tracks:    make(map[string][]telemetry.Track),
		airplanes: make(map[string]telemetry.Airplane),
	}
}

// ApplyTrackBatch appends each sample to its ID's history, then evicts
// every retained sample older than ttl relative to the newest timestamp in
// the batch. Eviction runs over the whole store, not just the IDs the
// batch touched; IDs whose history empties are removed entirely. Returns
// the resulting snapshot.
//
// An empty batch leaves the store untouched.
func (s *Store) ApplyTrackBatch(batch []telemetry.Track, ttl time.Duration) TrackSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(batch) == 0 {
		return s.trackSnapshotLocked()
	}

	latest := batch[0].TrackedAt
	for _, tr := range batch {
		if _, ok := s.tracks[tr.ID]; !ok {
			s.trackOrder = append(s.trackOrder, tr.ID)
		}
		s.tracks[tr.ID] = append(s.tracks[tr.ID], tr)
		if tr.TrackedAt.After(latest) {
			latest = tr.TrackedAt
		}
	}

	order := s.trackOrder[:0]
	for _, id := range s.trackOrder {
		history := s.tracks[id]
		kept := history[:0]
		for _, tr := range history {
			if latest.Sub(tr.TrackedAt) <= ttl {
				kept = append(kept, tr)
			}
		}
		if len(kept) == 0 {
			delete(s.tracks, id)
			continue
		}
		s.tracks[id] = kept
		order = append(order, id)
	}
	s.trackOrder = order

	return s.trackSnapshotLocked()
}

// ApplyAirplaneSample records the sample as the new latest for its ID and
// returns the previous sample, or nil on first sighting. Afterwards every
// aircraft whose retained sample is older than ttl relative to the incoming
// sample's timestamp is evicted.
func (s *Store) ApplyAirplaneSample(sample telemetry.Airplane, ttl time.Duration) (*telemetry.Airplane, AirplaneSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prev *telemetry.Airplane
	if last, ok := s.airplanes[sample.ID]; ok {
		p := last
		prev = &p
	} else {
		s.airplaneOrder = append(s.airplaneOrder, sample.ID)
	}
	s.airplanes[sample.ID] = sample

	order := s.airplaneOrder[:0]
	for _, id := range s.airplaneOrder {
		if sample.TrackedAt.Sub(s.airplanes[id].TrackedAt) > ttl {
			delete(s.airplanes, id)
			continue
		}
		order = append(order, id)
	}
	s.airplaneOrder = order

	return prev, s.airplaneSnapshotLocked()
}

// TrackSnapshot returns the current retained track state.
func (s *Store) TrackSnapshot() TrackSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackSnapshotLocked()
}

// AirplaneSnapshot returns the current retained aircraft state.
func (s *Store) AirplaneSnapshot() AirplaneSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.airplaneSnapshotLocked()
}

func (s *Store) trackSnapshotLocked() TrackSnapshot {
	snap := TrackSnapshot{
		IDs:       append([]string(nil), s.trackOrder...),
		Histories: make(map[string][]telemetry.Track, len(s.tracks)),
	}
	for id, history := range s.tracks {
		snap.Histories[id] = append([]telemetry.Track(nil), history...)
	}
	return snap
}

func (s *Store) airplaneSnapshotLocked() AirplaneSnapshot {
	snap := AirplaneSnapshot{
		IDs:       append([]string(nil), s.airplaneOrder...),
		Airplanes: make(map[string]telemetry.Airplane, len(s.airplanes)),
	}
	for id, a := range s.airplanes {
		snap.Airplanes[id] = a
	}
	return snap
}
