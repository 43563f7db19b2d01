package state

import (
	"testing"
	"time"

	"github.com/skyfence/scenelink/pkg/geodesy"
	"github.com/skyfence/scenelink/pkg/telemetry"
)

func trackAt(id string, t int64) telemetry.Track {
	return telemetry.Track{
		ID:        id,
		Position:  geodesy.Point{Lng: 113.3, Lat: 23.4},
		TrackedAt: time.Unix(t, 0),
		Type:      "drone",
		Size:      "small",
	}
}

func airplaneAt(id string, t int64) telemetry.Airplane {
	return telemetry.Airplane{
		ID:        id,
		Position:  geodesy.Point{Lng: 113.3, Lat: 23.4},
		TrackedAt: time.Unix(t, 0),
		Name:      id,
	}
}

// TestTrackEvictionRelativeToBatch covers the concrete scenario from the
// eviction policy: a sample 6 seconds older than the newest batch timestamp
// is pruned under a 5 second window.
func TestTrackEvictionRelativeToBatch(t *testing.T) {
	s := NewStore()
	ttl := 5 * time.Second

	snap := s.ApplyTrackBatch([]telemetry.Track{trackAt("1", 100)}, ttl)
	if len(snap.Histories["1"]) != 1 {
		t.Fatalf("after first batch: history len = %d, want 1", len(snap.Histories["1"]))
	}

	snap = s.ApplyTrackBatch([]telemetry.Track{trackAt("1", 106)}, ttl)
	history := snap.Histories["1"]
	if len(history) != 1 {
		t.Fatalf("after second batch: history len = %d, want 1", len(history))
	}
	if got := history[0].TrackedAt.Unix(); got != 106 {
		t.Errorf("retained sample timestamp = %d, want 106", got)
	}
}

// TestTrackEvictionIsGlobal verifies that applying a batch for one ID
// evicts stale samples of every other ID, and that fully evicted IDs
// disappear from the snapshot.
func TestTrackEvictionIsGlobal(t *testing.T) {
	s := NewStore()
	ttl := 5 * time.Second

	s.ApplyTrackBatch([]telemetry.Track{trackAt("a", 100), trackAt("b", 101)}, ttl)
	snap := s.ApplyTrackBatch([]telemetry.Track{trackAt("b", 110)}, ttl)

	if _, ok := snap.Histories["a"]; ok {
		t.Errorf("id a should be absent after global eviction, got %v", snap.Histories["a"])
	}
	for _, id := range snap.IDs {
		if id == "a" {
			t.Error("id a still listed in snapshot order")
		}
	}
	if len(snap.Histories["b"]) != 1 || snap.Histories["b"][0].TrackedAt.Unix() != 110 {
		t.Errorf("id b history = %v, want only t=110", snap.Histories["b"])
	}
}

// TestTrackTTLProperty checks the retention invariant over a mixed batch:
// every retained sample is within ttl of the batch maximum.
func TestTrackTTLProperty(t *testing.T) {
	s := NewStore()
	ttl := 10 * time.Second

	s.ApplyTrackBatch([]telemetry.Track{
		trackAt("a", 98), trackAt("a", 101), trackAt("b", 99),
	}, ttl)
	snap := s.ApplyTrackBatch([]telemetry.Track{
		trackAt("a", 112), trackAt("c", 108),
	}, ttl)

	latest := int64(112)
	for id, history := range snap.Histories {
		if len(history) == 0 {
			t.Fatalf("id %s retained with empty history", id)
		}
		for _, tr := range history {
			if latest-tr.TrackedAt.Unix() > 10 {
				t.Errorf("id %s retained sample t=%d beyond ttl of latest %d",
					id, tr.TrackedAt.Unix(), latest)
			}
		}
	}
	// Everything from the first batch is more than 10s behind t=112, so
	// only a@112 and c@108 survive.
	if got := len(snap.Histories["a"]); got != 1 {
		t.Errorf("a history len = %d, want 1", got)
	}
	if got := snap.Histories["a"][0].TrackedAt.Unix(); got != 112 {
		t.Errorf("a retained t=%d, want 112", got)
	}
	if _, ok := snap.Histories["b"]; ok {
		t.Error("b should be fully evicted")
	}
	if got := len(snap.Histories["c"]); got != 1 {
		t.Errorf("c history len = %d, want 1", got)
	}
}

func TestTrackSnapshotOrderIsInsertionOrder(t *testing.T) {
	s := NewStore()
	ttl := time.Minute

	s.ApplyTrackBatch([]telemetry.Track{trackAt("z", 100), trackAt("a", 100)}, ttl)
	snap := s.ApplyTrackBatch([]telemetry.Track{trackAt("m", 101), trackAt("a", 101)}, ttl)

	want := []string{"z", "a", "m"}
	if len(snap.IDs) != len(want) {
		t.Fatalf("IDs = %v, want %v", snap.IDs, want)
	}
	for i := range want {
		if snap.IDs[i] != want[i] {
			t.Fatalf("IDs = %v, want %v", snap.IDs, want)
		}
	}
}

func TestEmptyTrackBatchIsNoop(t *testing.T) {
	s := NewStore()
	s.ApplyTrackBatch([]telemetry.Track{trackAt("a", 100)}, time.Minute)
	snap := s.ApplyTrackBatch(nil, time.Minute)
	if len(snap.Histories["a"]) != 1 {
		t.Errorf("empty batch changed the store: %v", snap.Histories)
	}
}

func TestAirplaneFirstSightingHasNoPrevious(t *testing.T) {
	s := NewStore()
	prev, snap := s.ApplyAirplaneSample(airplaneAt("cz1", 100), 10*time.Second)
	if prev != nil {
		t.Errorf("first sighting returned previous sample %+v", prev)
	}
	if len(snap.IDs) != 1 || snap.IDs[0] != "cz1" {
		t.Errorf("snapshot IDs = %v, want [cz1]", snap.IDs)
	}
}

func TestAirplanePreviousSampleReturned(t *testing.T) {
	s := NewStore()
	ttl := 10 * time.Second

	s.ApplyAirplaneSample(airplaneAt("cz1", 100), ttl)
	prev, snap := s.ApplyAirplaneSample(airplaneAt("cz1", 105), ttl)

	if prev == nil {
		t.Fatal("expected previous sample, got nil")
	}
	if prev.TrackedAt.Unix() != 100 {
		t.Errorf("previous sample t = %d, want 100", prev.TrackedAt.Unix())
	}
	if got := snap.Airplanes["cz1"].TrackedAt.Unix(); got != 105 {
		t.Errorf("stored sample t = %d, want 105", got)
	}
}

func TestAirplaneEvictionRelativeToIncoming(t *testing.T) {
	s := NewStore()
	ttl := 10 * time.Second

	s.ApplyAirplaneSample(airplaneAt("old", 100), ttl)
	s.ApplyAirplaneSample(airplaneAt("fresh", 108), ttl)
	_, snap := s.ApplyAirplaneSample(airplaneAt("new", 115), ttl)

	if _, ok := snap.Airplanes["old"]; ok {
		t.Error("old should be evicted (115-100 > 10)")
	}
	if _, ok := snap.Airplanes["fresh"]; !ok {
		t.Error("fresh should be retained (115-108 <= 10)")
	}
	if len(snap.IDs) != 2 {
		t.Errorf("snapshot IDs = %v, want two entries", snap.IDs)
	}
}
