package command

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/skyfence/scenelink/internal/state"
	"github.com/skyfence/scenelink/pkg/geodesy"
	"github.com/skyfence/scenelink/pkg/telemetry"
)

func sample(id string, lng, lat float64, t int64) telemetry.Track {
	return telemetry.Track{
		ID:        id,
		Position:  geodesy.Point{Lng: lng, Lat: lat},
		AltitudeM: 120,
		TrackedAt: time.Unix(t, 0),
		Type:      "drone",
		Size:      "small",
	}
}

// TestTrackLinesFullRefresh applies two batches touching disjoint IDs and
// verifies the rendered command covers the union of retained histories.
func TestTrackLinesFullRefresh(t *testing.T) {
	store := state.NewStore()
	enc := NewEncoder(0)
	ttl := time.Minute

	store.ApplyTrackBatch([]telemetry.Track{sample("a", 113.31, 23.37, 100)}, ttl)
	snap := store.ApplyTrackBatch([]telemetry.Track{sample("b", 113.32, 23.38, 101)}, ttl)

	cmd := enc.TrackLines(snap)
	if len(cmd.Lines) != 2 {
		t.Fatalf("rendered %d lines, want 2 (full refresh)", len(cmd.Lines))
	}
	got := map[string]bool{}
	for _, line := range cmd.Lines {
		got[line.ID] = true
	}
	if !got["a"] || !got["b"] {
		t.Errorf("rendered IDs %v, want both a and b", got)
	}
}

func TestTrackLineGeometryMatchesHistory(t *testing.T) {
	store := state.NewStore()
	enc := NewEncoder(0)

	snap := store.ApplyTrackBatch([]telemetry.Track{
		sample("a", 113.31, 23.37, 100),
		sample("a", 113.32, 23.38, 101),
	}, time.Minute)

	cmd := enc.TrackLines(snap)
	if len(cmd.Lines) != 1 {
		t.Fatalf("rendered %d lines, want 1", len(cmd.Lines))
	}
	line := cmd.Lines[0]
	if len(line.Positions) != 2 || len(line.HeightsM) != 2 {
		t.Fatalf("line has %d positions / %d heights, want 2 each", len(line.Positions), len(line.HeightsM))
	}
	if line.Positions[0].Lng != 113.31 || line.Positions[1].Lng != 113.32 {
		t.Errorf("positions out of order: %v", line.Positions)
	}
	if line.Meta.Type != "drone" || line.Meta.Size != "small" {
		t.Errorf("meta = %+v", line.Meta)
	}
}

// TestAirplaneFirstSightingUnsetAxes: no previous sample means every axis
// is emitted as null.
func TestAirplaneFirstSightingUnsetAxes(t *testing.T) {
	store := state.NewStore()
	enc := NewEncoder(0)

	a := telemetry.Airplane{ID: "cz1", Position: geodesy.Point{Lng: 113.31, Lat: 23.37}, AltitudeM: 200, TrackedAt: time.Unix(100, 0), Name: "cz1"}
	prev, snap := store.ApplyAirplaneSample(a, 10*time.Second)

	cmd := enc.Airplanes(snap, a, prev)
	if len(cmd.Airplanes) != 1 {
		t.Fatalf("rendered %d airplanes, want 1", len(cmd.Airplanes))
	}
	view := cmd.Airplanes[0]
	if view.RotateX != nil || view.RotateY != nil || view.RotateZ != nil {
		t.Errorf("first sighting axes = %v %v %v, want all nil", view.RotateX, view.RotateY, view.RotateZ)
	}
	if view.Scale != DefaultAirplaneScale {
		t.Errorf("scale = %v, want default %v", view.Scale, DefaultAirplaneScale)
	}
}

// TestAirplaneOrientationCorrectness checks the emitted axes against the
// geodesic solver directly.
func TestAirplaneOrientationCorrectness(t *testing.T) {
	store := state.NewStore()
	enc := NewEncoder(0)
	ttl := time.Minute

	p1 := telemetry.Airplane{ID: "cz1", Position: geodesy.Point{Lng: 113.313181, Lat: 23.367334}, AltitudeM: 200, TrackedAt: time.Unix(100, 0), Name: "cz1"}
	p2 := telemetry.Airplane{ID: "cz1", Position: geodesy.Point{Lng: 113.315928, Lat: 23.377513}, AltitudeM: 400, TrackedAt: time.Unix(105, 0), Name: "cz1"}

	store.ApplyAirplaneSample(p1, ttl)
	prev, snap := store.ApplyAirplaneSample(p2, ttl)

	cmd := enc.Airplanes(snap, p2, prev)
	view := cmd.Airplanes[0]
	if view.RotateX == nil || view.RotateZ == nil {
		t.Fatal("expected computed axes for the touched aircraft")
	}
	if view.RotateY != nil {
		t.Errorf("rotateY = %v, want nil (no roll model)", *view.RotateY)
	}

	sol := geodesy.Inverse(p1.Position, p2.Position)
	wantPitch := math.Atan2(400-200, sol.DistanceM) * geodesy.RadiansToDegrees
	if math.Abs(*view.RotateX-wantPitch) > 1e-9 {
		t.Errorf("rotateX = %v, want %v", *view.RotateX, wantPitch)
	}
	if math.Abs(*view.RotateZ-sol.FinalAzimuthDeg) > 1e-9 {
		t.Errorf("rotateZ = %v, want %v", *view.RotateZ, sol.FinalAzimuthDeg)
	}
}

// TestAirplaneTouchedEntityPosePolicy: untouched aircraft are re-emitted
// with unset axes even when they had a derivable pose earlier.
func TestAirplaneTouchedEntityPosePolicy(t *testing.T) {
	store := state.NewStore()
	enc := NewEncoder(0)
	ttl := time.Minute

	other1 := telemetry.Airplane{ID: "other", Position: geodesy.Point{Lng: 113.30, Lat: 23.36}, TrackedAt: time.Unix(100, 0)}
	other2 := telemetry.Airplane{ID: "other", Position: geodesy.Point{Lng: 113.31, Lat: 23.37}, TrackedAt: time.Unix(101, 0)}
	store.ApplyAirplaneSample(other1, ttl)
	store.ApplyAirplaneSample(other2, ttl)

	touched1 := telemetry.Airplane{ID: "cz1", Position: geodesy.Point{Lng: 113.32, Lat: 23.38}, TrackedAt: time.Unix(102, 0)}
	touched2 := telemetry.Airplane{ID: "cz1", Position: geodesy.Point{Lng: 113.33, Lat: 23.39}, TrackedAt: time.Unix(103, 0)}
	store.ApplyAirplaneSample(touched1, ttl)
	prev, snap := store.ApplyAirplaneSample(touched2, ttl)

	cmd := enc.Airplanes(snap, touched2, prev)
	if len(cmd.Airplanes) != 2 {
		t.Fatalf("rendered %d airplanes, want 2 (full refresh)", len(cmd.Airplanes))
	}
	for _, view := range cmd.Airplanes {
		switch view.ID {
		case "cz1":
			if view.RotateX == nil || view.RotateZ == nil {
				t.Error("touched aircraft missing computed axes")
			}
		case "other":
			if view.RotateX != nil || view.RotateZ != nil {
				t.Error("untouched aircraft must be emitted with unset axes")
			}
		}
	}
}

// TestCuboidCornersSymmetry: for rotation=0 the corners form a rectangle
// symmetric about the center, each at the half-diagonal distance, at the
// specified azimuths, verified against the direct solver.
func TestCuboidCornersSymmetry(t *testing.T) {
	const length, width = 3800.0, 60.0
	zone := telemetry.CuboidZone{
		ID:      "runway-1",
		Type:    "danger",
		Center:  geodesy.Point{Lng: 113.31768691397997, Lat: 23.38354820915081},
		LengthM: length,
		WidthM:  width,
		HeightM: 100,
	}
	corners := CuboidCorners(zone)

	deviation := math.Atan2(width, length) * geodesy.RadiansToDegrees
	halfDiagonal := math.Sqrt(length*length+width*width) / 2
	wantAzimuths := [4]float64{
		geodesy.NormalizeAzimuth(-deviation),
		geodesy.NormalizeAzimuth(deviation),
		geodesy.NormalizeAzimuth(180 - deviation),
		geodesy.NormalizeAzimuth(180 + deviation),
	}

	for i, corner := range corners {
		want := geodesy.Direct(zone.Center, wantAzimuths[i], halfDiagonal)
		if math.Abs(corner.Lat-want.Lat) > 1e-9 || math.Abs(corner.Lng-want.Lng) > 1e-9 {
			t.Errorf("corner %d = %+v, want %+v", i, corner, want)
		}
		sol := geodesy.Inverse(zone.Center, corner)
		if math.Abs(sol.DistanceM-halfDiagonal) > 0.001 {
			t.Errorf("corner %d distance = %.4f, want %.4f", i, sol.DistanceM, halfDiagonal)
		}
	}

	// Opposite corners straddle the center: midpoints coincide with it.
	for _, pair := range [][2]int{{0, 2}, {1, 3}} {
		midLat := (corners[pair[0]].Lat + corners[pair[1]].Lat) / 2
		midLng := (corners[pair[0]].Lng + corners[pair[1]].Lng) / 2
		if math.Abs(midLat-zone.Center.Lat) > 1e-6 || math.Abs(midLng-zone.Center.Lng) > 1e-6 {
			t.Errorf("corners %v midpoint (%.8f, %.8f) not at center", pair, midLng, midLat)
		}
	}
}

// TestEncodeEnvelope verifies the wire form and that awkward characters in
// identifiers survive serialization untouched.
func TestEncodeEnvelope(t *testing.T) {
	cmd := UpsertDevice{
		ID:         `horn"1`,
		Type:       "horn",
		Position:   geodesy.Point{Lng: 113.306646, Lat: 23.383048},
		Name:       `loud "outdoor" horn`,
		Functional: true,
	}
	data, err := Encode(cmd)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var env struct {
		Command string          `json:"command"`
		Params  json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("envelope not valid JSON: %v", err)
	}
	if env.Command != "devices.upsert" {
		t.Errorf("command = %q, want devices.upsert", env.Command)
	}

	var params UpsertDevice
	if err := json.Unmarshal(env.Params, &params); err != nil {
		t.Fatalf("params not valid JSON: %v", err)
	}
	if params.ID != cmd.ID || params.Name != cmd.Name {
		t.Errorf("round-tripped params = %+v, want %+v", params, cmd)
	}
}

// TestEncodeNullAxes verifies unset rotation axes serialize to JSON null.
func TestEncodeNullAxes(t *testing.T) {
	heading := 42.0
	cmd := ShowAirplanes{Airplanes: []AirplaneView{{
		ID:      "cz1",
		RotateZ: &heading,
	}}}
	data, err := Encode(cmd)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"rotateX":null`) || !strings.Contains(s, `"rotateY":null`) {
		t.Errorf("unset axes not null in %s", s)
	}
	if !strings.Contains(s, `"rotateZ":42`) {
		t.Errorf("set axis missing from %s", s)
	}
}
