// Package telemetry defines the domain objects the backend observes:
// tracks, devices, zones, staff and cooperative aircraft. It sits at the
// bottom of the import graph so both the aggregation internals and the
// public scene facade can share the same types.
package telemetry

import (
	"time"

	"github.com/skyfence/scenelink/pkg/geodesy"
)

// Track is a single observation of an aerial or ground object. Tracks with
// the same ID accumulate into a history that is rendered as a polyline.
type Track struct {
	// ID identifies the tracked object across observations
	ID string

	// Position is the observed lng/lat in decimal degrees
	Position geodesy.Point

	// AltitudeM is the observed altitude in meters
	AltitudeM float64

	// TrackedAt is when the sample was observed
	TrackedAt time.Time

	// Type is the sensor classification (e.g. "drone", "bird").
	// Opaque to the bridge; echoed to the client as-is.
	Type string

	// Size is the sensor size class (e.g. "small", "large")
	Size string

	// Threat is the threat level where the sensor provides one; empty
	// otherwise
	Threat string
}

// Device is a fixed sensor or effector shown on the map. Devices have no
// retained history; each upsert replaces the displayed state.
type Device struct {
	ID         string
	Type       string
	Position   geodesy.Point
	Name       string
	Functional bool
}

// Airplane is a single observation of a cooperative aircraft. Only the
// latest sample per ID is retained, plus the previous one for deriving
// orientation.
type Airplane struct {
	ID        string
	Position  geodesy.Point
	AltitudeM float64
	TrackedAt time.Time
	Name      string
}

// Staff is a person shown on the map; upsert-only, like Device.
type Staff struct {
	ID       string
	Position geodesy.Point
	Name     string
}

// Color is an RGBA tint with components in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// PolygonZone is a zone bounded by one or more closed rings of lng/lat
// vertices, extruded to a height.
type PolygonZone struct {
	ID      string
	Type    string
	Rings   [][]geodesy.Point
	HeightM float64
}

// CylinderZone is a parametric zone footprint: a circle around a center,
// extruded to a height.
type CylinderZone struct {
	ID      string
	Type    string
	Center  geodesy.Point
	RadiusM float64
	HeightM float64
}

// CuboidZone is a parametric zone footprint: an axis-aligned rectangle of
// LengthM by WidthM around a center, rotated RotationDeg clockwise from
// true north and extruded to a height. The four ground corners are derived
// geodesically when the zone is rendered.
type CuboidZone struct {
	ID          string
	Type        string
	Center      geodesy.Point
	LengthM     float64
	WidthM      float64
	HeightM     float64
	RotationDeg float64
}
