package command

import (
	"math"

	"github.com/skyfence/scenelink/internal/state"
	"github.com/skyfence/scenelink/pkg/geodesy"
	"github.com/skyfence/scenelink/pkg/telemetry"
)

// DefaultAirplaneScale is the display scale applied to rendered aircraft
// models when none is configured.
const DefaultAirplaneScale = 40.0

// Encoder renders store snapshots and domain events into commands. It is
// pure: no state beyond display settings, no I/O.
type Encoder struct {
	// AirplaneScale is the model scale sent with every rendered aircraft
	AirplaneScale float64
}

// NewEncoder returns an encoder with the given aircraft display scale,
// falling back to DefaultAirplaneScale when scale is not positive.
func NewEncoder(scale float64) *Encoder {
	if scale <= 0 {
		scale = DefaultAirplaneScale
	}
	return &Encoder{AirplaneScale: scale}
}

// TrackLines renders the entire retained track state. The protocol is
// full-refresh: every retained ID is re-emitted, not just the ones the
// latest batch touched. Classification metadata comes from the newest
// sample of each history.
func (e *Encoder) TrackLines(snap state.TrackSnapshot) ShowTrackLines {
	cmd := ShowTrackLines{
		Lines: make([]TrackLine, 0, len(snap.IDs)),
		IDs:   snap.IDs,
	}
	for _, id := range snap.IDs {
		history := snap.Histories[id]
		line := TrackLine{
			ID:        id,
			Positions: make([]geodesy.Point, len(history)),
			HeightsM:  make([]float64, len(history)),
		}
		for i, tr := range history {
			line.Positions[i] = tr.Position
			line.HeightsM[i] = tr.AltitudeM
		}
		latest := history[len(history)-1]
		line.Meta = TrackMeta{Type: latest.Type, Size: latest.Size, Threat: latest.Threat}
		cmd.Lines = append(cmd.Lines, line)
	}
	return cmd
}

// Airplanes renders the entire retained aircraft state. Only the aircraft
// whose sample was just applied carries computed orientation axes; every
// other aircraft is emitted with all axes unset, matching what the client
// expects. A nil prev (first sighting) leaves the touched aircraft's axes
// unset too.
func (e *Encoder) Airplanes(snap state.AirplaneSnapshot, touched telemetry.Airplane, prev *telemetry.Airplane) ShowAirplanes {
	cmd := ShowAirplanes{Airplanes: make([]AirplaneView, 0, len(snap.IDs))}
	for _, id := range snap.IDs {
		a := snap.Airplanes[id]
		view := AirplaneView{
			ID:       a.ID,
			Position: a.Position,
			HeightM:  a.AltitudeM,
			Scale:    e.AirplaneScale,
			Name:     a.Name,
		}
		if id == touched.ID && prev != nil {
			pitch, heading := Orientation(*prev, touched)
			view.RotateX = &pitch
			view.RotateZ = &heading
			// RotateY stays unset: there is no roll model
		}
		cmd.Airplanes = append(cmd.Airplanes, view)
	}
	return cmd
}

// Orientation derives the climb and heading axes from two consecutive
// samples. Pitch is atan2 of the altitude change over the geodesic ground
// distance; heading is the forward azimuth at the newer point.
func Orientation(prev, cur telemetry.Airplane) (pitchDeg, headingDeg float64) {
	sol := geodesy.Inverse(prev.Position, cur.Position)
	pitchDeg = math.Atan2(cur.AltitudeM-prev.AltitudeM, sol.DistanceM) * geodesy.RadiansToDegrees
	return pitchDeg, sol.FinalAzimuthDeg
}

// CuboidCorners derives the four ground corners of a cuboid zone. With
// deviation = atan2(width, length) and the half-diagonal as radius, the
// corner azimuths are rotation∓deviation and rotation+180∓deviation; the
// order is what the client consumes as a connected quadrilateral and must
// not change.
func CuboidCorners(z telemetry.CuboidZone) [4]geodesy.Point {
	deviation := math.Atan2(z.WidthM, z.LengthM) * geodesy.RadiansToDegrees
	halfDiagonal := math.Sqrt(z.LengthM*z.LengthM+z.WidthM*z.WidthM) / 2
	azimuths := [4]float64{
		z.RotationDeg - deviation,
		z.RotationDeg + deviation,
		z.RotationDeg + 180 - deviation,
		z.RotationDeg + 180 + deviation,
	}
	var corners [4]geodesy.Point
	for i, az := range azimuths {
		corners[i] = geodesy.Direct(z.Center, az, halfDiagonal)
	}
	return corners
}

// PolygonZone renders a polygon zone add/update.
func (e *Encoder) PolygonZone(z telemetry.PolygonZone, color telemetry.Color) AddPolygonZone {
	return AddPolygonZone{
		ID:      z.ID,
		Type:    z.Type,
		Rings:   z.Rings,
		HeightM: z.HeightM,
		Color:   color,
	}
}

// CylinderZone renders a cylinder zone add/update.
func (e *Encoder) CylinderZone(z telemetry.CylinderZone, color telemetry.Color) AddCylinderZone {
	return AddCylinderZone{
		ID:      z.ID,
		Type:    z.Type,
		Center:  z.Center,
		RadiusM: z.RadiusM,
		HeightM: z.HeightM,
		Color:   color,
	}
}

// CuboidZone renders a cuboid zone add/update with derived corners.
func (e *Encoder) CuboidZone(z telemetry.CuboidZone, color telemetry.Color) AddCuboidZone {
	return AddCuboidZone{
		ID:      z.ID,
		Type:    z.Type,
		Corners: CuboidCorners(z),
		HeightM: z.HeightM,
		Color:   color,
	}
}

// Device renders a device upsert.
func (e *Encoder) Device(d telemetry.Device) UpsertDevice {
	return UpsertDevice{
		ID:         d.ID,
		Type:       d.Type,
		Position:   d.Position,
		Name:       d.Name,
		Functional: d.Functional,
	}
}

// Staff renders a staff upsert.
func (e *Encoder) Staff(st telemetry.Staff) UpsertStaff {
	return UpsertStaff{
		ID:       st.ID,
		Position: st.Position,
		Name:     st.Name,
	}
}
