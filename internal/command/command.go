// Package command defines the closed set of display commands the bridge
// sends to the visualization client, and renders them from domain events
// and store snapshots.
//
// Commands are plain tagged structs; nothing in here touches the network.
// Serialization to the wire envelope happens once, in Encode, so ids and
// names with awkward characters survive intact instead of being spliced
// into call text.
package command

import (
	"encoding/json"
	"fmt"

	"github.com/skyfence/scenelink/pkg/geodesy"
	"github.com/skyfence/scenelink/pkg/telemetry"
)

// Command is a single display instruction. Op identifies the frontend
// operation; the command value itself carries the parameters.
type Command interface {
	Op() string
}

// envelope is the wire form of a command.
type envelope struct {
	Command string      `json:"command"`
	Params  interface{} `json:"params"`
}

// Encode serializes a command to its wire envelope.
func Encode(c Command) ([]byte, error) {
	data, err := json.Marshal(envelope{Command: c.Op(), Params: c})
	if err != nil {
		return nil, fmt.Errorf("encode %s command: %w", c.Op(), err)
	}
	return data, nil
}

// Map and camera commands.

type SetCenter struct {
	Center geodesy.Point `json:"center"`
}

func (SetCenter) Op() string { return "map.setCenter" }

type SetZooms struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (SetZooms) Op() string { return "map.setZooms" }

type SetZoom struct {
	Zoom float64 `json:"zoom"`
}

func (SetZoom) Op() string { return "map.setZoom" }

type SetPitch struct {
	Pitch float64 `json:"pitch"`
}

func (SetPitch) Op() string { return "map.setPitch" }

type SetLimitBounds struct {
	SouthWest geodesy.Point `json:"southWest"`
	NorthEast geodesy.Point `json:"northEast"`
}

func (SetLimitBounds) Op() string { return "map.setLimitBounds" }

// Device commands.

type UpsertDevice struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	Position   geodesy.Point `json:"position"`
	Name       string        `json:"name"`
	Functional bool          `json:"functional"`
}

func (UpsertDevice) Op() string { return "devices.upsert" }

type SetDeviceVisibilityByType struct {
	Type    string `json:"type"`
	Visible bool   `json:"visible"`
}

func (SetDeviceVisibilityByType) Op() string { return "devices.setVisibilityByType" }

// Zone commands. Every add carries a per-call RGBA tint.

type AddPolygonZone struct {
	ID      string            `json:"id"`
	Type    string            `json:"type"`
	Rings   [][]geodesy.Point `json:"rings"`
	HeightM float64           `json:"heightInMeter"`
	Color   telemetry.Color   `json:"color"`
}

func (AddPolygonZone) Op() string { return "zones.addPolygon" }

type AddCylinderZone struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Center  geodesy.Point   `json:"center"`
	RadiusM float64         `json:"radiusInMeter"`
	HeightM float64         `json:"heightInMeter"`
	Color   telemetry.Color `json:"color"`
}

func (AddCylinderZone) Op() string { return "zones.addCylinder" }

// AddCuboidZone carries the four derived ground corners, in the exact
// order the client connects them into a quadrilateral.
type AddCuboidZone struct {
	ID      string           `json:"id"`
	Type    string           `json:"type"`
	Corners [4]geodesy.Point `json:"corners"`
	HeightM float64          `json:"heightInMeter"`
	Color   telemetry.Color  `json:"color"`
}

func (AddCuboidZone) Op() string { return "zones.addCuboid" }

type SetZoneVisibilityByType struct {
	Type    string `json:"type"`
	Visible bool   `json:"visible"`
}

func (SetZoneVisibilityByType) Op() string { return "zones.setVisibilityByType" }

type SetZoneVisibility struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Visible bool   `json:"visible"`
}

func (SetZoneVisibility) Op() string { return "zones.setVisibility" }

type SetZonesVisibility struct {
	Types   []string `json:"types"`
	IDs     []string `json:"ids"`
	Visible bool     `json:"visible"`
}

func (SetZonesVisibility) Op() string { return "zones.setVisibilityByTypesAndIDs" }

// Staff commands.

type UpsertStaff struct {
	ID       string        `json:"id"`
	Position geodesy.Point `json:"position"`
	Name     string        `json:"name"`
}

func (UpsertStaff) Op() string { return "staff.upsert" }

type SetStaffVisibility struct {
	Visible bool `json:"visible"`
}

func (SetStaffVisibility) Op() string { return "staff.setVisibility" }

// Track commands.

// TrackMeta is the static classification metadata echoed with a rendered
// track line.
type TrackMeta struct {
	Type   string `json:"type"`
	Size   string `json:"size"`
	Threat string `json:"threat,omitempty"`
}

// TrackLine is one object's full retained history as a polyline.
type TrackLine struct {
	ID        string          `json:"id"`
	Positions []geodesy.Point `json:"positions"`
	HeightsM  []float64       `json:"heightsInMeter"`
	Meta      TrackMeta       `json:"extraInfo"`
}

// ShowTrackLines is a full-refresh render of every retained history.
type ShowTrackLines struct {
	Lines []TrackLine `json:"lines"`
	IDs   []string    `json:"ids"`
}

func (ShowTrackLines) Op() string { return "trackLines.show" }

type SetTrackMarkerVisibility struct {
	Visible bool `json:"visible"`
}

func (SetTrackMarkerVisibility) Op() string { return "trackLines.setMarkerVisibility" }

// Aircraft commands.

// AirplaneView is one rendered aircraft. Nil rotation axes serialize to
// null, which the client reads as "pose unknown".
type AirplaneView struct {
	ID       string        `json:"id"`
	Position geodesy.Point `json:"position"`
	HeightM  float64       `json:"heightInMeter"`
	Scale    float64       `json:"scale"`
	RotateX  *float64      `json:"rotateX"`
	RotateY  *float64      `json:"rotateY"`
	RotateZ  *float64      `json:"rotateZ"`
	Name     string        `json:"name"`
}

// ShowAirplanes is a full-refresh render of every retained aircraft.
type ShowAirplanes struct {
	Airplanes []AirplaneView `json:"airplanes"`
}

func (ShowAirplanes) Op() string { return "airplanes.show" }
