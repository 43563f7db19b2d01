package scene

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/skyfence/scenelink/internal/channel"
	"github.com/skyfence/scenelink/internal/command"
	"github.com/skyfence/scenelink/internal/dispatch"
	"github.com/skyfence/scenelink/internal/state"
	"github.com/skyfence/scenelink/pkg/geodesy"
)

// DefaultTrackTTL is the retention window for track histories when none
// is configured.
const DefaultTrackTTL = 5 * time.Second

// DefaultAirplaneTTL is the retention window for aircraft samples when
// none is configured.
const DefaultAirplaneTTL = 10 * time.Second

// DefaultZoneColor is the tint applied to every zone the adaptor adds.
var DefaultZoneColor = Color{R: 0, G: 0.47, B: 0.95, A: 0.35}

// TrackSink receives telemetry for long-term storage. Sink failures are
// logged, never surfaced: archival must not disturb the display path.
type TrackSink interface {
	SaveTrackBatch(ctx context.Context, batch []Track) error
	SaveAirplaneSample(ctx context.Context, sample Airplane) error
}

// Options configures an Adaptor. The zero value gets defaults.
type Options struct {
	// TrackTTL is how long a track sample is retained past the newest
	// observation in its batch
	TrackTTL time.Duration

	// AirplaneTTL is the retention window for aircraft samples
	AirplaneTTL time.Duration

	// AirplaneScale is the display scale for rendered aircraft models
	AirplaneScale float64

	// ZoneColor overrides DefaultZoneColor when non-nil
	ZoneColor *Color

	// Sink, when set, receives every applied track batch and aircraft
	// sample for archival
	Sink TrackSink
}

// Adaptor is the facade the backend drives. Domain updates go in; display
// commands come out on the WebSocket the visualization client holds open.
// All methods are safe for concurrent use and never block on the client:
// commands queue until a viewer is attached.
type Adaptor struct {
	store      *state.Store
	enc        *command.Encoder
	channel    *channel.Channel
	dispatcher *dispatch.Dispatcher

	trackTTL    time.Duration
	airplaneTTL time.Duration
	zoneColor   Color
	sink        TrackSink
}

// NewAdaptor builds an adaptor with the given options.
func NewAdaptor(opts Options) *Adaptor {
	if opts.TrackTTL <= 0 {
		opts.TrackTTL = DefaultTrackTTL
	}
	if opts.AirplaneTTL <= 0 {
		opts.AirplaneTTL = DefaultAirplaneTTL
	}
	zoneColor := DefaultZoneColor
	if opts.ZoneColor != nil {
		zoneColor = *opts.ZoneColor
	}

	d := dispatch.NewDispatcher()
	return &Adaptor{
		store:       state.NewStore(),
		enc:         command.NewEncoder(opts.AirplaneScale),
		channel:     channel.New(d),
		dispatcher:  d,
		trackTTL:    opts.TrackTTL,
		airplaneTTL: opts.AirplaneTTL,
		zoneColor:   zoneColor,
		sink:        opts.Sink,
	}
}

// Handler returns the WebSocket endpoint the visualization client
// connects to.
func (a *Adaptor) Handler() http.Handler {
	return a.channel
}

// PendingCommands reports how many commands await delivery.
func (a *Adaptor) PendingCommands() int {
	return a.channel.PendingLen()
}

// Connected reports whether a viewer is currently attached.
func (a *Adaptor) Connected() bool {
	return a.channel.State() == channel.StateConnected
}

// Close shuts down the adaptor's connection handling.
func (a *Adaptor) Close() {
	a.channel.Close()
}

// Camera control.

// SetCenter recenters the viewer's camera.
func (a *Adaptor) SetCenter(center geodesy.Point) {
	a.channel.Enqueue(command.SetCenter{Center: center})
}

// SetZooms bounds the viewer's zoom range.
func (a *Adaptor) SetZooms(min, max float64) {
	a.channel.Enqueue(command.SetZooms{Min: min, Max: max})
}

// SetZoom sets the viewer's zoom level.
func (a *Adaptor) SetZoom(zoom float64) {
	a.channel.Enqueue(command.SetZoom{Zoom: zoom})
}

// SetPitch sets the viewer's camera pitch in degrees.
func (a *Adaptor) SetPitch(pitchDeg float64) {
	a.channel.Enqueue(command.SetPitch{Pitch: pitchDeg})
}

// SetLimitBounds confines panning to a lng/lat rectangle.
func (a *Adaptor) SetLimitBounds(southWest, northEast geodesy.Point) {
	a.channel.Enqueue(command.SetLimitBounds{SouthWest: southWest, NorthEast: northEast})
}

// Tracks.

// UpdateTracks applies a batch of track observations and re-renders the
// retained track state. An empty batch changes nothing and emits nothing.
func (a *Adaptor) UpdateTracks(ctx context.Context, batch []Track) {
	if len(batch) == 0 {
		return
	}
	snap := a.store.ApplyTrackBatch(batch, a.trackTTL)
	a.channel.Enqueue(a.enc.TrackLines(snap))

	if a.sink != nil {
		if err := a.sink.SaveTrackBatch(ctx, batch); err != nil {
			log.Printf("scene: archiving track batch failed: %v", err)
		}
	}
}

// SetTrackMarkerVisibility toggles the head markers on rendered tracks.
func (a *Adaptor) SetTrackMarkerVisibility(visible bool) {
	a.channel.Enqueue(command.SetTrackMarkerVisibility{Visible: visible})
}

// Aircraft.

// UpdateAirplane applies one aircraft observation and re-renders the
// retained aircraft state. Orientation is derived from the previous sample
// of the same aircraft; on first sighting the pose is sent as unknown.
func (a *Adaptor) UpdateAirplane(ctx context.Context, sample Airplane) {
	prev, snap := a.store.ApplyAirplaneSample(sample, a.airplaneTTL)
	a.channel.Enqueue(a.enc.Airplanes(snap, sample, prev))

	if a.sink != nil {
		if err := a.sink.SaveAirplaneSample(ctx, sample); err != nil {
			log.Printf("scene: archiving airplane sample failed: %v", err)
		}
	}
}

// Devices.

// UpsertDevice adds or replaces a device marker.
func (a *Adaptor) UpsertDevice(d Device) {
	a.channel.Enqueue(a.enc.Device(d))
}

// SetDeviceVisibilityByType shows or hides all devices of one type.
func (a *Adaptor) SetDeviceVisibilityByType(deviceType string, visible bool) {
	a.channel.Enqueue(command.SetDeviceVisibilityByType{Type: deviceType, Visible: visible})
}

// Zones.

// AddPolygonZone adds or replaces a polygon zone.
func (a *Adaptor) AddPolygonZone(z PolygonZone) {
	a.channel.Enqueue(a.enc.PolygonZone(z, a.zoneColor))
}

// AddCylinderZone adds or replaces a cylinder zone.
func (a *Adaptor) AddCylinderZone(z CylinderZone) {
	a.channel.Enqueue(a.enc.CylinderZone(z, a.zoneColor))
}

// AddCuboidZone adds or replaces a cuboid zone. The four ground corners
// are derived geodesically from the center, dimensions and rotation.
func (a *Adaptor) AddCuboidZone(z CuboidZone) {
	a.channel.Enqueue(a.enc.CuboidZone(z, a.zoneColor))
}

// SetZoneVisibilityByType shows or hides all zones of one type.
func (a *Adaptor) SetZoneVisibilityByType(zoneType string, visible bool) {
	a.channel.Enqueue(command.SetZoneVisibilityByType{Type: zoneType, Visible: visible})
}

// SetZoneVisibility shows or hides a single zone.
func (a *Adaptor) SetZoneVisibility(zoneType, id string, visible bool) {
	a.channel.Enqueue(command.SetZoneVisibility{Type: zoneType, ID: id, Visible: visible})
}

// SetZonesVisibility shows or hides multiple zones in one command.
func (a *Adaptor) SetZonesVisibility(zoneTypes, ids []string, visible bool) {
	a.channel.Enqueue(command.SetZonesVisibility{Types: zoneTypes, IDs: ids, Visible: visible})
}

// Staff.

// UpsertStaff adds or replaces a staff marker.
func (a *Adaptor) UpsertStaff(st Staff) {
	a.channel.Enqueue(a.enc.Staff(st))
}

// SetStaffVisibility shows or hides all staff markers.
func (a *Adaptor) SetStaffVisibility(visible bool) {
	a.channel.Enqueue(command.SetStaffVisibility{Visible: visible})
}

// Inbound events.

// OnDeviceClicked registers a callback for device clicks in the viewer.
// A nil callback unregisters. Clicks whose payload cannot be parsed are
// dropped.
func (a *Adaptor) OnDeviceClicked(fn func(deviceID string)) {
	if fn == nil {
		a.dispatcher.Register(dispatch.EventDeviceClicked, nil)
		return
	}
	a.dispatcher.Register(dispatch.EventDeviceClicked, func(data json.RawMessage) {
		var payload struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &payload); err != nil || payload.ID == "" {
			log.Printf("scene: dropping device click with bad payload: %v", err)
			return
		}
		fn(payload.ID)
	})
}
