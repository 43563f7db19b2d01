// Package feed generates synthetic airfield telemetry so the bridge can
// be demonstrated without a live sensor backend. It drives a scene
// adaptor the same way a real telemetry consumer would.
package feed

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/skyfence/scenelink/pkg/geodesy"
	"github.com/skyfence/scenelink/pkg/scene"
)

// The demo plays out over a reference airfield.
var (
	fieldSouthWest = geodesy.Point{Lng: 113.27, Lat: 23.36}
	fieldNorthEast = geodesy.Point{Lng: 113.34, Lat: 23.42}
	fieldCenter    = geodesy.Point{Lng: 113.3172, Lat: 23.3835}
)

// Options configures a demo feed.
type Options struct {
	// UpdatesPerSecond paces track batches; defaults to 2
	UpdatesPerSecond float64

	// TrackCount is how many simulated intruders to fly; defaults to 3
	TrackCount int

	// Seed makes runs reproducible; 0 seeds from the clock
	Seed int64
}

// Feed drives an adaptor with generated telemetry.
type Feed struct {
	adaptor *scene.Adaptor
	limiter *rate.Limiter
	rng     *rand.Rand

	trackCount int
}

// New returns a feed for the adaptor.
func New(a *scene.Adaptor, opts Options) *Feed {
	if opts.UpdatesPerSecond <= 0 {
		opts.UpdatesPerSecond = 2
	}
	if opts.TrackCount <= 0 {
		opts.TrackCount = 3
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Feed{
		adaptor:    a,
		limiter:    rate.NewLimiter(rate.Limit(opts.UpdatesPerSecond), 1),
		rng:        rand.New(rand.NewSource(seed)),
		trackCount: opts.TrackCount,
	}
}

// Run plays the demo until ctx is canceled: a one-time scene setup, then
// paced telemetry updates.
func (f *Feed) Run(ctx context.Context) error {
	f.setupScene()

	tracks := f.spawnTracks()
	airplane := f.spawnAirplane()

	log.Printf("feed: demo running with %d tracks", len(tracks))

	for {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}

		now := time.Now()
		batch := make([]scene.Track, 0, len(tracks))
		for i := range tracks {
			tracks[i].step(f.rng, now)
			batch = append(batch, tracks[i].sample())
		}
		f.adaptor.UpdateTracks(ctx, batch)

		airplane.step(now)
		f.adaptor.UpdateAirplane(ctx, airplane.sample())
	}
}

// setupScene emits the static scenery: camera, devices, zones and staff.
func (f *Feed) setupScene() {
	f.adaptor.SetCenter(fieldCenter)
	f.adaptor.SetZooms(9, 18)
	f.adaptor.SetZoom(13)
	f.adaptor.SetPitch(45)
	f.adaptor.SetLimitBounds(fieldSouthWest, fieldNorthEast)

	f.adaptor.UpsertDevice(scene.Device{
		ID:         "radar-north",
		Type:       "radar",
		Position:   geodesy.Direct(fieldCenter, 10, 1800),
		Name:       "North perimeter radar",
		Functional: true,
	})
	f.adaptor.UpsertDevice(scene.Device{
		ID:         "jammer-east",
		Type:       "jammer",
		Position:   geodesy.Direct(fieldCenter, 95, 1500),
		Name:       "East jammer",
		Functional: true,
	})

	f.adaptor.AddCuboidZone(scene.CuboidZone{
		ID:          "runway-1",
		Type:        "danger",
		Center:      fieldCenter,
		LengthM:     3800,
		WidthM:      60,
		HeightM:     100,
		RotationDeg: 17,
	})
	f.adaptor.AddCylinderZone(scene.CylinderZone{
		ID:      "tower-guard",
		Type:    "protection",
		Center:  geodesy.Direct(fieldCenter, 250, 900),
		RadiusM: 400,
		HeightM: 150,
	})

	f.adaptor.UpsertStaff(scene.Staff{
		ID:       "patrol-1",
		Position: geodesy.Direct(fieldCenter, 180, 700),
		Name:     "Perimeter patrol",
	})
}

// demoTrack is a wandering intruder.
type demoTrack struct {
	id        string
	position  geodesy.Point
	altitudeM float64
	heading   float64
	trackedAt time.Time
}

func (f *Feed) spawnTracks() []demoTrack {
	tracks := make([]demoTrack, f.trackCount)
	for i := range tracks {
		tracks[i] = demoTrack{
			id:        fmt.Sprintf("demo-track-%d", i+1),
			position:  f.randomPoint(),
			altitudeM: 80 + f.rng.Float64()*120,
			heading:   f.rng.Float64() * 360,
		}
	}
	return tracks
}

func (f *Feed) randomPoint() geodesy.Point {
	return geodesy.Point{
		Lng: fieldSouthWest.Lng + f.rng.Float64()*(fieldNorthEast.Lng-fieldSouthWest.Lng),
		Lat: fieldSouthWest.Lat + f.rng.Float64()*(fieldNorthEast.Lat-fieldSouthWest.Lat),
	}
}

// step advances the track ~30 m with a small random heading change,
// bouncing back toward the field center at the boundary.
func (t *demoTrack) step(rng *rand.Rand, now time.Time) {
	t.heading = geodesy.NormalizeAzimuth(t.heading + (rng.Float64()-0.5)*30)
	next := geodesy.Direct(t.position, t.heading, 30)
	if next.Lng < fieldSouthWest.Lng || next.Lng > fieldNorthEast.Lng ||
		next.Lat < fieldSouthWest.Lat || next.Lat > fieldNorthEast.Lat {
		t.heading = geodesy.Inverse(t.position, fieldCenter).InitialAzimuthDeg
		next = geodesy.Direct(t.position, t.heading, 30)
	}
	t.position = next
	t.altitudeM = math.Max(20, t.altitudeM+(rng.Float64()-0.5)*10)
	t.trackedAt = now
}

func (t *demoTrack) sample() scene.Track {
	return scene.Track{
		ID:        t.id,
		Position:  t.position,
		AltitudeM: t.altitudeM,
		TrackedAt: t.trackedAt,
		Type:      "drone",
		Size:      "small",
	}
}

// demoAirplane flies a racetrack around the field.
type demoAirplane struct {
	position  geodesy.Point
	altitudeM float64
	heading   float64
	trackedAt time.Time
}

func (f *Feed) spawnAirplane() demoAirplane {
	return demoAirplane{
		position:  geodesy.Direct(fieldCenter, 197, 6000),
		altitudeM: 600,
		heading:   17,
	}
}

// step advances the aircraft ~80 m along a slowly turning path.
func (a *demoAirplane) step(now time.Time) {
	a.heading = geodesy.NormalizeAzimuth(a.heading + 1.5)
	a.position = geodesy.Direct(a.position, a.heading, 80)
	a.trackedAt = now
}

func (a *demoAirplane) sample() scene.Airplane {
	return scene.Airplane{
		ID:        "demo-cz1",
		Position:  a.position,
		AltitudeM: a.altitudeM,
		TrackedAt: a.trackedAt,
		Name:      "CZ-1 patrol",
	}
}
