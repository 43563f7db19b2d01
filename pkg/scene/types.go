// Package scene exposes the telemetry-to-display adaptor: the Adaptor
// facade turns domain updates into display commands for the remote
// visualization client. The domain types live in pkg/telemetry and are
// re-exported here so callers deal with one package.
package scene

import "github.com/skyfence/scenelink/pkg/telemetry"

type (
	Track        = telemetry.Track
	Device       = telemetry.Device
	Airplane     = telemetry.Airplane
	Staff        = telemetry.Staff
	Color        = telemetry.Color
	PolygonZone  = telemetry.PolygonZone
	CylinderZone = telemetry.CylinderZone
	CuboidZone   = telemetry.CuboidZone
)
