// Package telemetry decouples the control loop from its observers.
// The loop publishes one Record per tick into a bounded Hub; the web
// dashboard, the persistence sink and the MQTT forwarder consume from
// the Hub at their own pace without ever slowing the loop down.
package telemetry

import (
	"time"

	"github.com/tunnelworks/rover.go/pkg/geo"
	"github.com/tunnelworks/rover.go/pkg/ultrasonic"
)

// Pose is the serialized dead-reckoned pose, meters and radians.
type Pose struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
}

// PoseFrom converts a geometry pose.
func PoseFrom(p geo.Pose2D) Pose {
	return Pose{X: p.X, Y: p.Y, Heading: p.Heading.Radians()}
}

// EnvSample carries one reading from the environmental sensor peer.
// Field names mirror the peer's JSON payload.
type EnvSample struct {
	CO2      float64 `json:"co2"`
	VOC      float64 `json:"voc"`
	TempC    float64 `json:"temp"`
	Humidity float64 `json:"hum"`
	AccelX   float64 `json:"ax"`
	AccelY   float64 `json:"ay"`
	AccelZ   float64 `json:"az"`
	GyroX    float64 `json:"gx"`
	GyroY    float64 `json:"gy"`
	GyroZ    float64 `json:"gz"`
}

// Record is one published telemetry sample. Pose and Ranges are
// captured on the same tick; a Record is immutable once published.
// Env is nil whenever the environmental link is down or stale, which
// keeps "no data" distinct from zero readings.
type Record struct {
	Seq       uint64              `json:"seq"`
	At        time.Time           `json:"at"`
	Pose      Pose                `json:"pose"`
	DistanceM float64             `json:"distance_m"`
	Ranges    ultrasonic.Snapshot `json:"ranges"`
	Env       *EnvSample          `json:"env,omitempty"`
	LinkUp    bool                `json:"link_up"`
	Mode      string              `json:"mode"`
	Phase     string              `json:"phase"`
	Decision  string              `json:"decision"`
}
