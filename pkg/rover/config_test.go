package rover

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tunnelworks/rover.go/pkg/avoid"
)

func writeConfig(t *testing.T, content string) string {
	fn := filepath.Join(t.TempDir(), "rover.yml")
	require.NoError(t, os.WriteFile(fn, []byte(content), 0600))
	return fn
}

func TestDefaults(t *testing.T) {
	c := Defaults()
	require.NoError(t, c.Validate())
	require.Equal(t, 50*time.Millisecond, c.Tick())
	require.Equal(t, 10.0, c.Tunnel.LengthM)
	require.Equal(t, 20.0, c.Obstacle.ThresholdCM)
	require.Equal(t, 0.15, c.Calibration.CruiseSpeedMS)
	require.Equal(t, 5*time.Second, c.Staleness())
	require.Equal(t, 30*time.Second, c.FlushEvery())

	side, err := c.Side()
	require.NoError(t, err)
	require.Equal(t, avoid.Left, side)
}

func TestLoadOverridesDefaults(t *testing.T) {
	fn := writeConfig(t, `
id: rover-7
tick_ms: 100
tunnel:
  length_m: 25
obstacle:
  threshold_cm: 35
  default_side: right
calibration:
  cruise_speed_ms: 0.25
  turn_rate_deg_s: 45
serial:
  device: /dev/ttyUSB0
mqtt:
  url: mqtt://broker:1883/rover/
db:
  path: /var/lib/rover/telemetry.db
`)
	c, err := Load(fn)
	require.NoError(t, err)
	require.Equal(t, "rover-7", c.ID)
	require.Equal(t, "rover-7", c.RoverID())
	require.Equal(t, 100*time.Millisecond, c.Tick())
	require.Equal(t, 25.0, c.Tunnel.LengthM)
	require.Equal(t, 35.0, c.Obstacle.ThresholdCM)
	require.Equal(t, "/dev/ttyUSB0", c.Serial.Device)
	require.Equal(t, "mqtt://broker:1883/rover/", c.MQTT.URL)

	side, err := c.Side()
	require.NoError(t, err)
	require.Equal(t, avoid.Right, side)

	// Untouched sections keep their defaults.
	require.Equal(t, 0.3, c.Tunnel.ReturnToleranceM)
	require.Equal(t, "rover/command", c.MQTT.CommandTopic)
	require.Equal(t, 50, c.DB.BatchSize)

	cal := c.NavCalibration()
	require.Equal(t, 0.25, cal.CruiseSpeed)
	require.InDelta(t, math.Pi/4, cal.TurnRate, 1e-9)
}

func TestLoadRejectsInvalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "tick_ms: [oops"},
		{name: "zero tick", content: "tick_ms: 0"},
		{name: "negative tunnel", content: "tunnel:\n  length_m: -1"},
		{name: "tolerance beyond tunnel", content: "tunnel:\n  length_m: 2\n  return_tolerance_m: 3"},
		{name: "zero threshold", content: "obstacle:\n  threshold_cm: 0"},
		{name: "bad side", content: "obstacle:\n  default_side: up"},
		{name: "zero cruise", content: "calibration:\n  cruise_speed_ms: 0"},
		{name: "zero sensor timeout", content: "sensors:\n  timeout_ms: 0"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
}

func TestRoverIDFallback(t *testing.T) {
	var c Config
	id := c.RoverID()
	require.NotEmpty(t, id)
	require.Contains(t, id, "rover")
	// Stable across calls.
	require.Equal(t, id, c.RoverID())
}
