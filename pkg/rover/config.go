// Package rover holds the daemon configuration: one YAML file mapping
// onto the tunables of every subsystem, validated up front so a rover
// never starts on numbers it cannot navigate by.
package rover

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/denisbrodbeck/machineid"
	yaml "gopkg.in/yaml.v3"

	"github.com/tunnelworks/rover.go/pkg/avoid"
	"github.com/tunnelworks/rover.go/pkg/nav"
	"github.com/tunnelworks/rover.go/pkg/store"
	"github.com/tunnelworks/rover.go/pkg/telemetry"
	"github.com/tunnelworks/rover.go/pkg/ultrasonic"
)

// Config is the daemon configuration file.
type Config struct {
	// ID names the rover in topics and logs. Empty derives one from
	// the machine id.
	ID string `yaml:"id"`

	// TickMS is the control loop interval in milliseconds.
	TickMS int `yaml:"tick_ms"`

	Tunnel struct {
		LengthM          float64 `yaml:"length_m"`
		ReturnToleranceM float64 `yaml:"return_tolerance_m"`
	} `yaml:"tunnel"`

	Obstacle struct {
		ThresholdCM float64 `yaml:"threshold_cm"`
		// DefaultSide breaks escape-turn ties: "left" or "right".
		DefaultSide string `yaml:"default_side"`
	} `yaml:"obstacle"`

	Calibration struct {
		CruiseSpeedMS  float64 `yaml:"cruise_speed_ms"`
		TurnRateDegS   float64 `yaml:"turn_rate_deg_s"`
		GentleTurnDegS float64 `yaml:"gentle_turn_rate_deg_s"`
	} `yaml:"calibration"`

	Sensors struct {
		TimeoutMS  int     `yaml:"timeout_ms"`
		MaxRangeCM float64 `yaml:"max_range_cm"`
	} `yaml:"sensors"`

	Hub struct {
		Capacity int `yaml:"capacity"`
	} `yaml:"hub"`

	Serial struct {
		Device string `yaml:"device"`
		Baud   int    `yaml:"baud"`
	} `yaml:"serial"`

	MQTT struct {
		// URL like mqtt://host:1883/prefix. Empty disables MQTT.
		URL            string `yaml:"url"`
		EnvTopic       string `yaml:"env_topic"`
		CommandTopic   string `yaml:"command_topic"`
		TelemetryTopic string `yaml:"telemetry_topic"`
		StalenessMS    int    `yaml:"staleness_ms"`
	} `yaml:"mqtt"`

	HTTP struct {
		// Addr like ":8080". Empty disables the dashboard API.
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	DB struct {
		// Path of the SQLite file. Empty disables persistence.
		Path      string `yaml:"path"`
		BatchSize int    `yaml:"batch_size"`
		FlushSecs int    `yaml:"flush_secs"`
	} `yaml:"db"`
}

// Defaults returns a Config prefilled with the stock tunnel run
// parameters.
func Defaults() Config {
	var c Config
	c.TickMS = 50
	c.Tunnel.LengthM = 10
	c.Tunnel.ReturnToleranceM = 0.3
	c.Obstacle.ThresholdCM = 20
	c.Obstacle.DefaultSide = "left"
	c.Calibration.CruiseSpeedMS = 0.15
	c.Calibration.TurnRateDegS = 90
	c.Calibration.GentleTurnDegS = 30
	c.Sensors.TimeoutMS = int(ultrasonic.DefaultTimeout / time.Millisecond)
	c.Sensors.MaxRangeCM = ultrasonic.DefaultMaxRangeCM
	c.Hub.Capacity = telemetry.DefaultCapacity
	c.Serial.Baud = 115200
	c.MQTT.EnvTopic = "env/sample"
	c.MQTT.CommandTopic = "rover/command"
	c.MQTT.TelemetryTopic = "rover/telemetry"
	c.MQTT.StalenessMS = 5000
	c.DB.BatchSize = store.DefaultBatchSize
	c.DB.FlushSecs = int(store.DefaultFlushEvery / time.Second)
	return c
}

// Load reads fn over Defaults and validates the result.
func Load(fn string) (Config, error) {
	c := Defaults()
	data, err := os.ReadFile(fn)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", fn, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%s: %w", fn, err)
	}
	return c, nil
}

// Validate rejects configurations the machine would refuse anyway,
// plus file-level faults the machine never sees.
func (c *Config) Validate() error {
	if c.TickMS <= 0 {
		return fmt.Errorf("tick_ms must be positive, got %d", c.TickMS)
	}
	if c.Tunnel.LengthM <= 0 {
		return fmt.Errorf("tunnel length_m must be positive, got %v", c.Tunnel.LengthM)
	}
	if c.Tunnel.ReturnToleranceM <= 0 || c.Tunnel.ReturnToleranceM >= c.Tunnel.LengthM {
		return fmt.Errorf("tunnel return_tolerance_m must be in (0, length_m), got %v",
			c.Tunnel.ReturnToleranceM)
	}
	if c.Obstacle.ThresholdCM <= 0 {
		return fmt.Errorf("obstacle threshold_cm must be positive, got %v", c.Obstacle.ThresholdCM)
	}
	if _, err := c.Side(); err != nil {
		return err
	}
	if err := c.NavCalibration().Validate(); err != nil {
		return err
	}
	if c.Sensors.TimeoutMS <= 0 {
		return fmt.Errorf("sensors timeout_ms must be positive, got %d", c.Sensors.TimeoutMS)
	}
	if c.Sensors.MaxRangeCM <= 0 {
		return fmt.Errorf("sensors max_range_cm must be positive, got %v", c.Sensors.MaxRangeCM)
	}
	return nil
}

// Side parses obstacle.default_side.
func (c *Config) Side() (avoid.Side, error) {
	switch c.Obstacle.DefaultSide {
	case "", "left":
		return avoid.Left, nil
	case "right":
		return avoid.Right, nil
	}
	return avoid.Left, fmt.Errorf("obstacle default_side must be left or right, got %q",
		c.Obstacle.DefaultSide)
}

// NavCalibration converts the file units (degrees per second) into the
// machine's radians.
func (c *Config) NavCalibration() nav.Calibration {
	return nav.Calibration{
		CruiseSpeed:    c.Calibration.CruiseSpeedMS,
		TurnRate:       c.Calibration.TurnRateDegS * math.Pi / 180,
		GentleTurnRate: c.Calibration.GentleTurnDegS * math.Pi / 180,
	}
}

// Tick returns the loop interval.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

// SensorTimeout returns the per-sensor read budget.
func (c *Config) SensorTimeout() time.Duration {
	return time.Duration(c.Sensors.TimeoutMS) * time.Millisecond
}

// Staleness returns the environmental sample expiry.
func (c *Config) Staleness() time.Duration {
	return time.Duration(c.MQTT.StalenessMS) * time.Millisecond
}

// FlushEvery returns the persistence flush interval.
func (c *Config) FlushEvery() time.Duration {
	return time.Duration(c.DB.FlushSecs) * time.Second
}

// RoverID returns the configured ID, falling back to a machine-derived
// one, then to the hostname.
func (c *Config) RoverID() string {
	if c.ID != "" {
		return c.ID
	}
	if id, err := machineid.ProtectedID("tunnelworks-rover"); err == nil && len(id) >= 8 {
		return "rover-" + id[:8]
	}
	if host, err := os.Hostname(); err == nil {
		return "rover-" + host
	}
	return "rover"
}
