package ultrasonic

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// Sensor measures one distance in centimeters. Measure must honor
// context cancellation; a measurement outlasting the context is
// abandoned by the Array.
type Sensor interface {
	Measure(ctx context.Context) (cm float64, err error)
}

// MeasureFunc is the func form of Sensor.
type MeasureFunc func(ctx context.Context) (float64, error)

// Measure implements Sensor.
func (f MeasureFunc) Measure(ctx context.Context) (float64, error) {
	return f(ctx)
}

// Array polls the six mounted sensors. Sensors are read sequentially
// in the fixed Positions order so no two trigger/echo cycles share a
// wait window on the same tick.
type Array struct {
	// Timeout bounds each individual sensor read.
	Timeout time.Duration
	// MaxRangeCM is the sensor's rated range. Readings beyond it,
	// and readings at or below zero, become Unknown.
	MaxRangeCM float64

	sensors map[Position]Sensor
}

const (
	// DefaultTimeout is the per-sensor read budget.
	DefaultTimeout = 30 * time.Millisecond
	// DefaultMaxRangeCM is the HC-SR04 rated range.
	DefaultMaxRangeCM = 400.0
)

// NewArray creates an Array over the given sensors. Positions without
// a sensor always read Unknown.
func NewArray(sensors map[Position]Sensor) *Array {
	return &Array{
		Timeout:    DefaultTimeout,
		MaxRangeCM: DefaultMaxRangeCM,
		sensors:    sensors,
	}
}

// Read captures a fresh Snapshot. A failed or implausible reading on
// one sensor never fails the snapshot; it is recorded as Unknown.
func (a *Array) Read(ctx context.Context) Snapshot {
	snap := Snapshot{At: time.Now()}
	for _, pos := range Positions {
		sensor := a.sensors[pos]
		if sensor == nil {
			continue
		}
		snap.set(pos, a.readOne(ctx, pos, sensor))
	}
	return snap
}

func (a *Array) readOne(ctx context.Context, pos Position, sensor Sensor) Distance {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	mctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cm, err := sensor.Measure(mctx)
	if err != nil {
		glog.V(2).Infof("sensor %s: %v", pos, err)
		return Unknown()
	}
	if cm <= 0 || cm > a.MaxRangeCM {
		glog.V(2).Infof("sensor %s: implausible reading %.1fcm", pos, cm)
		return Unknown()
	}
	return CM(cm)
}
