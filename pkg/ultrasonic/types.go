// Package ultrasonic reads the rover's six HC-SR04 rangefinders and
// reports validated distances. A reading that times out or is
// physically implausible is reported as Unknown, never as a number.
package ultrasonic

import (
	"encoding/json"
	"time"
)

// Distance is one validated range reading in centimeters. The zero
// value is Unknown: a Distance with Known unset carries no numeric
// meaning and is serialized as null, distinct from 0.0.
type Distance struct {
	CM    float64
	Known bool
}

// CM creates a known Distance from centimeters.
func CM(v float64) Distance {
	return Distance{CM: v, Known: true}
}

// Unknown creates the sentinel for a missing reading.
func Unknown() Distance {
	return Distance{}
}

// Below reports whether the reading is known and closer than the
// threshold. Unknown never compares below anything.
func (d Distance) Below(thresholdCM float64) bool {
	return d.Known && d.CM < thresholdCM
}

// MarshalJSON serializes Unknown as null.
func (d Distance) MarshalJSON() ([]byte, error) {
	if !d.Known {
		return []byte("null"), nil
	}
	return json.Marshal(d.CM)
}

// UnmarshalJSON parses null as Unknown.
func (d *Distance) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Distance{}
		return nil
	}
	d.Known = true
	return json.Unmarshal(data, &d.CM)
}

// Position identifies one of the six mounted sensors.
type Position string

// Sensor positions, front triad and rear triad.
const (
	FrontLeft   Position = "front_left"
	FrontCenter Position = "front_center"
	FrontRight  Position = "front_right"
	RearLeft    Position = "rear_left"
	RearCenter  Position = "rear_center"
	RearRight   Position = "rear_right"
)

// Positions lists all sensors in read order. The order is fixed so
// trigger/echo cycles never overlap between sensors on the same tick.
var Positions = []Position{
	FrontLeft, FrontCenter, FrontRight,
	RearLeft, RearCenter, RearRight,
}

// Snapshot is the set of readings captured on one tick. It is
// immutable once constructed.
type Snapshot struct {
	FrontLeft   Distance  `json:"front_left"`
	FrontCenter Distance  `json:"front_center"`
	FrontRight  Distance  `json:"front_right"`
	RearLeft    Distance  `json:"rear_left"`
	RearCenter  Distance  `json:"rear_center"`
	RearRight   Distance  `json:"rear_right"`
	At          time.Time `json:"at"`
}

// Get returns the reading at a position.
func (s Snapshot) Get(pos Position) Distance {
	switch pos {
	case FrontLeft:
		return s.FrontLeft
	case FrontCenter:
		return s.FrontCenter
	case FrontRight:
		return s.FrontRight
	case RearLeft:
		return s.RearLeft
	case RearCenter:
		return s.RearCenter
	case RearRight:
		return s.RearRight
	}
	return Unknown()
}

func (s *Snapshot) set(pos Position, d Distance) {
	switch pos {
	case FrontLeft:
		s.FrontLeft = d
	case FrontCenter:
		s.FrontCenter = d
	case FrontRight:
		s.FrontRight = d
	case RearLeft:
		s.RearLeft = d
	case RearCenter:
		s.RearCenter = d
	case RearRight:
		s.RearRight = d
	}
}

// Front returns the forward-facing triad.
func (s Snapshot) Front() (left, center, right Distance) {
	return s.FrontLeft, s.FrontCenter, s.FrontRight
}

// Rear returns the rear-facing triad.
func (s Snapshot) Rear() (left, center, right Distance) {
	return s.RearLeft, s.RearCenter, s.RearRight
}
