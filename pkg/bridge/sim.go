package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/tunnelworks/rover.go/pkg/ultrasonic"
)

// Sim is an in-memory bridge for desk runs and tests: the actuator
// records the last commanded velocities and the sensors report
// scripted distances.
type Sim struct {
	mu      sync.Mutex
	linear  float64
	turn    float64
	applies int
	ranges  map[ultrasonic.Position]float64
}

// NewSim creates a Sim with an open corridor: side walls at 60cm,
// nothing ahead or behind within range.
func NewSim() *Sim {
	return &Sim{
		ranges: map[ultrasonic.Position]float64{
			ultrasonic.FrontLeft:   60,
			ultrasonic.FrontCenter: 350,
			ultrasonic.FrontRight:  60,
			ultrasonic.RearLeft:    60,
			ultrasonic.RearCenter:  350,
			ultrasonic.RearRight:   60,
		},
	}
}

// Apply implements nav.Actuator.
func (s *Sim) Apply(linear, turnRate float64) error {
	s.mu.Lock()
	s.linear, s.turn = linear, turnRate
	s.applies++
	s.mu.Unlock()
	glog.V(3).Infof("sim: apply linear=%.3f turn=%.3f", linear, turnRate)
	return nil
}

// Velocity returns the last applied command.
func (s *Sim) Velocity() (linear, turnRate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linear, s.turn
}

// Applies counts Apply calls.
func (s *Sim) Applies() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applies
}

// Set scripts the distance reported at a position. Negative removes
// the sensor (reads become Unknown).
func (s *Sim) Set(pos ultrasonic.Position, cm float64) {
	s.mu.Lock()
	if cm < 0 {
		delete(s.ranges, pos)
	} else {
		s.ranges[pos] = cm
	}
	s.mu.Unlock()
}

// Sensor returns the scripted rangefinder at a position.
func (s *Sim) Sensor(pos ultrasonic.Position) ultrasonic.Sensor {
	return ultrasonic.MeasureFunc(func(ctx context.Context) (float64, error) {
		s.mu.Lock()
		cm, ok := s.ranges[pos]
		s.mu.Unlock()
		if !ok {
			return 0, fmt.Errorf("sensor %s absent", pos)
		}
		return cm, nil
	})
}

// Sensors returns all six scripted rangefinders.
func (s *Sim) Sensors() map[ultrasonic.Position]ultrasonic.Sensor {
	sensors := make(map[ultrasonic.Position]ultrasonic.Sensor, len(ultrasonic.Positions))
	for _, pos := range ultrasonic.Positions {
		sensors[pos] = s.Sensor(pos)
	}
	return sensors
}
