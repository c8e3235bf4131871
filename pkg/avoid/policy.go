// Package avoid maps a sensor snapshot to a steering decision. The
// policy is a pure function: no hardware, no state, fully unit
// testable. Unknown readings are treated as clear (the sensor saw
// nothing within range).
package avoid

import (
	"math"

	"github.com/tunnelworks/rover.go/pkg/ultrasonic"
)

// Decision is the steering outcome for one tick.
type Decision int

// Steering decisions.
const (
	Stop Decision = iota
	Forward
	Backward
	TurnLeft
	TurnRight
)

var decisionNames = map[Decision]string{
	Stop:      "stop",
	Forward:   "forward",
	Backward:  "backward",
	TurnLeft:  "turn_left",
	TurnRight: "turn_right",
}

// String implements fmt.Stringer.
func (d Decision) String() string {
	if s, ok := decisionNames[d]; ok {
		return s
	}
	return "unknown"
}

// Side selects a turn direction for tie-breaking.
type Side int

// Sides.
const (
	Left Side = iota
	Right
)

// Direction is the travel direction, selecting which sensor triad
// governs the decision.
type Direction int

// Travel directions.
const (
	Ahead Direction = iota
	Astern
)

// Policy holds the tunables of the avoidance decision.
type Policy struct {
	// ThresholdCM is the distance below which a reading counts as
	// an obstacle.
	ThresholdCM float64
	// DefaultSide breaks ties when both side clearances are equal
	// (including both Unknown).
	DefaultSide Side
}

// Decide maps a snapshot to a steering decision for the given travel
// direction:
//
//	center blocked        -> Stop (escape turn chosen by TurnAway)
//	near-side blocked     -> gentle turn away from it
//	otherwise             -> keep traveling
//
// Unknown readings never count as obstacles, so a snapshot of six
// Unknowns deterministically yields Forward (or Backward astern).
func (p Policy) Decide(snap ultrasonic.Snapshot, dir Direction) Decision {
	left, center, right := triad(snap, dir)
	switch {
	case center.Below(p.ThresholdCM):
		return Stop
	case left.Below(p.ThresholdCM):
		if dir == Astern {
			// Rotating left swings the rear away from a
			// rear-left obstacle.
			return TurnLeft
		}
		return TurnRight
	case right.Below(p.ThresholdCM):
		if dir == Astern {
			return TurnRight
		}
		return TurnLeft
	case dir == Astern:
		return Backward
	}
	return Forward
}

// TurnAway picks the escape turn after a Stop: toward whichever side
// reports the larger clearance, ties broken toward DefaultSide.
// Unknown counts as unlimited clearance.
func (p Policy) TurnAway(snap ultrasonic.Snapshot, dir Direction) Decision {
	left, _, right := triad(snap, dir)
	side := p.DefaultSide
	if lc, rc := clearance(left), clearance(right); lc > rc {
		side = Left
	} else if rc > lc {
		side = Right
	}
	if dir == Astern {
		// Astern the rear must swing toward the open side, which
		// reverses the rotation.
		if side == Left {
			return TurnRight
		}
		return TurnLeft
	}
	if side == Left {
		return TurnLeft
	}
	return TurnRight
}

func triad(snap ultrasonic.Snapshot, dir Direction) (left, center, right ultrasonic.Distance) {
	if dir == Astern {
		return snap.Rear()
	}
	return snap.Front()
}

func clearance(d ultrasonic.Distance) float64 {
	if !d.Known {
		return math.Inf(1)
	}
	return d.CM
}
