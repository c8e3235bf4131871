// Package nav owns the rover's navigation state machine: the
// manual/automatic mode axis, the mission phase, and the per-tick
// read-decide-actuate-publish cycle driving the motors through the
// tunnel and back.
package nav

import (
	"fmt"
)

// Mode is the control mode axis, independent of Phase.
type Mode int

// Control modes.
const (
	Manual Mode = iota
	Automatic
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == Automatic {
		return "automatic"
	}
	return "manual"
}

// Phase is the mission phase. Transitions are owned exclusively by
// the Machine.
type Phase int

// Mission phases.
const (
	Idle Phase = iota
	Forward
	Reverse
	Complete
)

var phaseNames = map[Phase]string{
	Idle:     "idle",
	Forward:  "forward",
	Reverse:  "reverse",
	Complete: "complete",
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

// Op identifies an operator command.
type Op string

// Operator commands. Each is applied atomically against the machine
// state during the control stage of a tick.
const (
	OpSetOrigin    Op = "set_origin"
	OpToggleMode   Op = "toggle_mode"
	OpStart        Op = "start"
	OpMoveForward  Op = "forward"
	OpMoveBackward Op = "backward"
	OpTurnLeft     Op = "turn_left"
	OpTurnRight    Op = "turn_right"
	OpStop         Op = "stop"
	OpQuit         Op = "quit"
)

// Command is an operator command message posted into the loop.
type Command struct {
	Op Op `json:"op"`
}

// Valid reports whether the op is one the machine understands.
func (c Command) Valid() bool {
	switch c.Op {
	case OpSetOrigin, OpToggleMode, OpStart, OpMoveForward,
		OpMoveBackward, OpTurnLeft, OpTurnRight, OpStop, OpQuit:
		return true
	}
	return false
}

// Actuator applies velocity commands to the drive hardware. Apply
// with (0, 0) is an immediate stop. The machine never depends on
// actuation succeeding: errors are logged and the next tick issues a
// freshly derived command.
type Actuator interface {
	Apply(linear, turnRate float64) error
}

// Calibration holds the measured motion constants for the drive train
// at its commanded PWM level. There are no encoders; these constants
// are the whole basis of dead-reckoning and must come from
// configuration, not code.
type Calibration struct {
	// CruiseSpeed is the straight-line speed in m/s.
	CruiseSpeed float64
	// TurnRate is the pivot turn rate in rad/s.
	TurnRate float64
	// GentleTurnRate is the course-adjust turn rate in rad/s,
	// applied while still moving.
	GentleTurnRate float64
}

// Validate rejects non-positive constants. A rover with an invalid
// calibration must not enter Automatic mode.
func (c Calibration) Validate() error {
	if c.CruiseSpeed <= 0 {
		return fmt.Errorf("cruise speed must be positive, got %v", c.CruiseSpeed)
	}
	if c.TurnRate <= 0 {
		return fmt.Errorf("turn rate must be positive, got %v", c.TurnRate)
	}
	if c.GentleTurnRate <= 0 {
		return fmt.Errorf("gentle turn rate must be positive, got %v", c.GentleTurnRate)
	}
	return nil
}
