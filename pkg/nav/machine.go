package nav

import (
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/tunnelworks/rover.go/pkg/avoid"
	"github.com/tunnelworks/rover.go/pkg/envlink"
	fx "github.com/tunnelworks/rover.go/pkg/framework"
	"github.com/tunnelworks/rover.go/pkg/odometry"
	"github.com/tunnelworks/rover.go/pkg/telemetry"
	"github.com/tunnelworks/rover.go/pkg/ultrasonic"
)

// MachineConfig assembles a Machine. Array, Actuator and Hub are
// required; Estimator defaults to a fresh one and Env to a permanently
// down link.
type MachineConfig struct {
	Array     *ultrasonic.Array
	Actuator  Actuator
	Estimator *odometry.Estimator
	Policy    avoid.Policy
	Env       envlink.Source
	Hub       *telemetry.Hub

	Calibration      Calibration
	TunnelLengthM    float64
	ReturnToleranceM float64

	// StatusEvery spaces the periodic status log line. Zero keeps
	// the 5s default.
	StatusEvery time.Duration

	// QuitFunc is invoked when the operator sends quit.
	QuitFunc func()
}

// Machine is the navigation state machine. It holds the exclusive
// references to the sensor array and the actuator; all of its state
// is confined to the control loop goroutine and mutated only through
// loop stages and posted commands.
type Machine struct {
	cfg MachineConfig

	array     *ultrasonic.Array
	actuator  Actuator
	estimator *odometry.Estimator
	policy    avoid.Policy
	env       envlink.Source
	hub       *telemetry.Hub

	mode  Mode
	phase Phase

	// tick state
	snap       ultrasonic.Snapshot
	decision   avoid.Decision
	decided    string
	cmdLinear  float64
	cmdTurn    float64
	prevLinear float64
	prevTurn   float64
	lastApply  time.Time
	halted     bool

	lastStatus time.Time
}

// ErrNotConfigured indicates a missing required collaborator.
var ErrNotConfigured = errors.New("nav: array, actuator and hub are required")

// NewMachine validates the configuration and creates the Machine.
// Configuration faults are fatal here: a machine never starts with
// calibration it cannot navigate by.
func NewMachine(cfg MachineConfig) (*Machine, error) {
	if cfg.Array == nil || cfg.Actuator == nil || cfg.Hub == nil {
		return nil, ErrNotConfigured
	}
	if err := cfg.Calibration.Validate(); err != nil {
		return nil, err
	}
	if cfg.TunnelLengthM <= 0 {
		return nil, errors.New("nav: tunnel length must be positive")
	}
	if cfg.ReturnToleranceM <= 0 || cfg.ReturnToleranceM >= cfg.TunnelLengthM {
		return nil, errors.New("nav: return tolerance must be positive and below tunnel length")
	}
	if cfg.Policy.ThresholdCM <= 0 {
		return nil, errors.New("nav: obstacle threshold must be positive")
	}
	m := &Machine{
		cfg:       cfg,
		array:     cfg.Array,
		actuator:  cfg.Actuator,
		estimator: cfg.Estimator,
		policy:    cfg.Policy,
		env:       cfg.Env,
		hub:       cfg.Hub,
		mode:      Manual,
		phase:     Idle,
	}
	if m.estimator == nil {
		m.estimator = odometry.New()
	}
	if m.env == nil {
		m.env = envlink.Down{}
	}
	return m, nil
}

// Mode returns the control mode. Loop-confined; callers outside the
// loop should observe mode through published records.
func (m *Machine) Mode() Mode { return m.mode }

// Phase returns the mission phase. Loop-confined like Mode.
func (m *Machine) Phase() Phase { return m.phase }

// Estimator exposes the pose estimator the machine integrates into.
func (m *Machine) Estimator() *odometry.Estimator { return m.estimator }

// AddToLoop registers the four stages of the tick cycle.
func (m *Machine) AddToLoop(l *fx.Loop) {
	l.AddController(fx.StageSense, fx.ControlFunc(m.sense))
	l.AddController(fx.StageControl, fx.ControlFunc(m.control))
	l.AddController(fx.StageActuate, fx.ControlFunc(m.actuate))
	l.AddController(fx.StagePublish, fx.ControlFunc(m.publish))
}

// Halt commands an immediate motor stop. Used on shutdown paths.
func (m *Machine) Halt() error {
	return m.actuator.Apply(0, 0)
}

func (m *Machine) sense(cc fx.ControlContext) error {
	m.snap = m.array.Read(cc.Context())
	return nil
}

func (m *Machine) control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		if cmd, ok := mc.CurrentMessage().(Command); ok {
			mc.MessageTaken()
			m.apply(cmd)
		}
	}))
	if m.mode == Automatic {
		m.navigate()
	}
	return nil
}

// apply executes one operator command against the current state.
func (m *Machine) apply(cmd Command) {
	switch cmd.Op {
	case OpSetOrigin:
		m.estimator.SetOrigin()
		glog.Infof("origin set at (%.2f, %.2f)",
			m.estimator.Pose().X, m.estimator.Pose().Y)
	case OpToggleMode:
		if m.mode == Manual {
			m.mode = Automatic
			glog.Info("control mode: automatic")
		} else {
			m.mode = Manual
			m.phase = Idle
			m.stopMotion()
			glog.Info("control mode: manual")
		}
	case OpStart:
		if m.mode != Automatic {
			glog.Warning("start ignored in manual mode")
			return
		}
		if m.phase == Idle || m.phase == Complete {
			m.phase = Forward
			m.halted = false
			glog.Infof("mission start: forward, tunnel %.1fm", m.cfg.TunnelLengthM)
		}
	case OpStop:
		m.stopMotion()
		if m.mode == Automatic {
			m.phase = Idle
		}
		m.decided = "stop"
	case OpQuit:
		m.stopMotion()
		if fn := m.cfg.QuitFunc; fn != nil {
			fn()
		}
	case OpMoveForward, OpMoveBackward, OpTurnLeft, OpTurnRight:
		if m.mode != Manual {
			glog.Warningf("%s ignored in automatic mode", cmd.Op)
			return
		}
		m.manualDrive(cmd.Op)
	default:
		glog.Warningf("unknown command %q", cmd.Op)
	}
}

func (m *Machine) manualDrive(op Op) {
	cal := m.cfg.Calibration
	switch op {
	case OpMoveForward:
		m.cmdLinear, m.cmdTurn = cal.CruiseSpeed, 0
	case OpMoveBackward:
		m.cmdLinear, m.cmdTurn = -cal.CruiseSpeed, 0
	case OpTurnLeft:
		m.cmdLinear, m.cmdTurn = 0, cal.TurnRate
	case OpTurnRight:
		m.cmdLinear, m.cmdTurn = 0, -cal.TurnRate
	}
	m.decided = string(op)
}

func (m *Machine) stopMotion() {
	m.cmdLinear, m.cmdTurn = 0, 0
	m.halted = false
}

// navigate runs one automatic step: phase transitions on traveled
// distance, then the avoidance decision for the active phase.
func (m *Machine) navigate() {
	dist := m.estimator.DistanceFromOrigin()

	switch m.phase {
	case Forward:
		if dist >= m.cfg.TunnelLengthM {
			glog.Infof("reached tunnel end (%.2fm), reversing on rear sensors", dist)
			m.phase = Reverse
			m.stopMotion()
			m.decision = avoid.Stop
			m.decided = m.decision.String()
			return
		}
	case Reverse:
		if dist <= m.cfg.ReturnToleranceM {
			glog.Infof("returned to origin (%.2fm), mission complete", dist)
			m.phase = Complete
			m.stopMotion()
			m.decision = avoid.Stop
			m.decided = m.decision.String()
			return
		}
	default:
		m.stopMotion()
		m.decision = avoid.Stop
		m.decided = m.decision.String()
		return
	}

	dir := avoid.Ahead
	if m.phase == Reverse {
		dir = avoid.Astern
	}

	d := m.policy.Decide(m.snap, dir)
	if d == avoid.Stop {
		if m.halted {
			// Already stopped in front of the obstacle; pivot
			// toward the larger clearance until the center
			// clears.
			d = m.policy.TurnAway(m.snap, dir)
		}
		m.halted = true
	} else {
		m.halted = false
	}
	m.decision = d
	m.decided = d.String()

	cal := m.cfg.Calibration
	cruise := cal.CruiseSpeed
	if m.phase == Reverse {
		cruise = -cruise
	}
	switch d {
	case avoid.Forward:
		m.cmdLinear, m.cmdTurn = cal.CruiseSpeed, 0
	case avoid.Backward:
		m.cmdLinear, m.cmdTurn = -cal.CruiseSpeed, 0
	case avoid.TurnLeft:
		if m.halted {
			m.cmdLinear, m.cmdTurn = 0, cal.TurnRate
		} else {
			m.cmdLinear, m.cmdTurn = cruise/2, cal.GentleTurnRate
		}
	case avoid.TurnRight:
		if m.halted {
			m.cmdLinear, m.cmdTurn = 0, -cal.TurnRate
		} else {
			m.cmdLinear, m.cmdTurn = cruise/2, -cal.GentleTurnRate
		}
	default:
		m.cmdLinear, m.cmdTurn = 0, 0
	}
}

// actuate integrates the previously commanded motion over the elapsed
// interval, then applies the fresh command. Actuator faults are
// absorbed: the next tick derives a fresh command anyway.
func (m *Machine) actuate(cc fx.ControlContext) error {
	now := cc.Time()
	if !m.lastApply.IsZero() {
		m.estimator.Integrate(m.prevLinear, m.prevTurn, now.Sub(m.lastApply))
	}
	if err := m.actuator.Apply(m.cmdLinear, m.cmdTurn); err != nil {
		glog.Errorf("actuator: %v", err)
	}
	m.prevLinear, m.prevTurn = m.cmdLinear, m.cmdTurn
	m.lastApply = now
	return nil
}

// publish assembles the tick's record from the same-tick pose and
// snapshot and hands it to the hub. The hub never blocks.
func (m *Machine) publish(cc fx.ControlContext) error {
	rec := telemetry.Record{
		At:        cc.Time(),
		Pose:      telemetry.PoseFrom(m.estimator.Pose()),
		DistanceM: m.estimator.DistanceFromOrigin(),
		Ranges:    m.snap,
		Mode:      m.mode.String(),
		Phase:     m.phase.String(),
		Decision:  m.decided,
	}
	if sample, ok := m.env.Latest(); ok {
		env := sample
		rec.Env = &env
		rec.LinkUp = true
	}
	m.hub.Publish(rec)

	statusEvery := m.cfg.StatusEvery
	if statusEvery <= 0 {
		statusEvery = 5 * time.Second
	}
	if cc.Time().Sub(m.lastStatus) >= statusEvery {
		m.lastStatus = cc.Time()
		pose := m.estimator.Pose()
		glog.Infof("[%s/%s] pos (%.2f, %.2f) heading %.1f° distance %.2fm",
			m.mode, m.phase, pose.X, pose.Y,
			pose.Heading.Degrees(), rec.DistanceM)
	}
	return nil
}
