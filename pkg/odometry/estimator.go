// Package odometry estimates the rover pose by dead-reckoning:
// integrating commanded velocity and turn rate over elapsed time.
// There are no encoders; accuracy depends on how well the calibrated
// speed constants match the hardware and degrades with wheel slip.
package odometry

import (
	"time"

	"github.com/tunnelworks/rover.go/pkg/geo"
)

// Integrate advances a pose by the commanded motion over elapsed time.
// Translation uses the heading at the start of the interval, then the
// heading is advanced by turnRate. Pure function of its inputs.
func Integrate(pose geo.Pose2D, linear, turnRate float64, elapsed time.Duration) geo.Pose2D {
	secs := elapsed.Seconds()
	if linear != 0 {
		pose.Pos2D.OffsetBy(pose.Heading.Project(linear * secs))
	}
	if turnRate != 0 {
		pose.Heading = pose.Heading.AddRadians(turnRate * secs)
	}
	return pose
}

// Estimator accumulates the integrated pose across control ticks and
// tracks the mission origin. The pose is updated once per tick by the
// navigation machine and is never reset; SetOrigin only re-bases the
// point distances are measured from.
type Estimator struct {
	pose   geo.Pose2D
	origin geo.Pos2D
}

// New creates an Estimator at the zero pose with the origin there.
func New() *Estimator {
	return &Estimator{}
}

// Pose returns the current estimated pose.
func (e *Estimator) Pose() geo.Pose2D {
	return e.pose
}

// Integrate advances the pose by the commanded motion.
func (e *Estimator) Integrate(linear, turnRate float64, elapsed time.Duration) geo.Pose2D {
	e.pose = Integrate(e.pose, linear, turnRate, elapsed)
	return e.pose
}

// SetOrigin marks the current position as the mission origin. The
// heading is left untouched: the rover keeps its notion of direction
// and only the reference point for traveled distance moves.
func (e *Estimator) SetOrigin() {
	e.origin = e.pose.Pos2D
}

// DistanceFromOrigin is the straight-line distance from the origin.
func (e *Estimator) DistanceFromOrigin() float64 {
	return e.origin.DistanceTo(e.pose.Pos2D)
}
