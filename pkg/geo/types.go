// Package geo provides the plane geometry primitives used by odometry
// and navigation: positions, poses and normalized angles.
package geo

import "math"

// Pos2D defines the position in 2D, in meters.
type Pos2D struct {
	X, Y float64
}

// Pose2D defines the pose in 2D: a position plus a heading.
type Pose2D struct {
	Pos2D
	Heading Angle
}

// Angle is the common representation of angle, stored in radians
// normalized to (-pi, pi].
type Angle float64

// Add is a helper to add Pos2D.
func (p Pos2D) Add(p1 Pos2D) Pos2D {
	return Pos2D{X: p.X + p1.X, Y: p.Y + p1.Y}
}

// OffsetBy performs Add in-place.
func (p *Pos2D) OffsetBy(p1 Pos2D) *Pos2D {
	p.X += p1.X
	p.Y += p1.Y
	return p
}

// DistanceTo computes the straight-line distance to another position.
func (p Pos2D) DistanceTo(p1 Pos2D) float64 {
	dx, dy := p1.X-p.X, p1.Y-p.Y
	return math.Sqrt(dx*dx + dy*dy)
}
