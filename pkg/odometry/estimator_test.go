package odometry

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tunnelworks/rover.go/pkg/geo"
)

func TestIntegrateStraight(t *testing.T) {
	e := New()
	// Cruise at 0.2 m/s for 50 seconds, one tick per 50ms.
	for i := 0; i < 1000; i++ {
		e.Integrate(0.2, 0, 50*time.Millisecond)
	}
	require.InDelta(t, 10, e.Pose().X, 1e-6)
	require.InDelta(t, 0, e.Pose().Y, 1e-6)
	require.InDelta(t, 10, e.DistanceFromOrigin(), 1e-6)
}

func TestIntegratePivot(t *testing.T) {
	e := New()
	e.Integrate(0, math.Pi/2, time.Second)
	pose := e.Pose()
	require.InDelta(t, math.Pi/2, pose.Heading.Radians(), 1e-9)
	// Pivoting moves nothing.
	require.Equal(t, geo.Pos2D{}, pose.Pos2D)

	// Now heading +90: cruising moves along Y.
	e.Integrate(1, 0, 2*time.Second)
	require.InDelta(t, 0, e.Pose().X, 1e-9)
	require.InDelta(t, 2, e.Pose().Y, 1e-9)
}

func TestIntegrateTranslatesBeforeTurning(t *testing.T) {
	// Translation uses the heading at the start of the interval.
	pose := Integrate(geo.Pose2D{}, 1, math.Pi, time.Second)
	require.InDelta(t, 1, pose.X, 1e-9)
	require.InDelta(t, 0, pose.Y, 1e-9)
	require.InDelta(t, math.Pi, pose.Heading.Radians(), 1e-9)
}

func TestSetOrigin(t *testing.T) {
	e := New()
	e.Integrate(1, 0, 3*time.Second)
	require.InDelta(t, 3, e.DistanceFromOrigin(), 1e-9)

	before := e.Pose()
	e.SetOrigin()
	require.InDelta(t, 0, e.DistanceFromOrigin(), 1e-9)
	// Re-basing moves only the reference point, never the pose.
	require.Equal(t, before, e.Pose())

	e.Integrate(-1, 0, time.Second)
	require.InDelta(t, 1, e.DistanceFromOrigin(), 1e-9)
}
