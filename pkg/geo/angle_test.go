package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAngleNormalize(t *testing.T) {
	testCases := []struct {
		name   string
		input  float64
		expect float64
	}{
		{name: "zero", input: 0, expect: 0},
		{name: "pi stays", input: math.Pi, expect: math.Pi},
		{name: "negative pi wraps", input: -math.Pi, expect: math.Pi},
		{name: "past pi", input: math.Pi + 0.5, expect: -math.Pi + 0.5},
		{name: "full turn", input: 2 * math.Pi, expect: 0},
		{name: "two and a half turns", input: 5 * math.Pi, expect: math.Pi},
		{name: "negative full turn", input: -2 * math.Pi, expect: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.InDelta(t, tc.expect, AngleFromRadians(tc.input).Radians(), 1e-9)
		})
	}
}

func TestAngleAdd(t *testing.T) {
	a := AngleFromDegrees(170).AddDegrees(20)
	require.InDelta(t, -170, a.Degrees(), 1e-9)

	a = AngleFromDegrees(-90).Add(AngleFromDegrees(-180))
	require.InDelta(t, 90, a.Degrees(), 1e-9)
}

func TestAngleProject(t *testing.T) {
	p := AngleFromDegrees(90).Project(2)
	require.InDelta(t, 0, p.X, 1e-9)
	require.InDelta(t, 2, p.Y, 1e-9)
}

func TestPosDistance(t *testing.T) {
	require.InDelta(t, 5, Pos2D{X: 3, Y: 4}.DistanceTo(Pos2D{}), 1e-9)
	p := Pos2D{X: 1, Y: 1}
	p.OffsetBy(Pos2D{X: 2, Y: -1})
	require.Equal(t, Pos2D{X: 3, Y: 0}, p)
}
