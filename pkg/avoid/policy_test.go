package avoid

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tunnelworks/rover.go/pkg/ultrasonic"
)

func snap(fl, fc, fr, rl, rc, rr ultrasonic.Distance) ultrasonic.Snapshot {
	return ultrasonic.Snapshot{
		FrontLeft: fl, FrontCenter: fc, FrontRight: fr,
		RearLeft: rl, RearCenter: rc, RearRight: rr,
	}
}

func cm(v float64) ultrasonic.Distance { return ultrasonic.CM(v) }
func unk() ultrasonic.Distance         { return ultrasonic.Unknown() }

func TestDecide(t *testing.T) {
	p := Policy{ThresholdCM: 20, DefaultSide: Left}

	testCases := []struct {
		name   string
		snap   ultrasonic.Snapshot
		dir    Direction
		expect Decision
	}{
		{
			name:   "clear ahead",
			snap:   snap(cm(60), cm(350), cm(60), cm(60), cm(350), cm(60)),
			dir:    Ahead,
			expect: Forward,
		},
		{
			name:   "clear astern",
			snap:   snap(cm(60), cm(350), cm(60), cm(60), cm(350), cm(60)),
			dir:    Astern,
			expect: Backward,
		},
		{
			name:   "center blocked",
			snap:   snap(cm(40), cm(10), cm(20), unk(), unk(), unk()),
			dir:    Ahead,
			expect: Stop,
		},
		{
			name:   "left blocked steers right",
			snap:   snap(cm(12), cm(100), cm(60), unk(), unk(), unk()),
			dir:    Ahead,
			expect: TurnRight,
		},
		{
			name:   "right blocked steers left",
			snap:   snap(cm(60), cm(100), cm(12), unk(), unk(), unk()),
			dir:    Ahead,
			expect: TurnLeft,
		},
		{
			name: "center outranks sides",
			snap: snap(cm(12), cm(10), cm(12), unk(), unk(), unk()),
			dir:  Ahead, expect: Stop,
		},
		{
			name:   "threshold is exclusive",
			snap:   snap(cm(20), cm(20), cm(20), unk(), unk(), unk()),
			dir:    Ahead,
			expect: Forward,
		},
		{
			name:   "all unknown keeps going",
			snap:   snap(unk(), unk(), unk(), unk(), unk(), unk()),
			dir:    Ahead,
			expect: Forward,
		},
		{
			name:   "all unknown keeps reversing",
			snap:   snap(unk(), unk(), unk(), unk(), unk(), unk()),
			dir:    Astern,
			expect: Backward,
		},
		{
			name:   "astern uses the rear triad",
			snap:   snap(cm(10), cm(10), cm(10), cm(60), cm(350), cm(60)),
			dir:    Astern,
			expect: Backward,
		},
		{
			name: "rear center blocked",
			snap: snap(unk(), unk(), unk(), cm(60), cm(10), cm(60)),
			dir:  Astern, expect: Stop,
		},
		{
			// Rotating left swings the rear away from a rear-left
			// obstacle.
			name:   "rear left blocked rotates left",
			snap:   snap(unk(), unk(), unk(), cm(12), cm(100), cm(60)),
			dir:    Astern,
			expect: TurnLeft,
		},
		{
			name:   "rear right blocked rotates right",
			snap:   snap(unk(), unk(), unk(), cm(60), cm(100), cm(12)),
			dir:    Astern,
			expect: TurnRight,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, p.Decide(tc.snap, tc.dir))
			// Pure function: same inputs, same decision.
			require.Equal(t, tc.expect, p.Decide(tc.snap, tc.dir))
		})
	}
}

func TestTurnAway(t *testing.T) {
	p := Policy{ThresholdCM: 15, DefaultSide: Left}

	testCases := []struct {
		name   string
		policy Policy
		snap   ultrasonic.Snapshot
		dir    Direction
		expect Decision
	}{
		{
			name:   "larger clearance on the left",
			policy: p,
			snap:   snap(cm(40), cm(10), cm(20), unk(), unk(), unk()),
			dir:    Ahead,
			expect: TurnLeft,
		},
		{
			name:   "larger clearance on the right",
			policy: p,
			snap:   snap(cm(20), cm(10), cm(40), unk(), unk(), unk()),
			dir:    Ahead,
			expect: TurnRight,
		},
		{
			name:   "unknown side counts as unlimited",
			policy: p,
			snap:   snap(cm(300), cm(10), unk(), unk(), unk(), unk()),
			dir:    Ahead,
			expect: TurnRight,
		},
		{
			name:   "tie breaks toward default side",
			policy: p,
			snap:   snap(cm(30), cm(10), cm(30), unk(), unk(), unk()),
			dir:    Ahead,
			expect: TurnLeft,
		},
		{
			name:   "tie breaks toward configured right",
			policy: Policy{ThresholdCM: 15, DefaultSide: Right},
			snap:   snap(unk(), cm(10), unk(), unk(), unk(), unk()),
			dir:    Ahead,
			expect: TurnRight,
		},
		{
			// Astern the rotation reverses so the rear swings toward
			// the open side.
			name:   "astern mirrors the rotation",
			policy: p,
			snap:   snap(unk(), unk(), unk(), cm(40), cm(10), cm(20)),
			dir:    Astern,
			expect: TurnRight,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, tc.policy.TurnAway(tc.snap, tc.dir))
		})
	}
}
