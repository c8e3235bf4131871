package ultrasonic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDistanceBelow(t *testing.T) {
	require.True(t, CM(10).Below(20))
	require.False(t, CM(20).Below(20))
	require.False(t, CM(30).Below(20))
	// Unknown never compares below anything.
	require.False(t, Unknown().Below(20))
}

func TestDistanceJSON(t *testing.T) {
	out, err := json.Marshal(CM(42.5))
	require.NoError(t, err)
	require.Equal(t, "42.5", string(out))

	out, err = json.Marshal(Unknown())
	require.NoError(t, err)
	require.Equal(t, "null", string(out))

	var d Distance
	require.NoError(t, json.Unmarshal([]byte("null"), &d))
	require.False(t, d.Known)

	require.NoError(t, json.Unmarshal([]byte("17"), &d))
	require.True(t, d.Known)
	require.Equal(t, 17.0, d.CM)
}

func TestSnapshotAccess(t *testing.T) {
	var snap Snapshot
	snap.set(FrontCenter, CM(33))
	snap.set(RearRight, CM(44))

	require.Equal(t, CM(33), snap.Get(FrontCenter))
	require.Equal(t, CM(44), snap.Get(RearRight))
	require.Equal(t, Unknown(), snap.Get(FrontLeft))
	require.Equal(t, Unknown(), snap.Get(Position("bogus")))

	_, center, _ := snap.Front()
	require.Equal(t, CM(33), center)
	_, _, right := snap.Rear()
	require.Equal(t, CM(44), right)
}
