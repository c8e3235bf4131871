package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHubEviction(t *testing.T) {
	h := NewHub(300)
	for i := 0; i < 301; i++ {
		h.Publish(Record{})
	}

	recs := h.Snapshot(0)
	require.Len(t, recs, 300)
	// One past capacity: the oldest record is gone.
	require.Equal(t, uint64(2), recs[0].Seq)
	require.Equal(t, uint64(301), recs[299].Seq)

	latest, ok := h.Latest()
	require.True(t, ok)
	require.Equal(t, uint64(301), latest.Seq)
}

func TestHubSnapshot(t *testing.T) {
	h := NewHub(10)
	_, ok := h.Latest()
	require.False(t, ok)
	require.Empty(t, h.Snapshot(5))

	for i := 0; i < 3; i++ {
		h.Publish(Record{})
	}
	// Asking for more than published returns what exists.
	recs := h.Snapshot(5)
	require.Len(t, recs, 3)
	require.Equal(t, uint64(1), recs[0].Seq)

	recs = h.Snapshot(2)
	require.Len(t, recs, 2)
	require.Equal(t, uint64(2), recs[0].Seq)
	require.Equal(t, uint64(3), recs[1].Seq)

	// Snapshots are copies: mutating one never touches the ring.
	recs[0].Mode = "mutated"
	again := h.Snapshot(2)
	require.NotEqual(t, "mutated", again[0].Mode)
}

func TestHubSubscribe(t *testing.T) {
	h := NewHub(10)
	sub := h.Subscribe(2)
	defer sub.Close()

	seq := h.Publish(Record{Mode: "manual"})
	require.Equal(t, uint64(1), seq)

	select {
	case rec := <-sub.C():
		require.Equal(t, "manual", rec.Mode)
		require.Equal(t, uint64(1), rec.Seq)
	case <-time.After(time.Second):
		t.Fatal("no record pushed")
	}
}

func TestHubNeverBlocksOnSlowSubscriber(t *testing.T) {
	h := NewHub(10)
	sub := h.Subscribe(1)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// The subscriber never reads; publishes must still return.
		for i := 0; i < 100; i++ {
			h.Publish(Record{})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	require.Equal(t, uint64(99), sub.Dropped())

	// The ring kept the newest records regardless.
	latest, ok := h.Latest()
	require.True(t, ok)
	require.Equal(t, uint64(100), latest.Seq)
}

func TestHubClose(t *testing.T) {
	h := NewHub(10)
	sub := h.Subscribe(1)
	h.Close()

	_, open := <-sub.C()
	require.False(t, open)
	require.Zero(t, h.Publish(Record{}))

	// Subscribing after close yields an already closed channel.
	late := h.Subscribe(1)
	_, open = <-late.C()
	require.False(t, open)

	// Closing again, in either order, is harmless.
	h.Close()
	require.NoError(t, sub.Close())
}
