package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tunnelworks/rover.go/pkg/telemetry"
	"github.com/tunnelworks/rover.go/pkg/ultrasonic"
)

func testRecord(seq uint64) telemetry.Record {
	return telemetry.Record{
		Seq:       seq,
		At:        time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		Pose:      telemetry.Pose{X: 1.5, Y: -0.25, Heading: 0.1},
		DistanceM: 1.52,
		Ranges: ultrasonic.Snapshot{
			FrontLeft:   ultrasonic.CM(40),
			FrontCenter: ultrasonic.CM(120),
			FrontRight:  ultrasonic.Unknown(),
			RearCenter:  ultrasonic.CM(300),
		},
		Mode:     "automatic",
		Phase:    "forward",
		Decision: "forward",
	}
}

func openTestSink(t *testing.T) *Sink {
	hub := telemetry.NewHub(16)
	s, err := Open(filepath.Join(t.TempDir(), "telemetry.db"), hub)
	require.NoError(t, err)
	t.Cleanup(func() { s.db.Close() })
	return s
}

func TestSinkFlush(t *testing.T) {
	s := openTestSink(t)
	for seq := uint64(1); seq <= 3; seq++ {
		s.append(testRecord(seq))
	}
	require.Equal(t, 3, s.flush())

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM telemetry").Scan(&count))
	require.Equal(t, 3, count)

	// Flushing an empty buffer is a no-op.
	require.Zero(t, s.flush())
}

func TestSinkUnknownBecomesNull(t *testing.T) {
	s := openTestSink(t)
	s.append(testRecord(1))
	require.Equal(t, 1, s.flush())

	var frontLeft, frontRight, co2 interface{}
	row := s.db.QueryRow(
		"SELECT front_left, front_right, co2 FROM telemetry WHERE seq = 1")
	require.NoError(t, row.Scan(&frontLeft, &frontRight, &co2))
	require.Equal(t, 40.0, frontLeft)
	// Unknown range and absent env sample are NULL, never zero.
	require.Nil(t, frontRight)
	require.Nil(t, co2)
}

func TestSinkEnvColumns(t *testing.T) {
	s := openTestSink(t)
	rec := testRecord(1)
	rec.LinkUp = true
	rec.Env = &telemetry.EnvSample{CO2: 612, TempC: 14.5, GyroZ: -0.02}
	s.append(rec)
	require.Equal(t, 1, s.flush())

	var linkUp bool
	var co2, temp, gz float64
	row := s.db.QueryRow("SELECT link_up, co2, temp, gz FROM telemetry WHERE seq = 1")
	require.NoError(t, row.Scan(&linkUp, &co2, &temp, &gz))
	require.True(t, linkUp)
	require.Equal(t, 612.0, co2)
	require.Equal(t, 14.5, temp)
	require.Equal(t, -0.02, gz)
}

func TestSinkBatchTriggersFlush(t *testing.T) {
	s := openTestSink(t)
	s.BatchSize = 5
	for seq := uint64(1); seq <= 5; seq++ {
		s.append(testRecord(seq))
	}
	// The batch-sized append flushed on its own.
	require.Empty(t, s.buf)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM telemetry").Scan(&count))
	require.Equal(t, 5, count)
}

func TestSinkReplaceOnDuplicateSeq(t *testing.T) {
	s := openTestSink(t)
	s.append(testRecord(1))
	require.Equal(t, 1, s.flush())
	rec := testRecord(1)
	rec.Decision = "stop"
	s.append(rec)
	require.Equal(t, 1, s.flush())

	var count int
	var decision string
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM telemetry").Scan(&count))
	require.NoError(t, s.db.QueryRow("SELECT decision FROM telemetry WHERE seq = 1").Scan(&decision))
	require.Equal(t, 1, count)
	require.Equal(t, "stop", decision)
}

func TestSinkRebuffersOnFailure(t *testing.T) {
	s := openTestSink(t)
	s.append(testRecord(1))
	// Close the database underneath the sink: the flush must fail
	// and keep the rows.
	require.NoError(t, s.db.Close())
	require.Zero(t, s.flush())
	require.Len(t, s.buf, 1)
}
