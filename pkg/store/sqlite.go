// Package store persists telemetry records into SQLite. The writer
// consumes a hub subscription on its own goroutine and batches
// inserts, so a slow or failing disk never touches the control loop:
// write failures are logged and the rows re-buffered for the next
// flush.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/golang/glog"
	_ "modernc.org/sqlite"

	fx "github.com/tunnelworks/rover.go/pkg/framework"
	"github.com/tunnelworks/rover.go/pkg/telemetry"
	"github.com/tunnelworks/rover.go/pkg/ultrasonic"
)

const schema = `
CREATE TABLE IF NOT EXISTS telemetry (
	seq INTEGER PRIMARY KEY,
	at TEXT NOT NULL,
	mode TEXT NOT NULL,
	phase TEXT NOT NULL,
	decision TEXT,
	pos_x REAL, pos_y REAL, heading REAL, distance REAL,
	front_left REAL, front_center REAL, front_right REAL,
	rear_left REAL, rear_center REAL, rear_right REAL,
	link_up INTEGER NOT NULL,
	co2 REAL, voc REAL, temp REAL, hum REAL,
	ax REAL, ay REAL, az REAL,
	gx REAL, gy REAL, gz REAL
);
CREATE INDEX IF NOT EXISTS idx_telemetry_at ON telemetry(at);
`

const insertStmt = `
INSERT OR REPLACE INTO telemetry (
	seq, at, mode, phase, decision,
	pos_x, pos_y, heading, distance,
	front_left, front_center, front_right,
	rear_left, rear_center, rear_right,
	link_up, co2, voc, temp, hum, ax, ay, az, gx, gy, gz
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

const (
	DefaultBatchSize  = 50
	DefaultFlushEvery = 30 * time.Second

	// maxBuffered caps re-buffering after failed flushes so a dead
	// disk cannot grow memory without bound.
	maxBuffered = 4096
)

// Sink is the buffered SQLite writer.
type Sink struct {
	BatchSize  int
	FlushEvery time.Duration

	db  *sql.DB
	hub *telemetry.Hub
	buf []telemetry.Record
}

// Open opens (creating if needed) the database and prepares the
// schema. WAL mode keeps readers (ad-hoc analysis) off the writer's
// back.
func Open(path string, hub *telemetry.Hub) (*Sink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Sink{
		BatchSize:  DefaultBatchSize,
		FlushEvery: DefaultFlushEvery,
		db:         db,
		hub:        hub,
	}, nil
}

// Name implements Named.
func (s *Sink) Name() string {
	return "store"
}

// Run implements Runnable: consume the hub subscription until the
// context is canceled, then flush and close.
func (s *Sink) Run(ctx context.Context) error {
	sub := s.hub.Subscribe(s.batchSize() * 2)
	defer sub.Close()

	ticker := time.NewTicker(s.flushEvery())
	defer ticker.Stop()

	defer s.close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-sub.C():
			if !ok {
				return nil
			}
			s.append(rec)
		case <-ticker.C:
			s.flush()
		}
	}
}

var _ fx.Runnable = (*Sink)(nil)

func (s *Sink) batchSize() int {
	if s.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return s.BatchSize
}

func (s *Sink) flushEvery() time.Duration {
	if s.FlushEvery <= 0 {
		return DefaultFlushEvery
	}
	return s.FlushEvery
}

func (s *Sink) append(rec telemetry.Record) {
	s.buf = append(s.buf, rec)
	if len(s.buf) >= s.batchSize() {
		s.flush()
	}
}

// flush writes the buffer in one transaction. On failure the rows are
// kept for the next attempt, bounded by maxBuffered.
func (s *Sink) flush() int {
	if len(s.buf) == 0 {
		return 0
	}
	rows := s.buf
	s.buf = nil
	if err := s.insert(rows); err != nil {
		glog.Errorf("store: flush failed (%d rows kept): %v", len(rows), err)
		s.buf = append(rows, s.buf...)
		if over := len(s.buf) - maxBuffered; over > 0 {
			glog.Warningf("store: dropping %d oldest buffered rows", over)
			s.buf = s.buf[over:]
		}
		return 0
	}
	glog.V(1).Infof("store: flushed %d rows", len(rows))
	return len(rows)
}

func (s *Sink) insert(rows []telemetry.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(insertStmt)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, rec := range rows {
		if _, err := stmt.Exec(insertArgs(rec)...); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *Sink) close() {
	s.flush()
	if err := s.db.Close(); err != nil {
		glog.Errorf("store: close: %v", err)
	}
}

// insertArgs flattens a record. Unknown distances and a down link
// become SQL NULL, never zero.
func insertArgs(rec telemetry.Record) []interface{} {
	args := []interface{}{
		rec.Seq, rec.At.Format(time.RFC3339Nano),
		rec.Mode, rec.Phase, rec.Decision,
		rec.Pose.X, rec.Pose.Y, rec.Pose.Heading, rec.DistanceM,
	}
	for _, d := range []ultrasonic.Distance{
		rec.Ranges.FrontLeft, rec.Ranges.FrontCenter, rec.Ranges.FrontRight,
		rec.Ranges.RearLeft, rec.Ranges.RearCenter, rec.Ranges.RearRight,
	} {
		args = append(args, nullable(d))
	}
	args = append(args, rec.LinkUp)
	if env := rec.Env; env != nil {
		args = append(args,
			env.CO2, env.VOC, env.TempC, env.Humidity,
			env.AccelX, env.AccelY, env.AccelZ,
			env.GyroX, env.GyroY, env.GyroZ)
	} else {
		for i := 0; i < 10; i++ {
			args = append(args, nil)
		}
	}
	return args
}

func nullable(d ultrasonic.Distance) interface{} {
	if !d.Known {
		return nil
	}
	return d.CM
}
