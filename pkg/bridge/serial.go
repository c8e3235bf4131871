// Package bridge connects the rover core to its drive/sensor
// microcontroller. The wire is a plain line protocol over a serial
// port: "M <linear> <turn>" commands the motors, "P <sensor>" pings a
// rangefinder and the firmware answers "R <sensor> <cm>" (negative on
// no echo). A simulated bridge backs desk runs and tests.
package bridge

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/glog"
	serial "go.bug.st/serial"

	"github.com/tunnelworks/rover.go/pkg/ultrasonic"
)

// Serial is the bridge over a physical serial port. It implements
// nav.Actuator and hands out ultrasonic.Sensors backed by the ping
// exchange.
type Serial struct {
	port serial.Port

	writeMu sync.Mutex

	pendMu  sync.Mutex
	pending map[ultrasonic.Position]chan float64
}

// OpenSerial opens the bridge and starts the response reader.
func OpenSerial(dev string, baud int) (*Serial, error) {
	port, err := serial.Open(dev, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	b := &Serial{
		port:    port,
		pending: make(map[ultrasonic.Position]chan float64),
	}
	go b.readLoop()
	return b, nil
}

// Apply implements nav.Actuator. (0, 0) is an immediate stop.
func (b *Serial) Apply(linear, turnRate float64) error {
	return b.writeLine(fmt.Sprintf("M %.3f %.3f", linear, turnRate))
}

// Sensor returns the rangefinder at a position.
func (b *Serial) Sensor(pos ultrasonic.Position) ultrasonic.Sensor {
	return ultrasonic.MeasureFunc(func(ctx context.Context) (float64, error) {
		return b.measure(ctx, pos)
	})
}

// Sensors returns all six rangefinders keyed by position.
func (b *Serial) Sensors() map[ultrasonic.Position]ultrasonic.Sensor {
	sensors := make(map[ultrasonic.Position]ultrasonic.Sensor, len(ultrasonic.Positions))
	for _, pos := range ultrasonic.Positions {
		sensors[pos] = b.Sensor(pos)
	}
	return sensors
}

// Close stops the motors and closes the port.
func (b *Serial) Close() error {
	b.writeLine("M 0.000 0.000")
	return b.port.Close()
}

func (b *Serial) measure(ctx context.Context, pos ultrasonic.Position) (float64, error) {
	ch := make(chan float64, 1)
	b.pendMu.Lock()
	if _, busy := b.pending[pos]; busy {
		b.pendMu.Unlock()
		return 0, fmt.Errorf("sensor %s busy", pos)
	}
	b.pending[pos] = ch
	b.pendMu.Unlock()
	defer func() {
		b.pendMu.Lock()
		delete(b.pending, pos)
		b.pendMu.Unlock()
	}()

	if err := b.writeLine("P " + string(pos)); err != nil {
		return 0, err
	}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case cm := <-ch:
		if cm <= 0 {
			return 0, fmt.Errorf("sensor %s: no echo", pos)
		}
		return cm, nil
	}
}

func (b *Serial) writeLine(line string) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_, err := b.port.Write([]byte(line + "\n"))
	return err
}

func (b *Serial) readLoop() {
	scanner := bufio.NewScanner(b.port)
	for scanner.Scan() {
		pos, cm, err := parseRange(scanner.Text())
		if err != nil {
			glog.V(2).Infof("bridge: %v", err)
			continue
		}
		b.pendMu.Lock()
		ch := b.pending[pos]
		b.pendMu.Unlock()
		if ch != nil {
			select {
			case ch <- cm:
			default:
			}
		}
	}
	if err := scanner.Err(); err != nil {
		glog.Warningf("bridge: read loop ended: %v", err)
	}
}

// parseRange parses a firmware range response "R <sensor> <cm>".
func parseRange(line string) (ultrasonic.Position, float64, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) != 3 || fields[0] != "R" {
		return "", 0, fmt.Errorf("unexpected line %q", line)
	}
	cm, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return "", 0, fmt.Errorf("bad range in %q: %v", line, err)
	}
	return ultrasonic.Position(fields[1]), cm, nil
}
