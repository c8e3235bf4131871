// Package envlink receives samples from the wireless environmental
// sensor peer. The link runs independently of the control loop and
// only ever writes a guarded latest-sample slot; the loop reads the
// slot without blocking and simply sees "disconnected" when the peer
// is silent, stale or gone. Losing the peer never affects motor
// control.
package envlink

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/tunnelworks/rover.go/pkg/telemetry"
)

// DefaultStaleness is how old a sample may be before the link counts
// as down.
const DefaultStaleness = 5 * time.Second

// Source provides the latest environmental sample without blocking.
// ok is false when no fresh sample is available; the returned sample
// is then the last known value (possibly zero).
type Source interface {
	Latest() (sample telemetry.EnvSample, ok bool)
}

// Slot is the single shared cell between the link task and the
// control loop. Writers call Store; readers call Latest. Both are
// O(1) under a dedicated lock.
type Slot struct {
	// Staleness bounds the age of a sample considered live.
	Staleness time.Duration

	mu     sync.RWMutex
	sample telemetry.EnvSample
	at     time.Time
}

// Store records a fresh sample.
func (s *Slot) Store(sample telemetry.EnvSample) {
	s.mu.Lock()
	s.sample = sample
	s.at = time.Now()
	s.mu.Unlock()
}

// StoreJSON decodes a peer payload and stores it. Malformed payloads
// are dropped.
func (s *Slot) StoreJSON(payload []byte) error {
	var sample telemetry.EnvSample
	if err := json.Unmarshal(payload, &sample); err != nil {
		return err
	}
	s.Store(sample)
	return nil
}

// Latest implements Source. It never blocks and always returns
// immediately: the last known sample, with ok false when the slot was
// never populated or the sample has gone stale.
func (s *Slot) Latest() (telemetry.EnvSample, bool) {
	staleness := s.Staleness
	if staleness <= 0 {
		staleness = DefaultStaleness
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.at.IsZero() || time.Since(s.at) > staleness {
		return s.sample, false
	}
	return s.sample, true
}

// Down is a Source for rovers running without an environmental peer.
type Down struct{}

// Latest implements Source.
func (Down) Latest() (telemetry.EnvSample, bool) {
	return telemetry.EnvSample{}, false
}
