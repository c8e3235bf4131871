package telemetry

import (
	"context"
	"encoding/json"

	"github.com/golang/glog"

	"github.com/tunnelworks/rover.go/pkg/comm/mqtt"
)

// Forwarder republishes hub records as JSON events on an MQTT topic
// for remote observers. It runs on its own goroutine off a hub
// subscription, so broker latency never reaches the publisher.
type Forwarder struct {
	Hub   *Hub
	Queue *mqtt.Queue
	Topic string
}

// Name implements Named.
func (f *Forwarder) Name() string {
	return "telemetry-forwarder"
}

// Run implements Runnable.
func (f *Forwarder) Run(ctx context.Context) error {
	sub := f.Hub.Subscribe(64)
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-sub.C():
			if !ok {
				return nil
			}
			payload, err := json.Marshal(rec)
			if err != nil {
				glog.Errorf("telemetry: marshal: %v", err)
				continue
			}
			f.Queue.Pub(f.Topic, payload)
		}
	}
}
