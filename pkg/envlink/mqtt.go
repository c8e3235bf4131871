package envlink

import (
	"context"

	"github.com/golang/glog"

	"github.com/tunnelworks/rover.go/pkg/comm/mqtt"
)

// MQTTLink subscribes to the peer's sample topic and feeds the Slot.
// Broker reconnects are handled by the queue; while disconnected the
// slot simply goes stale.
type MQTTLink struct {
	Slot

	queue *mqtt.Queue
	topic string
}

// NewMQTTLink creates the link over an existing queue.
func NewMQTTLink(q *mqtt.Queue, topic string) *MQTTLink {
	return &MQTTLink{queue: q, topic: topic}
}

// Name implements Named.
func (l *MQTTLink) Name() string {
	return "envlink"
}

// Run implements Runnable: it holds the subscription until the
// context is canceled.
func (l *MQTTLink) Run(ctx context.Context) error {
	sub := l.queue.Sub(l.topic, func(topic string, payload []byte) {
		if err := l.StoreJSON(payload); err != nil {
			glog.Warningf("envlink: bad sample: %v", err)
		}
	})
	defer sub.Close()
	<-ctx.Done()
	return ctx.Err()
}
