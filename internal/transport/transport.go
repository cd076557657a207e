// Package transport delivers resolved topic/payload pairs to broker endpoints.
package transport

import (
	"context"
	"time"

	"github.com/eryxon/uns-gateway/internal/model"
)

// Publisher is the capability of pushing one topic+payload to one broker.
type Publisher interface {
	Publish(ctx context.Context, b model.BrokerConfig, topic string, payload []byte) error
}

// Result is the outcome of a full adapter call. LatencyMs covers the whole
// call, including every bridge candidate that was probed.
type Result struct {
	Success   bool
	Error     string
	LatencyMs int64
}

// Adapter routes a broker to its transport: native MQTT when configured,
// otherwise the HTTP bridge (pinned to one vendor shape or probing all).
type Adapter struct {
	bridge *Bridge
	mqtt   *MQTTPublisher
}

func NewAdapter(candidateTimeout time.Duration) *Adapter {
	return &Adapter{
		bridge: NewBridge(candidateTimeout),
		mqtt:   NewMQTTPublisher(candidateTimeout),
	}
}

func (a *Adapter) publisherFor(b model.BrokerConfig) Publisher {
	if b.Transport == model.TransportMQTT {
		return a.mqtt
	}
	return a.bridge
}

// Publish attempts delivery once, best-effort, and never returns an error:
// failures are data carried in the Result.
func (a *Adapter) Publish(ctx context.Context, b model.BrokerConfig, topic string, payload []byte) Result {
	start := time.Now()
	err := a.publisherFor(b).Publish(ctx, b, topic, payload)
	res := Result{
		Success:   err == nil,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}
