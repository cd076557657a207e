// Package dispatcher fans one domain event out to every subscribed broker.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eryxon/uns-gateway/internal/metrics"
	"github.com/eryxon/uns-gateway/internal/model"
	"github.com/eryxon/uns-gateway/internal/repository"
	"github.com/eryxon/uns-gateway/internal/transport"
	"github.com/eryxon/uns-gateway/internal/uns"
)

// Adapter delivers one topic+payload to one broker, best-effort.
type Adapter interface {
	Publish(ctx context.Context, b model.BrokerConfig, topic string, payload []byte) transport.Result
}

// Coordinator orchestrates one dispatch call: validate, filter brokers,
// resolve topics, publish concurrently, record every outcome, aggregate.
type Coordinator struct {
	brokers       repository.BrokersRepository
	adapter       Adapter
	recorder      *Recorder
	log           *zap.Logger
	brokerTimeout time.Duration // budget for one broker's whole adapter call
}

func NewCoordinator(
	brokers repository.BrokersRepository,
	adapter Adapter,
	recorder *Recorder,
	log *zap.Logger,
	brokerTimeout time.Duration,
) *Coordinator {
	if brokerTimeout <= 0 {
		brokerTimeout = 30 * time.Second
	}
	return &Coordinator{
		brokers:       brokers,
		adapter:       adapter,
		recorder:      recorder,
		log:           log,
		brokerTimeout: brokerTimeout,
	}
}

type outcome struct {
	broker  model.BrokerConfig
	topic   string
	payload []byte
	res     transport.Result
}

// Dispatch delivers env to every subscribed broker of its tenant. Only a
// validation failure or a broker-store failure is an error; per-broker
// delivery failures are data inside the result.
func (c *Coordinator) Dispatch(ctx context.Context, env *model.EventEnvelope) (model.DispatchResult, error) {
	if err := env.Validate(); err != nil {
		return model.DispatchResult{}, err
	}

	brokers, err := c.brokers.ListSubscribed(ctx, env.TenantID, env.EventType)
	if err != nil {
		return model.DispatchResult{}, fmt.Errorf("list subscribed brokers: %w", err)
	}
	if len(brokers) == 0 {
		// Expected common case: nothing to do, zero work, success.
		return model.DispatchResult{Results: []model.BrokerResult{}}, nil
	}

	ts := env.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	outcomes := make(chan outcome, len(brokers))
	for _, b := range brokers {
		go func(b model.BrokerConfig) {
			topic := uns.Resolve(b.TopicPattern, env.Context, uns.Defaults{
				Enterprise: b.DefaultEnterprise,
				Site:       b.DefaultSite,
				Area:       b.DefaultArea,
			}, env.EventType, env.TenantID)

			payload, err := json.Marshal(model.WirePayload{
				Event:     env.EventType,
				Timestamp: ts.Format(time.RFC3339),
				TenantID:  env.TenantID,
				Data:      env.Data,
			})
			if err != nil {
				outcomes <- outcome{broker: b, topic: topic, res: transport.Result{
					Error: fmt.Sprintf("encode payload: %v", err),
				}}
				return
			}

			bctx, cancel := context.WithTimeout(ctx, c.brokerTimeout)
			defer cancel()
			outcomes <- outcome{broker: b, topic: topic, payload: payload, res: c.adapter.Publish(bctx, b, topic, payload)}
		}(b)
	}

	// Scatter-gather: wait for all N, no partial results to the caller.
	result := model.DispatchResult{Results: make([]model.BrokerResult, 0, len(brokers))}
	for range brokers {
		o := <-outcomes

		c.recorder.Record(ctx, o.broker, env.EventType, o.topic, o.payload, o.res)

		kind := string(o.broker.Transport)
		if kind == "" {
			kind = string(model.TransportAuto)
		}
		status := "failed"
		if o.res.Success {
			status = "published"
			result.Published++
		} else {
			result.Failed++
			c.log.Warn("broker delivery failed",
				zap.String("broker_id", o.broker.ID),
				zap.String("tenant_id", env.TenantID),
				zap.String("event_type", env.EventType),
				zap.String("topic", o.topic),
				zap.String("error", o.res.Error),
			)
		}
		metrics.AttemptsTotal.WithLabelValues(status, kind).Inc()
		metrics.PublishLatency.WithLabelValues(kind).Observe(float64(o.res.LatencyMs) / 1000)

		result.Results = append(result.Results, model.BrokerResult{
			BrokerID:  o.broker.ID,
			Topic:     o.topic,
			Success:   o.res.Success,
			Error:     o.res.Error,
			LatencyMs: o.res.LatencyMs,
		})
	}

	return result, nil
}
