package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/eryxon/uns-gateway/internal/kafka"
	"github.com/eryxon/uns-gateway/internal/metrics"
	"github.com/eryxon/uns-gateway/internal/model"
)

// DispatchService mirrors the coordinator's dispatch entry point.
type DispatchService interface {
	Dispatch(ctx context.Context, env *model.EventEnvelope) (model.DispatchResult, error)
}

// Relay consumes event envelopes from Kafka and pushes them through the same
// dispatch pipeline as the HTTP endpoint. Messages are always committed:
// best-effort fan-out has no redelivery, and poison messages are skipped.
type Relay struct {
	Consumer *kafka.Consumer
	Dispatch DispatchService
	Log      *zap.Logger

	Workers int // number of goroutines dispatching envelopes
}

func NewRelay(consumer *kafka.Consumer, dispatch DispatchService, log *zap.Logger) *Relay {
	return &Relay{
		Consumer: consumer,
		Dispatch: dispatch,
		Log:      log,
		Workers:  16,
	}
}

// Run starts the relay and blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	if r.Workers <= 0 {
		r.Workers = 16
	}

	msgCh := make(chan kafka.Message, r.Workers*2)

	// Fetcher goroutine
	go func() {
		defer close(msgCh)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				m, err := r.Consumer.Fetch(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					r.Log.Warn("kafka fetch failed", zap.Error(err))
					time.Sleep(200 * time.Millisecond)
					continue
				}
				msgCh <- m
			}
		}
	}()

	for i := 0; i < r.Workers; i++ {
		go r.runProcessor(ctx, msgCh)
	}

	<-ctx.Done()
	return nil
}

func (r *Relay) runProcessor(ctx context.Context, in <-chan kafka.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			r.processOne(ctx, m)
		}
	}
}

func (r *Relay) processOne(ctx context.Context, m kafka.Message) {
	var env model.EventEnvelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message: commit and skip
		metrics.EventsTotal.WithLabelValues("kafka", "rejected").Inc()
		r.Log.Warn("bad envelope json", zap.Error(err), zap.Int64("offset", m.Offset))
		_ = r.Consumer.Commit(ctx, m)
		return
	}

	res, err := r.Dispatch.Dispatch(ctx, &env)
	switch {
	case errors.Is(err, model.ErrValidation):
		metrics.EventsTotal.WithLabelValues("kafka", "rejected").Inc()
		r.Log.Warn("invalid envelope",
			zap.String("event_type", env.EventType),
			zap.Error(err),
		)
	case err != nil:
		// Broker-store failure. Still committed: no retry layer exists below
		// the producer, and redelivering here would break at-most-once.
		r.Log.Error("dispatch failed",
			zap.String("tenant_id", env.TenantID),
			zap.String("event_type", env.EventType),
			zap.Error(err),
		)
	default:
		metrics.EventsTotal.WithLabelValues("kafka", "accepted").Inc()
		r.Log.Info("event relayed",
			zap.String("tenant_id", env.TenantID),
			zap.String("event_type", env.EventType),
			zap.Int("published", res.Published),
			zap.Int("failed", res.Failed),
		)
	}

	if err := r.Consumer.Commit(ctx, m); err != nil {
		r.Log.Warn("kafka commit failed", zap.Error(err))
	}
}
