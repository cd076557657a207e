package dispatcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eryxon/uns-gateway/internal/model"
	"github.com/eryxon/uns-gateway/internal/repository"
	"github.com/eryxon/uns-gateway/internal/transport"
	"github.com/eryxon/uns-gateway/internal/util"
)

// Recorder persists one PublishAttempt per broker per dispatch and updates
// the broker's health fields. It never fails the dispatch: persistence
// problems are logged and swallowed, the delivery outcome already happened.
type Recorder struct {
	attempts repository.AttemptsRepository
	brokers  repository.BrokersRepository
	log      *zap.Logger
}

func NewRecorder(attempts repository.AttemptsRepository, brokers repository.BrokersRepository, log *zap.Logger) *Recorder {
	return &Recorder{attempts: attempts, brokers: brokers, log: log}
}

func (r *Recorder) Record(ctx context.Context, b model.BrokerConfig, eventType, topic string, payload []byte, res transport.Result) {
	now := time.Now().UTC()

	attempt := model.PublishAttempt{
		ID:        util.NewID(),
		BrokerID:  b.ID,
		TenantID:  b.TenantID,
		EventType: eventType,
		Topic:     topic,
		Payload:   string(payload),
		Success:   res.Success,
		Error:     res.Error,
		LatencyMs: res.LatencyMs,
		CreatedAt: now,
	}
	if err := r.attempts.Insert(ctx, attempt); err != nil {
		r.log.Error("insert publish attempt",
			zap.String("broker_id", b.ID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}

	var err error
	if res.Success {
		err = r.brokers.MarkConnected(ctx, b.ID, now)
	} else {
		err = r.brokers.MarkFailed(ctx, b.ID, res.Error)
	}
	if err != nil {
		r.log.Error("update broker health",
			zap.String("broker_id", b.ID),
			zap.Error(err),
		)
	}
}
