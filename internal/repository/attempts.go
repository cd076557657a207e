package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/eryxon/uns-gateway/internal/model"
)

// AttemptsFilter narrows the attempt-log report query. TenantID is mandatory;
// everything else is optional.
type AttemptsFilter struct {
	TenantID  string
	BrokerID  string
	EventType string
	Success   *bool
	Limit     int
	Offset    int
}

// AttemptsRepository appends to and reads from the ClickHouse audit log.
// Rows are insert-only: no update or delete paths exist.
type AttemptsRepository interface {
	Insert(ctx context.Context, a model.PublishAttempt) error
	List(ctx context.Context, f AttemptsFilter) ([]model.PublishAttempt, error)
	LastN(ctx context.Context, tenantID, brokerID string, n int) ([]model.PublishAttempt, error)
}

type AttemptsRepositoryImpl struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewAttemptsRepository(ch *sqlx.DB) *AttemptsRepositoryImpl {
	return &AttemptsRepositoryImpl{ch: ch}
}

var _ AttemptsRepository = (*AttemptsRepositoryImpl)(nil)

func (r *AttemptsRepositoryImpl) Insert(ctx context.Context, a model.PublishAttempt) error {
	const q = `
		INSERT INTO unsgw.publish_attempts
		    (id, broker_id, tenant_id, event_type, topic, payload, success, error, latency_ms, created_at)
		VALUES
		    (?,  ?,         ?,         ?,          ?,     ?,       ?,       ?,     ?,          ?)
	`
	_, err := r.ch.ExecContext(ctx, q,
		a.ID, a.BrokerID, a.TenantID, a.EventType, a.Topic, a.Payload,
		a.Success, a.Error, a.LatencyMs, a.CreatedAt,
	)
	return err
}

func (r *AttemptsRepositoryImpl) List(ctx context.Context, f AttemptsFilter) ([]model.PublishAttempt, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := `
		SELECT id, broker_id, tenant_id, event_type, topic, payload, success, error, latency_ms, created_at
		FROM unsgw.publish_attempts
		WHERE tenant_id = ?
	`
	args := []any{f.TenantID}

	if f.BrokerID != "" {
		q += " AND broker_id = ?"
		args = append(args, f.BrokerID)
	}
	if f.EventType != "" {
		q += " AND event_type = ?"
		args = append(args, f.EventType)
	}
	if f.Success != nil {
		q += " AND success = ?"
		args = append(args, *f.Success)
	}

	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	var rows []model.PublishAttempt
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// LastN feeds the derived broker-health view: the most recent n attempts.
func (r *AttemptsRepositoryImpl) LastN(ctx context.Context, tenantID, brokerID string, n int) ([]model.PublishAttempt, error) {
	if n <= 0 || n > 1000 {
		n = 20
	}
	const q = `
		SELECT id, broker_id, tenant_id, event_type, topic, payload, success, error, latency_ms, created_at
		FROM unsgw.publish_attempts
		WHERE tenant_id = ? AND broker_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	var rows []model.PublishAttempt
	if err := r.ch.SelectContext(ctx, &rows, q, tenantID, brokerID, n); err != nil {
		return nil, err
	}
	return rows, nil
}
