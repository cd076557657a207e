package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/eryxon/uns-gateway/internal/model"
)

// BrokersRepository reads tenant-scoped broker configs and writes the two
// derived health fields. Everything else on the row belongs to the admin UI.
type BrokersRepository interface {
	ListSubscribed(ctx context.Context, tenantID, eventType string) ([]model.BrokerConfig, error)
	GetByID(ctx context.Context, tenantID, brokerID string) (*model.BrokerConfig, error)
	MarkConnected(ctx context.Context, brokerID string, at time.Time) error
	MarkFailed(ctx context.Context, brokerID, lastError string) error
}

type BrokersRepositoryImpl struct {
	db *sqlx.DB
}

func NewBrokersRepository(db *sqlx.DB) *BrokersRepositoryImpl {
	return &BrokersRepositoryImpl{db: db}
}

var _ BrokersRepository = (*BrokersRepositoryImpl)(nil)

// ListSubscribed returns the tenant's enabled brokers subscribed to eventType.
// An empty result is the common case, not an error.
func (r *BrokersRepositoryImpl) ListSubscribed(ctx context.Context, tenantID, eventType string) ([]model.BrokerConfig, error) {
	const q = `
		SELECT id, tenant_id, name, host, port, username, password, transport,
		       topic_pattern, default_enterprise, default_site, default_area,
		       use_tls, enabled, subscribed_events, last_connected_at, last_error,
		       created_at, updated_at
		  FROM brokers
		 WHERE tenant_id = ?
		   AND enabled = 1
		   AND FIND_IN_SET(?, subscribed_events)
	`
	var rows []model.BrokerConfig
	if err := r.db.SelectContext(ctx, &rows, q, tenantID, eventType); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BrokersRepositoryImpl) GetByID(ctx context.Context, tenantID, brokerID string) (*model.BrokerConfig, error) {
	const q = `
		SELECT id, tenant_id, name, host, port, username, password, transport,
		       topic_pattern, default_enterprise, default_site, default_area,
		       use_tls, enabled, subscribed_events, last_connected_at, last_error,
		       created_at, updated_at
		  FROM brokers
		 WHERE tenant_id = ? AND id = ? LIMIT 1
	`
	var b model.BrokerConfig
	err := r.db.GetContext(ctx, &b, q, tenantID, brokerID)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// MarkConnected records a successful delivery: bump last_connected_at, clear
// last_error. Concurrent dispatch calls race here last-write-wins; the fields
// are diagnostic only.
func (r *BrokersRepositoryImpl) MarkConnected(ctx context.Context, brokerID string, at time.Time) error {
	const q = `UPDATE brokers SET last_connected_at = ?, last_error = NULL, updated_at = NOW() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, at, brokerID)
	return err
}

// MarkFailed stores the adapter diagnostic; last_connected_at is untouched.
func (r *BrokersRepositoryImpl) MarkFailed(ctx context.Context, brokerID, lastError string) error {
	const q = `UPDATE brokers SET last_error = ?, updated_at = NOW() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, lastError, brokerID)
	return err
}
