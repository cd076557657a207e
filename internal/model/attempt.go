package model

import "time"

// PublishAttempt is the append-only audit record: one row per broker per
// dispatch call, written exactly once and never mutated.
type PublishAttempt struct {
	ID        string    `db:"id" json:"id"`
	BrokerID  string    `db:"broker_id" json:"broker_id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	EventType string    `db:"event_type" json:"event_type"`
	Topic     string    `db:"topic" json:"topic"`
	Payload   string    `db:"payload" json:"payload"` // JSON snapshot of the wire payload
	Success   bool      `db:"success" json:"success"`
	Error     string    `db:"error" json:"error,omitempty"`
	LatencyMs int64     `db:"latency_ms" json:"latency_ms"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
