package model

import (
	"strings"
	"time"
)

// TransportKind selects the concrete publish transport for a broker.
// Empty (or "auto") means probe the known HTTP bridge shapes in order.
type TransportKind string

const (
	TransportAuto   TransportKind = "auto"
	TransportMQTT   TransportKind = "mqtt"
	TransportEMQX   TransportKind = "emqx"
	TransportHiveMQ TransportKind = "hivemq"
)

func (t TransportKind) Valid() bool {
	switch t {
	case "", TransportAuto, TransportMQTT, TransportEMQX, TransportHiveMQ:
		return true
	}
	return false
}

// BrokerConfig is one configured publish target. The gateway reads it and
// only ever writes the two health fields (last_connected_at, last_error).
type BrokerConfig struct {
	ID                string        `db:"id"`
	TenantID          string        `db:"tenant_id"`
	Name              string        `db:"name"`
	Host              string        `db:"host"`
	Port              int           `db:"port"`
	Username          string        `db:"username"`
	Password          string        `db:"password"`
	Transport         TransportKind `db:"transport"`
	TopicPattern      string        `db:"topic_pattern"`
	DefaultEnterprise string        `db:"default_enterprise"`
	DefaultSite       string        `db:"default_site"`
	DefaultArea       string        `db:"default_area"`
	UseTLS            bool          `db:"use_tls"`
	Enabled           bool          `db:"enabled"`
	SubscribedEvents  string        `db:"subscribed_events"` // comma-joined set
	LastConnectedAt   *time.Time    `db:"last_connected_at"`
	LastError         *string       `db:"last_error"`
	CreatedAt         time.Time     `db:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at"`
}

// SubscribedTo reports whether eventType is in the broker's subscription set.
// The DB query already filters with FIND_IN_SET; this is the in-process twin.
func (b BrokerConfig) SubscribedTo(eventType string) bool {
	for _, e := range strings.Split(b.SubscribedEvents, ",") {
		if strings.TrimSpace(e) == eventType {
			return true
		}
	}
	return false
}
