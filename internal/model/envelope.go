package model

import (
	"errors"
	"strings"
	"time"
)

var ErrValidation = errors.New("validation error")

// EventContext carries the optional ISA-95 naming hierarchy of the event.
type EventContext struct {
	Enterprise   string `json:"enterprise,omitempty"`
	Site         string `json:"site,omitempty"`
	Area         string `json:"area,omitempty"`
	Cell         string `json:"cell,omitempty"`
	Line         string `json:"line,omitempty"`
	Operation    string `json:"operation,omitempty"`
	JobNumber    string `json:"job_number,omitempty"`
	PartNumber   string `json:"part_number,omitempty"`
	OperatorName string `json:"operator_name,omitempty"`
}

// EventEnvelope is the inbound event. Ephemeral: never persisted as-is.
// The same JSON shape arrives over HTTP and on the Kafka events topic.
type EventEnvelope struct {
	TenantID  string         `json:"tenant_id"`
	EventType string         `json:"event_type"` // dot-delimited, e.g. "operation.started"
	Data      map[string]any `json:"data"`
	Context   *EventContext  `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
}

// Validate checks the three required fields. Absence is a hard input error
// rejected before any broker is contacted.
func (e *EventEnvelope) Validate() error {
	var missing []string
	if strings.TrimSpace(e.TenantID) == "" {
		missing = append(missing, "tenant_id")
	}
	if strings.TrimSpace(e.EventType) == "" {
		missing = append(missing, "event_type")
	}
	if e.Data == nil {
		missing = append(missing, "data")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

type ValidationError struct {
	Missing []string
}

func (v *ValidationError) Error() string {
	return "missing required field(s): " + strings.Join(v.Missing, ", ")
}

func (v *ValidationError) Unwrap() error { return ErrValidation }

// WirePayload is what brokers actually receive, JSON-serialized.
type WirePayload struct {
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	TenantID  string         `json:"tenant_id"`
	Data      map[string]any `json:"data"`
}
