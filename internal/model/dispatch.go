package model

// BrokerResult is one broker's outcome within a dispatch call.
type BrokerResult struct {
	BrokerID  string `json:"broker_id"`
	Topic     string `json:"topic"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// DispatchResult aggregates a full fan-out. The call is best-effort: it
// reports success even when individual brokers failed.
type DispatchResult struct {
	Published int            `json:"published"`
	Failed    int            `json:"failed"`
	Results   []BrokerResult `json:"results"`
}
