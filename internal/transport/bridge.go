package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eryxon/uns-gateway/internal/model"
)

// candidate is one vendor REST publish convention reachable on the broker's
// configured host/port.
type candidate struct {
	name string
	kind model.TransportKind // non-empty when a config kind pins this shape
	path string
	body func(topic string, payload []byte) any
}

var bridgeCandidates = []candidate{
	{
		name: "emqx",
		kind: model.TransportEMQX,
		path: "/api/v5/publish",
		body: func(topic string, payload []byte) any {
			return map[string]any{"topic": topic, "payload": string(payload), "qos": 0}
		},
	},
	{
		name: "hivemq",
		kind: model.TransportHiveMQ,
		path: "/api/v1/mqtt/publish",
		body: func(topic string, payload []byte) any {
			return map[string]any{"topic": topic, "payload": string(payload)}
		},
	},
	{
		name: "rabbitmq",
		path: "/api/exchanges/%2f/amq.topic/publish",
		body: func(topic string, payload []byte) any {
			// AMQP routing keys are dot-separated.
			return map[string]any{
				"properties":       map[string]any{},
				"routing_key":      strings.ReplaceAll(topic, "/", "."),
				"payload":          string(payload),
				"payload_encoding": "string",
			}
		},
	},
	{
		name: "generic",
		path: "/publish",
		body: func(topic string, payload []byte) any {
			return map[string]any{"topic": topic, "payload": json.RawMessage(payload)}
		},
	},
}

// Bridge publishes through vendor HTTP publish APIs. With transport=auto it
// probes every known shape in order and stops on the first 2xx; a pinned
// vendor kind tries only that vendor's shape.
type Bridge struct {
	client     *http.Client
	candidates []candidate
	timeout    time.Duration // per candidate

	mu       sync.Mutex
	lastGood map[string]int // broker id -> candidate index that last succeeded
}

func NewBridge(candidateTimeout time.Duration) *Bridge {
	if candidateTimeout <= 0 {
		candidateTimeout = 5 * time.Second
	}
	return &Bridge{
		client:     &http.Client{},
		candidates: bridgeCandidates,
		timeout:    candidateTimeout,
		lastGood:   map[string]int{},
	}
}

// order returns candidate indexes to try for this broker: the pinned vendor
// shape only, or (for auto) the last successful shape first, then the rest.
func (br *Bridge) order(b model.BrokerConfig) []int {
	if b.Transport != "" && b.Transport != model.TransportAuto {
		for i, c := range br.candidates {
			if c.kind == b.Transport {
				return []int{i}
			}
		}
	}

	order := make([]int, 0, len(br.candidates))
	br.mu.Lock()
	cached, ok := br.lastGood[b.ID]
	br.mu.Unlock()
	if ok && cached < len(br.candidates) {
		order = append(order, cached)
	}
	for i := range br.candidates {
		if ok && i == cached {
			continue
		}
		order = append(order, i)
	}
	return order
}

func (br *Bridge) baseURL(b model.BrokerConfig) string {
	scheme := "http"
	if b.UseTLS {
		scheme = "https"
	}
	host := b.Host
	if b.Port > 0 {
		host = net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
	}
	return scheme + "://" + host
}

func (br *Bridge) Publish(ctx context.Context, b model.BrokerConfig, topic string, payload []byte) error {
	order := br.order(b)
	base := br.baseURL(b)

	var failures []string
	for _, idx := range order {
		c := br.candidates[idx]
		if err := br.tryCandidate(ctx, c, base, b, topic, payload); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", c.name, err))
			continue
		}
		br.mu.Lock()
		br.lastGood[b.ID] = idx
		br.mu.Unlock()
		return nil
	}

	return fmt.Errorf("broker %s unreachable via %d bridge endpoint(s): %s",
		b.Host, len(order), strings.Join(failures, "; "))
}

func (br *Bridge) tryCandidate(ctx context.Context, c candidate, base string, b model.BrokerConfig, topic string, payload []byte) error {
	cctx, cancel := context.WithTimeout(ctx, br.timeout)
	defer cancel()

	body, err := json.Marshal(c.body(topic, payload))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, base+c.path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.Username != "" {
		req.SetBasicAuth(b.Username, b.Password)
	}

	res, err := br.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("status=%d", res.StatusCode)
	}
	return nil
}
