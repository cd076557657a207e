package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/eryxon/uns-gateway/internal/model"
)

// MQTTPublisher speaks native MQTT to brokers pinned to transport=mqtt.
// One short-lived connection per publish keeps the gateway stateless; the
// per-event cost is acceptable at audit-log event rates.
type MQTTPublisher struct {
	timeout time.Duration
}

func NewMQTTPublisher(timeout time.Duration) *MQTTPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MQTTPublisher{timeout: timeout}
}

func (p *MQTTPublisher) Publish(ctx context.Context, b model.BrokerConfig, topic string, payload []byte) error {
	scheme := "tcp"
	if b.UseTLS {
		scheme = "ssl"
	}
	port := b.Port
	if port <= 0 {
		port = 1883
	}

	opts := mqtt.NewClientOptions().
		AddBroker(scheme + "://" + net.JoinHostPort(b.Host, strconv.Itoa(port))).
		SetClientID("unsgw-" + b.ID).
		SetUsername(b.Username).
		SetPassword(b.Password).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectTimeout(p.timeout)

	client := mqtt.NewClient(opts)
	defer client.Disconnect(250)

	if tok := client.Connect(); !tok.WaitTimeout(p.timeout) {
		return fmt.Errorf("mqtt connect to %s: timeout after %s", b.Host, p.timeout)
	} else if tok.Error() != nil {
		return fmt.Errorf("mqtt connect to %s: %w", b.Host, tok.Error())
	}

	if tok := client.Publish(topic, 1, false, payload); !tok.WaitTimeout(p.timeout) {
		return fmt.Errorf("mqtt publish to %s: timeout after %s", b.Host, p.timeout)
	} else if tok.Error() != nil {
		return fmt.Errorf("mqtt publish to %s: %w", b.Host, tok.Error())
	}

	return nil
}
