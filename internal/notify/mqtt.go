package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/stef-k/Wayfarer-sub010/internal/domain"
)

// mqttConnectTimeout bounds the initial broker handshake. After a successful
// connect the paho client reconnects on its own.
const mqttConnectTimeout = 30 * time.Second

// MQTT publishes visit events as JSON to an MQTT broker, one topic per user:
// <prefix>/<user_id>. Real-time consumers (shared-view UI, home automation)
// subscribe per user or with a wildcard.
type MQTT struct {
	client mqtt.Client
	prefix string
	log    *slog.Logger
}

// NewMQTT connects to broker and returns a ready notifier. Auto-reconnect is
// enabled, so a broker outage after startup degrades to dropped events
// rather than an error — matching the best-effort delivery contract.
func NewMQTT(broker, clientID, topicPrefix string, log *slog.Logger) (*MQTT, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("notify.NewMQTT: connect to %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("notify.NewMQTT: connect to %s: %w", broker, err)
	}

	return &MQTT{client: client, prefix: topicPrefix, log: log}, nil
}

// VisitStarted publishes a visit_started event to the user's topic.
func (m *MQTT) VisitStarted(ctx context.Context, event domain.VisitStarted) {
	m.publish(ctx, event.UserID.String(), event)
}

// VisitEnded publishes a visit_ended event to the user's topic.
func (m *MQTT) VisitEnded(ctx context.Context, event domain.VisitEnded) {
	m.publish(ctx, event.UserID.String(), event)
}

// Close disconnects from the broker, allowing in-flight publishes to drain.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}

// publish marshals and sends one event without waiting for broker
// acknowledgement on the caller's goroutine. Failures are logged and dropped.
func (m *MQTT) publish(ctx context.Context, userID string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		m.log.ErrorContext(ctx, "mqtt notify: marshal event", "error", err)
		return
	}

	topic := m.prefix + "/" + userID
	token := m.client.Publish(topic, 0, false, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			m.log.Warn("mqtt notify: publish failed", "topic", topic, "error", err)
		}
	}()
}
