// Package telemetry carries vehicle positions over MQTT.
package telemetry

import (
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	// DefaultTopicPrefix roots every position topic.
	DefaultTopicPrefix = "fleet/vehicles"
	positionSuffix     = "position"
	tokenTimeout       = 5 * time.Second
)

// Client is the part of mqtt.Client used here.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// Connect dials broker and waits for the session to be established.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	client := mqtt.NewClient(opts)
	if err := wait(client.Connect(), 10*time.Second); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	return client, nil
}

func wait(tok mqtt.Token, timeout time.Duration) error {
	if !tok.WaitTimeout(timeout) {
		return fmt.Errorf("timed out after %s", timeout)
	}
	return tok.Error()
}

// PositionTopic is the topic one vehicle's positions are published on.
func PositionTopic(prefix, vehicleID string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + vehicleID + "/" + positionSuffix
}

// PositionWildcard matches every vehicle's position topic.
func PositionWildcard(prefix string) string {
	return PositionTopic(prefix, "+")
}

// vehicleFromTopic extracts the vehicle id from <prefix>/<id>/position.
func vehicleFromTopic(prefix, topic string) (string, bool) {
	rest := strings.TrimPrefix(topic, strings.TrimSuffix(prefix, "/")+"/")
	if rest == topic {
		return "", false
	}
	id, suffix, ok := strings.Cut(rest, "/")
	if !ok || suffix != positionSuffix || id == "" {
		return "", false
	}
	return id, true
}
