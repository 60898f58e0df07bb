// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package app wires sources, the compass engine and MQTT into the
// programs under cmd/.
package app

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/logging"
)

// disconnectQuiesceMs is how long Disconnect waits for in-flight work.
const disconnectQuiesceMs = 250

// Publisher sends a payload to an MQTT topic.
type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

type mqttPublisher struct {
	client mqtt.Client
}

// NewPublisher publishes through client with QoS 0.
func NewPublisher(client mqtt.Client) Publisher {
	return mqttPublisher{client: client}
}

func (p mqttPublisher) Publish(topic string, retained bool, payload []byte) error {
	token := p.client.Publish(topic, 0, retained, payload)
	token.Wait()
	return token.Error()
}

func publishJSON(pub Publisher, topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal (%s): %w", topic, err)
	}
	if err := pub.Publish(topic, retained, payload); err != nil {
		return fmt.Errorf("MQTT publish (%s): %w", topic, err)
	}
	return nil
}

// connectMQTT connects to the configured broker, reconnecting automatically
// after the first connection succeeded.
func connectMQTT(cfg config.MQTTConfig, clientID string, logger logging.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetConnectTimeout(cfg.ConnectTimeout()).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warnw("MQTT connection lost", "broker", cfg.Broker, "error", err)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout()) {
		return nil, fmt.Errorf("MQTT connect to %s: timed out after %s", cfg.Broker, cfg.ConnectTimeout())
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("MQTT connect to %s: %w", cfg.Broker, err)
	}
	logger.Infof("connected to MQTT broker at %s as %s", cfg.Broker, clientID)
	return client, nil
}

// subscribe registers handler for the payloads of topic.
func subscribe(client mqtt.Client, topic string, logger logging.Logger, handler func(payload []byte)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT subscribe (%s): %w", topic, err)
	}
	logger.Infof("subscribed to MQTT topic %s", topic)
	return nil
}
