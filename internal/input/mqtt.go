package input

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/config"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/controller"
)

const (
	mqttTimeout    = 5 * time.Second
	commandTimeout = 3 * time.Second
)

// MQTT accepts JSON commands on the control topic and publishes the
// answers on the response topic.
type MQTT struct {
	client mqtt.Client
	cfg    config.MQTT
	ctrl   Submitter
	log    *slog.Logger
}

// ConnectMQTT connects to the broker and subscribes to the control topic.
func ConnectMQTT(cfg config.MQTT, ctrl Submitter, log *slog.Logger) (*MQTT, error) {
	if log == nil {
		log = slog.Default()
	}
	m := &MQTT{cfg: cfg, ctrl: ctrl, log: log.With("component", "mqtt")}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "glimmer-" + uuid.NewString()[:8]
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker("tcp://" + cfg.Broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		m.log.Info("connected to broker", "broker", cfg.Broker, "client_id", clientID)
		// Resubscribe on every connect.
		if err := m.subscribe(c); err != nil {
			m.log.Error("subscribe failed", "err", err)
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.log.Warn("connection to broker lost", "err", err)
	})

	m.client = mqtt.NewClient(opts)
	token := m.client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}
	return m, nil
}

func (m *MQTT) subscribe(c mqtt.Client) error {
	token := c.Subscribe(m.cfg.ControlTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		m.publish(m.handle(msg.Payload()))
	})
	if !token.WaitTimeout(mqttTimeout) {
		return fmt.Errorf("subscribe %s: timeout", m.cfg.ControlTopic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", m.cfg.ControlTopic, err)
	}
	m.log.Info("subscribed to control topic", "topic", m.cfg.ControlTopic)
	return nil
}

// handle runs one control message and returns the encoded response.
func (m *MQTT) handle(payload []byte) []byte {
	msg, cmd, err := controller.DecodeMessage(payload)
	var res controller.Result
	if err == nil {
		m.log.Info("control command received", "command", msg.Command)
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		res, err = m.ctrl.Submit(ctx, cmd)
		cancel()
	}
	if err != nil {
		m.log.Warn("control command failed", "command", msg.Command, "err", err)
	}
	out, merr := json.Marshal(controller.Respond(msg, res, err))
	if merr != nil {
		m.log.Error("encode response", "err", merr)
		return nil
	}
	return out
}

func (m *MQTT) publish(payload []byte) {
	if payload == nil || m.cfg.ResponseTopic == "" {
		return
	}
	token := m.client.Publish(m.cfg.ResponseTopic, 1, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		m.log.Error("response publish timeout")
		return
	}
	if err := token.Error(); err != nil {
		m.log.Error("publish response", "err", err)
	}
}

// Close unsubscribes and disconnects.
func (m *MQTT) Close() {
	if m.client.IsConnected() {
		m.client.Unsubscribe(m.cfg.ControlTopic).WaitTimeout(time.Second)
	}
	m.client.Disconnect(250)
}
