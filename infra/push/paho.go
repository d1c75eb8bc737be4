// Package push delivers offer alerts to staff devices over MQTT.
// Mobile clients subscribe to their per-staff topic and render the
// payload as a local notification.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	corepush "github.com/villaops/dispatchd/core/push"
)

// Client mirrors the core push.Client interface.
type Client = corepush.Client

// Config defines MQTT push transport settings.
type Config struct {
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "dispatchd"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "staff"
	}
	if c.QoS == 0 {
		c.QoS = 1
	}
}

type envelope struct {
	MessageID string `json:"message_id"`
	corepush.Message
	SentAt time.Time `json:"sent_at"`
}

// PahoClient publishes push messages over an MQTT broker.
type PahoClient struct {
	client mqtt.Client
	cfg    Config
}

// NewPahoClient connects to the broker and returns the push client.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &PahoClient{client: client, cfg: cfg}, nil
}

// Push implements push.Client by publishing the message on the staff
// member's topic.
func (p *PahoClient) Push(_ context.Context, staffID string, msg corepush.Message) (string, error) {
	env := envelope{MessageID: uuid.NewString(), Message: msg, SentAt: time.Now().UTC()}
	payload, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	topic := fmt.Sprintf("%s/%s/offers", p.cfg.TopicPrefix, staffID)
	token := p.client.Publish(topic, p.cfg.QoS, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return "", fmt.Errorf("publish to %s: %w", topic, err)
	}
	return env.MessageID, nil
}

// Close disconnects from the broker.
func (p *PahoClient) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
