package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"gridmap/internal/config"
)

const publishTimeout = 10 * time.Second

// Notice announces a rebuilt network dataset.
type Notice struct {
	SnapshotID  string                  `json:"snapshot_id,omitempty"`
	Reason      string                  `json:"reason"`
	BuiltAt     time.Time               `json:"built_at"`
	Substations int                     `json:"substations"`
	Lines       int                     `json:"lines"`
	Dropped     int                     `json:"dropped"`
	Operators   map[string]OperatorStat `json:"operators,omitempty"`
}

type OperatorStat struct {
	Substations int `json:"substations"`
	Lines       int `json:"lines"`
	Dropped     int `json:"dropped"`
}

// Publisher sends refresh notices to an MQTT broker. A Publisher built from
// a disabled config is a no-op.
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	log         zerolog.Logger
}

// New creates a publisher and connects to the broker when MQTT is enabled.
func New(log zerolog.Logger, cfg config.MQTTConfig) (*Publisher, error) {
	p := &Publisher{log: log.With().Str("component", "publisher").Logger()}
	if !cfg.Enabled {
		return p, nil
	}
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	p.topicPrefix = cfg.TopicPrefix
	if p.topicPrefix == "" {
		p.topicPrefix = "gridmap"
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "gridmap"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}
	p.client = client
	p.log.Info().Str("broker", cfg.Broker).Str("topic_prefix", p.topicPrefix).Msg("mqtt publisher connected")
	return p, nil
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.client != nil
}

// Topic is where snapshot notices are published.
func (p *Publisher) Topic() string {
	return p.topicPrefix + "/snapshots"
}

// PublishSnapshot sends n as a retained message so late subscribers see the
// latest build.
func (p *Publisher) PublishSnapshot(n Notice) error {
	if !p.Enabled() {
		return nil
	}
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding notice: %w", err)
	}

	token := p.client.Publish(p.Topic(), 1, true, body)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: timed out after %s", p.Topic(), publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.Topic(), err)
	}
	p.log.Debug().Str("topic", p.Topic()).Str("reason", n.Reason).Msg("published snapshot notice")
	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p != nil && p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
