// Package mqtt fans pipeline results out to an MQTT broker so other
// systems (dashboards, recorders) can react without polling the API.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/seclens/framegate/internal"
)

// Publisher publishes per-frame results and alerts.
type Publisher struct {
	client paho.Client
	camera string
}

// Config holds broker connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	ClientID string
	Camera   string
}

// NewPublisher connects to the broker. Connection failures are
// returned so the driver can decide whether to run without fan-out.
func NewPublisher(cfg Config) (*Publisher, error) {
	broker := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)

	opts := paho.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	cli := paho.NewClient(opts)
	token := cli.Connect()
	if ok := token.WaitTimeout(10 * time.Second); !ok {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect error: %w", err)
	}

	return &Publisher{client: cli, camera: cfg.Camera}, nil
}

// PublishResult publishes one frame result. Alerts that actually went
// out are additionally published on a per-level alert topic.
func (p *Publisher) PublishResult(result *internal.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	topic := fmt.Sprintf("framegate/results/%s", p.camera)
	if err := p.publish(topic, payload); err != nil {
		return err
	}

	if result.AlertSent && result.ThreatAnalysis != nil {
		alertTopic := fmt.Sprintf("framegate/alerts/%s", result.ThreatAnalysis.Level)
		return p.publish(alertTopic, payload)
	}
	return nil
}

func (p *Publisher) publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 0, false, payload)
	token.Wait()
	return token.Error()
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
