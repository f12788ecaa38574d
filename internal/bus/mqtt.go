package bus

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type MQTTConfig struct {
	Broker      string // host:port
	ClientID    string
	TopicPrefix string
	KeepAlive   time.Duration
	QoS         byte
}

// MQTTSender publishes each message to TopicPrefix+topic on an MQTT v5 broker.
type MQTTSender struct {
	client *paho.Client
	prefix string
	qos    byte
}

// DialMQTT connects to the broker and completes the MQTT CONNECT handshake.
func DialMQTT(ctx context.Context, cfg MQTTConfig) (*MQTTSender, error) {
	if strings.TrimSpace(cfg.Broker) == "" {
		return nil, fmt.Errorf("mqtt: broker is required")
	}
	if cfg.QoS > 1 {
		return nil, fmt.Errorf("mqtt: qos %d unsupported", cfg.QoS)
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "accel-ng-" + uuid.NewString()
	}
	keepAlive := cfg.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Broker)
	if err != nil {
		return nil, fmt.Errorf("mqtt: dial %s: %w", cfg.Broker, err)
	}

	client := paho.NewClient(paho.ClientConfig{
		ClientID: clientID,
		Conn:     conn,
	})
	ack, err := client.Connect(ctx, &paho.Connect{
		ClientID:   clientID,
		KeepAlive:  uint16(keepAlive / time.Second),
		CleanStart: true,
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("mqtt: connect %s: %w", cfg.Broker, err)
	}
	if ack != nil && ack.ReasonCode != 0 {
		_ = conn.Close()
		return nil, fmt.Errorf("mqtt: connect %s: reason code 0x%02X", cfg.Broker, ack.ReasonCode)
	}
	log.Infof("mqtt connected broker=%s client_id=%s", cfg.Broker, clientID)

	return &MQTTSender{client: client, prefix: cfg.TopicPrefix, qos: cfg.QoS}, nil
}

func (m *MQTTSender) Send(ctx context.Context, topic string, payload []byte) error {
	if m == nil || m.client == nil {
		return fmt.Errorf("mqtt: sender is nil")
	}
	_, err := m.client.Publish(ctx, &paho.Publish{
		Topic:   m.prefix + topic,
		QoS:     m.qos,
		Payload: payload,
	})
	return err
}

func (m *MQTTSender) Close() error {
	if m == nil || m.client == nil {
		return nil
	}
	err := m.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
	m.client = nil
	return err
}
