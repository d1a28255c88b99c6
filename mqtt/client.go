// Package mqtt owns the broker session: one wildcard subscription over the
// configured namespace, feeding every inbound message through the ingestion
// parser into the store. Message failures are logged and dropped; they never
// take the session down.
package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/eddielth/campus-telemetry/config"
	"github.com/eddielth/campus-telemetry/ingest"
	"github.com/eddielth/campus-telemetry/logger"
	"github.com/eddielth/campus-telemetry/store"
	"github.com/eddielth/campus-telemetry/transform"
)

const (
	defaultNamespace = "campus"

	// subscribeQoS asks for at-least-once delivery.
	subscribeQoS = 1

	// reconnectInterval is the fixed retry backoff after a lost connection.
	reconnectInterval = time.Second
)

// MessageHandler is the callback type for inbound messages.
type MessageHandler func(topic string, payload []byte)

// Manager owns the broker client for the process lifetime.
type Manager struct {
	client paho.Client
	broker string
	topic  string
}

// NewManager builds the broker client wired to the given transform manager
// and store gateway. Start must be called to connect.
func NewManager(cfg config.MQTTConfig, transforms *transform.Manager, gw store.Gateway) (*Manager, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address cannot be empty")
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}
	topic := namespace + "/+/+"

	handler := createMessageHandler(transforms, gw)

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("campus-telemetry-%d", time.Now().Unix())
	}
	opts.SetClientID(clientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(reconnectInterval)
	opts.SetMaxReconnectInterval(reconnectInterval)

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Error("MQTT connection lost: %v", err)
	})
	opts.SetReconnectingHandler(func(_ paho.Client, _ *paho.ClientOptions) {
		logger.Info("trying to reconnect to MQTT broker...")
	})

	// Subscribing in OnConnect re-establishes the subscription after every
	// reconnect; the session is opened clean.
	opts.SetOnConnectHandler(func(c paho.Client) {
		token := c.Subscribe(topic, subscribeQoS, func(_ paho.Client, msg paho.Message) {
			handler(msg.Topic(), msg.Payload())
		})
		if !token.WaitTimeout(5 * time.Second) {
			logger.Error("subscription to topic %s timed out", topic)
			return
		}
		if err := token.Error(); err != nil {
			logger.Error("failed to subscribe to topic %s: %v", topic, err)
			return
		}
		logger.Info("subscribed to topic: %s", topic)
	})

	return &Manager{
		client: paho.NewClient(opts),
		broker: cfg.Broker,
		topic:  topic,
	}, nil
}

// createMessageHandler builds the ingestion path: parse, optional
// normalization, store. A transform failure is logged and the raw record is
// stored anyway; readings are never dropped over a normalization bug.
func createMessageHandler(transforms *transform.Manager, gw store.Gateway) MessageHandler {
	return func(topic string, payload []byte) {
		rec, err := ingest.ParseMessage(topic, payload)
		if err != nil {
			logger.Error("ingestion failed for topic %s: %v", topic, err)
			return
		}

		if transforms != nil {
			if err := transforms.Apply(&rec); err != nil {
				logger.Warn("transform failed for topic %s, storing raw record: %v", topic, err)
			}
		}

		if _, err := gw.InsertTelemetry(rec); err != nil {
			logger.Error("ingestion failed for topic %s: %v", topic, err)
			return
		}
		logger.Debug("stored telemetry [%s] %s: %v", rec.DeviceID, rec.Metric, rec.Value)
	}
}

// Start connects to the broker; the OnConnect handler performs the
// subscription. An unreachable broker is not fatal: the client keeps
// retrying on the fixed interval.
func (m *Manager) Start() error {
	token := m.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		logger.Warn("MQTT broker %s not reachable yet, retrying in background", m.broker)
		return nil
	}
	if err := token.Error(); err != nil {
		return err
	}

	logger.Info("connected to MQTT broker: %s", m.broker)
	return nil
}

// Stop disconnects from the broker.
func (m *Manager) Stop() {
	m.client.Disconnect(250)
	logger.Info("disconnected from MQTT broker")
}
