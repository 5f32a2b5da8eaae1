// Package mqtt publishes station telemetry to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloudpico-display/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var ErrNotConnected = errors.New("mqtt client not connected")

const publishTimeout = 5 * time.Second

type Client struct {
	client    mqtt.Client
	stationID string
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewClient(cfg config.Config, logger *slog.Logger) (*Client, error) {
	if cfg.MQTTBroker == "" {
		return nil, errors.New("mqtt: no broker configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		stationID: cfg.DeviceStationID,
		logger:    logger.With("component", "mqtt"),
		stopCh:    make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// The broker marks the station unhealthy if the connection drops uncleanly.
	if will, err := json.Marshal(StationHealth{StationID: cfg.DeviceStationID, Healthy: false}); err == nil {
		opts.SetBinaryWill(healthTopic(cfg.DeviceStationID), will, 1, true)
	}

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		c.logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		c.logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c, nil
}

// Connect waits for the initial connection, honouring ctx and Disconnect.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return fmt.Errorf("client stopped")
	default:
	}

	if c.IsConnected() {
		return nil
	}

	// With ConnectRetry the token may stay pending while paho keeps retrying.
	token := c.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return fmt.Errorf("client stopped")
		default:
		}
	}
}

// PublishTelemetry publishes one sample to the station topic.
func (c *Client) PublishTelemetry(telemetry Telemetry) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	telemetry.StationID = c.stationID
	if telemetry.Timestamp.IsZero() {
		telemetry.Timestamp = time.Now()
	}
	data, err := json.Marshal(telemetry)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	topic := telemetryTopic(c.stationID)
	if err := c.publish(topic, false, data); err != nil {
		return err
	}
	c.logger.Debug("published telemetry", "topic", topic)
	return nil
}

// PublishStationHealth publishes the retained liveness message.
func (c *Client) PublishStationHealth(healthy bool) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	data, err := json.Marshal(StationHealth{
		StationID: c.stationID,
		LastSeen:  time.Now(),
		Healthy:   healthy,
	})
	if err != nil {
		return fmt.Errorf("marshal health: %w", err)
	}
	topic := healthTopic(c.stationID)
	if err := c.publish(topic, true, data); err != nil {
		return err
	}
	c.logger.Debug("published station health", "topic", topic, "healthy", healthy)
	return nil
}

func (c *Client) publish(topic string, retained bool, payload []byte) error {
	token := c.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect is idempotent. After it, Connect returns "client stopped".
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	if c.client != nil {
		c.client.Disconnect(250)
	}
	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
