package mqtt

import (
	"context"
	"errors"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

var errPublishTimeout = errors.New("publish not acknowledged before context was done")

// Client wraps a paho client with logging.
type Client struct {
	client mqtt.Client
	logger *zap.Logger
}

// NewClient creates a new MQTT client with the given options and logger.
func NewClient(opts *mqtt.ClientOptions, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		client: mqtt.NewClient(opts),
		logger: logger,
	}
}

// Connect establishes a connection to the MQTT broker.
func (c *Client) Connect() error {
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("broker connection error: %w", token.Error())
	}
	return nil
}

// Publish sends a message to topic and waits for the broker's ack or ctx.
func (c *Client) Publish(ctx context.Context, topic string, qos byte, retained bool, payload any) error {
	token := c.client.Publish(topic, qos, retained, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", errPublishTimeout, ctx.Err())
	}
	if err := token.Error(); err != nil {
		c.logger.Error("Publish error", zap.Error(err), zap.String("topic", topic))
		return err
	}
	c.logger.Debug("Message published", zap.String("topic", topic))
	return nil
}

// Disconnect closes the connection to the MQTT broker.
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
	c.logger.Info("Disconnected from MQTT broker")
}
