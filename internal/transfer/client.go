package transfer

import (
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Okumans/EmbeddedSmartAlarm/internal/metrics"
)

// Topics names the four MQTT topics the upload protocol uses.
type Topics struct {
	Request  string // uploader -> device: free-space request
	Response string // device -> uploader: capacity reply
	Chunk    string // uploader -> device: START / CHUNK / END
	Ack      string // device -> uploader: per-chunk acknowledgment
}

// Client wraps the MQTT connection and routes inbound replies and
// acknowledgments from the broker callback goroutine to the controlling
// session through channels. The callback never shares mutable state with
// the controller directly.
type Client struct {
	mqtt    mqtt.Client
	topics  Topics
	logger  *slog.Logger
	metrics *metrics.Metrics

	replies chan CapacityReply
	acks    chan int
}

// NewClient prepares an MQTT client for the given broker URL, e.g.
// "tcp://broker.hivemq.com:1883".
func NewClient(brokerURL, clientID string, topics Topics, logger *slog.Logger, m *metrics.Metrics) *Client {
	c := &Client{
		topics:  topics,
		logger:  logger,
		metrics: m,
		replies: make(chan CapacityReply, 4),
		acks:    make(chan int, 16),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetConnectTimeout(10 * time.Second)
	c.mqtt = mqtt.NewClient(opts)

	return c
}

// Connect establishes the broker connection and subscribes to the
// response and acknowledgment topics.
func (c *Client) Connect() error {
	if token := c.mqtt.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	if token := c.mqtt.Subscribe(c.topics.Response, 0, c.onResponse); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.topics.Response, token.Error())
	}
	if token := c.mqtt.Subscribe(c.topics.Ack, 0, c.onAck); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.topics.Ack, token.Error())
	}

	c.logger.Info("MQTT transfer channel connected",
		slog.String("response_topic", c.topics.Response),
		slog.String("ack_topic", c.topics.Ack),
	)
	return nil
}

// onResponse runs on the broker listener goroutine. Malformed replies are
// logged and dropped; they must never crash the listener.
func (c *Client) onResponse(_ mqtt.Client, msg mqtt.Message) {
	reply, err := ParseCapacityReply(msg.Payload())
	if err != nil {
		if c.metrics != nil {
			c.metrics.MalformedMessages.Inc()
		}
		c.logger.Warn("ignoring malformed capacity reply",
			slog.String("topic", msg.Topic()),
			slog.String("error", err.Error()),
		)
		return
	}

	if c.metrics != nil {
		c.metrics.CapacityReplies.Inc()
	}
	select {
	case c.replies <- reply:
	default:
		// A reply nobody is waiting for is stale; drop it.
	}
}

// onAck runs on the broker listener goroutine.
func (c *Client) onAck(_ mqtt.Client, msg mqtt.Message) {
	index, err := ParseAck(msg.Payload())
	if err != nil {
		if c.metrics != nil {
			c.metrics.MalformedMessages.Inc()
		}
		c.logger.Warn("ignoring malformed acknowledgment",
			slog.String("topic", msg.Topic()),
			slog.String("error", err.Error()),
		)
		return
	}

	select {
	case c.acks <- index:
	default:
		// Acknowledgments are only meaningful to an in-progress wait.
	}
}

// PublishRequest publishes to the free-space request topic.
func (c *Client) PublishRequest(payload []byte) error {
	return c.publish(c.topics.Request, payload)
}

// PublishChunk publishes to the chunk-data topic.
func (c *Client) PublishChunk(payload []byte) error {
	return c.publish(c.topics.Chunk, payload)
}

func (c *Client) publish(topic string, payload []byte) error {
	token := c.mqtt.Publish(topic, 0, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Replies returns the capacity-reply channel fed by the listener.
func (c *Client) Replies() <-chan CapacityReply {
	return c.replies
}

// Acks returns the acknowledgment channel fed by the listener.
func (c *Client) Acks() <-chan int {
	return c.acks
}

// Close disconnects from the broker, halting the listener.
func (c *Client) Close() {
	c.mqtt.Disconnect(250)
	c.logger.Info("MQTT transfer channel closed")
}
