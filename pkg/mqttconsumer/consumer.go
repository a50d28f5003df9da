// Package mqttconsumer subscribes to the telemetry topic tree and forwards
// decoded-topic, raw-payload messages into the ingestion buffer.
//
// Topic grammar: "{flightId}/m/{partIndex}/{seriesIndex}".
package mqttconsumer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/aeroline/flightcore/internal/logger"
)

// ReconnectBackoff is the delay between reconnect attempts after the broker
// connection is lost.
const ReconnectBackoff = 5 * time.Second

// TelemetryTopicFilter subscribes to every flight's measurement topics.
const TelemetryTopicFilter = "+/m/+/+"

// Ingester receives decoded-topic telemetry payloads. *ingest.Buffer
// satisfies it.
type Ingester interface {
	Offer(flightID string, partIndex, seriesIndex int, payload []byte)
}

// TokenIssuer mints the service credential the consumer authenticates with.
// *auth.TokenService satisfies it.
type TokenIssuer interface {
	IssueServiceToken(serviceName string, ttl time.Duration) (string, error)
}

// Config configures the broker connection.
type Config struct {
	BrokerURL string `mapstructure:"broker_url" validate:"required" yaml:"broker_url"`
	ClientID  string `mapstructure:"client_id" yaml:"client_id"`
}

// Consumer is a long-lived MQTT subscriber feeding an Ingester.
type Consumer struct {
	cfg      Config
	tokens   TokenIssuer
	ingester Ingester

	client  mqtt.Client
	stopCh  chan struct{}
	stopped chan struct{}
}

// New returns a Consumer that is not yet connected.
func New(cfg Config, tokens TokenIssuer, ingester Ingester) *Consumer {
	return &Consumer{
		cfg:      cfg,
		tokens:   tokens,
		ingester: ingester,
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start connects to the broker and begins consuming on a dedicated
// goroutine. It returns once the initial connection attempt has been
// issued; connection loss afterward is retried internally with
// ReconnectBackoff until Stop is called or ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	token, err := c.tokens.IssueServiceToken("mqtt-consumer", time.Hour)
	if err != nil {
		return fmt.Errorf("failed to mint consumer service token: %w", err)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetUsername(c.cfg.ClientID).
		SetPassword(token).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(ReconnectBackoff).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.ErrorCtx(ctx, "mqtt connection lost", "error", err)
		}).
		SetOnConnectHandler(func(client mqtt.Client) {
			logger.InfoCtx(ctx, "mqtt connected", "broker", c.cfg.BrokerURL)
			if subToken := client.Subscribe(TelemetryTopicFilter, 1, c.handleMessage(ctx)); subToken.Wait() && subToken.Error() != nil {
				logger.ErrorCtx(ctx, "mqtt subscribe failed", "topic", TelemetryTopicFilter, "error", subToken.Error())
			}
		})

	c.client = mqtt.NewClient(opts)
	if connToken := c.client.Connect(); connToken.Wait() && connToken.Error() != nil {
		return fmt.Errorf("failed to connect to mqtt broker: %w", connToken.Error())
	}

	go func() {
		defer close(c.stopped)
		select {
		case <-ctx.Done():
		case <-c.stopCh:
		}
		c.client.Disconnect(250)
		logger.Debug("mqtt consumer stopped")
	}()

	return nil
}

// Stop signals the consumer to disconnect and waits for it to exit.
func (c *Consumer) Stop() {
	select {
	case <-c.stopCh:
		return
	default:
		close(c.stopCh)
	}
	<-c.stopped
}

func (c *Consumer) handleMessage(ctx context.Context) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		flightID, partIndex, seriesIndex, err := parseTopic(msg.Topic())
		if err != nil {
			logger.WarnCtx(ctx, "dropping message on malformed topic", "topic", msg.Topic(), "error", err)
			return
		}
		c.ingester.Offer(flightID, partIndex, seriesIndex, msg.Payload())
	}
}

// parseTopic decodes a "{flightId}/m/{partIndex}/{seriesIndex}" topic.
func parseTopic(topic string) (flightID string, partIndex, seriesIndex int, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[1] != "m" {
		return "", 0, 0, fmt.Errorf("topic %q does not match {flightId}/m/{partIndex}/{seriesIndex}", topic)
	}
	if parts[0] == "" {
		return "", 0, 0, fmt.Errorf("topic %q has empty flight id", topic)
	}
	partIndex, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, 0, fmt.Errorf("topic %q has non-integer part index: %w", topic, err)
	}
	seriesIndex, err = strconv.Atoi(parts[3])
	if err != nil {
		return "", 0, 0, fmt.Errorf("topic %q has non-integer series index: %w", topic, err)
	}
	return parts[0], partIndex, seriesIndex, nil
}
