package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Lpint02/iot-predictive-maintenance/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ErrStopped is returned once Disconnect has been called.
var ErrStopped = errors.New("mqtt client stopped")

// Telemetry is published best-effort.
const telemetryQoS = 0

type Client struct {
	client        mqtt.Client
	broker        string
	port          int
	retryInterval time.Duration
	logger        *slog.Logger
	mu            sync.RWMutex
	connected     bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewClient(cfg config.Config, logger *slog.Logger) *Client {
	mc := cfg.Simulation.MQTT
	c := &Client{
		broker:        mc.Broker,
		port:          mc.Port,
		retryInterval: cfg.MQTTConnectRetryInterval,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
	if c.retryInterval <= 0 {
		c.retryInterval = 5 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", mc.Broker, mc.Port))
	opts.SetClientID(mc.ClientID)

	// Session settings
	opts.SetCleanSession(true)

	// The initial connect is retried by ConnectWithRetry with a fixed delay;
	// once up, paho reconnects on its own.
	opts.SetConnectRetry(false)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(c.retryInterval)
	opts.SetConnectTimeout(10 * time.Second)

	// Keepalive / timeouts
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Callbacks keep internal state accurate
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		logger.Info("mqtt connected", "broker", mc.Broker, "port", mc.Port)
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		logger.Info("mqtt reconnecting", "broker", mc.Broker, "port", mc.Port)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// ConnectWithRetry blocks until the broker accepts the connection. Failed
// attempts are logged and retried after a fixed delay, without limit. It
// returns early only when ctx is done or the client is stopped.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		c.logger.Info("mqtt connecting", "broker", c.broker, "port", c.port, "attempt", attempt)

		err := c.connect(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || errors.Is(err, ErrStopped) {
			return err
		}

		c.logger.Warn("mqtt broker unavailable, retrying",
			"error", err,
			"attempt", attempt,
			"retry_in", c.retryInterval,
		)

		timer := time.NewTimer(c.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-c.stopCh:
			timer.Stop()
			return ErrStopped
		case <-timer.C:
		}
	}
}

// connect makes a single connection attempt and waits for it in a ctx and
// stop aware loop.
func (c *Client) connect(ctx context.Context) error {
	// Fail fast if already stopped.
	select {
	case <-c.stopCh:
		return ErrStopped
	default:
	}

	// Fast path.
	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			// OnConnectHandler may run after the token completes.
			c.setConnected(true)
			return nil
		}

		select {
		case <-ctx.Done():
			c.client.Disconnect(0)
			return ctx.Err()
		case <-c.stopCh:
			c.client.Disconnect(0)
			return ErrStopped
		default:
		}
	}
}

// Publish hands payload to the client without waiting for delivery. Only
// failures the client reports synchronously (for example while
// disconnected) are returned.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, telemetryQoS, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
	default:
	}
	return nil
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client and closes the MQTT connection.
// Idempotent and safe to call multiple times.
func (c *Client) Disconnect() {
	// Signal shutdown once (unblocks any ConnectWithRetry loops).
	c.stopOnce.Do(func() { close(c.stopCh) })

	// Paho Disconnect quiesces in-flight work for the given ms.
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
