// internal/bus/mqtt.go
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"escpos-bridge/internal/config"
	"escpos-bridge/internal/model"
	"escpos-bridge/internal/registry"
	"escpos-bridge/internal/utils"
)

const publishTimeout = 5 * time.Second

// ErrTimeout is returned when the broker does not acknowledge in time
var ErrTimeout = errors.New("mqtt operation timed out")

// MQTTClient subscribes to {prefix}/+/print, keeps the availability topic
// current through a retained last will and announces printers to Home
// Assistant
type MQTTClient struct {
	cfg      config.BusConfig
	client   mqtt.Client
	clientID string
	registry *registry.Registry
	router   *router
	logger   *utils.ServiceLogger

	mu          sync.Mutex
	ctx         context.Context
	unsubscribe func()
}

// NewMQTTClient prepares the client, it connects on Start
func NewMQTTClient(cfg config.BusConfig, dispatcher Dispatcher, reg *registry.Registry, logger *zap.Logger) (*MQTTClient, error) {
	broker, clientID, user, err := brokerOptions(cfg.URL, cfg.ClientIDPrefix)
	if err != nil {
		return nil, err
	}

	c := &MQTTClient{
		cfg:      cfg,
		clientID: clientID,
		registry: reg,
		logger:   utils.NewServiceLogger(logger, "mqtt"),
		ctx:      context.Background(),
	}
	if cfg.PublishResults {
		c.router = newRouter(dispatcher, c.publishResult, c.logger)
	} else {
		c.router = newRouter(dispatcher, nil, c.logger)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetKeepAlive(cfg.KeepAlive).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(time.Minute).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetWill(AvailabilityTopic(cfg.TopicPrefix), AvailabilityOffline, cfg.QoS, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost).
		SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
			c.logger.Info("Reconnecting to MQTT broker", zap.String("broker", broker))
		})
	if user != nil {
		opts.SetUsername(user.Username())
		if pw, ok := user.Password(); ok {
			opts.SetPassword(pw)
		}
	}

	c.client = mqtt.NewClient(opts)
	return c, nil
}

// brokerOptions converts the configured URL into a paho broker address. A
// client_id query parameter overrides the generated id.
func brokerOptions(raw, prefix string) (string, string, *url.Userinfo, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", nil, fmt.Errorf("invalid bus url: %w", err)
	}

	scheme, defaultPort := u.Scheme, ""
	switch u.Scheme {
	case "mqtt", "tcp":
		scheme, defaultPort = "tcp", "1883"
	case "mqtts", "ssl", "tls":
		scheme, defaultPort = "ssl", "8883"
	case "ws", "wss":
	default:
		return "", "", nil, fmt.Errorf("unsupported mqtt scheme %q", u.Scheme)
	}

	host := u.Host
	if u.Port() == "" && defaultPort != "" {
		host = net.JoinHostPort(u.Hostname(), defaultPort)
	}

	clientID := u.Query().Get("client_id")
	if clientID == "" {
		clientID = ClientID(prefix)
	}

	broker := scheme + "://" + host + u.Path
	return broker, clientID, u.User, nil
}

// Kind returns "mqtt"
func (c *MQTTClient) Kind() string { return config.BusMQTT }

// Connected reports whether the broker connection is up
func (c *MQTTClient) Connected() bool {
	return c.client.IsConnectionOpen()
}

// Start connects to the broker. Subscriptions are (re)established by the
// connect handler, so they survive reconnects.
func (c *MQTTClient) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	c.logger.Info("Connecting to MQTT broker",
		zap.String("client_id", c.clientID),
		zap.String("topic_prefix", c.cfg.TopicPrefix),
	)

	token := c.client.Connect()
	if err := waitToken(ctx, token, c.cfg.ConnectTimeout); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	if c.cfg.HomeAssistant.Enabled && c.registry != nil {
		events, unsubscribe := c.registry.Subscribe(64)
		c.mu.Lock()
		c.unsubscribe = unsubscribe
		c.mu.Unlock()
		go c.forwardAnnouncements(ctx, events)
	}
	return nil
}

func (c *MQTTClient) onConnect(client mqtt.Client) {
	prefix := c.cfg.TopicPrefix
	c.logger.Info("Connected to MQTT broker", zap.String("client_id", c.clientID))

	if err := waitToken(context.Background(), client.Publish(AvailabilityTopic(prefix), c.cfg.QoS, true, AvailabilityOnline), publishTimeout); err != nil {
		c.logger.Warn("Failed to publish availability", zap.Error(err))
	}

	token := client.Subscribe(PrintFilter(prefix), c.cfg.QoS, c.onMessage)
	if err := waitToken(context.Background(), token, publishTimeout); err != nil {
		c.logger.Error("Failed to subscribe to print topic",
			zap.String("topic", PrintFilter(prefix)),
			zap.Error(err),
		)
		return
	}
	c.logger.Info("Listening for print jobs", zap.String("topic", PrintFilter(prefix)))

	if c.cfg.HomeAssistant.Enabled && c.registry != nil {
		for _, p := range c.registry.List() {
			c.announce(client, p)
		}
	}
}

func (c *MQTTClient) onConnectionLost(_ mqtt.Client, err error) {
	c.logger.Warn("MQTT connection lost", zap.Error(err))
}

func (c *MQTTClient) onMessage(_ mqtt.Client, msg mqtt.Message) {
	printerID, ok := PrinterFromTopic(c.cfg.TopicPrefix, msg.Topic())
	if !ok {
		c.logger.Warn("Ignoring message on unexpected topic", zap.String("topic", msg.Topic()))
		return
	}

	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()

	c.router.handle(ctx, printerID, msg.Payload())
}

func (c *MQTTClient) publishResult(printerID string, body []byte) error {
	return waitToken(context.Background(), c.client.Publish(ResultTopic(c.cfg.TopicPrefix, printerID), c.cfg.QoS, false, body), publishTimeout)
}

// forwardAnnouncements publishes a discovery config for each added printer
func (c *MQTTClient) forwardAnnouncements(ctx context.Context, events <-chan registry.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == registry.EventAdded {
				c.announce(c.client, ev.Printer)
			}
		}
	}
}

func (c *MQTTClient) announce(client mqtt.Client, p model.Printer) {
	body, err := json.Marshal(NewHomeAssistantConfig(c.cfg.TopicPrefix, p))
	if err != nil {
		c.logger.Error("Failed to encode Home Assistant config", zap.Error(err))
		return
	}

	topic := HomeAssistantTopic(c.cfg.HomeAssistant.DiscoveryPrefix, p.ID)
	if err := waitToken(context.Background(), client.Publish(topic, c.cfg.QoS, true, body), publishTimeout); err != nil {
		c.logger.Warn("Failed to publish Home Assistant discovery",
			zap.String("printer_id", p.ID),
			zap.Error(err),
		)
		return
	}
	c.logger.Info("Published Home Assistant discovery",
		zap.String("printer_id", p.ID),
		zap.String("topic", topic),
	)
}

// Close unsubscribes, waits for in-flight jobs, marks the bridge offline and
// disconnects
func (c *MQTTClient) Close() error {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}

	if !c.client.IsConnectionOpen() {
		c.router.close()
		return nil
	}

	if err := waitToken(context.Background(), c.client.Unsubscribe(PrintFilter(c.cfg.TopicPrefix)), publishTimeout); err != nil {
		c.logger.Warn("Failed to unsubscribe", zap.Error(err))
	}
	c.router.close()

	err := waitToken(context.Background(), c.client.Publish(AvailabilityTopic(c.cfg.TopicPrefix), c.cfg.QoS, true, AvailabilityOffline), publishTimeout)
	c.client.Disconnect(250)
	c.logger.Info("Disconnected from MQTT broker")
	return err
}

// waitToken blocks until token completes, ctx is done or timeout elapses
func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = publishTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
