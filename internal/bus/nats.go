// internal/bus/nats.go
package bus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"escpos-bridge/internal/config"
	"escpos-bridge/internal/utils"
)

// ErrNotConnected is returned when publishing without a connection
var ErrNotConnected = errors.New("not connected to NATS")

// NATSClient subscribes to {prefix}.{printer}.print subjects. Home Assistant
// discovery is MQTT only and not offered here.
type NATSClient struct {
	cfg    config.BusConfig
	name   string
	router *router
	logger *utils.ServiceLogger

	mu   sync.RWMutex
	conn *nats.Conn
	sub  *nats.Subscription
}

// NewNATSClient prepares the client, it connects on Start
func NewNATSClient(cfg config.BusConfig, dispatcher Dispatcher, logger *zap.Logger) *NATSClient {
	c := &NATSClient{
		cfg:    cfg,
		name:   ClientID(cfg.ClientIDPrefix),
		logger: utils.NewServiceLogger(logger, "nats"),
	}
	if cfg.PublishResults {
		c.router = newRouter(dispatcher, c.publishResult, c.logger)
	} else {
		c.router = newRouter(dispatcher, nil, c.logger)
	}
	return c
}

// Kind returns "nats"
func (c *NATSClient) Kind() string { return config.BusNATS }

// Connected reports whether the server connection is up
func (c *NATSClient) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.conn.IsConnected()
}

func (c *NATSClient) connectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.Name(c.name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			c.logger.Info("NATS reconnected", zap.String("url", conn.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			c.logger.Info("NATS connection closed")
		}),
	}
	if c.cfg.ConnectTimeout > 0 {
		opts = append(opts, nats.Timeout(c.cfg.ConnectTimeout))
	}
	if c.cfg.KeepAlive > 0 {
		opts = append(opts, nats.PingInterval(c.cfg.KeepAlive))
	}
	return opts
}

// Start connects and subscribes
func (c *NATSClient) Start(ctx context.Context) error {
	c.logger.Info("Connecting to NATS", zap.String("name", c.name))

	conn, err := nats.Connect(c.cfg.URL, c.connectionOptions()...)
	if err != nil {
		return err
	}

	filter := PrintSubjectFilter(c.cfg.TopicPrefix)
	sub, err := conn.Subscribe(filter, func(msg *nats.Msg) {
		printerID, ok := PrinterFromSubject(c.cfg.TopicPrefix, msg.Subject)
		if !ok {
			return
		}
		c.router.handle(ctx, printerID, msg.Data)
	})
	if err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.sub = sub
	c.mu.Unlock()

	c.logger.Info("Listening for print jobs", zap.String("subject", PrintSubject(c.cfg.TopicPrefix, "*")))
	return nil
}

func (c *NATSClient) publishResult(printerID string, body []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return ErrNotConnected
	}
	return conn.Publish(ResultSubject(c.cfg.TopicPrefix, printerID), body)
}

// Close unsubscribes, waits for in-flight jobs and drains the connection
func (c *NATSClient) Close() error {
	c.mu.RLock()
	conn, sub := c.conn, c.sub
	c.mu.RUnlock()

	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Warn("Failed to unsubscribe", zap.Error(err))
		}
	}
	c.router.close()

	if conn == nil {
		return nil
	}
	if conn.IsConnected() {
		return conn.Drain()
	}
	conn.Close()
	return nil
}
