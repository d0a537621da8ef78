// internal/bus/bus.go
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"escpos-bridge/internal/config"
	"escpos-bridge/internal/model"
	"escpos-bridge/internal/registry"
	"escpos-bridge/internal/service"
	"escpos-bridge/internal/utils"
)

// Dispatcher runs one program against one printer
type Dispatcher interface {
	Dispatch(ctx context.Context, printerID, text string, source model.JobSource) *service.Result
}

// Client is a message bus adapter feeding print programs to the dispatcher
type Client interface {
	Start(ctx context.Context) error
	Close() error
	Kind() string
	Connected() bool
}

// New picks the adapter for cfg.URL
func New(cfg config.BusConfig, dispatcher Dispatcher, reg *registry.Registry, logger *zap.Logger) (Client, error) {
	kind, err := config.BusKind(cfg.URL)
	if err != nil {
		return nil, err
	}

	switch kind {
	case config.BusMQTT:
		return NewMQTTClient(cfg, dispatcher, reg, logger)
	case config.BusNATS:
		return NewNATSClient(cfg, dispatcher, logger), nil
	default:
		return nil, fmt.Errorf("unsupported bus kind %q", kind)
	}
}

// publishFunc sends an encoded result for printerID
type publishFunc func(printerID string, body []byte) error

// router keeps one FIFO lane per printer: programs for the same printer
// are dispatched in arrival order, different printers run concurrently.
// A lane's goroutine exits once its queue drains.
type router struct {
	dispatcher Dispatcher
	publish    publishFunc
	logger     *utils.ServiceLogger

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
	wg     sync.WaitGroup
}

type lane struct {
	pending []message
}

type message struct {
	ctx     context.Context
	payload []byte
}

func newRouter(dispatcher Dispatcher, publish publishFunc, logger *utils.ServiceLogger) *router {
	return &router{
		dispatcher: dispatcher,
		publish:    publish,
		logger:     logger,
		lanes:      make(map[string]*lane),
	}
}

// handle queues payload on the printer's lane and returns without waiting
// for the dispatch. Messages arriving after close are dropped.
func (r *router) handle(ctx context.Context, printerID string, payload []byte) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("Bus closing, dropping print job", zap.String("printer_id", printerID))
		return
	}
	r.wg.Add(1)
	l, running := r.lanes[printerID]
	if !running {
		l = &lane{}
		r.lanes[printerID] = l
	}
	l.pending = append(l.pending, message{ctx: ctx, payload: payload})
	r.mu.Unlock()

	if !running {
		go r.drain(printerID, l)
	}
}

func (r *router) drain(printerID string, l *lane) {
	for {
		r.mu.Lock()
		if len(l.pending) == 0 {
			delete(r.lanes, printerID)
			r.mu.Unlock()
			return
		}
		msg := l.pending[0]
		l.pending[0] = message{}
		l.pending = l.pending[1:]
		r.mu.Unlock()

		r.process(msg.ctx, printerID, msg.payload)
		r.wg.Done()
	}
}

func (r *router) process(ctx context.Context, printerID string, payload []byte) *service.Result {
	r.logger.Info("Received print job",
		zap.String("printer_id", printerID),
		zap.Int("payload_size", len(payload)),
	)

	result := r.dispatcher.Dispatch(ctx, printerID, string(payload), model.SourceBus)

	if r.publish != nil {
		body, err := json.Marshal(result)
		if err != nil {
			r.logger.Error("Failed to encode result", zap.Error(err))
			return result
		}
		if err := r.publish(printerID, body); err != nil {
			r.logger.Warn("Failed to publish result",
				zap.String("printer_id", printerID),
				zap.Error(err),
			)
		}
	}
	return result
}

// close stops accepting messages and waits for in-flight dispatches
func (r *router) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
}
