// internal/session/manager.go
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"escpos-bridge/internal/model"
	"escpos-bridge/internal/protocol"
	"escpos-bridge/pkg/retry"
)

// Resolver looks up printer connection metadata
type Resolver interface {
	Get(id string) (model.Printer, bool)
}

// Config controls queueing, timeouts and retry behaviour
type Config struct {
	QueueSize       int           `mapstructure:"queue_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
	FailureCooldown time.Duration `mapstructure:"failure_cooldown"`
	MaxCooldown     time.Duration `mapstructure:"max_cooldown"`
	Retry           retry.Config  `mapstructure:"retry"`
}

// DefaultConfig returns the session defaults
func DefaultConfig() Config {
	return Config{
		QueueSize:       8,
		ConnectTimeout:  5 * time.Second,
		DeliveryTimeout: 30 * time.Second,
		FailureCooldown: 2 * time.Second,
		MaxCooldown:     30 * time.Second,
		Retry:           retry.DefaultConfig(),
	}
}

// Hooks receive notifications from session workers. Nil hooks are skipped.
type Hooks struct {
	OnAttempt     func(printerID string, attempt int, err error, elapsed time.Duration)
	OnStateChange func(printerID string, state State)
	OnQueueDepth  func(printerID string, depth int)
}

// Receipt describes a successful delivery
type Receipt struct {
	PrinterID string        `json:"printer_id"`
	Endpoint  string        `json:"endpoint"`
	Bytes     int           `json:"bytes"`
	Attempts  int           `json:"attempts"`
	Duration  time.Duration `json:"duration"`
}

type request struct {
	ctx     context.Context
	payload []byte
	result  chan result
}

type result struct {
	receipt *Receipt
	err     error
}

// Manager owns one session per printer id. Each session has a single
// worker goroutine so bytes for one printer are never interleaved.
type Manager struct {
	cfg      Config
	dialer   protocol.Dialer
	resolver Resolver
	hooks    Hooks
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
	wg       sync.WaitGroup
	now      func() time.Time
}

// NewManager creates a new session manager
func NewManager(cfg Config, dialer protocol.Dialer, resolver Resolver, hooks Hooks, logger *zap.Logger) *Manager {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	return &Manager{
		cfg:      cfg,
		dialer:   dialer,
		resolver: resolver,
		hooks:    hooks,
		logger:   logger.With(zap.String("component", "session")),
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// Deliver queues payload for printerID and waits for the outcome. A full
// queue is rejected with a Busy DeliveryError instead of blocking.
func (m *Manager) Deliver(ctx context.Context, printerID string, payload []byte) (*Receipt, error) {
	if _, ok := m.resolver.Get(printerID); !ok {
		return nil, &DeliveryError{Kind: KindUnknownPrinter, PrinterID: printerID}
	}

	req := &request{ctx: ctx, payload: payload, result: make(chan result, 1)}

	if err := m.enqueue(printerID, req); err != nil {
		return nil, err
	}

	select {
	case res := <-req.result:
		return res.receipt, res.err
	case <-ctx.Done():
		// the worker skips requests whose context is done, or finishes an
		// in-flight send on its own
		return nil, &DeliveryError{Kind: KindCanceled, PrinterID: printerID, Err: ctx.Err()}
	}
}

// State returns the session state of a printer
func (m *Manager) State(printerID string) (State, bool) {
	m.mu.Lock()
	s, ok := m.sessions[printerID]
	m.mu.Unlock()
	if !ok {
		return State{Kind: StateIdle}, false
	}
	return s.snapshot().State, true
}

// Snapshot returns the status of every session sorted by printer id
func (m *Manager) Snapshot() []Status {
	m.mu.Lock()
	list := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.Unlock()

	out := make([]Status, 0, len(list))
	for _, s := range list {
		out = append(out, s.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PrinterID < out[j].PrinterID })
	return out
}

// Close stops accepting work, lets workers drain their queues and waits for them
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for _, s := range m.sessions {
		close(s.queue)
	}
	m.mu.Unlock()

	m.wg.Wait()
}

// enqueue hands req to the printer's worker without blocking. The lock is
// held across the send so Close cannot close the queue underneath it.
func (m *Manager) enqueue(printerID string, req *request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return &DeliveryError{Kind: KindClosed, PrinterID: printerID}
	}

	s, ok := m.sessions[printerID]
	if !ok {
		s = m.startSession(printerID)
	}

	select {
	case s.queue <- req:
		m.reportQueue(s)
		return nil
	default:
		s.countRejected()
		m.logger.Warn("Printer queue full, rejecting program",
			zap.String("printer_id", printerID),
			zap.Int("queue_size", m.cfg.QueueSize),
		)
		return &DeliveryError{Kind: KindBusy, PrinterID: printerID}
	}
}

// startSession must be called with m.mu held
func (m *Manager) startSession(printerID string) *session {
	s := &session{
		id:      printerID,
		manager: m,
		queue:   make(chan *request, m.cfg.QueueSize),
		logger:  m.logger.With(zap.String("printer_id", printerID)),
		state:   State{Kind: StateIdle, UpdatedAt: m.now()},
	}
	m.sessions[printerID] = s

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		s.run()
	}()

	return s
}

func (m *Manager) reportQueue(s *session) {
	if m.hooks.OnQueueDepth != nil {
		m.hooks.OnQueueDepth(s.id, len(s.queue))
	}
}

// cooldown is the wait imposed on a failed session before its next first attempt
func (m *Manager) cooldown(failures int) time.Duration {
	if failures <= 0 || m.cfg.FailureCooldown <= 0 {
		return 0
	}
	d := m.cfg.FailureCooldown * time.Duration(failures)
	if m.cfg.MaxCooldown > 0 && d > m.cfg.MaxCooldown {
		d = m.cfg.MaxCooldown
	}
	return d
}

// session is the per-printer worker
type session struct {
	id      string
	manager *Manager
	queue   chan *request
	logger  *zap.Logger

	mu        sync.Mutex
	state     State
	delivered int64
	failed    int64
	rejected  int64
	lastBytes int
	lastTime  time.Duration
}

func (s *session) run() {
	for req := range s.queue {
		s.manager.reportQueue(s)

		if err := req.ctx.Err(); err != nil {
			req.result <- result{err: &DeliveryError{Kind: KindCanceled, PrinterID: s.id, Err: err}}
			continue
		}

		if err := s.waitCooldown(req.ctx); err != nil {
			req.result <- result{err: &DeliveryError{Kind: KindCanceled, PrinterID: s.id, Err: err}}
			continue
		}

		receipt, err := s.deliver(req)
		req.result <- result{receipt: receipt, err: err}
	}
}

// waitCooldown delays the first attempt after a failed delivery
func (s *session) waitCooldown(ctx context.Context) error {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()

	if st.Kind != StateFailed {
		return nil
	}

	wait := s.manager.cooldown(st.ConsecutiveFailures) - s.manager.now().Sub(st.UpdatedAt)
	if wait <= 0 {
		return nil
	}

	s.logger.Debug("Waiting for failure cooldown", zap.Duration("wait", wait))
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *session) deliver(req *request) (*Receipt, error) {
	m := s.manager
	start := m.now()

	// an in-flight send is not canceled by the caller; each attempt is
	// bounded by the delivery timeout and a stall counts toward the budget
	ctx := context.WithoutCancel(req.ctx)

	var endpoint string
	attempts, err := retry.Do(ctx, m.cfg.Retry, func(attempt int) error {
		attemptStart := m.now()
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if m.cfg.DeliveryTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, m.cfg.DeliveryTimeout)
		}
		ep, err := s.attempt(attemptCtx, req)
		cancel()
		if ep != "" {
			endpoint = ep
		}
		if m.hooks.OnAttempt != nil {
			m.hooks.OnAttempt(s.id, attempt, err, m.now().Sub(attemptStart))
		}
		if err != nil && !retry.IsNonRetryable(err) {
			s.logger.Warn("Delivery attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", m.cfg.Retry.MaxAttempts),
				zap.Error(err),
			)
		}
		return err
	})

	elapsed := m.now().Sub(start)

	if err == nil {
		s.succeed(len(req.payload), elapsed)
		s.logger.Info("Program delivered",
			zap.String("endpoint", endpoint),
			zap.Int("bytes", len(req.payload)),
			zap.Int("attempts", attempts),
			zap.Duration("duration", elapsed),
		)
		return &Receipt{
			PrinterID: s.id,
			Endpoint:  endpoint,
			Bytes:     len(req.payload),
			Attempts:  attempts,
			Duration:  elapsed,
		}, nil
	}

	derr := s.deliveryError(err, attempts)
	s.fail(derr)
	s.logger.Error("Program delivery failed",
		zap.String("kind", string(derr.Kind)),
		zap.Int("attempts", attempts),
		zap.Duration("duration", elapsed),
		zap.Error(err),
	)
	return nil, derr
}

// attempt opens a fresh transport, writes the payload and closes it
func (s *session) attempt(ctx context.Context, req *request) (string, error) {
	m := s.manager

	printer, ok := m.resolver.Get(s.id)
	if !ok {
		return "", retry.NonRetryable(&attemptError{kind: KindUnknownPrinter, err: ErrUnknownPrinter})
	}

	tr, err := m.dialer.Dial(printer)
	if err != nil {
		return "", retry.NonRetryable(&attemptError{kind: KindInvalidTarget, err: err})
	}
	endpoint := tr.Endpoint()

	s.setState(StateConnecting, "")

	connectCtx := ctx
	if m.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, m.cfg.ConnectTimeout)
		defer cancel()
	}

	if err := tr.Open(connectCtx); err != nil {
		return endpoint, &attemptError{kind: classifyConnect(err), err: err}
	}

	s.setState(StateSending, "")

	writeErr := tr.Write(ctx, req.payload)
	if closeErr := tr.Close(); closeErr != nil {
		s.logger.Debug("Failed to close transport", zap.Error(closeErr))
	}
	if writeErr != nil {
		return endpoint, &attemptError{kind: KindWriteFailed, err: writeErr}
	}

	return endpoint, nil
}

func (s *session) deliveryError(err error, attempts int) *DeliveryError {
	last := kindOf(err)

	var inner error = err
	var nre *retry.NonRetryableError
	if errors.As(err, &nre) {
		inner = nre.Err
	}
	var ae *attemptError
	if errors.As(inner, &ae) {
		inner = ae.err
	}

	switch last {
	case KindUnknownPrinter, KindInvalidTarget:
		return &DeliveryError{Kind: last, PrinterID: s.id, Attempts: attempts, Err: inner}
	}

	return &DeliveryError{
		Kind:      KindUnreachable,
		LastKind:  last,
		PrinterID: s.id,
		Attempts:  attempts,
		Err:       inner,
	}
}

func (s *session) setState(kind StateKind, reason string) {
	s.mu.Lock()
	s.state.Kind = kind
	s.state.Reason = reason
	s.state.UpdatedAt = s.manager.now()
	st := s.state
	s.mu.Unlock()

	if h := s.manager.hooks.OnStateChange; h != nil {
		h(s.id, st)
	}
}

func (s *session) succeed(bytes int, elapsed time.Duration) {
	s.mu.Lock()
	s.delivered++
	s.lastBytes = bytes
	s.lastTime = elapsed
	s.state.ConsecutiveFailures = 0
	s.mu.Unlock()

	s.setState(StateIdle, "")
}

func (s *session) fail(err *DeliveryError) {
	s.mu.Lock()
	s.failed++
	s.state.ConsecutiveFailures++
	s.mu.Unlock()

	s.setState(StateFailed, err.Error())
}

func (s *session) countRejected() {
	s.mu.Lock()
	s.rejected++
	s.mu.Unlock()
}

func (s *session) snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		PrinterID:  s.id,
		State:      s.state,
		QueueDepth: len(s.queue),
		Delivered:  s.delivered,
		Failed:     s.failed,
		Rejected:   s.rejected,
		LastBytes:  s.lastBytes,
		LastMillis: float64(s.lastTime) / float64(time.Millisecond),
	}
}

// String implements fmt.Stringer for log output
func (st State) String() string {
	if st.Kind == StateFailed {
		return fmt.Sprintf("failed(%s, %d)", st.Reason, st.ConsecutiveFailures)
	}
	return string(st.Kind)
}
