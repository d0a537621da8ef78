package session

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"escpos-bridge/internal/model"
	"escpos-bridge/internal/protocol"
	"escpos-bridge/pkg/retry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type staticResolver map[string]model.Printer

func (r staticResolver) Get(id string) (model.Printer, bool) {
	p, ok := r[id]
	return p, ok
}

// fakePrinter records every byte written across all transports it dialed
type fakePrinter struct {
	mu       sync.Mutex
	written  bytes.Buffer
	openErrs []error
	opens    int
	active   int32
	overlap  atomic.Bool
	delay    time.Duration
	gate     chan struct{}
	dialErr  error
	stalls   int // writes that hang until their context ends
}

func (f *fakePrinter) Dial(model.Printer) (protocol.Transport, error) {
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	return &fakeTransport{printer: f}, nil
}

func (f *fakePrinter) bytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.written.Bytes()...)
}

func (f *fakePrinter) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

type fakeTransport struct {
	printer *fakePrinter
	open    bool
}

func (t *fakeTransport) Open(ctx context.Context) error {
	f := t.printer
	f.mu.Lock()
	idx := f.opens
	f.opens++
	var err error
	if idx < len(f.openErrs) {
		err = f.openErrs[idx]
	}
	f.mu.Unlock()
	if err != nil {
		return err
	}
	t.open = true
	return nil
}

func (t *fakeTransport) Close() error {
	t.open = false
	return nil
}

func (t *fakeTransport) IsOpen() bool { return t.open }

func (t *fakeTransport) Write(ctx context.Context, data []byte) error {
	f := t.printer
	if atomic.AddInt32(&f.active, 1) > 1 {
		f.overlap.Store(true)
	}
	defer atomic.AddInt32(&f.active, -1)

	f.mu.Lock()
	stall := f.stalls > 0
	if stall {
		f.stalls--
	}
	f.mu.Unlock()
	if stall {
		<-ctx.Done()
		return ctx.Err()
	}

	if f.gate != nil {
		<-f.gate
	}

	// write in two halves so interleaving would be visible
	half := len(data) / 2
	f.mu.Lock()
	f.written.Write(data[:half])
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.written.Write(data[half:])
	f.mu.Unlock()
	return nil
}

func (t *fakeTransport) Read(context.Context, int) ([]byte, error) { return nil, nil }

func (t *fakeTransport) GetProtocolType() model.ConnectionType { return model.ConnectionTypeTCP }

func (t *fakeTransport) Endpoint() string { return "fake:9100" }

func (t *fakeTransport) Stats() protocol.ProtocolStats { return protocol.ProtocolStats{} }

func testConfig() Config {
	return Config{
		QueueSize:       8,
		ConnectTimeout:  time.Second,
		DeliveryTimeout: 5 * time.Second,
		Retry: retry.Config{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     2 * time.Millisecond,
			Multiplier:   2,
		},
	}
}

func newTestManager(t *testing.T, cfg Config, printer *fakePrinter, hooks Hooks) *Manager {
	t.Helper()
	resolver := staticResolver{
		"kitchen": {ID: "kitchen", Host: "10.0.0.5", Port: 9100, ConnectionType: model.ConnectionTypeTCP},
		"bar":     {ID: "bar", Host: "10.0.0.6", Port: 9100, ConnectionType: model.ConnectionTypeTCP},
	}
	m := NewManager(cfg, printer, resolver, hooks, zaptest.NewLogger(t))
	t.Cleanup(m.Close)
	return m
}

func TestDeliver_Success(t *testing.T) {
	printer := &fakePrinter{}
	m := newTestManager(t, testConfig(), printer, Hooks{})

	receipt, err := m.Deliver(context.Background(), "kitchen", []byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, "kitchen", receipt.PrinterID)
	assert.Equal(t, "fake:9100", receipt.Endpoint)
	assert.Equal(t, 5, receipt.Bytes)
	assert.Equal(t, 1, receipt.Attempts)
	assert.Equal(t, []byte("hello"), printer.bytes())

	st, ok := m.State("kitchen")
	require.True(t, ok)
	assert.Equal(t, StateIdle, st.Kind)
	assert.Zero(t, st.ConsecutiveFailures)
}

func TestDeliver_UnknownPrinter(t *testing.T) {
	m := newTestManager(t, testConfig(), &fakePrinter{}, Hooks{})

	_, err := m.Deliver(context.Background(), "garage", []byte("x"))

	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, KindUnknownPrinter, derr.Kind)
	assert.ErrorIs(t, err, ErrUnknownPrinter)
	assert.Empty(t, m.Snapshot())
}

func TestDeliver_ProgramsNeverInterleave(t *testing.T) {
	printer := &fakePrinter{delay: time.Millisecond}
	m := newTestManager(t, testConfig(), printer, Hooks{})

	programs := [][]byte{
		bytes.Repeat([]byte("A"), 64),
		bytes.Repeat([]byte("B"), 64),
		bytes.Repeat([]byte("C"), 64),
		bytes.Repeat([]byte("D"), 64),
	}

	var wg sync.WaitGroup
	for _, p := range programs {
		wg.Add(1)
		go func(payload []byte) {
			defer wg.Done()
			_, err := m.Deliver(context.Background(), "kitchen", payload)
			assert.NoError(t, err)
		}(p)
	}
	wg.Wait()

	assert.False(t, printer.overlap.Load(), "writes overlapped")

	out := printer.bytes()
	require.Len(t, out, 256)
	for i := 0; i < len(out); i += 64 {
		chunk := out[i : i+64]
		assert.Equal(t, bytes.Repeat(chunk[:1], 64), chunk, "program bytes interleaved at offset %d", i)
	}
}

func TestDeliver_QueueFullIsBusy(t *testing.T) {
	gate := make(chan struct{})
	printer := &fakePrinter{gate: gate}
	cfg := testConfig()
	cfg.QueueSize = 1
	m := newTestManager(t, cfg, printer, Hooks{})

	results := make(chan error, 2)
	go func() {
		_, err := m.Deliver(context.Background(), "kitchen", []byte("first"))
		results <- err
	}()

	// wait until the worker is blocked inside the first write
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&printer.active) == 1
	}, time.Second, time.Millisecond)

	go func() {
		_, err := m.Deliver(context.Background(), "kitchen", []byte("second"))
		results <- err
	}()

	require.Eventually(t, func() bool {
		snap := m.Snapshot()
		return len(snap) == 1 && snap[0].QueueDepth == 1
	}, time.Second, time.Millisecond)

	_, err := m.Deliver(context.Background(), "kitchen", []byte("third"))
	assert.ErrorIs(t, err, ErrBusy)

	close(gate)
	assert.NoError(t, <-results)
	assert.NoError(t, <-results)

	snap := m.Snapshot()
	require.Len(t, snap, 1)
	assert.EqualValues(t, 1, snap[0].Rejected)
	assert.EqualValues(t, 2, snap[0].Delivered)
}

func TestDeliver_RetriesThenSucceeds(t *testing.T) {
	printer := &fakePrinter{openErrs: []error{errors.New("connection refused")}}

	var attempts []int
	var mu sync.Mutex
	hooks := Hooks{OnAttempt: func(_ string, attempt int, _ error, _ time.Duration) {
		mu.Lock()
		attempts = append(attempts, attempt)
		mu.Unlock()
	}}
	m := newTestManager(t, testConfig(), printer, hooks)

	receipt, err := m.Deliver(context.Background(), "kitchen", []byte("retry"))
	require.NoError(t, err)
	assert.Equal(t, 2, receipt.Attempts)
	assert.Equal(t, 2, printer.openCount())
	assert.Equal(t, []byte("retry"), printer.bytes())

	mu.Lock()
	assert.Equal(t, []int{1, 2}, attempts)
	mu.Unlock()
}

func TestDeliver_ExhaustedIsUnreachable(t *testing.T) {
	refused := errors.New("connection refused")
	printer := &fakePrinter{openErrs: []error{refused, refused, context.DeadlineExceeded}}
	m := newTestManager(t, testConfig(), printer, Hooks{})

	_, err := m.Deliver(context.Background(), "kitchen", []byte("x"))

	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, KindUnreachable, derr.Kind)
	assert.Equal(t, KindConnectTimeout, derr.LastKind)
	assert.Equal(t, 3, derr.Attempts)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.ErrorIs(t, err, ErrConnectTimeout)
	assert.Empty(t, printer.bytes())

	st, _ := m.State("kitchen")
	assert.Equal(t, StateFailed, st.Kind)
	assert.Equal(t, 1, st.ConsecutiveFailures)
}

func TestDeliver_StalledWriteIsRetried(t *testing.T) {
	printer := &fakePrinter{stalls: 1}
	cfg := testConfig()
	cfg.DeliveryTimeout = 50 * time.Millisecond
	m := newTestManager(t, cfg, printer, Hooks{})

	receipt, err := m.Deliver(context.Background(), "kitchen", []byte("late"))
	require.NoError(t, err)
	assert.Equal(t, 2, receipt.Attempts)
	assert.Equal(t, 2, printer.openCount())
	assert.Equal(t, []byte("late"), printer.bytes())
}

func TestDeliver_EveryAttemptStalls(t *testing.T) {
	printer := &fakePrinter{stalls: 3}
	cfg := testConfig()
	cfg.DeliveryTimeout = 50 * time.Millisecond
	m := newTestManager(t, cfg, printer, Hooks{})

	_, err := m.Deliver(context.Background(), "kitchen", []byte("x"))

	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, KindUnreachable, derr.Kind)
	assert.Equal(t, KindWriteFailed, derr.LastKind)
	assert.Equal(t, 3, derr.Attempts)
	assert.Equal(t, 3, printer.openCount())
}

func TestDeliver_FailureCountResetsOnSuccess(t *testing.T) {
	refused := errors.New("connection refused")
	printer := &fakePrinter{openErrs: []error{refused, refused, refused}}
	cfg := testConfig()
	cfg.FailureCooldown = 5 * time.Millisecond
	m := newTestManager(t, cfg, printer, Hooks{})

	_, err := m.Deliver(context.Background(), "kitchen", []byte("x"))
	require.Error(t, err)

	start := time.Now()
	_, err = m.Deliver(context.Background(), "kitchen", []byte("y"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 4*time.Millisecond, "cooldown not applied")

	st, _ := m.State("kitchen")
	assert.Equal(t, StateIdle, st.Kind)
	assert.Zero(t, st.ConsecutiveFailures)
}

func TestDeliver_DialErrorIsInvalidTarget(t *testing.T) {
	printer := &fakePrinter{dialErr: errors.New("serial port missing")}
	m := newTestManager(t, testConfig(), printer, Hooks{})

	_, err := m.Deliver(context.Background(), "kitchen", []byte("x"))

	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, KindInvalidTarget, derr.Kind)
	assert.Equal(t, 1, derr.Attempts)
}

func TestDeliver_CanceledBeforeStartIsSkipped(t *testing.T) {
	printer := &fakePrinter{}
	m := newTestManager(t, testConfig(), printer, Hooks{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Deliver(ctx, "kitchen", []byte("x"))
	assert.ErrorIs(t, err, ErrCanceled)

	// the next program still goes through and the canceled one never did
	_, err = m.Deliver(context.Background(), "kitchen", []byte("y"))
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), printer.bytes())
}

func TestDeliver_PrintersAreIndependent(t *testing.T) {
	gate := make(chan struct{})
	blocked := &fakePrinter{gate: gate}
	m := newTestManager(t, testConfig(), blocked, Hooks{})

	done := make(chan error, 1)
	go func() {
		_, err := m.Deliver(context.Background(), "kitchen", []byte("k"))
		done <- err
	}()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&blocked.active) == 1
	}, time.Second, time.Millisecond)

	barDone := make(chan error, 1)
	go func() {
		_, err := m.Deliver(context.Background(), "bar", []byte("b"))
		barDone <- err
	}()

	// bar reaches its transport while kitchen is still mid-write
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&blocked.active) == 2
	}, time.Second, time.Millisecond)

	close(gate)
	require.NoError(t, <-barDone)
	require.NoError(t, <-done)

	snap := m.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "bar", snap[0].PrinterID)
	assert.Equal(t, "kitchen", snap[1].PrinterID)
}

func TestManager_CloseRejectsNewWork(t *testing.T) {
	m := NewManager(testConfig(), &fakePrinter{}, staticResolver{"kitchen": {ID: "kitchen"}}, Hooks{}, zaptest.NewLogger(t))
	_, err := m.Deliver(context.Background(), "kitchen", []byte("x"))
	require.NoError(t, err)

	m.Close()
	m.Close()

	_, err = m.Deliver(context.Background(), "kitchen", []byte("y"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCooldown(t *testing.T) {
	m := &Manager{cfg: Config{FailureCooldown: time.Second, MaxCooldown: 3 * time.Second}}

	assert.Zero(t, m.cooldown(0))
	assert.Equal(t, time.Second, m.cooldown(1))
	assert.Equal(t, 2*time.Second, m.cooldown(2))
	assert.Equal(t, 3*time.Second, m.cooldown(5))
}
