package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"escpos-bridge/internal/model"
	"escpos-bridge/internal/service"
	"escpos-bridge/internal/utils"
)

func TestNew_SelectsClient(t *testing.T) {
	logger := zaptest.NewLogger(t)

	cfg := busConfig()
	c, err := New(cfg, &fakeDispatcher{}, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, "mqtt", c.Kind())

	cfg.URL = "nats://localhost:4222"
	c, err = New(cfg, &fakeDispatcher{}, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, "nats", c.Kind())
	assert.False(t, c.Connected())
	assert.NoError(t, c.Close())

	cfg.URL = "kafka://broker"
	_, err = New(cfg, &fakeDispatcher{}, nil, logger)
	assert.Error(t, err)
}

func TestRouter_WaitsForInflight(t *testing.T) {
	defer goleak.VerifyNone(t)

	var results []string
	dispatcher := &fakeDispatcher{}
	r := newRouter(dispatcher, func(printerID string, body []byte) error {
		results = append(results, printerID)
		return errors.New("broker gone")
	}, utils.NewServiceLogger(zaptest.NewLogger(t), "test"))

	r.handle(context.Background(), "kitchen", []byte("cut"))
	r.close()

	assert.Equal(t, []string{"kitchen"}, results)
	assert.Equal(t, []string{"cut"}, dispatcher.received("kitchen"))

	r.handle(context.Background(), "kitchen", []byte("cut"))
	assert.Len(t, dispatcher.received("kitchen"), 1)
}

func TestRouter_Process(t *testing.T) {
	r := newRouter(&fakeDispatcher{}, nil, utils.NewServiceLogger(zaptest.NewLogger(t), "test"))

	result := r.process(context.Background(), "kitchen", []byte("cut"))
	assert.Equal(t, model.JobStatusPrinted, result.Status)
	assert.True(t, result.OK())
}

// slowDispatcher records dispatch order and stalls every call briefly
type slowDispatcher struct {
	mu    sync.Mutex
	order map[string][]string
	delay time.Duration
}

func (d *slowDispatcher) Dispatch(_ context.Context, printerID, text string, _ model.JobSource) *service.Result {
	time.Sleep(d.delay)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.order == nil {
		d.order = make(map[string][]string)
	}
	d.order[printerID] = append(d.order[printerID], text)
	return &service.Result{PrinterID: printerID, Status: model.JobStatusPrinted}
}

func TestRouter_OrderedPerPrinter(t *testing.T) {
	defer goleak.VerifyNone(t)

	dispatcher := &slowDispatcher{delay: time.Millisecond}
	r := newRouter(dispatcher, nil, utils.NewServiceLogger(zaptest.NewLogger(t), "test"))

	var want []string
	for i := 0; i < 50; i++ {
		body := fmt.Sprintf("writeln \"%d\"", i)
		want = append(want, body)
		r.handle(context.Background(), "kitchen", []byte(body))
		r.handle(context.Background(), "bar", []byte(body))
	}
	r.close()

	assert.Equal(t, want, dispatcher.order["kitchen"])
	assert.Equal(t, want, dispatcher.order["bar"])
}

func TestRouter_PrintersRunConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	blocking := &blockingDispatcher{release: release, started: make(chan string, 2)}
	r := newRouter(blocking, nil, utils.NewServiceLogger(zaptest.NewLogger(t), "test"))

	r.handle(context.Background(), "kitchen", []byte("cut"))
	r.handle(context.Background(), "bar", []byte("cut"))

	got := []string{<-blocking.started, <-blocking.started}
	assert.ElementsMatch(t, []string{"kitchen", "bar"}, got)

	close(release)
	r.close()
}

type blockingDispatcher struct {
	release chan struct{}
	started chan string
}

func (d *blockingDispatcher) Dispatch(_ context.Context, printerID, _ string, _ model.JobSource) *service.Result {
	d.started <- printerID
	<-d.release
	return &service.Result{PrinterID: printerID, Status: model.JobStatusPrinted}
}
