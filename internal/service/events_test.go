package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"escpos-bridge/internal/model"
	"escpos-bridge/internal/registry"
	"escpos-bridge/internal/session"
)

func TestForwardRegistryEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := registry.New(zaptest.NewLogger(t))
	events, unsubscribe := reg.Subscribe(4)
	pub := &recordingPublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ForwardRegistryEvents(ctx, events, pub)
		close(done)
	}()

	reg.Upsert(model.Printer{ID: "kitchen", Host: "10.0.0.5", Model: "TM-T20III"})
	reg.Upsert(model.Printer{ID: "kitchen", Host: "10.0.0.6", Model: "TM-T20III"})

	require.Eventually(t, func() bool { return len(pub.types()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []model.EventType{model.EventPrinterAdded, model.EventPrinterUpdated}, pub.types())

	cancel()
	<-done
	unsubscribe()
}

func TestSessionEventHooks(t *testing.T) {
	pub := &recordingPublisher{}
	hooks := SessionEventHooks(pub)
	require.NotNil(t, hooks.OnStateChange)

	hooks.OnStateChange("kitchen", session.State{Kind: session.StateFailed, Reason: "connect_failed", ConsecutiveFailures: 2})

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, model.EventSessionState, ev.EventType)
	assert.Equal(t, "kitchen", ev.PrinterID)
	assert.Equal(t, "failed", ev.Data["state"])
	assert.Equal(t, 2, ev.Data["consecutive_failures"])
}
