package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"escpos-bridge/internal/model"
)

func newTestRegistry(t *testing.T) (*Registry, *time.Time) {
	t.Helper()
	r := New(zaptest.NewLogger(t))
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }
	return r, &clock
}

func TestUpsert_CreatesWithDefaults(t *testing.T) {
	r, clock := newTestRegistry(t)

	p, created := r.Upsert(model.Printer{ID: "kitchen", Host: "10.0.0.5", Model: "TM-T88V"})
	require.True(t, created)

	assert.Equal(t, model.DefaultRawPort, p.Port)
	assert.Equal(t, model.OriginDiscovered, p.Origin)
	assert.Equal(t, model.ConnectionTypeTCP, p.ConnectionType)
	assert.Equal(t, *clock, p.FirstSeen)
	assert.Equal(t, *clock, p.LastSeen)
}

func TestUpsert_MergePreservesFirstSeen(t *testing.T) {
	r, clock := newTestRegistry(t)

	first, _ := r.Upsert(model.Printer{ID: "kitchen", Host: "10.0.0.5"})
	*clock = clock.Add(time.Minute)

	updated, created := r.Upsert(model.Printer{ID: "kitchen", Host: "10.0.0.9", Model: "TM-T20III"})
	require.False(t, created)

	assert.Equal(t, "10.0.0.9", updated.Host)
	assert.Equal(t, "TM-T20III", updated.Model)
	assert.Equal(t, first.FirstSeen, updated.FirstSeen)
	assert.Equal(t, *clock, updated.LastSeen)
	assert.Equal(t, 1, r.Count())
}

func TestUpsert_DiscoveryNeverOverwritesManual(t *testing.T) {
	r, _ := newTestRegistry(t)

	r.Upsert(model.Printer{ID: model.ManualPrinterID, Host: "192.168.1.50", Origin: model.OriginManual, Model: "TM-T88V"})

	stored, created := r.Upsert(model.Printer{ID: model.ManualPrinterID, Host: "10.0.0.1", Origin: model.OriginDiscovered})
	assert.False(t, created)
	assert.Equal(t, "192.168.1.50", stored.Host)

	got, ok := r.Get(model.ManualPrinterID)
	require.True(t, ok)
	assert.Equal(t, "192.168.1.50", got.Host)
	assert.Equal(t, model.OriginManual, got.Origin)
}

func TestList_SortedAndCopied(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Upsert(model.Printer{ID: "b", Host: "h2"})
	r.Upsert(model.Printer{ID: "a", Host: "h1"})

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	list[0].Host = "mutated"
	got, _ := r.Get("a")
	assert.Equal(t, "h1", got.Host)
}

func TestTouchAndStale(t *testing.T) {
	r, clock := newTestRegistry(t)
	r.Upsert(model.Printer{ID: "old", Host: "h1"})
	r.Upsert(model.Printer{ID: model.ManualPrinterID, Host: "h0", Origin: model.OriginManual})
	r.Upsert(model.Printer{ID: "fresh", Host: "h2"})

	*clock = clock.Add(10 * time.Minute)
	assert.True(t, r.Touch("fresh"))
	assert.False(t, r.Touch("missing"))

	stale := r.Stale(5 * time.Minute)
	require.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].ID)
	assert.Equal(t, 3, r.Count(), "stale printers stay registered")
}

func TestSubscribe_ReceivesAddedAndUpdated(t *testing.T) {
	r, _ := newTestRegistry(t)
	events, cancel := r.Subscribe(4)
	defer cancel()

	r.Upsert(model.Printer{ID: "p", Host: "h1"})
	r.Upsert(model.Printer{ID: "p", Host: "h1"}) // no change, no event
	r.Upsert(model.Printer{ID: "p", Host: "h2"})

	ev := <-events
	assert.Equal(t, EventAdded, ev.Kind)
	ev = <-events
	assert.Equal(t, EventUpdated, ev.Kind)
	assert.Equal(t, "h2", ev.Printer.Host)

	select {
	case extra := <-events:
		t.Fatalf("unexpected event %+v", extra)
	default:
	}
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	r, _ := newTestRegistry(t)
	events, cancel := r.Subscribe(1)
	cancel()
	cancel()

	_, open := <-events
	assert.False(t, open)

	r.Upsert(model.Printer{ID: "p", Host: "h"})
}

func TestRegistry_ConcurrentUpsert(t *testing.T) {
	r := New(zaptest.NewLogger(t))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Upsert(model.Printer{ID: fmt.Sprintf("p%d", j%5), Host: fmt.Sprintf("h%d", i)})
				r.List()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, r.Count())
}

func TestSubscribe_OrderMatchesConcurrentUpserts(t *testing.T) {
	r := New(zaptest.NewLogger(t))
	events, cancel := r.Subscribe(1000)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r.Upsert(model.Printer{ID: "p", Host: fmt.Sprintf("h%d-%d", i, j)})
			}
		}(i)
	}
	wg.Wait()

	var got []Event
	for len(events) > 0 {
		got = append(got, <-events)
	}
	require.NotEmpty(t, got)

	assert.Equal(t, EventAdded, got[0].Kind)
	for _, ev := range got[1:] {
		assert.Equal(t, EventUpdated, ev.Kind)
	}

	stored, ok := r.Get("p")
	require.True(t, ok)
	assert.Equal(t, stored.Host, got[len(got)-1].Printer.Host)
}

func TestFindByHost(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Upsert(model.Printer{ID: model.ManualPrinterID, Host: "10.0.0.5", Origin: model.OriginManual})
	r.Upsert(model.Printer{ID: "x4abc", Host: "10.0.0.5", Serial: "X4ABC"})
	r.Upsert(model.Printer{ID: "bar", Host: "10.0.0.9"})

	p, ok := r.FindByHost("10.0.0.5")
	require.True(t, ok)
	assert.Equal(t, "x4abc", p.ID)

	_, ok = r.FindByHost("10.0.0.77")
	assert.False(t, ok)
}
