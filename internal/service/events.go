// internal/service/events.go
package service

import (
	"context"
	"time"

	"escpos-bridge/internal/model"
	"escpos-bridge/internal/registry"
	"escpos-bridge/internal/session"
)

// ForwardRegistryEvents publishes registry changes until ctx is done or the
// subscription closes
func ForwardRegistryEvents(ctx context.Context, events <-chan registry.Event, pub EventPublisher) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			pub.Publish(printerEvent(ev))
		}
	}
}

func printerEvent(ev registry.Event) model.Event {
	eventType := model.EventPrinterUpdated
	if ev.Kind == registry.EventAdded {
		eventType = model.EventPrinterAdded
	}
	p := ev.Printer
	return model.NewEvent(eventType, p.ID, "registry", model.JSONObject{
		"endpoint": p.Endpoint(),
		"model":    p.Model,
		"origin":   string(p.Origin),
		"name":     p.Name,
	})
}

// SessionEventHooks returns session hooks that publish state changes
func SessionEventHooks(pub EventPublisher) session.Hooks {
	return session.Hooks{
		OnStateChange: func(printerID string, state session.State) {
			pub.Publish(model.NewEvent(model.EventSessionState, printerID, "session", model.JSONObject{
				"state":                string(state.Kind),
				"reason":               state.Reason,
				"consecutive_failures": state.ConsecutiveFailures,
				"updated_at":           state.UpdatedAt.Format(time.RFC3339Nano),
			}))
		},
	}
}
