// internal/registry/registry.go
package registry

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"escpos-bridge/internal/model"
)

// EventKind describes a registry change
type EventKind string

const (
	EventAdded   EventKind = "added"
	EventUpdated EventKind = "updated"
)

// Event is published to subscribers on every change
type Event struct {
	Kind    EventKind
	Printer model.Printer
}

// Registry is the process-wide set of known printers, keyed by id.
// Entries are never removed.
type Registry struct {
	printers    map[string]*model.Printer
	subscribers map[int]chan Event
	nextSub     int
	mu          sync.RWMutex
	logger      *zap.Logger
	now         func() time.Time
}

// New creates a new printer registry
func New(logger *zap.Logger) *Registry {
	return &Registry{
		printers:    make(map[string]*model.Printer),
		subscribers: make(map[int]chan Event),
		logger:      logger.With(zap.String("component", "registry")),
		now:         time.Now,
	}
}

// Upsert inserts a printer or merges it into the existing entry with the
// same id. Discovery results never overwrite a manual entry. The stored
// printer and whether it was newly created are returned.
func (r *Registry) Upsert(p model.Printer) (model.Printer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	existing, ok := r.printers[p.ID]

	if !ok {
		if p.Port == 0 && p.ConnectionType != model.ConnectionTypeSerial {
			p.Port = model.DefaultRawPort
		}
		if p.ConnectionType == "" {
			p.ConnectionType = model.ConnectionTypeTCP
		}
		if p.Origin == "" {
			p.Origin = model.OriginDiscovered
		}
		p.FirstSeen = now
		p.LastSeen = now

		stored := p
		r.printers[p.ID] = &stored

		r.logger.Info("Printer added",
			zap.String("printer_id", p.ID),
			zap.String("endpoint", stored.Endpoint()),
			zap.String("model", p.Model),
			zap.String("origin", string(p.Origin)),
		)
		r.publishLocked(Event{Kind: EventAdded, Printer: stored})
		return stored, true
	}

	if existing.IsManual() && p.Origin != model.OriginManual {
		r.logger.Debug("Ignoring discovery result for manual printer", zap.String("printer_id", p.ID))
		return *existing, false
	}

	changed := merge(existing, &p)
	existing.LastSeen = now
	stored := *existing

	if changed {
		r.logger.Info("Printer updated",
			zap.String("printer_id", stored.ID),
			zap.String("endpoint", stored.Endpoint()),
			zap.String("model", stored.Model),
		)
		r.publishLocked(Event{Kind: EventUpdated, Printer: stored})
	}

	return stored, false
}

// merge copies non-empty identity fields of src into dst and reports whether anything changed
func merge(dst, src *model.Printer) bool {
	changed := false

	set := func(d *string, s string) {
		if s != "" && *d != s {
			*d = s
			changed = true
		}
	}
	set(&dst.Host, src.Host)
	set(&dst.Model, src.Model)
	set(&dst.Name, src.Name)
	set(&dst.Description, src.Description)
	set(&dst.Serial, src.Serial)
	set(&dst.SerialPort, src.SerialPort)

	if src.Port != 0 && dst.Port != src.Port {
		dst.Port = src.Port
		changed = true
	}
	if src.BaudRate != 0 && dst.BaudRate != src.BaudRate {
		dst.BaudRate = src.BaudRate
		changed = true
	}
	if src.ConnectionType != "" && dst.ConnectionType != src.ConnectionType {
		dst.ConnectionType = src.ConnectionType
		changed = true
	}

	return changed
}

// Get returns a copy of the printer with the given id
func (r *Registry) Get(id string) (model.Printer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.printers[id]
	if !ok {
		return model.Printer{}, false
	}
	return *p, true
}

// List returns all printers sorted by id
func (r *Registry) List() []model.Printer {
	r.mu.RLock()
	out := make([]model.Printer, 0, len(r.printers))
	for _, p := range r.printers {
		out = append(out, *p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindByHost returns the discovered printer registered at host. When
// several match, the lowest id wins.
func (r *Registry) FindByHost(host string) (model.Printer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *model.Printer
	for _, p := range r.printers {
		if p.IsManual() || p.Host != host {
			continue
		}
		if found == nil || p.ID < found.ID {
			found = p
		}
	}
	if found == nil {
		return model.Printer{}, false
	}
	return *found, true
}

// Count returns the number of known printers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.printers)
}

// CountByOrigin returns the number of printers per origin
func (r *Registry) CountByOrigin() map[model.PrinterOrigin]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[model.PrinterOrigin]int)
	for _, p := range r.printers {
		out[p.Origin]++
	}
	return out
}

// Touch refreshes last_seen of a printer
func (r *Registry) Touch(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.printers[id]
	if ok {
		p.LastSeen = r.now()
	}
	return ok
}

// Stale returns discovered printers not seen within maxAge. They stay registered.
func (r *Registry) Stale(maxAge time.Duration) []model.Printer {
	cutoff := r.now().Add(-maxAge)

	r.mu.RLock()
	var out []model.Printer
	for _, p := range r.printers {
		if !p.IsManual() && p.LastSeen.Before(cutoff) {
			out = append(out, *p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Subscribe returns a channel receiving every registry event and a function
// that cancels the subscription. Events are dropped for subscribers whose
// buffer is full.
func (r *Registry) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subscribers[id] = ch
	r.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subscribers, id)
			r.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// publishLocked must be called with mu held so subscribers see changes in
// the order they were applied
func (r *Registry) publishLocked(ev Event) {
	for _, ch := range r.subscribers {
		select {
		case ch <- ev:
		default:
			r.logger.Warn("Registry subscriber full, dropping event",
				zap.String("printer_id", ev.Printer.ID),
				zap.String("kind", string(ev.Kind)),
			)
		}
	}
}
