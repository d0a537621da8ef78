// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"escpos-bridge/internal/model"
	"escpos-bridge/internal/session"
)

const namespace = "escpos_bridge"

// Metrics holds the bridge collectors
type Metrics struct {
	registry *prometheus.Registry

	JobsTotal             *prometheus.CounterVec
	DeliveryAttemptsTotal *prometheus.CounterVec
	DeliveryDuration      prometheus.Histogram
	Printers              *prometheus.GaugeVec
	DiscoveryRunsTotal    *prometheus.CounterVec
	DiscoveredDevices     prometheus.Gauge
	QueueDepth            *prometheus.GaugeVec
	SessionFailures       *prometheus.GaugeVec
}

// New registers the collectors on a fresh registry together with the Go
// and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		JobsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Dispatched print programs by outcome and pipeline stage",
		}, []string{"status", "stage"}),
		DeliveryAttemptsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_attempts_total",
			Help:      "Delivery attempts per printer by result",
		}, []string{"printer", "result"}),
		DeliveryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Time from dequeue to the last byte written, including retries",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Printers: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "printers",
			Help:      "Registered printers by origin",
		}, []string{"origin"}),
		DiscoveryRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_runs_total",
			Help:      "Discovery rounds by result",
		}, []string{"result"}),
		DiscoveredDevices: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "discovered_devices",
			Help:      "Distinct responders in the last discovery round",
		}),
		QueueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Programs waiting in a printer session queue",
		}, []string{"printer"}),
		SessionFailures: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_consecutive_failures",
			Help:      "Consecutive failed deliveries per printer",
		}, []string{"printer"}),
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordJob counts a dispatch outcome
func (m *Metrics) RecordJob(status model.JobStatus, stage model.JobStage) {
	m.JobsTotal.WithLabelValues(string(status), string(stage)).Inc()
}

// RecordDelivery observes the duration of a successful delivery
func (m *Metrics) RecordDelivery(d time.Duration) {
	m.DeliveryDuration.Observe(d.Seconds())
}

// SetPrinters replaces the per-origin printer gauge
func (m *Metrics) SetPrinters(counts map[model.PrinterOrigin]int) {
	for _, origin := range []model.PrinterOrigin{model.OriginDiscovered, model.OriginManual} {
		m.Printers.WithLabelValues(string(origin)).Set(float64(counts[origin]))
	}
}

// RecordDiscovery counts a discovery round. A round with responders but
// partial scanner errors counts as "partial".
func (m *Metrics) RecordDiscovery(devices int, err error) {
	result := "ok"
	switch {
	case err != nil && devices > 0:
		result = "partial"
	case err != nil:
		result = "error"
	case devices == 0:
		result = "empty"
	}
	m.DiscoveryRunsTotal.WithLabelValues(result).Inc()
	m.DiscoveredDevices.Set(float64(devices))
}

// SessionHooks returns session hooks that update the collectors and then
// call next
func (m *Metrics) SessionHooks(next session.Hooks) session.Hooks {
	return session.Hooks{
		OnAttempt: func(printerID string, attempt int, err error, elapsed time.Duration) {
			result := "success"
			if err != nil {
				result = "failure"
			}
			m.DeliveryAttemptsTotal.WithLabelValues(printerID, result).Inc()
			if next.OnAttempt != nil {
				next.OnAttempt(printerID, attempt, err, elapsed)
			}
		},
		OnStateChange: func(printerID string, state session.State) {
			m.SessionFailures.WithLabelValues(printerID).Set(float64(state.ConsecutiveFailures))
			if next.OnStateChange != nil {
				next.OnStateChange(printerID, state)
			}
		},
		OnQueueDepth: func(printerID string, depth int) {
			m.QueueDepth.WithLabelValues(printerID).Set(float64(depth))
			if next.OnQueueDepth != nil {
				next.OnQueueDepth(printerID, depth)
			}
		},
	}
}
