// internal/service/discovery_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"escpos-bridge/internal/config"
	"escpos-bridge/internal/discovery"
	"escpos-bridge/internal/discovery/epson"
	"escpos-bridge/internal/discovery/tcp"
	"escpos-bridge/internal/model"
	"escpos-bridge/internal/profile"
	"escpos-bridge/internal/protocol"
	"escpos-bridge/internal/registry"
	"escpos-bridge/internal/utils"
)

// ErrScanInProgress is returned when a discovery round is already running
var ErrScanInProgress = errors.New("discovery scan already in progress")

// DiscoveryMetrics records discovery rounds
type DiscoveryMetrics interface {
	RecordDiscovery(devices int, err error)
	SetPrinters(counts map[model.PrinterOrigin]int)
}

// DiscoveryService keeps the registry in sync with the printers on the LAN
type DiscoveryService struct {
	scannerManager *discovery.ScannerManager
	identifier     discovery.Identifier
	registry       *registry.Registry
	profiles       *profile.Database
	dialer         protocol.Dialer
	events         EventPublisher
	metrics        DiscoveryMetrics
	config         *config.Config
	logger         *utils.ServiceLogger

	scanMu sync.Mutex
	mu     sync.RWMutex
	last   *DiscoveryReport
	now    func() time.Time
}

// DiscoveryReport summarizes one discovery round
type DiscoveryReport struct {
	Devices     []*discovery.DiscoveredDevice `json:"devices"`
	Added       []string                      `json:"added"`
	Updated     []string                      `json:"updated"`
	Stale       []string                      `json:"stale"`
	Scanners    []string                      `json:"scanners"`
	Errors      []string                      `json:"errors,omitempty"`
	DurationMs  int64                         `json:"duration_ms"`
	CompletedAt time.Time                     `json:"completed_at"`
}

// NewDiscoveryService creates a new discovery service. events and metrics
// may be nil.
func NewDiscoveryService(
	cfg *config.Config,
	scannerManager *discovery.ScannerManager,
	identifier discovery.Identifier,
	reg *registry.Registry,
	profiles *profile.Database,
	dialer protocol.Dialer,
	events EventPublisher,
	metrics DiscoveryMetrics,
	logger *zap.Logger,
) *DiscoveryService {
	return &DiscoveryService{
		scannerManager: scannerManager,
		identifier:     identifier,
		registry:       reg,
		profiles:       profiles,
		dialer:         dialer,
		events:         events,
		metrics:        metrics,
		config:         cfg,
		logger:         utils.NewServiceLogger(logger, "discovery-service"),
		now:            time.Now,
	}
}

// NewScannerManager registers the scanners enabled by configuration
func NewScannerManager(cfg *config.Config, identifier discovery.Identifier, logger *zap.Logger) *discovery.ScannerManager {
	sm := discovery.NewScannerManager(logger)

	if cfg.Discovery.Enabled {
		sm.RegisterScanner(epson.NewScanner(epson.Config{
			BroadcastAddress: cfg.Discovery.BroadcastAddress,
			Window:           cfg.Discovery.Window,
			Concurrency:      cfg.Discovery.Concurrency,
			PrinterPort:      model.DefaultRawPort,
			IdentifyTimeout:  cfg.Discovery.IdentifyTimeout,
		}, identifier, logger))
	}

	if len(cfg.Discovery.TCPTargets) > 0 {
		sm.RegisterScanner(tcp.NewScanner(tcp.Config{
			Targets:     cfg.Discovery.TCPTargets,
			Port:        model.DefaultRawPort,
			ConnTimeout: cfg.Discovery.IdentifyTimeout,
			Concurrency: cfg.Discovery.Concurrency,
		}, identifier, logger))
	}

	logger.Info("Discovery scanners initialized",
		zap.Strings("available_scanners", sm.GetAvailableScanners()),
	)
	return sm
}

// RegisterManual adds the configured printer under the id "manual". The
// model is the configured override, else what the printer reports, else
// the default model.
func (ds *DiscoveryService) RegisterManual(ctx context.Context) (*model.Printer, error) {
	if !ds.config.HasManualPrinter() {
		return nil, nil
	}

	printer, err := manualEndpoint(ds.config.Printer.Host, ds.config.Printer.Port)
	if err != nil {
		return nil, fmt.Errorf("manual printer: %w", err)
	}
	printer.ID = model.ManualPrinterID
	printer.Origin = model.OriginManual
	printer.Name = "Manual Printer"
	printer.Description = "Manually configured printer"

	reported := ds.identifyManual(ctx, printer)
	override := strings.TrimSpace(ds.config.Printer.Model)

	switch {
	case override != "":
		if reported != "" && !strings.EqualFold(reported, override) {
			ds.logger.Warn("Overriding manual printer model",
				zap.String("model", override),
				zap.String("reported_model", reported),
			)
		}
		printer.Model = override
	case reported != "":
		printer.Model = reported
	default:
		printer.Model = ds.defaultModel()
	}

	stored, _ := ds.registry.Upsert(printer)
	ds.logger.Info("Manual printer registered",
		zap.String("printer_id", stored.ID),
		zap.String("endpoint", stored.Endpoint()),
		zap.String("model", stored.Model),
	)
	ds.updatePrinterGauge()
	return &stored, nil
}

// identifyManual asks the manual printer for its model, first with GS I 67
// and then over SNMP for network printers
func (ds *DiscoveryService) identifyManual(ctx context.Context, printer model.Printer) string {
	if ds.dialer != nil {
		name, err := queryModelName(ctx, ds.dialer, printer, ds.config.Discovery.IdentifyTimeout)
		if err == nil {
			if p, ok := ds.profiles.Get(name); ok {
				return p.Model
			}
			if p, ok := ds.profiles.Match(name); ok {
				return p.Model
			}
			ds.logger.Warn("Manual printer reported an unknown model", zap.String("reported_model", name))
		} else {
			ds.logger.Debug("Manual printer model query failed", zap.Error(err))
		}
	}

	if printer.ConnectionType == model.ConnectionTypeTCP && ds.identifier != nil {
		ictx, cancel := context.WithTimeout(ctx, ds.config.Discovery.IdentifyTimeout)
		defer cancel()
		if id, err := ds.identifier.Identify(ictx, printer.Host); err == nil {
			if m, ok := ds.matchProfile(id.HardwareDescription, id.Description); ok {
				return m
			}
		}
	}
	return ""
}

// manualEndpoint parses the configured address, applying port to bare hosts
func manualEndpoint(host string, port int) (model.Printer, error) {
	host = strings.TrimSpace(host)
	if !strings.Contains(host, "://") && port > 0 {
		if _, _, err := net.SplitHostPort(host); err != nil {
			host = net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(port))
		}
	}
	return protocol.ParseEndpoint(host)
}

// DiscoverOnce runs every scanner and upserts the results. Scanner errors
// are reported, never fatal.
func (ds *DiscoveryService) DiscoverOnce(ctx context.Context) (*DiscoveryReport, error) {
	if !ds.scanMu.TryLock() {
		return nil, ErrScanInProgress
	}
	defer ds.scanMu.Unlock()

	start := ds.now()
	result := ds.scannerManager.ScanAll(ctx)

	report := &DiscoveryReport{
		Devices:  result.Devices,
		Added:    []string{},
		Updated:  []string{},
		Stale:    []string{},
		Scanners: ds.scannerManager.GetAvailableScanners(),
	}
	for _, err := range result.Errors {
		report.Errors = append(report.Errors, err.Error())
	}

	for _, device := range result.Devices {
		id := ds.printerID(device)
		if id == model.ManualPrinterID {
			ds.logger.Warn("Discovered printer collides with the manual id, skipping", zap.String("host", device.Host))
			continue
		}

		existing, known := ds.registry.Get(id)
		if known && existing.IsManual() {
			continue
		}
		device.Model = ds.resolveModel(ctx, device, existing, known)

		printer := device.ToPrinter(ds.now())
		printer.ID = id
		stored, created := ds.registry.Upsert(printer)
		if created {
			report.Added = append(report.Added, stored.ID)
		} else {
			report.Updated = append(report.Updated, stored.ID)
		}
	}

	if ds.config.Discovery.StaleAfter > 0 {
		for _, p := range ds.registry.Stale(ds.config.Discovery.StaleAfter) {
			report.Stale = append(report.Stale, p.ID)
			ds.logger.Info("Printer not seen recently",
				zap.String("printer_id", p.ID),
				zap.Time("last_seen", p.LastSeen),
			)
		}
	}

	report.CompletedAt = ds.now()
	report.DurationMs = report.CompletedAt.Sub(start).Milliseconds()

	if ds.metrics != nil {
		ds.metrics.RecordDiscovery(len(result.Devices), result.Err())
	}
	ds.updatePrinterGauge()

	if ds.events != nil {
		ds.events.Publish(model.NewEvent(model.EventDiscoveryCompleted, "", "discovery", model.JSONObject{
			"devices":     len(result.Devices),
			"added":       report.Added,
			"stale":       report.Stale,
			"errors":      len(report.Errors),
			"duration_ms": report.DurationMs,
		}))
	}

	ds.mu.Lock()
	ds.last = report
	ds.mu.Unlock()

	ds.logger.Info("Discovery round completed",
		zap.Int("devices_found", len(result.Devices)),
		zap.Int("added", len(report.Added)),
		zap.Int("stale", len(report.Stale)),
		zap.Int("errors", len(report.Errors)),
		zap.Int64("duration_ms", report.DurationMs),
	)
	return report, nil
}

// printerID maps a response onto the registered printer at the same host
// when the serials do not contradict, so a device keeps its id whether or not
// its response carried a serial
func (ds *DiscoveryService) printerID(device *discovery.DiscoveredDevice) string {
	id := device.PrinterID()
	if _, ok := ds.registry.Get(id); ok {
		return id
	}
	if p, ok := ds.registry.FindByHost(device.Host); ok {
		if device.Serial == "" || p.Serial == "" || strings.EqualFold(p.Serial, device.Serial) {
			return p.ID
		}
	}
	return id
}

// resolveModel matches the identification data against the profiles on
// every round. Known printers otherwise keep their stored model; the GS I 67
// query only runs for printers seen for the first time.
func (ds *DiscoveryService) resolveModel(ctx context.Context, device *discovery.DiscoveredDevice, existing model.Printer, known bool) string {
	if m, ok := ds.matchProfile(device.HardwareDescription, device.Description); ok {
		return m
	}
	if known && existing.Model != "" {
		return existing.Model
	}

	if ds.config.Discovery.QueryModel && ds.dialer != nil {
		name, err := queryModelName(ctx, ds.dialer, device.ToPrinter(ds.now()), ds.config.Discovery.IdentifyTimeout)
		if err == nil {
			if p, ok := ds.profiles.Get(name); ok {
				return p.Model
			}
		} else {
			ds.logger.Debug("Model query failed", zap.String("host", device.Host), zap.Error(err))
		}
	}

	return ds.defaultModel()
}

func (ds *DiscoveryService) matchProfile(descriptions ...string) (string, bool) {
	for _, desc := range descriptions {
		if desc == "" {
			continue
		}
		if p, ok := ds.profiles.Match(desc); ok {
			return p.Model, true
		}
	}
	return "", false
}

func (ds *DiscoveryService) defaultModel() string {
	if m := strings.TrimSpace(ds.config.Printer.DefaultModel); m != "" {
		return m
	}
	return profile.DefaultModel
}

func (ds *DiscoveryService) updatePrinterGauge() {
	if ds.metrics != nil {
		ds.metrics.SetPrinters(ds.registry.CountByOrigin())
	}
}

// Run repeats discovery on the configured interval until ctx is done
func (ds *DiscoveryService) Run(ctx context.Context) {
	if !ds.config.Discovery.Enabled && len(ds.config.Discovery.TCPTargets) == 0 {
		ds.logger.Info("Printer discovery disabled")
		return
	}

	interval := ds.config.Discovery.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ds.logger.Info("Periodic printer discovery started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := ds.DiscoverOnce(ctx); err != nil {
			ds.logger.Debug("Discovery round skipped", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			ds.logger.Info("Periodic printer discovery stopped")
			return
		case <-ticker.C:
		}
	}
}

// LastReport returns the most recent discovery round, or nil
func (ds *DiscoveryService) LastReport() *DiscoveryReport {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.last
}

// GetAvailableScanners lists the active scanner types
func (ds *DiscoveryService) GetAvailableScanners() []string {
	return ds.scannerManager.GetAvailableScanners()
}
