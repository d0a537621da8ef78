// 📁 internal/discovery/scanner.go - Main Scanner Interface
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"escpos-bridge/internal/model"
)

// DeviceScanner interface - Strategy Pattern
type DeviceScanner interface {
	Scan(ctx context.Context) ([]*DiscoveredDevice, error)
	GetScannerType() string
	IsAvailable() bool
}

// DiscoveredDevice represents a printer that answered a discovery request
type DiscoveredDevice struct {
	Host                string        `json:"host"`
	Port                int           `json:"port"`
	Serial              string        `json:"serial,omitempty"`
	Name                string        `json:"name,omitempty"`        // SNMP sysName
	Description         string        `json:"description,omitempty"` // SNMP sysDescr
	HardwareDescription string        `json:"hardware_description,omitempty"`
	Model               string        `json:"model,omitempty"`
	Identified          bool          `json:"identified"`
	Responses           int           `json:"responses"`
	ResponseTime        time.Duration `json:"response_time"`
	Scanner             string        `json:"scanner"`
}

// Identity is the key discovery responses are deduplicated by: the vendor
// serial when the response carried one, otherwise the host address.
func (d *DiscoveredDevice) Identity() string {
	if d.Serial != "" {
		return "serial:" + d.Serial
	}
	return "host:" + d.Host
}

// PrinterID derives the registry id from the discovery identity: the
// lowercased serial, else the host. The SNMP sysName only names the printer.
func (d *DiscoveredDevice) PrinterID() string {
	if serial := strings.TrimSpace(d.Serial); serial != "" {
		return strings.ToLower(serial)
	}
	return d.Host
}

// ToPrinter converts the device into a registry record
func (d *DiscoveredDevice) ToPrinter(seen time.Time) model.Printer {
	port := d.Port
	if port == 0 {
		port = model.DefaultRawPort
	}
	return model.Printer{
		ID:             d.PrinterID(),
		Host:           d.Host,
		Port:           port,
		ConnectionType: model.ConnectionTypeTCP,
		Model:          d.Model,
		Origin:         model.OriginDiscovered,
		Name:           d.Name,
		Description:    d.Description,
		Serial:         d.Serial,
		FirstSeen:      seen,
		LastSeen:       seen,
	}
}

// ScanResult is the outcome of one discovery pass over all scanners
type ScanResult struct {
	Devices  []*DiscoveredDevice `json:"devices"`
	Errors   []error             `json:"-"`
	Duration time.Duration       `json:"duration"`
}

// ScannerManager manages all device scanners - Facade Pattern
type ScannerManager struct {
	scanners map[string]DeviceScanner
	logger   *zap.Logger
}

// NewScannerManager creates a new scanner manager
func NewScannerManager(logger *zap.Logger) *ScannerManager {
	return &ScannerManager{
		scanners: make(map[string]DeviceScanner),
		logger:   logger,
	}
}

// RegisterScanner registers a device scanner
func (sm *ScannerManager) RegisterScanner(scanner DeviceScanner) {
	scannerType := scanner.GetScannerType()
	sm.scanners[scannerType] = scanner
	sm.logger.Info("Scanner registered", zap.String("type", scannerType))
}

// ScanAll runs every available scanner and merges their results. Scanner
// failures are collected in the result, never returned as an error.
func (sm *ScannerManager) ScanAll(ctx context.Context) *ScanResult {
	start := time.Now()
	var all []*DiscoveredDevice
	var errs []error

	for _, scannerType := range sm.scannerTypes() {
		scanner := sm.scanners[scannerType]
		if !scanner.IsAvailable() {
			sm.logger.Debug("Scanner not available, skipping", zap.String("type", scannerType))
			continue
		}

		devices, err := scanner.Scan(ctx)
		if err != nil {
			sm.logger.Error("Scanner failed", zap.String("type", scannerType), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s scanner: %w", scannerType, err))
		}

		all = append(all, devices...)
		sm.logger.Info("Scanner completed",
			zap.String("type", scannerType),
			zap.Int("devices_found", len(devices)),
		)
	}

	return &ScanResult{
		Devices:  Deduplicate(all),
		Errors:   errs,
		Duration: time.Since(start),
	}
}

// ScanByType scans specific scanner type
func (sm *ScannerManager) ScanByType(ctx context.Context, scannerType string) ([]*DiscoveredDevice, error) {
	scanner, exists := sm.scanners[scannerType]
	if !exists {
		return nil, fmt.Errorf("scanner type not found: %s", scannerType)
	}

	if !scanner.IsAvailable() {
		return nil, fmt.Errorf("scanner not available: %s", scannerType)
	}

	devices, err := scanner.Scan(ctx)
	return Deduplicate(devices), err
}

// GetAvailableScanners returns list of available scanner types
func (sm *ScannerManager) GetAvailableScanners() []string {
	var available []string
	for _, scannerType := range sm.scannerTypes() {
		if sm.scanners[scannerType].IsAvailable() {
			available = append(available, scannerType)
		}
	}
	return available
}

func (sm *ScannerManager) scannerTypes() []string {
	types := make([]string, 0, len(sm.scanners))
	for t := range sm.scanners {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Deduplicate collapses devices with the same identity into one record.
// The first occurrence wins; later duplicates only fill in empty fields.
// A response without a serial joins the serial-bearing record at the same
// host, so records carrying a serial are placed first.
func Deduplicate(devices []*DiscoveredDevice) []*DiscoveredDevice {
	index := make(map[string]*DiscoveredDevice, len(devices))
	byHost := make(map[string]*DiscoveredDevice)
	out := make([]*DiscoveredDevice, 0, len(devices))

	add := func(d *DiscoveredDevice) {
		key := d.Identity()
		existing, ok := index[key]
		if !ok && d.Serial == "" {
			existing, ok = byHost[d.Host]
		}
		if !ok {
			cp := *d
			if cp.Responses == 0 {
				cp.Responses = 1
			}
			index[key] = &cp
			if cp.Serial != "" {
				if _, taken := byHost[cp.Host]; !taken {
					byHost[cp.Host] = &cp
				}
			}
			out = append(out, &cp)
			return
		}
		existing.absorb(d)
	}

	for _, d := range devices {
		if d != nil && d.Serial != "" {
			add(d)
		}
	}
	for _, d := range devices {
		if d != nil && d.Serial == "" {
			add(d)
		}
	}

	return out
}

func (d *DiscoveredDevice) absorb(other *DiscoveredDevice) {
	d.Responses += max(other.Responses, 1)
	if d.Name == "" {
		d.Name = other.Name
	}
	if d.Description == "" {
		d.Description = other.Description
	}
	if d.HardwareDescription == "" {
		d.HardwareDescription = other.HardwareDescription
	}
	if d.Model == "" {
		d.Model = other.Model
	}
	d.Identified = d.Identified || other.Identified
}

// Err joins the scanner errors of a result, nil when there were none
func (r *ScanResult) Err() error {
	return errors.Join(r.Errors...)
}
