// internal/service/printer_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"escpos-bridge/internal/model"
	"escpos-bridge/internal/profile"
	"escpos-bridge/internal/protocol"
	"escpos-bridge/internal/session"
	"escpos-bridge/internal/utils"
)

// ErrPrinterNotFound is returned for ids missing from the registry
var ErrPrinterNotFound = errors.New("printer not found")

// PrinterDirectory lists registry entries
type PrinterDirectory interface {
	PrinterLookup
	List() []model.Printer
}

// SessionStates exposes per-printer session state
type SessionStates interface {
	State(printerID string) (session.State, bool)
	Snapshot() []session.Status
}

// PrinterService answers printer queries for the API
type PrinterService struct {
	printers PrinterDirectory
	sessions SessionStates
	profiles *profile.Database
	dialer   protocol.Dialer
	timeout  time.Duration
	logger   *utils.ServiceLogger
}

// PrinterView is a registry entry with its resolved profile and session
type PrinterView struct {
	model.Printer
	Endpoint string          `json:"endpoint"`
	Profile  profile.Profile `json:"profile"`
	Session  *session.State  `json:"session,omitempty"`
}

// TestResult represents a printer connectivity test
type TestResult struct {
	Success       bool   `json:"success"`
	Endpoint      string `json:"endpoint"`
	Duration      string `json:"duration"`
	ReportedModel string `json:"reported_model,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// NewPrinterService creates a new printer service
func NewPrinterService(
	printers PrinterDirectory,
	sessions SessionStates,
	profiles *profile.Database,
	dialer protocol.Dialer,
	timeout time.Duration,
	logger *zap.Logger,
) *PrinterService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PrinterService{
		printers: printers,
		sessions: sessions,
		profiles: profiles,
		dialer:   dialer,
		timeout:  timeout,
		logger:   utils.NewServiceLogger(logger, "printer-service"),
	}
}

// ListPrinters returns every printer, optionally filtered by origin
func (ps *PrinterService) ListPrinters(origin model.PrinterOrigin) []*PrinterView {
	views := []*PrinterView{}
	for _, p := range ps.printers.List() {
		if origin != "" && p.Origin != origin {
			continue
		}
		views = append(views, ps.view(p))
	}
	return views
}

// GetPrinter returns one printer
func (ps *PrinterService) GetPrinter(printerID string) (*PrinterView, error) {
	p, ok := ps.printers.Get(printerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPrinterNotFound, printerID)
	}
	return ps.view(p), nil
}

// Sessions returns the per-printer session snapshot
func (ps *PrinterService) Sessions() []session.Status {
	return ps.sessions.Snapshot()
}

// Profiles lists the known model profiles
func (ps *PrinterService) Profiles() []profile.Profile {
	models := ps.profiles.Models()
	out := make([]profile.Profile, 0, len(models))
	for _, m := range models {
		out = append(out, ps.profiles.Resolve(m))
	}
	return out
}

// TestPrinter opens a connection and asks for the model name. Nothing is
// printed.
func (ps *PrinterService) TestPrinter(ctx context.Context, printerID string) (*TestResult, error) {
	p, ok := ps.printers.Get(printerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPrinterNotFound, printerID)
	}

	printerLogger := utils.NewPrinterLogger(ps.logger.Logger, p.ID, string(p.Origin), p.Model)
	start := time.Now()

	name, err := queryModelName(ctx, ps.dialer, p, ps.timeout)
	result := &TestResult{
		Success:  err == nil,
		Endpoint: p.Endpoint(),
		Duration: time.Since(start).String(),
	}
	if err != nil {
		result.ErrorMessage = err.Error()
		printerLogger.Warn("Printer test failed", zap.Error(err))
		return result, nil
	}

	result.ReportedModel = name
	printerLogger.Info("Printer test succeeded", zap.String("reported_model", name))
	return result, nil
}

func (ps *PrinterService) view(p model.Printer) *PrinterView {
	v := &PrinterView{
		Printer:  p,
		Endpoint: p.Endpoint(),
		Profile:  ps.profiles.Resolve(p.Model),
	}
	if st, ok := ps.sessions.State(p.ID); ok {
		v.Session = &st
	}
	return v
}
