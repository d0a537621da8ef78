// 📁 internal/discovery/epson/scanner.go - EPSON UDP Broadcast Scanner
package epson

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"go.uber.org/zap"

	"escpos-bridge/internal/discovery"
	"escpos-bridge/internal/model"
)

// ScannerType is the name the scanner registers under
const ScannerType = "epson"

// DefaultBroadcastAddress is the EPSON network discovery endpoint
const DefaultBroadcastAddress = "255.255.255.255:3289"

// Query is the discovery request datagram
var Query = []byte{'E', 'P', 'S', 'O', 'N', 'P', 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x00}

// responseHeaderLen is the fixed "EPSON" + type + 8 byte header of a reply
const responseHeaderLen = 14

// Config for the EPSON scanner
type Config struct {
	BroadcastAddress string        `mapstructure:"broadcast_address"`
	Window           time.Duration `mapstructure:"window"`
	Concurrency      int           `mapstructure:"concurrency"`
	PrinterPort      int           `mapstructure:"printer_port"`
	IdentifyTimeout  time.Duration `mapstructure:"identify_timeout"`
}

// DefaultConfig returns the broadcast defaults
func DefaultConfig() Config {
	return Config{
		BroadcastAddress: DefaultBroadcastAddress,
		Window:           2 * time.Second,
		Concurrency:      8,
		PrinterPort:      model.DefaultRawPort,
		IdentifyTimeout:  time.Second,
	}
}

// Scanner implements EPSON UDP broadcast discovery
type Scanner struct {
	config     Config
	identifier discovery.Identifier
	logger     *zap.Logger
}

// NewScanner creates a new EPSON scanner. identifier may be nil, in which
// case responders are reported unidentified.
func NewScanner(config Config, identifier discovery.Identifier, logger *zap.Logger) *Scanner {
	defaults := DefaultConfig()
	if config.BroadcastAddress == "" {
		config.BroadcastAddress = defaults.BroadcastAddress
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.Concurrency < 1 {
		config.Concurrency = defaults.Concurrency
	}
	if config.PrinterPort == 0 {
		config.PrinterPort = defaults.PrinterPort
	}
	if config.IdentifyTimeout <= 0 {
		config.IdentifyTimeout = defaults.IdentifyTimeout
	}

	return &Scanner{
		config:     config,
		identifier: identifier,
		logger:     logger.With(zap.String("scanner", ScannerType)),
	}
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return ScannerType
}

// IsAvailable reports whether a UDP socket can be opened
func (s *Scanner) IsAvailable() bool {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Scan broadcasts the discovery query, collects replies for the window and
// identifies each distinct responder. Zero responses is not an error.
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredDevice, error) {
	s.logger.Info("Starting EPSON broadcast scan",
		zap.String("address", s.config.BroadcastAddress),
		zap.Duration("window", s.config.Window),
	)

	responders, err := s.collect(ctx)
	if err != nil {
		return nil, err
	}

	if len(responders) == 0 {
		s.logger.Info("No printers answered discovery",
			zap.Error(&discovery.DiscoveryError{Kind: discovery.KindTimeout}),
		)
		return nil, nil
	}

	discovery.IdentifyAll(ctx, s.identifier, responders, s.config.Concurrency, s.config.IdentifyTimeout, s.logger)

	s.logger.Info("EPSON scan completed", zap.Int("devices_found", len(responders)))
	return responders, nil
}

// collect sends the query and reads replies until the window closes
func (s *Scanner) collect(ctx context.Context) ([]*discovery.DiscoveredDevice, error) {
	target, err := net.ResolveUDPAddr("udp4", s.config.BroadcastAddress)
	if err != nil {
		return nil, err
	}

	lc := net.ListenConfig{Control: setBroadcast}
	conn, err := lc.ListenPacket(ctx, "udp4", ":0")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	deadline := time.Now().Add(s.config.Window)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	sent := time.Now()
	if _, err := conn.WriteTo(Query, target); err != nil {
		return nil, err
	}

	var devices []*discovery.DiscoveredDevice
	buf := make([]byte, 1024)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				break
			}
			return discovery.Deduplicate(devices), err
		}

		udpAddr, ok := addr.(*net.UDPAddr)
		if !ok {
			continue
		}

		device := &discovery.DiscoveredDevice{
			Host:         udpAddr.IP.String(),
			Port:         s.config.PrinterPort,
			Serial:       ParseSerial(buf[:n]),
			Responses:    1,
			ResponseTime: time.Since(sent),
			Scanner:      ScannerType,
		}
		s.logger.Debug("Discovery response",
			zap.String("from", udpAddr.String()),
			zap.String("serial", device.Serial),
			zap.Int("bytes", n),
		)
		devices = append(devices, device)
	}

	return discovery.Deduplicate(devices), nil
}

// ParseSerial extracts the vendor identifier from a discovery reply: the
// first printable alphanumeric token of at least six characters after the
// header. Replies that are not EPSON frames carry no serial.
func ParseSerial(payload []byte) string {
	if len(payload) <= responseHeaderLen || string(payload[:5]) != "EPSON" {
		return ""
	}

	body := payload[responseHeaderLen:]
	start := -1
	for i := 0; i <= len(body); i++ {
		if i < len(body) && isSerialByte(body[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= 6 {
			return string(body[start:i])
		}
		start = -1
	}
	return ""
}

func isSerialByte(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
