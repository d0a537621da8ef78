// 📁 internal/discovery/serial/scanner.go - Serial Port Listing
package serial

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// Lister enumerates local serial ports a receipt printer could be attached
// to. Serial printers cannot answer discovery, so the result only helps an
// operator pick the manual printer endpoint.
type Lister struct {
	patterns []string
	logger   *zap.Logger
	ports    func() ([]string, error)
}

// NewLister creates a lister. Empty patterns select the platform defaults.
func NewLister(patterns []string, logger *zap.Logger) *Lister {
	if len(patterns) == 0 {
		patterns = DefaultPortPatterns()
	}
	return &Lister{
		patterns: patterns,
		logger:   logger.With(zap.String("scanner", "serial")),
		ports:    serial.GetPortsList,
	}
}

// DefaultPortPatterns returns glob patterns for USB-serial adapters
func DefaultPortPatterns() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"COM*"}
	case "darwin":
		return []string{"/dev/cu.usbserial*", "/dev/cu.usbmodem*", "/dev/tty.usbserial*"}
	default:
		return []string{"/dev/ttyUSB*", "/dev/ttyACM*", "/dev/ttyS*"}
	}
}

// ListPorts returns the ports matching the configured patterns, sorted
func (l *Lister) ListPorts() ([]string, error) {
	ports, err := l.ports()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports: %w", err)
	}

	var matched []string
	for _, port := range ports {
		if l.matches(port) {
			matched = append(matched, port)
		}
	}
	sort.Strings(matched)

	l.logger.Debug("Serial ports listed",
		zap.Int("total", len(ports)),
		zap.Strings("matched", matched),
	)
	return matched, nil
}

func (l *Lister) matches(port string) bool {
	for _, pattern := range l.patterns {
		if ok, _ := filepath.Match(pattern, port); ok {
			return true
		}
	}
	return false
}
