// internal/protocol/factory.go
package protocol

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"escpos-bridge/internal/model"
)

// Factory creates transports for registry printers
type Factory struct {
	options Options
	logger  *zap.Logger
}

// NewFactory creates a new transport factory
func NewFactory(options Options, logger *zap.Logger) *Factory {
	return &Factory{
		options: options,
		logger:  logger,
	}
}

// Dial creates an unopened transport for printer
func (f *Factory) Dial(printer model.Printer) (Transport, error) {
	switch printer.ConnectionType {
	case model.ConnectionTypeSerial:
		return f.createSerial(printer)
	case model.ConnectionTypeTCP, "":
		return f.createTCP(printer)
	default:
		return nil, fmt.Errorf("unsupported protocol type: %s", printer.ConnectionType)
	}
}

func (f *Factory) createTCP(printer model.Printer) (Transport, error) {
	if printer.Host == "" {
		return nil, fmt.Errorf("TCP host is required for printer %s", printer.ID)
	}

	port := printer.Port
	if port == 0 {
		port = model.DefaultRawPort
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid port number: %d", port)
	}

	return NewTCPConnection(&TCPConfig{
		Host:           printer.Host,
		Port:           port,
		KeepAlive:      f.options.KeepAlive,
		ConnectTimeout: f.options.ConnectTimeout,
		ReadTimeout:    f.options.ReadTimeout,
		WriteTimeout:   f.options.WriteTimeout,
	}, f.logger), nil
}

func (f *Factory) createSerial(printer model.Printer) (Transport, error) {
	if printer.SerialPort == "" {
		return nil, fmt.Errorf("serial port is required for printer %s", printer.ID)
	}

	cfg := f.options.Serial
	cfg.Port = printer.SerialPort
	if printer.BaudRate != 0 {
		cfg.BaudRate = printer.BaudRate
	}
	if err := validateBaudRate(cfg.BaudRate); err != nil {
		return nil, err
	}

	return NewSerialConnection(&cfg, f.logger), nil
}

func validateBaudRate(rate int) error {
	validRates := []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}
	for _, validRate := range validRates {
		if rate == validRate {
			return nil
		}
	}
	return fmt.Errorf("invalid baud rate: %d", rate)
}

// ParseEndpoint turns a configured printer address into connection fields.
// Accepted forms: "host", "host:port", "tcp://host:port" and
// "serial:///dev/ttyUSB0?baud=19200".
func ParseEndpoint(raw string) (model.Printer, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.Printer{}, fmt.Errorf("empty printer address")
	}

	if !strings.Contains(raw, "://") {
		raw = "tcp://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return model.Printer{}, fmt.Errorf("invalid printer address %q: %w", raw, err)
	}

	switch u.Scheme {
	case "tcp":
		p := model.Printer{
			ConnectionType: model.ConnectionTypeTCP,
			Host:           u.Hostname(),
			Port:           model.DefaultRawPort,
		}
		if p.Host == "" {
			return model.Printer{}, fmt.Errorf("missing host in %q", raw)
		}
		if portStr := u.Port(); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil || port < 1 || port > 65535 {
				return model.Printer{}, fmt.Errorf("invalid port in %q", raw)
			}
			p.Port = port
		}
		return p, nil

	case "serial":
		p := model.Printer{
			ConnectionType: model.ConnectionTypeSerial,
			SerialPort:     u.Host + u.Path,
		}
		if p.SerialPort == "" {
			return model.Printer{}, fmt.Errorf("missing serial device in %q", raw)
		}
		if baud := u.Query().Get("baud"); baud != "" {
			rate, err := strconv.Atoi(baud)
			if err != nil {
				return model.Printer{}, fmt.Errorf("invalid baud rate %q", baud)
			}
			if err := validateBaudRate(rate); err != nil {
				return model.Printer{}, err
			}
			p.BaudRate = rate
		}
		return p, nil

	default:
		return model.Printer{}, fmt.Errorf("unsupported printer address scheme %q", u.Scheme)
	}
}
