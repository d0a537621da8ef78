// internal/protocol/serial_connection.go
package protocol

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"escpos-bridge/internal/model"
)

// SerialConnection implements Transport for serial printers
type SerialConnection struct {
	config *SerialConfig
	port   serial.Port
	logger *zap.Logger
	mutex  sync.Mutex
	isOpen bool
	stats  ProtocolStats
}

// NewSerialConnection creates a new serial connection
func NewSerialConnection(config *SerialConfig, logger *zap.Logger) *SerialConnection {
	return &SerialConnection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "serial"),
			zap.String("port", config.Port),
		),
	}
}

// serialMode converts the configuration to a go.bug.st/serial mode
func serialMode(config *SerialConfig) *serial.Mode {
	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
	}

	switch config.StopBits {
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}

	switch config.Parity {
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	default:
		mode.Parity = serial.NoParity
	}

	return mode
}

// Open opens the serial port
func (sc *SerialConnection) Open(ctx context.Context) error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if sc.isOpen {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sc.logger.Debug("Opening serial port", zap.Int("baud_rate", sc.config.BaudRate))

	port, err := serial.Open(sc.config.Port, serialMode(sc.config))
	if err != nil {
		sc.stats.ErrorCount++
		return fmt.Errorf("failed to open serial port %s: %w", sc.config.Port, err)
	}

	if sc.config.Timeout > 0 {
		if err := port.SetReadTimeout(sc.config.Timeout); err != nil {
			port.Close()
			return fmt.Errorf("failed to set read timeout: %w", err)
		}
	}

	sc.port = port
	sc.isOpen = true
	sc.stats.IsConnected = true
	sc.stats.LastActivity = time.Now()
	return nil
}

// Close drains pending output and closes the port
func (sc *SerialConnection) Close() error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if !sc.isOpen || sc.port == nil {
		return nil
	}

	sc.port.Drain()
	err := sc.port.Close()
	sc.port = nil
	sc.isOpen = false
	sc.stats.IsConnected = false

	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// IsOpen returns whether the connection is open
func (sc *SerialConnection) IsOpen() bool {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	return sc.isOpen && sc.port != nil
}

// Write writes the whole buffer to the serial port
func (sc *SerialConnection) Write(ctx context.Context, data []byte) error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if !sc.isOpen || sc.port == nil {
		return fmt.Errorf("serial port not open")
	}

	startTime := time.Now()
	written := 0
	for written < len(data) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := sc.port.Write(data[written:])
		if err != nil {
			sc.stats.ErrorCount++
			return fmt.Errorf("failed to write to serial port after %d of %d bytes: %w", written, len(data), err)
		}
		written += n
	}

	sc.stats.recordWrite(written, time.Since(startTime))
	return nil
}

// Read reads up to maxBytes from the serial port
func (sc *SerialConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if !sc.isOpen || sc.port == nil {
		return nil, fmt.Errorf("serial port not open")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buffer := make([]byte, maxBytes)
	n, err := sc.port.Read(buffer)
	if err != nil {
		sc.stats.ErrorCount++
		return nil, fmt.Errorf("failed to read from serial port: %w", err)
	}

	sc.stats.BytesRead += int64(n)
	sc.stats.LastActivity = time.Now()
	return buffer[:n], nil
}

// GetProtocolType returns the protocol type
func (sc *SerialConnection) GetProtocolType() model.ConnectionType {
	return model.ConnectionTypeSerial
}

// Endpoint returns serial://<port>
func (sc *SerialConnection) Endpoint() string {
	return "serial://" + sc.config.Port
}

// Stats returns a snapshot of the connection statistics
func (sc *SerialConnection) Stats() ProtocolStats {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	return sc.stats
}
