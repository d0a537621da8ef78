// internal/model/printer.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"
)

// ManualPrinterID is the registry id of the statically configured printer
const ManualPrinterID = "manual"

// DefaultRawPort is the raw TCP printing port
const DefaultRawPort = 9100

// PrinterOrigin tells how a printer entered the registry
type PrinterOrigin string

const (
	OriginDiscovered PrinterOrigin = "discovered"
	OriginManual     PrinterOrigin = "manual"
)

// ConnectionType represents how the printer is reached
type ConnectionType string

const (
	ConnectionTypeTCP    ConnectionType = "TCP"
	ConnectionTypeSerial ConnectionType = "SERIAL"
)

// JSONObject type for PostgreSQL JSONB objects
type JSONObject map[string]interface{}

func (j *JSONObject) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unsupported JSONObject source %T", value)
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONObject) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Printer represents a reachable ESC/POS printer
type Printer struct {
	ID             string         `json:"id"`
	Host           string         `json:"host"`
	Port           int            `json:"port"`
	ConnectionType ConnectionType `json:"connection_type"`
	// SerialPort is set for serial printers instead of Host/Port
	SerialPort  string        `json:"serial_port,omitempty"`
	BaudRate    int           `json:"baud_rate,omitempty"`
	Model       string        `json:"model"`
	Origin      PrinterOrigin `json:"origin"`
	Name        string        `json:"name,omitempty"`
	Description string        `json:"description,omitempty"`
	Serial      string        `json:"serial,omitempty"`
	FirstSeen   time.Time     `json:"first_seen"`
	LastSeen    time.Time     `json:"last_seen"`
}

// Address returns host:port of a TCP printer
func (p *Printer) Address() string {
	port := p.Port
	if port == 0 {
		port = DefaultRawPort
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(port))
}

// IsManual reports whether the printer was configured rather than discovered
func (p *Printer) IsManual() bool {
	return p.Origin == OriginManual
}

// Endpoint describes the printer's transport for logs and API output
func (p *Printer) Endpoint() string {
	if p.ConnectionType == ConnectionTypeSerial {
		return "serial://" + p.SerialPort
	}
	return "tcp://" + p.Address()
}
