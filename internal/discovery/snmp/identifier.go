// internal/discovery/snmp/identifier.go
package snmp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
	"go.uber.org/zap"
)

// Object identifiers queried for every responder
const (
	OIDSysDescr      = "1.3.6.1.2.1.1.1.0"
	OIDSysName       = "1.3.6.1.2.1.1.5.0"
	OIDHrDeviceDescr = "1.3.6.1.2.1.25.3.2.1.3.1"
)

// Config for the SNMP identifier
type Config struct {
	Port      uint16        `mapstructure:"port"`
	Community string        `mapstructure:"community"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Retries   int           `mapstructure:"retries"`
}

// DefaultConfig returns SNMP v1 on port 161 with the public community
func DefaultConfig() Config {
	return Config{
		Port:      161,
		Community: "public",
		Timeout:   500 * time.Millisecond,
		Retries:   0,
	}
}

// Identity is what a printer reports about itself
type Identity struct {
	Host                string `json:"host"`
	Name                string `json:"name"`
	Description         string `json:"description"`
	HardwareDescription string `json:"hardware_description,omitempty"`
}

// Identifier resolves printer identities over SNMP v1
type Identifier struct {
	config Config
	logger *zap.Logger
}

// NewIdentifier creates a new SNMP identifier
func NewIdentifier(config Config, logger *zap.Logger) *Identifier {
	if config.Port == 0 {
		config.Port = 161
	}
	if config.Community == "" {
		config.Community = "public"
	}
	return &Identifier{
		config: config,
		logger: logger.With(zap.String("component", "snmp")),
	}
}

// Identify queries sysDescr and sysName, then the printer MIB device
// description. Only the system group is required to succeed.
func (id *Identifier) Identify(ctx context.Context, host string) (*Identity, error) {
	client := &gosnmp.GoSNMP{
		Target:    host,
		Port:      id.config.Port,
		Transport: "udp",
		Community: id.config.Community,
		Version:   gosnmp.Version1,
		Timeout:   id.config.Timeout,
		Retries:   id.config.Retries,
		Context:   ctx,
		MaxOids:   gosnmp.MaxOids,
	}

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("snmp connect %s: %w", host, err)
	}
	defer client.Conn.Close()

	system, err := get(client, OIDSysDescr, OIDSysName)
	if err != nil {
		return nil, fmt.Errorf("snmp get %s: %w", host, err)
	}

	identity := &Identity{
		Host:        host,
		Description: system[OIDSysDescr],
		Name:        system[OIDSysName],
	}
	if identity.Description == "" && identity.Name == "" {
		return nil, fmt.Errorf("snmp get %s: empty system group", host)
	}

	// v1 fails the whole request for a missing OID, so the printer MIB is
	// queried on its own
	if hr, err := get(client, OIDHrDeviceDescr); err == nil {
		identity.HardwareDescription = hr[OIDHrDeviceDescr]
	} else {
		id.logger.Debug("hrDeviceDescr not available", zap.String("host", host), zap.Error(err))
	}

	return identity, nil
}

var errNoSuchName = errors.New("no such name")

// get returns the octet string values of oids keyed by oid without the leading dot
func get(client *gosnmp.GoSNMP, oids ...string) (map[string]string, error) {
	packet, err := client.Get(oids)
	if err != nil {
		return nil, err
	}
	if packet.Error != gosnmp.NoError {
		if packet.Error == gosnmp.NoSuchName {
			return nil, errNoSuchName
		}
		return nil, fmt.Errorf("snmp error status %d", packet.Error)
	}

	values := make(map[string]string, len(packet.Variables))
	for _, v := range packet.Variables {
		name := strings.TrimPrefix(v.Name, ".")
		switch v.Type {
		case gosnmp.OctetString:
			values[name] = octets(v.Value)
		case gosnmp.NoSuchObject, gosnmp.NoSuchInstance:
			continue
		}
	}
	return values, nil
}

func octets(value interface{}) string {
	switch v := value.(type) {
	case []byte:
		return strings.TrimSpace(strings.ToValidUTF8(string(v), "?"))
	case string:
		return strings.TrimSpace(v)
	}
	return ""
}
