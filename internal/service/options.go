// internal/service/options.go
package service

import (
	"escpos-bridge/internal/config"
	"escpos-bridge/internal/discovery/snmp"
	"escpos-bridge/internal/protocol"
	"escpos-bridge/internal/session"
	"escpos-bridge/pkg/retry"
)

// SessionConfig builds the session manager settings
func SessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		QueueSize:       cfg.Session.QueueSize,
		ConnectTimeout:  cfg.Session.ConnectTimeout,
		DeliveryTimeout: cfg.Session.DeliveryTimeout,
		FailureCooldown: cfg.Session.FailureCooldown,
		MaxCooldown:     cfg.Session.MaxCooldown,
		Retry: retry.Config{
			MaxAttempts:  cfg.Session.MaxAttempts,
			InitialDelay: cfg.Session.InitialDelay,
			MaxDelay:     cfg.Session.MaxDelay,
			Multiplier:   cfg.Session.Multiplier,
			AddJitter:    cfg.Session.Jitter,
		},
	}
}

// TransportOptions builds the transport factory settings. The connect
// timeout is the session's.
func TransportOptions(cfg *config.Config) protocol.Options {
	serial := cfg.Transport.Serial
	return protocol.Options{
		ConnectTimeout: cfg.Session.ConnectTimeout,
		ReadTimeout:    cfg.Transport.ReadTimeout,
		WriteTimeout:   cfg.Transport.WriteTimeout,
		KeepAlive:      cfg.Transport.KeepAlive,
		Serial: protocol.SerialConfig{
			BaudRate: serial.BaudRate,
			DataBits: serial.DataBits,
			StopBits: serial.StopBits,
			Parity:   serial.Parity,
			Timeout:  serial.Timeout,
		},
	}
}

// SNMPConfig builds the identification query settings
func SNMPConfig(cfg *config.Config) snmp.Config {
	s := cfg.Discovery.SNMP
	return snmp.Config{
		Port:      s.Port,
		Community: s.Community,
		Timeout:   s.Timeout,
		Retries:   s.Retries,
	}
}
