// internal/protocol/connection.go
package protocol

import "time"

// SerialConfig represents serial connection configuration
type SerialConfig struct {
	Port     string        `json:"port" mapstructure:"port"`
	BaudRate int           `json:"baud_rate" mapstructure:"baud_rate"`
	DataBits int           `json:"data_bits" mapstructure:"data_bits"`
	StopBits int           `json:"stop_bits" mapstructure:"stop_bits"`
	Parity   string        `json:"parity" mapstructure:"parity"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// TCPConfig represents TCP connection configuration
type TCPConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	KeepAlive      bool          `json:"keep_alive"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
}

// Options are the transport defaults applied by the factory
type Options struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	KeepAlive      bool          `mapstructure:"keep_alive"`
	Serial         SerialConfig  `mapstructure:"serial"`
}

// DefaultOptions returns the transport defaults
func DefaultOptions() Options {
	return Options{
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    2 * time.Second,
		WriteTimeout:   30 * time.Second,
		Serial: SerialConfig{
			BaudRate: 19200,
			DataBits: 8,
			StopBits: 1,
			Parity:   "none",
			Timeout:  5 * time.Second,
		},
	}
}
