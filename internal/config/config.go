// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration key read from the environment
const EnvPrefix = "ESCPOS_BRIDGE"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Bus       BusConfig       `mapstructure:"bus"`
	Printer   PrinterConfig   `mapstructure:"printer"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Session   SessionConfig   `mapstructure:"session"`
	Transport TransportConfig `mapstructure:"transport"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	App       AppConfig       `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// BusConfig represents the message bus connection. The URL scheme selects
// the client: mqtt, mqtts, tcp, ssl, ws and wss use MQTT, nats uses NATS.
type BusConfig struct {
	URL            string              `mapstructure:"url"`
	ClientIDPrefix string              `mapstructure:"client_id_prefix"`
	TopicPrefix    string              `mapstructure:"topic_prefix"`
	QoS            byte                `mapstructure:"qos"`
	ConnectTimeout time.Duration       `mapstructure:"connect_timeout"`
	KeepAlive      time.Duration       `mapstructure:"keep_alive"`
	PublishResults bool                `mapstructure:"publish_results"`
	HomeAssistant  HomeAssistantConfig `mapstructure:"home_assistant"`
}

// HomeAssistantConfig controls MQTT discovery announcements
type HomeAssistantConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	DiscoveryPrefix string `mapstructure:"discovery_prefix"`
}

// PrinterConfig describes the manually configured printer
type PrinterConfig struct {
	Host         string `mapstructure:"host"` // host, host:port, tcp:// or serial:// endpoint
	Port         int    `mapstructure:"port"`
	Model        string `mapstructure:"model"`
	DefaultModel string `mapstructure:"default_model"`
}

// DiscoveryConfig represents printer discovery configuration
type DiscoveryConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Interval         time.Duration `mapstructure:"interval"`
	Window           time.Duration `mapstructure:"window"`
	BroadcastAddress string        `mapstructure:"broadcast_address"`
	Concurrency      int           `mapstructure:"concurrency"`
	IdentifyTimeout  time.Duration `mapstructure:"identify_timeout"`
	QueryModel       bool          `mapstructure:"query_model"`
	StaleAfter       time.Duration `mapstructure:"stale_after"`
	TCPTargets       []string      `mapstructure:"tcp_targets"`
	SNMP             SNMPConfig    `mapstructure:"snmp"`
}

// SNMPConfig represents the identification query configuration
type SNMPConfig struct {
	Port      uint16        `mapstructure:"port"`
	Community string        `mapstructure:"community"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Retries   int           `mapstructure:"retries"`
}

// SessionConfig represents per-printer delivery configuration
type SessionConfig struct {
	QueueSize       int           `mapstructure:"queue_size"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialDelay    time.Duration `mapstructure:"initial_delay"`
	MaxDelay        time.Duration `mapstructure:"max_delay"`
	Multiplier      float64       `mapstructure:"multiplier"`
	Jitter          bool          `mapstructure:"jitter"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
	FailureCooldown time.Duration `mapstructure:"failure_cooldown"`
	MaxCooldown     time.Duration `mapstructure:"max_cooldown"`
}

// TransportConfig represents printer connection settings
type TransportConfig struct {
	ReadTimeout  time.Duration    `mapstructure:"read_timeout"`
	WriteTimeout time.Duration    `mapstructure:"write_timeout"`
	KeepAlive    bool             `mapstructure:"keep_alive"`
	Serial       SerialPortConfig `mapstructure:"serial"`
}

// SerialPortConfig represents serial port configuration
type SerialPortConfig struct {
	BaudRate int           `mapstructure:"baud_rate"`
	DataBits int           `mapstructure:"data_bits"`
	StopBits int           `mapstructure:"stop_bits"`
	Parity   string        `mapstructure:"parity"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	SSLMode      string        `mapstructure:"sslmode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

// JournalConfig represents the job journal. Capacity bounds the in-memory
// journal, Retention the database one.
type JournalConfig struct {
	Capacity      int           `mapstructure:"capacity"`
	Retention     time.Duration `mapstructure:"retention"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// legacyEnv maps configuration keys to the bare environment names the
// bridge has always accepted
var legacyEnv = map[string]string{
	"printer.host":          "PRINTER_HOST",
	"printer.port":          "PRINTER_PORT",
	"printer.model":         "PRINTER_MODEL",
	"printer.default_model": "DEFAULT_PRINTER_MODEL",
	"bus.url":               "MQTT_URL",
}

// Load loads configuration from an optional config.yaml and the environment
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from path, or from the default search paths
// when path is empty. A missing config file is not an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/escpos-bridge")
	}

	// Environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, name := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, name); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", name, err)
		}
	}

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8084")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Bus defaults
	v.SetDefault("bus.url", "")
	v.SetDefault("bus.client_id_prefix", "escpos")
	v.SetDefault("bus.topic_prefix", "escpos")
	v.SetDefault("bus.qos", 1)
	v.SetDefault("bus.connect_timeout", "10s")
	v.SetDefault("bus.keep_alive", "30s")
	v.SetDefault("bus.publish_results", true)
	v.SetDefault("bus.home_assistant.enabled", true)
	v.SetDefault("bus.home_assistant.discovery_prefix", "homeassistant")

	// Printer defaults
	v.SetDefault("printer.host", "")
	v.SetDefault("printer.port", 9100)
	v.SetDefault("printer.model", "")
	v.SetDefault("printer.default_model", "default")

	// Discovery defaults
	v.SetDefault("discovery.enabled", true)
	v.SetDefault("discovery.interval", "5m")
	v.SetDefault("discovery.window", "2s")
	v.SetDefault("discovery.broadcast_address", "255.255.255.255:3289")
	v.SetDefault("discovery.concurrency", 8)
	v.SetDefault("discovery.identify_timeout", "1s")
	v.SetDefault("discovery.query_model", false)
	v.SetDefault("discovery.stale_after", "30m")
	v.SetDefault("discovery.tcp_targets", []string{})
	v.SetDefault("discovery.snmp.port", 161)
	v.SetDefault("discovery.snmp.community", "public")
	v.SetDefault("discovery.snmp.timeout", "500ms")
	v.SetDefault("discovery.snmp.retries", 0)

	// Session defaults
	v.SetDefault("session.queue_size", 8)
	v.SetDefault("session.max_attempts", 3)
	v.SetDefault("session.initial_delay", "200ms")
	v.SetDefault("session.max_delay", "5s")
	v.SetDefault("session.multiplier", 2.0)
	v.SetDefault("session.jitter", true)
	v.SetDefault("session.connect_timeout", "5s")
	v.SetDefault("session.delivery_timeout", "30s")
	v.SetDefault("session.failure_cooldown", "2s")
	v.SetDefault("session.max_cooldown", "30s")

	// Transport defaults
	v.SetDefault("transport.read_timeout", "2s")
	v.SetDefault("transport.write_timeout", "30s")
	v.SetDefault("transport.keep_alive", false)
	v.SetDefault("transport.serial.baud_rate", 19200)
	v.SetDefault("transport.serial.data_bits", 8)
	v.SetDefault("transport.serial.stop_bits", 1)
	v.SetDefault("transport.serial.parity", "none")
	v.SetDefault("transport.serial.timeout", "5s")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "escpos_bridge")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_lifetime", "5m")

	// Journal defaults
	v.SetDefault("journal.capacity", 500)
	v.SetDefault("journal.retention", "720h")
	v.SetDefault("journal.prune_interval", "1h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// App defaults
	v.SetDefault("app.name", "escpos-bridge")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "production")
	v.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Enabled && config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	if config.Bus.URL != "" {
		if _, err := BusKind(config.Bus.URL); err != nil {
			return err
		}
		if config.Bus.TopicPrefix == "" {
			return fmt.Errorf("bus.topic_prefix is required")
		}
		if config.Bus.QoS > 2 {
			return fmt.Errorf("bus.qos must be 0, 1 or 2")
		}
	}

	if config.Printer.Port < 1 || config.Printer.Port > 65535 {
		return fmt.Errorf("printer.port must be between 1 and 65535")
	}
	if config.Printer.DefaultModel == "" {
		return fmt.Errorf("printer.default_model is required")
	}

	if config.Discovery.Enabled {
		if config.Discovery.Window <= 0 {
			return fmt.Errorf("discovery.window must be positive")
		}
		if config.Discovery.BroadcastAddress == "" {
			return fmt.Errorf("discovery.broadcast_address is required")
		}
	}

	s := config.Session
	if s.QueueSize < 1 {
		return fmt.Errorf("session.queue_size must be at least 1")
	}
	if s.MaxAttempts < 1 {
		return fmt.Errorf("session.max_attempts must be at least 1")
	}
	if s.Multiplier < 1 {
		return fmt.Errorf("session.multiplier must be >= 1")
	}
	if s.ConnectTimeout <= 0 || s.DeliveryTimeout <= 0 {
		return fmt.Errorf("session timeouts must be positive")
	}

	if config.Database.Enabled && config.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}

	// Validate environment
	validEnvs := []string{"development", "staging", "production", "test"}
	if !contains(validEnvs, config.App.Environment) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	// Validate logging level
	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

// Bus kinds selected by URL scheme
const (
	BusMQTT = "mqtt"
	BusNATS = "nats"
)

// BusKind returns which client serves a bus URL
func BusKind(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("bus.url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "mqtt", "mqtts", "tcp", "ssl", "tls", "ws", "wss":
		return BusMQTT, nil
	case "nats":
		return BusNATS, nil
	default:
		return "", fmt.Errorf("bus.url: unsupported scheme %q", u.Scheme)
	}
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// HasManualPrinter reports whether a manual printer is configured
func (c *Config) HasManualPrinter() bool {
	return strings.TrimSpace(c.Printer.Host) != ""
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
