package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8084", cfg.GetServerAddr())
	assert.Equal(t, "escpos", cfg.Bus.TopicPrefix)
	assert.Equal(t, byte(1), cfg.Bus.QoS)
	assert.Equal(t, 9100, cfg.Printer.Port)
	assert.Equal(t, "default", cfg.Printer.DefaultModel)
	assert.False(t, cfg.HasManualPrinter())
	assert.Equal(t, 2*time.Second, cfg.Discovery.Window)
	assert.Equal(t, "255.255.255.255:3289", cfg.Discovery.BroadcastAddress)
	assert.Equal(t, uint16(161), cfg.Discovery.SNMP.Port)
	assert.Equal(t, "public", cfg.Discovery.SNMP.Community)
	assert.Equal(t, 8, cfg.Session.QueueSize)
	assert.Equal(t, 3, cfg.Session.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Session.InitialDelay)
	assert.Equal(t, 2.0, cfg.Session.Multiplier)
	assert.Equal(t, 19200, cfg.Transport.Serial.BaudRate)
	assert.False(t, cfg.Database.Enabled)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_LegacyEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PRINTER_HOST", "192.168.1.40")
	t.Setenv("PRINTER_PORT", "9101")
	t.Setenv("PRINTER_MODEL", "TM-T20III")
	t.Setenv("DEFAULT_PRINTER_MODEL", "TM-T88V")
	t.Setenv("MQTT_URL", "mqtt://broker:1883")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.HasManualPrinter())
	assert.Equal(t, "192.168.1.40", cfg.Printer.Host)
	assert.Equal(t, 9101, cfg.Printer.Port)
	assert.Equal(t, "TM-T20III", cfg.Printer.Model)
	assert.Equal(t, "TM-T88V", cfg.Printer.DefaultModel)
	assert.Equal(t, "mqtt://broker:1883", cfg.Bus.URL)
}

func TestLoad_PrefixedEnvironmentWins(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PRINTER_HOST", "legacy")
	t.Setenv("ESCPOS_BRIDGE_PRINTER_HOST", "prefixed")
	t.Setenv("ESCPOS_BRIDGE_SESSION_MAX_ATTEMPTS", "5")
	t.Setenv("ESCPOS_BRIDGE_DISCOVERY_WINDOW", "750ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prefixed", cfg.Printer.Host)
	assert.Equal(t, 5, cfg.Session.MaxAttempts)
	assert.Equal(t, 750*time.Millisecond, cfg.Discovery.Window)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bus:
  url: nats://localhost:4222
  home_assistant:
    enabled: false
discovery:
  enabled: false
  tcp_targets: ["10.0.0.5", "10.0.1.0/28"]
session:
  queue_size: 2
  failure_cooldown: 10s
app:
  environment: test
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", cfg.Bus.URL)
	assert.False(t, cfg.Bus.HomeAssistant.Enabled)
	assert.False(t, cfg.Discovery.Enabled)
	assert.Equal(t, []string{"10.0.0.5", "10.0.1.0/28"}, cfg.Discovery.TCPTargets)
	assert.Equal(t, 2, cfg.Session.QueueSize)
	assert.Equal(t, 10*time.Second, cfg.Session.FailureCooldown)
	assert.Equal(t, "test", cfg.App.Environment)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad bus scheme", map[string]string{"MQTT_URL": "amqp://broker"}},
		{"bad port", map[string]string{"PRINTER_PORT": "70000"}},
		{"zero queue", map[string]string{"ESCPOS_BRIDGE_SESSION_QUEUE_SIZE": "0"}},
		{"bad level", map[string]string{"ESCPOS_BRIDGE_LOGGING_LEVEL": "loud"}},
		{"bad environment", map[string]string{"ESCPOS_BRIDGE_APP_ENVIRONMENT": "moon"}},
		{"zero window", map[string]string{"ESCPOS_BRIDGE_DISCOVERY_WINDOW": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestBusKind(t *testing.T) {
	tests := map[string]string{
		"mqtt://broker:1883":    BusMQTT,
		"tcp://broker:1883":     BusMQTT,
		"mqtts://broker:8883":   BusMQTT,
		"ws://broker:9001":      BusMQTT,
		"nats://localhost:4222": BusNATS,
	}
	for raw, want := range tests {
		got, err := BusKind(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := BusKind("kafka://broker")
	assert.Error(t, err)
}
