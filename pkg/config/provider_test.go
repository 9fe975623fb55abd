package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestYAMLProviderFull(t *testing.T) {
	path := writeConfig(t, `
device:
  name: summit
  data-dir: /var/lib/volcano
  model-file: /etc/volcano/model.msgpack
  telemetry: true
  console:
    serial-device: /dev/ttyUSB0
    baud: 9600
storage:
  sqlite:
    path: /var/lib/volcano/mirror.db
  timescaledb:
    connection-string: postgres://volcano@localhost/volcano
controllers:
  rest:
    listen-addr: ":8080"
logging:
  debug: true
  file: /var/log/volcano.log
  max-backups: 7
`)

	cfg, err := NewYAMLProvider(path).LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "summit", cfg.Device.Name)
	assert.Equal(t, "/var/lib/volcano", cfg.Device.DataDir)
	assert.Equal(t, "/etc/volcano/model.msgpack", cfg.Device.ModelFile)
	assert.True(t, cfg.Device.Telemetry)
	assert.Equal(t, ConsoleData{SerialDevice: "/dev/ttyUSB0", Baud: 9600}, cfg.Device.Console)
	require.NotNil(t, cfg.Storage.SQLite)
	assert.Equal(t, "/var/lib/volcano/mirror.db", cfg.Storage.SQLite.Path)
	require.NotNil(t, cfg.Storage.TimescaleDB)
	assert.Equal(t, "postgres://volcano@localhost/volcano", cfg.Storage.TimescaleDB.ConnectionString)
	require.NotNil(t, cfg.Controllers.RESTServer)
	assert.Equal(t, ":8080", cfg.Controllers.RESTServer.ListenAddr)
	assert.True(t, cfg.Logging.Debug)
	assert.Equal(t, 7, cfg.Logging.MaxBackups)
	assert.Equal(t, 10, cfg.Logging.MaxSizeMB)
}

func TestYAMLProviderDefaults(t *testing.T) {
	cfg, err := NewYAMLProvider(writeConfig(t, "device: {}\n")).LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestYAMLProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown field", body: "device:\n  nmae: x\n"},
		{name: "host without port", body: "device:\n  console:\n    hostname: rig\n"},
		{name: "sqlite without path", body: "storage:\n  sqlite: {}\n"},
		{name: "rest without addr", body: "controllers:\n  rest: {}\n"},
		{name: "not yaml", body: "device: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewYAMLProvider(writeConfig(t, tt.body)).LoadConfig()
			assert.Error(t, err)
		})
	}

	_, err := NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml")).LoadConfig()
	assert.Error(t, err)
}

func TestStaticProviderCopies(t *testing.T) {
	p := NewStaticProvider(nil)
	a, err := p.LoadConfig()
	require.NoError(t, err)
	a.Device.Name = "changed"

	b, err := p.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "volcano-1", b.Device.Name)
}
