package config

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Device      DeviceData      `json:"device"`
	Storage     StorageData     `json:"storage,omitempty"`
	Controllers ControllersData `json:"controllers,omitempty"`
	Logging     LoggingData     `json:"logging,omitempty"`
}

// DeviceData holds the monitor's deployment settings. The sensing and
// inference constants are compiled in and cannot be changed here.
type DeviceData struct {
	Name      string      `json:"name"`
	DataDir   string      `json:"data_dir"`
	ModelFile string      `json:"model_file,omitempty"`
	Telemetry bool        `json:"telemetry,omitempty"`
	Console   ConsoleData `json:"console,omitempty"`
}

// ConsoleData describes the operator stream. With neither a serial device
// nor hostname+port, stdio is used.
type ConsoleData struct {
	SerialDevice string `json:"serial_device,omitempty"`
	Baud         int    `json:"baud,omitempty"`
	Hostname     string `json:"hostname,omitempty"`
	Port         string `json:"port,omitempty"`
}

// StorageData holds the configuration for optional mirror storage backends
type StorageData struct {
	SQLite      *SQLiteData      `json:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
}

type SQLiteData struct {
	Path string `json:"path"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

// ControllersData holds the configuration for optional controllers
type ControllersData struct {
	RESTServer *RESTServerData `json:"rest,omitempty"`
}

type RESTServerData struct {
	ListenAddr string `json:"listen_addr"`
}

type LoggingData struct {
	Debug      bool   `json:"debug,omitempty"`
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() *ConfigData {
	return &ConfigData{
		Device: DeviceData{
			Name:    "volcano-1",
			DataDir: "data",
		},
		Logging: LoggingData{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// StaticProvider serves a fixed ConfigData. It is used when the monitor runs
// without a configuration file.
type StaticProvider struct {
	config *ConfigData
}

// NewStaticProvider wraps c; a nil c serves Defaults.
func NewStaticProvider(c *ConfigData) *StaticProvider {
	if c == nil {
		c = Defaults()
	}
	return &StaticProvider{config: c}
}

func (s *StaticProvider) LoadConfig() (*ConfigData, error) {
	c := *s.config
	return &c, nil
}

func (s *StaticProvider) IsReadOnly() bool { return true }

func (s *StaticProvider) Close() error { return nil }
