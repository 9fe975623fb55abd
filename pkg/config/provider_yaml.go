package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

type yamlConfig struct {
	Device struct {
		Name      string `yaml:"name"`
		DataDir   string `yaml:"data-dir"`
		ModelFile string `yaml:"model-file,omitempty"`
		Telemetry bool   `yaml:"telemetry,omitempty"`
		Console   struct {
			SerialDevice string `yaml:"serial-device,omitempty"`
			Baud         int    `yaml:"baud,omitempty"`
			Hostname     string `yaml:"hostname,omitempty"`
			Port         string `yaml:"port,omitempty"`
		} `yaml:"console,omitempty"`
	} `yaml:"device"`
	Storage struct {
		SQLite *struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite,omitempty"`
		TimescaleDB *struct {
			ConnectionString string `yaml:"connection-string"`
		} `yaml:"timescaledb,omitempty"`
	} `yaml:"storage,omitempty"`
	Controllers struct {
		REST *struct {
			ListenAddr string `yaml:"listen-addr"`
		} `yaml:"rest,omitempty"`
	} `yaml:"controllers,omitempty"`
	Logging struct {
		Debug      bool   `yaml:"debug,omitempty"`
		File       string `yaml:"file,omitempty"`
		MaxSizeMB  int    `yaml:"max-size-mb,omitempty"`
		MaxBackups int    `yaml:"max-backups,omitempty"`
		MaxAgeDays int    `yaml:"max-age-days,omitempty"`
	} `yaml:"logging,omitempty"`
}

// LoadConfig loads the complete configuration from YAML file. Unset fields
// keep their Defaults values.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	var yc yamlConfig
	if err := yaml.UnmarshalStrict(cfgFile, &yc); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", y.filename, err)
	}

	config := Defaults()

	if yc.Device.Name != "" {
		config.Device.Name = yc.Device.Name
	}
	if yc.Device.DataDir != "" {
		config.Device.DataDir = yc.Device.DataDir
	}
	config.Device.ModelFile = yc.Device.ModelFile
	config.Device.Telemetry = yc.Device.Telemetry
	config.Device.Console = ConsoleData{
		SerialDevice: yc.Device.Console.SerialDevice,
		Baud:         yc.Device.Console.Baud,
		Hostname:     yc.Device.Console.Hostname,
		Port:         yc.Device.Console.Port,
	}

	if yc.Storage.SQLite != nil {
		config.Storage.SQLite = &SQLiteData{Path: yc.Storage.SQLite.Path}
	}
	if yc.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: yc.Storage.TimescaleDB.ConnectionString,
		}
	}

	if yc.Controllers.REST != nil {
		config.Controllers.RESTServer = &RESTServerData{ListenAddr: yc.Controllers.REST.ListenAddr}
	}

	config.Logging.Debug = yc.Logging.Debug
	config.Logging.File = yc.Logging.File
	if yc.Logging.MaxSizeMB != 0 {
		config.Logging.MaxSizeMB = yc.Logging.MaxSizeMB
	}
	if yc.Logging.MaxBackups != 0 {
		config.Logging.MaxBackups = yc.Logging.MaxBackups
	}
	if yc.Logging.MaxAgeDays != 0 {
		config.Logging.MaxAgeDays = yc.Logging.MaxAgeDays
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// IsReadOnly returns true since YAML files are treated as read-only
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// Validate checks settings that would otherwise fail deep inside startup.
func (c *ConfigData) Validate() error {
	con := c.Device.Console
	if con.SerialDevice == "" && (con.Hostname == "") != (con.Port == "") {
		return fmt.Errorf("device %s: console must define both hostname and port", c.Device.Name)
	}
	if con.Baud < 0 {
		return fmt.Errorf("device %s: invalid baud rate %d", c.Device.Name, con.Baud)
	}
	if c.Storage.SQLite != nil && c.Storage.SQLite.Path == "" {
		return fmt.Errorf("storage sqlite: path is required")
	}
	if c.Storage.TimescaleDB != nil && c.Storage.TimescaleDB.ConnectionString == "" {
		return fmt.Errorf("storage timescaledb: connection-string is required")
	}
	if c.Controllers.RESTServer != nil && c.Controllers.RESTServer.ListenAddr == "" {
		return fmt.Errorf("controllers rest: listen-addr is required")
	}
	return nil
}
