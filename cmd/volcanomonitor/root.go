package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chrissnell/volcanomonitor/internal/log"
	"github.com/chrissnell/volcanomonitor/pkg/config"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:           "volcanomonitor",
	Short:         "Virtual volcano monitoring device",
	Long:          `Samples synthetic sensor readings, scores eruption risk and logs every cycle to CSV.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runMonitor,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to YAML configuration (defaults are used when empty)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Turn on debugging output")

	rootCmd.AddCommand(runCmd, dumpCmd, followCmd, versionCmd)
}

// loadConfig reads cfgFile, or returns the defaults when none was given.
func loadConfig() (*config.ConfigData, config.ConfigProvider, error) {
	var provider config.ConfigProvider
	if cfgFile == "" {
		provider = config.NewStaticProvider(nil)
	} else {
		filename, _ := filepath.Abs(cfgFile)
		provider = config.NewYAMLProvider(filename)
	}

	cfg, err := provider.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("error reading config file. Did you pass the --config flag? Run with -h for help: %w", err)
	}
	if debug {
		cfg.Logging.Debug = true
	}
	return cfg, provider, nil
}

// initLogging starts the diagnostic logger. zap writes to stderr unless a
// log file is configured, so stdout carries only command output.
func initLogging(cfg *config.ConfigData) {
	opts := log.Options{
		Debug:      cfg.Logging.Debug,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	}
	if err := log.Init(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
}
