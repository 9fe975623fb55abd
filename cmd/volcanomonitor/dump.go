package main

import (
	"github.com/spf13/cobra"

	"github.com/chrissnell/volcanomonitor/internal/log"
	"github.com/chrissnell/volcanomonitor/internal/logstore"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the CSV log and exit",
	Long:  `Print the device's CSV log to stdout without starting the monitor.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, provider, err := loadConfig()
		if err != nil {
			return err
		}
		defer provider.Close()

		initLogging(cfg)
		defer log.Sync()

		store := logstore.New(cfg.Device.DataDir)
		if err := store.Mount(); err != nil {
			return err
		}
		_, err = store.CopyTo(cmd.OutOrStdout())
		return err
	},
}
