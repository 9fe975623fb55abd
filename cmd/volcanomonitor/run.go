package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/chrissnell/volcanomonitor/internal/app"
	"github.com/chrissnell/volcanomonitor/internal/log"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitor (default)",
	Long:  `Boot the device and cycle until a stop command arrives on the console.`,
	RunE:  runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, provider, err := loadConfig()
	if err != nil {
		return err
	}
	defer provider.Close()

	initLogging(cfg)
	defer log.Sync()

	application := app.New(provider, log.GetSugaredLogger())
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("Application error: %v", err)
		return err
	}
	return nil
}
