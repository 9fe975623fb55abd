package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chrissnell/volcanomonitor/internal/log"
	"github.com/chrissnell/volcanomonitor/internal/logstore"
	"github.com/chrissnell/volcanomonitor/internal/types"
)

var followFromStart bool

var followCmd = &cobra.Command{
	Use:   "follow",
	Short: "Stream new log records as they are written",
	Long:  `Tail the CSV log of a running monitor and print each new record.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, provider, err := loadConfig()
		if err != nil {
			return err
		}
		defer provider.Close()

		initLogging(cfg)
		defer log.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		path := logstore.New(cfg.Device.DataDir).Path()
		return logstore.Follow(ctx, path, followFromStart, func(r types.Record) {
			fmt.Fprintf(out, "temp=%.2f flow=%.2f so2=%.3f h2s=%.3f risk=%.4f %s\n",
				r.Reading[types.WaterTemp], r.Reading[types.FlowRate],
				r.Reading[types.SO2], r.Reading[types.H2S], r.Score, r.Status)
		})
	},
}

func init() {
	followCmd.Flags().BoolVar(&followFromStart, "from-start", false, "Replay existing records before following")
}
