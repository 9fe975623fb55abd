package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chrissnell/volcanomonitor/internal/constants"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and exit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "volcanomonitor %s\n", constants.Version)
	},
}
