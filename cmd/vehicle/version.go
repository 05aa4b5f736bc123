package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/vehicle"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of vehicle",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "vehicle version %s\n", strings.TrimSpace(vehicle.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
