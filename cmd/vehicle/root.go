package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vehicle",
	Short: "Vehicle runs a small self-driving car as a pipeline of parts",
	Long: `Vehicle assembles camera, controller, autopilot, actuators and a data
recorder into a fixed-rate loop. Drive it to record data, train a pilot from
the recorded tubs and drive again on autopilot.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "vehicle.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// configFlags returns the config path and whether it was set explicitly.
func configFlags(cmd *cobra.Command) (path string, required, debug bool) {
	path, _ = cmd.Flags().GetString("config")
	debug, _ = cmd.Flags().GetBool("debug")
	return path, cmd.Flags().Changed("config"), debug
}
