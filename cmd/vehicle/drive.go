package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/vehicle/internal/cli"
)

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Drive the car",
	Long: `Starts the drive loop with the web controller. Steer from the controller
in user mode, or switch to local_angle or local to hand control to the pilot.
Stops on Ctrl+C or after --max-loops loops.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, required, debug := configFlags(cmd)
		opts := cli.DriveOptions{
			ConfigPath:     configPath,
			ConfigRequired: required,
			Debug:          debug,
			Stdout:         cmd.OutOrStdout(),
			Stderr:         cmd.ErrOrStderr(),
		}
		opts.ModelPath, _ = cmd.Flags().GetString("model")
		opts.ModelType, _ = cmd.Flags().GetString("type")
		opts.Chaos, _ = cmd.Flags().GetBool("chaos")

		if cmd.Flags().Changed("hz") {
			hz, _ := cmd.Flags().GetFloat64("hz")
			opts.Hz = &hz
		}
		if cmd.Flags().Changed("max-loops") {
			n, _ := cmd.Flags().GetInt("max-loops")
			opts.MaxLoops = &n
		}
		return cli.Drive(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(driveCmd)
	driveCmd.Flags().String("model", "", "Path to a trained pilot model")
	driveCmd.Flags().String("type", "", "Pilot model type (defaults to drive.model_type)")
	driveCmd.Flags().Bool("chaos", false, "Add random steering bursts in user mode")
	driveCmd.Flags().Float64("hz", 0, "Loop rate in Hz; 0 runs unpaced (defaults to drive.loop_hz)")
	driveCmd.Flags().Int("max-loops", 0, "Stop after this many loops; 0 runs until stopped")
}
