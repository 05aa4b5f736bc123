package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/vehicle/internal/cli"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a pilot from recorded tubs",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, required, debug := configFlags(cmd)
		opts := cli.TrainOptions{
			ConfigPath:     configPath,
			ConfigRequired: required,
			Debug:          debug,
			Stdout:         cmd.OutOrStdout(),
			Stderr:         cmd.ErrOrStderr(),
		}
		opts.Tubs, _ = cmd.Flags().GetString("tub")
		opts.ModelPath, _ = cmd.Flags().GetString("model")
		opts.ModelType, _ = cmd.Flags().GetString("type")
		opts.BaseModel, _ = cmd.Flags().GetString("base_model")
		return cli.Train(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().String("tub", "", "Comma separated tub paths or globs (defaults to every tub under data.path)")
	trainCmd.Flags().String("model", "", "Where to save the trained model")
	trainCmd.Flags().String("type", "", "Pilot model type (defaults to drive.model_type)")
	trainCmd.Flags().String("base_model", "", "Model to start training from")
	_ = trainCmd.MarkFlagRequired("model")
}
