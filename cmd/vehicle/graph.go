package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/vehicle/internal/cli"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the drive pipeline",
	Long: `Assembles the drive pipeline without starting it and prints it as a
Mermaid diagram (graph LR) or a Markdown table, followed by any wiring
findings. With --check, error findings fail the command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, required, _ := configFlags(cmd)
		format, _ := cmd.Flags().GetString("format")
		check, _ := cmd.Flags().GetBool("check")
		return cli.Graph(cmd.Context(), cli.GraphOptions{
			ConfigPath:     configPath,
			ConfigRequired: required,
			Format:         format,
			Check:          check,
			Stdout:         cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("format", cli.FormatMermaid, "Output format: mermaid or markdown")
	graphCmd.Flags().Bool("check", false, "Fail on wiring errors")
}
