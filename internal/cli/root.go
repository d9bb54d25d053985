// Package cli implements the citygrid command line interface.
package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/citygrid/citygrid/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"   ____ _ _          ____      _     _\n" +
		"  / ___(_) |_ _   _ / ___|_ __(_) __| |\n" +
		" | |   | | __| | | | |  _| '__| |/ _` |\n" +
		" | |___| | |_| |_| | |_| | |  | | (_| |\n" +
		"  \\____|_|\\__|\\__, |\\____|_|  |_|\\__,_|\n" +
		"              |___/\n"
)

var rootCmd = &cobra.Command{
	Use:   "citygrid",
	Short: "CityGrid - urban monitoring multi-agent system",
	Long:  color.CyanString(logo) + "\nA multi-agent pipeline for city sensor monitoring, escalation and coordination.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(simulateCmd)
}
