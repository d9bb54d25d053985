package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/citygrid/citygrid/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ CityGrid Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 CityGrid Status")
		fmt.Printf("Version: %s\n", version)

		path, err := config.ConfigPath()
		if err == nil {
			fmt.Println("Config path: " + path)
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Config:  ✗ %v\n", err)
			return
		}
		fmt.Println("Config:  ✓ OK")
		fmt.Printf("Districts: %s\n", strings.Join(cfg.City.Districts, ", "))
		fmt.Printf("Kafka:     %s (topics %v, group %s)\n", cfg.Kafka.Brokers, cfg.Kafka.Topics, cfg.Kafka.GroupID)
		fmt.Printf("Advisor:   %s\n", cfg.Advisor.GatewayURL)
		fmt.Printf("Recorder:  %s", cfg.Recorder.Backend)
		switch cfg.Recorder.Backend {
		case "http":
			fmt.Printf(" (%s)", cfg.Recorder.BackendURL)
		case "sqlite":
			fmt.Printf(" (%s)", cfg.Recorder.SQLitePath)
		}
		fmt.Println()
		if cfg.Notify.SlackWebhookURL != "" {
			fmt.Println("Notify:    slack webhook configured")
		}
	},
}
