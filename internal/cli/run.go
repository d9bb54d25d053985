package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/citygrid/citygrid/internal/advisor"
	"github.com/citygrid/citygrid/internal/agent"
	"github.com/citygrid/citygrid/internal/config"
	"github.com/citygrid/citygrid/internal/notify"
	"github.com/citygrid/citygrid/internal/recorder"
	"github.com/citygrid/citygrid/internal/runtime"
)

var runDebug bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitoring pipeline (ingest, agents, coordinator)",
	Run:   runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Enable debug logging")
}

func runRun(cmd *cobra.Command, args []string) {
	printHeader("🏙️ CityGrid Pipeline")

	if runDebug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	rec, err := buildRecorder(cfg)
	if err != nil {
		fmt.Printf("Recorder error: %v\n", err)
		os.Exit(1)
	}

	var notifier agent.CommandNotifier
	if cfg.Notify.SlackWebhookURL != "" {
		notifier = notify.NewSlackNotifier(cfg.Notify.SlackWebhookURL)
		fmt.Println("Slack notifications: enabled")
	}

	rt := runtime.New(cfg, runtime.Options{
		Advisor:  advisor.NewGatewayClient(cfg.Advisor.GatewayURL, cfg.Advisor.Timeout),
		Recorder: rec,
		Notifier: notifier,
	})

	ctx := context.Background()
	if err := rt.Start(ctx); err != nil {
		fmt.Printf("Start error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Monitoring %d districts, ingesting from %s (topics %v)\n",
		len(cfg.City.Districts), cfg.Kafka.Brokers, cfg.Kafka.Topics)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("termination signal received", "signal", sig.String())

	rt.Stop()
}

func buildRecorder(cfg *config.Config) (recorder.Recorder, error) {
	switch cfg.Recorder.Backend {
	case "http":
		return recorder.NewHTTPRecorder(cfg.Recorder.BackendURL, cfg.Recorder.Timeout), nil
	case "sqlite":
		return recorder.NewSQLiteRecorder(cfg.Recorder.SQLitePath)
	case "none":
		return recorder.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown recorder backend %q", cfg.Recorder.Backend)
	}
}
