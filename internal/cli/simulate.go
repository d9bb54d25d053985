package cli

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/citygrid/citygrid/internal/config"
	"github.com/citygrid/citygrid/internal/ingest"
)

var (
	simCount    int
	simInterval time.Duration
	simTopic    string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Publish synthetic sensor events to Kafka",
	Run:   runSimulate,
}

func init() {
	simulateCmd.Flags().IntVarP(&simCount, "count", "n", 20, "Number of events to publish")
	simulateCmd.Flags().DurationVarP(&simInterval, "interval", "i", time.Second, "Delay between events")
	simulateCmd.Flags().StringVarP(&simTopic, "topic", "t", "", "Target topic (default: first configured topic)")
}

var sensorTypes = []struct {
	name string
	unit string
	max  float64
}{
	{"traffic", "veh/min", 150},
	{"pollution", "µg/m³", 140},
}

// severityFor maps a reading to a severity by the convention the
// reference simulators use: the top of the range is high, the middle
// medium.
func severityFor(value, max float64) string {
	switch {
	case value >= max*0.8:
		return "high"
	case value >= max*0.5:
		return "medium"
	default:
		return "low"
	}
}

func runSimulate(cmd *cobra.Command, args []string) {
	printHeader("🛰️ CityGrid Simulator")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	topic := simTopic
	if topic == "" {
		topic = cfg.Kafka.Topics[0]
	}

	pub := ingest.NewPublisher(cfg.Kafka.Brokers, topic)
	defer pub.Close()

	fmt.Printf("Publishing %d events to %s (%s)\n", simCount, topic, cfg.Kafka.Brokers)

	ctx := context.Background()
	for i := 0; i < simCount; i++ {
		district := cfg.City.Districts[rand.Intn(len(cfg.City.Districts))]
		sensor := sensorTypes[rand.Intn(len(sensorTypes))]
		value := rand.Float64() * sensor.max

		payload := map[string]any{
			"district":  district,
			"type":      sensor.name,
			"value":     value,
			"unit":      sensor.unit,
			"severity":  severityFor(value, sensor.max),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if err := pub.Publish(ctx, district, payload); err != nil {
			fmt.Printf("Publish error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  → %s %s=%.1f %s (%s)\n", district, sensor.name, value, sensor.unit, payload["severity"])

		if i < simCount-1 {
			time.Sleep(simInterval)
		}
	}
	fmt.Println("Done.")
}
