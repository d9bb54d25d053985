package agent

import (
	"sort"
	"strings"

	"github.com/citygrid/citygrid/internal/advisor"
	"github.com/citygrid/citygrid/internal/event"
)

// CityState is the coordinator's synthetic per-district summary of the
// last known indicator values. Entries appear lazily on the first
// escalation from a district and are never removed. Owned exclusively by
// the coordinator goroutine.
type CityState struct {
	metrics map[string]*districtMetrics
}

type districtMetrics struct {
	traffic   *float64
	pollution *float64
}

// NewCityState creates an empty city state.
func NewCityState() *CityState {
	return &CityState{metrics: make(map[string]*districtMetrics)}
}

// Update records the event's value under the metric matching its sensor
// type. Unknown sensor types leave the entry unchanged (but still create
// it).
func (s *CityState) Update(district string, ev event.SensorEvent) {
	m, ok := s.metrics[district]
	if !ok {
		m = &districtMetrics{}
		s.metrics[district] = m
	}
	value := ev.Value
	switch strings.ToLower(ev.SensorType) {
	case "traffic":
		m.traffic = &value
	case "pollution":
		m.pollution = &value
	}
}

// Snapshot serializes the state for the advisor, sorted by district so the
// payload is deterministic.
func (s *CityState) Snapshot() []advisor.DistrictState {
	districts := make([]string, 0, len(s.metrics))
	for d := range s.metrics {
		districts = append(districts, d)
	}
	sort.Strings(districts)

	out := make([]advisor.DistrictState, 0, len(districts))
	for _, d := range districts {
		m := s.metrics[d]
		out = append(out, advisor.DistrictState{
			District:       d,
			TrafficIndex:   m.traffic,
			PollutionIndex: m.pollution,
			OtherMetrics:   map[string]any{},
		})
	}
	return out
}
