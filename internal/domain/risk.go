package domain

import "fmt"

// Classifiable metric names accepted by ClassifyRisk.
const (
	MetricAQI       = "aqi"
	MetricFloodRisk = "flood_risk"
	MetricHeatIndex = "heat_index"
)

// RiskLevel is an ordinal risk category. Level is 1-based and ordered:
// a higher level always means worse conditions within one metric's scale.
type RiskLevel struct {
	Level int    `json:"level"`
	Label string `json:"label"`
}

// threshold maps an upper bound (exclusive for all but the last entry,
// which is open-ended) to an ordinal label.
type threshold struct {
	upper float64
	label string
}

// Classification tables. AQI follows the CPCB six-band scale, flood risk
// the five-band score bands, and heat index the five-band NWS categories
// on the Celsius scale (cut points 27/32/40/46°C).
var riskTables = map[string][]threshold{
	MetricAQI: {
		{50, "Good"},
		{100, "Satisfactory"},
		{200, "Moderate"},
		{300, "Poor"},
		{400, "Very Poor"},
		{0, "Severe"},
	},
	MetricFloodRisk: {
		{20, "Low Risk"},
		{40, "Moderate Risk"},
		{60, "High Risk"},
		{80, "Very High Risk"},
		{0, "Extreme Risk"},
	},
	MetricHeatIndex: {
		{27, "Normal"},
		{32, "Caution"},
		{40, "Extreme Caution"},
		{46, "Danger"},
		{0, "Extreme Danger"},
	},
}

// Boundary semantics per table: AQI bands are inclusive on the upper
// bound ("Good" is ≤50), flood and heat bands are exclusive ("Low Risk"
// is <20).
var inclusiveUpper = map[string]bool{MetricAQI: true}

// ClassifyRisk maps a continuous metric value to its ordinal risk
// category via a fixed threshold table. It is deterministic: the same
// metric and value always yield the same level.
func ClassifyRisk(metric string, value float64) (RiskLevel, error) {
	table, ok := riskTables[metric]
	if !ok {
		return RiskLevel{}, fmt.Errorf("classify risk: unknown metric %q", metric)
	}

	inclusive := inclusiveUpper[metric]
	for i, t := range table {
		if i == len(table)-1 {
			break
		}
		if value < t.upper || (inclusive && value == t.upper) {
			return RiskLevel{Level: i + 1, Label: t.label}, nil
		}
	}
	return RiskLevel{Level: len(table), Label: table[len(table)-1].label}, nil
}

// ClassifyAll classifies the three dashboard-facing metrics from a set of
// derived indices.
func ClassifyAll(d DerivedIndices) map[string]RiskLevel {
	out := make(map[string]RiskLevel, 3)
	for metric, value := range map[string]float64{
		MetricAQI:       d.AQI,
		MetricFloodRisk: d.FloodRisk,
		MetricHeatIndex: d.HeatIndexC,
	} {
		level, err := ClassifyRisk(metric, value)
		if err != nil {
			continue // unreachable: all three metrics have tables
		}
		out[metric] = level
	}
	return out
}
