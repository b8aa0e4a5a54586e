package domain

import (
	"time"
)

// AnomalySummary is the per-reading anomaly verdict attached to a scored
// reading. It mirrors the inference service's result so the sink topic is
// self-contained for alerting consumers.
type AnomalySummary struct {
	IsAnomaly bool    `json:"is_anomaly"`
	Score     float64 `json:"anomaly_score"`
	Severity  string  `json:"severity"`
}

// ScoredReading is the fully processed record destined for the sink
// topic: sanitized inputs, derived indices, ordinal risk levels, and the
// anomaly verdict when a detector artifact is available. Anomaly is nil
// when no model has been trained yet; indices and risk levels are always
// present so dashboards degrade gracefully instead of going dark.
type ScoredReading struct {
	Date          time.Time            `json:"date"`
	SchemaVersion int                  `json:"schema_version"`
	Cleaned       CleanedReading       `json:"cleaned"`
	Indices       DerivedIndices       `json:"indices"`
	Risks         map[string]RiskLevel `json:"risks"`
	Anomaly       *AnomalySummary      `json:"anomaly,omitempty"`
	ProcessedAt   time.Time            `json:"processed_at"`
}

// NewScoredReading assembles the scored view of one cleaned reading,
// stamping ProcessedAt from the package clock.
func NewScoredReading(c CleanedReading, anomaly *AnomalySummary) ScoredReading {
	indices := ComputeDerivedIndices(c)
	return ScoredReading{
		Date:          c.Date,
		SchemaVersion: SchemaVersion,
		Cleaned:       c,
		Indices:       indices,
		Risks:         ClassifyAll(indices),
		Anomaly:       anomaly,
		ProcessedAt:   clock.Now(),
	}
}
