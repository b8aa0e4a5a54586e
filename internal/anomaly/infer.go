package anomaly

import (
	"math"

	"github.com/couchcryptid/enviro-risk-engine/internal/domain"
)

// Severity buckets on the absolute decision score. The capitalized
// forms ship as-is in sink-topic headers and alerting payloads.
const (
	SeverityHigh   = "High"
	SeverityMedium = "Medium"
	SeverityLow    = "Low"
)

// dbscanFallbackScore stands in for DBSCAN's missing decision function:
// a fixed mid confidence, openly degraded rather than fabricated.
const dbscanFallbackScore = 0.5

// watchList names the parameters operators track most closely; batch
// reports call out the ones that appear in flagged readings.
var watchList = []string{
	domain.FieldAQI,
	domain.FieldFloodRiskScore,
	domain.FieldAirTempC,
	domain.FieldHumidityPct,
}

// Inferencer applies a trained detector artifact to live readings.
type Inferencer struct {
	art *DetectorArtifact
}

// NewInferencer wraps a validated artifact for scoring.
func NewInferencer(a *DetectorArtifact) *Inferencer {
	return &Inferencer{art: a}
}

// Artifact exposes the wrapped artifact for reporting endpoints.
func (inf *Inferencer) Artifact() *DetectorArtifact { return inf.art }

// Detect scores one reading's field map against the trained detector.
// The fields must cover every trained feature with a finite value,
// otherwise a FeatureMismatchError identifies what is missing.
func (inf *Inferencer) Detect(fields map[string]float64) (domain.AnomalySummary, error) {
	row := make([]float64, len(inf.art.Features))
	var missing []string
	for j, f := range inf.art.Features {
		v, ok := fields[f]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			missing = append(missing, f)
			continue
		}
		row[j] = v
	}
	if len(missing) > 0 {
		return domain.AnomalySummary{}, &FeatureMismatchError{Missing: missing}
	}

	scaled := inf.art.Scaler.TransformRow(row)

	var isAnomaly bool
	var score float64
	switch inf.art.Detector {
	case DetectorIsolationForest:
		d := inf.art.Forest.Decision(scaled)
		isAnomaly = d < 0
		score = math.Abs(d)
	case DetectorOneClass:
		d := inf.art.Boundary.Decision(scaled)
		isAnomaly = d < 0
		score = math.Abs(d)
	default:
		isAnomaly = inf.art.Cluster.Predict(scaled)
		score = dbscanFallbackScore
	}

	return domain.AnomalySummary{
		IsAnomaly: isAnomaly,
		Score:     score,
		Severity:  ScoreSeverity(score),
	}, nil
}

// ScoreSeverity buckets an absolute decision score.
func ScoreSeverity(score float64) string {
	switch {
	case score > 0.7:
		return SeverityHigh
	case score > 0.3:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// BatchReport summarizes anomaly detection over a batch of readings.
type BatchReport struct {
	Count        int     `json:"count"`
	AnomalyCount int     `json:"anomaly_count"`
	MeanScore    float64 `json:"mean_score"`
	// AffectedParameters lists the watched parameters present in at
	// least one reading that was flagged anomalous.
	AffectedParameters []string `json:"affected_parameters"`
	OverallSeverity    string   `json:"overall_severity"`

	Results []domain.AnomalySummary `json:"results"`
}

// DetectBatch scores a batch of readings and aggregates the results.
// The mean score runs over every row, flagged or not, and the overall
// severity buckets that mean; an empty batch reports a zero mean and
// low severity.
func (inf *Inferencer) DetectBatch(batch []map[string]float64) (BatchReport, error) {
	report := BatchReport{
		Count:   len(batch),
		Results: make([]domain.AnomalySummary, 0, len(batch)),
	}

	sum := 0.0
	affected := make(map[string]bool, len(watchList))
	for _, fields := range batch {
		summary, err := inf.Detect(fields)
		if err != nil {
			return BatchReport{}, err
		}
		report.Results = append(report.Results, summary)
		sum += summary.Score
		if summary.IsAnomaly {
			report.AnomalyCount++
			for _, p := range watchList {
				if _, ok := fields[p]; ok {
					affected[p] = true
				}
			}
		}
	}

	if report.Count > 0 {
		report.MeanScore = sum / float64(report.Count)
	}
	report.OverallSeverity = ScoreSeverity(report.MeanScore)

	for _, p := range watchList {
		if affected[p] {
			report.AffectedParameters = append(report.AffectedParameters, p)
		}
	}

	return report, nil
}
