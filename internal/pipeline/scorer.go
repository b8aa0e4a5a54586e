package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/enviro-risk-engine/internal/domain"
	"github.com/couchcryptid/enviro-risk-engine/internal/observability"
	"github.com/couchcryptid/enviro-risk-engine/internal/registry"
)

// HistoryWriter persists scored readings for the query API and future
// training runs.
type HistoryWriter interface {
	Save(ctx context.Context, r domain.ScoredReading) error
}

// ReadingScorer implements Scorer: it sanitizes a raw reading, derives
// the risk indices, attaches the anomaly verdict when a detector is
// published, and persists the result to the history store.
type ReadingScorer struct {
	registry *registry.Registry
	history  HistoryWriter
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewScorer creates a ReadingScorer. Pass a nil history to skip
// persistence.
func NewScorer(reg *registry.Registry, history HistoryWriter, logger *slog.Logger, metrics *observability.Metrics) *ReadingScorer {
	return &ReadingScorer{
		registry: reg,
		history:  history,
		logger:   logger,
		metrics:  metrics,
	}
}

func (s *ReadingScorer) Score(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	reading, err := domain.ParseReading(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	cleaned, replaced := domain.SanitizeCount(reading)
	if replaced > 0 {
		s.metrics.SentinelReplacements.Add(float64(replaced))
	}

	summary, err := s.detect(cleaned)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	scored := domain.NewScoredReading(cleaned, summary)

	if s.history != nil {
		if err := s.history.Save(ctx, scored); err != nil {
			// Persistence trouble must not block the sink topic; the
			// next reprocessing run backfills the gap.
			s.logger.Warn("history save failed", "error", err, "date", scored.Date)
		}
	}

	return serialize(scored)
}

// detect runs the published detector against the cleaned reading. A
// missing detector degrades to indices-only output; a feature mismatch is
// a hard per-reading error since it means the reading cannot be scored
// against the trained feature space.
func (s *ReadingScorer) detect(cleaned domain.CleanedReading) (*domain.AnomalySummary, error) {
	inf, err := s.registry.Current()
	if err != nil {
		return nil, nil
	}

	summary, err := inf.Detect(cleaned.FieldMap())
	if err != nil {
		return nil, fmt.Errorf("detect anomaly: %w", err)
	}
	if summary.IsAnomaly {
		s.metrics.AnomaliesDetected.WithLabelValues(summary.Severity).Inc()
		s.logger.Info("anomalous reading",
			"date", cleaned.Date,
			"score", summary.Score,
			"severity", summary.Severity,
			"detector", inf.Artifact().Detector,
		)
	}
	return &summary, nil
}

// serialize marshals a scored reading into a sink-topic event keyed by
// its date.
func serialize(scored domain.ScoredReading) (domain.OutputEvent, error) {
	data, err := json.Marshal(scored)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("serialize scored reading: %w", err)
	}

	severity := ""
	if scored.Anomaly != nil && scored.Anomaly.IsAnomaly {
		severity = scored.Anomaly.Severity
	}

	return domain.OutputEvent{
		Key:   []byte(scored.Date.Format("2006-01-02")),
		Value: data,
		Headers: map[string]string{
			"schema_version": fmt.Sprintf("%d", scored.SchemaVersion),
			"severity":       severity,
		},
	}, nil
}

var _ Scorer = (*ReadingScorer)(nil)
