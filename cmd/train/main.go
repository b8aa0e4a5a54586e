// Command train fits the anomaly-detection ensemble on the stored
// readings history and writes the winning detector as a JSON artifact.
// Run it on whatever cadence the data warrants; the server picks the new
// artifact up at its next start, so there is no in-process scheduler.
//
// Usage:
//
//	go run ./cmd/train -db readings.db -out detector.json
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/enviro-risk-engine/internal/anomaly"
	"github.com/couchcryptid/enviro-risk-engine/internal/observability"
	"github.com/couchcryptid/enviro-risk-engine/internal/store"
)

func main() {
	dbPath := flag.String("db", "readings.db", "path to the readings history database")
	outPath := flag.String("out", "detector.json", "output path for the detector artifact")
	contamination := flag.Float64("contamination", 0.1, "expected anomaly fraction for threshold calibration")
	nu := flag.Float64("nu", 0, "one-class boundary training-outlier bound, 0 follows -contamination")
	seed := flag.Int64("seed", 42, "seed for anomaly injection and forest construction")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := observability.NewLogger(*logLevel, "text")

	if err := run(*dbPath, *outPath, *contamination, *nu, *seed, logger); err != nil {
		logger.Error("training failed", "error", err)
		os.Exit(1)
	}
}

func run(dbPath, outPath string, contamination, nu float64, seed int64, logger *slog.Logger) error {
	ctx := context.Background()

	if nu <= 0 {
		nu = contamination
	}

	history, err := store.Open(dbPath)
	if err != nil {
		return err
	}

	records, err := history.FieldMaps(ctx)
	if err != nil {
		return err
	}
	logger.Info("loaded training history", "records", len(records), "db", dbPath)

	cfg := anomaly.TrainConfig{Contamination: contamination, Nu: nu, Seed: seed}
	artifact, err := anomaly.TrainEnsemble(ctx, records, cfg, logger)
	if err != nil {
		return err
	}

	if err := artifact.Save(outPath); err != nil {
		return err
	}
	logger.Info("artifact written", "path", outPath, "run_id", artifact.RunID)

	fmt.Printf("\nDetector: %s (run %s)\n", artifact.Detector, artifact.RunID)
	fmt.Printf("Features: %d over %d rows\n", len(artifact.Features), artifact.TrainingRows)
	for _, name := range []string{anomaly.DetectorIsolationForest, anomaly.DetectorOneClass, anomaly.DetectorDBSCAN} {
		m := artifact.Evaluation[name]
		marker := " "
		if name == artifact.Detector {
			marker = "*"
		}
		fmt.Printf("%s %-18s accuracy=%.3f precision=%.3f recall=%.3f f1=%.3f\n",
			marker, name, m.Accuracy, m.Precision, m.Recall, m.F1)
	}
	return nil
}
