package anomaly

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArtifactVersion identifies the serialized artifact layout. Readers
// reject artifacts with a different version instead of guessing.
const ArtifactVersion = 1

// Detector names, in selection-priority order.
const (
	DetectorIsolationForest = "isolation_forest"
	DetectorOneClass        = "one_class"
	DetectorDBSCAN          = "dbscan"
)

// DetectorArtifact is the fully serialized result of one training run:
// the winning detector's parameters plus everything inference needs to
// reproduce the training-time feature space. Exactly one of Forest,
// Boundary, and Cluster is populated, matching Detector.
type DetectorArtifact struct {
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`

	Detector string         `json:"detector"`
	Features []string       `json:"features"`
	Scaler   StandardScaler `json:"scaler"`

	Forest   *IsolationForest  `json:"isolation_forest,omitempty"`
	Boundary *OneClassBoundary `json:"one_class,omitempty"`
	Cluster  *DBSCANDetector   `json:"dbscan,omitempty"`

	// Evaluation scores of every candidate against the injected labels,
	// keyed by detector name.
	Evaluation map[string]Metrics `json:"evaluation"`

	TrainingRows  int     `json:"training_rows"`
	Seed          int64   `json:"seed"`
	Contamination float64 `json:"contamination"`
	Nu            float64 `json:"nu"`
}

// Validate checks that an artifact is usable for inference.
func (a *DetectorArtifact) Validate() error {
	if a.Version != ArtifactVersion {
		return fmt.Errorf("artifact version %d, want %d", a.Version, ArtifactVersion)
	}
	if len(a.Features) == 0 {
		return fmt.Errorf("artifact has no feature list")
	}
	if len(a.Scaler.Mean) != len(a.Features) || len(a.Scaler.Std) != len(a.Features) {
		return fmt.Errorf("scaler dimensions do not match feature list")
	}
	switch a.Detector {
	case DetectorIsolationForest:
		if a.Forest == nil {
			return fmt.Errorf("detector %q has no forest payload", a.Detector)
		}
	case DetectorOneClass:
		if a.Boundary == nil {
			return fmt.Errorf("detector %q has no boundary payload", a.Detector)
		}
	case DetectorDBSCAN:
		if a.Cluster == nil {
			return fmt.Errorf("detector %q has no cluster payload", a.Detector)
		}
	default:
		return fmt.Errorf("unknown detector %q", a.Detector)
	}
	return nil
}

// Save writes the artifact as JSON via a temp file and rename, so a
// concurrent reader never sees a half-written artifact.
func (a *DetectorArtifact) Save(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".artifact-*.json")
	if err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// LoadArtifact reads and validates an artifact from disk.
func LoadArtifact(path string) (*DetectorArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	var a DetectorArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("invalid artifact %s: %w", path, err)
	}
	return &a, nil
}
