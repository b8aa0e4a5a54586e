// Package registry holds the currently published detector artifact and
// hands out inferencers built from it. Publication is atomic: scoring that
// races a retrain sees either the old detector or the new one, never a
// mix.
package registry

import (
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/enviro-risk-engine/internal/anomaly"
)

// Registry is a process-wide holder for the active detector.
type Registry struct {
	current atomic.Pointer[anomaly.Inferencer]
	logger  *slog.Logger
}

// New creates an empty registry. Current returns ErrModelUnavailable
// until the first Publish.
func New(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Publish validates an artifact and swaps it in as the active detector.
func (r *Registry) Publish(a *anomaly.DetectorArtifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	r.current.Store(anomaly.NewInferencer(a))
	r.logger.Info("detector published",
		"run_id", a.RunID,
		"detector", a.Detector,
		"features", len(a.Features),
		"f1", a.Evaluation[a.Detector].F1,
	)
	return nil
}

// Current returns the active inferencer, or ErrModelUnavailable when no
// artifact has been published yet.
func (r *Registry) Current() (*anomaly.Inferencer, error) {
	inf := r.current.Load()
	if inf == nil {
		return nil, anomaly.ErrModelUnavailable
	}
	return inf, nil
}

// LoadFromFile reads an artifact from disk and publishes it. Used at
// startup and on operator-triggered reloads after an external retrain.
func (r *Registry) LoadFromFile(path string) error {
	a, err := anomaly.LoadArtifact(path)
	if err != nil {
		return err
	}
	return r.Publish(a)
}
