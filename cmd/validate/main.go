// Command validate performs end-to-end integrity checks over a readings
// history database and, optionally, a detector artifact. It verifies that
// stored payloads decode, that derived indices recompute identically from
// the stored cleaned values, that risk labels match their indices, and
// that the artifact's feature space is covered by the history.
//
// Usage:
//
//	go run ./cmd/validate -db readings.db -artifact detector.json
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/enviro-risk-engine/internal/anomaly"
	"github.com/couchcryptid/enviro-risk-engine/internal/domain"
	"github.com/couchcryptid/enviro-risk-engine/internal/store"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dbPath := flag.String("db", "readings.db", "path to the readings history database")
	artifactPath := flag.String("artifact", "", "optional path to a detector artifact to validate against the history")
	flag.Parse()

	if code := run(*dbPath, *artifactPath); code != 0 {
		os.Exit(code)
	}
}

func run(dbPath, artifactPath string) int {
	fmt.Println("=== Readings History Integrity Validation ===")
	fmt.Println()

	history, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open history: %v\n", err)
		return 1
	}

	readings, err := history.All(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load readings: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateHistoryShape(readings),
		validateIndexRecompute(readings),
		validateRiskLabels(readings),
	}
	if artifactPath != "" {
		phases = append(phases, validateArtifact(artifactPath, readings))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d days\n", len(readings))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: History Shape ──
// Dates unique and ascending, schema versions known, cleaned values finite.

func validateHistoryShape(readings []domain.ScoredReading) *phase {
	p := &phase{name: "Phase 1: History Shape"}

	seen := map[time.Time]bool{}
	var prev time.Time
	for i, r := range readings {
		if r.Date.IsZero() {
			p.errorf("record %d: zero date", i)
			continue
		}
		if seen[r.Date] {
			p.errorf("record %d: duplicate date %s", i, r.Date.Format("2006-01-02"))
		}
		seen[r.Date] = true
		if i > 0 && !r.Date.After(prev) {
			p.errorf("record %d: date %s not after previous %s", i, r.Date.Format("2006-01-02"), prev.Format("2006-01-02"))
		}
		prev = r.Date

		if r.SchemaVersion != domain.SchemaVersion {
			p.errorf("record %d: schema version %d, want %d", i, r.SchemaVersion, domain.SchemaVersion)
		}

		for field, v := range r.Cleaned.FieldMap() {
			if domain.IsSentinel(v) {
				p.errorf("record %d: field %s holds sentinel-like value %v after sanitization", i, field, v)
			}
		}
	}
	return p
}

// ── Phase 2: Index Recompute ──
// Derived indices are pure functions of the cleaned reading; stored
// values must match a fresh computation exactly.

func validateIndexRecompute(readings []domain.ScoredReading) *phase {
	p := &phase{name: "Phase 2: Index Recompute (determinism)"}

	for i, r := range readings {
		want := domain.ComputeDerivedIndices(r.Cleaned)
		checks := []struct {
			name       string
			got, fresh float64
		}{
			{"heat_index_c", r.Indices.HeatIndexC, want.HeatIndexC},
			{"pm25_estimated", r.Indices.PM25, want.PM25},
			{"aqi_estimated", r.Indices.AQI, want.AQI},
			{"flood_risk_score", r.Indices.FloodRisk, want.FloodRisk},
			{"environmental_stress_index", r.Indices.EnvironmentalStress, want.EnvironmentalStress},
			{"air_quality_composite", r.Indices.AirQualityComposite, want.AirQualityComposite},
			{"water_stress_index", r.Indices.WaterStressIndex, want.WaterStressIndex},
			{"urban_environmental_load", r.Indices.UrbanEnvironmentalLoad, want.UrbanEnvironmentalLoad},
		}
		for _, c := range checks {
			if !floatEq(c.got, c.fresh) {
				p.errorf("record %d (%s): %s stored=%g recomputed=%g",
					i, r.Date.Format("2006-01-02"), c.name, c.got, c.fresh)
			}
		}
	}
	return p
}

// ── Phase 3: Risk Labels ──
// Stored ordinal labels must match a fresh classification of the indices.

func validateRiskLabels(readings []domain.ScoredReading) *phase {
	p := &phase{name: "Phase 3: Risk Labels"}

	for i, r := range readings {
		want := domain.ClassifyAll(r.Indices)
		if len(r.Risks) != len(want) {
			p.errorf("record %d: %d risk entries, want %d", i, len(r.Risks), len(want))
			continue
		}
		for metric, level := range want {
			got, ok := r.Risks[metric]
			if !ok {
				p.errorf("record %d: missing risk entry for %s", i, metric)
				continue
			}
			if got != level {
				p.errorf("record %d (%s): %s stored=%q recomputed=%q",
					i, r.Date.Format("2006-01-02"), metric, got.Label, level.Label)
			}
		}
	}
	return p
}

// ── Phase 4: Artifact Compatibility ──
// The artifact must validate and every trained feature must appear in the
// history's field maps.

func validateArtifact(path string, readings []domain.ScoredReading) *phase {
	p := &phase{name: "Phase 4: Artifact Compatibility"}

	artifact, err := anomaly.LoadArtifact(path)
	if err != nil {
		p.errorf("load artifact: %v", err)
		return p
	}

	if len(readings) == 0 {
		p.errorf("no readings to check feature coverage against")
		return p
	}

	fields := readings[len(readings)-1].Cleaned.FieldMap()
	for _, f := range artifact.Features {
		if _, ok := fields[f]; !ok {
			p.errorf("trained feature %q not present in history field maps", f)
		}
	}

	inf := anomaly.NewInferencer(artifact)
	if _, err := inf.Detect(fields); err != nil {
		p.errorf("detector cannot score the latest reading: %v", err)
	}
	return p
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
