package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/enviro-risk-engine/internal/anomaly"
	"github.com/couchcryptid/enviro-risk-engine/internal/domain"
	"github.com/couchcryptid/enviro-risk-engine/internal/observability"
	"github.com/couchcryptid/enviro-risk-engine/internal/pipeline"
	"github.com/couchcryptid/enviro-risk-engine/internal/registry"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
	err     error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockScorer struct {
	err error
}

func (m *mockScorer) Score(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if m.err != nil {
		return domain.OutputEvent{}, m.err
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []domain.OutputEvent
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = append(m.loaded, events...)
	return nil
}

func (m *mockLoader) all() []domain.OutputEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OutputEvent(nil), m.loaded...)
}

type mockHistory struct {
	mu    sync.Mutex
	saved []domain.ScoredReading
	err   error
}

func (m *mockHistory) Save(_ context.Context, r domain.ScoredReading) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, r)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

// --- pipeline tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := makeRawEvent(t, "2024-06-15")

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	scr := &mockScorer{}
	ldr := &mockLoader{}

	p := pipeline.New(ext, scr, ldr, testLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))

	loaded := ldr.all()
	require.Len(t, loaded, 1)
	assert.Equal(t, raw.Value, loaded[0].Value)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no batches, will block
	p := pipeline.New(ext, &mockScorer{}, &mockLoader{}, testLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ScoreErrorSkipsReading(t *testing.T) {
	committed := false
	raw := makeRawEvent(t, "2024-06-15")
	raw.Commit = func(_ context.Context) error {
		committed = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	scr := &mockScorer{err: errors.New("bad reading")}
	ldr := &mockLoader{}

	p := pipeline.New(ext, scr, ldr, testLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.all())
	// Unscorable readings are still committed so they do not wedge the
	// consumer group.
	assert.True(t, committed)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	committed := false
	raw := makeRawEvent(t, "2024-06-15")
	raw.Topic = "raw-env-readings"
	raw.Commit = func(_ context.Context) error {
		committed = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	p := pipeline.New(ext, &mockScorer{}, &mockLoader{}, testLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.True(t, committed)
}

// --- scorer tests ---

func emptyRegistry() *registry.Registry {
	return registry.New(testLogger())
}

func trainedRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	rng := rand.New(rand.NewSource(21))
	records := make([]map[string]float64, 150)
	for i := range records {
		c := domain.Sanitize(domain.Reading{
			Date:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			SchemaVersion: domain.SchemaVersion,
			Values: map[string]float64{
				domain.FieldAirTempC:    28 + rng.NormFloat64(),
				domain.FieldHumidityPct: 75 + 3*rng.NormFloat64(),
				domain.FieldAOD550:      0.5 + 0.05*rng.NormFloat64(),
			},
		})
		records[i] = c.FieldMap()
	}

	artifact, err := anomaly.TrainEnsemble(context.Background(), records, anomaly.DefaultTrainConfig(), testLogger())
	require.NoError(t, err)

	reg := registry.New(testLogger())
	require.NoError(t, reg.Publish(artifact))
	return reg
}

func TestScorer_NoDetectorDegradesToIndicesOnly(t *testing.T) {
	history := &mockHistory{}
	s := pipeline.NewScorer(emptyRegistry(), history, testLogger(), newTestMetrics())

	out, err := s.Score(context.Background(), makeRawEvent(t, "2024-06-15"))
	require.NoError(t, err)

	var scored domain.ScoredReading
	require.NoError(t, json.Unmarshal(out.Value, &scored))

	assert.Nil(t, scored.Anomaly)
	assert.NotZero(t, scored.Indices.HeatIndexC)
	assert.NotEmpty(t, scored.Risks)
	assert.Equal(t, []byte("2024-06-15"), out.Key)
	assert.Len(t, history.saved, 1)
}

func TestScorer_WithDetectorAttachesAnomalyVerdict(t *testing.T) {
	s := pipeline.NewScorer(trainedRegistry(t), nil, testLogger(), newTestMetrics())

	out, err := s.Score(context.Background(), makeRawEvent(t, "2024-06-15"))
	require.NoError(t, err)

	var scored domain.ScoredReading
	require.NoError(t, json.Unmarshal(out.Value, &scored))

	require.NotNil(t, scored.Anomaly)
	assert.NotEmpty(t, scored.Anomaly.Severity)
}

func TestScorer_RoundTripPreservesCleanedReading(t *testing.T) {
	s := pipeline.NewScorer(emptyRegistry(), nil, testLogger(), newTestMetrics())

	out, err := s.Score(context.Background(), makeRawEvent(t, "2024-06-15"))
	require.NoError(t, err)

	var scored domain.ScoredReading
	require.NoError(t, json.Unmarshal(out.Value, &scored))

	want := domain.Sanitize(domain.Reading{
		Date:          time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		SchemaVersion: domain.SchemaVersion,
		Values:        rawValues(),
	})
	if diff := cmp.Diff(want, scored.Cleaned); diff != "" {
		t.Fatalf("cleaned reading mismatch (-want +got):\n%s", diff)
	}
}

func TestScorer_InvalidPayloadFails(t *testing.T) {
	s := pipeline.NewScorer(emptyRegistry(), nil, testLogger(), newTestMetrics())

	_, err := s.Score(context.Background(), domain.RawEvent{Value: []byte("not json")})
	assert.Error(t, err)
}

func TestScorer_HistoryFailureDoesNotBlockOutput(t *testing.T) {
	history := &mockHistory{err: errors.New("disk full")}
	s := pipeline.NewScorer(emptyRegistry(), history, testLogger(), newTestMetrics())

	_, err := s.Score(context.Background(), makeRawEvent(t, "2024-06-15"))
	assert.NoError(t, err)
}

// --- helpers ---

func rawValues() map[string]float64 {
	return map[string]float64{
		domain.FieldAirTempC:    30,
		domain.FieldHumidityPct: 70,
		domain.FieldAOD550:      0.5,
	}
}

func makeRawEvent(t *testing.T, date string) domain.RawEvent {
	t.Helper()
	payload := map[string]any{"date": date}
	for k, v := range rawValues() {
		payload[k] = v
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return domain.RawEvent{
		Key:   []byte(date),
		Value: data,
	}
}
