package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/enviro-risk-engine/internal/adapter/rest"
	"github.com/couchcryptid/enviro-risk-engine/internal/anomaly"
	"github.com/couchcryptid/enviro-risk-engine/internal/domain"
	"github.com/couchcryptid/enviro-risk-engine/internal/registry"
	"github.com/couchcryptid/enviro-risk-engine/internal/store"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededStore(t *testing.T, days int) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)

	for d := 1; d <= days; d++ {
		c := domain.Sanitize(domain.Reading{
			Date:          time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC),
			SchemaVersion: domain.SchemaVersion,
			Values: map[string]float64{
				domain.FieldAirTempC:    30 + float64(d)*0.1,
				domain.FieldHumidityPct: 70,
				domain.FieldAOD550:      0.5,
			},
		})
		require.NoError(t, s.Save(context.Background(), domain.NewScoredReading(c, nil)))
	}
	return s
}

func trainedRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	rng := rand.New(rand.NewSource(17))
	records := make([]map[string]float64, 150)
	for i := range records {
		records[i] = map[string]float64{
			"T2M":       28 + rng.NormFloat64(),
			"RH2M":      75 + 3*rng.NormFloat64(),
			"aod_550nm": 0.5 + 0.05*rng.NormFloat64(),
		}
	}
	artifact, err := anomaly.TrainEnsemble(context.Background(), records, anomaly.DefaultTrainConfig(), testLogger())
	require.NoError(t, err)

	reg := registry.New(testLogger())
	require.NoError(t, reg.Publish(artifact))
	return reg
}

func newTestServer(t *testing.T, readyErr error, history rest.History, reg *registry.Registry) *rest.Server {
	t.Helper()
	if reg == nil {
		reg = registry.New(testLogger())
	}
	return rest.NewServer(":0", &mockReadiness{err: readyErr}, history, reg, []string{"*"}, testLogger())
}

func do(t *testing.T, srv *rest.Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(t, nil, seededStore(t, 1), nil)

	rec := do(t, srv, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReflectsReadiness(t *testing.T) {
	srv := newTestServer(t, nil, seededStore(t, 1), nil)
	rec := do(t, srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	srv = newTestServer(t, fmt.Errorf("not ready yet"), seededStore(t, 1), nil)
	rec = do(t, srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, seededStore(t, 1), nil)

	rec := do(t, srv, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestLatestIndices(t *testing.T) {
	srv := newTestServer(t, nil, seededStore(t, 5), nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/indices/latest", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var scored domain.ScoredReading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scored))
	assert.Equal(t, time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), scored.Date)
	assert.NotZero(t, scored.Indices.HeatIndexC)
}

func TestLatestIndices_EmptyHistory(t *testing.T) {
	srv := newTestServer(t, nil, seededStore(t, 0), nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/indices/latest", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndicesRange(t *testing.T) {
	srv := newTestServer(t, nil, seededStore(t, 10), nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/indices?from=2024-06-03&to=2024-06-06", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count   int                     `json:"count"`
		Indices []domain.DerivedIndices `json:"indices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Count)
}

func TestIndicesRange_BadDate(t *testing.T) {
	srv := newTestServer(t, nil, seededStore(t, 2), nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/indices?from=yesterday", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRisk(t *testing.T) {
	srv := newTestServer(t, nil, seededStore(t, 3), nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/risk", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Risks map[string]domain.RiskLevel `json:"risks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Risks, 3)
	assert.NotEmpty(t, body.Risks[domain.MetricAQI].Label)
	assert.NotEmpty(t, body.Risks[domain.MetricHeatIndex].Label)
}

func TestTrends_UnknownMetric(t *testing.T) {
	srv := newTestServer(t, nil, seededStore(t, 3), nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/trends?metric=ozone", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuality(t *testing.T) {
	srv := newTestServer(t, nil, seededStore(t, 3), nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/quality", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.QualityReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 3, report.TotalRecords)
	assert.Greater(t, report.CompletenessPct, 0.0)
}

func TestModel_NoDetector(t *testing.T) {
	srv := newTestServer(t, nil, seededStore(t, 1), nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/anomalies/model", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModel_WithDetector(t *testing.T) {
	srv := newTestServer(t, nil, seededStore(t, 1), trainedRegistry(t))

	rec := do(t, srv, http.MethodGet, "/api/v1/anomalies/model", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Detector string   `json:"detector"`
		Features []string `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Detector)
	assert.Equal(t, []string{"RH2M", "T2M", "aod_550nm"}, body.Features)
}

func TestDetect(t *testing.T) {
	srv := newTestServer(t, nil, seededStore(t, 1), trainedRegistry(t))

	payload, err := json.Marshal(map[string]any{
		"readings": []map[string]float64{
			{"T2M": 28.1, "RH2M": 74.8, "aod_550nm": 0.51},
			{"T2M": 47.0, "RH2M": 11.0, "aod_550nm": 4.2},
		},
	})
	require.NoError(t, err)

	rec := do(t, srv, http.MethodPost, "/api/v1/anomalies/detect", payload)

	require.Equal(t, http.StatusOK, rec.Code)

	var report anomaly.BatchReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Count)
	require.Len(t, report.Results, 2)
	assert.True(t, report.Results[1].IsAnomaly)
}

func TestDetect_NoDetector(t *testing.T) {
	srv := newTestServer(t, nil, seededStore(t, 1), nil)

	rec := do(t, srv, http.MethodPost, "/api/v1/anomalies/detect",
		[]byte(`{"readings":[{"T2M":28}]}`))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDetect_FeatureMismatch(t *testing.T) {
	srv := newTestServer(t, nil, seededStore(t, 1), trainedRegistry(t))

	rec := do(t, srv, http.MethodPost, "/api/v1/anomalies/detect",
		[]byte(`{"readings":[{"T2M":28}]}`))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "RH2M")
}

func TestDetect_EmptyBody(t *testing.T) {
	srv := newTestServer(t, nil, seededStore(t, 1), trainedRegistry(t))

	rec := do(t, srv, http.MethodPost, "/api/v1/anomalies/detect", []byte(`{}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
