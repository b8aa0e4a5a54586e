package anomaly

import (
	"math"
	"sort"
)

// OneClassBoundary is a centroid-distance novelty detector. It fits the
// centroid of the scaled training data and a radius at the (1-nu)
// distance quantile, so at most a nu fraction of the training points fall
// outside the boundary.
type OneClassBoundary struct {
	Centroid []float64 `json:"centroid"`
	Radius   float64   `json:"radius"`
	Nu       float64   `json:"nu"`
}

// FitOneClassBoundary fits the boundary on the scaled matrix.
func FitOneClassBoundary(rows [][]float64, nu float64) *OneClassBoundary {
	if len(rows) == 0 {
		return &OneClassBoundary{Nu: nu}
	}

	cols := len(rows[0])
	centroid := make([]float64, cols)
	for _, row := range rows {
		for j, v := range row {
			centroid[j] += v
		}
	}
	for j := range centroid {
		centroid[j] /= float64(len(rows))
	}

	dists := make([]float64, len(rows))
	for i, row := range rows {
		dists[i] = euclidean(row, centroid)
	}
	sort.Float64s(dists)

	return &OneClassBoundary{
		Centroid: centroid,
		Radius:   quantile(dists, 1-nu),
		Nu:       nu,
	}
}

// Decision is positive inside the boundary, negative outside, with
// magnitude equal to the distance from the boundary surface.
func (b *OneClassBoundary) Decision(row []float64) float64 {
	return b.Radius - euclidean(row, b.Centroid)
}

// Predict reports whether a row falls outside the fitted boundary.
func (b *OneClassBoundary) Predict(row []float64) bool {
	return b.Decision(row) < 0
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
