package anomaly

import (
	"math"
	"math/rand"
)

// InjectionFraction is the share of training rows that receive synthetic
// anomalies, giving the evaluation step labelled ground truth.
const InjectionFraction = 0.10

// InjectAnomalies copies the matrix and perturbs a deterministic subset of
// rows: each selected row gets 1 to 3 random columns pushed 3 to 5 sample
// standard deviations away from the column mean, to a random side. It
// returns the perturbed rows and a parallel label slice where 1 marks an
// injected row. The same seed always yields the same injection.
func InjectAnomalies(m FeatureMatrix, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))

	mean, std := columnStats(m.Rows)

	rows := make([][]float64, len(m.Rows))
	for i, row := range m.Rows {
		rows[i] = append([]float64(nil), row...)
	}
	labels := make([]int, len(rows))

	count := int(float64(len(rows)) * InjectionFraction)
	if count == 0 && len(rows) > 0 {
		count = 1
	}

	for _, i := range rng.Perm(len(rows))[:count] {
		labels[i] = 1
		nCols := 1 + rng.Intn(3)
		for _, j := range rng.Perm(len(m.Columns))[:min(nCols, len(m.Columns))] {
			offset := (3 + 2*rng.Float64()) * std[j]
			if rng.Float64() < 0.5 {
				offset = -offset
			}
			rows[i][j] = mean[j] + offset
		}
	}

	return rows, labels
}

// columnStats returns the per-column mean and sample standard deviation
// (n-1 denominator) of a matrix.
func columnStats(rows [][]float64) (mean, std []float64) {
	if len(rows) == 0 {
		return nil, nil
	}
	cols := len(rows[0])
	mean = make([]float64, cols)
	std = make([]float64, cols)

	for _, row := range rows {
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(rows))
	for j := range mean {
		mean[j] /= n
	}

	if len(rows) < 2 {
		return mean, std
	}
	for _, row := range rows {
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / (n - 1))
	}
	return mean, std
}
