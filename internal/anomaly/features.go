package anomaly

import (
	"math"
	"sort"
)

// MinCoverage is the fraction of rows that must carry a finite value for a
// column to be trained on. Sparser columns come from satellite products
// with large gaps and would dominate the median fill.
const MinCoverage = 0.7

// FeatureMatrix is a dense numeric training matrix. Columns is the ordered
// list of field names; Rows[i][j] is the value of Columns[j] in record i.
// The matrix is fully finite: gaps are median-filled and any remaining
// non-finite value is zeroed.
type FeatureMatrix struct {
	Columns []string
	Rows    [][]float64
}

// BuildFeatureMatrix assembles a training matrix from raw field maps.
// A field qualifies as a feature when at least MinCoverage of the records
// hold a finite value for it. Missing values are filled with the column
// median computed over the present values.
func BuildFeatureMatrix(records []map[string]float64) (FeatureMatrix, error) {
	if len(records) == 0 {
		return FeatureMatrix{}, &DataIntegrityError{Reason: "no records"}
	}

	counts := make(map[string]int)
	for _, rec := range records {
		for field, v := range rec {
			if isFinite(v) {
				counts[field]++
			}
		}
	}

	var columns []string
	need := int(math.Ceil(MinCoverage * float64(len(records))))
	for field, n := range counts {
		if n >= need {
			columns = append(columns, field)
		}
	}
	if len(columns) == 0 {
		return FeatureMatrix{}, &DataIntegrityError{Reason: "no column meets the coverage threshold"}
	}
	sort.Strings(columns)

	medians := make([]float64, len(columns))
	for j, field := range columns {
		var present []float64
		for _, rec := range records {
			if v, ok := rec[field]; ok && isFinite(v) {
				present = append(present, v)
			}
		}
		medians[j] = median(present)
	}

	rows := make([][]float64, len(records))
	for i, rec := range records {
		row := make([]float64, len(columns))
		for j, field := range columns {
			v, ok := rec[field]
			if !ok || !isFinite(v) {
				v = medians[j]
			}
			if !isFinite(v) {
				v = 0
			}
			row[j] = v
		}
		rows[i] = row
	}

	return FeatureMatrix{Columns: columns, Rows: rows}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
