package anomaly

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFeatureMatrix(t *testing.T) {
	records := []map[string]float64{
		{"T2M": 28, "RH2M": 70, "aod_550nm": 0.4},
		{"T2M": 30, "RH2M": 75, "aod_550nm": 0.5},
		{"T2M": 32, "RH2M": 80, "aod_550nm": math.NaN()},
		{"T2M": 29, "RH2M": 72, "aod_550nm": 0.6},
	}

	m, err := BuildFeatureMatrix(records)
	require.NoError(t, err)

	// Columns are sorted for a stable artifact layout.
	assert.Equal(t, []string{"RH2M", "T2M", "aod_550nm"}, m.Columns)
	require.Len(t, m.Rows, 4)

	// The NaN gap is filled with the median of the present values.
	assert.Equal(t, 0.5, m.Rows[2][2])

	for i, row := range m.Rows {
		for j, v := range row {
			assert.Truef(t, isFinite(v), "row %d col %d not finite", i, j)
		}
	}
}

func TestBuildFeatureMatrix_DropsSparseColumns(t *testing.T) {
	// "ndwi" is present in only 1 of 4 records, well under the 70%
	// coverage floor.
	records := []map[string]float64{
		{"T2M": 28, "ndwi": 0.2},
		{"T2M": 30},
		{"T2M": 32},
		{"T2M": 29},
	}

	m, err := BuildFeatureMatrix(records)
	require.NoError(t, err)

	assert.Equal(t, []string{"T2M"}, m.Columns)
}

func TestBuildFeatureMatrix_Errors(t *testing.T) {
	var integrityErr *DataIntegrityError

	_, err := BuildFeatureMatrix(nil)
	assert.ErrorAs(t, err, &integrityErr)

	_, err = BuildFeatureMatrix([]map[string]float64{
		{"x": math.NaN()},
		{"x": math.Inf(1)},
	})
	assert.ErrorAs(t, err, &integrityErr)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 3.0, median([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 2, 3}))
	assert.True(t, math.IsNaN(median(nil)))
}
