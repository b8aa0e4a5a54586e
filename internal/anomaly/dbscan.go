package anomaly

// DBSCAN parameters matching the training defaults: points within eps of
// at least minPts neighbours (self included) form cluster cores, and a
// point reachable from no core is noise.
const (
	dbscanEps    = 0.5
	dbscanMinPts = 5
)

// DBSCANDetector treats density-based noise as anomalous. Only the core
// points survive fitting: at inference a row within Eps of any core point
// is considered part of a cluster, everything else is noise. DBSCAN has
// no decision function, so scores fall back to a fixed confidence.
type DBSCANDetector struct {
	Cores [][]float64 `json:"cores"`
	Eps   float64     `json:"eps"`
}

// FitDBSCAN runs a density scan over the scaled matrix and returns the
// detector together with per-row noise predictions for the training set
// (true marks noise).
func FitDBSCAN(rows [][]float64) (*DBSCANDetector, []bool) {
	d := &DBSCANDetector{Eps: dbscanEps}
	noise := make([]bool, len(rows))

	core := make([]bool, len(rows))
	for i, row := range rows {
		neighbours := 0
		for _, other := range rows {
			if euclidean(row, other) <= dbscanEps {
				neighbours++
			}
		}
		if neighbours >= dbscanMinPts {
			core[i] = true
			d.Cores = append(d.Cores, row)
		}
	}

	for i, row := range rows {
		if core[i] {
			continue
		}
		noise[i] = true
		for _, c := range d.Cores {
			if euclidean(row, c) <= dbscanEps {
				noise[i] = false
				break
			}
		}
	}

	return d, noise
}

// Predict reports whether a row is noise relative to the fitted clusters.
func (d *DBSCANDetector) Predict(row []float64) bool {
	for _, c := range d.Cores {
		if euclidean(row, c) <= d.Eps {
			return false
		}
	}
	return true
}
