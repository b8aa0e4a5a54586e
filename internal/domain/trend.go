package domain

import "time"

// Growth trend buckets for AnalyzeGrowth.
const (
	TrendRapidGrowth      = "rapid_growth"
	TrendModerateGrowth   = "moderate_growth"
	TrendStable           = "stable"
	TrendModerateDecline  = "moderate_decline"
	TrendRapidDecline     = "rapid_decline"
	TrendInsufficientData = "insufficient_data"
)

// GrowthAnalysis summarizes the direction of a metric over a window.
type GrowthAnalysis struct {
	Trend         string  `json:"trend"`
	GrowthRatePct float64 `json:"growth_rate_pct"`
	Average       float64 `json:"average"`
	DataPoints    int     `json:"data_points"`
}

// AnalyzeGrowth computes the relative change from the first to the last
// value of a series and buckets it into a trend label. A zero or negative
// baseline yields a growth rate of 0 rather than a division error; with
// fewer than two points the trend is "insufficient_data".
func AnalyzeGrowth(series []float64) GrowthAnalysis {
	if len(series) < 2 {
		return GrowthAnalysis{Trend: TrendInsufficientData, DataPoints: len(series)}
	}

	first, last := series[0], series[len(series)-1]
	rate := 0.0
	if first > 0 {
		rate = (last - first) / first * 100
	}

	sum := 0.0
	for _, v := range series {
		sum += v
	}

	var trend string
	switch {
	case rate > 5:
		trend = TrendRapidGrowth
	case rate > 1:
		trend = TrendModerateGrowth
	case rate > -1:
		trend = TrendStable
	case rate > -5:
		trend = TrendModerateDecline
	default:
		trend = TrendRapidDecline
	}

	return GrowthAnalysis{
		Trend:         trend,
		GrowthRatePct: rate,
		Average:       sum / float64(len(series)),
		DataPoints:    len(series),
	}
}

// Freshness buckets for DataQuality.
const (
	FreshnessCurrent  = "current"
	FreshnessRecent   = "recent"
	FreshnessWeekly   = "weekly"
	FreshnessOutdated = "outdated"
	FreshnessNoData   = "no_data"
)

// QualityReport describes how complete and how fresh a historical series is.
type QualityReport struct {
	QualityScore    float64 `json:"quality_score"`
	CompletenessPct float64 `json:"completeness_pct"`
	Freshness       string  `json:"freshness"`
	TotalRecords    int     `json:"total_records"`
	DaysOld         int     `json:"days_old"`
}

// DataQuality scores a historical series from its cell completeness and
// the age of its newest record. The score starts at the completeness
// percentage and loses two points per day of staleness, floored at zero.
func DataQuality(totalRecords, totalCells, populatedCells int, latest time.Time) QualityReport {
	if totalRecords == 0 || totalCells == 0 {
		return QualityReport{Freshness: FreshnessNoData}
	}

	completeness := float64(populatedCells) / float64(totalCells) * 100
	daysOld := int(clock.Now().Sub(latest).Hours() / 24)
	if daysOld < 0 {
		daysOld = 0
	}

	var freshness string
	switch {
	case daysOld == 0:
		freshness = FreshnessCurrent
	case daysOld <= 1:
		freshness = FreshnessRecent
	case daysOld <= 7:
		freshness = FreshnessWeekly
	default:
		freshness = FreshnessOutdated
	}

	score := completeness - float64(daysOld)*2
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return QualityReport{
		QualityScore:    score,
		CompletenessPct: completeness,
		Freshness:       freshness,
		TotalRecords:    totalRecords,
		DaysOld:         daysOld,
	}
}
