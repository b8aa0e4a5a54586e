package domain

import (
	"math"
	"time"
)

// Rothfusz regression coefficients for the NWS heat index (Fahrenheit).
var rothfusz = [9]float64{
	-42.379, 2.04901523, 10.14333127, -0.22475541,
	-6.83783e-3, -5.481717e-2, 1.22874e-3, 8.5282e-4, -1.99e-6,
}

// CPCB PM2.5 breakpoints (24-hour average, µg/m³) mapped to Indian AQI
// bands. Each row is (pm25 low, pm25 high, aqi low, aqi high).
var aqiBreakpoints = [6][4]float64{
	{0, 30, 0, 50},      // Good
	{31, 60, 51, 100},   // Satisfactory
	{61, 90, 101, 200},  // Moderate
	{91, 120, 201, 300}, // Poor
	{121, 250, 301, 400}, // Very Poor
	{251, 500, 401, 500}, // Severe
}

// DerivedIndices is the per-date set of standardized risk metrics computed
// from one cleaned reading. Every value is a pure function of the input:
// recomputing from the same CleanedReading yields bit-identical output.
type DerivedIndices struct {
	Date time.Time `json:"date"`

	HeatIndexC float64 `json:"heat_index_c"`
	PM25       float64 `json:"pm25_estimated"`
	AQI        float64 `json:"aqi_estimated"`
	FloodRisk  float64 `json:"flood_risk_score"`

	EnvironmentalStress    float64 `json:"environmental_stress_index"`
	AirQualityComposite    float64 `json:"air_quality_composite"`
	WaterStressIndex       float64 `json:"water_stress_index"`
	UrbanEnvironmentalLoad float64 `json:"urban_environmental_load"`
}

// HeatIndexF computes the NWS heat index in Fahrenheit from a Fahrenheit
// temperature and relative humidity percentage. Below the 80°F regime the
// simplified Steadman average applies; above it the full Rothfusz
// regression takes over.
func HeatIndexF(tempF, humidityPct float64) float64 {
	simple := 0.5 * (tempF + 61.0 + (tempF-68.0)*1.2 + humidityPct*0.094)
	if simple < 80 {
		return simple
	}

	t, r := tempF, humidityPct
	c := rothfusz
	return c[0] + c[1]*t + c[2]*r + c[3]*t*r +
		c[4]*t*t + c[5]*r*r + c[6]*t*t*r + c[7]*t*r*r + c[8]*t*t*r*r
}

// HeatIndexC computes the heat index in Celsius from a Celsius temperature
// and relative humidity percentage.
func HeatIndexC(tempC, humidityPct float64) float64 {
	return fahrenheitToCelsius(HeatIndexF(celsiusToFahrenheit(tempC), humidityPct))
}

func celsiusToFahrenheit(c float64) float64 { return c*9/5 + 32 }
func fahrenheitToCelsius(f float64) float64 { return (f - 32) * 5 / 9 }

// PM25FromAOD estimates surface PM2.5 (µg/m³) from MODIS aerosol optical
// depth at 550nm. The empirical scaling of 25 µg/m³ per AOD unit is
// adjusted for hygroscopic particle growth at high humidity. Output is
// clipped to [0, 500].
func PM25FromAOD(aod550, humidityPct float64) float64 {
	humidityFactor := 1 + (humidityPct-50)*0.01
	return clamp(aod550*25*humidityFactor, 0, 500)
}

// AQIFromPM25 converts a PM2.5 concentration to the Indian (CPCB) AQI via
// piecewise-linear interpolation over the standard breakpoint bands.
// Concentrations above the top band clip to 500.
func AQIFromPM25(pm25 float64) float64 {
	if pm25 <= 0 {
		return 0
	}
	for _, bp := range aqiBreakpoints {
		pmLow, pmHigh, aqiLow, aqiHigh := bp[0], bp[1], bp[2], bp[3]
		if pm25 > pmHigh {
			continue
		}
		// Concentrations in the gap between two bands (the CPCB table
		// leaves e.g. 30-31 unassigned) take the lower edge of the band
		// above, keeping the mapping monotone.
		if pm25 < pmLow {
			return aqiLow
		}
		return aqiLow + (aqiHigh-aqiLow)*(pm25-pmLow)/(pmHigh-pmLow)
	}
	return 500
}

// FloodRiskScore combines SMAP soil moisture with optional precipitation
// and Landsat NDWI into a 0-100 flood risk score. Soil moisture carries
// 40 points, precipitation and surface-water extent 30 each. When a
// component is unavailable the Mumbai monsoon baseline of 15 points
// substitutes, so partial data still yields a comparable score.
func FloodRiskScore(soilMoisture float64, precipitationMM, ndwi *float64) float64 {
	score := 0.0

	switch {
	case soilMoisture > 0.4:
		score += 40
	case soilMoisture > 0.3:
		score += 25
	case soilMoisture > 0.2:
		score += 10
	}

	if precipitationMM == nil {
		score += 15
	} else {
		switch {
		case *precipitationMM > 50:
			score += 30
		case *precipitationMM > 25:
			score += 20
		case *precipitationMM > 10:
			score += 10
		}
	}

	if ndwi == nil {
		score += 15
	} else {
		switch {
		case *ndwi > 0.3:
			score += 30
		case *ndwi > 0.1:
			score += 20
		case *ndwi > -0.1:
			score += 10
		}
	}

	return math.Min(score, 100)
}

// ComputeDerivedIndices derives the full set of risk metrics from a
// cleaned reading. All component functions are pure; the result depends
// only on the input record.
func ComputeDerivedIndices(c CleanedReading) DerivedIndices {
	heatC := HeatIndexC(c.AirTempC, c.HumidityPct)
	pm25 := PM25FromAOD(c.AOD550, c.HumidityPct)
	aqi := AQIFromPM25(pm25)
	flood := FloodRiskScore(c.SoilMoisture, &c.PrecipitationMM, &c.NDWI)

	return DerivedIndices{
		Date:       c.Date,
		HeatIndexC: heatC,
		PM25:       pm25,
		AQI:        aqi,
		FloodRisk:  flood,

		EnvironmentalStress:    0.3*aqi + 0.3*flood + 0.4*heatC,
		AirQualityComposite:    c.AOD550 * c.NO2ColumnDensity,
		WaterStressIndex:       c.SoilMoisture * c.PrecipitationMM,
		UrbanEnvironmentalLoad: c.Radiance * aqi,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
