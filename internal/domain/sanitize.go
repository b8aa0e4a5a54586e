package domain

import "math"

// fieldDefaults maps each documented field to its Mumbai climatology
// replacement value, used when an upstream source reports a sentinel or
// no data at all. Values are long-term seasonal averages for the Mumbai
// region, matching the training-data cleaning step so that sanitized
// live readings and the historical dataset share one distribution.
var fieldDefaults = map[string]float64{
	FieldAirTempC:               28.5,
	FieldHumidityPct:            75.0,
	FieldHeatIndexC:             30.2,
	FieldHeatIndexF:             86.4,
	FieldAQI:                    45.0,
	FieldPM25:                   22.0,
	FieldNO2ColumnDensity:       0.35,
	FieldAOD550:                 0.48,
	FieldSoilMoisture:           0.25,
	FieldPrecipitationMM:        1.2,
	FieldNDWI:                   0.18,
	FieldFloodRiskScore:         25.0,
	FieldRadiance:               28.5,
	FieldEconomicActivityIndex:  65.0,
	FieldUrbanEnvironmentalLoad: 520.0,
	FieldEnvironmentalStress:    18.5,
	FieldAirQualityComposite:    0.28,
	FieldWaterStressIndex:       2.3,
	FieldWindSpeedMS:            2.5,
	FieldPrecipCorrMM:           1.2,
	FieldMaxTempC:               32.0,
	FieldMinTempC:               25.0,
}

// IsSentinel reports whether a value is one of the upstream "no data"
// markers: NaN, ±Inf, the NASA sentinels -999/-9999, or any value below
// -900 (some products emit scaled variants like -999.9).
func IsSentinel(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return true
	}
	return v == -999 || v == -9999 || v < -900
}

// FieldDefault returns the documented replacement value for a field.
// Undocumented fields default to 0.
func FieldDefault(field string) float64 {
	return fieldDefaults[field]
}

// Sanitize replaces every sentinel, missing, and non-finite value in a
// reading with its documented climatology default (0 for undocumented
// fields) and returns the fully populated typed record. It never fails:
// degraded data yields a usable reading rather than an error, so the
// dashboard path stays available when a satellite product is late.
func Sanitize(r Reading) CleanedReading {
	pick := func(field string) float64 {
		v, ok := r.Values[field]
		if !ok || IsSentinel(v) {
			return fieldDefaults[field]
		}
		return v
	}

	c := CleanedReading{
		Date:          r.Date,
		SchemaVersion: SchemaVersion,

		AirTempC:     pick(FieldAirTempC),
		MaxTempC:     pick(FieldMaxTempC),
		MinTempC:     pick(FieldMinTempC),
		HumidityPct:  pick(FieldHumidityPct),
		WindSpeedMS:  pick(FieldWindSpeedMS),
		PrecipCorrMM: pick(FieldPrecipCorrMM),
		HeatIndexC:   pick(FieldHeatIndexC),
		HeatIndexF:   pick(FieldHeatIndexF),

		AQI:              pick(FieldAQI),
		PM25:             pick(FieldPM25),
		NO2ColumnDensity: pick(FieldNO2ColumnDensity),
		AOD550:           pick(FieldAOD550),

		SoilMoisture:    pick(FieldSoilMoisture),
		PrecipitationMM: pick(FieldPrecipitationMM),
		NDWI:            pick(FieldNDWI),
		FloodRiskScore:  pick(FieldFloodRiskScore),

		Radiance:               pick(FieldRadiance),
		EconomicActivityIndex:  pick(FieldEconomicActivityIndex),
		UrbanEnvironmentalLoad: pick(FieldUrbanEnvironmentalLoad),

		EnvironmentalStress: pick(FieldEnvironmentalStress),
		AirQualityComposite: pick(FieldAirQualityComposite),
		WaterStressIndex:    pick(FieldWaterStressIndex),
	}

	for field, v := range r.Values {
		if _, documented := fieldDefaults[field]; documented {
			continue
		}
		if IsSentinel(v) {
			v = 0.0
		}
		if c.Extras == nil {
			c.Extras = make(map[string]float64)
		}
		c.Extras[field] = v
	}

	return c
}

// SanitizeCount returns the cleaned reading along with the number of
// fields that were replaced, for observability.
func SanitizeCount(r Reading) (CleanedReading, int) {
	replaced := 0
	for field := range fieldDefaults {
		if v, ok := r.Values[field]; !ok || IsSentinel(v) {
			replaced++
		}
	}
	for field, v := range r.Values {
		if _, documented := fieldDefaults[field]; !documented && IsSentinel(v) {
			replaced++
		}
	}
	return Sanitize(r), replaced
}
