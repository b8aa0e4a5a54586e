package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/spf13/cast"
)

// Documented reading fields. Names follow the upstream NASA column naming
// (POWER meteorology, MODIS/OMI air quality, SMAP/Landsat hydrology, VIIRS
// nighttime lights) so records round-trip the collector without renaming.
const (
	FieldAirTempC               = "T2M"
	FieldMaxTempC               = "T2M_MAX"
	FieldMinTempC               = "T2M_MIN"
	FieldHumidityPct            = "RH2M"
	FieldWindSpeedMS            = "WS10M"
	FieldPrecipCorrMM           = "PRECTOTCORR"
	FieldHeatIndexC             = "heat_index_c"
	FieldHeatIndexF             = "heat_index_f"
	FieldAQI                    = "aqi_estimated"
	FieldPM25                   = "pm25_estimated"
	FieldNO2ColumnDensity       = "no2_column_density"
	FieldAOD550                 = "aod_550nm"
	FieldSoilMoisture           = "soil_moisture"
	FieldPrecipitationMM        = "precipitation_mm"
	FieldNDWI                   = "ndwi"
	FieldFloodRiskScore         = "flood_risk_score"
	FieldRadiance               = "radiance_nw_cm2_sr"
	FieldEconomicActivityIndex  = "economic_activity_index"
	FieldUrbanEnvironmentalLoad = "urban_environmental_load"
	FieldEnvironmentalStress    = "environmental_stress_index"
	FieldAirQualityComposite    = "air_quality_composite"
	FieldWaterStressIndex       = "water_stress_index"
)

// SchemaVersion identifies the reading record layout. Bump when field
// names or semantics change so downstream consumers can reject readings
// they do not understand.
const SchemaVersion = 1

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Reading is a validated daily sensor/satellite record. Values holds every
// numeric field keyed by its upstream column name; a missing or
// unparseable field is stored as NaN so downstream stages can distinguish
// "absent" from a true zero.
type Reading struct {
	Date          time.Time          `json:"date"`
	SchemaVersion int                `json:"schema_version"`
	Values        map[string]float64 `json:"values"`
}

// ParseReading deserializes a RawEvent's value into a Reading. It expects
// the flat JSON produced by the collector: a "date" key (YYYY-MM-DD or
// RFC 3339) plus one key per sensor column. Values may arrive as JSON
// numbers, numeric strings, or null; anything non-numeric becomes NaN
// rather than failing the whole record.
func ParseReading(raw RawEvent) (Reading, error) {
	var flat map[string]any
	if err := json.Unmarshal(raw.Value, &flat); err != nil {
		return Reading{}, fmt.Errorf("parse reading: %w", err)
	}

	date, err := parseReadingDate(flat["date"], raw.Timestamp)
	if err != nil {
		return Reading{}, fmt.Errorf("parse reading: %w", err)
	}

	values := make(map[string]float64, len(flat))
	for key, v := range flat {
		if key == "date" || key == "schema_version" {
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			f = math.NaN()
		}
		values[key] = f
	}

	return Reading{
		Date:          date,
		SchemaVersion: SchemaVersion,
		Values:        values,
	}, nil
}

// parseReadingDate accepts a day-granularity date string, falling back to
// the message timestamp when the payload carries no usable date.
func parseReadingDate(v any, fallback time.Time) (time.Time, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		if fallback.IsZero() {
			return time.Time{}, fmt.Errorf("record has no date and message has no timestamp")
		}
		return fallback.UTC().Truncate(24 * time.Hour), nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(24 * time.Hour), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// CleanedReading is a Reading after sanitization: every documented field
// is populated with a finite value, and no sentinel survives. Extras
// carries undocumented numeric fields (also sanitized, defaulting to 0).
type CleanedReading struct {
	Date          time.Time `json:"date"`
	SchemaVersion int       `json:"schema_version"`

	AirTempC     float64 `json:"T2M"`
	MaxTempC     float64 `json:"T2M_MAX"`
	MinTempC     float64 `json:"T2M_MIN"`
	HumidityPct  float64 `json:"RH2M"`
	WindSpeedMS  float64 `json:"WS10M"`
	PrecipCorrMM float64 `json:"PRECTOTCORR"`
	HeatIndexC   float64 `json:"heat_index_c"`
	HeatIndexF   float64 `json:"heat_index_f"`

	AQI              float64 `json:"aqi_estimated"`
	PM25             float64 `json:"pm25_estimated"`
	NO2ColumnDensity float64 `json:"no2_column_density"`
	AOD550           float64 `json:"aod_550nm"`

	SoilMoisture    float64 `json:"soil_moisture"`
	PrecipitationMM float64 `json:"precipitation_mm"`
	NDWI            float64 `json:"ndwi"`
	FloodRiskScore  float64 `json:"flood_risk_score"`

	Radiance               float64 `json:"radiance_nw_cm2_sr"`
	EconomicActivityIndex  float64 `json:"economic_activity_index"`
	UrbanEnvironmentalLoad float64 `json:"urban_environmental_load"`

	EnvironmentalStress float64 `json:"environmental_stress_index"`
	AirQualityComposite float64 `json:"air_quality_composite"`
	WaterStressIndex    float64 `json:"water_stress_index"`

	Extras map[string]float64 `json:"extras,omitempty"`
}

// FieldMap returns every field of the cleaned reading keyed by its
// upstream column name, documented fields first, extras included. The
// returned map is freshly allocated on each call.
func (c CleanedReading) FieldMap() map[string]float64 {
	m := map[string]float64{
		FieldAirTempC:               c.AirTempC,
		FieldMaxTempC:               c.MaxTempC,
		FieldMinTempC:               c.MinTempC,
		FieldHumidityPct:            c.HumidityPct,
		FieldWindSpeedMS:            c.WindSpeedMS,
		FieldPrecipCorrMM:           c.PrecipCorrMM,
		FieldHeatIndexC:             c.HeatIndexC,
		FieldHeatIndexF:             c.HeatIndexF,
		FieldAQI:                    c.AQI,
		FieldPM25:                   c.PM25,
		FieldNO2ColumnDensity:       c.NO2ColumnDensity,
		FieldAOD550:                 c.AOD550,
		FieldSoilMoisture:           c.SoilMoisture,
		FieldPrecipitationMM:        c.PrecipitationMM,
		FieldNDWI:                   c.NDWI,
		FieldFloodRiskScore:         c.FloodRiskScore,
		FieldRadiance:               c.Radiance,
		FieldEconomicActivityIndex:  c.EconomicActivityIndex,
		FieldUrbanEnvironmentalLoad: c.UrbanEnvironmentalLoad,
		FieldEnvironmentalStress:    c.EnvironmentalStress,
		FieldAirQualityComposite:    c.AirQualityComposite,
		FieldWaterStressIndex:       c.WaterStressIndex,
	}
	for k, v := range c.Extras {
		m[k] = v
	}
	return m
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
