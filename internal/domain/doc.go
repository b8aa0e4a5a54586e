// Package domain models daily environmental sensor and satellite readings
// for the Mumbai region and derives standardized risk metrics from them.
//
// # Data Source
//
// Readings originate from NASA data products: POWER (surface meteorology),
// MODIS (aerosol optical depth), OMI (NO2 column density), SMAP (soil
// moisture), Landsat (NDWI), and VIIRS (nighttime radiance). An upstream
// collector service fetches the daily products, flattens them into one JSON
// record per day keyed by the original column names (T2M, RH2M, aod_550nm,
// ...), and publishes each record to the Kafka source topic.
//
// # Sentinel Values
//
// NASA products mark missing observations with sentinel values rather than
// omitting fields:
//
//	-999, -9999   standard "no data" markers
//	< -900        scaled variants (e.g. -999.9)
//
// [Sanitize] replaces sentinels, NaN, and ±Inf with documented Mumbai
// climatology defaults (T2M → 28.5°C, RH2M → 75%, ...; see fieldDefaults).
// Undocumented fields default to 0. Sanitization never fails: a degraded
// reading always produces a fully populated record, trading accuracy for
// availability on the dashboard path.
//
// # Derived Metrics
//
// All derivations are pure functions of a sanitized reading:
//
//	Heat index      NWS formula: simplified Steadman average below the 80°F
//	                regime, full Rothfusz regression above it.
//	PM2.5           empirical MODIS AOD scaling (25 µg/m³ per AOD unit,
//	                humidity-adjusted), clipped to [0, 500].
//	AQI             CPCB (Indian) PM2.5 breakpoint interpolation, 0-500.
//	                The CPCB table is used throughout; the US-EPA scale is
//	                deliberately not mixed in.
//	Flood risk      weighted soil moisture / precipitation / NDWI score,
//	                0-100, monsoon-baseline substitution for absent inputs.
//	Composites      environmental stress (0.3·AQI + 0.3·flood + 0.4·heat),
//	                air-quality composite (AOD × NO2), water stress
//	                (soil moisture × precipitation), urban load
//	                (radiance × AQI).
//
// # Risk Classification
//
// [ClassifyRisk] maps metric values onto fixed ordinal scales:
//
//	AQI:        Good ≤50 | Satisfactory ≤100 | Moderate ≤200 | Poor ≤300 |
//	            Very Poor ≤400 | Severe >400
//	Flood:      Low <20 | Moderate <40 | High <60 | Very High <80 | Extreme ≥80
//	Heat index: Normal <27°C | Caution <32°C | Extreme Caution <40°C |
//	            Danger <46°C | Extreme Danger ≥46°C
//
// Heat categories are defined on the Celsius scale only; upstream sources
// that publish Fahrenheit cut points are converted at ingestion, never at
// classification time.
package domain
