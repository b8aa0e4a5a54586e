// Command genhistory seeds a readings history database with synthetic
// Mumbai daily data: seasonally plausible meteorology, air quality, and
// hydrology columns, run through the real sanitize-and-score path so the
// stored records match what the live pipeline would produce. Useful for
// local development and for bootstrapping a first training run.
//
// Usage:
//
//	go run ./cmd/genhistory -db readings.db -days 365 -seed 42
package main

import (
	"context"
	"flag"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/enviro-risk-engine/internal/domain"
	"github.com/couchcryptid/enviro-risk-engine/internal/store"
)

func main() {
	dbPath := flag.String("db", "readings.db", "path to the readings history database")
	days := flag.Int("days", 365, "number of daily readings to generate")
	seed := flag.Int64("seed", 42, "random seed for reproducible histories")
	start := flag.String("start", "", "first date (YYYY-MM-DD), defaults to days ago from today")
	flag.Parse()

	if err := run(*dbPath, *days, *seed, *start); err != nil {
		log.Fatal(err)
	}
}

func run(dbPath string, days int, seed int64, start string) error {
	startDate := time.Now().UTC().AddDate(0, 0, -days).Truncate(24 * time.Hour)
	if start != "" {
		var err error
		startDate, err = time.Parse("2006-01-02", start)
		if err != nil {
			return err
		}
	}

	// Freeze the clock so regenerated fixtures are byte-identical.
	domain.SetClock(clockwork.NewFakeClockAt(startDate.AddDate(0, 0, days)))
	defer domain.SetClock(nil)

	history, err := store.Open(dbPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	rng := rand.New(rand.NewSource(seed))

	for d := 0; d < days; d++ {
		date := startDate.AddDate(0, 0, d)
		reading := domain.Reading{
			Date:          date,
			SchemaVersion: domain.SchemaVersion,
			Values:        syntheticDay(date, rng),
		}

		cleaned := domain.Sanitize(reading)
		if err := history.Save(ctx, domain.NewScoredReading(cleaned, nil)); err != nil {
			return err
		}
	}

	log.Printf("wrote %d days to %s starting %s", days, dbPath, startDate.Format("2006-01-02"))
	return nil
}

// syntheticDay fabricates one day of readings around Mumbai's seasonal
// climate: a monsoon precipitation peak mid-year, temperature and
// humidity tracking it, and correlated aerosol and hydrology columns.
// A few percent of values come back as sentinels to exercise the
// sanitizer the way late satellite products do.
func syntheticDay(date time.Time, rng *rand.Rand) map[string]float64 {
	doy := float64(date.YearDay())
	monsoon := math.Exp(-math.Pow(doy-196, 2) / (2 * 45 * 45)) // peaks mid-July

	temp := 27 + 5*math.Sin(2*math.Pi*(doy-105)/365) + rng.NormFloat64()
	humidity := clampf(60+30*monsoon+5*rng.NormFloat64(), 30, 100)
	precip := math.Max(0, 40*monsoon+10*monsoon*rng.NormFloat64())
	soil := clampf(0.15+0.25*monsoon+0.03*rng.NormFloat64(), 0.05, 0.55)
	aod := clampf(0.6-0.25*monsoon+0.08*rng.NormFloat64(), 0.05, 1.5)
	no2 := clampf(0.45-0.15*monsoon+0.05*rng.NormFloat64(), 0.05, 1)
	ndwi := clampf(-0.05+0.35*monsoon+0.05*rng.NormFloat64(), -0.5, 0.6)
	radiance := clampf(30+4*rng.NormFloat64(), 5, 80)

	values := map[string]float64{
		domain.FieldAirTempC:              temp,
		domain.FieldMaxTempC:              temp + 3 + rng.Float64(),
		domain.FieldMinTempC:              temp - 4 - rng.Float64(),
		domain.FieldHumidityPct:           humidity,
		domain.FieldWindSpeedMS:           math.Max(0.5, 2.5+1.5*monsoon+rng.NormFloat64()),
		domain.FieldPrecipCorrMM:          precip,
		domain.FieldPrecipitationMM:       precip,
		domain.FieldAOD550:                aod,
		domain.FieldNO2ColumnDensity:      no2,
		domain.FieldSoilMoisture:          soil,
		domain.FieldNDWI:                  ndwi,
		domain.FieldRadiance:              radiance,
		domain.FieldEconomicActivityIndex: clampf(60+10*rng.NormFloat64(), 20, 100),
	}

	// Satellite products miss days; report those as NASA sentinels.
	for field := range values {
		if rng.Float64() < 0.03 {
			values[field] = -999
		}
	}

	return values
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
