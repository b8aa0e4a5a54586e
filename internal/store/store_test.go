package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/couchcryptid/enviro-risk-engine/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	return s
}

func scoredReading(date time.Time, aqi float64) domain.ScoredReading {
	c := domain.Sanitize(domain.Reading{
		Date:          date,
		SchemaVersion: domain.SchemaVersion,
		Values: map[string]float64{
			domain.FieldAirTempC:    30,
			domain.FieldHumidityPct: 70,
		},
	})
	r := domain.NewScoredReading(c, nil)
	r.Indices.AQI = aqi
	return r
}

func day(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
}

func TestStore_SaveAndLatest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, scoredReading(day(1), 40)))
	require.NoError(t, s.Save(ctx, scoredReading(day(3), 60)))
	require.NoError(t, s.Save(ctx, scoredReading(day(2), 50)))

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, day(3), latest.Date)
	assert.Equal(t, 60.0, latest.Indices.AQI)
}

func TestStore_Latest_Empty(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Latest(context.Background())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestStore_SaveUpsertsByDate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, scoredReading(day(1), 40)))
	require.NoError(t, s.Save(ctx, scoredReading(day(1), 90)))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 90.0, latest.Indices.AQI)
}

func TestStore_Range(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for d := 1; d <= 10; d++ {
		require.NoError(t, s.Save(ctx, scoredReading(day(d), float64(d*10))))
	}

	got, err := s.Range(ctx, day(3), day(6))
	require.NoError(t, err)

	require.Len(t, got, 4)
	assert.Equal(t, day(3), got[0].Date)
	assert.Equal(t, day(6), got[3].Date)
}

func TestStore_All_OrderedOldestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, scoredReading(day(5), 50)))
	require.NoError(t, s.Save(ctx, scoredReading(day(1), 10)))

	got, err := s.All(ctx)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, day(1), got[0].Date)
	assert.Equal(t, day(5), got[1].Date)
}

func TestStore_FieldMaps(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, scoredReading(day(1), 40)))
	require.NoError(t, s.Save(ctx, scoredReading(day(2), 50)))

	maps, err := s.FieldMaps(ctx)
	require.NoError(t, err)

	require.Len(t, maps, 2)
	assert.Equal(t, 30.0, maps[0][domain.FieldAirTempC])
	assert.Equal(t, 70.0, maps[0][domain.FieldHumidityPct])
}
