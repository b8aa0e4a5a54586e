// Package store persists the scored daily history in SQLite. The history
// backs the REST query endpoints and supplies training data to the
// anomaly trainer.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/couchcryptid/enviro-risk-engine/internal/domain"
)

// ReadingRecord is the persisted row for one scored day. Payload carries
// the full ScoredReading as JSON so the schema survives new fields
// without migrations; the extracted columns exist for range queries.
type ReadingRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Date      time.Time `gorm:"uniqueIndex;not null"`
	AQI       float64   `gorm:"column:aqi"`
	FloodRisk float64
	HeatIndex float64
	IsAnomaly bool
	Payload   []byte `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store wraps the SQLite-backed readings history.
type Store struct {
	db *gorm.DB
}

// Open opens (and migrates) the history database at path. Use ":memory:"
// for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	if err := db.AutoMigrate(&ReadingRecord{}); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return &Store{db: db}, nil
}

// Save upserts one scored reading keyed by its date: reprocessing a day
// overwrites the previous row instead of duplicating it.
func (s *Store) Save(ctx context.Context, r domain.ScoredReading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal scored reading: %w", err)
	}

	rec := ReadingRecord{
		Date:      r.Date,
		AQI:       r.Indices.AQI,
		FloodRisk: r.Indices.FloodRisk,
		HeatIndex: r.Indices.HeatIndexC,
		IsAnomaly: r.Anomaly != nil && r.Anomaly.IsAnomaly,
		Payload:   payload,
	}

	err = s.db.WithContext(ctx).
		Where(ReadingRecord{Date: r.Date}).
		Assign(map[string]any{
			"aqi":        rec.AQI,
			"flood_risk": rec.FloodRisk,
			"heat_index": rec.HeatIndex,
			"is_anomaly": rec.IsAnomaly,
			"payload":    rec.Payload,
		}).
		FirstOrCreate(&rec).Error
	if err != nil {
		return fmt.Errorf("save reading %s: %w", r.Date.Format("2006-01-02"), err)
	}
	return nil
}

// Latest returns the most recent scored reading, or gorm.ErrRecordNotFound
// when the history is empty.
func (s *Store) Latest(ctx context.Context) (domain.ScoredReading, error) {
	var rec ReadingRecord
	if err := s.db.WithContext(ctx).Order("date DESC").First(&rec).Error; err != nil {
		return domain.ScoredReading{}, err
	}
	return decode(rec)
}

// Range returns the scored readings with from <= date <= to, oldest first.
func (s *Store) Range(ctx context.Context, from, to time.Time) ([]domain.ScoredReading, error) {
	var recs []ReadingRecord
	err := s.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, to).
		Order("date ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("range readings: %w", err)
	}
	return decodeAll(recs)
}

// All returns the full history, oldest first.
func (s *Store) All(ctx context.Context) ([]domain.ScoredReading, error) {
	var recs []ReadingRecord
	if err := s.db.WithContext(ctx).Order("date ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("load readings: %w", err)
	}
	return decodeAll(recs)
}

// Count returns the number of stored days.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&ReadingRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return n, nil
}

// FieldMaps returns every stored day's sanitized field map, the input
// shape the anomaly trainer consumes.
func (s *Store) FieldMaps(ctx context.Context) ([]map[string]float64, error) {
	readings, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	maps := make([]map[string]float64, len(readings))
	for i, r := range readings {
		maps[i] = r.Cleaned.FieldMap()
	}
	return maps, nil
}

func decode(rec ReadingRecord) (domain.ScoredReading, error) {
	var r domain.ScoredReading
	if err := json.Unmarshal(rec.Payload, &r); err != nil {
		return domain.ScoredReading{}, fmt.Errorf("decode reading %d: %w", rec.ID, err)
	}
	return r, nil
}

func decodeAll(recs []ReadingRecord) ([]domain.ScoredReading, error) {
	out := make([]domain.ScoredReading, len(recs))
	for i, rec := range recs {
		r, err := decode(rec)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
