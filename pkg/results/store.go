// Package results keeps finished laps and race summaries in a SQL database
// through gorm. SQLite is the default backend; an in-memory DSN keeps results
// for the life of the process only.
package results

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/opd-ai/go-racer/pkg/logging"
)

// ErrRaceNotFound is returned when a race id is unknown.
var ErrRaceNotFound = errors.New("race not found")

// Race is one session's summary row.
type Race struct {
	ID        string `gorm:"primaryKey"`
	Track     string
	Cars      int
	StartedAt time.Time
	EndedAt   *time.Time
	Ticks     uint64
}

// LapRecord is one completed lap.
type LapRecord struct {
	ID         uint   `gorm:"primaryKey"`
	RaceID     string `gorm:"index"`
	Car        int    `gorm:"index"`
	Lap        int
	LapTime    float64 // seconds
	Tick       uint64
	RecordedAt time.Time
}

// Store persists races and laps.
type Store struct {
	db     *gorm.DB
	logger *logging.Logger
}

// Open connects to the SQLite database at dsn and migrates the schema.
func Open(dsn string, log *logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Discard()
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, logging.WrapError(err, "failed to open results database %q", dsn)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, logging.WrapError(err, "failed to access sql interface")
	}
	// SQLite allows one writer; a single connection also keeps a shared
	// in-memory database alive.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Race{}, &LapRecord{}); err != nil {
		sqlDB.Close()
		return nil, logging.WrapError(err, "failed to migrate results schema")
	}

	log.Info(context.Background(), "results store ready", "dsn", dsn)
	return &Store{db: db, logger: log}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// StartRace records a new race.
func (s *Store) StartRace(ctx context.Context, race Race) error {
	if err := s.db.WithContext(ctx).Create(&race).Error; err != nil {
		return logging.WrapError(err, "failed to record race %s", race.ID)
	}
	return nil
}

// FinishRace stamps the race's end time and tick count.
func (s *Store) FinishRace(ctx context.Context, id string, endedAt time.Time, ticks uint64) error {
	res := s.db.WithContext(ctx).Model(&Race{}).Where("id = ?", id).
		Updates(map[string]any{"ended_at": endedAt, "ticks": ticks})
	if res.Error != nil {
		return logging.WrapError(res.Error, "failed to finish race %s", id)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRaceNotFound, id)
	}
	return nil
}

// Race loads a race summary.
func (s *Store) Race(ctx context.Context, id string) (*Race, error) {
	var race Race
	err := s.db.WithContext(ctx).First(&race, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRaceNotFound, id)
	}
	if err != nil {
		return nil, logging.WrapError(err, "failed to load race %s", id)
	}
	return &race, nil
}

// RecordLap stores one completed lap.
func (s *Store) RecordLap(ctx context.Context, lap LapRecord) error {
	if err := s.db.WithContext(ctx).Create(&lap).Error; err != nil {
		return logging.WrapError(err, "failed to record lap %d of car %d", lap.Lap, lap.Car)
	}
	return nil
}

// Laps returns every lap of a race in completion order.
func (s *Store) Laps(ctx context.Context, raceID string) ([]LapRecord, error) {
	var laps []LapRecord
	err := s.db.WithContext(ctx).
		Where("race_id = ?", raceID).
		Order("tick, car, lap").
		Find(&laps).Error
	if err != nil {
		return nil, logging.WrapError(err, "failed to list laps of race %s", raceID)
	}
	return laps, nil
}

// BestLaps returns each car's fastest lap in a race, ordered by car.
func (s *Store) BestLaps(ctx context.Context, raceID string) ([]LapRecord, error) {
	laps, err := s.Laps(ctx, raceID)
	if err != nil {
		return nil, err
	}

	best := make(map[int]LapRecord)
	var cars []int
	for _, lap := range laps {
		cur, ok := best[lap.Car]
		if !ok {
			cars = append(cars, lap.Car)
		}
		if !ok || lap.LapTime < cur.LapTime {
			best[lap.Car] = lap
		}
	}

	sort.Ints(cars)
	out := make([]LapRecord, 0, len(cars))
	for _, car := range cars {
		out = append(out, best[car])
	}
	return out, nil
}
