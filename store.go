package main

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DuplicateStartRadiusMeters flags a new trail as a likely duplicate when an
// existing trail starts within this distance.
const DuplicateStartRadiusMeters = 100.0

// store errors
var (
	ErrTrailNotFound = errors.New("trail not found")
	ErrTrailExists   = errors.New("trail with this name already exists")
)

// TrailStore persists analyzed trails in a SQLite database. Safe for
// concurrent use, the underlying pool serializes writes.
type TrailStore struct {
	db *sql.DB
}

const trailSchema = `
CREATE TABLE IF NOT EXISTS trails (
	id                    TEXT PRIMARY KEY,
	name                  TEXT NOT NULL UNIQUE,
	start_latitude        REAL NOT NULL,
	start_longitude       REAL NOT NULL,
	distance_km           REAL NOT NULL,
	elevation_gain        REAL NOT NULL,
	elevation_loss        REAL NOT NULL,
	min_elevation         REAL NOT NULL,
	max_elevation         REAL NOT NULL,
	rolling_hills_index   REAL NOT NULL,
	rolling_hills_count   INTEGER NOT NULL,
	terrain_variety_score REAL NOT NULL,
	max_slope             REAL NOT NULL,
	avg_slope             REAL NOT NULL,
	difficulty_score      REAL NOT NULL,
	difficulty_level      TEXT NOT NULL,
	technical_rating      REAL NOT NULL,
	estimated_time_hours  REAL NOT NULL,
	created               TEXT NOT NULL
);`

/*
OpenTrailStore opens (and if necessary bootstraps) the trail database.
*/
func OpenTrailStore(databaseFile string) (*TrailStore, error) {
	db, err := sql.Open("sqlite", databaseFile)
	if err != nil {
		return nil, fmt.Errorf("error [%w] at sql.Open(), file = <%s>", err, databaseFile)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error [%w] at db.Exec(), pragma journal_mode", err)
	}
	if _, err := db.Exec(trailSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error [%w] at db.Exec(), schema bootstrap", err)
	}
	return &TrailStore{db: db}, nil
}

// Close closes the underlying database.
func (s *TrailStore) Close() error {
	return s.db.Close()
}

/*
Insert stores a new trail record after duplicate checks: a trail with the same
name is rejected unless overwrite is requested, a trail starting within 100
meters of an existing one is logged as a likely duplicate but still stored.
The assigned ID is written back into the record.
*/
func (s *TrailStore) Insert(record *TrailRecord, overwrite bool) error {
	existing, err := s.FindByName(record.Name)
	if err != nil && !errors.Is(err, ErrTrailNotFound) {
		return err
	}
	if err == nil {
		if !overwrite {
			return fmt.Errorf("%w: <%s>", ErrTrailExists, record.Name)
		}
		if err := s.Delete(existing.ID); err != nil {
			return err
		}
	}

	record.ID = uuid.New().String()
	record.Created = time.Now().UTC()

	_, err = s.db.Exec(`INSERT INTO trails (
		id, name, start_latitude, start_longitude, distance_km,
		elevation_gain, elevation_loss, min_elevation, max_elevation,
		rolling_hills_index, rolling_hills_count, terrain_variety_score,
		max_slope, avg_slope, difficulty_score, difficulty_level,
		technical_rating, estimated_time_hours, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Name, record.StartLatitude, record.StartLongitude, record.DistanceKm,
		record.ElevationGain, record.ElevationLoss, record.MinElevation, record.MaxElevation,
		record.RollingHillsIndex, record.RollingHillsCount, record.TerrainVarietyScore,
		record.MaxSlope, record.AvgSlope, record.DifficultyScore, record.DifficultyLevel,
		record.TechnicalRating, record.EstimatedTimeHours, record.Created.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("error [%w] at db.Exec(), insert trail <%s>", err, record.Name)
	}
	return nil
}

/*
Get returns the trail with the given ID.
*/
func (s *TrailStore) Get(id string) (TrailRecord, error) {
	row := s.db.QueryRow(trailSelect+" WHERE id = ?", id)
	return scanTrail(row)
}

/*
FindByName returns the trail with the given name.
*/
func (s *TrailStore) FindByName(name string) (TrailRecord, error) {
	row := s.db.QueryRow(trailSelect+" WHERE name = ?", name)
	return scanTrail(row)
}

/*
List returns all stored trails ordered by name.
*/
func (s *TrailStore) List() ([]TrailRecord, error) {
	rows, err := s.db.Query(trailSelect + " ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("error [%w] at db.Query(), list trails", err)
	}
	defer rows.Close()

	var records []TrailRecord
	for rows.Next() {
		record, err := scanTrail(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

/*
Delete removes the trail with the given ID.
*/
func (s *TrailStore) Delete(id string) error {
	result, err := s.db.Exec("DELETE FROM trails WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("error [%w] at db.Exec(), delete trail <%s>", err, id)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: <%s>", ErrTrailNotFound, id)
	}
	return nil
}

/*
NearbyStart returns the stored trails whose start lies within the duplicate
radius of the given position.
*/
func (s *TrailStore) NearbyStart(latitude float64, longitude float64) ([]TrailRecord, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}

	var nearby []TrailRecord
	for _, record := range records {
		distance := greatCircleDistance(latitude, longitude, record.StartLatitude, record.StartLongitude)
		if distance <= DuplicateStartRadiusMeters {
			nearby = append(nearby, record)
		}
	}
	return nearby, nil
}

const trailSelect = `SELECT id, name, start_latitude, start_longitude, distance_km,
	elevation_gain, elevation_loss, min_elevation, max_elevation,
	rolling_hills_index, rolling_hills_count, terrain_variety_score,
	max_slope, avg_slope, difficulty_score, difficulty_level,
	technical_rating, estimated_time_hours, created FROM trails`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrail(row rowScanner) (TrailRecord, error) {
	var record TrailRecord
	var created string
	err := row.Scan(&record.ID, &record.Name, &record.StartLatitude, &record.StartLongitude,
		&record.DistanceKm, &record.ElevationGain, &record.ElevationLoss,
		&record.MinElevation, &record.MaxElevation, &record.RollingHillsIndex,
		&record.RollingHillsCount, &record.TerrainVarietyScore, &record.MaxSlope,
		&record.AvgSlope, &record.DifficultyScore, &record.DifficultyLevel,
		&record.TechnicalRating, &record.EstimatedTimeHours, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return TrailRecord{}, ErrTrailNotFound
	}
	if err != nil {
		return TrailRecord{}, fmt.Errorf("error [%w] at row.Scan(), trail record", err)
	}
	record.Created, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return TrailRecord{}, fmt.Errorf("error [%w] at time.Parse(), created = <%s>", err, created)
	}
	return record, nil
}
