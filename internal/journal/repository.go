// Package journal stores calibrated sensor readings in SQLite.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"cloudpico-display/internal/sensor"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/recent-readings.sql
var recentReadingsSQL string

// tsLayout keeps nine fractional digits so stored timestamps sort
// lexically in time order. RFC3339Nano trims trailing zeros and does not.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// MaxRecent caps Recent's limit.
const MaxRecent = 1000

// Entry is one stored reading.
type Entry struct {
	StationID    string    `json:"station_id"`
	Time         time.Time `json:"ts"`
	TemperatureC float64   `json:"temperature_c"`
	HumidityPct  float64   `json:"humidity_pct"`
	PressureHPa  *float64  `json:"pressure_hpa,omitempty"`
}

type Repository struct {
	db        *sql.DB
	stationID string
	logger    *slog.Logger
}

// NewRepository expects the readings table to exist (see package migrate).
func NewRepository(db *sql.DB, stationID string, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, stationID: stationID, logger: logger}
}

// Name identifies the repository when used as a reading sink.
func (r *Repository) Name() string { return "journal" }

// Record inserts one reading. A zero pressure is stored as NULL.
func (r *Repository) Record(ctx context.Context, rd sensor.Reading) error {
	var pressure any
	if rd.PressureHPa != 0 {
		pressure = rd.PressureHPa
	}
	_, err := r.db.ExecContext(ctx, insertReadingSQL,
		r.stationID,
		rd.Time.UTC().Format(tsLayout),
		rd.TemperatureC,
		rd.HumidityPct,
		pressure,
	)
	if err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}
	return nil
}

// Recent returns up to limit readings, newest first. limit is clamped to [1, MaxRecent].
func (r *Repository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxRecent {
		limit = MaxRecent
	}
	rows, err := r.db.QueryContext(ctx, recentReadingsSQL, r.stationID, limit)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Error("close readings rows", "error", err)
		}
	}()

	out := []Entry{}
	for rows.Next() {
		var (
			e        Entry
			ts       string
			pressure sql.NullFloat64
		)
		if err := rows.Scan(&e.StationID, &ts, &e.TemperatureC, &e.HumidityPct, &pressure); err != nil {
			return nil, err
		}
		e.Time, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("journal: bad timestamp %q: %w", ts, err)
		}
		if pressure.Valid {
			p := pressure.Float64
			e.PressureHPa = &p
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
