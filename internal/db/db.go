// Package db persists alarm transitions, baseline runs and periodic feature
// rollups to a local sqlite database.
package db

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ezraeffect/vibewatch/internal/alarm"
	"github.com/ezraeffect/vibewatch/internal/baseline"
	"github.com/ezraeffect/vibewatch/internal/dsp"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DB wraps the sqlite handle.
type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the database at path and applies pending
// migrations.
func NewDB(path string) (*DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db := &DB{handle}
	if err := db.migrateUp(); err != nil {
		handle.Close()
		return nil, err
	}
	return db, nil
}

// migrateUp applies all embedded migrations. Already-current databases are
// not an error.
func (db *DB) migrateUp() error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(db.DB, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	// Don't close m: it would close the underlying DB connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// AlarmEvent is one recorded state transition. Channel/Value/Threshold hold
// the dominant exceedance when one exists.
type AlarmEvent struct {
	EventID    string    `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
	PrevState  string    `json:"prev_state"`
	NewState   string    `json:"new_state"`
	Channel    string    `json:"channel,omitempty"`
	Value      float64   `json:"value,omitempty"`
	Threshold  float64   `json:"threshold,omitempty"`
}

// RecordAlarmEvent inserts a state transition and returns its generated ID.
func (db *DB) RecordAlarmEvent(ev AlarmEvent) (string, error) {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	_, err := db.Exec(
		`INSERT INTO alarm_events (event_id, occurred_at, prev_state, new_state, channel, value, threshold)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.EventID, ev.OccurredAt, ev.PrevState, ev.NewState, ev.Channel, ev.Value, ev.Threshold,
	)
	if err != nil {
		return "", fmt.Errorf("failed to record alarm event: %w", err)
	}
	return ev.EventID, nil
}

// RecentAlarmEvents returns up to limit events, newest first.
func (db *DB) RecentAlarmEvents(limit int) ([]AlarmEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT event_id, occurred_at, prev_state, new_state, channel, value, threshold
		 FROM alarm_events ORDER BY occurred_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alarm events: %w", err)
	}
	defer rows.Close()

	var out []AlarmEvent
	for rows.Next() {
		var ev AlarmEvent
		if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.PrevState, &ev.NewState,
			&ev.Channel, &ev.Value, &ev.Threshold); err != nil {
			return nil, fmt.Errorf("failed to scan alarm event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// RecordBaselineRun stores a successful learning session: the derived
// thresholds in columns, the per-channel profiles as JSON.
func (db *DB) RecordBaselineRun(res *baseline.Result) error {
	profiles, err := json.Marshal(map[string]dsp.BaselineProfile{
		"acc":  res.AccProfile,
		"vel":  res.VelProfile,
		"disp": res.DispProfile,
	})
	if err != nil {
		return fmt.Errorf("failed to encode baseline profiles: %w", err)
	}
	_, err = db.Exec(
		`INSERT INTO baseline_runs (session_id, completed_at, sample_count, acc_rms_max, vel_peak_max, disp_peak_max, profiles_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.SessionID, res.CompletedAt, res.Samples,
		res.Thresholds.AccRMSMax, res.Thresholds.VelPeakMax, res.Thresholds.DispPeakMax,
		string(profiles),
	)
	if err != nil {
		return fmt.Errorf("failed to record baseline run: %w", err)
	}
	return nil
}

// RecordFeatures appends one feature rollup row. NaN features (no data yet)
// are stored as NULL.
func (db *DB) RecordFeatures(at time.Time, f dsp.WindowFeatures, state alarm.State) error {
	_, err := db.Exec(
		`INSERT INTO feature_rollups (recorded_at, acc_rms, vel_peak, disp_peak, temp, state)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		at, nullable(f.AccRMS), nullable(f.VelPeak), nullable(f.DispPeak), nullable(f.Temp), state.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to record features: %w", err)
	}
	return nil
}

func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
