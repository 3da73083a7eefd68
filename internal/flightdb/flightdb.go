// Package flightdb is the sqlite-backed flight recorder. It stores estimator
// status snapshots per session so post-flight tooling can analyse vibration
// levels and sensor acceptance rates.
package flightdb

import (
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/attitude.report/internal/ekf"
	"github.com/banshee-data/attitude.report/internal/monitoring"
)

type FlightDB struct {
	*sql.DB
}

// schema.sql defines the sessions and snapshots tables.
//
//go:embed schema.sql
var schemaSQL string

// NewFlightDB opens (or creates) the flight recorder database at path.
func NewFlightDB(path string) (*FlightDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise flight recorder schema: %w", err)
	}

	monitoring.Logf("initialised flight recorder schema")

	return &FlightDB{db}, nil
}

// StartSession creates a new recording session and returns its ID.
func (fdb *FlightDB) StartSession(notes string) (string, error) {
	id := uuid.New().String()

	query := `INSERT INTO sessions (id, notes) VALUES (?, ?)`
	if _, err := fdb.Exec(query, id, notes); err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}

	return id, nil
}

// EndSession stamps the session's end time.
func (fdb *FlightDB) EndSession(sessionID string) error {
	query := `UPDATE sessions SET end_timestamp = UNIXEPOCH('subsec') WHERE id = ?`
	res, err := fdb.Exec(query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no session with id %s", sessionID)
	}
	return nil
}

// RecordSnapshot stores one estimator status snapshot for the session.
func (fdb *FlightDB) RecordSnapshot(sessionID string, st ekf.Status) error {
	query := `
		INSERT INTO snapshots (
			session_id, time_last_imu_us, dt_imu_avg, min_obs_interval_us,
			vibe_coning, vibe_gyro_hf, vibe_accel_hf,
			imu_count, mag_count, gps_count, baro_count, range_count,
			airspeed_count, flow_count, ext_vision_count, aux_vel_count, drag_count,
			origin_set, gps_speed_valid
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := fdb.Exec(query,
		sessionID, st.TimeLastIMUUS, st.DtIMUAvg, st.MinObsIntervalUS,
		st.Vibe[ekf.VibeConing], st.Vibe[ekf.VibeGyroHF], st.Vibe[ekf.VibeAccelHF],
		st.Counters.IMU, st.Counters.Mag, st.Counters.GPS, st.Counters.Baro,
		st.Counters.Range, st.Counters.Airspeed, st.Counters.Flow,
		st.Counters.EV, st.Counters.AuxVel, st.Counters.Drag,
		st.OriginSet, st.GPSSpeedValid,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// Snapshot is a stored estimator status sample.
type Snapshot struct {
	ID               int64        `json:"id"`
	SessionID        string       `json:"session_id"`
	WriteTimestamp   float64      `json:"write_timestamp"`
	TimeLastIMUUS    uint64       `json:"time_last_imu_us"`
	DtIMUAvg         float64      `json:"dt_imu_avg"`
	MinObsIntervalUS uint64       `json:"min_obs_interval_us"`
	Vibe             [3]float64   `json:"vibration_metrics"`
	Counters         ekf.Counters `json:"counters"`
	OriginSet        bool         `json:"origin_set"`
	GPSSpeedValid    bool         `json:"gps_speed_valid"`
}

// Snapshots returns the stored snapshots for a session in write order.
func (fdb *FlightDB) Snapshots(sessionID string) ([]Snapshot, error) {
	query := `
		SELECT id, session_id, write_timestamp, time_last_imu_us, dt_imu_avg,
			min_obs_interval_us, vibe_coning, vibe_gyro_hf, vibe_accel_hf,
			imu_count, mag_count, gps_count, baro_count, range_count,
			airspeed_count, flow_count, ext_vision_count, aux_vel_count,
			drag_count, origin_set, gps_speed_valid
		FROM snapshots
		WHERE session_id = ?
		ORDER BY write_timestamp, id
	`

	rows, err := fdb.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var s Snapshot
		err := rows.Scan(
			&s.ID, &s.SessionID, &s.WriteTimestamp, &s.TimeLastIMUUS,
			&s.DtIMUAvg, &s.MinObsIntervalUS,
			&s.Vibe[0], &s.Vibe[1], &s.Vibe[2],
			&s.Counters.IMU, &s.Counters.Mag, &s.Counters.GPS,
			&s.Counters.Baro, &s.Counters.Range, &s.Counters.Airspeed,
			&s.Counters.Flow, &s.Counters.EV, &s.Counters.AuxVel,
			&s.Counters.Drag, &s.OriginSet, &s.GPSSpeedValid,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

// Session is a stored recording session.
type Session struct {
	ID             string   `json:"id"`
	StartTimestamp float64  `json:"start_timestamp"`
	EndTimestamp   *float64 `json:"end_timestamp,omitempty"`
	Notes          string   `json:"notes"`
	SnapshotCount  int      `json:"snapshot_count"`
}

// Sessions returns the most recent sessions, newest first.
func (fdb *FlightDB) Sessions(limit int) ([]Session, error) {
	query := `
		SELECT s.id, s.start_timestamp, s.end_timestamp, s.notes,
			(SELECT COUNT(*) FROM snapshots WHERE session_id = s.id)
		FROM sessions s
		ORDER BY s.start_timestamp DESC
		LIMIT ?
	`

	rows, err := fdb.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.StartTimestamp, &s.EndTimestamp, &s.Notes, &s.SnapshotCount); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
