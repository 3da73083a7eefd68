package flightdb

import (
	"context"
	"time"

	"github.com/banshee-data/attitude.report/internal/ekf"
	"github.com/banshee-data/attitude.report/internal/monitoring"
	"github.com/banshee-data/attitude.report/internal/timeutil"
)

// StatusSource yields the estimator status to snapshot. Implementations must
// be safe to call from the recorder goroutine.
type StatusSource func() ekf.Status

// Recorder periodically snapshots estimator status into a session.
type Recorder struct {
	db       *FlightDB
	clock    timeutil.Clock
	interval time.Duration
	source   StatusSource
}

// NewRecorder builds a recorder snapshotting source into db every interval.
func NewRecorder(db *FlightDB, clock timeutil.Clock, interval time.Duration, source StatusSource) *Recorder {
	return &Recorder{
		db:       db,
		clock:    clock,
		interval: interval,
		source:   source,
	}
}

// Run starts a session and records snapshots until the context is cancelled,
// then ends the session. Snapshot write failures are logged and skipped so a
// transient storage problem does not end the recording.
func (r *Recorder) Run(ctx context.Context, notes string) error {
	sessionID, err := r.db.StartSession(notes)
	if err != nil {
		return err
	}
	monitoring.Logf("flight recording session %s started", sessionID)

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := r.db.EndSession(sessionID); err != nil {
				monitoring.Errorf("failed to end session %s: %v", sessionID, err)
			}
			monitoring.Logf("flight recording session %s ended", sessionID)
			return ctx.Err()

		case <-ticker.C():
			if err := r.db.RecordSnapshot(sessionID, r.source()); err != nil {
				monitoring.Errorf("failed to record snapshot: %v", err)
			}
		}
	}
}
