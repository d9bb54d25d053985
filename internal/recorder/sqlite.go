package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/citygrid/citygrid/internal/event"
)

// SQLiteRecorder persists to a local SQLite database. Useful for
// single-node deployments and development, where no web backend runs.
type SQLiteRecorder struct {
	db *sql.DB
}

// NewSQLiteRecorder opens (or creates) the database and applies the
// schema.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open recorder db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply recorder schema: %w", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

// PersistEvent inserts a sensor event row.
func (r *SQLiteRecorder) PersistEvent(ctx context.Context, ev event.SensorEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sensor_events (district, sensor_type, value, unit, severity, event_timestamp, topic)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.District, ev.SensorType, ev.Value, ev.Unit, ev.Severity, ev.Timestamp, ev.SourceTopic)
	if err != nil {
		return fmt.Errorf("insert sensor event: %w", err)
	}
	return nil
}

// PersistAction inserts a coordination action row. The event snapshot is
// stored as a JSON blob for audit.
func (r *SQLiteRecorder) PersistAction(ctx context.Context, sourceDistrict, targetDistrict, actionType, reason string, snapshot event.SensorEvent) error {
	blob, err := json.Marshal(snapshot)
	if err != nil {
		blob = []byte("{}")
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO coordination_actions (source_district, target_district, action_type, reason, event_snapshot)
		VALUES (?, ?, ?, ?, ?)`,
		sourceDistrict, targetDistrict, actionType, reason, string(blob))
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *SQLiteRecorder) Close() error { return r.db.Close() }

// EventCount returns the number of persisted sensor events.
func (r *SQLiteRecorder) EventCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sensor_events`).Scan(&n)
	return n, err
}

// ActionCount returns the number of persisted coordination actions.
func (r *SQLiteRecorder) ActionCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM coordination_actions`).Scan(&n)
	return n, err
}
