package db

import (
	"database/sql"
	"fmt"
)

// ValidationEvent represents a row in the validation_events table.
type ValidationEvent struct {
	ID         int
	RunID      string
	InstanceID string
	Stage      string
	Event      string
	Detail     string
	Timestamp  string
}

// LogValidationEvent inserts one lifecycle event for an instance.
func (d *DB) LogValidationEvent(runID, instanceID, stage, event, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO validation_events (run_id, instance_id, stage, event, detail) VALUES (?, ?, ?, ?, ?)`,
		runID, instanceID, stage, event, detail,
	)
	if err != nil {
		return fmt.Errorf("log validation event: %w", err)
	}
	return nil
}

// GetInstanceEvents returns all events for an instance, oldest first.
func (d *DB) GetInstanceEvents(instanceID string) ([]ValidationEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, instance_id, stage, event, detail, timestamp
		 FROM validation_events WHERE instance_id = ? ORDER BY id ASC`,
		instanceID,
	)
	if err != nil {
		return nil, fmt.Errorf("get instance events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// GetRunEvents returns all events for a batch run, oldest first.
func (d *DB) GetRunEvents(runID string) ([]ValidationEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, instance_id, stage, event, detail, timestamp
		 FROM validation_events WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get run events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanEvents(rows rowScanner) ([]ValidationEvent, error) {
	var events []ValidationEvent
	for rows.Next() {
		var e ValidationEvent
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.RunID, &e.InstanceID, &e.Stage, &e.Event, &detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan validation event: %w", err)
		}
		if detail.Valid {
			e.Detail = detail.String
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate validation events: %w", err)
	}
	return events, nil
}
