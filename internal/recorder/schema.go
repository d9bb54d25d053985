package recorder

// Schema creates the local persistence tables. Statements are idempotent
// so reopening an existing database is safe.
const Schema = `
CREATE TABLE IF NOT EXISTS sensor_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	district TEXT NOT NULL,
	sensor_type TEXT NOT NULL,
	value REAL NOT NULL DEFAULT 0,
	unit TEXT DEFAULT '',
	severity TEXT NOT NULL DEFAULT 'unknown',
	event_timestamp TEXT DEFAULT '',
	topic TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_sensor_events_district ON sensor_events(district);
CREATE INDEX IF NOT EXISTS idx_sensor_events_severity ON sensor_events(severity);

CREATE TABLE IF NOT EXISTS coordination_actions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_district TEXT NOT NULL,
	target_district TEXT NOT NULL,
	action_type TEXT NOT NULL,
	reason TEXT DEFAULT '',
	event_snapshot TEXT DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_actions_source ON coordination_actions(source_district);
CREATE INDEX IF NOT EXISTS idx_actions_target ON coordination_actions(target_district);
`
