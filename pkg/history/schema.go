package history

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the history tables. Timestamps are Unix nanoseconds and
// list columns hold JSON arrays, so both SQLite drivers read them back
// identically.
const Schema = `
CREATE TABLE IF NOT EXISTS reloads (
    id TEXT PRIMARY KEY,
    reload_id TEXT NOT NULL,
    root TEXT NOT NULL,
    trigger_name TEXT NOT NULL,
    status TEXT NOT NULL,
    reloaded TEXT NOT NULL,
    missing TEXT NOT NULL,
    error TEXT,
    table_version TEXT,
    started_at INTEGER NOT NULL,
    duration_ns INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reloads_started_at ON reloads(started_at);
CREATE INDEX IF NOT EXISTS idx_reloads_root ON reloads(root);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

const (
	insertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`
	getSchemaVersion    = `SELECT MAX(version) FROM schema_version`
)
