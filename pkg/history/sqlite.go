package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)
)

// Supported database/sql driver names.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// SQLiteConfig configures a SQLiteStore.
type SQLiteConfig struct {
	// Driver is DriverModernc or DriverMattn. Default: DriverModernc.
	Driver string

	// Path is the database file path. Parent directories are created.
	Path string

	// MaxOpenConns limits open connections. Default: 4.
	MaxOpenConns int

	// WALMode enables write-ahead logging.
	WALMode bool

	// BusyTimeout is how long to wait on a locked database.
	BusyTimeout time.Duration

	Logger *slog.Logger
}

// SQLiteStore stores records in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	config SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens the database and creates the schema.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("history database path cannot be empty")
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.Driver != DriverModernc && cfg.Driver != DriverMattn {
		return nil, fmt.Errorf("unsupported sqlite driver %q", cfg.Driver)
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 4
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "history.sqlite", "driver", cfg.Driver)

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, newStorageError(cfg.Driver, "mkdir", err)
		}
	}

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, newStorageError(cfg.Driver, "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	s := &SQLiteStore{db: db, config: cfg, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("history store initialized", "path", cfg.Path, "wal_mode", cfg.WALMode)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return newStorageError(s.config.Driver, "enable_wal", err)
		}
	}
	if s.config.BusyTimeout > 0 {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
			return newStorageError(s.config.Driver, "set_busy_timeout", err)
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return newStorageError(s.config.Driver, "create_schema", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return newStorageError(s.config.Driver, "insert_schema_version", err)
	}

	var version sql.NullInt64
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return newStorageError(s.config.Driver, "get_schema_version", err)
	}
	if version.Int64 != SchemaVersion {
		return newStorageError(s.config.Driver, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version.Int64))
	}
	return nil
}

// Record inserts r, assigning an ID if it has none.
func (s *SQLiteStore) Record(ctx context.Context, r *Record) error {
	ensureID(r)

	reloaded, err := json.Marshal(nonNil(r.Reloaded))
	if err != nil {
		return newStorageError(s.config.Driver, "record", err)
	}
	missing, err := json.Marshal(nonNil(r.Missing))
	if err != nil {
		return newStorageError(s.config.Driver, "record", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reloads (
			id, reload_id, root, trigger_name, status,
			reloaded, missing, error, table_version,
			started_at, duration_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ReloadID, r.Root, r.Trigger, r.Status,
		string(reloaded), string(missing), nullString(r.Error), nullString(r.TableVersion),
		r.StartedAt.UnixNano(), int64(r.Duration),
	)
	if err != nil {
		return newStorageError(s.config.Driver, "record", err)
	}
	return nil
}

const selectColumns = `id, reload_id, root, trigger_name, status, reloaded, missing, error, table_version, started_at, duration_ns`

// List returns matching records, newest first.
func (s *SQLiteStore) List(ctx context.Context, q Query) ([]*Record, error) {
	var where []string
	var args []any
	if q.Root != "" {
		where = append(where, "root = ?")
		args = append(args, q.Root)
	}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, q.Status)
	}
	if !q.Since.IsZero() {
		where = append(where, "started_at >= ?")
		args = append(args, q.Since.UnixNano())
	}

	query := "SELECT " + selectColumns + " FROM reloads"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	query += " ORDER BY started_at DESC, id ASC LIMIT ? OFFSET ?"
	args = append(args, limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, newStorageError(s.config.Driver, "list", err)
	}
	defer rows.Close()

	out := []*Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, newStorageError(s.config.Driver, "scan", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError(s.config.Driver, "list", err)
	}
	return out, nil
}

// Get returns the record with id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM reloads WHERE id = ?", id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, newStorageError(s.config.Driver, "get", err)
	}
	return r, nil
}

// Prune deletes records that started before olderThan.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM reloads WHERE started_at < ?", olderThan.UnixNano())
	if err != nil {
		return 0, newStorageError(s.config.Driver, "prune", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, newStorageError(s.config.Driver, "prune", err)
	}
	if n > 0 {
		s.logger.Info("pruned history", "deleted", n, "older_than", olderThan)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var (
		r                 Record
		reloaded, missing string
		errMsg, version   sql.NullString
		startedAt, dur    int64
	)
	if err := sc.Scan(&r.ID, &r.ReloadID, &r.Root, &r.Trigger, &r.Status,
		&reloaded, &missing, &errMsg, &version, &startedAt, &dur); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(reloaded), &r.Reloaded); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(missing), &r.Missing); err != nil {
		return nil, err
	}
	if len(r.Missing) == 0 {
		r.Missing = nil
	}
	r.Error = errMsg.String
	r.TableVersion = version.String
	r.StartedAt = time.Unix(0, startedAt)
	r.Duration = time.Duration(dur)
	return &r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
