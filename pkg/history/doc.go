// Package history records the outcome of every reload.
//
// The SQLite store works with either the pure-Go modernc.org/sqlite driver
// ("sqlite", the default) or github.com/mattn/go-sqlite3 ("sqlite3", needs
// cgo). Records older than history.retention_days are removed by the prune
// schedule.
package history
