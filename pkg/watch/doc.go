// Package watch reports changes to unit source files.
//
// Events are filtered by extension, hidden files are skipped, and bursts
// of events are collapsed by a Debouncer into a single sorted batch of
// file paths. New directories are watched as they appear.
package watch
