// Package schedule runs periodic reloads and history pruning on cron
// schedules (schedule.reload and schedule.prune).
package schedule
