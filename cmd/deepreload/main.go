// Deepreload keeps a tree of YAML units loaded in memory and re-executes
// a unit together with everything it transitively imports when asked to,
// when its sources change on disk, when the tracked Git branch moves, or
// on a cron schedule.
//
// Usage:
//
//	# Load the configured roots and keep them fresh
//	deepreload run --config deepreload.yaml
//
//	# Reload one unit and its imports
//	deepreload reload app
//
//	# Show the import graph
//	deepreload graph --output json
//
//	# Check unit sources without executing them
//	deepreload lint
//
//	# Inspect reload history
//	deepreload history --status failure --limit 20
package main

func main() {
	Execute()
}
