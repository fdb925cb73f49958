package config

import "time"

// Constants for application-wide use
const (
	// Default Strings
	DefaultLabel = "Prayer"

	// Recording policy
	DefaultMinSessionSeconds = 10

	// Timer
	DefaultTickInterval = 100 * time.Millisecond
	SnapshotKey         = "timer.snapshot"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100

	// Export
	MaxExportLimit = 10000

	// Statistics
	StatsDays = 7
)
