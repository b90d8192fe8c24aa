package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100
)

// Activity pane limits.
const (
	// ActivityHeight is the number of activity lines kept on screen.
	ActivityHeight = 5

	// ActivityLimit is the maximum number of activity lines kept in memory.
	ActivityLimit = 200
)

// Timing constants.
const (
	// DefaultUIInterval is how often the UI re-reads the seat store.
	DefaultUIInterval = time.Second
)
