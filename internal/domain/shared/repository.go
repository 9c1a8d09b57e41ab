package shared

import "time"

const (
	// DefaultLogLimit is the page size used when a LogFilter has no limit
	DefaultLogLimit = 50
	// MaxLogLimit caps a single page of log rows
	MaxLogLimit = 500
)

// LogFilter selects a window of an append-only log ordered by created_at
type LogFilter struct {
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}

// Normalized returns a copy with Limit clamped to (0, MaxLogLimit] and Offset >= 0
func (f LogFilter) Normalized() LogFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultLogLimit
	}
	if f.Limit > MaxLogLimit {
		f.Limit = MaxLogLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
