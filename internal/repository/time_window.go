package repository

import "time"

// DefaultWindow bounds scans over the sliver table when the caller gave no
// complete time range.
const DefaultWindow = 30 * 24 * time.Hour

// WindowAdjustment says how NormalizeWindow changed the caller's range.
type WindowAdjustment int

const (
	WindowUnchanged WindowAdjustment = iota
	// WindowForced means both bounds were missing and now covers the last window.
	WindowForced
	// WindowCompleted means one missing bound was derived from the other.
	WindowCompleted
)

// NormalizeWindow derives a concrete [start, end] range when a bounded scan
// is required. Without that requirement the range passes through as given,
// possibly with both ends nil.
func NormalizeWindow(start, end *time.Time, requiresBoundedScan bool, now time.Time, width time.Duration) (*time.Time, *time.Time, WindowAdjustment) {
	if !requiresBoundedScan {
		return start, end, WindowUnchanged
	}
	if width <= 0 {
		width = DefaultWindow
	}

	switch {
	case start == nil && end == nil:
		e := now
		s := now.Add(-width)
		return &s, &e, WindowForced
	case end == nil:
		e := start.Add(width)
		return start, &e, WindowCompleted
	case start == nil:
		s := end.Add(-width)
		return &s, end, WindowCompleted
	default:
		return start, end, WindowUnchanged
	}
}
