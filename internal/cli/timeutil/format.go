// Package timeutil formats server timestamps for coredockctl output.
package timeutil

import (
	"time"
)

// LocalTimeFormat is the layout for timestamps in table output.
// Uses Go's reference time: Mon Jan 2 15:04:05 2006.
const LocalTimeFormat = "Mon Jan 2 15:04:05 2006"

// FormatTime renders a server timestamp in the viewer's local time.
// The zero time renders as "-" so empty API fields stay readable in
// tables.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(LocalTimeFormat)
}
