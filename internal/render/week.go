package render

import (
	"fmt"
	"time"
)

// WeekBounds returns the half-open [start, end) interval of the ISO week
// containing t: Monday 00:00 local time through the following Monday.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	start = start.AddDate(0, 0, -(weekday - 1))
	return start, start.AddDate(0, 0, 7)
}

// WeekLabel formats the ISO year-week of t, e.g. "2026-W05".
func WeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// DigestTitle is the weekly digest heading for t's ISO week.
func DigestTitle(t time.Time) string {
	return "AI Weekly Digest — " + WeekLabel(t)
}
