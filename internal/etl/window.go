package etl

import (
	"fmt"
	"time"
)

// Window is an inclusive date range an ingestion run operates on.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds a window after validating start <= end.
func NewWindow(start, end time.Time) (Window, error) {
	if start.After(end) {
		return Window{}, fmt.Errorf("invalid window: start %s after end %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Window{Start: start, End: end}, nil
}

// ParseWindow builds a window from "YYYY-MM-DD" strings interpreted in loc.
// An empty end defaults to today in loc. The end day is included whole, so
// Contains accepts timestamps up to the last nanosecond of that day.
func ParseWindow(from, to string, loc *time.Location) (Window, error) {
	start, err := time.ParseInLocation("2006-01-02", from, loc)
	if err != nil {
		return Window{}, fmt.Errorf("invalid window start %q: %w", from, err)
	}

	endDay := time.Now().In(loc)
	if to != "" {
		endDay, err = time.ParseInLocation("2006-01-02", to, loc)
		if err != nil {
			return Window{}, fmt.Errorf("invalid window end %q: %w", to, err)
		}
	}
	end := time.Date(endDay.Year(), endDay.Month(), endDay.Day(), 0, 0, 0, 0, loc).
		AddDate(0, 0, 1).Add(-time.Nanosecond)

	return NewWindow(start, end)
}

// Contains reports whether t falls inside the window, boundaries included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// String renders the window as "YYYY-MM-DD..YYYY-MM-DD" for logs.
func (w Window) String() string {
	return w.Start.Format("2006-01-02") + ".." + w.End.Format("2006-01-02")
}
