package services

import (
	"fmt"
	"ident_index_app_go/services/mainframe"
	"time"
)

// ParseDate parses a YYYY-MM-DD date in UTC
func ParseDate(dateStr string) (time.Time, error) {
	parsedTime, err := time.Parse(mainframe.StorageDateLayout, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: expected YYYY-MM-DD")
	}
	return parsedTime, nil
}

// ParseDateRange parses optional YYYY-MM-DD bounds. The upper bound covers
// the whole of its day. Empty strings leave the bound zero.
func ParseDateRange(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if from != "" {
		if start, err = ParseDate(from); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("date_from: %w", err)
		}
	}
	if to != "" {
		if end, err = ParseDate(to); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("date_to: %w", err)
		}
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("date_to is before date_from")
	}
	return start, end, nil
}
