package utils

import (
	"fmt"
	"time"
)

const DayLayout = "2006-01-02"

// DayWindow converts a YYYY-MM-DD day into the half-open UTC range [start, end).
func DayWindow(day string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(DayLayout, day, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: %w", day, err)
	}
	return start, start.AddDate(0, 0, 1), nil
}
