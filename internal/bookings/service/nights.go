package service

import "time"

// nightsBetween materializes the calendar nights a stay occupies:
// [checkIn, checkOut) at day granularity, so the checkout date itself is
// never occupied and back-to-back stays on the same accommodation do not
// collide.
func nightsBetween(checkIn, checkOut time.Time) []time.Time {
	start := truncateToDate(checkIn)
	end := truncateToDate(checkOut)

	var nights []time.Time
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		nights = append(nights, d)
	}
	return nights
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
