package util

import "time"

// BusinessDays returns every weekday date in [start, end], normalised to
// midnight UTC. Exchange holidays are not modelled; daily-bar providers
// simply return no bar for them.
func BusinessDays(start, end time.Time) []time.Time {
	start = midnightUTC(start)
	end = midnightUTC(end)

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		days = append(days, d)
	}
	return days
}

// IsBusinessDay reports whether t falls on a weekday.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
