// Package stats derives session counts, total minutes and the consecutive-day
// streak from the session ledger. All functions are pure.
package stats

import (
	"sort"
	"time"

	"prayer-tracker/internal/sessions/models"
)

// Stats summarizes a ledger.
type Stats struct {
	SessionCount int `json:"session_count"`
	TotalMinutes int `json:"total_minutes"`
	StreakLength int `json:"streak_length"`
}

// DayTotal is the number of minutes recorded on one calendar day.
type DayTotal struct {
	Date    string `json:"date"`
	Minutes int    `json:"minutes"`
	Count   int    `json:"count"`
}

// Compute returns count, summed minutes and streak. Minutes are summed as
// recorded, not de-duplicated by day. Calendar days are taken in loc.
func Compute(records []models.SessionRecord, today time.Time, loc *time.Location) Stats {
	total := 0
	for _, r := range records {
		total += r.DurationMinutes
	}
	return Stats{
		SessionCount: len(records),
		TotalMinutes: total,
		StreakLength: Streak(records, today, loc),
	}
}

// Streak counts consecutive calendar days ending today that have at least one
// session. A day with several sessions counts once; a missing day ends the
// streak. Records dated in the future count as today.
func Streak(records []models.SessionRecord, today time.Time, loc *time.Location) int {
	if len(records) == 0 {
		return 0
	}

	sorted := make([]models.SessionRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	todayDay := calendarDay(today, loc)
	k := 0
	for _, r := range sorted {
		diff := daysBetween(calendarDay(r.CreatedAt, loc), todayDay)
		if diff < 0 {
			diff = 0
		}
		switch {
		case diff == k:
			k++
		case diff > k:
			return k
		default:
			// Day already counted.
		}
	}
	return k
}

// DailyTotals returns per-day minutes for the trailing window of days ending
// today, oldest first.
func DailyTotals(records []models.SessionRecord, today time.Time, loc *time.Location, days int) []DayTotal {
	if days <= 0 {
		return []DayTotal{}
	}

	todayDay := calendarDay(today, loc)
	totals := make([]DayTotal, days)
	for i := range totals {
		d := todayDay.AddDate(0, 0, i-days+1)
		totals[i].Date = d.Format("2006-01-02")
	}

	for _, r := range records {
		diff := daysBetween(calendarDay(r.CreatedAt, loc), todayDay)
		if diff < 0 || diff >= days {
			continue
		}
		idx := days - 1 - diff
		totals[idx].Minutes += r.DurationMinutes
		totals[idx].Count++
	}
	return totals
}

// calendarDay maps t to midnight UTC of its local date in loc, so that day
// arithmetic is immune to DST transitions.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole days from a to b.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
