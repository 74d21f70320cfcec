package app

import (
	"time"

	"github.com/Spok95/school-portal/internal/models"
)

// maxOccurrences bounds expansion of a single event inside one window.
const maxOccurrences = 400

type Occurrence struct {
	EventID int64     `json:"event_id"`
	Title   string    `json:"title"`
	Date    time.Time `json:"date"`
	EndDate time.Time `json:"end_date"`
}

// Occurrences expands e into the dates it happens on within [from, to] (inclusive days).
// A non-recurring event yields at most one occurrence, if its span overlaps the window.
func Occurrences(e models.Event, from, to time.Time) []Occurrence {
	from, to = dayUTC(from), dayUTC(to)
	start, end := dayUTC(e.StartDate), dayUTC(e.EndDate)
	if end.Before(start) {
		end = start
	}
	span := end.Sub(start)

	if e.RecurrencePattern == nil || !e.RecurrencePattern.Valid() {
		if start.After(to) || end.Before(from) {
			return nil
		}
		return []Occurrence{{EventID: e.ID, Title: e.Title, Date: start, EndDate: end}}
	}

	last := to
	if e.RecurrenceEndDate != nil && dayUTC(*e.RecurrenceEndDate).Before(last) {
		last = dayUTC(*e.RecurrenceEndDate)
	}

	var out []Occurrence
	for i := 0; len(out) < maxOccurrences; i++ {
		d, ok := step(start, *e.RecurrencePattern, i)
		if d.After(last) {
			break
		}
		if !ok || d.Add(span).Before(from) {
			continue
		}
		out = append(out, Occurrence{EventID: e.ID, Title: e.Title, Date: d, EndDate: d.Add(span)})
	}
	return out
}

// step returns the i-th repetition; ok is false when the month has no such day (31st, Feb 29).
func step(start time.Time, p models.Recurrence, i int) (time.Time, bool) {
	switch p {
	case models.Daily:
		return start.AddDate(0, 0, i), true
	case models.Weekly:
		return start.AddDate(0, 0, 7*i), true
	case models.Monthly:
		d := start.AddDate(0, i, 0)
		return d, d.Day() == start.Day()
	case models.Yearly:
		d := start.AddDate(i, 0, 0)
		return d, d.Day() == start.Day()
	}
	return start, i == 0
}

func dayUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
