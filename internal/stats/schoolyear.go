package stats

import (
	"fmt"
	"time"
)

// SchoolYearStart возвращает начало учебного года для заданного момента (1 сентября, 00:00:00).
func SchoolYearStart(t time.Time) time.Time {
	return time.Date(SchoolYearStartYear(t), time.September, 1, 0, 0, 0, 0, t.Location())
}

// SchoolYearStartYear — «год» учебного года (например, для 2025-03-01 → 2024).
func SchoolYearStartYear(t time.Time) int {
	if t.Month() < time.September {
		return t.Year() - 1
	}
	return t.Year()
}

// SchoolYearLabel форматирует подпись учебного года момента t: "2024-2025".
func SchoolYearLabel(t time.Time) string {
	y := SchoolYearStartYear(t)
	return fmt.Sprintf("%d-%d", y, y+1)
}

// Quarter returns the school quarter (1..4) of t, counting from SchoolYearStart.
// Sep-Nov → 1, Dec-Feb → 2, Mar-May → 3, Jun-Aug → 4.
func Quarter(t time.Time) int {
	offset := (int(t.Month()) - int(time.September) + 12) % 12
	return offset/3 + 1
}
