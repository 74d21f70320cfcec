package stats

import (
	"math"
	"time"
)

// Summary — сводка посещаемости за окно.
type Summary struct {
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Late    int     `json:"late"`
	Total   int     `json:"total"`
	Rate    float64 `json:"attendance_rate"`
}

// NewSummary считает процент присутствия; late не считается присутствием.
func NewSummary(present, absent, late int) Summary {
	total := present + absent + late
	return Summary{
		Present: present,
		Absent:  absent,
		Late:    late,
		Total:   total,
		Rate:    AttendanceRate(present, total),
	}
}

// AttendanceRate = present/total*100, округлено до 0.1 (половина — к чётному); 0 при total == 0.
func AttendanceRate(present, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.RoundToEven(float64(present)/float64(total)*1000) / 10
}

// Trailing30 — окно [today-30d, today] по календарным дням.
func Trailing30(now time.Time) (from, to time.Time) {
	today := day(now)
	return today.AddDate(0, 0, -30), today
}

// MonthBounds — первый и последний день месяца момента now.
func MonthBounds(now time.Time) (from, to time.Time) {
	y, m, _ := now.Date()
	from = time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	return from, from.AddDate(0, 1, -1)
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
