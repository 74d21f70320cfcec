package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttendanceRate(t *testing.T) {
	cases := []struct {
		name           string
		present, total int
		want           float64
	}{
		{"no records", 0, 0, 0},
		{"all present", 5, 5, 100},
		{"eight of ten", 8, 10, 80},
		{"rounded to one decimal", 2, 3, 66.7},
		{"one of three", 1, 3, 33.3},
		{"half rounds to even down", 1, 16, 6.2},
		{"half rounds to even up", 3, 16, 18.8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AttendanceRate(tc.present, tc.total))
		})
	}
}

func TestNewSummary_LateIsNotPresent(t *testing.T) {
	s := NewSummary(8, 1, 1)
	assert.Equal(t, 10, s.Total)
	assert.Equal(t, 80.0, s.Rate)
}

func TestWindows(t *testing.T) {
	now := time.Date(2026, 2, 14, 13, 45, 0, 0, time.UTC)

	from, to := Trailing30(now)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC), to)

	from, to = MonthBounds(now)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), to)
}

func TestSchoolYear(t *testing.T) {
	assert.Equal(t, "2024-2025", SchoolYearLabel(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-2026", SchoolYearLabel(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), SchoolYearStart(time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, 1, Quarter(time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2, Quarter(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 3, Quarter(time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 4, Quarter(time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)))
}
