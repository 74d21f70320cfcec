package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/school-portal/internal/access"
	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/db"
	"github.com/Spok95/school-portal/internal/export"
	"github.com/Spok95/school-portal/internal/models"
	"github.com/Spok95/school-portal/internal/stats"
)

const (
	attendanceHistory = 30
	teacherWindowDays = 7
)

type AttendanceMark struct {
	ChildID int64  `json:"child_id" validate:"required"`
	Status  string `json:"status" validate:"required,oneof=present absent late"`
	Remarks string `json:"remarks" validate:"max=500"`
}

type AttendanceInput struct {
	ClassID int64            `json:"class_id" validate:"required"`
	Date    *time.Time       `json:"date"`
	Entries []AttendanceMark `json:"entries" validate:"required,min=1,dive"`
}

// RecordAttendance upserts a class's marks for one day. Guardians of absent
// children get an attendance alert.
func (a *App) RecordAttendance(ctx context.Context, id access.Identity, in AttendanceInput) (int, error) {
	t, err := access.RequireTeacher(id)
	if err != nil {
		return 0, err
	}
	if err := a.check(in); err != nil {
		return 0, err
	}
	seen := make(map[int64]bool, len(in.Entries))
	for _, m := range in.Entries {
		if seen[m.ChildID] {
			return 0, apperr.Invalid("child_id", fmt.Sprintf("Student %d is listed more than once", m.ChildID))
		}
		seen[m.ChildID] = true
	}
	day := a.today()
	if in.Date != nil {
		day = dayUTC(*in.Date)
	}
	if day.After(a.today()) {
		return 0, apperr.Invalid("date", "Attendance cannot be recorded for a future date")
	}
	if err := a.gate.Class(ctx, id, in.ClassID, true); err != nil {
		return 0, err
	}

	roster, err := db.ListEnrollments(ctx, a.db, in.ClassID)
	if err != nil {
		return 0, err
	}
	names := make(map[int64]string, len(roster))
	for _, e := range roster {
		if e.Child != nil {
			names[e.ChildID] = e.Child.FullName()
		}
	}

	entries := make([]db.AttendanceEntry, 0, len(in.Entries))
	for _, m := range in.Entries {
		if _, ok := names[m.ChildID]; !ok {
			return 0, apperr.Invalid("child_id", fmt.Sprintf("Student %d is not enrolled in this class", m.ChildID))
		}
		entries = append(entries, db.AttendanceEntry{ChildID: m.ChildID, Status: models.AttendanceStatus(m.Status), Remarks: m.Remarks})
	}
	if err := db.RecordAttendance(ctx, a.db, t.TeacherID, day, entries); err != nil {
		return 0, err
	}

	for _, e := range entries {
		if e.Status != models.Absent {
			continue
		}
		guardians, err := db.GuardianUserIDs(ctx, a.db, e.ChildID)
		if err != nil {
			a.log.Warn("guardians lookup failed", zap.Int64("child_id", e.ChildID), zap.Error(err))
			continue
		}
		a.notify(ctx, guardians, models.Notification{
			Type:    models.AttendanceAlert,
			Title:   "Absence recorded",
			Message: fmt.Sprintf("%s was marked absent on %s", names[e.ChildID], day.Format("2006-01-02")),
			LinkURL: fmt.Sprintf("/children/%d", e.ChildID),
		})
	}
	return len(entries), nil
}

// TeacherAttendance lists marks the teacher recorded over the last week.
func (a *App) TeacherAttendance(ctx context.Context, id access.Identity) ([]models.Attendance, error) {
	t, err := access.RequireTeacher(id)
	if err != nil {
		return nil, err
	}
	return db.ListAttendanceByTeacherSince(ctx, a.db, t.TeacherID, a.today().AddDate(0, 0, -teacherWindowDays))
}

type StudentAttendance struct {
	Records []models.Attendance `json:"records"`
	Summary stats.Summary       `json:"summary"`
}

// StudentAttendance returns the last 30 records and the trailing 30-day summary.
func (a *App) StudentAttendance(ctx context.Context, id access.Identity, childID int64) (*StudentAttendance, error) {
	if err := a.gate.Child(ctx, id, childID); err != nil {
		return nil, err
	}
	records, err := db.ListAttendanceForChild(ctx, a.db, childID, attendanceHistory)
	if err != nil {
		return nil, err
	}
	sum, err := a.attendanceSummary(ctx, childID, stats.Trailing30)
	if err != nil {
		return nil, err
	}
	return &StudentAttendance{Records: records, Summary: sum}, nil
}

func (a *App) attendanceSummary(ctx context.Context, childID int64, window func(time.Time) (time.Time, time.Time)) (stats.Summary, error) {
	from, to := window(a.today())
	c, err := db.CountAttendance(ctx, a.db, childID, from, to)
	if err != nil {
		return stats.Summary{}, err
	}
	return stats.NewSummary(c.Present, c.Absent, c.Late), nil
}

// AttendanceReport builds the class attendance workbook for [from, to].
func (a *App) AttendanceReport(ctx context.Context, id access.Identity, classID int64, from, to time.Time) (*export.Workbook, error) {
	from, to = dayUTC(from), dayUTC(to)
	if to.Before(from) {
		return nil, apperr.Invalid("to", "End of range cannot be before its start")
	}
	if err := a.staffClass(ctx, id, classID, false); err != nil {
		return nil, err
	}
	class, err := db.GetClass(ctx, a.db, classID)
	if err != nil {
		return nil, err
	}
	records, err := db.ListAttendanceForClass(ctx, a.db, classID, from, to)
	if err != nil {
		return nil, err
	}
	return export.AttendanceReport(*class, records, from.Format("2006-01-02"), to.Format("2006-01-02"))
}
