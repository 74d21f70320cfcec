package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Spok95/school-portal/internal/ctxutil"
	"github.com/Spok95/school-portal/internal/models"
)

// AttendanceEntry — одна отметка из формы учителя.
type AttendanceEntry struct {
	ChildID int64
	Status  models.AttendanceStatus
	Remarks string
}

// AttendanceCounts — счётчики по статусам за период.
type AttendanceCounts struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
}

func (c AttendanceCounts) Total() int { return c.Present + c.Absent + c.Late }

// RecordAttendance сохраняет отметки класса за день; повторная отметка перезаписывает прежнюю.
func RecordAttendance(ctx context.Context, database *sql.DB, teacherID int64, date time.Time, entries []AttendanceEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attendance (child_id, date, status, remarks, recorded_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (child_id, date)
		DO UPDATE SET status = EXCLUDED.status, remarks = EXCLUDED.remarks, recorded_by = EXCLUDED.recorded_by
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	day := dateOnly(date)
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ChildID, day, string(e.Status), e.Remarks, teacherID); err != nil {
			return fmt.Errorf("attendance child=%d: %w", e.ChildID, err)
		}
	}
	return tx.Commit()
}

const attendanceSelect = `
	SELECT a.id, a.child_id, a.date, a.status, a.remarks, COALESCE(a.recorded_by, 0), a.created_at,
	       c.last_name || ' ' || c.first_name
	FROM attendance a
	JOIN children c ON c.id = a.child_id`

// ListAttendanceByTeacherSince — отметки, поставленные учителем начиная с даты.
func ListAttendanceByTeacherSince(ctx context.Context, database *sql.DB, teacherID int64, since time.Time) ([]models.Attendance, error) {
	return listAttendance(ctx, database, attendanceSelect+`
		WHERE a.recorded_by = $1 AND a.date >= $2
		ORDER BY a.date DESC, c.last_name
	`, teacherID, dateOnly(since))
}

// ListAttendanceForChild — последние limit записей ребёнка, новые сверху.
func ListAttendanceForChild(ctx context.Context, database *sql.DB, childID int64, limit int) ([]models.Attendance, error) {
	return listAttendance(ctx, database, attendanceSelect+`
		WHERE a.child_id = $1
		ORDER BY a.date DESC
		LIMIT $2
	`, childID, limit)
}

// ListAttendanceForClass — отметки учеников класса в диапазоне [from, to].
func ListAttendanceForClass(ctx context.Context, database *sql.DB, classID int64, from, to time.Time) ([]models.Attendance, error) {
	return listAttendance(ctx, database, attendanceSelect+`
		JOIN enrollments e ON e.child_id = a.child_id AND e.class_id = $1
		WHERE a.date BETWEEN $2 AND $3
		ORDER BY a.date, c.last_name, c.first_name
	`, classID, dateOnly(from), dateOnly(to))
}

func listAttendance(ctx context.Context, database *sql.DB, q string, args ...any) ([]models.Attendance, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Attendance
	for rows.Next() {
		var a models.Attendance
		if err := rows.Scan(&a.ID, &a.ChildID, &a.Date, &a.Status, &a.Remarks, &a.RecordedBy, &a.CreatedAt, &a.ChildName); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountAttendance считает отметки ребёнка по статусам в диапазоне [from, to].
func CountAttendance(ctx context.Context, database *sql.DB, childID int64, from, to time.Time) (AttendanceCounts, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var c AttendanceCounts
	err := database.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'present'),
			COUNT(*) FILTER (WHERE status = 'absent'),
			COUNT(*) FILTER (WHERE status = 'late')
		FROM attendance
		WHERE child_id = $1 AND date BETWEEN $2 AND $3
	`, childID, dateOnly(from), dateOnly(to)).Scan(&c.Present, &c.Absent, &c.Late)
	return c, err
}
