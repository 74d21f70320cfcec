package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/ctxutil"
	"github.com/Spok95/school-portal/internal/models"
)

const eventColumns = `e.id, e.title, e.description, e.event_type, e.start_date, e.end_date, e.start_time, e.end_time,
	e.recurrence_pattern, e.recurrence_end_date, e.location, e.venue_details, e.is_public, e.target_grades,
	e.created_by, e.image_ref, e.attachment_ref, e.is_active, e.is_cancelled, e.created_at, e.updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*models.Event, error) {
	var (
		e             models.Event
		startT, endT  sql.NullString
		pattern       sql.NullString
		recurrenceEnd sql.NullTime
		createdBy     sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.EventType, &e.StartDate, &e.EndDate, &startT, &endT,
		&pattern, &recurrenceEnd, &e.Location, &e.VenueDetails, &e.IsPublic, &e.TargetGrades,
		&createdBy, &e.ImageRef, &e.AttachmentRef, &e.IsActive, &e.IsCancelled, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if startT.Valid {
		e.StartTime = &startT.String
	}
	if endT.Valid {
		e.EndTime = &endT.String
	}
	if pattern.Valid {
		r := models.Recurrence(pattern.String)
		e.RecurrencePattern = &r
	}
	if recurrenceEnd.Valid {
		e.RecurrenceEndDate = &recurrenceEnd.Time
	}
	if createdBy.Valid {
		e.CreatedBy = &createdBy.Int64
	}
	return &e, nil
}

func recurrenceArg(r *models.Recurrence) any {
	if r == nil {
		return nil
	}
	return string(*r)
}

func CreateEvent(ctx context.Context, database *sql.DB, e models.Event) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO events (title, description, event_type, start_date, end_date, start_time, end_time,
			recurrence_pattern, recurrence_end_date, location, venue_details, is_public, target_grades,
			created_by, image_ref, attachment_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`, e.Title, e.Description, e.EventType, dateOnly(e.StartDate), dateOnly(e.EndDate), e.StartTime, e.EndTime,
		recurrenceArg(e.RecurrencePattern), e.RecurrenceEndDate, e.Location, e.VenueDetails, e.IsPublic, e.TargetGrades,
		e.CreatedBy, e.ImageRef, e.AttachmentRef).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

func UpdateEvent(ctx context.Context, database *sql.DB, e models.Event) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := database.ExecContext(ctx, `
		UPDATE events
		SET title = $1, description = $2, event_type = $3, start_date = $4, end_date = $5,
		    start_time = $6, end_time = $7, recurrence_pattern = $8, recurrence_end_date = $9,
		    location = $10, venue_details = $11, is_public = $12, target_grades = $13,
		    image_ref = $14, attachment_ref = $15, updated_at = now()
		WHERE id = $16
	`, e.Title, e.Description, e.EventType, dateOnly(e.StartDate), dateOnly(e.EndDate),
		e.StartTime, e.EndTime, recurrenceArg(e.RecurrencePattern), e.RecurrenceEndDate,
		e.Location, e.VenueDetails, e.IsPublic, e.TargetGrades, e.ImageRef, e.AttachmentRef, e.ID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func DeleteEvent(ctx context.Context, database *sql.DB, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := database.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// CancelEvent помечает событие отменённым; запись остаётся в истории.
func CancelEvent(ctx context.Context, database *sql.DB, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := database.ExecContext(ctx, `
		UPDATE events SET is_cancelled = TRUE, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func GetEvent(ctx context.Context, database *sql.DB, id int64) (*models.Event, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return scanEvent(database.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id))
}

// ListUpcomingEvents — активные неотменённые события с датой начала не раньше today.
func ListUpcomingEvents(ctx context.Context, database *sql.DB, today time.Time, limit int) ([]models.Event, error) {
	return listEvents(ctx, database, `
		SELECT `+eventColumns+`
		FROM events e
		WHERE e.is_active AND NOT e.is_cancelled AND e.start_date >= $1
		ORDER BY e.start_date, e.start_time NULLS FIRST, e.id
		LIMIT $2
	`, dateOnly(today), limit)
}

// ListEventsInRange — события, которые могут иметь повторения внутри [from, to].
func ListEventsInRange(ctx context.Context, database *sql.DB, from, to time.Time) ([]models.Event, error) {
	return listEvents(ctx, database, `
		SELECT `+eventColumns+`
		FROM events e
		WHERE e.is_active AND NOT e.is_cancelled
		  AND e.start_date <= $2
		  AND (e.end_date >= $1
		       OR (e.recurrence_pattern IS NOT NULL AND (e.recurrence_end_date IS NULL OR e.recurrence_end_date >= $1)))
		ORDER BY e.start_date, e.id
	`, dateOnly(from), dateOnly(to))
}

func listEvents(ctx context.Context, database *sql.DB, q string, args ...any) ([]models.Event, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
