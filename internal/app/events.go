package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Spok95/school-portal/internal/access"
	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/db"
	"github.com/Spok95/school-portal/internal/models"
	"github.com/Spok95/school-portal/internal/storage"
)

const (
	eventPage      = 50
	maxCalendarDay = 366
)

type EventInput struct {
	Title             string     `json:"title" validate:"required,max=200"`
	Description       string     `json:"description"`
	EventType         string     `json:"event_type" validate:"max=50"`
	StartDate         time.Time  `json:"start_date" validate:"required"`
	EndDate           *time.Time `json:"end_date"`
	StartTime         *string    `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime           *string    `json:"end_time" validate:"omitempty,datetime=15:04"`
	RecurrencePattern string     `json:"recurrence_pattern" validate:"omitempty,oneof=daily weekly monthly yearly"`
	RecurrenceEndDate *time.Time `json:"recurrence_end_date"`
	Location          string     `json:"location" validate:"max=200"`
	VenueDetails      string     `json:"venue_details"`
	IsPublic          *bool      `json:"is_public"`
	TargetGrades      string     `json:"target_grades" validate:"max=100"`
	ImageRef          string     `json:"image_ref"`
	AttachmentRef     string     `json:"attachment_ref"`
	Notify            bool       `json:"notify"`
}

func (a *App) eventFromInput(in EventInput, e *models.Event) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.EventType == "" {
		in.EventType = "general"
	}
	if err := a.check(in); err != nil {
		return err
	}
	for _, ref := range []string{in.ImageRef, in.AttachmentRef} {
		if err := storage.ValidateRef(ref); err != nil {
			return err
		}
	}
	end := in.StartDate
	if in.EndDate != nil {
		end = *in.EndDate
	}
	if dayUTC(end).Before(dayUTC(in.StartDate)) {
		return apperr.Invalid("end_date", "End date cannot be before start date")
	}
	if in.RecurrenceEndDate != nil && dayUTC(*in.RecurrenceEndDate).Before(dayUTC(in.StartDate)) {
		return apperr.Invalid("recurrence_end_date", "Recurrence end date cannot be before start date")
	}

	e.Title, e.Description, e.EventType = in.Title, in.Description, in.EventType
	e.StartDate, e.EndDate = dayUTC(in.StartDate), dayUTC(end)
	e.StartTime, e.EndTime = in.StartTime, in.EndTime
	e.RecurrencePattern, e.RecurrenceEndDate = nil, nil
	if in.RecurrencePattern != "" {
		r := models.Recurrence(in.RecurrencePattern)
		e.RecurrencePattern = &r
		e.RecurrenceEndDate = in.RecurrenceEndDate
	}
	e.Location, e.VenueDetails, e.TargetGrades = in.Location, in.VenueDetails, in.TargetGrades
	e.IsPublic = in.IsPublic == nil || *in.IsPublic
	e.ImageRef, e.AttachmentRef = in.ImageRef, in.AttachmentRef
	return nil
}

func (a *App) withEventURLs(ctx context.Context, e *models.Event) {
	e.ImageURL = a.attachmentURL(ctx, e.ImageRef)
	e.AttachmentURL = a.attachmentURL(ctx, e.AttachmentRef)
}

// ListUpcomingEvents is visible to every role.
func (a *App) ListUpcomingEvents(ctx context.Context, _ access.Identity) ([]models.Event, error) {
	return a.upcomingEvents(ctx, eventPage)
}

func (a *App) upcomingEvents(ctx context.Context, limit int) ([]models.Event, error) {
	list, err := db.ListUpcomingEvents(ctx, a.db, a.today(), limit)
	if err != nil {
		return nil, err
	}
	for i := range list {
		a.withEventURLs(ctx, &list[i])
	}
	return list, nil
}

func (a *App) GetEvent(ctx context.Context, _ access.Identity, eventID int64) (*models.Event, error) {
	e, err := db.GetEvent(ctx, a.db, eventID)
	if err != nil {
		return nil, err
	}
	a.withEventURLs(ctx, e)
	return e, nil
}

// Calendar expands all active events into occurrences within [from, to], ordered by date.
func (a *App) Calendar(ctx context.Context, _ access.Identity, from, to time.Time) ([]Occurrence, error) {
	from, to = dayUTC(from), dayUTC(to)
	if to.Before(from) {
		return nil, apperr.Invalid("to", "End of range cannot be before its start")
	}
	if to.Sub(from) > maxCalendarDay*24*time.Hour {
		return nil, apperr.Invalid("to", fmt.Sprintf("Range cannot exceed %d days", maxCalendarDay))
	}
	events, err := db.ListEventsInRange(ctx, a.db, from, to)
	if err != nil {
		return nil, err
	}
	var out []Occurrence
	for _, e := range events {
		out = append(out, Occurrences(e, from, to)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].EventID < out[j].EventID
	})
	return out, nil
}

func (a *App) CreateEvent(ctx context.Context, id access.Identity, in EventInput) (*models.Event, error) {
	t, err := access.RequireTeacher(id)
	if err != nil {
		return nil, err
	}
	var e models.Event
	if err := a.eventFromInput(in, &e); err != nil {
		return nil, err
	}
	e.CreatedBy = &t.TeacherID
	e.IsActive = true
	if e.ID, err = db.CreateEvent(ctx, a.db, e); err != nil {
		return nil, err
	}
	if in.Notify {
		ids, err := db.ListUserIDsByRole(ctx, a.db, models.Parent)
		if err == nil {
			a.notify(ctx, ids, models.Notification{
				Type:    models.NewEvent,
				Title:   e.Title,
				Message: fmt.Sprintf("%s on %s", e.Title, e.StartDate.Format("2006-01-02")),
				LinkURL: fmt.Sprintf("/events/%d", e.ID),
			})
		}
	}
	a.withEventURLs(ctx, &e)
	return &e, nil
}

func (a *App) UpdateEvent(ctx context.Context, id access.Identity, eventID int64, in EventInput) (*models.Event, error) {
	e, err := a.ownEvent(ctx, id, eventID)
	if err != nil {
		return nil, err
	}
	oldImage, oldAttachment := e.ImageRef, e.AttachmentRef
	if err := a.eventFromInput(in, e); err != nil {
		return nil, err
	}
	if err := db.UpdateEvent(ctx, a.db, *e); err != nil {
		return nil, err
	}
	a.dropObjects(ctx, replaced(oldImage, e.ImageRef), replaced(oldAttachment, e.AttachmentRef))
	a.withEventURLs(ctx, e)
	return e, nil
}

func (a *App) DeleteEvent(ctx context.Context, id access.Identity, eventID int64) error {
	e, err := a.ownEvent(ctx, id, eventID)
	if err != nil {
		return err
	}
	if err := db.DeleteEvent(ctx, a.db, eventID); err != nil {
		return err
	}
	a.dropObjects(ctx, e.ImageRef, e.AttachmentRef)
	return nil
}

func (a *App) CancelEvent(ctx context.Context, id access.Identity, eventID int64) error {
	if _, err := a.ownEvent(ctx, id, eventID); err != nil {
		return err
	}
	return db.CancelEvent(ctx, a.db, eventID)
}

// ownEvent: только создатель события; чужое событие выглядит как отсутствующее.
func (a *App) ownEvent(ctx context.Context, id access.Identity, eventID int64) (*models.Event, error) {
	t, err := access.RequireTeacher(id)
	if err != nil {
		return nil, err
	}
	e, err := db.GetEvent(ctx, a.db, eventID)
	if err != nil {
		return nil, err
	}
	if e.CreatedBy == nil || *e.CreatedBy != t.TeacherID {
		return nil, apperr.ErrNotFound
	}
	return e, nil
}
