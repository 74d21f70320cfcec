package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/school-portal/internal/access"
	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/db"
	"github.com/Spok95/school-portal/internal/models"
	"github.com/Spok95/school-portal/internal/storage"
)

const announcementPage = 50

type AnnouncementInput struct {
	Title          string     `json:"title" validate:"required,max=200"`
	Content        string     `json:"content" validate:"required"`
	Category       string     `json:"category" validate:"max=50"`
	Priority       string     `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	TargetAudience string     `json:"target_audience" validate:"max=200"`
	AttachmentRef  string     `json:"attachment_ref"`
	IsPublished    *bool      `json:"is_published"`
	ExpiryDate     *time.Time `json:"expiry_date"`
	Notify         bool       `json:"notify"`
}

func (in *AnnouncementInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if in.Category == "" {
		in.Category = "general"
	}
	if in.Priority == "" {
		in.Priority = "normal"
	}
	if strings.TrimSpace(in.TargetAudience) == "" {
		in.TargetAudience = "all"
	}
}

// AudienceTokens lists the target_audience tokens an identity may see.
// nil means no audience filter (admin).
func AudienceTokens(id access.Identity, gradeLevels []int) []string {
	switch id.(type) {
	case access.ParentIdentity:
		out := []string{"all", "parents"}
		for _, g := range gradeLevels {
			out = append(out, fmt.Sprintf("grade:%d", g))
		}
		return out
	case access.TeacherIdentity:
		return []string{"all", "teachers"}
	}
	return nil
}

func (a *App) audience(ctx context.Context, id access.Identity) ([]string, error) {
	switch v := id.(type) {
	case access.ParentIdentity:
		levels, err := db.GradeLevelsForParent(ctx, a.db, v.ParentID)
		if err != nil {
			return nil, err
		}
		return AudienceTokens(id, levels), nil
	case access.TeacherIdentity, access.AdminIdentity:
		return AudienceTokens(id, nil), nil
	}
	return nil, apperr.ErrUnauthenticated
}

func (a *App) ListAnnouncements(ctx context.Context, id access.Identity) ([]models.Announcement, error) {
	return a.listAnnouncements(ctx, id, announcementPage)
}

func (a *App) listAnnouncements(ctx context.Context, id access.Identity, limit int) ([]models.Announcement, error) {
	tokens, err := a.audience(ctx, id)
	if err != nil {
		return nil, err
	}
	list, err := db.ListVisibleAnnouncements(ctx, a.db, tokens, a.now(), limit)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].AttachmentURL = a.attachmentURL(ctx, list[i].AttachmentRef)
	}
	return list, nil
}

// ViewAnnouncement returns one visible announcement and records the caller's read.
func (a *App) ViewAnnouncement(ctx context.Context, id access.Identity, announcementID int64) (*models.Announcement, error) {
	ann, err := db.GetAnnouncement(ctx, a.db, announcementID)
	if err != nil {
		return nil, err
	}
	if !a.canSee(ctx, id, ann) {
		return nil, apperr.ErrNotFound
	}
	if err := db.RecordAnnouncementView(ctx, a.db, ann.ID, id.User()); err != nil {
		return nil, err
	}
	ann.ViewsCount++
	ann.AttachmentURL = a.attachmentURL(ctx, ann.AttachmentRef)
	return ann, nil
}

func (a *App) canSee(ctx context.Context, id access.Identity, ann *models.Announcement) bool {
	if _, ok := id.(access.AdminIdentity); ok {
		return true
	}
	if t, ok := id.(access.TeacherIdentity); ok && ann.PostedBy != nil && *ann.PostedBy == t.TeacherID {
		return true
	}
	if !ann.IsPublished || ann.Expired(a.now()) || ann.PublishDate.After(a.now()) {
		return false
	}
	tokens, err := a.audience(ctx, id)
	if err != nil {
		return false
	}
	return audienceMatch(ann.TargetAudience, tokens)
}

func audienceMatch(target string, tokens []string) bool {
	for _, t := range strings.Split(strings.ReplaceAll(strings.ToLower(target), " ", ""), ",") {
		for _, want := range tokens {
			if t == want {
				return true
			}
		}
	}
	return false
}

func (a *App) CreateAnnouncement(ctx context.Context, id access.Identity, in AnnouncementInput) (*models.Announcement, error) {
	t, err := access.RequireTeacher(id)
	if err != nil {
		return nil, err
	}
	in.normalize()
	if err := a.check(in); err != nil {
		return nil, err
	}
	if err := storage.ValidateRef(in.AttachmentRef); err != nil {
		return nil, err
	}
	ann := models.Announcement{
		Title:          in.Title,
		Content:        in.Content,
		Category:       in.Category,
		Priority:       in.Priority,
		TargetAudience: in.TargetAudience,
		PostedBy:       &t.TeacherID,
		AttachmentRef:  in.AttachmentRef,
		IsPublished:    in.IsPublished == nil || *in.IsPublished,
		PublishDate:    a.now(),
		ExpiryDate:     in.ExpiryDate,
	}
	ann.ID, err = db.CreateAnnouncement(ctx, a.db, ann)
	if err != nil {
		return nil, err
	}
	if in.Notify && ann.IsPublished {
		a.announce(ctx, &ann)
	}
	return &ann, nil
}

// announce notifies every user of the roles the audience names.
func (a *App) announce(ctx context.Context, ann *models.Announcement) {
	roles := map[models.Role]bool{}
	for _, t := range strings.Split(strings.ReplaceAll(strings.ToLower(ann.TargetAudience), " ", ""), ",") {
		switch {
		case t == "all":
			roles[models.Parent], roles[models.Teacher] = true, true
		case t == "teachers":
			roles[models.Teacher] = true
		case t == "parents" || strings.HasPrefix(t, "grade:"):
			roles[models.Parent] = true
		}
	}
	for role := range roles {
		ids, err := db.ListUserIDsByRole(ctx, a.db, role)
		if err != nil {
			a.log.Warn("announcement recipients", zap.String("role", string(role)), zap.Error(err))
			continue
		}
		a.notify(ctx, ids, models.Notification{
			Type:    models.NewAnnouncement,
			Title:   ann.Title,
			Message: preview(ann.Content, 120),
			LinkURL: fmt.Sprintf("/announcements/%d", ann.ID),
		})
	}
}

func (a *App) UpdateAnnouncement(ctx context.Context, id access.Identity, announcementID int64, in AnnouncementInput) (*models.Announcement, error) {
	ann, err := a.ownAnnouncement(ctx, id, announcementID, false)
	if err != nil {
		return nil, err
	}
	in.normalize()
	if err := a.check(in); err != nil {
		return nil, err
	}
	if err := storage.ValidateRef(in.AttachmentRef); err != nil {
		return nil, err
	}
	oldRef := ann.AttachmentRef
	ann.Title, ann.Content, ann.Category = in.Title, in.Content, in.Category
	ann.Priority, ann.TargetAudience = in.Priority, in.TargetAudience
	ann.AttachmentRef, ann.ExpiryDate = in.AttachmentRef, in.ExpiryDate
	if in.IsPublished != nil {
		ann.IsPublished = *in.IsPublished
	}
	if err := db.UpdateAnnouncement(ctx, a.db, *ann); err != nil {
		return nil, err
	}
	a.dropObjects(ctx, replaced(oldRef, ann.AttachmentRef))
	return ann, nil
}

func (a *App) DeleteAnnouncement(ctx context.Context, id access.Identity, announcementID int64) error {
	ann, err := a.ownAnnouncement(ctx, id, announcementID, true)
	if err != nil {
		return err
	}
	if err := db.DeleteAnnouncement(ctx, a.db, announcementID); err != nil {
		return err
	}
	a.dropObjects(ctx, ann.AttachmentRef)
	return nil
}

// ownAnnouncement loads an announcement the caller authored; adminOK lets admins through.
func (a *App) ownAnnouncement(ctx context.Context, id access.Identity, announcementID int64, adminOK bool) (*models.Announcement, error) {
	switch id.(type) {
	case access.TeacherIdentity:
	case access.AdminIdentity:
		if !adminOK {
			return nil, apperr.ErrForbidden
		}
	default:
		return nil, apperr.ErrForbidden
	}
	ann, err := db.GetAnnouncement(ctx, a.db, announcementID)
	if err != nil {
		return nil, err
	}
	if t, ok := id.(access.TeacherIdentity); ok {
		if ann.PostedBy == nil || *ann.PostedBy != t.TeacherID {
			return nil, apperr.ErrNotFound
		}
	}
	return ann, nil
}
