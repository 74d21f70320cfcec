package app

import (
	"context"

	"github.com/Spok95/school-portal/internal/access"
	"github.com/Spok95/school-portal/internal/db"
	"github.com/Spok95/school-portal/internal/models"
	"github.com/Spok95/school-portal/internal/stats"
)

type TeacherDashboard struct {
	ClassCount    int                   `json:"class_count"`
	StudentCount  int                   `json:"student_count"`
	Classes       []models.Class        `json:"classes"`
	RecentGrades  []models.GradeItem    `json:"recent_grades"`
	Announcements []models.Announcement `json:"announcements"`
}

func (a *App) TeacherDashboard(ctx context.Context, id access.Identity) (*TeacherDashboard, error) {
	t, err := access.RequireTeacher(id)
	if err != nil {
		return nil, err
	}
	classes, err := db.ListClassesByTeacher(ctx, a.db, t.TeacherID)
	if err != nil {
		return nil, err
	}
	students, err := db.CountStudentsByTeacher(ctx, a.db, t.TeacherID)
	if err != nil {
		return nil, err
	}
	recent, err := db.RecentGradeItemsByTeacher(ctx, a.db, t.TeacherID, 10)
	if err != nil {
		return nil, err
	}
	anns, err := db.ListAnnouncementsByTeacher(ctx, a.db, t.TeacherID, 5)
	if err != nil {
		return nil, err
	}
	return &TeacherDashboard{
		ClassCount:    len(classes),
		StudentCount:  students,
		Classes:       classes,
		RecentGrades:  recent,
		Announcements: anns,
	}, nil
}

type ChildOverview struct {
	Child        models.Child        `json:"child"`
	LatestGrades []models.FinalGrade `json:"latest_grades"`
	Attendance   []models.Attendance `json:"recent_attendance"`
	Month        stats.Summary       `json:"month_stats"`
}

type ParentDashboard struct {
	Children      []ChildOverview       `json:"children"`
	Announcements []models.Announcement `json:"announcements"`
	Events        []models.Event        `json:"upcoming_events"`
}

// ParentDashboard — по каждому ребёнку последние оценки, посещаемость и статистика текущего месяца.
func (a *App) ParentDashboard(ctx context.Context, id access.Identity) (*ParentDashboard, error) {
	p, err := access.RequireParent(id)
	if err != nil {
		return nil, err
	}
	children, err := db.ListChildrenForParent(ctx, a.db, p.ParentID)
	if err != nil {
		return nil, err
	}
	out := &ParentDashboard{Children: make([]ChildOverview, 0, len(children))}
	for _, c := range children {
		grades, err := db.LatestFinalGradesForChild(ctx, a.db, c.ID, 5)
		if err != nil {
			return nil, err
		}
		att, err := db.ListAttendanceForChild(ctx, a.db, c.ID, 10)
		if err != nil {
			return nil, err
		}
		month, err := a.attendanceSummary(ctx, c.ID, stats.MonthBounds)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, ChildOverview{Child: c, LatestGrades: grades, Attendance: att, Month: month})
	}
	if out.Announcements, err = a.listAnnouncements(ctx, id, 5); err != nil {
		return nil, err
	}
	if out.Events, err = a.upcomingEvents(ctx, 5); err != nil {
		return nil, err
	}
	return out, nil
}

type AdminDashboard struct {
	Users               map[models.Role]int `json:"users"`
	ClassCount          int                 `json:"class_count"`
	ActiveBotMessages   int                 `json:"active_bot_messages"`
	UnreadNotifications int                 `json:"unread_notifications"`
}

func (a *App) AdminDashboard(ctx context.Context, id access.Identity) (*AdminDashboard, error) {
	adm, err := access.RequireAdmin(id)
	if err != nil {
		return nil, err
	}
	var d AdminDashboard
	if d.Users, err = db.CountUsersByRole(ctx, a.db); err != nil {
		return nil, err
	}
	if d.ClassCount, err = db.CountClasses(ctx, a.db); err != nil {
		return nil, err
	}
	if d.ActiveBotMessages, err = db.CountActiveBotMessages(ctx, a.db); err != nil {
		return nil, err
	}
	if d.UnreadNotifications, err = db.UnreadNotificationCount(ctx, a.db, adm.UserID); err != nil {
		return nil, err
	}
	return &d, nil
}
