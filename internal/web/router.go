// Package web exposes the portal over JSON/HTTP with gin.
package web

import (
	"context"
	"database/sql"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Spok95/school-portal/internal/access"
	"github.com/Spok95/school-portal/internal/app"
	"github.com/Spok95/school-portal/internal/auth"
	"github.com/Spok95/school-portal/internal/metrics"
	"github.com/Spok95/school-portal/internal/models"
)

type Deps struct {
	App     *app.App
	DB      *sql.DB
	Tokens  *auth.Issuer
	Log     *zap.Logger
	Resolve Resolver // nil — access.Resolve по DB
}

type handler struct {
	app *app.App
}

func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Resolve == nil {
		database := d.DB
		d.Resolve = func(ctx context.Context, userID int64, role models.Role) (access.Identity, error) {
			return access.Resolve(ctx, database, userID, role)
		}
	}

	r := gin.New()
	r.Use(RequestID(), Logger(d.Log), Recovery(d.Log), Metrics())

	r.GET("/healthz", healthz(d.DB))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	h := &handler{app: d.App}
	api := r.Group("/api")
	api.POST("/auth/login", h.login)

	authed := api.Group("", Auth(d.Tokens, d.Resolve))
	authed.GET("/me", h.me)
	authed.PUT("/me/telegram", h.linkTelegram)

	authed.GET("/notifications", h.listNotifications)
	authed.GET("/notifications/unread-count", h.unreadNotifications)
	authed.POST("/notifications/read-all", h.markAllNotificationsRead)
	authed.POST("/notifications/:id/read", h.markNotificationRead)

	authed.GET("/chat/rooms", h.listRooms)
	authed.POST("/chat/rooms", h.startChat)
	authed.GET("/chat/rooms/:id", h.viewRoom)
	authed.POST("/chat/rooms/:id/messages", h.sendMessage)
	authed.POST("/chat/rooms/:id/read", h.markRoomRead)
	authed.POST("/chat/rooms/:id/archive", h.archiveRoom)
	authed.PATCH("/chat/messages/:id", h.editMessage)

	authed.POST("/chatbot", h.chatbot)

	authed.GET("/announcements", h.listAnnouncements)
	authed.POST("/announcements", h.createAnnouncement)
	authed.GET("/announcements/:id", h.viewAnnouncement)
	authed.PUT("/announcements/:id", h.updateAnnouncement)
	authed.DELETE("/announcements/:id", h.deleteAnnouncement)

	authed.GET("/events", h.listEvents)
	authed.GET("/events/calendar", h.calendar)
	authed.POST("/events", h.createEvent)
	authed.GET("/events/:id", h.getEvent)
	authed.PUT("/events/:id", h.updateEvent)
	authed.DELETE("/events/:id", h.deleteEvent)
	authed.POST("/events/:id/cancel", h.cancelEvent)

	authed.GET("/classes", h.listClasses)
	authed.GET("/classes/:id", h.classDetail)
	authed.GET("/classes/:id/students", h.classStudents)
	authed.GET("/classes/:id/final-grades", h.classFinalGrades)
	authed.POST("/classes/:id/final-grades/recompute", h.recomputeFinalGrades)
	authed.GET("/classes/:id/grade-items", h.listGradeItems)
	authed.PUT("/classes/:id/weights", h.setGradeWeights)
	authed.GET("/classes/:id/grade-template.xlsx", h.gradeTemplate)
	authed.GET("/classes/:id/grade-report.xlsx", h.gradeReport)
	authed.GET("/classes/:id/attendance-report.xlsx", h.attendanceReport)

	authed.POST("/grade-items", h.createGradeItem)
	authed.PUT("/grade-items/:id", h.updateGradeItem)
	authed.DELETE("/grade-items/:id", h.deleteGradeItem)

	authed.GET("/attendance", h.teacherAttendance)
	authed.POST("/attendance", h.recordAttendance)

	authed.GET("/parent/profile", h.parentProfile)
	authed.PUT("/parent/profile", h.updateParentProfile)
	authed.GET("/children", h.listChildren)
	authed.GET("/children/:id", h.childDetail)
	authed.GET("/children/:id/final-grades", h.studentFinalGrades)
	authed.GET("/children/:id/attendance", h.studentAttendance)

	authed.GET("/dashboard/teacher", h.teacherDashboard)
	authed.GET("/dashboard/parent", h.parentDashboard)
	authed.GET("/dashboard/admin", h.adminDashboard)

	admin := authed.Group("/admin")
	admin.POST("/users", h.createUser)
	admin.POST("/children", h.createChild)
	admin.POST("/children/:id/guardians", h.linkGuardian)
	admin.DELETE("/children/:id/guardians/:parent_id", h.unlinkGuardian)
	admin.POST("/classes", h.createClass)
	admin.POST("/classes/:id/enrollments", h.enroll)
	admin.DELETE("/classes/:id/enrollments/:child_id", h.unenroll)
	admin.GET("/bot-messages", h.listBotMessages)
	admin.POST("/bot-messages", h.createBotMessage)
	admin.PUT("/bot-messages/:id", h.updateBotMessage)
	admin.DELETE("/bot-messages/:id", h.deleteBotMessage)
	admin.POST("/backup", h.triggerBackup)
	admin.POST("/backup/restore", h.restoreBackup)

	return r
}
