package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/school-portal/internal/app"
)

func (h *handler) login(c *gin.Context) {
	var in app.LoginInput
	if !bind(c, &in) {
		return
	}
	tok, err := h.app.Login(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, tok)
}

func (h *handler) me(c *gin.Context) {
	me, err := h.app.Me(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, me)
}

func (h *handler) linkTelegram(c *gin.Context) {
	var in struct {
		ChatID *int64 `json:"chat_id"`
	}
	if !bind(c, &in) {
		return
	}
	if err := h.app.LinkTelegram(c.Request.Context(), identity(c), in.ChatID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) parentProfile(c *gin.Context) {
	p, err := h.app.ParentProfile(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, p)
}

func (h *handler) updateParentProfile(c *gin.Context) {
	var in app.ProfileInput
	if !bind(c, &in) {
		return
	}
	p, err := h.app.UpdateParentProfile(c.Request.Context(), identity(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, p)
}

func (h *handler) listChildren(c *gin.Context) {
	list, err := h.app.ListChildren(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"children": list})
}

func (h *handler) childDetail(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	d, err := h.app.ChildDetail(c.Request.Context(), identity(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, d)
}

func (h *handler) studentFinalGrades(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := h.app.StudentFinalGrades(c.Request.Context(), identity(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"final_grades": list})
}

func (h *handler) teacherDashboard(c *gin.Context) {
	d, err := h.app.TeacherDashboard(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, d)
}

func (h *handler) parentDashboard(c *gin.Context) {
	d, err := h.app.ParentDashboard(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, d)
}

func (h *handler) adminDashboard(c *gin.Context) {
	d, err := h.app.AdminDashboard(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, d)
}

// --- admin ---

func (h *handler) createUser(c *gin.Context) {
	var in app.UserInput
	if !bind(c, &in) {
		return
	}
	u, err := h.app.CreateUser(c.Request.Context(), identity(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, u)
}

func (h *handler) createChild(c *gin.Context) {
	var in app.ChildInput
	if !bind(c, &in) {
		return
	}
	ch, err := h.app.CreateChild(c.Request.Context(), identity(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, ch)
}

func (h *handler) linkGuardian(c *gin.Context) {
	childID, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var in struct {
		ParentID int64 `json:"parent_id"`
	}
	if !bind(c, &in) {
		return
	}
	if err := h.app.LinkGuardian(c.Request.Context(), identity(c), in.ParentID, childID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) unlinkGuardian(c *gin.Context) {
	childID, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	parentID, err := pathID(c, "parent_id")
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.app.UnlinkGuardian(c.Request.Context(), identity(c), parentID, childID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) triggerBackup(c *gin.Context) {
	path, err := h.app.TriggerBackup(c.Request.Context(), identity(c))
	h.backupResult(c, path, err)
}

func (h *handler) restoreBackup(c *gin.Context) {
	path, err := h.app.RestoreBackup(c.Request.Context(), identity(c))
	h.backupResult(c, path, err)
}

func (h *handler) backupResult(c *gin.Context, path string, err error) {
	if errors.Is(err, app.ErrBackupDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"success": true, "path": path})
}
