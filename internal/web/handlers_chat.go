package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handler) listRooms(c *gin.Context) {
	rooms, err := h.app.ListRooms(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"rooms": rooms})
}

func (h *handler) startChat(c *gin.Context) {
	var in struct {
		TeacherID int64 `json:"teacher_id"`
	}
	if !bind(c, &in) {
		return
	}
	roomID, err := h.app.StartChat(c.Request.Context(), identity(c), in.TeacherID)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"room_id": roomID})
}

func (h *handler) viewRoom(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	v, err := h.app.ViewRoom(c.Request.Context(), identity(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, v)
}

func (h *handler) sendMessage(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var in struct {
		Content string `json:"content"`
	}
	if !bind(c, &in) {
		return
	}
	msg, err := h.app.SendMessage(c.Request.Context(), identity(c), id, in.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{
		"success":    true,
		"message_id": msg.ID,
		"content":    msg.Content,
		"created_at": msg.CreatedAt,
	})
}

func (h *handler) markRoomRead(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	n, err := h.app.MarkRoomRead(c.Request.Context(), identity(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"marked": n})
}

func (h *handler) archiveRoom(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.app.ArchiveRoom(c.Request.Context(), identity(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) editMessage(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var in struct {
		Content string `json:"content"`
	}
	if !bind(c, &in) {
		return
	}
	if err := h.app.EditMessage(c.Request.Context(), identity(c), id, in.Content); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) listNotifications(c *gin.Context) {
	list, err := h.app.ListNotifications(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"notifications": list})
}

func (h *handler) unreadNotifications(c *gin.Context) {
	n, err := h.app.UnreadNotifications(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"unread": n})
}

func (h *handler) markNotificationRead(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.app.MarkNotificationRead(c.Request.Context(), identity(c), id); err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"success": true})
}

func (h *handler) markAllNotificationsRead(c *gin.Context) {
	n, err := h.app.MarkAllNotificationsRead(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"marked": n})
}

func (h *handler) chatbot(c *gin.Context) {
	var in struct {
		Query string `json:"query"`
	}
	if !bind(c, &in) {
		return
	}
	reply, err := h.app.Ask(c.Request.Context(), identity(c), in.Query)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"success": true, "response": reply.Text})
}
