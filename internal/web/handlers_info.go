package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/school-portal/internal/app"
)

func (h *handler) listAnnouncements(c *gin.Context) {
	list, err := h.app.ListAnnouncements(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"announcements": list})
}

func (h *handler) viewAnnouncement(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	a, err := h.app.ViewAnnouncement(c.Request.Context(), identity(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, a)
}

func (h *handler) createAnnouncement(c *gin.Context) {
	var in app.AnnouncementInput
	if !bind(c, &in) {
		return
	}
	a, err := h.app.CreateAnnouncement(c.Request.Context(), identity(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, a)
}

func (h *handler) updateAnnouncement(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var in app.AnnouncementInput
	if !bind(c, &in) {
		return
	}
	a, err := h.app.UpdateAnnouncement(c.Request.Context(), identity(c), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, a)
}

func (h *handler) deleteAnnouncement(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.app.DeleteAnnouncement(c.Request.Context(), identity(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) listEvents(c *gin.Context) {
	list, err := h.app.ListUpcomingEvents(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"events": list})
}

func (h *handler) calendar(c *gin.Context) {
	from, err := queryDate(c, "from", timeNow())
	if err != nil {
		writeError(c, err)
		return
	}
	to, err := queryDate(c, "to", from.AddDate(0, 1, 0))
	if err != nil {
		writeError(c, err)
		return
	}
	occ, err := h.app.Calendar(c.Request.Context(), identity(c), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"occurrences": occ})
}

func (h *handler) getEvent(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	e, err := h.app.GetEvent(c.Request.Context(), identity(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, e)
}

func (h *handler) createEvent(c *gin.Context) {
	var in app.EventInput
	if !bind(c, &in) {
		return
	}
	e, err := h.app.CreateEvent(c.Request.Context(), identity(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, e)
}

func (h *handler) updateEvent(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var in app.EventInput
	if !bind(c, &in) {
		return
	}
	e, err := h.app.UpdateEvent(c.Request.Context(), identity(c), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, e)
}

func (h *handler) deleteEvent(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.app.DeleteEvent(c.Request.Context(), identity(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) cancelEvent(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.app.CancelEvent(c.Request.Context(), identity(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) listBotMessages(c *gin.Context) {
	list, err := h.app.ListBotMessages(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"bot_messages": list})
}

func (h *handler) createBotMessage(c *gin.Context) {
	var in app.BotMessageInput
	if !bind(c, &in) {
		return
	}
	m, err := h.app.CreateBotMessage(c.Request.Context(), identity(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, m)
}

func (h *handler) updateBotMessage(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var in app.BotMessageInput
	if !bind(c, &in) {
		return
	}
	m, err := h.app.UpdateBotMessage(c.Request.Context(), identity(c), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, m)
}

func (h *handler) deleteBotMessage(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.app.DeleteBotMessage(c.Request.Context(), identity(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
