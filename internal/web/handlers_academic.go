package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/school-portal/internal/app"
)

var timeNow = time.Now

func (h *handler) listClasses(c *gin.Context) {
	list, err := h.app.ListClasses(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"classes": list})
}

func (h *handler) classDetail(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	d, err := h.app.ClassDetail(c.Request.Context(), identity(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, d)
}

func (h *handler) classStudents(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := h.app.ClassStudents(c.Request.Context(), identity(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"students": list})
}

func (h *handler) classFinalGrades(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := h.app.ClassFinalGrades(c.Request.Context(), identity(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"final_grades": list})
}

func (h *handler) recomputeFinalGrades(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	q, err := queryQuarter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := h.app.RecomputeFinalGrades(c.Request.Context(), identity(c), id, q)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"final_grades": list})
}

func (h *handler) listGradeItems(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	q, err := queryQuarter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := h.app.ListGradeItems(c.Request.Context(), identity(c), id, q)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"grade_items": list})
}

func (h *handler) setGradeWeights(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var in struct {
		Weights []app.WeightInput `json:"weights"`
	}
	if !bind(c, &in) {
		return
	}
	w, err := h.app.SetGradeWeights(c.Request.Context(), identity(c), id, in.Weights)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"weights": w})
}

func (h *handler) gradeTemplate(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	q, err := queryQuarter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	wb, err := h.app.GradeTemplate(c.Request.Context(), identity(c), id, q)
	sendWorkbook(c, wb, err)
}

func (h *handler) gradeReport(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	q, err := queryQuarter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	wb, err := h.app.GradeReport(c.Request.Context(), identity(c), id, q)
	sendWorkbook(c, wb, err)
}

func (h *handler) attendanceReport(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	to, err := queryDate(c, "to", timeNow())
	if err != nil {
		writeError(c, err)
		return
	}
	from, err := queryDate(c, "from", to.AddDate(0, 0, -30))
	if err != nil {
		writeError(c, err)
		return
	}
	wb, err := h.app.AttendanceReport(c.Request.Context(), identity(c), id, from, to)
	sendWorkbook(c, wb, err)
}

func (h *handler) createGradeItem(c *gin.Context) {
	var in app.GradeItemInput
	if !bind(c, &in) {
		return
	}
	it, err := h.app.CreateGradeItem(c.Request.Context(), identity(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, it)
}

func (h *handler) updateGradeItem(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var in app.GradeItemInput
	if !bind(c, &in) {
		return
	}
	it, err := h.app.UpdateGradeItem(c.Request.Context(), identity(c), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, it)
}

func (h *handler) deleteGradeItem(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.app.DeleteGradeItem(c.Request.Context(), identity(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) teacherAttendance(c *gin.Context) {
	list, err := h.app.TeacherAttendance(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"attendance": list})
}

func (h *handler) recordAttendance(c *gin.Context) {
	var in app.AttendanceInput
	if !bind(c, &in) {
		return
	}
	n, err := h.app.RecordAttendance(c.Request.Context(), identity(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"success": true, "recorded": n})
}

func (h *handler) studentAttendance(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	v, err := h.app.StudentAttendance(c.Request.Context(), identity(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, v)
}

func (h *handler) createClass(c *gin.Context) {
	var in app.ClassInput
	if !bind(c, &in) {
		return
	}
	cl, err := h.app.CreateClass(c.Request.Context(), identity(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, cl)
}

func (h *handler) enroll(c *gin.Context) {
	classID, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var in struct {
		ChildID int64 `json:"child_id"`
	}
	if !bind(c, &in) {
		return
	}
	id, err := h.app.Enroll(c.Request.Context(), identity(c), classID, in.ChildID)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, gin.H{"enrollment_id": id})
}

func (h *handler) unenroll(c *gin.Context) {
	classID, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	childID, err := pathID(c, "child_id")
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.app.Unenroll(c.Request.Context(), identity(c), classID, childID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
