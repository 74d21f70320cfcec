package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/export"
	"github.com/Spok95/school-portal/internal/models"
)

const (
	dateLayout = "2006-01-02"
	xlsxMIME   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid(name, "Invalid id")
	}
	return id, nil
}

// queryQuarter reads ?quarter=; absent means 0 (all quarters).
func queryQuarter(c *gin.Context) (models.Quarter, error) {
	v := c.Query("quarter")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || !models.Quarter(n).Valid() {
		return 0, apperr.Invalid("quarter", "Quarter must be between 1 and 4")
	}
	return models.Quarter(n), nil
}

func queryDate(c *gin.Context, name string, def time.Time) (time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, apperr.Invalid(name, "Date must be YYYY-MM-DD")
	}
	return t, nil
}

// bind decodes a JSON body; a malformed body is a 400 with a fixed message.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			writeError(c, err)
			return false
		}
		badRequest(c, "Invalid request body")
		return false
	}
	return true
}

func sendWorkbook(c *gin.Context, wb *export.Workbook, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	b, err := wb.Bytes()
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+wb.Name+`"`)
	c.Data(http.StatusOK, xlsxMIME, b)
}

func ok(c *gin.Context, v any) {
	c.JSON(http.StatusOK, v)
}

func created(c *gin.Context, v any) {
	c.JSON(http.StatusCreated, v)
}
