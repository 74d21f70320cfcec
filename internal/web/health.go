package web

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/school-portal/internal/db"
)

// healthz pings the database; db.Ping records the latency metric.
func healthz(database *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(c.Request.Context(), database); err != nil {
			c.String(http.StatusServiceUnavailable, "db not ok: "+err.Error())
			return
		}
		c.String(http.StatusOK, "ok")
	}
}
