package handlers

import (
	"context"
	"net/http"
	"time"

	"pcap-analysis-api/utils"

	"github.com/gin-gonic/gin"
)

// HandleDBStatus reports whether the report history database is reachable
// and how many persisted reports it currently holds.
func HandleDBStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := utils.DB.PingContext(ctx); err != nil {
			c.JSON(http.StatusOK, gin.H{"connected": false, "error": err.Error()})
			return
		}
		var reports int
		if err := utils.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM analysis_reports").Scan(&reports); err != nil {
			c.JSON(http.StatusOK, gin.H{"connected": true, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"connected": true, "reports": reports})
	}
}
