package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pcap-analysis-api/report"
	"pcap-analysis-api/utils"
)

// HandleListReports returns persisted report history, newest first.
func HandleListReports(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := utils.DB.Query(`
            SELECT id, session_id, kind, file_name, model_key, created_at, updated_at
            FROM analysis_reports
            ORDER BY updated_at DESC
            LIMIT 200
        `)
		if err != nil {
			logger.Error("Database query failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve reports"})
			return
		}
		defer rows.Close()

		results := make([]gin.H, 0)
		for rows.Next() {
			var id int
			var sessionID, kind, fileName, modelKey string
			var createdAt, updatedAt string

			if err := rows.Scan(&id, &sessionID, &kind, &fileName, &modelKey, &createdAt, &updatedAt); err != nil {
				logger.Error("Data scanning failed", zap.Error(err))
				continue
			}

			results = append(results, gin.H{
				"id":         id,
				"session_id": sessionID,
				"kind":       kind,
				"file_name":  fileName,
				"model_key":  modelKey,
				"created_at": createdAt,
				"updated_at": updatedAt,
			})
		}

		c.JSON(http.StatusOK, results)
	}
}

// HandleGetReport returns one persisted report as raw JSON. The export is
// byte-for-byte what the worker stored, so a client-side download of this body
// round-trips to the in-memory report object.
func HandleGetReport(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("session")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session is required"})
			return
		}
		kind := c.DefaultQuery("kind", "analysis")

		var reportJSON []byte
		err := utils.DB.QueryRow(`
            SELECT report FROM analysis_reports
            WHERE session_id = $1 AND kind = $2
        `, sessionID, kind).Scan(&reportJSON)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{
					"error":   "Report not found",
					"message": "Report may still be processing or session is invalid",
				})
				return
			}
			logger.Error("Report retrieval failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve report"})
			return
		}

		c.Header("Content-Type", "application/json")
		c.String(http.StatusOK, string(reportJSON))
	}
}

// HandleGetReportHTML renders a persisted report as an HTML fragment.
func HandleGetReportHTML(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("session")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session is required"})
			return
		}
		kind := c.DefaultQuery("kind", "analysis")

		var fileName string
		var reportJSON []byte
		err := utils.DB.QueryRow(`
            SELECT file_name, report FROM analysis_reports
            WHERE session_id = $1 AND kind = $2
        `, sessionID, kind).Scan(&fileName, &reportJSON)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
				return
			}
			logger.Error("Report retrieval failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve report"})
			return
		}

		html, err := renderStoredReport(kind, fileName, reportJSON)
		if err != nil {
			logger.Error("Report rendering failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render report"})
			return
		}

		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, html)
	}
}

func renderStoredReport(kind, fileName string, reportJSON []byte) (string, error) {
	if kind == "compare" {
		var r report.ComparisonReport
		if err := json.Unmarshal(reportJSON, &r); err != nil {
			return "", err
		}
		return report.RenderComparisonHTML(&r, fileName)
	}
	var r report.AnalysisReport
	if err := json.Unmarshal(reportJSON, &r); err != nil {
		return "", err
	}
	return report.RenderAnalysisHTML(&r, fileName)
}
