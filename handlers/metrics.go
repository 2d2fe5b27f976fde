package handlers

import (
    "net/http"
    "pcap-analysis-api/utils"

    "github.com/gin-gonic/gin"
)

func HandleMetrics() gin.HandlerFunc {
    return func(c *gin.Context) {
        c.JSON(http.StatusOK, gin.H{
            "analyses_submitted_total": utils.AnalysesSubmittedTotal.Value(),
            "analyses_completed_total": utils.AnalysesCompletedTotal.Value(),
            "analyses_failed_total": utils.AnalysesFailedTotal.Value(),
            "submit_conflicts_total": utils.SubmitConflictsTotal.Value(),
            "llm_shape_fallbacks_total": utils.LLMShapeFallbacks.Value(),
            "llm_salvaged_replies_total": utils.LLMSalvagedReplies.Value(),
        })
    }
}
