package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pcap-analysis-api/jobs"
	"pcap-analysis-api/utils"
)

// CompareRequest is the two-capture submit body.
type CompareRequest struct {
	PcapDataA   string `json:"pcap_data_a" binding:"required"`
	FileNameA   string `json:"file_name_a" binding:"required"`
	PcapDataB   string `json:"pcap_data_b" binding:"required"`
	FileNameB   string `json:"file_name_b" binding:"required"`
	LLMModelKey string `json:"llm_model_key" binding:"required"`
}

// HandleCompareSubmit accepts a two-capture comparison job.
func HandleCompareSubmit(logger *zap.Logger, d SubmitDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sugar := logger.Sugar()
		sessionID := SessionID(c)

		var req CompareRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "both captures and llm_model_key are required"})
			return
		}

		_, modelOK := d.Catalog.Lookup(req.LLMModelKey)
		dataA, err := decodeCapture(modelOK, req.FileNameA, req.PcapDataA)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("first capture: %v", err)})
			return
		}
		dataB, err := decodeCapture(modelOK, req.FileNameB, req.PcapDataB)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("second capture: %v", err)})
			return
		}

		if err := d.Jobs.Begin(c.Request.Context(), sessionID, jobs.KindCompare); err != nil {
			if errors.Is(err, jobs.ErrConflict) {
				utils.SubmitConflictsTotal.Add(1)
				c.JSON(http.StatusConflict, gin.H{"error": "Already processing a request."})
				return
			}
			sugar.Errorw("Job state update failed",
				"error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start comparison"})
			return
		}
		utils.AnalysesSubmittedTotal.Add(1)

		messageID := uuid.NewString()
		objectKeyA := fmt.Sprintf("captures/%s/%s/a/%s", sessionID, messageID, req.FileNameA)
		objectKeyB := fmt.Sprintf("captures/%s/%s/b/%s", sessionID, messageID, req.FileNameB)

		for key, data := range map[string][]byte{objectKeyA: dataA, objectKeyB: dataB} {
			if err := d.Upload(c.Request.Context(), key, data); err != nil {
				sugar.Errorw("Capture upload failed",
					"error", err)
				_ = d.Jobs.Fail(c.Request.Context(), sessionID, jobs.KindCompare, "failed to store uploaded capture")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store uploaded capture"})
				return
			}
		}

		payload := CompareWorkMessage{
			MessageID:  messageID,
			SessionID:  sessionID,
			ModelKey:   req.LLMModelKey,
			FileNameA:  req.FileNameA,
			ObjectKeyA: objectKeyA,
			FileNameB:  req.FileNameB,
			ObjectKeyB: objectKeyB,
		}
		if err := publishJSON(c.Request.Context(), d, compareChannel, payload); err != nil {
			sugar.Errorw("Message publishing failed",
				"error", err)
			_ = d.Jobs.Fail(c.Request.Context(), sessionID, jobs.KindCompare, "failed to dispatch comparison job")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to trigger comparison"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"status": string(jobs.StatusProcessing)})
	}
}
