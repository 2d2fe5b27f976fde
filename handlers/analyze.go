package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pcap-analysis-api/config"
	"pcap-analysis-api/jobs"
	"pcap-analysis-api/parser"
	"pcap-analysis-api/utils"
)

// SubmitDeps carries the backing services a submit handler needs. main wires
// the real valkey/S3 implementations; tests substitute in-memory ones.
type SubmitDeps struct {
	Jobs    *jobs.Store
	Catalog *config.Catalog
	Upload  func(ctx context.Context, key string, data []byte) error
	Publish func(ctx context.Context, channel, message string) error
}

// AnalyzeRequest is the single-capture submit body.
type AnalyzeRequest struct {
	PcapData    string `json:"pcap_data" binding:"required"`
	FileName    string `json:"file_name" binding:"required"`
	LLMModelKey string `json:"llm_model_key" binding:"required"`
}

// MaxCaptureBytes is the configured upload ceiling (decoded size).
func MaxCaptureBytes() int64 {
	raw := utils.GetEnvOrDefault("PCAP_MAX_BYTES", "10485760")
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 10 << 20
	}
	return n
}

// SessionID reads the caller-supplied session key. The key is not validated
// for uniqueness; collisions are the caller's problem.
func SessionID(c *gin.Context) string {
	if id := c.GetHeader("X-Session-ID"); id != "" {
		return id
	}
	return "default"
}

// decodeCapture validates a named base64 capture payload and returns the raw
// bytes. Validation is name- and size-based only; content is never decoded as
// packets.
func decodeCapture(catalogEntryOK bool, name, b64 string) ([]byte, error) {
	if !catalogEntryOK {
		return nil, errors.New("unknown llm_model_key")
	}
	if err := parser.ValidateFileName(name); err != nil {
		return nil, err
	}

	// Browsers often hand over data URLs; keep only the payload
	if i := strings.Index(b64, "base64,"); i != -1 {
		b64 = b64[i+len("base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("pcap_data is not valid base64: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("uploaded capture is empty")
	}
	if int64(len(data)) > MaxCaptureBytes() {
		return nil, fmt.Errorf("capture exceeds the %d byte limit", MaxCaptureBytes())
	}
	return data, nil
}

// HandleAnalyzeSubmit accepts a single-capture analysis job.
func HandleAnalyzeSubmit(logger *zap.Logger, d SubmitDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sugar := logger.Sugar()
		sessionID := SessionID(c)

		var req AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pcap_data, file_name and llm_model_key are required"})
			return
		}

		_, modelOK := d.Catalog.Lookup(req.LLMModelKey)
		data, err := decodeCapture(modelOK, req.FileName, req.PcapData)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := d.Jobs.Begin(c.Request.Context(), sessionID, jobs.KindAnalysis); err != nil {
			if errors.Is(err, jobs.ErrConflict) {
				utils.SubmitConflictsTotal.Add(1)
				c.JSON(http.StatusConflict, gin.H{"error": "Already processing a request."})
				return
			}
			sugar.Errorw("Job state update failed",
				"error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start analysis"})
			return
		}
		utils.AnalysesSubmittedTotal.Add(1)

		messageID := uuid.NewString()
		objectKey := fmt.Sprintf("captures/%s/%s/%s", sessionID, messageID, req.FileName)
		if err := d.Upload(c.Request.Context(), objectKey, data); err != nil {
			sugar.Errorw("Capture upload failed",
				"error", err)
			_ = d.Jobs.Fail(c.Request.Context(), sessionID, jobs.KindAnalysis, "failed to store uploaded capture")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store uploaded capture"})
			return
		}

		payload := AnalysisWorkMessage{
			MessageID: messageID,
			SessionID: sessionID,
			ModelKey:  req.LLMModelKey,
			FileName:  req.FileName,
			ObjectKey: objectKey,
		}
		if err := publishJSON(c.Request.Context(), d, analysisChannel, payload); err != nil {
			sugar.Errorw("Message publishing failed",
				"error", err)
			_ = d.Jobs.Fail(c.Request.Context(), sessionID, jobs.KindAnalysis, "failed to dispatch analysis job")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to trigger analysis"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"status": string(jobs.StatusProcessing)})
	}
}

// HandleJobStatus reports the session's job state. Reads are idempotent and
// never mutate the job.
func HandleJobStatus(logger *zap.Logger, store *jobs.Store, kind jobs.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := SessionID(c)

		job, err := store.Get(c.Request.Context(), sessionID, kind)
		if err != nil {
			logger.Sugar().Errorw("Job state read failed",
				"error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read job status"})
			return
		}

		resp := gin.H{"status": string(job.Status)}
		switch job.Status {
		case jobs.StatusComplete:
			resp["result"] = job.Result
		case jobs.StatusError:
			resp["error"] = job.Error
		}
		c.JSON(http.StatusOK, resp)
	}
}
