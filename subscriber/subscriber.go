package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go/valkeycompat"
	"go.uber.org/zap"

	"pcap-analysis-api/jobs"
	"pcap-analysis-api/llm"
	"pcap-analysis-api/parser"
	"pcap-analysis-api/utils"
	valkeystore "pcap-analysis-api/valkey"
)

const (
	AnalysisRequestedChannel = "analysis_requested"
	CompareRequestedChannel  = "compare_requested"
)

// AnalysisRequestedPayload is the work message for a single-capture job.
type AnalysisRequestedPayload struct {
	MessageID string `json:"message_id"`
	SessionID string `json:"session_id"`
	ModelKey  string `json:"llm_model_key"`
	FileName  string `json:"file_name"`
	ObjectKey string `json:"object_key"`
}

// CompareRequestedPayload is the work message for a two-capture job.
type CompareRequestedPayload struct {
	MessageID  string `json:"message_id"`
	SessionID  string `json:"session_id"`
	ModelKey   string `json:"llm_model_key"`
	FileNameA  string `json:"file_name_a"`
	ObjectKeyA string `json:"object_key_a"`
	FileNameB  string `json:"file_name_b"`
	ObjectKeyB string `json:"object_key_b"`
}

// Worker consumes work messages and drives jobs to their terminal state.
type Worker struct {
	Logger *zap.Logger
	Jobs   *jobs.Store
	Gen    llm.Generator

	// Download is swappable for tests; nil means capture storage.
	Download func(ctx context.Context, key string) ([]byte, error)
}

func (w *Worker) download(ctx context.Context, key string) ([]byte, error) {
	if w.Download != nil {
		return w.Download(ctx, key)
	}
	return utils.DownloadCapture(ctx, key)
}

// StartSubscribers starts the pub/sub consumers for both flows.
func StartSubscribers(logger *zap.Logger, w *Worker) {
	go startSubscriber(logger, AnalysisRequestedChannel, w.handleAnalysisMessage)
	go startSubscriber(logger, CompareRequestedChannel, w.handleCompareMessage)
}

// startSubscriber is a generic subscriber loop shared by both channels.
func startSubscriber(logger *zap.Logger, channel string, processor func(string)) {
	sugar := logger.Sugar()
	sugar.Infow("Message subscriber started",
		"channel", channel)

	ctx := context.Background()
	pubSub := valkeystore.Client.Subscribe(ctx, channel)
	defer pubSub.Close()

	consumeMessages(ctx, logger, channel, pubSub, processor)
}

// consumeMessages drains one subscription until the context is canceled.
func consumeMessages(ctx context.Context, logger *zap.Logger, channel string, pubSub valkeycompat.PubSub, processor func(string)) {
	sugar := logger.Sugar()
	for {
		msg, err := pubSub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			sugar.Errorw("Failed to receive message",
				"channel", channel,
				"error", err)
			time.Sleep(5 * time.Second) // Wait before retrying
			continue
		}

		if strings.TrimSpace(msg.Payload) == "" {
			sugar.Warn("Received empty message from pub/sub")
			continue
		}

		go processor(msg.Payload)
	}
}

func (w *Worker) handleAnalysisMessage(message string) {
	sugar := w.Logger.Sugar()
	var payload AnalysisRequestedPayload
	if err := json.Unmarshal([]byte(message), &payload); err != nil {
		sugar.Errorw("Failed to decode analysis work message",
			"error", err)
		return
	}
	w.ProcessAnalysis(context.Background(), payload)
}

func (w *Worker) handleCompareMessage(message string) {
	sugar := w.Logger.Sugar()
	var payload CompareRequestedPayload
	if err := json.Unmarshal([]byte(message), &payload); err != nil {
		sugar.Errorw("Failed to decode compare work message",
			"error", err)
		return
	}
	w.ProcessCompare(context.Background(), payload)
}

// ProcessAnalysis runs one single-capture job to completion or error.
func (w *Worker) ProcessAnalysis(ctx context.Context, payload AnalysisRequestedPayload) {
	sugar := w.Logger.Sugar()
	sugar.Infow("Processing analysis request",
		"message_id", payload.MessageID)

	data, err := w.download(ctx, payload.ObjectKey)
	if err != nil {
		w.fail(ctx, payload.SessionID, jobs.KindAnalysis, payload.FileName, payload.ModelKey,
			fmt.Sprintf("failed to fetch uploaded capture: %v", err))
		return
	}

	stats := parser.Summarize(payload.FileName, data)
	rep, err := w.Gen.Analysis(ctx, payload.ModelKey, stats.Snippet())
	if err != nil {
		w.fail(ctx, payload.SessionID, jobs.KindAnalysis, payload.FileName, payload.ModelKey, err.Error())
		return
	}

	result, err := json.Marshal(rep)
	if err != nil {
		w.fail(ctx, payload.SessionID, jobs.KindAnalysis, payload.FileName, payload.ModelKey,
			fmt.Sprintf("failed to encode report: %v", err))
		return
	}

	w.complete(ctx, payload.SessionID, jobs.KindAnalysis, payload.FileName, payload.ModelKey, result)
}

// ProcessCompare runs one two-capture job to completion or error.
func (w *Worker) ProcessCompare(ctx context.Context, payload CompareRequestedPayload) {
	sugar := w.Logger.Sugar()
	sugar.Infow("Processing compare request",
		"message_id", payload.MessageID)

	fileLabel := fmt.Sprintf("%s vs %s", payload.FileNameA, payload.FileNameB)

	dataA, err := w.download(ctx, payload.ObjectKeyA)
	if err != nil {
		w.fail(ctx, payload.SessionID, jobs.KindCompare, fileLabel, payload.ModelKey,
			fmt.Sprintf("failed to fetch first capture: %v", err))
		return
	}
	dataB, err := w.download(ctx, payload.ObjectKeyB)
	if err != nil {
		w.fail(ctx, payload.SessionID, jobs.KindCompare, fileLabel, payload.ModelKey,
			fmt.Sprintf("failed to fetch second capture: %v", err))
		return
	}

	statsA := parser.Summarize(payload.FileNameA, dataA)
	statsB := parser.Summarize(payload.FileNameB, dataB)
	rep, err := w.Gen.Comparison(ctx, payload.ModelKey, statsA.Snippet(), statsB.Snippet())
	if err != nil {
		w.fail(ctx, payload.SessionID, jobs.KindCompare, fileLabel, payload.ModelKey, err.Error())
		return
	}

	result, err := json.Marshal(rep)
	if err != nil {
		w.fail(ctx, payload.SessionID, jobs.KindCompare, fileLabel, payload.ModelKey,
			fmt.Sprintf("failed to encode report: %v", err))
		return
	}

	w.complete(ctx, payload.SessionID, jobs.KindCompare, fileLabel, payload.ModelKey, result)
}

func (w *Worker) complete(ctx context.Context, sessionID string, kind jobs.Kind, fileName, modelKey string, result json.RawMessage) {
	sugar := w.Logger.Sugar()

	if err := w.Jobs.Complete(ctx, sessionID, kind, result); err != nil {
		sugar.Errorw("Failed to store job result",
			"error", err)
		return
	}
	utils.AnalysesCompletedTotal.Add(1)

	// Durable history row; the cache stays the source of truth for polling
	if utils.DB != nil {
		if err := utils.SaveReport(ctx, sessionID, string(kind), fileName, modelKey, result); err != nil {
			sugar.Errorw("Report persistence failed",
				"error", err)
		}
	}

	sugar.Infow("Job completed successfully",
		"kind", kind)
}

func (w *Worker) fail(ctx context.Context, sessionID string, kind jobs.Kind, fileName, modelKey, message string) {
	sugar := w.Logger.Sugar()
	sugar.Errorw("Job failed",
		"kind", kind,
		"error", message)

	if err := w.Jobs.Fail(ctx, sessionID, kind, message); err != nil {
		sugar.Errorw("Failed to store job error",
			"error", err)
	}
	utils.AnalysesFailedTotal.Add(1)

	if utils.DB != nil {
		if err := utils.SaveFailure(ctx, sessionID, string(kind), fileName, modelKey, message); err != nil {
			sugar.Errorw("Failure persistence failed",
				"error", err)
		}
	}
}
