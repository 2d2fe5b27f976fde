package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"pcap-analysis-api/subscriber"
)

// Work messages and channels are owned by the subscriber package; aliases keep
// the handler code readable.
type AnalysisWorkMessage = subscriber.AnalysisRequestedPayload
type CompareWorkMessage = subscriber.CompareRequestedPayload

const (
	analysisChannel = subscriber.AnalysisRequestedChannel
	compareChannel  = subscriber.CompareRequestedChannel
)

func publishJSON(ctx context.Context, d SubmitDeps, channel string, payload any) error {
	message, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode work message: %w", err)
	}
	return d.Publish(ctx, channel, string(message))
}
