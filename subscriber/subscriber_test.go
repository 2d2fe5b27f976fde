package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/valkey-io/valkey-go/valkeycompat"
	"go.uber.org/zap"

	"pcap-analysis-api/jobs"
	"pcap-analysis-api/report"
)

func testLogger(t *testing.T) *zap.Logger {
	cfg := zap.NewProductionConfig()
	l, err := cfg.Build()
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

// stubGen returns canned reports, or fails when told to.
type stubGen struct {
	fail bool
}

func (s stubGen) Analysis(_ context.Context, _, _ string) (*report.AnalysisReport, error) {
	if s.fail {
		return nil, errors.New("model call failed: all request shapes exhausted")
	}
	r := &report.AnalysisReport{
		Summary:              "Looks like ordinary office traffic.",
		ProtocolDistribution: map[string]float64{"TCP": 80, "DNS": 20},
	}
	r.Normalize()
	return r, nil
}

func (s stubGen) Comparison(_ context.Context, _, _, _ string) (*report.ComparisonReport, error) {
	if s.fail {
		return nil, errors.New("model call failed: all request shapes exhausted")
	}
	r := &report.ComparisonReport{
		OverallComparisonSummary: "The captures are broadly similar.",
	}
	r.Normalize()
	return r, nil
}

func testWorker(t *testing.T, gen stubGen) (*Worker, *jobs.Store) {
	store := jobs.NewStore(jobs.NewMemoryBackend())
	w := &Worker{
		Logger: testLogger(t),
		Jobs:   store,
		Gen:    gen,
		Download: func(_ context.Context, _ string) ([]byte, error) {
			return []byte{0xa1, 0xb2, 0xc3, 0xd4, 0, 0, 0, 0}, nil
		},
	}
	return w, store
}

func beginAnalysis(t *testing.T, store *jobs.Store, session string) {
	if err := store.Begin(context.Background(), session, jobs.KindAnalysis); err != nil {
		t.Fatalf("begin: %v", err)
	}
}

func TestProcessAnalysisCompletesWithSchemaFields(t *testing.T) {
	w, store := testWorker(t, stubGen{})
	ctx := context.Background()
	beginAnalysis(t, store, "session-1")

	w.ProcessAnalysis(ctx, AnalysisRequestedPayload{
		MessageID: "msg-1",
		SessionID: "session-1",
		ModelKey:  "gpt-4o-mini",
		FileName:  "office.pcap",
		ObjectKey: "captures/session-1/msg-1/office.pcap",
	})

	job, err := store.Get(ctx, "session-1", jobs.KindAnalysis)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != jobs.StatusComplete {
		t.Fatalf("status = %q, want complete (error: %q)", job.Status, job.Error)
	}

	var result map[string]json.RawMessage
	if err := json.Unmarshal(job.Result, &result); err != nil {
		t.Fatalf("result decode: %v", err)
	}
	for _, key := range []string{"summary", "protocol_distribution", "anomalies_and_errors", "sip_rtp_info", "important_timestamps_packets"} {
		if _, ok := result[key]; !ok {
			t.Errorf("result missing required key %q", key)
		}
	}
	var anomalies []string
	if err := json.Unmarshal(result["anomalies_and_errors"], &anomalies); err != nil {
		t.Errorf("anomalies_and_errors is not an array: %v", err)
	}
}

func TestProcessAnalysisUpstreamFailure(t *testing.T) {
	w, store := testWorker(t, stubGen{fail: true})
	ctx := context.Background()
	beginAnalysis(t, store, "session-1")

	w.ProcessAnalysis(ctx, AnalysisRequestedPayload{
		SessionID: "session-1",
		ModelKey:  "gpt-4o-mini",
		FileName:  "office.pcap",
		ObjectKey: "captures/session-1/x/office.pcap",
	})

	job, err := store.Get(ctx, "session-1", jobs.KindAnalysis)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != jobs.StatusError {
		t.Fatalf("status = %q, want error", job.Status)
	}
	if job.Result != nil {
		t.Fatalf("errored job carries result: %s", job.Result)
	}
	if job.Error == "" {
		t.Fatalf("errored job has empty message")
	}
}

func TestProcessAnalysisDownloadFailure(t *testing.T) {
	w, store := testWorker(t, stubGen{})
	w.Download = func(_ context.Context, _ string) ([]byte, error) {
		return nil, errors.New("storage unavailable")
	}
	ctx := context.Background()
	beginAnalysis(t, store, "session-1")

	w.ProcessAnalysis(ctx, AnalysisRequestedPayload{
		SessionID: "session-1",
		ObjectKey: "captures/session-1/x/office.pcap",
		FileName:  "office.pcap",
	})

	job, _ := store.Get(ctx, "session-1", jobs.KindAnalysis)
	if job.Status != jobs.StatusError {
		t.Fatalf("status = %q, want error", job.Status)
	}
}

// stubPubSub replays queued payloads, then cancels the consumer's context.
type stubPubSub struct {
	valkeycompat.PubSub
	payloads []string
	cancel   context.CancelFunc
}

func (s *stubPubSub) ReceiveMessage(ctx context.Context) (*valkeycompat.Message, error) {
	if len(s.payloads) == 0 {
		s.cancel()
		return nil, ctx.Err()
	}
	p := s.payloads[0]
	s.payloads = s.payloads[1:]
	return &valkeycompat.Message{Payload: p}, nil
}

func (s *stubPubSub) Close() error { return nil }

func TestConsumeMessagesDispatchesAnalysisWork(t *testing.T) {
	w, store := testWorker(t, stubGen{})
	beginAnalysis(t, store, "session-1")

	payload, err := json.Marshal(AnalysisRequestedPayload{
		MessageID: "msg-1",
		SessionID: "session-1",
		ModelKey:  "gpt-4o-mini",
		FileName:  "office.pcap",
		ObjectKey: "captures/session-1/msg-1/office.pcap",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// A blank payload first, which the loop must skip without dispatching.
	ps := &stubPubSub{payloads: []string{"  ", string(payload)}, cancel: cancel}

	done := make(chan struct{})
	consumeMessages(ctx, w.Logger, AnalysisRequestedChannel, ps, func(m string) {
		w.handleAnalysisMessage(m)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("work message was never processed")
	}

	job, err := store.Get(context.Background(), "session-1", jobs.KindAnalysis)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != jobs.StatusComplete {
		t.Fatalf("status = %q, want complete (error: %q)", job.Status, job.Error)
	}
}

func TestConsumeMessagesDispatchesCompareWork(t *testing.T) {
	w, store := testWorker(t, stubGen{})
	ctx := context.Background()
	if err := store.Begin(ctx, "session-1", jobs.KindCompare); err != nil {
		t.Fatalf("begin: %v", err)
	}

	payload, err := json.Marshal(CompareRequestedPayload{
		MessageID:  "msg-1",
		SessionID:  "session-1",
		ModelKey:   "gpt-4o-mini",
		FileNameA:  "before.pcap",
		ObjectKeyA: "captures/session-1/msg-1/a/before.pcap",
		FileNameB:  "after.pcap",
		ObjectKeyB: "captures/session-1/msg-1/b/after.pcap",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ps := &stubPubSub{payloads: []string{string(payload)}, cancel: cancel}

	done := make(chan struct{})
	consumeMessages(loopCtx, w.Logger, CompareRequestedChannel, ps, func(m string) {
		w.handleCompareMessage(m)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("work message was never processed")
	}

	job, err := store.Get(ctx, "session-1", jobs.KindCompare)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != jobs.StatusComplete {
		t.Fatalf("status = %q, want complete (error: %q)", job.Status, job.Error)
	}
}

func TestProcessCompareCompletes(t *testing.T) {
	w, store := testWorker(t, stubGen{})
	ctx := context.Background()
	if err := store.Begin(ctx, "session-1", jobs.KindCompare); err != nil {
		t.Fatalf("begin: %v", err)
	}

	w.ProcessCompare(ctx, CompareRequestedPayload{
		SessionID:  "session-1",
		ModelKey:   "gpt-4o-mini",
		FileNameA:  "before.pcap",
		ObjectKeyA: "captures/session-1/x/a/before.pcap",
		FileNameB:  "after.pcap",
		ObjectKeyB: "captures/session-1/x/b/after.pcap",
	})

	job, err := store.Get(ctx, "session-1", jobs.KindCompare)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != jobs.StatusComplete {
		t.Fatalf("status = %q, want complete (error: %q)", job.Status, job.Error)
	}

	var result map[string]json.RawMessage
	if err := json.Unmarshal(job.Result, &result); err != nil {
		t.Fatalf("result decode: %v", err)
	}
	for _, key := range []string{"overall_comparison_summary", "key_differences", "key_similarities", "security_implications", "important_timestamps_packets"} {
		if _, ok := result[key]; !ok {
			t.Errorf("result missing required key %q", key)
		}
	}
}
