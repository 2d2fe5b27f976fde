package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a session's job.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Kind distinguishes the two analysis flows.
type Kind string

const (
	KindAnalysis Kind = "analysis"
	KindCompare  Kind = "compare"
)

// ErrConflict signals a submit while the session's job is still processing.
var ErrConflict = errors.New("a job is already processing for this session")

// Job is the stored per-session state. Result is populated iff the status is
// complete; Error iff the status is error.
type Job struct {
	SessionID string          `json:"session_id"`
	Kind      Kind            `json:"kind"`
	Status    Status          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Backend is the key/value store the job state lives in.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Store reads and writes session job state. There is a single writer per
// session (the worker that accepted the submit); status reads never mutate.
type Store struct {
	backend Backend
	ttl     time.Duration
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend, ttl: 24 * time.Hour}
}

func jobKey(sessionID string, kind Kind) string {
	return fmt.Sprintf("job:%s:%s", kind, sessionID)
}

// Get returns the session's job, or an idle placeholder when none exists.
func (s *Store) Get(ctx context.Context, sessionID string, kind Kind) (*Job, error) {
	raw, found, err := s.backend.Get(ctx, jobKey(sessionID, kind))
	if err != nil {
		return nil, fmt.Errorf("failed to read job state: %w", err)
	}
	if !found {
		return &Job{SessionID: sessionID, Kind: kind, Status: StatusIdle}, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("failed to decode job state: %w", err)
	}
	return &job, nil
}

// Begin transitions the session to processing. A session whose job is already
// processing is rejected with ErrConflict; terminal jobs are replaced by the
// fresh run.
func (s *Store) Begin(ctx context.Context, sessionID string, kind Kind) error {
	current, err := s.Get(ctx, sessionID, kind)
	if err != nil {
		return err
	}
	if current.Status == StatusProcessing {
		return ErrConflict
	}
	return s.put(ctx, &Job{
		SessionID: sessionID,
		Kind:      kind,
		Status:    StatusProcessing,
	})
}

// Complete marks the job terminal with its result.
func (s *Store) Complete(ctx context.Context, sessionID string, kind Kind, result json.RawMessage) error {
	return s.put(ctx, &Job{
		SessionID: sessionID,
		Kind:      kind,
		Status:    StatusComplete,
		Result:    result,
	})
}

// Fail marks the job terminal with an error message.
func (s *Store) Fail(ctx context.Context, sessionID string, kind Kind, message string) error {
	return s.put(ctx, &Job{
		SessionID: sessionID,
		Kind:      kind,
		Status:    StatusError,
		Error:     message,
	})
}

func (s *Store) put(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job state: %w", err)
	}
	if err := s.backend.Set(ctx, jobKey(job.SessionID, job.Kind), string(data), s.ttl); err != nil {
		return fmt.Errorf("failed to write job state: %w", err)
	}
	return nil
}
