package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go/valkeycompat"
)

// ValkeyBackend stores job state in valkey with a TTL.
type ValkeyBackend struct {
	Client valkeycompat.Cmdable
}

func (b *ValkeyBackend) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := b.Client.Get(ctx, key).Result()
	if err != nil {
		// Absent key, not a failure
		if err.Error() == "redis: nil" || err.Error() == "valkey: nil" {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

func (b *ValkeyBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return b.Client.Set(ctx, key, value, ttl).Err()
}

// MemoryBackend is a process-local backend for tests and single-node demos.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

func (b *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	val, ok := b.data[key]
	return val, ok, nil
}

func (b *MemoryBackend) Set(_ context.Context, key, value string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	return nil
}
