package persistid

import (
	"context"
	"sync"
)

// MemoryBackend holds the identifier in process memory. It models volatile
// client storage and backs most tests.
type MemoryBackend struct {
	name string

	mu    sync.Mutex
	value string
	set   bool
}

// NewMemoryBackend builds an empty in-memory backend.
func NewMemoryBackend(name string) *MemoryBackend {
	return &MemoryBackend{name: name}
}

func (b *MemoryBackend) Name() string { return b.name }

func (b *MemoryBackend) Available() bool { return true }

func (b *MemoryBackend) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.set {
		return "", ErrAbsent
	}
	return b.value, nil
}

func (b *MemoryBackend) Write(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = value
	b.set = true
	return nil
}

// Clear drops the stored value, as if the channel had been wiped.
func (b *MemoryBackend) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = ""
	b.set = false
}
