package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore holds credentials in memory. It backs ephemeral pairing
// handshakes and the USE_MEMORY_STORE development mode.
type MemoryStore struct {
	creds map[string][]byte
	mu    sync.RWMutex
}

// NewMemoryStore creates a new in-memory credential store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		creds: make(map[string][]byte),
	}
}

func (m *MemoryStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, exists := m.creds[key]
	if !exists {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (m *MemoryStore) Save(ctx context.Context, key string, creds []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("session key is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creds[key] = append([]byte(nil), creds...)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.creds, key)
	return nil
}

// Len returns the number of stored credential sets
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.creds)
}
