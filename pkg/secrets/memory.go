// Copyright 2026 fanjia1024
// In-memory secret store (for development and tests)

package secrets

import (
	"context"
	"fmt"
	"sync"
)

type memoryStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemoryStore 创建内存 secret store，seed 可为 nil
func NewMemoryStore(seed map[string]string) Store {
	s := &memoryStore{secrets: make(map[string]string, len(seed))}
	for k, v := range seed {
		s.secrets[k] = v
	}
	return s
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if value, ok := m.secrets[key]; ok {
		return value, nil
	}
	return "", fmt.Errorf("secret not found: %s", key)
}

func (m *memoryStore) Set(ctx context.Context, key string, value string) error {
	m.mu.Lock()
	m.secrets[key] = value
	m.mu.Unlock()
	return nil
}
