package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryObject is a stored blob
type MemoryObject struct {
	Data        []byte
	ContentType string
}

// MemoryStorage keeps objects in process memory. It is used when object
// storage is disabled and in tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]MemoryObject
}

// NewMemoryStorage creates an empty store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]MemoryObject)}
}

// Upload stores a copy of data under key
func (m *MemoryStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = MemoryObject{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

// Get returns the object stored under key
func (m *MemoryStorage) Get(key string) (MemoryObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Keys lists stored keys in order
func (m *MemoryStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ ObjectWriter = (*MemoryStorage)(nil)
