package testing

import (
	"context"
	"errors"
	"sync"
)

// ErrStorageUnavailable is returned by FailingStorage
var ErrStorageUnavailable = errors.New("storage unavailable")

// MemoryStorage is an in-memory ledger storage
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
	writes int
}

// NewMemoryStorage creates a storage pre-populated with values
func NewMemoryStorage(values map[string]string) *MemoryStorage {
	m := &MemoryStorage{values: make(map[string]string)}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// Get returns the value stored under key
func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// SetAll stores every value as one write
func (m *MemoryStorage) SetAll(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	m.writes++
	return nil
}

// Value returns the stored value for assertions
func (m *MemoryStorage) Value(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key]
}

// Writes returns how many SetAll calls were made
func (m *MemoryStorage) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// FailingStorage fails every read and write
type FailingStorage struct{}

// Get always fails
func (FailingStorage) Get(context.Context, string) (string, bool, error) {
	return "", false, ErrStorageUnavailable
}

// SetAll always fails
func (FailingStorage) SetAll(context.Context, map[string]string) error {
	return ErrStorageUnavailable
}
