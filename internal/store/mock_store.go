// ABOUTME: Mock RecordStore implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject failures

package store

import (
	"context"
	"sync"
)

// MockStore is an in-memory RecordStore implementation for testing.
type MockStore struct {
	mu      sync.RWMutex
	records map[string]string

	// PutErr and DeleteErr, when set, are returned by the corresponding
	// operations without touching the stored data.
	PutErr    error
	DeleteErr error

	puts    int
	deletes int
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		records: make(map[string]string),
	}
}

// GetRecord returns the stored value or ErrNotFound.
func (m *MockStore) GetRecord(ctx context.Context, name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.records[name]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// PutRecord stores a value.
func (m *MockStore) PutRecord(ctx context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PutErr != nil {
		return m.PutErr
	}
	m.records[name] = value
	m.puts++
	return nil
}

// DeleteRecord removes a value.
func (m *MockStore) DeleteRecord(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.records, name)
	m.deletes++
	return nil
}

// SetRaw plants a value directly, bypassing PutErr. Used to simulate
// corrupt or externally written records.
func (m *MockStore) SetRaw(name, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[name] = value
}

// Has reports whether a record exists.
func (m *MockStore) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[name]
	return ok
}

// Counts returns the number of successful puts and deletes.
func (m *MockStore) Counts() (puts, deletes int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts, m.deletes
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

// Ensure MockStore implements RecordStore
var _ RecordStore = (*MockStore)(nil)
