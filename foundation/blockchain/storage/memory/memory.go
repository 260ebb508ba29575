// Package memory implements the storage contract with a map held in memory.
package memory

import (
	"sync"
)

// Memory represents the storage implementation for reading and writing
// values in memory using a map. This implements the storage.Storage
// interface.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New constructs a Memory value for use.
func New() (*Memory, error) {
	m := Memory{
		data: make(map[string][]byte),
	}

	return &m, nil
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Get returns a copy of the value stored for the key.
func (m *Memory) Get(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, exists := m.data[string(key)]
	if !exists {
		return nil, false, nil
	}

	return clone(v), true, nil
}

// Put stores a copy of the value for the key.
func (m *Memory) Put(key []byte, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[string(key)] = clone(value)

	return nil
}

// Delete removes the key if it exists.
func (m *Memory) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, string(key))

	return nil
}

func clone(v []byte) []byte {
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp
}
