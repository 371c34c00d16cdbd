package blob

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Mock is an in-memory Store for tests.
type Mock struct {
	mu      sync.Mutex
	objects map[string][]byte

	// FailPut, when set, is returned from Put to simulate upload
	// failures.
	FailPut error
}

// NewMock returns an empty in-memory store.
func NewMock() *Mock {
	return &Mock{objects: make(map[string][]byte)}
}

func (m *Mock) Put(ctx context.Context, key string, r io.Reader) error {
	if m.FailPut != nil {
		return m.FailPut
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *Mock) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return fmt.Errorf("no object under key %s", key)
	}
	delete(m.objects, key)
	return nil
}

// Object returns the stored bytes for key and whether it exists.
func (m *Mock) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

// Len reports the number of stored objects.
func (m *Mock) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
