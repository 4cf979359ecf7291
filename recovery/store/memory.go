package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemTransport keeps payloads in memory. It counts calls and can inject
// faults, which makes it the transport of choice for tests.
//
// Set ExistsErr, ReadErr or WriteErr before use to make the corresponding
// operation fail.
type MemTransport struct {
	mu   sync.RWMutex
	data map[string][]byte

	ExistsErr error
	ReadErr   error
	WriteErr  error

	existsCalls int
	readCalls   int
	writeCalls  int
}

// NewMemTransport creates an empty MemTransport.
func NewMemTransport() *MemTransport {
	return &MemTransport{data: make(map[string][]byte)}
}

func (m *MemTransport) Exists(ctx context.Context, location string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.existsCalls++
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	_, ok := m.data[location]
	return ok, nil
}

func (m *MemTransport) Read(ctx context.Context, location string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readCalls++
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	data, ok := m.data[location]
	if !ok {
		return nil, fmt.Errorf("%s: %w", location, ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemTransport) Write(ctx context.Context, location string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeCalls++
	if m.WriteErr != nil {
		return m.WriteErr
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	m.data[location] = stored
	return nil
}

func (m *MemTransport) Remove(ctx context.Context, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, location)
	return nil
}

func (m *MemTransport) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for loc := range m.data {
		if strings.HasPrefix(loc, prefix) {
			out = append(out, loc)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Put stores data at location without counting a write.
func (m *MemTransport) Put(location string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[location] = data
}

// Get returns the bytes stored at location.
func (m *MemTransport) Get(location string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[location]
	return data, ok
}

// Calls returns how many times Exists, Read and Write were invoked.
func (m *MemTransport) Calls() (exists, reads, writes int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.existsCalls, m.readCalls, m.writeCalls
}

// Reset clears stored data, counters and injected faults.
func (m *MemTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string][]byte)
	m.ExistsErr, m.ReadErr, m.WriteErr = nil, nil, nil
	m.existsCalls, m.readCalls, m.writeCalls = 0, 0, 0
}
