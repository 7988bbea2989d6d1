package out

import (
	"context"
	"sort"
	"strings"
	"sync"

	storageout "docgrind/internal/modules/storage/port/out"
)

// MemoryKVStore keeps values in a map. FailWrites makes the next n Set
// calls return err, which is how tests exercise retries.
type MemoryKVStore struct {
	mu       sync.Mutex
	values   map[string]string
	failures int
	failErr  error
	setCalls int
}

var _ storageout.KVStore = (*MemoryKVStore)(nil)

func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{values: map[string]string{}}
}

func (m *MemoryKVStore) FailWrites(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
	m.failErr = err
}

// SetCalls counts Set attempts, failed ones included.
func (m *MemoryKVStore) SetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setCalls
}

func (m *MemoryKVStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKVStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.failures > 0 {
		m.failures--
		return m.failErr
	}
	m.values[key] = value
	return nil
}

func (m *MemoryKVStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryKVStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
