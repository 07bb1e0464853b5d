package mock

import (
    "context"
    "fmt"
    "sync"
    "time"

    "github.com/kmatotek/WCPCLeaderboard/internal/cache"
)

// MockCache records calls and can be told to fail like an unreachable store.
type MockCache struct {
    mu      sync.Mutex
    Items   map[string][]byte
    TTLs    map[string]time.Duration
    FailGet bool
    FailSet bool

    Gets int
    Sets int
}

var _ cache.Store = (*MockCache)(nil)

func NewMockCache() *MockCache {
    return &MockCache{Items: map[string][]byte{}, TTLs: map[string]time.Duration{}}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.Gets++
    if m.FailGet { return nil, false, fmt.Errorf("%w: connection refused", cache.ErrUnavailable) }
    v, ok := m.Items[key]
    return v, ok, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.Sets++
    if m.FailSet { return fmt.Errorf("%w: connection reset", cache.ErrUnavailable) }
    m.Items[key] = append([]byte(nil), value...)
    m.TTLs[key] = ttl
    return nil
}

func (m *MockCache) Put(key string, value []byte) {
    m.mu.Lock()
    m.Items[key] = value
    m.mu.Unlock()
}

func (m *MockCache) Calls() (gets, sets int) {
    m.mu.Lock()
    defer m.mu.Unlock()
    return m.Gets, m.Sets
}

func (m *MockCache) Close() error { return nil }
