package mock

import (
    "context"
    "errors"
    "sync"
    "sync/atomic"
    "time"
)

var ErrFetch = errors.New("mock fetch failed")

// MockFetcher serves canned records. Users listed in Fail return ErrFetch;
// Delay holds a user's fetch back so completion order differs from input
// order.
type MockFetcher[T any] struct {
    mu      sync.Mutex
    Records map[string]T
    Fail    map[string]bool
    Delay   map[string]time.Duration

    calls    atomic.Int32
    inFlight atomic.Int32
    maxSeen  atomic.Int32
}

func NewMockFetcher[T any](records map[string]T) *MockFetcher[T] {
    return &MockFetcher[T]{Records: records, Fail: map[string]bool{}, Delay: map[string]time.Duration{}}
}

func (m *MockFetcher[T]) Fetch(ctx context.Context, username string) (T, error) {
    m.calls.Add(1)
    n := m.inFlight.Add(1)
    defer m.inFlight.Add(-1)
    for {
        cur := m.maxSeen.Load()
        if n <= cur || m.maxSeen.CompareAndSwap(cur, n) { break }
    }

    m.mu.Lock()
    d := m.Delay[username]
    fail := m.Fail[username]
    rec, ok := m.Records[username]
    m.mu.Unlock()

    if d > 0 { time.Sleep(d) }
    var zero T
    if fail || !ok { return zero, ErrFetch }
    return rec, nil
}

func (m *MockFetcher[T]) SetFail(username string, fail bool) {
    m.mu.Lock()
    m.Fail[username] = fail
    m.mu.Unlock()
}

func (m *MockFetcher[T]) Calls() int { return int(m.calls.Load()) }

// MaxInFlight is the highest number of concurrent Fetch calls observed.
func (m *MockFetcher[T]) MaxInFlight() int { return int(m.maxSeen.Load()) }
