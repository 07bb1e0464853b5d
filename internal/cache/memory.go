package cache

import (
    "context"
    "sync"
    "time"

    "github.com/jonboulle/clockwork"
)

type memEntry struct {
    value     []byte
    expiresAt time.Time
}

// Memory is a process-local Store. Values are copied in and out so callers
// never share a buffer with a stored entry.
type Memory struct {
    clock clockwork.Clock

    mu      sync.RWMutex
    entries map[string]memEntry
}

func NewMemory(clock clockwork.Clock) *Memory {
    if clock == nil { clock = clockwork.NewRealClock() }
    return &Memory{clock: clock, entries: make(map[string]memEntry)}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
    if err := ctx.Err(); err != nil {
        return nil, false, unavailable("GET", key, err)
    }
    now := m.clock.Now()
    m.mu.RLock()
    e, ok := m.entries[key]
    m.mu.RUnlock()
    if !ok {
        return nil, false, nil
    }
    if !now.Before(e.expiresAt) {
        m.mu.Lock()
        // another Set may have replaced it meanwhile
        if cur, ok := m.entries[key]; ok && !now.Before(cur.expiresAt) {
            delete(m.entries, key)
        }
        m.mu.Unlock()
        return nil, false, nil
    }
    out := make([]byte, len(e.value))
    copy(out, e.value)
    return out, true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
    if err := ctx.Err(); err != nil {
        return unavailable("SETEX", key, err)
    }
    v := make([]byte, len(value))
    copy(v, value)
    e := memEntry{value: v, expiresAt: m.clock.Now().Add(ttl)}
    m.mu.Lock()
    m.entries[key] = e
    m.mu.Unlock()
    return nil
}

// Len counts entries that have not expired yet.
func (m *Memory) Len() int {
    now := m.clock.Now()
    m.mu.RLock()
    defer m.mu.RUnlock()
    n := 0
    for _, e := range m.entries {
        if now.Before(e.expiresAt) { n++ }
    }
    return n
}

func (m *Memory) Close() error {
    m.mu.Lock()
    m.entries = make(map[string]memEntry)
    m.mu.Unlock()
    return nil
}
