package mock

import (
    "context"
    "sync"

    "github.com/kmatotek/WCPCLeaderboard/internal/store"
)

// MockRoster is an editable in-memory roster. Err, when set, is returned
// by every call.
type MockRoster struct {
    mu     sync.Mutex
    Boards map[string][]string
    Err    error
    Saved  map[string][]string
}

var _ store.Roster = (*MockRoster)(nil)

func NewMockRoster() *MockRoster {
    return &MockRoster{Boards: map[string][]string{}, Saved: map[string][]string{}}
}

func (m *MockRoster) Members(ctx context.Context, board string) ([]string, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.Err != nil { return nil, m.Err }
    users := m.Boards[board]
    if len(users) == 0 { return nil, store.ErrEmptyRoster }
    return append([]string(nil), users...), nil
}

func (m *MockRoster) SetMembers(ctx context.Context, board string, users []string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.Err != nil { return m.Err }
    m.Boards[board] = append([]string(nil), users...)
    m.Saved[board] = append([]string(nil), users...)
    return nil
}
