package store

import (
    "context"
    "errors"
)

var ErrEmptyRoster = errors.New("board has no members")

// Roster lists the usernames of each board in display order.
type Roster interface {
    Members(ctx context.Context, board string) ([]string, error)
}

// Static is a Roster held in memory, usually built from configuration.
type Static map[string][]string

func (s Static) Members(ctx context.Context, board string) ([]string, error) {
    m := s[board]
    if len(m) == 0 { return nil, ErrEmptyRoster }
    return append([]string(nil), m...), nil
}

// Load reads a board's roster, falling back to def when the roster has no
// members for it.
func Load(ctx context.Context, r Roster, board string, def []string) ([]string, error) {
    m, err := r.Members(ctx, board)
    if errors.Is(err, ErrEmptyRoster) {
        return append([]string(nil), def...), nil
    }
    if err != nil { return nil, err }
    return m, nil
}
