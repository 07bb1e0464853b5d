package leaderboard

import (
    "context"
    "errors"
    "time"
)

type Refresher interface {
    Name() string
    Refresh(ctx context.Context) error
}

// Warmer rebuilds every board on a fixed interval so that readers rarely
// see a miss. Interval should be below the cache TTL.
type Warmer struct {
    Boards   []Refresher
    Interval time.Duration
}

func (w *Warmer) Run(ctx context.Context) error {
    if w.Interval <= 0 {
        return errors.New("warmer: interval must be positive")
    }
    log.Infow("warmer starting", "boards", len(w.Boards), "interval", w.Interval)
    ticker := time.NewTicker(w.Interval)
    defer ticker.Stop()
    for {
        w.refreshAll(ctx)
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-ticker.C:
        }
    }
}

func (w *Warmer) refreshAll(ctx context.Context) {
    for _, b := range w.Boards {
        if ctx.Err() != nil { return }
        t0 := time.Now()
        if err := b.Refresh(ctx); err != nil {
            log.Warnw("refresh failed", "board", b.Name(), "err", err)
            continue
        }
        log.Debugw("refreshed", "board", b.Name(), "took", time.Since(t0))
    }
}
