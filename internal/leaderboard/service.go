package leaderboard

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    logging "github.com/ipfs/go-log/v2"
    "github.com/kmatotek/WCPCLeaderboard/internal/aggregator"
    "github.com/kmatotek/WCPCLeaderboard/internal/cache"
    "golang.org/x/sync/singleflight"
)

var log = logging.Logger("leaderboard")

// DefaultTTL is how long an aggregated board stays cached.
const DefaultTTL = 120 * time.Second

// ServiceError is returned when a board could not be built.
type ServiceError struct {
    Key string
    Err error
}

func (e *ServiceError) Error() string { return fmt.Sprintf("leaderboard %s: %v", e.Key, e.Err) }

func (e *ServiceError) Unwrap() error { return e.Err }

// Service serves one board cache-aside. Users and Key are fixed for the
// lifetime of the process.
type Service[T any] struct {
    Key    string
    Users  []string
    TTL    time.Duration
    Store  cache.Store
    Engine *aggregator.Engine[T]

    // Coalesce shares one aggregation among concurrent misses on Key in
    // this process. Other processes still aggregate on their own.
    Coalesce bool
    Metrics  *Metrics

    sf singleflight.Group
}

func (s *Service[T]) Name() string { return s.Key }

// Get returns the cached board or builds it. Cache store failures never
// fail the call; aggregation failures do, as *ServiceError.
func (s *Service[T]) Get(ctx context.Context) ([]T, error) {
    if entries, ok := s.lookup(ctx); ok {
        s.Metrics.hit(s.Key)
        return entries, nil
    }
    s.Metrics.miss(s.Key)

    if !s.Coalesce {
        return s.build(ctx)
    }
    v, err, shared := s.sf.Do(s.Key, func() (any, error) {
        // a caller that goes away must not fail the others sharing this call
        return s.build(context.WithoutCancel(ctx))
    })
    if err != nil {
        return nil, err
    }
    entries := v.([]T)
    if shared {
        log.Debugw("shared aggregation", "board", s.Key)
        entries = append([]T(nil), entries...)
    }
    return entries, nil
}

// Refresh rebuilds the board and overwrites the cache regardless of what
// is cached.
func (s *Service[T]) Refresh(ctx context.Context) error {
    _, err := s.build(ctx)
    return err
}

func (s *Service[T]) lookup(ctx context.Context) ([]T, bool) {
    b, ok, err := s.Store.Get(ctx, s.Key)
    if err != nil {
        s.Metrics.storeError(s.Key, "get")
        log.Warnw("cache lookup failed, aggregating", "board", s.Key, "err", err)
        return nil, false
    }
    if !ok {
        return nil, false
    }
    var entries []T
    if err := json.Unmarshal(b, &entries); err != nil {
        log.Warnw("discarding undecodable cache entry", "board", s.Key, "err", err)
        return nil, false
    }
    log.Debugw("cache hit", "board", s.Key, "entries", len(entries))
    return entries, true
}

func (s *Service[T]) build(ctx context.Context) ([]T, error) {
    started := time.Now()
    entries, err := s.Engine.Aggregate(ctx, s.Users)
    s.Metrics.aggregated(s.Key, time.Since(started), err)
    if err != nil {
        log.Errorw("aggregation failed", "board", s.Key, "err", err)
        return nil, &ServiceError{Key: s.Key, Err: err}
    }

    b, err := json.Marshal(entries)
    if err != nil {
        log.Errorw("encode board", "board", s.Key, "err", err)
        return entries, nil
    }
    ttl := s.TTL
    if ttl <= 0 { ttl = DefaultTTL }
    if err := s.Store.Set(ctx, s.Key, b, ttl); err != nil {
        s.Metrics.storeError(s.Key, "set")
        log.Warnw("cache populate failed, serving fresh result", "board", s.Key, "err", err)
        return entries, nil
    }
    log.Infow("board cached", "board", s.Key, "entries", len(entries), "ttl", ttl)
    return entries, nil
}
