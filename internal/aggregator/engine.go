package aggregator

import (
    "context"
    "errors"
    "fmt"
    "sort"
    "strings"
    "time"

    "github.com/hashicorp/go-multierror"
    logging "github.com/ipfs/go-log/v2"
    "github.com/kmatotek/WCPCLeaderboard/internal/models"
    "github.com/kmatotek/WCPCLeaderboard/internal/upstream"
    "golang.org/x/sync/errgroup"
)

var log = logging.Logger("aggregator")

var ErrDuplicateUsername = errors.New("duplicate username")

// DefaultConcurrency caps in-flight fetches when Engine.Concurrency is unset.
const DefaultConcurrency = 8

// AggregateError ends a FailFast aggregation.
type AggregateError struct {
    Provider string
    Username string
    Err      error
}

func (e *AggregateError) Error() string {
    return fmt.Sprintf("aggregate %s: user %q: %v", e.Provider, e.Username, e.Err)
}

func (e *AggregateError) Unwrap() error { return e.Err }

// Engine fetches every user of a board and merges the records.
type Engine[T any] struct {
    Provider string
    Fetcher  upstream.Fetcher[T]
    Policy   models.Policy
    // Fallback stands in for a failed user under FailSoft.
    Fallback func(username string) T
    // RankBy, when set, orders the result ascending by rank (stable).
    // Otherwise the username order is kept.
    RankBy      func(T) models.Rank
    Concurrency int

    // OnFallback is called once per substituted entry.
    OnFallback func(username string, err error)

    // FoldCase treats usernames that differ only in case as the same user.
    FoldCase bool
    // Identity names a fetched record. When set, two records with the same
    // identity fail the aggregation after the fetches.
    Identity func(T) string
}

// Validate reports whether usernames can be aggregated as one board.
func (e *Engine[T]) Validate(usernames []string) error {
    return checkUnique(usernames, e.FoldCase)
}

type result[T any] struct {
    entry T
    err   error
}

// Aggregate runs one fetch per username and waits for all of them, even
// under FailFast. A FailFast error names the earliest failed username in
// input order.
func (e *Engine[T]) Aggregate(ctx context.Context, usernames []string) ([]T, error) {
    if err := e.Validate(usernames); err != nil {
        return nil, fmt.Errorf("aggregate %s: %w", e.Provider, err)
    }
    if e.Policy == models.FailSoft && e.Fallback == nil {
        return nil, fmt.Errorf("aggregate %s: fail-soft policy without fallback", e.Provider)
    }

    started := time.Now()
    results := make([]result[T], len(usernames))
    limit := e.Concurrency
    if limit <= 0 { limit = DefaultConcurrency }

    var g errgroup.Group
    g.SetLimit(limit)
    for i, u := range usernames {
        i, u := i, u
        g.Go(func() error {
            entry, err := e.Fetcher.Fetch(ctx, u)
            results[i] = result[T]{entry: entry, err: err}
            return nil
        })
    }
    _ = g.Wait()

    out := make([]T, 0, len(usernames))
    var failed *multierror.Error
    for i, r := range results {
        if r.err == nil {
            out = append(out, r.entry)
            continue
        }
        if e.Policy == models.FailFast {
            return nil, &AggregateError{Provider: e.Provider, Username: usernames[i], Err: r.err}
        }
        failed = multierror.Append(failed, r.err)
        if e.OnFallback != nil { e.OnFallback(usernames[i], r.err) }
        out = append(out, e.Fallback(usernames[i]))
    }
    if failed != nil {
        log.Warnw("substituted fallback entries", "provider", e.Provider,
            "failed", failed.Len(), "users", len(usernames), "err", failed.ErrorOrNil())
    }

    if e.Identity != nil {
        ids := make([]string, len(out))
        for i, entry := range out {
            ids[i] = e.Identity(entry)
        }
        if err := checkUnique(ids, e.FoldCase); err != nil {
            return nil, fmt.Errorf("aggregate %s: upstream records: %w", e.Provider, err)
        }
    }

    if e.RankBy != nil {
        sort.SliceStable(out, func(a, b int) bool { return e.RankBy(out[a]).Less(e.RankBy(out[b])) })
    }
    log.Debugw("aggregated", "provider", e.Provider, "users", len(usernames), "took", time.Since(started))
    return out, nil
}

func checkUnique(usernames []string, fold bool) error {
    seen := make(map[string]struct{}, len(usernames))
    for _, u := range usernames {
        k := u
        if fold { k = strings.ToLower(u) }
        if _, ok := seen[k]; ok {
            return fmt.Errorf("%w: %q", ErrDuplicateUsername, u)
        }
        seen[k] = struct{}{}
    }
    return nil
}
