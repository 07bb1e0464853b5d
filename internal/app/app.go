package app

import (
    "context"
    "errors"
    "fmt"

    "github.com/hashicorp/go-multierror"
    logging "github.com/ipfs/go-log/v2"
    "github.com/kmatotek/WCPCLeaderboard/internal/aggregator"
    "github.com/kmatotek/WCPCLeaderboard/internal/cache"
    "github.com/kmatotek/WCPCLeaderboard/internal/config"
    "github.com/kmatotek/WCPCLeaderboard/internal/leaderboard"
    "github.com/kmatotek/WCPCLeaderboard/internal/models"
    "github.com/kmatotek/WCPCLeaderboard/internal/store"
    "github.com/kmatotek/WCPCLeaderboard/internal/upstream"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var log = logging.Logger("app")

// Cache keys and roster board names. The keys match what earlier
// deployments wrote to Redis.
const (
    CodeforcesKey = "Codeforcesleaderboard"
    LeetCodeKey   = "leetcodeLeaderboard"

    CodeforcesBoard = "codeforces"
    LeetCodeBoard   = "leetcode"
)

type App struct {
    Codeforces *leaderboard.Service[models.CodeforcesEntry]
    LeetCode   *leaderboard.Service[models.LeetCodeEntry]
    Registry   *prometheus.Registry

    closers []func() error
}

// rosterWriter seeds an empty roster with the configured users.
type rosterWriter interface {
    SetMembers(ctx context.Context, board string, users []string) error
}

// Deps are the external collaborators of an App.
type Deps struct {
    Store  cache.Store
    Roster store.Roster
    HTTP   upstream.Doer
}

// Build connects to the configured backends. Neither an unreachable cache
// nor an unreachable roster database stops the process: the first
// degrades to uncached reads, the second to the configured users.
func Build(ctx context.Context, cfg config.Common) (*App, error) {
    st := newCacheStore(ctx, cfg)
    closers := []func() error{st.Close}

    var roster store.Roster = store.Static{
        CodeforcesBoard: cfg.CodeforcesUsers,
        LeetCodeBoard:   cfg.LeetCodeUsers,
    }
    if cfg.PgDSN != "" {
        pg, err := openRoster(ctx, cfg.PgDSN)
        if err != nil {
            log.Warnw("roster database unavailable, using configured users", "err", err)
        } else {
            roster = pg
            closers = append(closers, func() error { pg.Close(); return nil })
        }
    }

    a, err := Assemble(ctx, cfg, Deps{
        Store:  st,
        Roster: roster,
        HTTP:   upstream.NewHTTPClient(cfg.UpstreamTimeout, cfg.UpstreamRetries),
    })
    if err != nil {
        for _, c := range closers {
            _ = c()
        }
        return nil, err
    }
    a.closers = closers
    return a, nil
}

// Assemble wires the two boards on top of deps.
func Assemble(ctx context.Context, cfg config.Common, deps Deps) (*App, error) {
    if deps.Store == nil || deps.Roster == nil || deps.HTTP == nil {
        return nil, errors.New("app: missing dependency")
    }
    cfUsers, err := rosterFor(ctx, deps.Roster, CodeforcesBoard, cfg.CodeforcesUsers)
    if err != nil { return nil, err }
    lcUsers, err := rosterFor(ctx, deps.Roster, LeetCodeBoard, cfg.LeetCodeUsers)
    if err != nil { return nil, err }

    cfPolicy, err := boardPolicy(cfg.CodeforcesPolicy, models.FailFast)
    if err != nil { return nil, err }
    lcPolicy, err := boardPolicy(cfg.LeetCodePolicy, models.FailSoft)
    if err != nil { return nil, err }

    reg := prometheus.NewRegistry()
    reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    metrics := leaderboard.NewMetrics(reg)

    a := &App{Registry: reg}
    a.Codeforces = &leaderboard.Service[models.CodeforcesEntry]{
        Key:   CodeforcesKey,
        Users: cfUsers,
        TTL:   cfg.CacheTTL,
        Store: deps.Store,
        Engine: &aggregator.Engine[models.CodeforcesEntry]{
            Provider:    CodeforcesBoard,
            Fetcher:     upstream.NewCodeforces(cfg.CodeforcesURL, deps.HTTP),
            Policy:      cfPolicy,
            Fallback:    models.CodeforcesFallback,
            Concurrency: cfg.FetchConcurrency,
            OnFallback:  metrics.Fallback(CodeforcesKey),
            // Codeforces handles are case-insensitive and the entry carries
            // the handle as Codeforces spells it.
            FoldCase: true,
            Identity: func(e models.CodeforcesEntry) string { return e.Username },
        },
        Coalesce: cfg.Coalesce,
        Metrics:  metrics,
    }
    a.LeetCode = &leaderboard.Service[models.LeetCodeEntry]{
        Key:   LeetCodeKey,
        Users: lcUsers,
        TTL:   cfg.CacheTTL,
        Store: deps.Store,
        Engine: &aggregator.Engine[models.LeetCodeEntry]{
            Provider:    LeetCodeBoard,
            Fetcher:     upstream.NewLeetCode(cfg.LeetCodeURL, deps.HTTP),
            Policy:      lcPolicy,
            Fallback:    models.LeetCodeFallback,
            RankBy:      models.LeetCodeEntry.ContestRank,
            Concurrency: cfg.FetchConcurrency,
            OnFallback:  metrics.Fallback(LeetCodeKey),
        },
        Coalesce: cfg.Coalesce,
        Metrics:  metrics,
    }
    if err := a.Codeforces.Engine.Validate(cfUsers); err != nil {
        return nil, fmt.Errorf("%s roster: %w", CodeforcesBoard, err)
    }
    if err := a.LeetCode.Engine.Validate(lcUsers); err != nil {
        return nil, fmt.Errorf("%s roster: %w", LeetCodeBoard, err)
    }
    log.Infow("boards ready", "codeforces", len(cfUsers), "codeforcesPolicy", cfPolicy.String(),
        "leetcode", len(lcUsers), "leetcodePolicy", lcPolicy.String(), "ttl", cfg.CacheTTL)
    return a, nil
}

func (a *App) Boards() []leaderboard.Refresher {
    return []leaderboard.Refresher{a.Codeforces, a.LeetCode}
}

func (a *App) Close() error {
    var merr *multierror.Error
    for i := len(a.closers) - 1; i >= 0; i-- {
        if err := a.closers[i](); err != nil {
            merr = multierror.Append(merr, err)
        }
    }
    return merr.ErrorOrNil()
}

func newCacheStore(ctx context.Context, cfg config.Common) cache.Store {
    if cfg.CacheBackend == "memory" {
        log.Infow("using in-process cache")
        return cache.NewMemory(nil)
    }
    r := cache.NewRedis(cache.RedisOptions{
        Addr:         cfg.RedisAddr(),
        DB:           cfg.RedisDB,
        DialTimeout:  cfg.CacheTimeout,
        ReadTimeout:  cfg.CacheTimeout,
        WriteTimeout: cfg.CacheTimeout,
    })
    cctx, cancel := context.WithTimeout(ctx, cfg.CacheTimeout)
    defer cancel()
    if err := r.Connect(cctx); err != nil {
        log.Warnw("redis not reachable, serving uncached until it is", "addr", cfg.RedisAddr(), "err", err)
    } else {
        log.Infow("connected to redis", "addr", cfg.RedisAddr())
    }
    return r
}

func openRoster(ctx context.Context, dsn string) (*store.Postgres, error) {
    pg, err := store.NewPostgres(ctx, dsn)
    if err != nil { return nil, err }
    if err := pg.EnsureSchema(ctx); err != nil {
        pg.Close()
        return nil, err
    }
    return pg, nil
}

// boardPolicy parses a configured policy; an empty value means def.
func boardPolicy(s string, def models.Policy) (models.Policy, error) {
    if s == "" { return def, nil }
    return models.ParsePolicy(s)
}

// rosterFor reads a board's users; an empty roster is seeded with def when
// the roster is writable.
func rosterFor(ctx context.Context, r store.Roster, board string, def []string) ([]string, error) {
    if _, err := r.Members(ctx, board); errors.Is(err, store.ErrEmptyRoster) {
        if w, ok := r.(rosterWriter); ok {
            if err := w.SetMembers(ctx, board, def); err != nil {
                log.Warnw("seeding roster failed", "board", board, "err", err)
            }
        }
    }
    return store.Load(ctx, r, board, def)
}
