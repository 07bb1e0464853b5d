package leaderboard_test

import (
    "context"
    "encoding/json"
    "sync"
    "sync/atomic"
    "testing"
    "time"

    "github.com/jonboulle/clockwork"
    "github.com/kmatotek/WCPCLeaderboard/internal/aggregator"
    "github.com/kmatotek/WCPCLeaderboard/internal/cache"
    "github.com/kmatotek/WCPCLeaderboard/internal/leaderboard"
    "github.com/kmatotek/WCPCLeaderboard/internal/mock"
    "github.com/kmatotek/WCPCLeaderboard/internal/models"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/testutil"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

const lcKey = "leetcodeLeaderboard"

func title(s string) *string { return &s }

func lcRecords() map[string]models.LeetCodeEntry {
    return map[string]models.LeetCodeEntry{
        "A": {Username: "A", TotalSolved: 300, Ranking: models.Numeric(1200), ContestRanking: models.Numeric(44), ContestTitle: title("Weekly Contest 420")},
        "B": {Username: "B", TotalSolved: 150, Ranking: models.Numeric(80000), ContestRanking: models.Unranked()},
        "C": {Username: "C", TotalSolved: 600, Ranking: models.Numeric(300), ContestRanking: models.Numeric(7), ContestTitle: title("Weekly Contest 420")},
    }
}

func newLeetCodeService(store cache.Store, f *mock.MockFetcher[models.LeetCodeEntry], m *leaderboard.Metrics) *leaderboard.Service[models.LeetCodeEntry] {
    return &leaderboard.Service[models.LeetCodeEntry]{
        Key:   lcKey,
        Users: []string{"A", "B", "C"},
        TTL:   120 * time.Second,
        Store: store,
        Engine: &aggregator.Engine[models.LeetCodeEntry]{
            Provider:   "leetcode",
            Fetcher:    f,
            Policy:     models.FailSoft,
            Fallback:   models.LeetCodeFallback,
            RankBy:     models.LeetCodeEntry.ContestRank,
            OnFallback: m.Fallback(lcKey),
        },
        Metrics: m,
    }
}

func usernames(es []models.LeetCodeEntry) []string {
    out := make([]string, 0, len(es))
    for _, e := range es {
        out = append(out, e.Username)
    }
    return out
}

func TestCacheHitSkipsUpstream(t *testing.T) {
    mc := mock.NewMockCache()
    cached := []models.LeetCodeEntry{{Username: "cached", TotalSolved: 1, Ranking: models.Numeric(9), ContestRanking: models.Numeric(2)}}
    b, err := json.Marshal(cached)
    require.NoError(t, err)
    mc.Put(lcKey, b)

    f := mock.NewMockFetcher(lcRecords())
    svc := newLeetCodeService(mc, f, nil)
    got, err := svc.Get(context.Background())
    require.NoError(t, err)
    require.Equal(t, cached, got)
    require.Equal(t, 0, f.Calls())
}

func TestMissAggregatesAndPopulates(t *testing.T) {
    mc := mock.NewMockCache()
    f := mock.NewMockFetcher(lcRecords())
    reg := prometheus.NewRegistry()
    m := leaderboard.NewMetrics(reg)
    svc := newLeetCodeService(mc, f, m)

    got, err := svc.Get(context.Background())
    require.NoError(t, err)
    require.Equal(t, []string{"C", "A", "B"}, usernames(got))
    require.Equal(t, 3, f.Calls())
    require.Equal(t, 120*time.Second, mc.TTLs[lcKey])

    // second call is served from the cache
    again, err := svc.Get(context.Background())
    require.NoError(t, err)
    require.Equal(t, got, again)
    require.Equal(t, 3, f.Calls())

    require.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses.WithLabelValues(lcKey)))
    require.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits.WithLabelValues(lcKey)))
}

func TestTTLExpiryTriggersRefresh(t *testing.T) {
    clock := clockwork.NewFakeClock()
    store := cache.NewMemory(clock)
    f := mock.NewMockFetcher(lcRecords())
    svc := newLeetCodeService(store, f, nil)
    ctx := context.Background()

    _, err := svc.Get(ctx)
    require.NoError(t, err)
    require.Equal(t, 3, f.Calls())

    clock.Advance(119 * time.Second)
    _, err = svc.Get(ctx)
    require.NoError(t, err)
    require.Equal(t, 3, f.Calls())

    clock.Advance(time.Second)
    _, err = svc.Get(ctx)
    require.NoError(t, err)
    require.Equal(t, 6, f.Calls())
}

func TestCacheRoundTrip(t *testing.T) {
    store := cache.NewMemory(clockwork.NewFakeClock())
    f := mock.NewMockFetcher(lcRecords())
    f.SetFail("B", true)
    svc := newLeetCodeService(store, f, nil)
    ctx := context.Background()

    fresh, err := svc.Get(ctx)
    require.NoError(t, err)
    cached, err := svc.Get(ctx)
    require.NoError(t, err)
    require.Equal(t, 3, f.Calls())
    require.Equal(t, fresh, cached)
    require.Equal(t, models.LeetCodeFallback("B"), cached[2])
}

func TestStoreUnavailableDegrades(t *testing.T) {
    mc := mock.NewMockCache()
    mc.FailGet = true
    mc.FailSet = true
    f := mock.NewMockFetcher(lcRecords())
    reg := prometheus.NewRegistry()
    m := leaderboard.NewMetrics(reg)
    svc := newLeetCodeService(mc, f, m)

    got, err := svc.Get(context.Background())
    require.NoError(t, err)
    require.Equal(t, []string{"C", "A", "B"}, usernames(got))
    gets, sets := mc.Calls()
    require.Equal(t, 1, gets)
    require.Equal(t, 1, sets)
    require.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrors.WithLabelValues(lcKey, "get")))
    require.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrors.WithLabelValues(lcKey, "set")))

    // nothing was cached, so the next call aggregates again
    _, err = svc.Get(context.Background())
    require.NoError(t, err)
    require.Equal(t, 6, f.Calls())
}

func TestStoreGetFailsButSetWorks(t *testing.T) {
    mc := mock.NewMockCache()
    mc.FailGet = true
    f := mock.NewMockFetcher(lcRecords())
    svc := newLeetCodeService(mc, f, nil)

    got, err := svc.Get(context.Background())
    require.NoError(t, err)
    require.Len(t, got, 3)
    require.Contains(t, mc.Items, lcKey)
}

func TestUndecodableCacheEntryIsMiss(t *testing.T) {
    mc := mock.NewMockCache()
    mc.Put(lcKey, []byte("{not json"))
    f := mock.NewMockFetcher(lcRecords())
    svc := newLeetCodeService(mc, f, nil)

    got, err := svc.Get(context.Background())
    require.NoError(t, err)
    require.Len(t, got, 3)
    require.Equal(t, 3, f.Calls())
}

func TestFailFastSurfacesServiceError(t *testing.T) {
    mc := mock.NewMockCache()
    f := mock.NewMockFetcher(map[string]models.CodeforcesEntry{
        "X": {Username: "X", Rating: 1900},
    })
    reg := prometheus.NewRegistry()
    m := leaderboard.NewMetrics(reg)
    svc := &leaderboard.Service[models.CodeforcesEntry]{
        Key:     "Codeforcesleaderboard",
        Users:   []string{"X", "Y"},
        Store:   mc,
        Engine:  &aggregator.Engine[models.CodeforcesEntry]{Provider: "codeforces", Fetcher: f, Policy: models.FailFast},
        Metrics: m,
    }

    got, err := svc.Get(context.Background())
    require.Nil(t, got)
    var se *leaderboard.ServiceError
    require.ErrorAs(t, err, &se)
    require.Equal(t, "Codeforcesleaderboard", se.Key)
    var ae *aggregator.AggregateError
    require.ErrorAs(t, err, &ae)
    _, sets := mc.Calls()
    require.Equal(t, 0, sets)
    require.Equal(t, 1.0, testutil.ToFloat64(m.AggregateFailures.WithLabelValues("Codeforcesleaderboard")))
}

func TestDefaultTTL(t *testing.T) {
    mc := mock.NewMockCache()
    f := mock.NewMockFetcher(lcRecords())
    svc := newLeetCodeService(mc, f, nil)
    svc.TTL = 0
    _, err := svc.Get(context.Background())
    require.NoError(t, err)
    require.Equal(t, leaderboard.DefaultTTL, mc.TTLs[lcKey])
}

// slowFetcher blocks every fetch until gate is closed.
type slowFetcher struct {
    calls atomic.Int32
    gate  chan struct{}
}

func (s *slowFetcher) Fetch(ctx context.Context, u string) (models.CodeforcesEntry, error) {
    s.calls.Add(1)
    <-s.gate
    return models.CodeforcesEntry{Username: u}, nil
}

func TestConcurrentMisses(t *testing.T) {
    for _, coalesce := range []bool{false, true} {
        f := &slowFetcher{gate: make(chan struct{})}
        mc := mock.NewMockCache()
        svc := &leaderboard.Service[models.CodeforcesEntry]{
            Key:      "cf",
            Users:    []string{"tourist"},
            Store:    mc,
            Engine:   &aggregator.Engine[models.CodeforcesEntry]{Provider: "codeforces", Fetcher: f, Policy: models.FailFast},
            Coalesce: coalesce,
        }

        const n = 4
        var wg sync.WaitGroup
        results := make([][]models.CodeforcesEntry, n)
        for i := 0; i < n; i++ {
            wg.Add(1)
            go func(i int) {
                defer wg.Done()
                got, err := svc.Get(context.Background())
                assert.NoError(t, err)
                results[i] = got
            }(i)
        }
        // every caller has missed the cache and is waiting on an aggregation
        require.Eventually(t, func() bool {
            gets, _ := mc.Calls()
            return gets == n
        }, time.Second, 5*time.Millisecond)
        if coalesce {
            require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
        } else {
            require.Eventually(t, func() bool { return f.calls.Load() == n }, time.Second, 5*time.Millisecond)
        }
        // callers still between the cache miss and the aggregation
        time.Sleep(50 * time.Millisecond)
        close(f.gate)
        wg.Wait()

        for _, r := range results {
            require.Equal(t, []models.CodeforcesEntry{{Username: "tourist"}}, r)
        }
        _, sets := mc.Calls()
        if coalesce {
            require.EqualValues(t, 1, f.calls.Load())
            require.Equal(t, 1, sets)
        } else {
            require.EqualValues(t, n, f.calls.Load())
            require.Equal(t, n, sets)
        }
    }
}
