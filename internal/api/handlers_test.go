package api_test

import (
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/kmatotek/WCPCLeaderboard/internal/api"
    "github.com/kmatotek/WCPCLeaderboard/internal/models"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/stretchr/testify/require"
)

type fakeBoard[T any] struct {
    entries []T
    err     error
    calls   int
}

func (f *fakeBoard[T]) Get(ctx context.Context) ([]T, error) {
    f.calls++
    return f.entries, f.err
}

func newMux(h *api.Handler) *http.ServeMux {
    mux := http.NewServeMux()
    h.Routes(mux)
    return mux
}

func TestCodeforcesEndpoint(t *testing.T) {
    cf := &fakeBoard[models.CodeforcesEntry]{entries: []models.CodeforcesEntry{
        {Username: "tourist", Rating: 3800, MaxRating: 4009, Rank: "legendary grandmaster", MaxRank: "tourist"},
    }}
    mux := newMux(&api.Handler{Codeforces: cf, LeetCode: &fakeBoard[models.LeetCodeEntry]{}, CORSOrigin: "http://localhost:3001"})

    rec := httptest.NewRecorder()
    mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/codeforces-leaderboard", nil))
    require.Equal(t, http.StatusOK, rec.Code)
    require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
    require.Equal(t, "http://localhost:3001", rec.Header().Get("Access-Control-Allow-Origin"))
    require.JSONEq(t, `[{"username":"tourist","rating":3800,"maxRating":4009,"rank":"legendary grandmaster","maxRank":"tourist"}]`, rec.Body.String())
}

func TestLeetCodeEndpointEmpty(t *testing.T) {
    mux := newMux(&api.Handler{Codeforces: &fakeBoard[models.CodeforcesEntry]{}, LeetCode: &fakeBoard[models.LeetCodeEntry]{}})
    rec := httptest.NewRecorder()
    mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leetcode-leaderboard", nil))
    require.Equal(t, http.StatusOK, rec.Code)
    require.JSONEq(t, `[]`, rec.Body.String())
}

func TestFailureHidesCause(t *testing.T) {
    lc := &fakeBoard[models.LeetCodeEntry]{err: errors.New("dial tcp 10.0.0.7:3000: connection refused")}
    mux := newMux(&api.Handler{Codeforces: &fakeBoard[models.CodeforcesEntry]{}, LeetCode: lc})

    rec := httptest.NewRecorder()
    mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leetcode-leaderboard", nil))
    require.Equal(t, http.StatusInternalServerError, rec.Code)
    var body map[string]string
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    require.Equal(t, "Failed to fetch Leetcode leaderboard data", body["error"])
    require.NotContains(t, rec.Body.String(), "10.0.0.7")
}

func TestMethodAndPreflight(t *testing.T) {
    cf := &fakeBoard[models.CodeforcesEntry]{}
    mux := newMux(&api.Handler{Codeforces: cf, LeetCode: &fakeBoard[models.LeetCodeEntry]{}, CORSOrigin: "http://localhost:3001"})

    rec := httptest.NewRecorder()
    mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/codeforces-leaderboard", strings.NewReader("{}")))
    require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
    require.Equal(t, "GET, HEAD, OPTIONS", rec.Header().Get("Allow"))

    rec = httptest.NewRecorder()
    mux.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/api/codeforces-leaderboard", nil))
    require.Equal(t, http.StatusOK, rec.Code)

    rec = httptest.NewRecorder()
    mux.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/codeforces-leaderboard", nil))
    require.Equal(t, http.StatusNoContent, rec.Code)
    require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "GET")
    require.Equal(t, 0, cf.calls)
}

func TestHealthAndMetrics(t *testing.T) {
    reg := prometheus.NewRegistry()
    c := prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_total", Help: "probe"})
    reg.MustRegister(c)
    c.Inc()
    mux := newMux(&api.Handler{
        Codeforces: &fakeBoard[models.CodeforcesEntry]{},
        LeetCode:   &fakeBoard[models.LeetCodeEntry]{},
        Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
    })

    rec := httptest.NewRecorder()
    mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
    require.Equal(t, http.StatusOK, rec.Code)

    rec = httptest.NewRecorder()
    mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
    require.Equal(t, http.StatusOK, rec.Code)
    require.Contains(t, rec.Body.String(), "probe_total 1")
}
