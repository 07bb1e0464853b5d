package config

import (
    "net"
    "os"
    "strconv"
    "strings"
    "time"
)

func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func getenvInt(key string, def int) int {
    if v := os.Getenv(key); v != "" {
        if n, err := strconv.Atoi(v); err == nil {
            return n
        }
    }
    return def
}

func getenvBool(key string, def bool) bool {
    if v := os.Getenv(key); v != "" {
        if b, err := strconv.ParseBool(v); err == nil {
            return b
        }
    }
    return def
}

func getenvDur(key string, def time.Duration) time.Duration {
    if v := os.Getenv(key); v != "" {
        if d, err := time.ParseDuration(v); err == nil {
            return d
        }
    }
    return def
}

func getenvList(key string, def []string) []string {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    var out []string
    for _, s := range strings.Split(v, ",") {
        if s = strings.TrimSpace(s); s != "" {
            out = append(out, s)
        }
    }
    if len(out) == 0 { return def }
    return out
}

var (
    DefaultCodeforcesUsers = []string{"tourist", "Petr", "Benq", "Radewoosh", "mnbvmar", "hello"}
    DefaultLeetCodeUsers   = []string{"kmatotek", "vVa3haPhIY", "Kaushal_Aknurwar", "Junglee_Coder"}
)

type Common struct {
    RedisHost string
    RedisPort string
    RedisDB   int
    // CacheBackend is "redis" or "memory".
    CacheBackend string
    CacheTTL     time.Duration
    CacheTimeout time.Duration

    // PgDSN, when set, loads board rosters from Postgres.
    PgDSN           string
    CodeforcesUsers []string
    LeetCodeUsers   []string

    CodeforcesURL    string
    LeetCodeURL      string
    UpstreamTimeout  time.Duration
    UpstreamRetries  int
    FetchConcurrency int
    Coalesce         bool
    // Per-board aggregation policy, "fail-fast" or "fail-soft".
    CodeforcesPolicy string
    LeetCodePolicy   string

    LogLevel string
}

func (c Common) RedisAddr() string { return net.JoinHostPort(c.RedisHost, c.RedisPort) }

func LoadCommon() Common {
    return Common{
        RedisHost:        getenv("REDIS_HOST", "localhost"),
        RedisPort:        getenv("REDIS_PORT", "6379"),
        RedisDB:          getenvInt("REDIS_DB", 0),
        CacheBackend:     strings.ToLower(getenv("CACHE_BACKEND", "redis")),
        CacheTTL:         getenvDur("CACHE_TTL", 120*time.Second),
        CacheTimeout:     getenvDur("CACHE_TIMEOUT", 2*time.Second),
        PgDSN:            getenv("PG_DSN", ""),
        CodeforcesUsers:  getenvList("CODEFORCES_USERS", DefaultCodeforcesUsers),
        LeetCodeUsers:    getenvList("LEETCODE_USERS", DefaultLeetCodeUsers),
        CodeforcesURL:    getenv("CODEFORCES_API_URL", "https://codeforces.com"),
        LeetCodeURL:      getenv("LEETCODE_API_URL", "http://leetcode_api:3000"),
        UpstreamTimeout:  getenvDur("UPSTREAM_TIMEOUT", 10*time.Second),
        UpstreamRetries:  getenvInt("UPSTREAM_RETRIES", 0),
        FetchConcurrency: getenvInt("FETCH_CONCURRENCY", 8),
        Coalesce:         getenvBool("LEADERBOARD_COALESCE", true),
        CodeforcesPolicy: getenv("CODEFORCES_POLICY", "fail-fast"),
        LeetCodePolicy:   getenv("LEETCODE_POLICY", "fail-soft"),
        LogLevel:         getenv("LOG_LEVEL", "info"),
    }
}

type API struct {
    Common
    Addr         string
    CORSOrigin   string
    WarmInterval time.Duration
}

func LoadAPI() API {
    c := LoadCommon()
    return API{
        Common:       c,
        Addr:         ":" + getenv("PORT", "4000"),
        CORSOrigin:   getenv("CORS_ORIGIN", "http://localhost:3001"),
        WarmInterval: getenvDur("WARM_INTERVAL", 0),
    }
}

type Warmer struct {
    Common
    Interval time.Duration
}

func LoadWarmer() Warmer {
    c := LoadCommon()
    return Warmer{
        Common:   c,
        Interval: getenvDur("WARM_INTERVAL", 90*time.Second),
    }
}
