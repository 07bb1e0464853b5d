package main

import (
    "context"
    "os/signal"
    "syscall"
    "time"

    logging "github.com/ipfs/go-log/v2"
    "github.com/kmatotek/WCPCLeaderboard/internal/app"
    "github.com/kmatotek/WCPCLeaderboard/internal/config"
    "github.com/kmatotek/WCPCLeaderboard/internal/leaderboard"
)

var log = logging.Logger("cache-warmer")

func main() {
    cfg := config.LoadWarmer()
    if err := logging.SetLogLevel("*", cfg.LogLevel); err != nil { log.Warnw("bad LOG_LEVEL", "level", cfg.LogLevel, "err", err) }
    ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer cancel()

    a, err := app.Build(ctx, cfg.Common)
    if err != nil { log.Fatalf("build: %v", err) }
    defer a.Close()

    if cfg.Interval >= cfg.CacheTTL {
        log.Warnw("warm interval is not below the cache TTL; readers will see misses", "interval", cfg.Interval, "ttl", cfg.CacheTTL)
    }
    w := &leaderboard.Warmer{Boards: a.Boards(), Interval: cfg.Interval}
    if err := w.Run(ctx); err != nil && err != context.Canceled {
        log.Errorw("warmer stopped", "err", err)
    }
    // Give logs time to flush in some environments
    time.Sleep(100 * time.Millisecond)
}
