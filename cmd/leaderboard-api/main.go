package main

import (
    "context"
    "net/http"
    "os/signal"
    "syscall"
    "time"

    logging "github.com/ipfs/go-log/v2"
    "github.com/kmatotek/WCPCLeaderboard/internal/api"
    "github.com/kmatotek/WCPCLeaderboard/internal/app"
    "github.com/kmatotek/WCPCLeaderboard/internal/config"
    "github.com/kmatotek/WCPCLeaderboard/internal/leaderboard"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var log = logging.Logger("leaderboard-api")

func main() {
    cfg := config.LoadAPI()
    if err := logging.SetLogLevel("*", cfg.LogLevel); err != nil { log.Warnw("bad LOG_LEVEL", "level", cfg.LogLevel, "err", err) }
    ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer cancel()

    a, err := app.Build(ctx, cfg.Common)
    if err != nil { log.Fatalf("build: %v", err) }
    defer a.Close()

    if cfg.WarmInterval > 0 {
        w := &leaderboard.Warmer{Boards: a.Boards(), Interval: cfg.WarmInterval}
        go func() {
            if err := w.Run(ctx); err != nil && err != context.Canceled {
                log.Errorw("warmer stopped", "err", err)
            }
        }()
    }

    h := &api.Handler{
        Codeforces: a.Codeforces,
        LeetCode:   a.LeetCode,
        CORSOrigin: cfg.CORSOrigin,
        Metrics:    promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
    }
    mux := http.NewServeMux()
    h.Routes(mux)

    srv := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

    go func() {
        <-ctx.Done()
        sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer scancel()
        _ = srv.Shutdown(sctx)
    }()

    log.Infow("api listening", "addr", cfg.Addr)
    if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
        log.Fatalf("server error: %v", err)
    }
}
