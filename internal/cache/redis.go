package cache

import (
    "context"
    "errors"
    "time"

    "github.com/redis/go-redis/v9"
)

type RedisOptions struct {
    Addr         string
    DB           int
    DialTimeout  time.Duration
    ReadTimeout  time.Duration
    WriteTimeout time.Duration
}

type Redis struct {
    cli *redis.Client
}

// NewRedis does not touch the network; call Connect to verify the server.
func NewRedis(o RedisOptions) *Redis {
    cli := redis.NewClient(&redis.Options{
        Addr:         o.Addr,
        DB:           o.DB,
        DialTimeout:  o.DialTimeout,
        ReadTimeout:  o.ReadTimeout,
        WriteTimeout: o.WriteTimeout,
    })
    return &Redis{cli: cli}
}

// Connect pings the server. The client stays usable after a failed
// Connect and reconnects on later commands.
func (r *Redis) Connect(ctx context.Context) error {
    if err := r.cli.Ping(ctx).Err(); err != nil {
        return unavailable("PING", r.cli.Options().Addr, err)
    }
    return nil
}

func (r *Redis) Close() error { return r.cli.Close() }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
    b, err := r.cli.Get(ctx, key).Bytes()
    if errors.Is(err, redis.Nil) {
        return nil, false, nil
    }
    if err != nil {
        return nil, false, unavailable("GET", key, err)
    }
    return b, true, nil
}

// Set issues a single SET with EX, the same as SETEX.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
    if err := r.cli.Set(ctx, key, value, ttl).Err(); err != nil {
        return unavailable("SETEX", key, err)
    }
    return nil
}
