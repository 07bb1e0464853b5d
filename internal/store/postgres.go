package store

import (
    "context"

    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS leaderboard_members (
    board    TEXT    NOT NULL,
    username TEXT    NOT NULL,
    position INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (board, username)
)`

type Postgres struct {
    pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
    cfg, err := pgxpool.ParseConfig(dsn)
    if err != nil {
        return nil, err
    }
    pool, err := pgxpool.NewWithConfig(ctx, cfg)
    if err != nil {
        return nil, err
    }
    return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) EnsureSchema(ctx context.Context) error {
    _, err := p.pool.Exec(ctx, schema)
    return err
}

func (p *Postgres) Members(ctx context.Context, board string) ([]string, error) {
    rows, err := p.pool.Query(ctx, `
        SELECT username
        FROM leaderboard_members
        WHERE board = $1
        ORDER BY position, username
    `, board)
    if err != nil {
        return nil, err
    }
    users, err := pgx.CollectRows(rows, pgx.RowTo[string])
    if err != nil {
        return nil, err
    }
    if len(users) == 0 {
        return nil, ErrEmptyRoster
    }
    return users, nil
}

// SetMembers replaces a board's roster in one transaction.
func (p *Postgres) SetMembers(ctx context.Context, board string, users []string) error {
    tx, err := p.pool.Begin(ctx)
    if err != nil {
        return err
    }
    defer tx.Rollback(ctx)
    if _, err := tx.Exec(ctx, `DELETE FROM leaderboard_members WHERE board = $1`, board); err != nil {
        return err
    }
    batch := &pgx.Batch{}
    for i, u := range users {
        batch.Queue(`
            INSERT INTO leaderboard_members (board, username, position)
            VALUES ($1, $2, $3)
            ON CONFLICT (board, username) DO UPDATE SET position = EXCLUDED.position
        `, board, u, i)
    }
    if err := tx.SendBatch(ctx, batch).Close(); err != nil {
        return err
    }
    return tx.Commit(ctx)
}
