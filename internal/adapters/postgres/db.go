package postgres

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/jackc/pgx/v5/stdlib"
)

// DB holds the pool backing the catalogue, blacklist and era repositories.
type DB struct {
    Pool *pgxpool.Pool
}

// Connect opens a pool of at most maxConns connections (10 when maxConns is
// not positive) and checks it answers.
func Connect(ctx context.Context, url string, maxConns int32) (*DB, error) {
    cfg, err := pgxpool.ParseConfig(url)
    if err != nil {
        return nil, fmt.Errorf("parse database url: %w", err)
    }
    if maxConns <= 0 {
        maxConns = 10
    }
    cfg.MaxConns = maxConns
    cfg.HealthCheckPeriod = 30 * time.Second
    cfg.ConnConfig.RuntimeParams["application_name"] = "kitcheck"
    pool, err := pgxpool.NewWithConfig(ctx, cfg)
    if err != nil {
        return nil, fmt.Errorf("open pool: %w", err)
    }
    if err := pool.Ping(ctx); err != nil {
        pool.Close()
        return nil, fmt.Errorf("ping database: %w", err)
    }
    return &DB{Pool: pool}, nil
}

func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

// SQL opens a database/sql handle over the pool for code that speaks
// database/sql (migrations, the audit log). Close it before Close.
func (db *DB) SQL() *sql.DB { return stdlib.OpenDBFromPool(db.Pool) }

func (db *DB) Products() *ProductRepo   { return &ProductRepo{db} }
func (db *DB) Blacklist() *BlacklistRepo { return &BlacklistRepo{db} }
func (db *DB) Eras() *EraRepo            { return &EraRepo{db} }

func (db *DB) Close() { db.Pool.Close() }
