package store

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the inscriptions table when it does not exist. It is idempotent.
func EnsureSchema(ctx context.Context, opts Options) error {
	connCfg, err := connConfig(opts)
	if err != nil {
		return err
	}
	cfg, err := pgxpool.ParseConfig(opts.ConnString)
	if err != nil {
		return err
	}
	cfg.ConnConfig = connCfg
	cfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return &ConnectionError{Err: err}
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}
