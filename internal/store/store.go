// Package store persists inscription records to Postgres. A Client owns one
// connection and one prepared upsert and is not safe for concurrent use.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/arkiv/inscription-indexer/internal/config"
	"github.com/arkiv/inscription-indexer/internal/inscription"
)

const upsertStatementName = "upsert_inscription"

// Every non-key column is overwritten on conflict.
const upsertSQL = `INSERT INTO inscriptions AS insc (slot, signature, account, metadata_account,
	authority, data, mint_account, write_version, updated_on)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (account) DO UPDATE SET
	slot = excluded.slot,
	signature = excluded.signature,
	metadata_account = excluded.metadata_account,
	authority = excluded.authority,
	data = excluded.data,
	mint_account = excluded.mint_account,
	write_version = excluded.write_version,
	updated_on = excluded.updated_on`

const writeVersionGuard = `
WHERE insc.write_version IS NULL OR insc.write_version < excluded.write_version`

func upsertQuery(enforceWriteVersion bool) string {
	if enforceWriteVersion {
		return upsertSQL + writeVersionGuard
	}
	return upsertSQL
}

// Options configures a connection.
type Options struct {
	ConnString string
	// TLS is nil for an unencrypted connection.
	TLS *TLSFiles
	// EnforceWriteVersion keeps rows whose stored write_version is newer than the incoming one.
	EnforceWriteVersion bool
}

func OptionsFromConfig(cfg config.Config) Options {
	opts := Options{
		ConnString:          cfg.ConnString(),
		EnforceWriteVersion: cfg.EnforceWriteVersion,
	}
	if cfg.UseSSL {
		opts.TLS = &TLSFiles{ServerCA: cfg.ServerCA, ClientCert: cfg.ClientCert, ClientKey: cfg.ClientKey}
	}
	return opts
}

func connConfig(opts Options) (*pgx.ConnConfig, error) {
	cfg, err := pgx.ParseConfig(opts.ConnString)
	if err != nil {
		return nil, &config.ConfigurationError{Msg: "invalid connection string", Err: err}
	}
	// The TLS mode comes from Options, not from sslmode fallbacks.
	cfg.Fallbacks = nil
	if opts.TLS == nil {
		cfg.TLSConfig = nil
		return cfg, nil
	}
	tlsCfg, err := tlsConfig(*opts.TLS)
	if err != nil {
		return nil, err
	}
	cfg.TLSConfig = tlsCfg
	return cfg, nil
}

// Client writes records over a single dedicated connection.
type Client struct {
	conn *pgx.Conn
	now  func() time.Time
}

// Connect opens a connection and prepares the upsert statement.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	cfg, err := connConfig(opts)
	if err != nil {
		return nil, err
	}
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	if _, err := conn.Prepare(ctx, upsertStatementName, upsertQuery(opts.EnforceWriteVersion)); err != nil {
		conn.Close(ctx)
		return nil, &SchemaError{Err: err}
	}
	return &Client{conn: conn, now: time.Now}, nil
}

// Upsert writes r, replacing any row with the same account. updated_on is set here.
func (c *Client) Upsert(ctx context.Context, r inscription.Record) error {
	_, err := c.conn.Exec(ctx, upsertStatementName,
		int64(r.Slot),
		r.Signature,
		r.Account,
		r.MetadataAccount,
		r.Authority,
		r.Data,
		r.MintAccount,
		int64(r.WriteVersion),
		c.now().UTC(),
	)
	if err != nil {
		return &WriteError{Account: r.Account, Err: err}
	}
	return nil
}

func (c *Client) Close(ctx context.Context) error {
	if err := c.conn.Close(ctx); err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}
