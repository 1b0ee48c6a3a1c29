// Package plugin is the entry point used by the host event source: it receives committed
// transactions and the end-of-startup signal and feeds the persistence pool.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/arkiv/inscription-indexer/internal/config"
	"github.com/arkiv/inscription-indexer/internal/inscription"
	"github.com/arkiv/inscription-indexer/internal/metrics"
	"github.com/arkiv/inscription-indexer/internal/pool"
	"github.com/arkiv/inscription-indexer/internal/store"
)

const Name = "inscription-indexer"

var ErrNotLoaded = errors.New("there is no connection to the database, the plugin is not loaded")

type runtime struct {
	pool      *pool.Pool
	extractor *inscription.Extractor
}

// Plugin may receive notifications from many goroutines at once.
type Plugin struct {
	log       *slog.Logger
	connector func(config.Config) pool.Connector
	abort     pool.AbortFunc
	rt        atomic.Pointer[runtime]
}

type Option func(*Plugin)

func WithLogger(log *slog.Logger) Option {
	return func(p *Plugin) { p.log = log }
}

// WithConnector replaces the Postgres connector.
func WithConnector(fn func(config.Config) pool.Connector) Option {
	return func(p *Plugin) { p.connector = fn }
}

func WithAbort(abort pool.AbortFunc) Option {
	return func(p *Plugin) { p.abort = abort }
}

func New(opts ...Option) *Plugin {
	p := &Plugin{
		log: slog.Default(),
		connector: func(cfg config.Config) pool.Connector {
			return pool.StoreConnector(store.OptionsFromConfig(cfg))
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OnLoad reads the configuration file at path and starts the pool.
func (p *Plugin) OnLoad(path string) error {
	p.log.Info("loading plugin", "name", Name, "config_file", path)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	return p.Load(cfg)
}

// Load starts the pool with an already loaded configuration.
func (p *Plugin) Load(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	opts := []pool.Option{pool.WithLogger(p.log)}
	if p.abort != nil {
		opts = append(opts, pool.WithAbort(p.abort))
	}
	pl, err := pool.Start(cfg, p.connector(cfg), opts...)
	if err != nil {
		return err
	}
	next := &runtime{pool: pl, extractor: inscription.NewExtractor(cfg.Program())}
	if !p.rt.CompareAndSwap(nil, next) {
		pl.Shutdown()
		return fmt.Errorf("plugin %s is already loaded", Name)
	}
	return nil
}

// NotifyTransaction persists the inscription carried by tx, if any. It blocks while
// the work queue is full.
func (p *Plugin) NotifyTransaction(ctx context.Context, tx inscription.Transaction, slot uint64) error {
	rt := p.rt.Load()
	if rt == nil {
		return ErrNotLoaded
	}
	if tx.Err != nil {
		metrics.TransactionsTotal.WithLabelValues("failed").Inc()
		return nil
	}
	if !tx.Mentions(rt.extractor.ProgramID()) {
		metrics.TransactionsTotal.WithLabelValues("unrelated").Inc()
		return nil
	}
	rec, ok := rt.extractor.Extract(tx, slot)
	if !ok {
		metrics.TransactionsTotal.WithLabelValues("unmatched").Inc()
		return nil
	}
	metrics.TransactionsTotal.WithLabelValues("matched").Inc()
	if err := rt.pool.Submit(ctx, rec); err != nil {
		return fmt.Errorf("failed to persist the transaction info to the database: %w", err)
	}
	return nil
}

// NotifyEndOfStartup marks the end of historical backfill.
func (p *Plugin) NotifyEndOfStartup() {
	if rt := p.rt.Load(); rt != nil {
		rt.pool.NotifyEndOfStartup()
	}
}

// OnUnload stops the pool and waits for in-flight work.
func (p *Plugin) OnUnload() {
	p.log.Info("unloading plugin", "name", Name)
	if rt := p.rt.Swap(nil); rt != nil {
		rt.pool.Shutdown()
	}
}

// Ready reports whether at least one worker holds a database connection.
func (p *Plugin) Ready() bool {
	rt := p.rt.Load()
	return rt != nil && rt.pool.InitializedWorkers() > 0
}

// StartupAcknowledged reports how many workers observed the end of startup.
func (p *Plugin) StartupAcknowledged() int {
	if rt := p.rt.Load(); rt != nil {
		return rt.pool.StartupAcknowledged()
	}
	return 0
}
