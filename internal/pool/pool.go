// Package pool runs the persistence workers. Producers submit records through a bounded
// queue; each worker owns one database connection for its whole life.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/arkiv/inscription-indexer/internal/config"
	"github.com/arkiv/inscription-indexer/internal/inscription"
	"github.com/arkiv/inscription-indexer/internal/metrics"
	"github.com/arkiv/inscription-indexer/internal/queue"
	"github.com/arkiv/inscription-indexer/internal/store"
)

// StoreConnector connects workers to Postgres.
func StoreConnector(opts store.Options) Connector {
	return func(ctx context.Context) (Persister, error) {
		c, err := store.Connect(ctx, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

type options struct {
	abort AbortFunc
	log   *slog.Logger
}

type Option func(*options)

// WithAbort replaces the process exit used when database errors are escalated.
func WithAbort(abort AbortFunc) Option {
	return func(o *options) { o.abort = abort }
}

func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// Pool dispatches work items to a fixed set of workers.
type Pool struct {
	queue    *queue.Queue[inscription.WorkItem]
	state    *State
	workers  []*worker
	log      *slog.Logger
	shutdown sync.Once
}

// Start validates cfg and spawns cfg.Threads workers. It does not wait for them to
// connect; see InitializedWorkers.
func Start(cfg config.Config, connect Connector, opts ...Option) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{abort: exitProcess, log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	o.log.Info("creating worker pool", "workers", cfg.Threads, "queue_capacity", cfg.QueueCapacity)
	p := &Pool{
		queue: queue.New[inscription.WorkItem](cfg.QueueCapacity),
		state: &State{},
		log:   o.log,
	}
	for i := 0; i < cfg.Threads; i++ {
		w := &worker{
			id:           i,
			queue:        p.queue,
			state:        p.state,
			connect:      connect,
			pollInterval: cfg.PollInterval,
			escalate:     cfg.PanicOnDBErrors,
			abort:        o.abort,
			log:          o.log.With("worker", i),
			done:         make(chan error, 1),
		}
		p.workers = append(p.workers, w)
		go func() {
			w.done <- w.run(context.Background())
		}()
	}
	return p, nil
}

// Submit queues r for persistence, blocking while the queue is full.
func (p *Pool) Submit(ctx context.Context, r inscription.Record) error {
	err := p.queue.Enqueue(ctx, inscription.PersistInscription{Record: r})
	metrics.SubmitTotal.WithLabelValues(metrics.Status(err)).Inc()
	if err != nil {
		return fmt.Errorf("failed to queue inscription %s: %w", r.Account, err)
	}
	metrics.QueueDepth.Set(float64(p.queue.Len()))
	return nil
}

// NotifyEndOfStartup signals that historical backfill is over.
func (p *Pool) NotifyEndOfStartup() {
	p.state.startupDone.Store(true)
}

// StartupAcknowledged is the number of workers that have observed the end of startup.
func (p *Pool) StartupAcknowledged() int {
	return int(p.state.startupAcknowledged.Load())
}

// InitializedWorkers is the number of workers that connected successfully.
func (p *Pool) InitializedWorkers() int {
	return int(p.state.initialized.Load())
}

func (p *Pool) Workers() int { return len(p.workers) }

func (p *Pool) QueueLen() int { return p.queue.Len() }

// Shutdown stops accepting work, signals the workers and waits for all of them.
// Buffered items are still processed. Worker failures are logged, never returned.
func (p *Pool) Shutdown() {
	p.shutdown.Do(func() {
		p.log.Info("shutting down worker pool")
		p.queue.Close()
		p.state.exit.Store(true)
		for i := len(p.workers) - 1; i >= 0; i-- {
			if err := <-p.workers[i].done; err != nil {
				p.log.Error("the worker has failed", "worker", p.workers[i].id, "err", err)
			}
		}
		metrics.QueueDepth.Set(0)
		p.log.Info("worker pool stopped")
	})
}
