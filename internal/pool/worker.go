package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arkiv/inscription-indexer/internal/inscription"
	"github.com/arkiv/inscription-indexer/internal/metrics"
	"github.com/arkiv/inscription-indexer/internal/queue"
	"github.com/arkiv/inscription-indexer/internal/store"
)

// Persister writes records over a connection owned by a single worker.
type Persister interface {
	Upsert(ctx context.Context, r inscription.Record) error
	Close(ctx context.Context) error
}

// Connector opens a Persister. Each worker calls it once, from its own goroutine.
type Connector func(ctx context.Context) (Persister, error)

type worker struct {
	id           int
	queue        *queue.Queue[inscription.WorkItem]
	state        *State
	connect      Connector
	pollInterval time.Duration
	escalate     bool
	abort        AbortFunc
	log          *slog.Logger

	startupAcknowledged bool
	done                chan error
}

// run owns the worker's connection from connect to close.
func (w *worker) run(ctx context.Context) error {
	client, err := w.connect(ctx)
	if err != nil {
		w.log.Error("error when making connection to database", "err", err)
		w.fail(err)
		return err
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			w.log.Warn("close connection", "err", err)
		}
		metrics.WorkersInitialized.Dec()
	}()
	w.state.initialized.Add(1)
	metrics.WorkersInitialized.Inc()

	for !w.state.exit.Load() {
		item, err := w.queue.Dequeue(w.pollInterval)
		switch {
		case err == nil:
			w.process(ctx, client, item)
		case errors.Is(err, queue.ErrTimeout):
			w.acknowledgeStartup()
		case errors.Is(err, queue.ErrClosed):
			return nil
		default:
			return fmt.Errorf("receive work item: %w", err)
		}
	}
	w.drain(ctx, client)
	return nil
}

// drain processes what is still buffered without waiting for more.
func (w *worker) drain(ctx context.Context, client Persister) {
	for {
		item, ok := w.queue.TryDequeue()
		if !ok {
			return
		}
		w.process(ctx, client, item)
	}
}

func (w *worker) process(ctx context.Context, client Persister, item inscription.WorkItem) {
	metrics.QueueDepth.Set(float64(w.queue.Len()))
	switch it := item.(type) {
	case inscription.PersistInscription:
		start := time.Now()
		err := client.Upsert(ctx, it.Record)
		status := metrics.Status(err)
		metrics.UpsertTotal.WithLabelValues(status).Inc()
		metrics.UpsertDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
		if err != nil {
			var sqlState string
			var werr *store.WriteError
			if errors.As(err, &werr) {
				sqlState = werr.SQLState()
			}
			w.log.Error("failed to persist inscription",
				"account", it.Record.Account,
				"signature", it.Record.Signature,
				"write_version", it.Record.WriteVersion,
				"sqlstate", sqlState,
				"err", err)
			w.fail(err)
		}
	default:
		w.log.Warn("unknown work item", "type", fmt.Sprintf("%T", item))
	}
}

// acknowledgeStartup counts this worker once after the end of startup is signalled.
func (w *worker) acknowledgeStartup() {
	if w.startupAcknowledged || !w.state.startupDone.Load() {
		return
	}
	w.startupAcknowledged = true
	w.state.startupAcknowledged.Add(1)
	metrics.StartupAcknowledged.Inc()
	w.log.Debug("observed end of startup")
}

func (w *worker) fail(err error) {
	if w.escalate {
		w.abort(&FatalStoreError{Err: err})
	}
}
