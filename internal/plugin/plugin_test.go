package plugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkiv/inscription-indexer/internal/config"
	"github.com/arkiv/inscription-indexer/internal/inscription"
	"github.com/arkiv/inscription-indexer/internal/pool"
	"github.com/arkiv/inscription-indexer/internal/queue"
)

type recorder struct {
	mu      sync.Mutex
	records []inscription.Record
}

func (r *recorder) Upsert(ctx context.Context, rec inscription.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *recorder) Close(ctx context.Context) error { return nil }

func (r *recorder) all() []inscription.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]inscription.Record(nil), r.records...)
}

func key(b byte) inscription.PublicKey {
	var k inscription.PublicKey
	k[0], k[31] = b, b
	return k
}

var program = key(0xAA)

func testConfig() config.Config {
	return config.Config{
		Host:          "localhost",
		User:          "indexer",
		Threads:       2,
		QueueCapacity: 16,
		PollInterval:  5 * time.Millisecond,
		ProgramID:     program.String(),
	}
}

func newPlugin(t *testing.T) (*Plugin, *recorder) {
	t.Helper()
	rec := &recorder{}
	p := New(WithConnector(func(config.Config) pool.Connector {
		return func(ctx context.Context) (pool.Persister, error) { return rec, nil }
	}))
	require.NoError(t, p.Load(testConfig()))
	return p, rec
}

func initTx() inscription.Transaction {
	return inscription.Transaction{
		AccountKeys: []inscription.PublicKey{key(1), key(2), key(3), key(4), program},
		Instructions: []inscription.Instruction{{
			ProgramIDIndex: 4,
			Accounts:       []uint8{0, 1, 2, 3},
			Data:           inscription.EncodeInitialize(),
		}},
	}
}

func TestNotifyTransactionPersists(t *testing.T) {
	p, rec := newPlugin(t)
	ctx := context.Background()

	require.NoError(t, p.NotifyTransaction(ctx, initTx(), 7))

	failed := initTx()
	failed.Err = errors.New("insufficient funds")
	require.NoError(t, p.NotifyTransaction(ctx, failed, 8))

	unrelated := initTx()
	unrelated.AccountKeys[4] = key(9)
	require.NoError(t, p.NotifyTransaction(ctx, unrelated, 9))

	unmatched := initTx()
	unmatched.Instructions[0].Data = []byte{inscription.InstructionClose}
	require.NoError(t, p.NotifyTransaction(ctx, unmatched, 10))

	p.OnUnload()
	records := rec.all()
	require.Len(t, records, 1)
	assert.Equal(t, uint64(7), records[0].Slot)
	assert.Equal(t, key(1).String(), records[0].Account)
	assert.Equal(t, uint64(1), records[0].WriteVersion)
}

func TestNotifyBeforeLoad(t *testing.T) {
	p := New()
	err := p.NotifyTransaction(context.Background(), initTx(), 1)
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.False(t, p.Ready())
	p.NotifyEndOfStartup()
	p.OnUnload()
}

func TestNotifyAfterUnload(t *testing.T) {
	p, _ := newPlugin(t)
	p.OnUnload()
	assert.ErrorIs(t, p.NotifyTransaction(context.Background(), initTx(), 1), ErrNotLoaded)
}

func TestLoadTwice(t *testing.T) {
	p, _ := newPlugin(t)
	defer p.OnUnload()
	assert.Error(t, p.Load(testConfig()))
}

func TestLoadInvalidConfig(t *testing.T) {
	p := New()
	cfg := testConfig()
	cfg.ProgramID = ""
	var cerr *config.ConfigurationError
	assert.ErrorAs(t, p.Load(cfg), &cerr)
}

func TestOnLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugin.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"host":"localhost","user":"indexer","threads":1,"program_id":"`+program.String()+`"}`), 0o600))

	rec := &recorder{}
	p := New(WithConnector(func(config.Config) pool.Connector {
		return func(ctx context.Context) (pool.Persister, error) { return rec, nil }
	}))
	require.NoError(t, p.OnLoad(path))
	defer p.OnUnload()
	require.Eventually(t, p.Ready, time.Second, time.Millisecond)
}

func TestEndOfStartupReachesWorkers(t *testing.T) {
	p, _ := newPlugin(t)
	defer p.OnUnload()
	require.Eventually(t, p.Ready, time.Second, time.Millisecond)

	p.NotifyEndOfStartup()
	require.Eventually(t, func() bool { return p.StartupAcknowledged() == 2 }, time.Second, time.Millisecond)
}

func TestConcurrentProducers(t *testing.T) {
	p, rec := newPlugin(t)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				assert.NoError(t, p.NotifyTransaction(context.Background(), initTx(), uint64(g*100+i)))
			}
		}(g)
	}
	wg.Wait()
	p.OnUnload()

	records := rec.all()
	require.Len(t, records, 200)
	versions := make(map[uint64]bool)
	for _, r := range records {
		versions[r.WriteVersion] = true
	}
	assert.Len(t, versions, 200, "write versions must be unique")
}

func TestSubmitAfterShutdownSurfacesQueueClosed(t *testing.T) {
	p, _ := newPlugin(t)
	rt := p.rt.Load()
	rt.pool.Shutdown()
	err := p.NotifyTransaction(context.Background(), initTx(), 1)
	assert.ErrorIs(t, err, queue.ErrClosed)
	p.OnUnload()
}
