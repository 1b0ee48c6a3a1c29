package source

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkiv/inscription-indexer/internal/inscription"
)

var program = inscription.PublicKey{1, 2, 3}

func TestSyntheticTransactionsExtract(t *testing.T) {
	s := NewSynthetic(program, 1)
	e := inscription.NewExtractor(program)

	accounts := make(map[string]bool)
	var withMint, withData int
	for i := 0; i < 200; i++ {
		tx, slot, err := s.Next()
		require.NoError(t, err)
		assert.Equal(t, uint64(i), slot)
		assert.True(t, tx.Mentions(program))

		rec, ok := e.Extract(tx, slot)
		require.True(t, ok, "transaction %d did not extract", i)
		if rec.MintAccount != nil {
			withMint++
		}
		if rec.Data != nil {
			withData++
			assert.True(t, accounts[rec.Account], "write_data to an unknown inscription")
		}
		accounts[rec.Account] = true
	}
	assert.Positive(t, withMint)
	assert.Positive(t, withData)
}

func TestSyntheticSignaturesDiffer(t *testing.T) {
	s := NewSynthetic(program, 2)
	a, _, err := s.Next()
	require.NoError(t, err)
	b, _, err := s.Next()
	require.NoError(t, err)
	assert.NotEqual(t, a.Signature, b.Signature)
}

type sink struct {
	mu          sync.Mutex
	slots       []uint64
	startupDone int
	startupAt   int
}

func (s *sink) NotifyTransaction(ctx context.Context, tx inscription.Transaction, slot uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = append(s.slots, slot)
	return nil
}

func (s *sink) NotifyEndOfStartup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startupDone++
	s.startupAt = len(s.slots)
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

func TestRunBackfillThenLive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &sink{}
	done := make(chan struct{})
	go func() {
		NewSynthetic(program, 3).Run(ctx, out, 10, 5*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
		close(done)
	}()

	require.Eventually(t, func() bool { return out.count() >= 13 }, time.Second, time.Millisecond)
	cancel()
	<-done

	out.mu.Lock()
	defer out.mu.Unlock()
	assert.Equal(t, 1, out.startupDone)
	assert.Equal(t, 10, out.startupAt)
}
