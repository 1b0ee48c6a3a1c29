// Package source generates inscription traffic for demo and load runs. No RPC calls are made.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/arkiv/inscription-indexer/internal/inscription"
)

// Sink receives transactions; the plugin implements it.
type Sink interface {
	NotifyTransaction(ctx context.Context, tx inscription.Transaction, slot uint64) error
	NotifyEndOfStartup()
}

// Synthetic produces transactions that initialize inscriptions and then write to them.
// It is not safe for concurrent use.
type Synthetic struct {
	programID inscription.PublicKey
	rng       *rand.Rand
	nextSlot  uint64
	// inscriptions already initialized, candidates for write_data.
	known []inscription.PublicKey
}

func NewSynthetic(programID inscription.PublicKey, seed int64) *Synthetic {
	return &Synthetic{programID: programID, rng: rand.New(rand.NewSource(seed))}
}

// Next returns the next transaction and its slot. Roughly every third transaction is an
// initialize_from_mint, a quarter of the rest plain initialize, the remainder write_data
// against a known inscription.
func (s *Synthetic) Next() (inscription.Transaction, uint64, error) {
	slot := s.nextSlot
	s.nextSlot++

	var sig inscription.Signature
	s.rng.Read(sig[:])
	tx := inscription.Transaction{Signature: sig}

	roll := s.rng.Intn(12)
	switch {
	case len(s.known) == 0 || roll < 2:
		account, metadata, shard, authority := s.key(), s.key(), s.key(), s.key()
		tx.AccountKeys = []inscription.PublicKey{account, metadata, shard, authority, s.programID}
		tx.Instructions = []inscription.Instruction{{ProgramIDIndex: 4, Accounts: []uint8{0, 1, 2, 3}, Data: inscription.EncodeInitialize()}}
		s.known = append(s.known, account)
	case roll < 5:
		account, metadata, mint, tokenMetadata, authority := s.key(), s.key(), s.key(), s.key(), s.key()
		tx.AccountKeys = []inscription.PublicKey{account, metadata, mint, tokenMetadata, authority, s.programID}
		tx.Instructions = []inscription.Instruction{{ProgramIDIndex: 5, Accounts: []uint8{0, 1, 2, 3, 4}, Data: inscription.EncodeInitializeFromMint()}}
		s.known = append(s.known, account)
	default:
		account := s.known[s.rng.Intn(len(s.known))]
		value := make([]byte, 8+s.rng.Intn(56))
		s.rng.Read(value)
		data, err := inscription.EncodeWriteData(inscription.WriteDataArgs{Value: value})
		if err != nil {
			return tx, slot, fmt.Errorf("encode write_data: %w", err)
		}
		tx.AccountKeys = []inscription.PublicKey{account, s.key(), s.key(), s.programID}
		tx.Instructions = []inscription.Instruction{{ProgramIDIndex: 3, Accounts: []uint8{0, 1, 2}, Data: data}}
	}
	return tx, slot, nil
}

func (s *Synthetic) key() inscription.PublicKey {
	var k inscription.PublicKey
	s.rng.Read(k[:])
	return k
}

// Run emits backfill transactions back to back, signals the end of startup, then emits
// one transaction per interval until ctx is done.
func (s *Synthetic) Run(ctx context.Context, sink Sink, backfill int, interval time.Duration, log *slog.Logger) {
	for i := 0; i < backfill; i++ {
		if ctx.Err() != nil {
			return
		}
		s.emit(ctx, sink, log)
	}
	sink.NotifyEndOfStartup()
	log.Info("startup backfill complete", "transactions", backfill)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.emit(ctx, sink, log)
		}
	}
}

func (s *Synthetic) emit(ctx context.Context, sink Sink, log *slog.Logger) {
	tx, slot, err := s.Next()
	if err != nil {
		log.Warn("generate transaction failed", "err", err)
		return
	}
	if err := sink.NotifyTransaction(ctx, tx, slot); err != nil {
		log.Warn("notify transaction failed", "slot", slot, "err", err)
	}
}
