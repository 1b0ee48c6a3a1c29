package inscription

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// PublicKey is a 32-byte account address, rendered in base58.
type PublicKey [32]byte

func (k PublicKey) String() string {
	return base58.Encode(k[:])
}

// ParsePublicKey decodes a base58 account address.
func ParsePublicKey(s string) (PublicKey, error) {
	var k PublicKey
	b, err := base58.Decode(s)
	if err != nil {
		return k, fmt.Errorf("decode public key %q: %w", s, err)
	}
	if len(b) != len(k) {
		return k, fmt.Errorf("public key %q: want %d bytes, got %d", s, len(k), len(b))
	}
	copy(k[:], b)
	return k, nil
}

// Signature identifies a transaction.
type Signature [64]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

// Instruction is one compiled instruction of a decoded transaction. ProgramIDIndex and
// Accounts index into the transaction's account key table.
type Instruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// Transaction is a decoded, committed transaction as delivered by the event source.
// Err is nil when the transaction executed successfully.
type Transaction struct {
	Signature    Signature
	Err          error
	AccountKeys  []PublicKey
	Instructions []Instruction
}

// Mentions reports whether key appears in the transaction's account key table.
func (tx Transaction) Mentions(key PublicKey) bool {
	for _, k := range tx.AccountKeys {
		if k == key {
			return true
		}
	}
	return false
}
