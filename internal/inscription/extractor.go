package inscription

import "sync/atomic"

// Extractor turns transactions that invoke the inscription program into Records.
// It is safe for concurrent use.
type Extractor struct {
	programID    PublicKey
	writeVersion atomic.Uint64
}

func NewExtractor(programID PublicKey) *Extractor {
	return &Extractor{programID: programID}
}

func (e *Extractor) ProgramID() PublicKey {
	return e.programID
}

// Extract scans every instruction of tx and builds a Record from the last one that
// decodes as a persisted variant of the inscription program. Instructions that fail to
// decode are skipped. A failed transaction never produces a record.
func (e *Extractor) Extract(tx Transaction, slot uint64) (Record, bool) {
	if tx.Err != nil {
		return Record{}, false
	}
	var (
		rec   Record
		found bool
	)
	for _, ix := range tx.Instructions {
		if r, ok := e.match(tx, ix); ok {
			rec, found = r, true
		}
	}
	if !found {
		return Record{}, false
	}
	rec.Slot = slot
	rec.Signature = tx.Signature.String()
	rec.WriteVersion = e.writeVersion.Add(1)
	return rec, true
}

func (e *Extractor) match(tx Transaction, ix Instruction) (Record, bool) {
	if int(ix.ProgramIDIndex) >= len(tx.AccountKeys) || tx.AccountKeys[ix.ProgramIDIndex] != e.programID {
		return Record{}, false
	}
	v, payload, err := decodeInstruction(ix.Data)
	if err != nil {
		return Record{}, false
	}
	rec := Record{Data: payload}
	if !v.assign(&rec, tx.AccountKeys, ix.Accounts) {
		return Record{}, false
	}
	return rec, true
}
