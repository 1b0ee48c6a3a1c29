package inscription

// Record is the persisted state of one inscription account, extracted from a single
// matching transaction. Account is the conflict key in the store.
type Record struct {
	Slot            uint64
	Signature       string
	Account         string
	MetadataAccount string
	Authority       string
	// Data is nil for variants that carry no payload.
	Data []byte
	// MintAccount is set only by initialize_from_mint.
	MintAccount *string
	// WriteVersion is unique and increasing per process; used for last-writer-wins.
	WriteVersion uint64
}

// WorkItem is a unit of work handed from producers to persistence workers.
// New kinds of work are added as new implementations.
type WorkItem interface {
	workItem()
}

// PersistInscription asks a worker to upsert Record.
type PersistInscription struct {
	Record Record
}

func (PersistInscription) workItem() {}
