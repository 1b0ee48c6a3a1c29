package inscription

import (
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// Instruction discriminants of the inscription program.
const (
	InstructionInitialize         uint8 = 0
	InstructionInitializeFromMint uint8 = 1
	InstructionClose              uint8 = 2
	InstructionWriteData          uint8 = 3
)

// Field names a Record field that is filled from an instruction account.
type Field int

const (
	FieldNone Field = iota
	FieldAccount
	FieldMetadataAccount
	FieldMintAccount
	FieldAuthority
)

// Variant describes how one instruction kind maps onto a Record. Accounts lists, by
// position in the instruction's account list, which field that account fills.
type Variant struct {
	Name     string
	Accounts []Field
	// decode reads the instruction arguments and returns the record payload, if any.
	decode func(dec *bin.Decoder) ([]byte, error)
}

var variants = map[uint8]Variant{
	InstructionInitialize: {
		Name:     "initialize",
		Accounts: []Field{FieldAccount, FieldMetadataAccount, FieldNone, FieldAuthority},
	},
	InstructionInitializeFromMint: {
		Name:     "initialize_from_mint",
		Accounts: []Field{FieldAccount, FieldMetadataAccount, FieldMintAccount, FieldNone, FieldAuthority},
	},
	InstructionWriteData: {
		Name:     "write_data",
		Accounts: []Field{FieldAccount, FieldMetadataAccount, FieldAuthority},
		decode:   decodeWriteData,
	},
}

// LookupVariant returns the persisted variant for a discriminant.
func LookupVariant(discriminant uint8) (Variant, bool) {
	v, ok := variants[discriminant]
	return v, ok
}

var (
	errEmptyInstruction = errors.New("empty instruction data")
	errUnknownVariant   = errors.New("instruction variant is not persisted")
	errTrailingBytes    = errors.New("trailing bytes after instruction arguments")
)

// decodeInstruction parses a borsh-encoded instruction. The whole payload must be consumed.
func decodeInstruction(data []byte) (Variant, []byte, error) {
	if len(data) == 0 {
		return Variant{}, nil, errEmptyInstruction
	}
	v, ok := variants[data[0]]
	if !ok {
		return Variant{}, nil, errUnknownVariant
	}
	dec := bin.NewBorshDecoder(data[1:])
	var payload []byte
	if v.decode != nil {
		var err error
		if payload, err = v.decode(dec); err != nil {
			return Variant{}, nil, fmt.Errorf("decode %s: %w", v.Name, err)
		}
	}
	if dec.Remaining() != 0 {
		return Variant{}, nil, errTrailingBytes
	}
	return v, payload, nil
}

// assign resolves the variant's positional accounts against the key table.
// It reports false when a required position or key index is missing.
func (v Variant) assign(rec *Record, keys []PublicKey, accounts []uint8) bool {
	if len(accounts) < len(v.Accounts) {
		return false
	}
	for pos, field := range v.Accounts {
		if field == FieldNone {
			continue
		}
		idx := int(accounts[pos])
		if idx >= len(keys) {
			return false
		}
		key := keys[idx].String()
		switch field {
		case FieldAccount:
			rec.Account = key
		case FieldMetadataAccount:
			rec.MetadataAccount = key
		case FieldMintAccount:
			rec.MintAccount = &key
		case FieldAuthority:
			rec.Authority = key
		}
	}
	return true
}

// WriteDataArgs are the arguments of write_data.
type WriteDataArgs struct {
	AssociatedTag *string
	Offset        uint64
	Value         []byte
}

func decodeWriteData(dec *bin.Decoder) ([]byte, error) {
	some, err := readOption(dec)
	if err != nil {
		return nil, fmt.Errorf("associated tag: %w", err)
	}
	if some {
		if _, err := readBytes(dec); err != nil {
			return nil, fmt.Errorf("associated tag: %w", err)
		}
	}
	if _, err := dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("offset: %w", err)
	}
	value, err := readBytes(dec)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	return value, nil
}

func readOption(dec *bin.Decoder) (bool, error) {
	tag, err := dec.ReadUint8()
	if err != nil {
		return false, err
	}
	switch tag {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("invalid option tag %d", tag)
	}
}

// readBytes reads a borsh Vec<u8> or String: u32 length followed by the bytes.
func readBytes(dec *bin.Decoder) ([]byte, error) {
	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return nil, err
	}
	if int(n) > dec.Remaining() {
		return nil, fmt.Errorf("length %d exceeds remaining %d bytes", n, dec.Remaining())
	}
	b, err := dec.ReadNBytes(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}
