package inscription

import (
	"bytes"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
)

// EncodeInitialize returns the instruction data of initialize.
func EncodeInitialize() []byte {
	return []byte{InstructionInitialize}
}

// EncodeInitializeFromMint returns the instruction data of initialize_from_mint.
func EncodeInitializeFromMint() []byte {
	return []byte{InstructionInitializeFromMint}
}

// EncodeWriteData returns the borsh instruction data of write_data.
func EncodeWriteData(args WriteDataArgs) ([]byte, error) {
	var buf bytes.Buffer
	enc := bin.NewBorshEncoder(&buf)
	if err := enc.WriteUint8(InstructionWriteData); err != nil {
		return nil, err
	}
	if args.AssociatedTag == nil {
		if err := enc.WriteUint8(0); err != nil {
			return nil, err
		}
	} else {
		if err := enc.WriteUint8(1); err != nil {
			return nil, err
		}
		if err := writeBytes(enc, []byte(*args.AssociatedTag)); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteUint64(args.Offset, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := writeBytes(enc, args.Value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBytes(enc *bin.Encoder, b []byte) error {
	if err := enc.WriteUint32(uint32(len(b)), binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteBytes(b, false)
}
