package kaspa

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

type encoding int

const (
	encodingFull encoding = iota
	excludeSignatureScript
)

// Serialize returns the wire encoding of tx. Output is deterministic.
func Serialize(tx *Transaction) []byte {
	return serialize(tx, encodingFull)
}

// SerializeHex is Serialize as lowercase hex.
func SerializeHex(tx *Transaction) string {
	return hex.EncodeToString(Serialize(tx))
}

func serialize(tx *Transaction, enc encoding) []byte {
	b := make([]byte, 0, 256)
	b = binary.LittleEndian.AppendUint16(b, tx.Version)

	b = binary.LittleEndian.AppendUint64(b, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		b = append(b, in.PreviousOutpoint.TxID[:]...)
		b = binary.LittleEndian.AppendUint32(b, in.PreviousOutpoint.Index)
		if enc == excludeSignatureScript {
			b = appendVarBytes(b, nil)
		} else {
			b = appendVarBytes(b, in.SignatureScript)
		}
		b = binary.LittleEndian.AppendUint64(b, in.Sequence)
		b = append(b, in.SigOpCount)
	}

	b = binary.LittleEndian.AppendUint64(b, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		b = binary.LittleEndian.AppendUint64(b, out.Value)
		b = binary.LittleEndian.AppendUint16(b, out.ScriptPublicKey.Version)
		b = appendVarBytes(b, out.ScriptPublicKey.Script)
	}

	b = binary.LittleEndian.AppendUint64(b, tx.LockTime)
	b = append(b, tx.SubnetworkID[:]...)
	b = binary.LittleEndian.AppendUint64(b, tx.Gas)
	b = appendVarBytes(b, tx.Payload)
	return b
}

func appendVarBytes(b, data []byte) []byte {
	b = binary.LittleEndian.AppendUint64(b, uint64(len(data)))
	return append(b, data...)
}

// Deserialize parses the wire encoding. The whole input must be consumed.
func Deserialize(data []byte) (*Transaction, error) {
	r := &reader{buf: data}
	tx, err := r.transaction()
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.ErrDeserializationFailed, err)
	}
	if r.remaining() != 0 {
		return nil, vaulterr.Newf(vaulterr.ErrDeserializationFailed, "%d trailing bytes", r.remaining())
	}
	return tx, nil
}

// DeserializeHex is Deserialize for a hex string.
func DeserializeHex(s string) (*Transaction, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.ErrDeserializationFailed, err)
	}
	return Deserialize(data)
}

var errShortRead = errors.New("unexpected end of data")

type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, errShortRead
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// count reads a length prefix and bounds it by the bytes left, given the
// minimum encoded size of one element.
func (r *reader) count(minElem int) (int, error) {
	n, err := r.u64()
	if err != nil {
		return 0, err
	}
	if n > uint64(r.remaining()/minElem) {
		return 0, fmt.Errorf("count %d exceeds remaining data", n)
	}
	return int(n), nil
}

func (r *reader) varBytes() ([]byte, error) {
	n, err := r.count(1)
	if err != nil {
		return nil, err
	}
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

const (
	minInputSize  = 32 + 4 + 8 + 8 + 1
	minOutputSize = 8 + 2 + 8
)

func (r *reader) transaction() (*Transaction, error) {
	tx := &Transaction{}
	var err error
	if tx.Version, err = r.u16(); err != nil {
		return nil, fmt.Errorf("version: %w", err)
	}

	nIn, err := r.count(minInputSize)
	if err != nil {
		return nil, fmt.Errorf("input count: %w", err)
	}
	tx.Inputs = make([]*Input, nIn)
	for i := range tx.Inputs {
		in := &Input{}
		txid, err := r.take(32)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		copy(in.PreviousOutpoint.TxID[:], txid)
		if in.PreviousOutpoint.Index, err = r.u32(); err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		if in.SignatureScript, err = r.varBytes(); err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		if in.Sequence, err = r.u64(); err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		if in.SigOpCount, err = r.u8(); err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		tx.Inputs[i] = in
	}

	nOut, err := r.count(minOutputSize)
	if err != nil {
		return nil, fmt.Errorf("output count: %w", err)
	}
	tx.Outputs = make([]*Output, nOut)
	for i := range tx.Outputs {
		out := &Output{}
		if out.Value, err = r.u64(); err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		if out.ScriptPublicKey.Version, err = r.u16(); err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		if out.ScriptPublicKey.Script, err = r.varBytes(); err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		tx.Outputs[i] = out
	}

	if tx.LockTime, err = r.u64(); err != nil {
		return nil, fmt.Errorf("lock time: %w", err)
	}
	sub, err := r.take(SubnetworkIDSize)
	if err != nil {
		return nil, fmt.Errorf("subnetwork: %w", err)
	}
	copy(tx.SubnetworkID[:], sub)
	if tx.Gas, err = r.u64(); err != nil {
		return nil, fmt.Errorf("gas: %w", err)
	}
	if tx.Payload, err = r.varBytes(); err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	return tx, nil
}
