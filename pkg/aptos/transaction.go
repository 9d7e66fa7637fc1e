// Package aptos implements the Aptos transaction model: BCS encoding, raw
// and signed transactions, and account addresses.
package aptos

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

// RawTransaction is the signed-over body of a transaction.
type RawTransaction struct {
	Sender                  AccountAddress
	SequenceNumber          uint64
	Payload                 Payload
	MaxGasAmount            uint64
	GasUnitPrice            uint64
	ExpirationTimestampSecs uint64
	ChainID                 uint8
}

// Serialize writes the raw transaction.
func (r *RawTransaction) Serialize(s *Serializer) {
	s.FixedBytes(r.Sender[:])
	s.U64(r.SequenceNumber)
	serializePayload(s, r.Payload)
	s.U64(r.MaxGasAmount)
	s.U64(r.GasUnitPrice)
	s.U64(r.ExpirationTimestampSecs)
	s.U8(r.ChainID)
}

func deserializeRaw(d *Deserializer) *RawTransaction {
	r := &RawTransaction{}
	copy(r.Sender[:], d.FixedBytes(AddressLength))
	r.SequenceNumber = d.U64()
	r.Payload = deserializePayload(d)
	r.MaxGasAmount = d.U64()
	r.GasUnitPrice = d.U64()
	r.ExpirationTimestampSecs = d.U64()
	r.ChainID = d.U8()
	return r
}

// Shape distinguishes the unsigned transaction envelopes.
type Shape int

const (
	ShapeSimple Shape = iota
	ShapeMultiAgent
)

func (s Shape) String() string {
	if s == ShapeMultiAgent {
		return "multi-agent"
	}
	return "simple"
}

// Transaction is an unsigned transaction envelope.
type Transaction struct {
	Shape            Shape
	Raw              *RawTransaction
	SecondarySigners []AccountAddress
	FeePayer         *AccountAddress
}

// Serialize returns the envelope bytes.
func (t *Transaction) Serialize() []byte {
	s := NewSerializer()
	t.Raw.Serialize(s)
	if t.Shape == ShapeMultiAgent {
		s.Uleb128(uint32(len(t.SecondarySigners)))
		for _, a := range t.SecondarySigners {
			s.FixedBytes(a[:])
		}
	}
	if t.FeePayer == nil {
		s.Bool(false)
	} else {
		s.Bool(true)
		s.FixedBytes(t.FeePayer[:])
	}
	return s.Bytes()
}

// SerializeHex is Serialize as hex without a 0x marker.
func (t *Transaction) SerializeHex() string {
	return hex.EncodeToString(t.Serialize())
}

type shapeDecoder struct {
	shape  Shape
	decode func(d *Deserializer) *Transaction
}

// shapes is tried in order.
var shapes = [...]shapeDecoder{
	{ShapeSimple, func(d *Deserializer) *Transaction {
		t := &Transaction{Shape: ShapeSimple, Raw: deserializeRaw(d)}
		t.FeePayer = optionalAddress(d)
		return t
	}},
	{ShapeMultiAgent, func(d *Deserializer) *Transaction {
		t := &Transaction{Shape: ShapeMultiAgent, Raw: deserializeRaw(d)}
		n := d.Len()
		for i := 0; i < n && d.Err() == nil; i++ {
			var a AccountAddress
			copy(a[:], d.FixedBytes(AddressLength))
			t.SecondarySigners = append(t.SecondarySigners, a)
		}
		t.FeePayer = optionalAddress(d)
		return t
	}},
}

func optionalAddress(d *Deserializer) *AccountAddress {
	if !d.Bool() {
		return nil
	}
	var a AccountAddress
	copy(a[:], d.FixedBytes(AddressLength))
	return &a
}

// Deserialize parses an unsigned transaction. The first shape that parses
// without error and consumes every byte wins; partial parses are rejected.
func Deserialize(data []byte) (*Transaction, error) {
	var attempts []string
	for _, sh := range shapes {
		d := NewDeserializer(data)
		t := sh.decode(d)
		switch {
		case d.Err() != nil:
			attempts = append(attempts, fmt.Sprintf("%s: %v", sh.shape, d.Err()))
		case d.Remaining() != 0:
			attempts = append(attempts, fmt.Sprintf("%s: %d trailing bytes", sh.shape, d.Remaining()))
		default:
			return t, nil
		}
	}
	return nil, vaulterr.Newf(vaulterr.ErrDeserializationFailed, "%s", strings.Join(attempts, "; "))
}

// DeserializeHex is Deserialize for hex input with or without 0x.
func DeserializeHex(s string) (*Transaction, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.ErrDeserializationFailed, err)
	}
	return Deserialize(data)
}

const (
	rawTxSalt         = "APTOS::RawTransaction"
	rawTxWithDataSalt = "APTOS::RawTransactionWithData"
)

// SigningMessage returns the bytes the sender signs.
func (t *Transaction) SigningMessage() []byte {
	s := NewSerializer()
	if t.FeePayer == nil && t.Shape == ShapeSimple {
		prefix := crypto.Sha3([]byte(rawTxSalt))
		s.FixedBytes(prefix[:])
		t.Raw.Serialize(s)
		return s.Bytes()
	}

	prefix := crypto.Sha3([]byte(rawTxWithDataSalt))
	s.FixedBytes(prefix[:])
	if t.FeePayer == nil {
		s.Uleb128(0) // MultiAgent
	} else {
		s.Uleb128(1) // MultiAgentWithFeePayer
	}
	t.Raw.Serialize(s)
	s.Uleb128(uint32(len(t.SecondarySigners)))
	for _, a := range t.SecondarySigners {
		s.FixedBytes(a[:])
	}
	if t.FeePayer != nil {
		s.FixedBytes(t.FeePayer[:])
	}
	return s.Bytes()
}

// authenticator variants
const authEd25519 uint32 = 0

// SignedTransaction is a raw transaction with a single Ed25519 authenticator.
type SignedTransaction struct {
	Raw       *RawTransaction
	PublicKey []byte
	Signature []byte
}

// Serialize returns the submission bytes. Output is deterministic.
func (st *SignedTransaction) Serialize() []byte {
	s := NewSerializer()
	st.Raw.Serialize(s)
	s.Uleb128(authEd25519)
	s.WriteBytes(st.PublicKey)
	s.WriteBytes(st.Signature)
	return s.Bytes()
}

// Sign wraps t's raw transaction with an authenticator for pub and sig.
func Sign(t *Transaction, pub, sig []byte) (*SignedTransaction, error) {
	if len(pub) != 32 {
		return nil, fmt.Errorf("ed25519 public key must be 32 bytes, got %d", len(pub))
	}
	if len(sig) != 64 {
		return nil, fmt.Errorf("ed25519 signature must be 64 bytes, got %d", len(sig))
	}
	return &SignedTransaction{Raw: t.Raw, PublicKey: pub, Signature: sig}, nil
}

// DeserializeSigned parses a signed transaction.
func DeserializeSigned(data []byte) (*SignedTransaction, error) {
	d := NewDeserializer(data)
	st := &SignedTransaction{Raw: deserializeRaw(d)}
	if v := d.Uleb128(); d.Err() == nil && v != authEd25519 {
		return nil, vaulterr.Newf(vaulterr.ErrDeserializationFailed, "unsupported authenticator %d", v)
	}
	st.PublicKey = d.ReadBytes()
	st.Signature = d.ReadBytes()
	if d.Err() != nil {
		return nil, vaulterr.Wrap(vaulterr.ErrDeserializationFailed, d.Err())
	}
	if d.Remaining() != 0 {
		return nil, vaulterr.Newf(vaulterr.ErrDeserializationFailed, "%d trailing bytes", d.Remaining())
	}
	return st, nil
}

// Hash returns the transaction hash the node reports for st.
func (st *SignedTransaction) Hash() string {
	prefix := crypto.Sha3([]byte("APTOS::Transaction"))
	// Transaction::UserTransaction
	h := crypto.Sha3(prefix[:], []byte{0}, st.Serialize())
	return "0x" + hex.EncodeToString(h[:])
}

// U64Arg encodes a u64 entry function argument.
func U64Arg(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

// AddressArg encodes an address entry function argument.
func AddressArg(a AccountAddress) []byte {
	return append([]byte(nil), a[:]...)
}

// ArgU64 decodes a u64 argument.
func ArgU64(b []byte) (uint64, bool) {
	if len(b) != 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b), true
}

// ArgAddress decodes an address argument.
func ArgAddress(b []byte) (AccountAddress, bool) {
	if len(b) != AddressLength {
		return AccountAddress{}, false
	}
	return AccountAddress(b), true
}
