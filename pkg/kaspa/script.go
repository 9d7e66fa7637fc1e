package kaspa

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Opcodes used by wallet scripts.
const (
	Op0             byte = 0x00
	OpFalse         byte = 0x00
	OpData1         byte = 0x01
	OpData32        byte = 0x20
	OpData33        byte = 0x21
	OpData65        byte = 0x41
	OpData75        byte = 0x4b
	OpPushData1     byte = 0x4c
	OpPushData2     byte = 0x4d
	OpPushData4     byte = 0x4e
	Op1Negate       byte = 0x4f
	Op1             byte = 0x51
	Op16            byte = 0x60
	OpIf            byte = 0x63
	OpEndIf         byte = 0x68
	OpEqual         byte = 0x87
	OpCheckSigECDSA byte = 0xab
	OpBlake2b       byte = 0xaa
	OpCheckSig      byte = 0xac
)

// MaxScriptElementSize is the largest single data push.
const MaxScriptElementSize = 520

// SigHashAll commits to every input and output.
const SigHashAll byte = 0x01

// ErrScriptElementTooLarge is returned for pushes above MaxScriptElementSize.
var ErrScriptElementTooLarge = errors.New("script element too large")

// ScriptPublicKey is a versioned locking script.
type ScriptPublicKey struct {
	Version uint16
	Script  []byte
}

// ScriptBuilder assembles scripts with canonical pushes. The first error
// sticks and is returned by Script.
type ScriptBuilder struct {
	script []byte
	err    error
}

// NewScriptBuilder returns an empty builder.
func NewScriptBuilder() *ScriptBuilder {
	return &ScriptBuilder{script: make([]byte, 0, 64)}
}

// AddOp appends an opcode.
func (b *ScriptBuilder) AddOp(op byte) *ScriptBuilder {
	if b.err == nil {
		b.script = append(b.script, op)
	}
	return b
}

// AddData appends the smallest push that places data on the stack.
func (b *ScriptBuilder) AddData(data []byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	if len(data) > MaxScriptElementSize {
		b.err = fmt.Errorf("%w: %d bytes", ErrScriptElementTooLarge, len(data))
		return b
	}
	b.script = appendPush(b.script, data)
	return b
}

// AddInt64 appends a minimally encoded number.
func (b *ScriptBuilder) AddInt64(v int64) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	switch {
	case v == 0:
		b.script = append(b.script, Op0)
	case v == -1:
		b.script = append(b.script, Op1Negate)
	case v >= 1 && v <= 16:
		b.script = append(b.script, Op1+byte(v-1))
	default:
		b.script = appendPush(b.script, scriptNum(v))
	}
	return b
}

// Script returns the assembled script.
func (b *ScriptBuilder) Script() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return append([]byte(nil), b.script...), nil
}

func appendPush(script, data []byte) []byte {
	n := len(data)
	switch {
	case n == 0 || (n == 1 && data[0] == 0):
		return append(script, Op0)
	case n == 1 && data[0] <= 16:
		return append(script, Op1+data[0]-1)
	case n == 1 && data[0] == 0x81:
		return append(script, Op1Negate)
	case n <= int(OpData75):
		script = append(script, byte(n))
	case n <= 0xff:
		script = append(script, OpPushData1, byte(n))
	case n <= 0xffff:
		script = append(script, OpPushData2)
		script = binary.LittleEndian.AppendUint16(script, uint16(n))
	default:
		script = append(script, OpPushData4)
		script = binary.LittleEndian.AppendUint32(script, uint32(n))
	}
	return append(script, data...)
}

// scriptNum encodes v as a little-endian sign-magnitude number.
func scriptNum(v int64) []byte {
	if v == 0 {
		return nil
	}
	neg := v < 0
	m := uint64(v)
	if neg {
		m = uint64(-v)
	}
	var out []byte
	for m > 0 {
		out = append(out, byte(m&0xff))
		m >>= 8
	}
	if out[len(out)-1]&0x80 != 0 {
		extra := byte(0x00)
		if neg {
			extra = 0x80
		}
		out = append(out, extra)
	} else if neg {
		out[len(out)-1] |= 0x80
	}
	return out
}

// PushDataSize returns the encoded length of a push of n bytes.
func PushDataSize(n int) int {
	switch {
	case n <= int(OpData75):
		return 1 + n
	case n <= 0xff:
		return 2 + n
	case n <= 0xffff:
		return 3 + n
	default:
		return 5 + n
	}
}

// PayToAddrScript returns the locking script for addr.
func PayToAddrScript(addr Address) (ScriptPublicKey, error) {
	var script []byte
	switch addr.Version {
	case VersionPubKey:
		script = append([]byte{OpData32}, addr.Payload...)
		script = append(script, OpCheckSig)
	case VersionPubKeyECDSA:
		script = append([]byte{OpData33}, addr.Payload...)
		script = append(script, OpCheckSigECDSA)
	case VersionScriptHash:
		script = append([]byte{OpBlake2b, OpData32}, addr.Payload...)
		script = append(script, OpEqual)
	default:
		return ScriptPublicKey{}, fmt.Errorf("unsupported address version %d", addr.Version)
	}
	return ScriptPublicKey{Version: ScriptVersion, Script: script}, nil
}

// ExtractAddress recognises the standard locking scripts.
func ExtractAddress(spk ScriptPublicKey, prefix string) (Address, bool) {
	s := spk.Script
	switch {
	case len(s) == 34 && s[0] == OpData32 && s[33] == OpCheckSig:
		return Address{Prefix: prefix, Version: VersionPubKey, Payload: append([]byte(nil), s[1:33]...)}, true
	case len(s) == 35 && s[0] == OpData33 && s[34] == OpCheckSigECDSA:
		return Address{Prefix: prefix, Version: VersionPubKeyECDSA, Payload: append([]byte(nil), s[1:34]...)}, true
	case len(s) == 35 && s[0] == OpBlake2b && s[1] == OpData32 && s[34] == OpEqual:
		return Address{Prefix: prefix, Version: VersionScriptHash, Payload: append([]byte(nil), s[2:34]...)}, true
	default:
		return Address{}, false
	}
}

// SchnorrSignatureScript builds the unlocking script for a P2PK input.
func SchnorrSignatureScript(sig []byte, hashType byte) []byte {
	out := make([]byte, 0, 2+len(sig))
	out = append(out, byte(len(sig)+1))
	out = append(out, sig...)
	return append(out, hashType)
}

// SchnorrSignatureScriptSize is the length of SchnorrSignatureScript output.
const SchnorrSignatureScriptSize = 66

// P2SHSignatureScript builds the unlocking script for a P2SH input whose
// redeem script is satisfied by a single signature.
func P2SHSignatureScript(sig []byte, hashType byte, redeemScript []byte) ([]byte, error) {
	full := append(append([]byte(nil), sig...), hashType)
	return NewScriptBuilder().AddData(full).AddData(redeemScript).Script()
}

// IsPayToScriptHash reports whether spk is a P2SH locking script.
func IsPayToScriptHash(spk ScriptPublicKey) bool {
	s := spk.Script
	return len(s) == 35 && s[0] == OpBlake2b && s[1] == OpData32 && s[34] == OpEqual
}

// Equal reports whether two scripts are identical.
func (s ScriptPublicKey) Equal(o ScriptPublicKey) bool {
	return s.Version == o.Version && bytes.Equal(s.Script, o.Script)
}
