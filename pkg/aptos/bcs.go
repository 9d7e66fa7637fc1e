package aptos

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

// Serializer writes Binary Canonical Serialization.
type Serializer struct {
	buf []byte
}

// NewSerializer returns an empty serializer.
func NewSerializer() *Serializer {
	return &Serializer{buf: make([]byte, 0, 256)}
}

// Bytes returns the serialized output.
func (s *Serializer) Bytes() []byte { return s.buf }

func (s *Serializer) U8(v uint8)   { s.buf = append(s.buf, v) }
func (s *Serializer) U16(v uint16) { s.buf = binary.LittleEndian.AppendUint16(s.buf, v) }
func (s *Serializer) U32(v uint32) { s.buf = binary.LittleEndian.AppendUint32(s.buf, v) }
func (s *Serializer) U64(v uint64) { s.buf = binary.LittleEndian.AppendUint64(s.buf, v) }

func (s *Serializer) Bool(v bool) {
	if v {
		s.U8(1)
	} else {
		s.U8(0)
	}
}

// U128 writes a 16-byte little-endian integer.
func (s *Serializer) U128(v *big.Int) { s.fixedInt(v, 16) }

// U256 writes a 32-byte little-endian integer.
func (s *Serializer) U256(v *big.Int) { s.fixedInt(v, 32) }

func (s *Serializer) fixedInt(v *big.Int, size int) {
	be := make([]byte, size)
	v.FillBytes(be)
	for i := size - 1; i >= 0; i-- {
		s.buf = append(s.buf, be[i])
	}
}

// Uleb128 writes a variable-length unsigned integer.
func (s *Serializer) Uleb128(v uint32) {
	for v >= 0x80 {
		s.buf = append(s.buf, byte(v&0x7f)|0x80)
		v >>= 7
	}
	s.buf = append(s.buf, byte(v))
}

// FixedBytes writes b without a length prefix.
func (s *Serializer) FixedBytes(b []byte) { s.buf = append(s.buf, b...) }

// WriteBytes writes a length-prefixed byte vector.
func (s *Serializer) WriteBytes(b []byte) {
	s.Uleb128(uint32(len(b)))
	s.FixedBytes(b)
}

// Str writes a length-prefixed UTF-8 string.
func (s *Serializer) Str(v string) { s.WriteBytes([]byte(v)) }

var errEOF = errors.New("bcs: unexpected end of input")

// Deserializer reads Binary Canonical Serialization.
type Deserializer struct {
	buf []byte
	off int
	err error
}

// NewDeserializer reads from data.
func NewDeserializer(data []byte) *Deserializer {
	return &Deserializer{buf: data}
}

// Err returns the first error encountered.
func (d *Deserializer) Err() error { return d.err }

// Remaining returns the unread byte count.
func (d *Deserializer) Remaining() int { return len(d.buf) - d.off }

func (d *Deserializer) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Deserializer) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.Remaining() < n {
		d.fail(errEOF)
		return nil
	}
	out := d.buf[d.off : d.off+n]
	d.off += n
	return out
}

func (d *Deserializer) U8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *Deserializer) U16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *Deserializer) U32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *Deserializer) U64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *Deserializer) Bool() bool {
	switch v := d.U8(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail(fmt.Errorf("bcs: invalid bool %d", v))
		return false
	}
}

// Uleb128 reads a variable-length unsigned integer that fits in 32 bits.
func (d *Deserializer) Uleb128() uint32 {
	var v uint64
	for shift := uint(0); shift < 64; shift += 7 {
		b := d.U8()
		if d.err != nil {
			return 0
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			if v > 0xffffffff {
				d.fail(errors.New("bcs: uleb128 overflows u32"))
				return 0
			}
			return uint32(v)
		}
	}
	d.fail(errors.New("bcs: uleb128 too long"))
	return 0
}

// Len reads a vector length, bounded by the remaining input.
func (d *Deserializer) Len() int {
	n := d.Uleb128()
	if d.err == nil && int(n) > d.Remaining() {
		d.fail(fmt.Errorf("bcs: length %d exceeds remaining %d", n, d.Remaining()))
		return 0
	}
	return int(n)
}

// FixedBytes reads n bytes.
func (d *Deserializer) FixedBytes(n int) []byte {
	b := d.take(n)
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// ReadBytes reads a length-prefixed byte vector.
func (d *Deserializer) ReadBytes() []byte {
	n := d.Len()
	if d.err != nil {
		return nil
	}
	return d.FixedBytes(n)
}

// Str reads a length-prefixed string.
func (d *Deserializer) Str() string {
	return string(d.ReadBytes())
}
