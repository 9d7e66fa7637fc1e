package kaspa

import (
	"fmt"
	"strings"

	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
)

// AddressVersion is the first payload byte of an address.
type AddressVersion byte

const (
	VersionPubKey      AddressVersion = 0
	VersionPubKeyECDSA AddressVersion = 1
	VersionScriptHash  AddressVersion = 8
)

func (v AddressVersion) payloadSize() int {
	switch v {
	case VersionPubKey, VersionScriptHash:
		return 32
	case VersionPubKeyECDSA:
		return 33
	default:
		return -1
	}
}

// Address is a decoded Kaspa address.
type Address struct {
	Prefix  string
	Version AddressVersion
	Payload []byte
}

// NewPubKeyAddress returns the schnorr P2PK address for an x-only key.
func NewPubKeyAddress(xonly []byte, prefix string) (Address, error) {
	if len(xonly) != 32 {
		return Address{}, fmt.Errorf("x-only public key must be 32 bytes, got %d", len(xonly))
	}
	return Address{Prefix: prefix, Version: VersionPubKey, Payload: append([]byte(nil), xonly...)}, nil
}

// NewScriptHashAddress returns the P2SH address committing to script.
func NewScriptHashAddress(script []byte, prefix string) Address {
	h := crypto.Blake2b256(script)
	return Address{Prefix: prefix, Version: VersionScriptHash, Payload: h.Bytes()}
}

// String encodes the address as prefix:payload+checksum.
func (a Address) String() string {
	data := make([]byte, 0, len(a.Payload)+1)
	data = append(data, byte(a.Version))
	data = append(data, a.Payload...)
	conv, err := convertBits(data, 8, 5, true)
	if err != nil {
		return ""
	}
	sum := checksum(a.Prefix, conv)

	var sb strings.Builder
	sb.Grow(len(a.Prefix) + 1 + len(conv) + checksumLen)
	sb.WriteString(a.Prefix)
	sb.WriteByte(':')
	for _, b := range conv {
		sb.WriteByte(charset[b])
	}
	for i := 0; i < checksumLen; i++ {
		sb.WriteByte(charset[(sum>>(5*uint(checksumLen-1-i)))&0x1f])
	}
	return sb.String()
}

// DecodeAddress parses s. A non-empty prefix must match the address prefix.
func DecodeAddress(s, prefix string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("address: empty string")
	}
	if strings.ToLower(s) != s && strings.ToUpper(s) != s {
		return Address{}, fmt.Errorf("address: mixed case")
	}
	s = strings.ToLower(s)

	sep := strings.LastIndexByte(s, ':')
	if sep < 1 {
		return Address{}, fmt.Errorf("address: missing prefix")
	}
	gotPrefix, body := s[:sep], s[sep+1:]
	if prefix != "" && gotPrefix != prefix {
		return Address{}, fmt.Errorf("address: prefix %q, want %q", gotPrefix, prefix)
	}
	if len(body) < checksumLen+1 {
		return Address{}, fmt.Errorf("address: too short")
	}

	data5 := make([]byte, len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c > 127 || charsetRev[c] < 0 {
			return Address{}, fmt.Errorf("address: invalid character %q", c)
		}
		data5[i] = byte(charsetRev[c])
	}
	if polymod(prefixBits(gotPrefix), data5) != 0 {
		return Address{}, fmt.Errorf("address: invalid checksum")
	}

	data8, err := convertBits(data5[:len(data5)-checksumLen], 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("address: %w", err)
	}
	if len(data8) == 0 {
		return Address{}, fmt.Errorf("address: empty payload")
	}
	version := AddressVersion(data8[0])
	payload := data8[1:]
	if want := version.payloadSize(); want < 0 || len(payload) != want {
		return Address{}, fmt.Errorf("address: version %d with %d byte payload", version, len(payload))
	}
	return Address{Prefix: gotPrefix, Version: version, Payload: payload}, nil
}

// IsValidAddress reports whether s decodes under prefix.
func IsValidAddress(s, prefix string) bool {
	_, err := DecodeAddress(s, prefix)
	return err == nil
}

const (
	charset     = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	checksumLen = 8
)

var charsetRev [128]int8

var generator = [5]uint64{0x98f2bc8e61, 0x79b76d99e2, 0xf33e5fb3c4, 0xae2eabe2a8, 0x1e4f43e470}

func init() {
	for i := range charsetRev {
		charsetRev[i] = -1
	}
	for i, c := range charset {
		charsetRev[c] = int8(i)
	}
}

func prefixBits(prefix string) []byte {
	out := make([]byte, len(prefix)+1)
	for i := 0; i < len(prefix); i++ {
		out[i] = prefix[i] & 0x1f
	}
	return out
}

func polymod(parts ...[]byte) uint64 {
	c := uint64(1)
	for _, part := range parts {
		for _, d := range part {
			top := c >> 35
			c = ((c & 0x07ffffffff) << 5) ^ uint64(d)
			for i, g := range generator {
				if (top>>uint(i))&1 == 1 {
					c ^= g
				}
			}
		}
	}
	return c ^ 1
}

func checksum(prefix string, data5 []byte) uint64 {
	return polymod(prefixBits(prefix), data5, make([]byte, checksumLen))
}

// convertBits regroups a byte slice from fromBits-wide to toBits-wide groups.
func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	acc := uint32(0)
	bits := uint(0)
	maxv := uint32((1 << toBits) - 1)
	var out []byte
	for _, b := range data {
		if uint32(b)>>fromBits != 0 {
			return nil, fmt.Errorf("invalid data range: %d", b)
		}
		acc = (acc << fromBits) | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte((acc>>bits)&maxv))
		}
	}
	if pad {
		if bits > 0 {
			out = append(out, byte((acc<<(toBits-bits))&maxv))
		}
	} else if bits >= fromBits || (acc<<(toBits-bits))&maxv != 0 {
		return nil, fmt.Errorf("invalid padding")
	}
	return out, nil
}
