// Package types holds fixed-size values shared by the chain codecs, the
// coin selector and the broadcast journal.
package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HashSize is the length of every digest the vault handles.
const HashSize = 32

// Hash is a 32-byte digest: a Kaspa transaction id or sighash, an Aptos
// transaction hash or a journal key.
type Hash [HashSize]byte

// IsZero reports whether h is unset.
func (h Hash) IsZero() bool { return h == Hash{} }

// String is the bare lowercase hex form Kaspa indexers use.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Hex is the 0x-prefixed form Aptos and EVM nodes use.
func (h Hash) Hex() string { return "0x" + h.String() }

// Bytes returns a copy.
func (h Hash) Bytes() []byte { return append([]byte(nil), h[:]...) }

func (h Hash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// UnmarshalText accepts either hex form. Empty input leaves the zero hash.
func (h *Hash) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*h = Hash{}
		return nil
	}
	parsed, err := HexToHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HexToHash parses 64 hex characters with an optional 0x prefix.
func HexToHash(s string) (Hash, error) {
	body := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(body) != 2*HashSize {
		return Hash{}, fmt.Errorf("hash %q: want %d hex chars, got %d", s, 2*HashSize, len(body))
	}
	var h Hash
	if _, err := hex.Decode(h[:], []byte(body)); err != nil {
		return Hash{}, fmt.Errorf("hash %q: %w", s, err)
	}
	return h, nil
}
