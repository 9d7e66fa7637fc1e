package aptos

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
)

// AddressLength is the size of an account address.
const AddressLength = 32

// Ed25519Scheme is the authentication key scheme byte for single Ed25519 keys.
const Ed25519Scheme byte = 0x00

// AccountAddress is a 32-byte account address.
type AccountAddress [AddressLength]byte

// Well-known addresses.
var (
	AddressOne = AccountAddress{31: 0x01}
)

// AddressFromPublicKey derives the account address of an Ed25519 key:
// sha3-256(pubkey || 0x00).
func AddressFromPublicKey(pub []byte) AccountAddress {
	return AccountAddress(crypto.Sha3(pub, []byte{Ed25519Scheme}))
}

// ParseAddress parses "0x"-prefixed hex, left-padding short forms.
func ParseAddress(s string) (AccountAddress, error) {
	body := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if body == "" || len(body) > AddressLength*2 {
		return AccountAddress{}, fmt.Errorf("invalid address %q", s)
	}
	if len(body)%2 == 1 {
		body = "0" + body
	}
	b, err := hex.DecodeString(body)
	if err != nil {
		return AccountAddress{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	var a AccountAddress
	copy(a[AddressLength-len(b):], b)
	return a, nil
}

// IsSpecial reports whether a is one of 0x0..0xf.
func (a AccountAddress) IsSpecial() bool {
	for _, b := range a[:AddressLength-1] {
		if b != 0 {
			return false
		}
	}
	return a[AddressLength-1] < 0x10
}

// String returns the long form, or the short form for special addresses.
func (a AccountAddress) String() string {
	if a.IsSpecial() {
		return fmt.Sprintf("0x%x", a[AddressLength-1])
	}
	return a.StringLong()
}

// StringLong returns "0x" followed by 64 hex chars.
func (a AccountAddress) StringLong() string {
	return "0x" + hex.EncodeToString(a[:])
}
