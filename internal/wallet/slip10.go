package wallet

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
)

var ed25519SeedKey = []byte("ed25519 seed")

// DeriveEd25519 derives a SLIP-10 ed25519 private key and chain code.
// Ed25519 only supports hardened derivation. Every intermediate key and
// chain code is zeroed; the returned slices share one buffer the caller
// should zero.
func DeriveEd25519(seed []byte, path string) (key, chainCode []byte, err error) {
	indices, err := ParsePath(path)
	if err != nil {
		return nil, nil, err
	}
	for _, idx := range indices {
		if idx < HardenedOffset {
			return nil, nil, fmt.Errorf("path %q: ed25519 requires hardened components", path)
		}
	}

	sum := slip10Step(ed25519SeedKey, seed)
	data := make([]byte, 1+32+4)
	defer crypto.Zero(data)
	for _, idx := range indices {
		copy(data[1:33], sum[:32])
		binary.BigEndian.PutUint32(data[33:], idx)
		next := slip10Step(sum[32:], data)
		crypto.Zero(sum)
		sum = next
	}
	return sum[:32], sum[32:], nil
}

// slip10Step returns I = HMAC-SHA512(key, data).
func slip10Step(key, data []byte) []byte {
	mac := hmac.New(sha512.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
