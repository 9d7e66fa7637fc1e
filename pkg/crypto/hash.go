// Package crypto provides hashing and signing primitives shared by the chain
// packages.
package crypto

import (
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/Klingon-tech/klingnet-vault/pkg/types"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// KeyedHash computes a BLAKE2b-256 hash keyed with a domain string.
// Kaspa separates its transaction hashes this way.
func KeyedHash(domain string, parts ...[]byte) types.Hash {
	h, err := blake2b.New256([]byte(domain))
	if err != nil {
		// Only returned for keys longer than 64 bytes.
		panic(err)
	}
	for _, p := range parts {
		h.Write(p)
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Blake2b256 computes an unkeyed BLAKE2b-256 hash.
func Blake2b256(data []byte) types.Hash {
	return blake2b.Sum256(data)
}

// Sha3 computes a SHA3-256 hash over the concatenated parts.
func Sha3(parts ...[]byte) types.Hash {
	h := sha3.New256()
	for _, p := range parts {
		h.Write(p)
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}
