package crypto

import (
	"crypto/ed25519"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Scheme is a signature scheme over a specific curve.
type Scheme int

const (
	// SchemeSchnorr is BIP340 Schnorr over secp256k1 (Kaspa).
	SchemeSchnorr Scheme = iota + 1
	// SchemeECDSA is recoverable ECDSA over secp256k1 (EVM).
	SchemeECDSA
	// SchemeEd25519 is Ed25519 (Aptos).
	SchemeEd25519
)

// String returns the scheme name.
func (s Scheme) String() string {
	switch s {
	case SchemeSchnorr:
		return "schnorr"
	case SchemeECDSA:
		return "ecdsa"
	case SchemeEd25519:
		return "ed25519"
	default:
		return fmt.Sprintf("scheme(%d)", int(s))
	}
}

// Curve returns the curve name used by key format helpers.
func (s Scheme) Curve() string {
	if s == SchemeEd25519 {
		return "ed25519"
	}
	return "secp256k1"
}

// PrivateKey wraps a secp256k1 private key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	key := secp256k1.PrivKeyFromBytes(b)
	if key.Key.IsZero() {
		return nil, fmt.Errorf("private key is zero or out of range")
	}
	return &PrivateKey{key: key}, nil
}

// SignSchnorr produces a 64-byte BIP340 signature over a 32-byte hash.
func (pk *PrivateKey) SignSchnorr(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	sig, err := schnorr.Sign(pk.key, hash)
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

// SignECDSA produces a 65-byte [R || S || V] signature, V in {0, 1}.
func (pk *PrivateKey) SignECDSA(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	compact := ecdsa.SignCompact(pk.key, hash, false)
	out := make([]byte, 65)
	copy(out, compact[1:])
	out[64] = compact[0] - 27
	return out, nil
}

// PublicKey returns the compressed 33-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()
}

// XOnlyPublicKey returns the 32-byte BIP340 public key.
func (pk *PrivateKey) XOnlyPublicKey() []byte {
	return schnorr.SerializePubKey(pk.key.PubKey())
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// XOnly converts a 33-byte compressed key to its 32-byte x-only form.
// 32-byte input is returned as is.
func XOnly(pub []byte) ([]byte, error) {
	switch len(pub) {
	case 32:
		return pub, nil
	case 33:
		key, err := secp256k1.ParsePubKey(pub)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
		return schnorr.SerializePubKey(key), nil
	default:
		return nil, fmt.Errorf("public key must be 32 or 33 bytes, got %d", len(pub))
	}
}

// VerifySchnorr checks a BIP340 signature against an x-only or compressed
// public key. Returns false on any error.
func VerifySchnorr(hash, signature, publicKey []byte) bool {
	xonly, err := XOnly(publicKey)
	if err != nil {
		return false
	}
	key, err := schnorr.ParsePubKey(xonly)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash, key)
}

// RecoverECDSA returns the compressed public key that produced an
// [R || S || V] signature.
func RecoverECDSA(hash, signature []byte) ([]byte, error) {
	if len(signature) != 65 {
		return nil, fmt.Errorf("signature must be 65 bytes, got %d", len(signature))
	}
	compact := make([]byte, 65)
	compact[0] = signature[64] + 27
	copy(compact[1:], signature[:64])
	key, _, err := ecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil, fmt.Errorf("recover: %w", err)
	}
	return key.SerializeCompressed(), nil
}

// Ed25519FromSeed returns the Ed25519 private key for a 32-byte seed.
func Ed25519FromSeed(seed []byte) (ed25519.PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// PublicKeyFor returns the public key for a raw 32-byte secret under scheme.
// Secp256k1 keys are returned compressed.
func PublicKeyFor(scheme Scheme, secret []byte) ([]byte, error) {
	switch scheme {
	case SchemeSchnorr, SchemeECDSA:
		pk, err := PrivateKeyFromBytes(secret)
		if err != nil {
			return nil, err
		}
		defer pk.Zero()
		return pk.PublicKey(), nil
	case SchemeEd25519:
		key, err := Ed25519FromSeed(secret)
		if err != nil {
			return nil, err
		}
		defer Zero(key)
		return append([]byte(nil), key.Public().(ed25519.PublicKey)...), nil
	default:
		return nil, fmt.Errorf("unknown scheme %s", scheme)
	}
}

// SignDigest signs digest with a raw 32-byte secret under scheme. The
// expanded key material is zeroed before returning.
func SignDigest(scheme Scheme, secret, digest []byte) ([]byte, error) {
	switch scheme {
	case SchemeSchnorr:
		pk, err := PrivateKeyFromBytes(secret)
		if err != nil {
			return nil, err
		}
		defer pk.Zero()
		return pk.SignSchnorr(digest)
	case SchemeECDSA:
		pk, err := PrivateKeyFromBytes(secret)
		if err != nil {
			return nil, err
		}
		defer pk.Zero()
		return pk.SignECDSA(digest)
	case SchemeEd25519:
		key, err := Ed25519FromSeed(secret)
		if err != nil {
			return nil, err
		}
		defer Zero(key)
		return ed25519.Sign(key, digest), nil
	default:
		return nil, fmt.Errorf("unknown scheme %s", scheme)
	}
}

// Verify checks a signature produced by SignDigest.
func Verify(scheme Scheme, publicKey, digest, signature []byte) bool {
	switch scheme {
	case SchemeSchnorr:
		return VerifySchnorr(digest, signature, publicKey)
	case SchemeECDSA:
		recovered, err := RecoverECDSA(digest, signature)
		if err != nil {
			return false
		}
		want, err := secp256k1.ParsePubKey(publicKey)
		if err != nil {
			return false
		}
		return string(recovered) == string(want.SerializeCompressed())
	case SchemeEd25519:
		if len(publicKey) != ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(publicKey, digest, signature)
	default:
		return false
	}
}

// Zero clears b.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
