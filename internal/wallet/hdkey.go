package wallet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tyler-smith/go-bip32"
)

// HardenedOffset is added to an index for hardened derivation.
const HardenedOffset = bip32.FirstHardenedChild

// ParsePath parses a derivation path such as "m/44'/111111'/0'/0/3".
// Both ' and h mark hardened components.
func ParsePath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("path %q must start with m", path)
	}
	out := make([]uint32, 0, len(parts)-1)
	for _, p := range parts[1:] {
		hardened := strings.HasSuffix(p, "'") || strings.HasSuffix(p, "h") || strings.HasSuffix(p, "H")
		if hardened {
			p = p[:len(p)-1]
		}
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil || n >= uint64(HardenedOffset) {
			return nil, fmt.Errorf("path %q: bad component %q", path, p)
		}
		idx := uint32(n)
		if hardened {
			idx += HardenedOffset
		}
		out = append(out, idx)
	}
	return out, nil
}

// FormatPath renders indices as "m/..." with ' for hardened components.
func FormatPath(indices []uint32) string {
	var b strings.Builder
	b.WriteString("m")
	for _, idx := range indices {
		b.WriteByte('/')
		if idx >= HardenedOffset {
			b.WriteString(strconv.FormatUint(uint64(idx-HardenedOffset), 10))
			b.WriteByte('\'')
		} else {
			b.WriteString(strconv.FormatUint(uint64(idx), 10))
		}
	}
	return b.String()
}

// HDKey is a secp256k1 BIP-32 key.
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates a master key from a 16 to 64 byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) < 16 || len(seed) > SeedSize {
		return nil, fmt.Errorf("seed must be 16-%d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: master}, nil
}

// DeriveSecp256k1 derives the key at path from seed.
func DeriveSecp256k1(seed []byte, path string) (*HDKey, error) {
	indices, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	return master.DerivePath(indices...)
}

// DeriveChild derives a child key at index.
func (k *HDKey) DeriveChild(index uint32) (*HDKey, error) {
	child, err := k.key.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("derive child %d: %w", index, err)
	}
	return &HDKey{key: child}, nil
}

// DerivePath derives a key along a sequence of indices.
func (k *HDKey) DerivePath(indices ...uint32) (*HDKey, error) {
	current := k
	for _, idx := range indices {
		child, err := current.DeriveChild(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// PrivateKeyBytes returns the raw 32-byte private key, or nil for a
// public-only key.
func (k *HDKey) PrivateKeyBytes() []byte {
	if !k.key.IsPrivate {
		return nil
	}
	// bip32 stores private keys with a leading zero byte.
	raw := k.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		return raw[1:]
	}
	return raw
}

// PublicKeyBytes returns the compressed 33-byte public key.
func (k *HDKey) PublicKeyBytes() []byte {
	return k.key.PublicKey().Key
}

// ExtendedPublicKey returns the base58 xpub.
func (k *HDKey) ExtendedPublicKey() string {
	return k.key.PublicKey().B58Serialize()
}

// String returns the base58 serialization (xprv for private keys).
func (k *HDKey) String() string {
	return k.key.B58Serialize()
}

// IsPrivate returns true if this key contains a private key.
func (k *HDKey) IsPrivate() bool {
	return k.key.IsPrivate
}

// Depth returns the derivation depth (0 for master).
func (k *HDKey) Depth() uint8 {
	return k.key.Depth
}

// Neuter returns a public-key-only copy for watch-only use.
func (k *HDKey) Neuter() *HDKey {
	return &HDKey{key: k.key.PublicKey()}
}

// Zero clears the private key bytes.
func (k *HDKey) Zero() {
	for i := range k.key.Key {
		k.key.Key[i] = 0
	}
}
