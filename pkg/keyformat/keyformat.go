// Package keyformat converts private key strings between the legacy raw hex
// form ("0x" + 64 hex chars) and the AIP-80 prefixed form
// ("<algorithm>-priv-0x..."), which names the signing curve.
//
// Detection helpers never fail; they report "not found". Normalize and
// AddPrefix return typed vaulterr errors.
package keyformat

import (
	"encoding/hex"
	"strings"

	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

// Algorithm names a signing curve.
type Algorithm string

// Known algorithms. Nistp256 has no AIP-80 prefix.
const (
	Ed25519   Algorithm = "ed25519"
	Secp256k1 Algorithm = "secp256k1"
	Nistp256  Algorithm = "nistp256"
)

// Format is a key string representation.
type Format string

const (
	Legacy Format = "legacy"
	AIP80  Format = "aip80"
)

// KeySize is the raw private key length shared by every supported algorithm.
const KeySize = 32

type prefixEntry struct {
	alg    Algorithm
	prefix string
}

// prefixes is checked in order.
var prefixes = [...]prefixEntry{
	{Ed25519, "ed25519-priv-"},
	{Secp256k1, "secp256k1-priv-"},
}

// Prefix returns the AIP-80 prefix for alg.
func Prefix(alg Algorithm) (string, bool) {
	for _, e := range prefixes {
		if e.alg == alg {
			return e.prefix, true
		}
	}
	return "", false
}

// SupportedAlgorithms returns the algorithms that have a prefix.
func SupportedAlgorithms() []Algorithm {
	out := make([]Algorithm, 0, len(prefixes))
	for _, e := range prefixes {
		out = append(out, e.alg)
	}
	return out
}

// DetectAlgorithm returns the algorithm whose prefix key starts with.
func DetectAlgorithm(key string) (Algorithm, bool) {
	for _, e := range prefixes {
		if strings.HasPrefix(key, e.prefix) {
			return e.alg, true
		}
	}
	return "", false
}

// CheckAlgorithmSupport returns the detected algorithm only if it is supported.
func CheckAlgorithmSupport(key string) (Algorithm, bool) {
	alg, ok := DetectAlgorithm(key)
	if !ok {
		return "", false
	}
	if _, ok := Prefix(alg); !ok {
		return "", false
	}
	return alg, true
}

// StripPrefix removes a known prefix. Other input is returned unchanged.
func StripPrefix(key string) string {
	for _, e := range prefixes {
		if strings.HasPrefix(key, e.prefix) {
			return key[len(e.prefix):]
		}
	}
	return key
}

// AddPrefix prepends the prefix for alg unless key already carries it.
// No validation of the key body is done.
func AddPrefix(key string, alg Algorithm) (string, error) {
	prefix, ok := Prefix(alg)
	if !ok {
		return "", vaulterr.Newf(vaulterr.ErrUnsupportedAlgorithm, "%q", string(alg))
	}
	if strings.HasPrefix(key, prefix) {
		return key, nil
	}
	return prefix + key, nil
}

func hasHexMarker(s string) bool {
	return strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
}

func addHexMarker(s string) string {
	if hasHexMarker(s) {
		return s
	}
	return "0x" + s
}

// validLegacy reports whether s is a marker-prefixed hex key of KeySize bytes.
func validLegacy(s string) bool {
	if !hasHexMarker(s) {
		return false
	}
	body := s[2:]
	if len(body) != KeySize*2 {
		return false
	}
	_, err := hex.DecodeString(body)
	return err == nil
}

// ValidatePrivateKey accepts a legacy key or a supported prefixed key whose
// body is a legacy key. The 0x marker is required.
func ValidatePrivateKey(key string) bool {
	if key == "" {
		return false
	}
	return validLegacy(StripPrefix(key))
}

// IsAIP80Format reports whether key is a well-formed prefixed key.
func IsAIP80Format(key string) bool {
	if _, ok := CheckAlgorithmSupport(key); !ok {
		return false
	}
	return validLegacy(StripPrefix(key))
}

// IsLegacyFormat reports whether key is a well-formed unprefixed key.
func IsLegacyFormat(key string) bool {
	if _, ok := DetectAlgorithm(key); ok {
		return false
	}
	return validLegacy(key)
}

// Normalize converts key into target. Converting to AIP80 requires alg.
// A key already carrying the target prefix is returned unchanged.
func Normalize(key string, target Format, alg Algorithm) (string, error) {
	if key == "" {
		return "", vaulterr.ErrInvalidKeyFormat
	}
	switch target {
	case Legacy:
		legacy := addHexMarker(StripPrefix(key))
		if !validLegacy(legacy) {
			return "", vaulterr.ErrInvalidKeyFormat
		}
		return legacy, nil
	case AIP80:
		if alg == "" {
			return "", vaulterr.Newf(vaulterr.ErrUnsupportedAlgorithm, "algorithm type is required for AIP80 format")
		}
		prefix, ok := Prefix(alg)
		if !ok {
			return "", vaulterr.Newf(vaulterr.ErrUnsupportedAlgorithm, "%q", string(alg))
		}
		legacy := addHexMarker(StripPrefix(key))
		if !validLegacy(legacy) {
			return "", vaulterr.ErrInvalidKeyFormat
		}
		if strings.HasPrefix(key, prefix) {
			return key, nil
		}
		return prefix + legacy, nil
	default:
		return "", vaulterr.Newf(vaulterr.ErrUnsupportedTargetFormat, "%q", string(target))
	}
}

// Decode returns the raw key bytes of a legacy or prefixed key.
func Decode(key string) ([]byte, error) {
	legacy, err := Normalize(key, Legacy, "")
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(legacy[2:])
}
