// Package wallet holds account records, the encrypted secret store and the
// key derivation and coin selection shared by every chain.
package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// SeedSize is the length of a BIP-39 seed in bytes.
const SeedSize = 64

// DefaultMnemonicWords is the length of generated mnemonics unless asked
// otherwise.
const DefaultMnemonicWords = 24

// ErrInvalidMnemonic is returned for a phrase with unknown words or a bad
// checksum.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// GenerateMnemonic creates a BIP-39 mnemonic of 12, 15, 18, 21 or 24 words.
func GenerateMnemonic(words int) (string, error) {
	if words < 12 || words > 24 || words%3 != 0 {
		return "", fmt.Errorf("mnemonic length %d: want 12, 15, 18, 21 or 24 words", words)
	}
	// 11 bits per word, one checksum bit per 32 bits of entropy.
	entropy, err := bip39.NewEntropy(words * 11 * 32 / 33)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// NormalizeMnemonic lowercases a phrase and collapses whitespace, the form
// users paste in.
func NormalizeMnemonic(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}

// ValidateMnemonic checks word count, words and checksum.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// SeedFromMnemonic derives the 64-byte BIP-39 seed.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return seed, nil
}
