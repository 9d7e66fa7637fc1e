package wallet

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
)

// SaltSize is the Argon2id salt length.
const SaltSize = 32

// Sealed layout: salt(32) | memory(4) | iterations(4) | parallelism(1) | nonce(24) | ciphertext
const headerSize = SaltSize + 4 + 4 + 1

// ErrWrongPassword is returned when a sealed secret fails authentication.
var ErrWrongPassword = errors.New("wrong password or corrupted secret")

// EncryptionParams holds Argon2id parameters. They are stored in every
// sealed blob, so changing defaults never breaks existing secrets.
type EncryptionParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams returns the Argon2id parameters used for new secrets.
func DefaultParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
	}
}

func deriveKey(password, salt []byte, p EncryptionParams) []byte {
	return argon2.IDKey(password, salt, p.Iterations, p.Memory, p.Parallelism, chacha20poly1305.KeySize)
}

// Encrypt seals data under password with Argon2id and XChaCha20-Poly1305.
// The header is bound to the ciphertext as associated data.
func Encrypt(data, password []byte, params EncryptionParams) ([]byte, error) {
	if params.Memory == 0 || params.Iterations == 0 || params.Parallelism == 0 {
		return nil, fmt.Errorf("invalid argon2 params %+v", params)
	}
	header := make([]byte, 0, headerSize+chacha20poly1305.NonceSizeX)
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	header = append(header, salt...)
	header = binary.LittleEndian.AppendUint32(header, params.Memory)
	header = binary.LittleEndian.AppendUint32(header, params.Iterations)
	header = append(header, params.Parallelism)

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	key := deriveKey(password, salt, params)
	defer crypto.Zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	ad := append([]byte(nil), header...)
	out := append(header, nonce...)
	return aead.Seal(out, nonce, data, ad), nil
}

// Decrypt opens a blob produced by Encrypt. The caller owns the returned
// plaintext and should zero it after use.
func Decrypt(sealed, password []byte) ([]byte, error) {
	nonceSize := chacha20poly1305.NonceSizeX
	if min := headerSize + nonceSize + chacha20poly1305.Overhead; len(sealed) < min {
		return nil, fmt.Errorf("sealed secret too short: %d bytes, need at least %d", len(sealed), min)
	}

	params := EncryptionParams{
		Memory:      binary.LittleEndian.Uint32(sealed[SaltSize:]),
		Iterations:  binary.LittleEndian.Uint32(sealed[SaltSize+4:]),
		Parallelism: sealed[SaltSize+8],
	}
	if params.Iterations == 0 || params.Parallelism == 0 {
		return nil, fmt.Errorf("sealed secret has invalid params %+v", params)
	}
	nonce := sealed[headerSize : headerSize+nonceSize]

	key := deriveKey(password, sealed[:SaltSize], params)
	defer crypto.Zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, sealed[headerSize+nonceSize:], sealed[:headerSize])
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plaintext, nil
}

// WithDecrypted opens sealed, passes the plaintext to fn and zeroes it on
// every exit path.
func WithDecrypted(sealed, password []byte, fn func(secret []byte) error) error {
	secret, err := Decrypt(sealed, password)
	if err != nil {
		return err
	}
	defer crypto.Zero(secret)
	return fn(secret)
}
