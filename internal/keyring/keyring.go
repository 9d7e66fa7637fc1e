// Package keyring turns an account into a Signer. The signer variant is
// chosen once from the account's provenance; callers only see the Signer
// interface and never branch on where the key lives.
package keyring

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Klingon-tech/klingnet-vault/internal/log"
	"github.com/Klingon-tech/klingnet-vault/internal/rpcclient"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

// SignRequest asks for one signature per payload. For secp256k1 schemes
// each payload is a 32-byte digest; for Ed25519 it is the full message.
type SignRequest struct {
	Scheme   crypto.Scheme
	Payloads [][]byte
	Password []byte
}

// Signer signs on behalf of one account.
type Signer interface {
	Account() wallet.Account
	Sign(ctx context.Context, req SignRequest) ([][]byte, error)
}

// SecretExporter is implemented by signers that hold a software key.
// The returned secret must be zeroed by the caller.
type SecretExporter interface {
	ExportSecret(ctx context.Context, scheme crypto.Scheme, password []byte) ([]byte, error)
}

// SeedStore decrypts HD wallet seeds.
type SeedStore interface {
	WithSeed(name string, password []byte, fn func(seed []byte) error) error
}

// KeyStore decrypts imported account keys.
type KeyStore interface {
	WithKey(accountID string, password []byte, fn func(secret []byte) error) error
}

// Device is a hardware wallet transport. Implementations may block until
// the user confirms on the device and must honour ctx.
type Device interface {
	Sign(ctx context.Context, path string, scheme crypto.Scheme, payloads [][]byte) ([][]byte, error)
}

// Deps are the collaborators a signer variant may need.
type Deps struct {
	Seeds  SeedStore
	Keys   KeyStore
	Device Device
	// Remote returns the RPC client for an external signer endpoint.
	Remote func(endpoint string) *rpcclient.Client
}

type constructor func(acct wallet.Account, deps Deps) (Signer, error)

var registry = map[wallet.Provenance]constructor{
	wallet.ProvenanceHD:       newHD,
	wallet.ProvenanceImported: newImported,
	wallet.ProvenanceHardware: newHardware,
	wallet.ProvenanceExternal: newExternal,
	wallet.ProvenanceWatching: newWatching,
}

// New returns the signer for acct.
func New(acct wallet.Account, deps Deps) (Signer, error) {
	build, ok := registry[acct.Provenance]
	if !ok {
		return nil, vaulterr.Newf(vaulterr.ErrNotSupported, "account provenance %q", acct.Provenance)
	}
	return build(acct, deps)
}

func checkRequest(req SignRequest) error {
	if len(req.Payloads) == 0 {
		return vaulterr.Field("payloads")
	}
	for i, p := range req.Payloads {
		if req.Scheme != crypto.SchemeEd25519 && len(p) != 32 {
			return fmt.Errorf("payload %d: %s expects a 32-byte digest, got %d bytes", i, req.Scheme, len(p))
		}
	}
	return nil
}

// signWithSecret signs every payload with secret and checks the key matches
// the account's public key when one is recorded.
func signWithSecret(acct wallet.Account, scheme crypto.Scheme, secret []byte, payloads [][]byte) ([][]byte, error) {
	if len(acct.PublicKey) > 0 {
		pub, err := crypto.PublicKeyFor(scheme, secret)
		if err != nil {
			return nil, err
		}
		if !samePublicKey(scheme, pub, acct.PublicKey) {
			return nil, fmt.Errorf("decrypted key does not match account %s", acct.ID)
		}
	}
	sigs := make([][]byte, len(payloads))
	for i, p := range payloads {
		sig, err := crypto.SignDigest(scheme, secret, p)
		if err != nil {
			return nil, fmt.Errorf("sign payload %d: %w", i, err)
		}
		sigs[i] = sig
	}
	return sigs, nil
}

// samePublicKey compares keys, accepting an x-only account key for a
// compressed derived key.
func samePublicKey(scheme crypto.Scheme, derived, recorded []byte) bool {
	if bytes.Equal(derived, recorded) {
		return true
	}
	if scheme == crypto.SchemeEd25519 {
		return false
	}
	a, err := crypto.XOnly(derived)
	if err != nil {
		return false
	}
	b, err := crypto.XOnly(recorded)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

func verifyCount(acct wallet.Account, want int, sigs [][]byte) error {
	if len(sigs) != want {
		return fmt.Errorf("signer for %s returned %d signatures, want %d", acct.ID, len(sigs), want)
	}
	return nil
}

func logSigned(acct wallet.Account, n int) {
	log.Keyring.Debug().
		Str("account", acct.ID).
		Str("provenance", string(acct.Provenance)).
		Int("payloads", n).
		Msg("Signed")
}
