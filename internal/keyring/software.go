package keyring

import (
	"context"
	"errors"

	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
)

// HD signs with a key derived from a wallet seed along the account path.
type HD struct {
	acct  wallet.Account
	seeds SeedStore
}

func newHD(acct wallet.Account, deps Deps) (Signer, error) {
	if deps.Seeds == nil {
		return nil, errors.New("hd signer requires a seed store")
	}
	return &HD{acct: acct, seeds: deps.Seeds}, nil
}

// Account returns the signing account.
func (h *HD) Account() wallet.Account { return h.acct }

// Sign derives the account key and signs every payload.
func (h *HD) Sign(ctx context.Context, req SignRequest) ([][]byte, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var sigs [][]byte
	err := h.withSecret(req.Scheme, req.Password, func(secret []byte) error {
		var err error
		sigs, err = signWithSecret(h.acct, req.Scheme, secret, req.Payloads)
		return err
	})
	if err != nil {
		return nil, err
	}
	logSigned(h.acct, len(sigs))
	return sigs, nil
}

// ExportSecret returns a copy of the derived private key.
func (h *HD) ExportSecret(ctx context.Context, scheme crypto.Scheme, password []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := h.withSecret(scheme, password, func(secret []byte) error {
		out = append([]byte(nil), secret...)
		return nil
	})
	return out, err
}

func (h *HD) withSecret(scheme crypto.Scheme, password []byte, fn func(secret []byte) error) error {
	return h.seeds.WithSeed(h.acct.Wallet, password, func(seed []byte) error {
		secret, err := DeriveSecret(seed, h.acct.Path, scheme)
		if err != nil {
			return err
		}
		defer crypto.Zero(secret)
		return fn(secret)
	})
}

// DeriveSecret derives the raw private key at path for scheme: SLIP-10 for
// Ed25519, BIP32 otherwise.
func DeriveSecret(seed []byte, path string, scheme crypto.Scheme) ([]byte, error) {
	if scheme == crypto.SchemeEd25519 {
		key, chainCode, err := wallet.DeriveEd25519(seed, path)
		if err != nil {
			return nil, err
		}
		crypto.Zero(chainCode)
		return key, nil
	}
	k, err := wallet.DeriveSecp256k1(seed, path)
	if err != nil {
		return nil, err
	}
	defer k.Zero()
	return append([]byte(nil), k.PrivateKeyBytes()...), nil
}

// Imported signs with a key stored encrypted in the keystore.
type Imported struct {
	acct wallet.Account
	keys KeyStore
}

func newImported(acct wallet.Account, deps Deps) (Signer, error) {
	if deps.Keys == nil {
		return nil, errors.New("imported signer requires a key store")
	}
	return &Imported{acct: acct, keys: deps.Keys}, nil
}

// Account returns the signing account.
func (im *Imported) Account() wallet.Account { return im.acct }

// Sign decrypts the stored key and signs every payload.
func (im *Imported) Sign(ctx context.Context, req SignRequest) ([][]byte, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var sigs [][]byte
	err := im.keys.WithKey(im.acct.ID, req.Password, func(secret []byte) error {
		var err error
		sigs, err = signWithSecret(im.acct, req.Scheme, secret, req.Payloads)
		return err
	})
	if err != nil {
		return nil, err
	}
	logSigned(im.acct, len(sigs))
	return sigs, nil
}

// ExportSecret returns a copy of the stored key.
func (im *Imported) ExportSecret(ctx context.Context, _ crypto.Scheme, password []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := im.keys.WithKey(im.acct.ID, password, func(secret []byte) error {
		out = append([]byte(nil), secret...)
		return nil
	})
	return out, err
}
