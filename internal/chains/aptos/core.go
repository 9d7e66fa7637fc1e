package aptos

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/Klingon-tech/klingnet-vault/internal/keyring"
	"github.com/Klingon-tech/klingnet-vault/internal/vault"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	apt "github.com/Klingon-tech/klingnet-vault/pkg/aptos"
	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
	"github.com/Klingon-tech/klingnet-vault/pkg/keyformat"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

// DefaultPathTemplate is the SLIP-10 path for Aptos accounts. Every
// component is hardened.
const DefaultPathTemplate = "m/44'/637'/" + vault.IndexPlaceholder + "'/0'/0'"

// Core is the Aptos signing front: single-key Ed25519 accounts.
type Core struct{}

var _ vault.CoreChain = (*Core)(nil)

// NewCore returns the Aptos core signer.
func NewCore() *Core { return &Core{} }

// AddressFromPublicKey returns the long-form address of an Ed25519 key.
func (c *Core) AddressFromPublicKey(pub []byte) (string, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	return apt.AddressFromPublicKey(pub).StringLong(), nil
}

// AddressFromPrivateKey derives the address for a 32-byte Ed25519 seed.
func (c *Core) AddressFromPrivateKey(secret []byte) (string, error) {
	pub, err := crypto.PublicKeyFor(crypto.SchemeEd25519, secret)
	if err != nil {
		return "", vaulterr.Wrap(vaulterr.ErrInvalidKeyFormat, err)
	}
	return c.AddressFromPublicKey(pub)
}

// AddressesFromHDPath derives one address per index along template.
func (c *Core) AddressesFromHDPath(ctx context.Context, seed []byte, template string, indexes []uint32) ([]vault.DerivedAddress, error) {
	return vault.DeriveAddresses(ctx, template, indexes, func(path string) (vault.DerivedAddress, error) {
		key, _, err := wallet.DeriveEd25519(seed, path)
		if err != nil {
			return vault.DerivedAddress{}, err
		}
		defer crypto.Zero(key)
		pub, err := crypto.PublicKeyFor(crypto.SchemeEd25519, key)
		if err != nil {
			return vault.DerivedAddress{}, err
		}
		addr, err := c.AddressFromPublicKey(pub)
		if err != nil {
			return vault.DerivedAddress{}, err
		}
		return vault.DerivedAddress{Path: path, Address: addr, PublicKey: "0x" + hex.EncodeToString(pub)}, nil
	})
}

// SignTransaction signs a simple transaction as its sender. Multi-agent
// and fee-payer envelopes need authenticators this signer cannot build.
func (c *Core) SignTransaction(ctx context.Context, signer keyring.Signer, unsigned *vault.UnsignedTx, password []byte) (*vault.SignedTx, error) {
	enc, err := encodedOf(unsigned)
	if err != nil {
		return nil, err
	}
	if enc.Tx.Shape != apt.ShapeSimple || enc.Tx.FeePayer != nil {
		return nil, vaulterr.Newf(vaulterr.ErrNotSupported, "signing %s transactions", enc.Tx.Shape)
	}
	pub, err := accountKey(signer.Account())
	if err != nil {
		return nil, err
	}
	if apt.AddressFromPublicKey(pub) != enc.Tx.Raw.Sender {
		return nil, fmt.Errorf("sender %s is not account %s", enc.Tx.Raw.Sender, signer.Account().Address)
	}

	msg := enc.Tx.SigningMessage()
	sig, err := c.signOne(ctx, signer, msg, password)
	if err != nil {
		return nil, err
	}
	if !crypto.Verify(crypto.SchemeEd25519, pub, msg, sig) {
		return nil, fmt.Errorf("transaction signature does not verify")
	}
	st, err := apt.Sign(enc.Tx, pub, sig)
	if err != nil {
		return nil, err
	}
	return &vault.SignedTx{TxID: st.Hash(), Raw: st.Serialize(), Encoded: enc}, nil
}

// SignMessage signs message as is and returns the 0x-hex signature.
func (c *Core) SignMessage(ctx context.Context, signer keyring.Signer, message []byte, password []byte) (string, error) {
	if len(message) == 0 {
		return "", vaulterr.Field("message")
	}
	sig, err := c.signOne(ctx, signer, message, password)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// ExportSecretKey returns the account key, AIP-80 prefixed unless the
// legacy format is asked for.
func (c *Core) ExportSecretKey(ctx context.Context, signer keyring.Signer, password []byte, format keyformat.Format) (string, error) {
	exporter, ok := signer.(keyring.SecretExporter)
	if !ok {
		return "", vaulterr.Newf(vaulterr.ErrNotSupported, "account %s holds no exportable key", signer.Account().ID)
	}
	secret, err := exporter.ExportSecret(ctx, crypto.SchemeEd25519, password)
	if err != nil {
		return "", err
	}
	defer crypto.Zero(secret)

	raw := hex.EncodeToString(secret)
	if format == "" || format == keyformat.AIP80 {
		return keyformat.Normalize(raw, keyformat.AIP80, keyformat.Ed25519)
	}
	return keyformat.Normalize(raw, format, "")
}

func (c *Core) signOne(ctx context.Context, signer keyring.Signer, payload, password []byte) ([]byte, error) {
	sigs, err := signer.Sign(ctx, keyring.SignRequest{
		Scheme:   crypto.SchemeEd25519,
		Payloads: [][]byte{payload},
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	if len(sigs) != 1 {
		return nil, fmt.Errorf("signer returned %d signatures for 1 payload", len(sigs))
	}
	return sigs[0], nil
}

// accountKey returns the account's Ed25519 public key. Aptos addresses
// are hashes, so the key must be recorded on the account.
func accountKey(acct wallet.Account) ([]byte, error) {
	if len(acct.PublicKey) != ed25519.PublicKeySize {
		return nil, vaulterr.Field("publicKey").With("account", acct.ID)
	}
	return acct.PublicKey, nil
}

func encodedOf(unsigned *vault.UnsignedTx) (*EncodedTx, error) {
	if unsigned == nil || unsigned.Encoded == nil {
		return nil, vaulterr.Field("encodedTx")
	}
	enc, ok := unsigned.Encoded.(*EncodedTx)
	if !ok || enc.Tx == nil || enc.Tx.Raw == nil {
		return nil, vaulterr.Newf(vaulterr.ErrNotSupported, "%s transaction in aptos vault", unsigned.Encoded.Chain())
	}
	return enc, nil
}
