package kaspa

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/Klingon-tech/klingnet-vault/internal/keyring"
	"github.com/Klingon-tech/klingnet-vault/internal/vault"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
	kas "github.com/Klingon-tech/klingnet-vault/pkg/kaspa"
	"github.com/Klingon-tech/klingnet-vault/pkg/keyformat"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

// DefaultPathTemplate is the BIP44 path for Kaspa accounts.
const DefaultPathTemplate = "m/44'/111111'/0'/0/" + vault.IndexPlaceholder

// Core is the Kaspa signing front: schnorr P2PK addresses and SigHashAll
// input signatures.
type Core struct {
	net kas.Network
}

var _ vault.CoreChain = (*Core)(nil)

// NewCore returns the core signer for net.
func NewCore(net kas.Network) *Core {
	return &Core{net: net}
}

// AddressFromPublicKey accepts a 33-byte compressed or 32-byte x-only key.
func (c *Core) AddressFromPublicKey(pub []byte) (string, error) {
	xonly, err := crypto.XOnly(pub)
	if err != nil {
		return "", err
	}
	addr, err := kas.NewPubKeyAddress(xonly, c.net.Prefix)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

// AddressFromPrivateKey derives the address for a raw secp256k1 secret.
func (c *Core) AddressFromPrivateKey(secret []byte) (string, error) {
	pub, err := crypto.PublicKeyFor(crypto.SchemeSchnorr, secret)
	if err != nil {
		return "", vaulterr.Wrap(vaulterr.ErrInvalidKeyFormat, err)
	}
	return c.AddressFromPublicKey(pub)
}

// AddressesFromHDPath derives one address per index along template.
func (c *Core) AddressesFromHDPath(ctx context.Context, seed []byte, template string, indexes []uint32) ([]vault.DerivedAddress, error) {
	return vault.DeriveAddresses(ctx, template, indexes, func(path string) (vault.DerivedAddress, error) {
		k, err := wallet.DeriveSecp256k1(seed, path)
		if err != nil {
			return vault.DerivedAddress{}, err
		}
		defer k.Zero()
		pub := k.PublicKeyBytes()
		addr, err := c.AddressFromPublicKey(pub)
		if err != nil {
			return vault.DerivedAddress{}, err
		}
		return vault.DerivedAddress{Path: path, Address: addr, PublicKey: hex.EncodeToString(pub)}, nil
	})
}

// SignTransaction signs every input of the encoded transaction. Inputs
// spending a commit output get the P2SH unlocking script.
func (c *Core) SignTransaction(ctx context.Context, signer keyring.Signer, unsigned *vault.UnsignedTx, password []byte) (*vault.SignedTx, error) {
	enc, err := encodedOf(unsigned)
	if err != nil {
		return nil, err
	}
	tx := enc.Tx.Clone()

	payloads := make([][]byte, len(tx.Inputs))
	for i := range tx.Inputs {
		h, err := kas.SignatureHash(tx, i)
		if err != nil {
			return nil, fmt.Errorf("sighash: %w", err)
		}
		payloads[i] = h.Bytes()
	}
	sigs, err := signer.Sign(ctx, keyring.SignRequest{
		Scheme:   crypto.SchemeSchnorr,
		Payloads: payloads,
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	if len(sigs) != len(payloads) {
		return nil, fmt.Errorf("signer returned %d signatures for %d inputs", len(sigs), len(payloads))
	}

	xonly, err := c.accountKey(signer.Account())
	if err != nil {
		return nil, err
	}
	for i, in := range tx.Inputs {
		if !crypto.VerifySchnorr(payloads[i], sigs[i], xonly) {
			return nil, fmt.Errorf("signature for input %d does not verify", i)
		}
		if enc.Reveal != nil && kas.IsPayToScriptHash(in.UTXO.ScriptPublicKey) {
			in.SignatureScript, err = kas.P2SHSignatureScript(sigs[i], kas.SigHashAll, enc.Reveal.RedeemScript)
			if err != nil {
				return nil, fmt.Errorf("reveal signature script: %w", err)
			}
			continue
		}
		in.SignatureScript = kas.SchnorrSignatureScript(sigs[i], kas.SigHashAll)
	}

	signedEnc := *enc
	signedEnc.Tx = tx
	return &vault.SignedTx{Raw: kas.Serialize(tx), Encoded: &signedEnc}, nil
}

// SignMessage is not offered for Kaspa accounts.
func (c *Core) SignMessage(context.Context, keyring.Signer, []byte, []byte) (string, error) {
	return "", vaulterr.Newf(vaulterr.ErrNotSupported, "kaspa message signing")
}

// ExportSecretKey returns the account key. The Kaspa default is bare hex;
// legacy and AIP-80 formats are produced through keyformat.
func (c *Core) ExportSecretKey(ctx context.Context, signer keyring.Signer, password []byte, format keyformat.Format) (string, error) {
	exporter, ok := signer.(keyring.SecretExporter)
	if !ok {
		return "", vaulterr.Newf(vaulterr.ErrNotSupported, "account %s holds no exportable key", signer.Account().ID)
	}
	secret, err := exporter.ExportSecret(ctx, crypto.SchemeSchnorr, password)
	if err != nil {
		return "", err
	}
	defer crypto.Zero(secret)

	raw := hex.EncodeToString(secret)
	switch format {
	case "":
		return raw, nil
	case keyformat.AIP80:
		return keyformat.Normalize(raw, keyformat.AIP80, keyformat.Secp256k1)
	default:
		return keyformat.Normalize(raw, format, "")
	}
}

// accountKey returns the x-only key that must have produced the
// signatures: the recorded public key, or the P2PK address payload.
func (c *Core) accountKey(acct wallet.Account) ([]byte, error) {
	if len(acct.PublicKey) > 0 {
		return crypto.XOnly(acct.PublicKey)
	}
	addr, err := kas.DecodeAddress(acct.Address, c.net.Prefix)
	if err != nil {
		return nil, fmt.Errorf("account address: %w", err)
	}
	if addr.Version != kas.VersionPubKey {
		return nil, vaulterr.Newf(vaulterr.ErrNotSupported, "address version %d", addr.Version)
	}
	return addr.Payload, nil
}

func encodedOf(unsigned *vault.UnsignedTx) (*EncodedTx, error) {
	if unsigned == nil || unsigned.Encoded == nil {
		return nil, vaulterr.Field("encodedTx")
	}
	enc, ok := unsigned.Encoded.(*EncodedTx)
	if !ok || enc.Tx == nil {
		return nil, vaulterr.Newf(vaulterr.ErrNotSupported, "%s transaction in kaspa vault", unsigned.Encoded.Chain())
	}
	return enc, nil
}
