package evm

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/Klingon-tech/klingnet-vault/internal/keyring"
	"github.com/Klingon-tech/klingnet-vault/internal/vault"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
	"github.com/Klingon-tech/klingnet-vault/pkg/keyformat"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

// DefaultPathTemplate is the BIP44 path for EVM accounts.
const DefaultPathTemplate = "m/44'/60'/0'/0/" + vault.IndexPlaceholder

// Core is the EVM signing front: secp256k1 keys, keccak addresses.
type Core struct{}

var _ vault.CoreChain = (*Core)(nil)

// NewCore returns the EVM core signer.
func NewCore() *Core { return &Core{} }

// AddressFromPublicKey accepts a 33-byte compressed or 65-byte
// uncompressed key and returns the checksummed address.
func (c *Core) AddressFromPublicKey(pub []byte) (string, error) {
	switch len(pub) {
	case 33:
		pk, err := ethcrypto.DecompressPubkey(pub)
		if err != nil {
			return "", fmt.Errorf("public key: %w", err)
		}
		return ethcrypto.PubkeyToAddress(*pk).Hex(), nil
	case 65:
		pk, err := ethcrypto.UnmarshalPubkey(pub)
		if err != nil {
			return "", fmt.Errorf("public key: %w", err)
		}
		return ethcrypto.PubkeyToAddress(*pk).Hex(), nil
	default:
		return "", fmt.Errorf("public key must be 33 or 65 bytes, got %d", len(pub))
	}
}

// AddressFromPrivateKey derives the address for a raw secp256k1 secret.
func (c *Core) AddressFromPrivateKey(secret []byte) (string, error) {
	key, err := ethcrypto.ToECDSA(secret)
	if err != nil {
		return "", vaulterr.Wrap(vaulterr.ErrInvalidKeyFormat, err)
	}
	return ethcrypto.PubkeyToAddress(key.PublicKey).Hex(), nil
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
		return vault.DerivedAddress{Path: path, Address: addr, PublicKey: hexutil.Encode(pub)}, nil
	})
}

// SignTransaction signs the EIP-1559 transaction and checks the recovered
// sender is the account.
func (c *Core) SignTransaction(ctx context.Context, signer keyring.Signer, unsigned *vault.UnsignedTx, password []byte) (*vault.SignedTx, error) {
	enc, err := encodedOf(unsigned)
	if err != nil {
		return nil, err
	}
	txSigner := types.LatestSignerForChainID(enc.Tx.ChainId())
	digest := txSigner.Hash(enc.Tx)

	sig, err := signOne(ctx, signer, digest.Bytes(), password)
	if err != nil {
		return nil, err
	}
	signed, err := enc.Tx.WithSignature(txSigner, sig)
	if err != nil {
		return nil, fmt.Errorf("attach signature: %w", err)
	}
	from, err := types.Sender(txSigner, signed)
	if err != nil {
		return nil, fmt.Errorf("recover sender: %w", err)
	}
	if !sameAddress(from, signer.Account().Address) {
		return nil, fmt.Errorf("signature recovers %s, not account %s", from.Hex(), signer.Account().Address)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	return &vault.SignedTx{TxID: signed.Hash().Hex(), Raw: raw, Encoded: enc}, nil
}

// SignMessage produces a personal_sign signature with V in {27, 28}.
func (c *Core) SignMessage(ctx context.Context, signer keyring.Signer, message []byte, password []byte) (string, error) {
	if len(message) == 0 {
		return "", vaulterr.Field("message")
	}
	sig, err := signOne(ctx, signer, accounts.TextHash(message), password)
	if err != nil {
		return "", err
	}
	out := append([]byte(nil), sig...)
	out[64] += 27
	return hexutil.Encode(out), nil
}

// ExportSecretKey returns the account key as 0x-hex unless AIP-80 is
// asked for.
func (c *Core) ExportSecretKey(ctx context.Context, signer keyring.Signer, password []byte, format keyformat.Format) (string, error) {
	exporter, ok := signer.(keyring.SecretExporter)
	if !ok {
		return "", vaulterr.Newf(vaulterr.ErrNotSupported, "account %s holds no exportable key", signer.Account().ID)
	}
	secret, err := exporter.ExportSecret(ctx, crypto.SchemeECDSA, password)
	if err != nil {
		return "", err
	}
	defer crypto.Zero(secret)

	raw := hex.EncodeToString(secret)
	switch format {
	case "", keyformat.Legacy:
		return keyformat.Normalize(raw, keyformat.Legacy, "")
	case keyformat.AIP80:
		return keyformat.Normalize(raw, keyformat.AIP80, keyformat.Secp256k1)
	default:
		return keyformat.Normalize(raw, format, "")
	}
}

func signOne(ctx context.Context, signer keyring.Signer, digest, password []byte) ([]byte, error) {
	sigs, err := signer.Sign(ctx, keyring.SignRequest{
		Scheme:   crypto.SchemeECDSA,
		Payloads: [][]byte{digest},
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	if len(sigs) != 1 || len(sigs[0]) != 65 {
		return nil, fmt.Errorf("signer returned %d signatures, want one of 65 bytes", len(sigs))
	}
	return sigs[0], nil
}

func sameAddress(a common.Address, s string) bool {
	return strings.EqualFold(a.Hex(), s)
}

func encodedOf(unsigned *vault.UnsignedTx) (*EncodedTx, error) {
	if unsigned == nil || unsigned.Encoded == nil {
		return nil, vaulterr.Field("encodedTx")
	}
	enc, ok := unsigned.Encoded.(*EncodedTx)
	if !ok || enc.Tx == nil {
		return nil, vaulterr.Newf(vaulterr.ErrNotSupported, "%s transaction in evm vault", unsigned.Encoded.Chain())
	}
	return enc, nil
}
