// Package vault defines the per-chain transaction lifecycle: build an
// encoded transaction from a transfer intent, decode it for display, sign
// it through the account's keyring and broadcast it. Chains with two-phase
// token transfers add a reveal step after the commit confirms.
package vault

import (
	"context"

	"github.com/Klingon-tech/klingnet-vault/internal/indexer"
	"github.com/Klingon-tech/klingnet-vault/internal/keyring"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	"github.com/Klingon-tech/klingnet-vault/pkg/keyformat"
)

// Vault implements the transaction lifecycle for one account on one chain.
type Vault interface {
	Chain() string
	Account() wallet.Account

	// ValidateAddress checks a destination for this chain and network.
	ValidateAddress(address string) error
	// BuildEncodedTx builds a transaction for exactly one transfer. Inputs
	// and account state are fetched fresh on every call.
	BuildEncodedTx(ctx context.Context, transfers []TransferInfo) (EncodedTx, error)
	// BuildDecodedTx renders a transaction for display. It never fails;
	// unknown content decodes as ActionUnknown.
	BuildDecodedTx(unsigned *UnsignedTx) DecodedTx
	// UpdateUnsignedTx rebuilds unsigned with a new fee.
	UpdateUnsignedTx(ctx context.Context, unsigned *UnsignedTx, fee FeeInfo) (*UnsignedTx, error)
	// SignTransaction signs through the account's keyring.
	SignTransaction(ctx context.Context, unsigned *UnsignedTx, password []byte) (*SignedTx, error)
	// Broadcast submits signed and returns it with TxID set.
	Broadcast(ctx context.Context, signed *SignedTx) (*SignedTx, error)
	// TxStatus reports the on-chain state of txid.
	TxStatus(ctx context.Context, txid string) (indexer.TxStatus, error)
	// AfterSend waits for a two-phase commit to confirm and returns the
	// follow-up transaction to sign. It returns nil when nothing follows.
	AfterSend(ctx context.Context, signed *SignedTx) (*UnsignedTx, error)
}

// CoreChain is the signing front for one curve and address format.
type CoreChain interface {
	AddressFromPublicKey(pub []byte) (string, error)
	AddressFromPrivateKey(secret []byte) (string, error)
	// AddressesFromHDPath derives addresses for each index substituted
	// into template's "{index}" placeholder.
	AddressesFromHDPath(ctx context.Context, seed []byte, template string, indexes []uint32) ([]DerivedAddress, error)
	SignTransaction(ctx context.Context, signer keyring.Signer, unsigned *UnsignedTx, password []byte) (*SignedTx, error)
	SignMessage(ctx context.Context, signer keyring.Signer, message []byte, password []byte) (string, error)
	// ExportSecretKey returns the account key in format, or the chain's
	// default format when format is empty.
	ExportSecretKey(ctx context.Context, signer keyring.Signer, password []byte, format keyformat.Format) (string, error)
}
