// Package kaspa implements the vault and core signer for Kaspa: UTXO coin
// selection under mass limits, schnorr signing and the KRC20 commit/reveal
// transfer.
package kaspa

import (
	"context"
	"fmt"
	"time"

	"github.com/Klingon-tech/klingnet-vault/internal/indexer"
	kas "github.com/Klingon-tech/klingnet-vault/pkg/kaspa"
)

// ChainName identifies Kaspa in accounts, metrics and logs.
const ChainName = "kaspa"

// Config holds per-network vault parameters.
type Config struct {
	Network kas.Network

	// FeeRate is the default fee in sompi per gram of mass.
	FeeRate           uint64
	ConfirmationCount uint64
	MaxUTXOs          int

	// CommitAmount is locked at the KRC20 commit address.
	CommitAmount       uint64
	CommitPollInterval time.Duration
	CommitTimeout      time.Duration

	// UTXOCacheTTL caps the life of a fetched UTXO set shared by concurrent
	// builds for the same address. Each build drops the set when it returns.
	UTXOCacheTTL time.Duration
}

// DefaultConfig returns the parameters for net.
func DefaultConfig(net kas.Network) Config {
	return Config{
		Network:            net,
		FeeRate:            kas.DefaultFeeRate,
		ConfirmationCount:  kas.ConfirmationCount,
		MaxUTXOs:           kas.MaxUTXOsPerTx,
		CommitAmount:       kas.KRC20CommitAmount,
		CommitPollInterval: 500 * time.Millisecond,
		CommitTimeout:      2 * time.Minute,
		UTXOCacheTTL:       30 * time.Second,
	}
}

// Validate checks the config for obvious mistakes.
func (c Config) Validate() error {
	if c.Network.Prefix == "" {
		return fmt.Errorf("kaspa: network prefix is required")
	}
	if c.FeeRate == 0 {
		return fmt.Errorf("kaspa: fee rate must be positive")
	}
	if c.MaxUTXOs <= 0 {
		return fmt.Errorf("kaspa: max utxos must be positive")
	}
	if c.CommitAmount < kas.DustAmount {
		return fmt.Errorf("kaspa: commit amount %d is below dust", c.CommitAmount)
	}
	if c.CommitPollInterval <= 0 || c.CommitTimeout < c.CommitPollInterval {
		return fmt.Errorf("kaspa: commit poll interval %s / timeout %s", c.CommitPollInterval, c.CommitTimeout)
	}
	return nil
}

// Indexer is the remote API the vault reads UTXOs and status from and
// broadcasts through. *indexer.Kaspa implements it.
type Indexer interface {
	UTXOs(ctx context.Context, address string) ([]indexer.KaspaUTXO, error)
	NetworkInfo(ctx context.Context) (indexer.KaspaNetworkInfo, error)
	TxStatus(ctx context.Context, txid string) (indexer.TxStatus, error)
	Submit(ctx context.Context, tx kas.RPCTransaction) (string, error)
}

var _ Indexer = (*indexer.Kaspa)(nil)
