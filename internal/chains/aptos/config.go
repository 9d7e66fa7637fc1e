// Package aptos implements the vault and core signer for Aptos: coin
// transfers as entry function payloads, Ed25519 signing over the BCS
// signing message and AIP-80 key export.
package aptos

import (
	"context"
	"fmt"
	"time"

	"github.com/Klingon-tech/klingnet-vault/internal/indexer"
	apt "github.com/Klingon-tech/klingnet-vault/pkg/aptos"
)

// ChainName identifies Aptos in accounts, metrics and logs.
const ChainName = "aptos"

// NativeSymbol is the display symbol of the native coin.
const NativeSymbol = "APT"

// Config holds per-network vault parameters.
type Config struct {
	// MaxGasAmount caps the gas units a transaction may consume.
	MaxGasAmount uint64
	// MinGasUnitPrice is used when the node reports no estimate.
	MinGasUnitPrice uint64
	// Expiration is added to the ledger time of the build.
	Expiration time.Duration
	// ChainID overrides the ledger's chain id when non-zero.
	ChainID uint8
	// SimulateGas sizes MaxGasAmount from a node simulation when the
	// indexer supports it.
	SimulateGas bool
}

// DefaultConfig returns mainnet-style parameters.
func DefaultConfig() Config {
	return Config{
		MaxGasAmount:    200_000,
		MinGasUnitPrice: 100,
		Expiration:      60 * time.Second,
	}
}

// Validate checks the config for obvious mistakes.
func (c Config) Validate() error {
	if c.MaxGasAmount == 0 {
		return fmt.Errorf("aptos: max gas amount must be positive")
	}
	if c.MinGasUnitPrice == 0 {
		return fmt.Errorf("aptos: min gas unit price must be positive")
	}
	if c.Expiration < time.Second {
		return fmt.Errorf("aptos: expiration %s is too short", c.Expiration)
	}
	return nil
}

// Indexer is the node API the vault builds against. *indexer.Aptos
// implements it.
type Indexer interface {
	Account(ctx context.Context, address string) (indexer.AptosAccount, error)
	Ledger(ctx context.Context) (indexer.AptosLedger, error)
	GasPrice(ctx context.Context) (indexer.AptosGasEstimate, error)
	Submit(ctx context.Context, signed []byte) (string, error)
	TxStatus(ctx context.Context, hash string) (indexer.TxStatus, error)
}

// Simulator is implemented by indexers that can dry-run a transaction.
type Simulator interface {
	Simulate(ctx context.Context, tx *apt.Transaction, publicKey []byte) (uint64, error)
}

var (
	_ Indexer   = (*indexer.Aptos)(nil)
	_ Simulator = (*indexer.Aptos)(nil)
)
