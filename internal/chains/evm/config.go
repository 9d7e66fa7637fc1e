// Package evm implements the vault and core signer for EVM chains on
// go-ethereum: EIP-1559 transactions, ERC-20 transfers and personal_sign
// messages.
package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ChainName identifies EVM accounts, metrics and logs.
const ChainName = "evm"

// NativeDecimals is the precision of the native coin (wei).
const NativeDecimals = 18

// Config holds per-network vault parameters.
type Config struct {
	// ChainID is asked from the node when zero.
	ChainID      uint64
	NativeSymbol string

	// BaseFeeMultiplier scales the latest base fee into the fee cap.
	BaseFeeMultiplier int64
	// NativeGasLimit is used for plain value transfers.
	NativeGasLimit uint64
	// TokenGasLimit is the fallback when estimation fails.
	TokenGasLimit uint64
	// GasBufferPercent is added on top of estimated contract gas.
	GasBufferPercent uint64
}

// DefaultConfig returns Ethereum mainnet-style parameters.
func DefaultConfig() Config {
	return Config{
		NativeSymbol:      "ETH",
		BaseFeeMultiplier: 2,
		NativeGasLimit:    21_000,
		TokenGasLimit:     100_000,
		GasBufferPercent:  20,
	}
}

// Validate checks the config for obvious mistakes.
func (c Config) Validate() error {
	if c.BaseFeeMultiplier < 1 {
		return fmt.Errorf("evm: base fee multiplier must be at least 1")
	}
	if c.NativeGasLimit < 21_000 {
		return fmt.Errorf("evm: native gas limit %d is below intrinsic gas", c.NativeGasLimit)
	}
	if c.TokenGasLimit < c.NativeGasLimit {
		return fmt.Errorf("evm: token gas limit %d is below native gas limit", c.TokenGasLimit)
	}
	return nil
}

// Client is the JSON-RPC surface the vault uses. *ethclient.Client
// implements it.
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, block *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

var _ Client = (*ethclient.Client)(nil)

// Dial connects to the JSON-RPC endpoint at url.
func Dial(ctx context.Context, url string) (*ethclient.Client, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("evm: dial %s: %w", url, err)
	}
	return c, nil
}
