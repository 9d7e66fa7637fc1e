package config

import (
	"github.com/Klingon-tech/klingnet-vault/internal/chains"
	"github.com/Klingon-tech/klingnet-vault/internal/chains/aptos"
	"github.com/Klingon-tech/klingnet-vault/internal/chains/evm"
	"github.com/Klingon-tech/klingnet-vault/internal/chains/kaspa"
	"github.com/Klingon-tech/klingnet-vault/internal/indexer"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	kas "github.com/Klingon-tech/klingnet-vault/pkg/kaspa"
)

// KaspaNetwork returns the Kaspa address network for the configured network.
func (c *Config) KaspaNetwork() kas.Network {
	if c.Network == Testnet {
		return kas.Testnet
	}
	return kas.Mainnet
}

// EncryptionParams returns the keystore Argon2id parameters.
func (c *Config) EncryptionParams() wallet.EncryptionParams {
	return wallet.EncryptionParams{
		Memory:      c.Keystore.Memory,
		Iterations:  c.Keystore.Iterations,
		Parallelism: c.Keystore.Parallelism,
	}
}

// IndexerOptions returns the shared REST client options.
func (c *Config) IndexerOptions() indexer.Options {
	return indexer.Options{
		Timeout: c.Indexer.Timeout,
		RPS:     c.Indexer.RPS,
		Burst:   c.Indexer.Burst,
	}
}

// ChainParams returns the per-chain vault configuration. Node clients are
// left for the caller to attach.
func (c *Config) ChainParams() chains.Params {
	k := kaspa.DefaultConfig(c.KaspaNetwork())
	k.FeeRate = c.Kaspa.FeeRate
	k.ConfirmationCount = c.Kaspa.Confirmations
	k.MaxUTXOs = c.Kaspa.MaxUTXOs
	k.CommitPollInterval = c.Kaspa.CommitPollInterval
	k.CommitTimeout = c.Kaspa.CommitTimeout
	k.UTXOCacheTTL = c.Kaspa.UTXOCacheTTL

	a := aptos.DefaultConfig()
	a.MaxGasAmount = c.Aptos.MaxGas
	a.Expiration = c.Aptos.Expiration
	a.ChainID = c.Aptos.ChainID
	a.SimulateGas = c.Aptos.SimulateGas

	e := evm.DefaultConfig()
	e.ChainID = c.EVM.ChainID
	e.NativeSymbol = c.EVM.Symbol

	return chains.Params{Kaspa: k, Aptos: a, EVM: e}
}
