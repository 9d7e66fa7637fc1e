package config

import (
	"time"

	"github.com/Klingon-tech/klingnet-vault/internal/indexer"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	kas "github.com/Klingon-tech/klingnet-vault/pkg/kaspa"
)

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	params := wallet.DefaultParams()
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
		Keystore: KeystoreConfig{
			Memory:      params.Memory,
			Iterations:  params.Iterations,
			Parallelism: params.Parallelism,
		},
		Indexer: IndexerConfig{
			RPS:     indexer.DefaultRPS,
			Burst:   indexer.DefaultBurst,
			Timeout: indexer.DefaultTimeout,
		},
		Kaspa: KaspaConfig{
			IndexerURL:         "https://api.kaspa.org",
			FeeRate:            kas.DefaultFeeRate,
			Confirmations:      kas.ConfirmationCount,
			MaxUTXOs:           kas.MaxUTXOsPerTx,
			CommitPollInterval: 500 * time.Millisecond,
			CommitTimeout:      2 * time.Minute,
			UTXOCacheTTL:       30 * time.Second,
		},
		Aptos: AptosConfig{
			NodeURL:    "https://api.mainnet.aptoslabs.com/v1",
			MaxGas:     200_000,
			Expiration: 60 * time.Second,
			ChainID:    1,
		},
		EVM: EVMConfig{
			RPCURL:  "https://ethereum-rpc.publicnode.com",
			ChainID: 1,
			Symbol:  "ETH",
		},
	}
}

// DefaultTestnet returns the default configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.Kaspa.IndexerURL = "https://api-tn10.kaspa.org"
	cfg.Aptos.NodeURL = "https://api.testnet.aptoslabs.com/v1"
	cfg.Aptos.ChainID = 2
	cfg.EVM.RPCURL = "https://ethereum-sepolia-rpc.publicnode.com"
	cfg.EVM.ChainID = 11155111
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
