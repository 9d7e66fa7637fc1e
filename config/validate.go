package config

import (
	"fmt"
	"net/url"
	"time"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir is required")
	}

	// Keystore: argon2 rejects zero parallelism and memory below 8 KiB per lane.
	if cfg.Keystore.Iterations == 0 {
		return fmt.Errorf("keystore.iterations must be positive")
	}
	if cfg.Keystore.Parallelism == 0 {
		return fmt.Errorf("keystore.parallelism must be positive")
	}
	if cfg.Keystore.Memory < 8*uint32(cfg.Keystore.Parallelism) {
		return fmt.Errorf("keystore.memory must be at least %d KiB", 8*uint32(cfg.Keystore.Parallelism))
	}

	if cfg.Indexer.RPS <= 0 {
		return fmt.Errorf("indexer.rps must be positive")
	}
	if cfg.Indexer.Burst < 1 {
		return fmt.Errorf("indexer.burst must be at least 1")
	}
	if cfg.Indexer.Timeout < time.Second {
		return fmt.Errorf("indexer.timeout must be at least 1s")
	}

	// Kaspa
	if err := validateURL("kaspa.indexer", cfg.Kaspa.IndexerURL); err != nil {
		return err
	}
	if cfg.Kaspa.FeeRate == 0 {
		return fmt.Errorf("kaspa.feerate must be positive")
	}
	if cfg.Kaspa.MaxUTXOs <= 0 {
		return fmt.Errorf("kaspa.maxutxos must be positive")
	}
	if cfg.Kaspa.CommitPollInterval <= 0 {
		return fmt.Errorf("kaspa.commit.poll must be positive")
	}
	if cfg.Kaspa.CommitTimeout < cfg.Kaspa.CommitPollInterval {
		return fmt.Errorf("kaspa.commit.timeout must not be shorter than kaspa.commit.poll")
	}
	if cfg.Kaspa.UTXOCacheTTL <= 0 {
		return fmt.Errorf("kaspa.utxo.ttl must be positive")
	}

	// Aptos
	if err := validateURL("aptos.node", cfg.Aptos.NodeURL); err != nil {
		return err
	}
	if cfg.Aptos.MaxGas == 0 {
		return fmt.Errorf("aptos.maxgas must be positive")
	}
	if cfg.Aptos.Expiration < time.Second {
		return fmt.Errorf("aptos.expiration must be at least 1s")
	}

	// EVM
	if err := validateURL("evm.rpc", cfg.EVM.RPCURL); err != nil {
		return err
	}
	if cfg.EVM.Symbol == "" {
		return fmt.Errorf("evm.symbol is required")
	}

	return nil
}

func validateURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("%s: unsupported scheme %q", key, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: missing host", key)
	}
	return nil
}
