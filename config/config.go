// Package config handles vault configuration.
//
// Values come from three layers, later layers winning:
//   - Network defaults
//   - The config file (key = value)
//   - Command-line flags
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies mainnet or testnet. It selects the default
// endpoints and the address prefixes of every chain.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds the vault's runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Logging
	Log LogConfig

	// Secret store encryption
	Keystore KeystoreConfig

	// Shared REST client tuning
	Indexer IndexerConfig

	// Chains
	Kaspa KaspaConfig
	Aptos AptosConfig
	EVM   EVMConfig
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// KeystoreConfig holds the Argon2id parameters for newly sealed secrets.
// Existing secrets keep the parameters they were sealed with.
type KeystoreConfig struct {
	Memory      uint32 `conf:"keystore.memory"` // KiB
	Iterations  uint32 `conf:"keystore.iterations"`
	Parallelism uint8  `conf:"keystore.parallelism"`
}

// IndexerConfig holds the rate limit and timeout shared by indexer clients.
type IndexerConfig struct {
	RPS     float64       `conf:"indexer.rps"`
	Burst   int           `conf:"indexer.burst"`
	Timeout time.Duration `conf:"indexer.timeout"`
}

// KaspaConfig holds Kaspa settings.
type KaspaConfig struct {
	IndexerURL         string        `conf:"kaspa.indexer"`
	FeeRate            uint64        `conf:"kaspa.feerate"` // sompi per gram
	Confirmations      uint64        `conf:"kaspa.confirmations"`
	MaxUTXOs           int           `conf:"kaspa.maxutxos"`
	CommitPollInterval time.Duration `conf:"kaspa.commit.poll"`
	CommitTimeout      time.Duration `conf:"kaspa.commit.timeout"`
	UTXOCacheTTL       time.Duration `conf:"kaspa.utxo.ttl"`
}

// AptosConfig holds Aptos settings.
type AptosConfig struct {
	NodeURL     string        `conf:"aptos.node"`
	MaxGas      uint64        `conf:"aptos.maxgas"`
	Expiration  time.Duration `conf:"aptos.expiration"`
	ChainID     uint8         `conf:"aptos.chainid"`
	SimulateGas bool          `conf:"aptos.simulate"`
}

// EVMConfig holds EVM settings.
type EVMConfig struct {
	RPCURL  string `conf:"evm.rpc"`
	ChainID uint64 `conf:"evm.chainid"`
	Symbol  string `conf:"evm.symbol"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingvault
//	macOS:   ~/Library/Application Support/Klingvault
//	Windows: %APPDATA%\Klingvault
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingvault"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Klingvault")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Klingvault")
		}
		return filepath.Join(home, "AppData", "Roaming", "Klingvault")
	default:
		return filepath.Join(home, ".klingvault")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// DBDir returns the badger directory holding the keystore and journal.
func (c *Config) DBDir() string {
	return filepath.Join(c.NetworkDataDir(), "db")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klingvault.conf")
}

// EnsureDataDirs creates the data directories and writes a default config
// file when none exists.
func EnsureDataDirs(cfg *Config) error {
	for _, dir := range []string{cfg.DataDir, cfg.NetworkDataDir(), cfg.DBDir(), cfg.LogsDir()} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	if _, err := os.Stat(cfg.ConfigFile()); os.IsNotExist(err) {
		return WriteDefaultConfig(cfg.ConfigFile(), cfg.Network)
	}
	return nil
}
