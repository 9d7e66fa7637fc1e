package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Flags holds command-line overrides shared by every command.
type Flags struct {
	// Core
	Network string
	Testnet bool
	DataDir string
	Config  string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Endpoints
	KaspaIndexer string
	AptosNode    string
	EVMRPC       string

	IndexerTimeout time.Duration

	fs *pflag.FlagSet
}

// BindFlags registers the shared flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}

	// Core
	fs.StringVar(&f.Network, "network", "", "Network type (mainnet or testnet)")
	fs.BoolVar(&f.Testnet, "testnet", false, "Shorthand for --network=testnet")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVarP(&f.Config, "config", "c", "", "Config file path (default: <datadir>/klingvault.conf)")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	// Endpoints
	fs.StringVar(&f.KaspaIndexer, "kaspa-indexer", "", "Kaspa REST indexer URL")
	fs.StringVar(&f.AptosNode, "aptos-node", "", "Aptos node REST URL")
	fs.StringVar(&f.EVMRPC, "evm-rpc", "", "EVM JSON-RPC URL")
	fs.DurationVar(&f.IndexerTimeout, "indexer-timeout", 0, "Per-request indexer timeout")

	return f
}

func (f *Flags) changed(name string) bool {
	return f.fs != nil && f.fs.Changed(name)
}

// network returns the network selected on the command line, if any.
func (f *Flags) network() NetworkType {
	if f.Testnet {
		return Testnet
	}
	return NetworkType(strings.ToLower(f.Network))
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if n := f.network(); n != "" {
		cfg.Network = n
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.changed("log-json") {
		cfg.Log.JSON = f.LogJSON
	}

	// Endpoints
	if f.KaspaIndexer != "" {
		cfg.Kaspa.IndexerURL = f.KaspaIndexer
	}
	if f.AptosNode != "" {
		cfg.Aptos.NodeURL = f.AptosNode
	}
	if f.EVMRPC != "" {
		cfg.EVM.RPCURL = f.EVMRPC
	}
	if f.IndexerTimeout > 0 {
		cfg.Indexer.Timeout = f.IndexerTimeout
	}
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load(flags *Flags) (*Config, error) {
	network := flags.network()
	if network == "" {
		network = Mainnet
	}
	cfg := Default(network)

	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	// The file may pick the network; its endpoints then come from that
	// network's defaults unless the file sets them too.
	if n, ok := fileValues["network"]; ok && flags.network() == "" && NetworkType(strings.ToLower(n)) != cfg.Network {
		dataDir := cfg.DataDir
		cfg = Default(NetworkType(strings.ToLower(n)))
		cfg.DataDir = dataDir
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, fmt.Errorf("applying config file: %w", err)
	}

	// Flags have the highest precedence.
	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
