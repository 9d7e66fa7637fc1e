package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	var err error
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(strings.ToLower(value))
	case "datadir":
		cfg.DataDir = value

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	// Keystore
	case "keystore.memory":
		cfg.Keystore.Memory, err = parseUint32(value)
	case "keystore.iterations":
		cfg.Keystore.Iterations, err = parseUint32(value)
	case "keystore.parallelism":
		var n uint64
		n, err = strconv.ParseUint(value, 10, 8)
		cfg.Keystore.Parallelism = uint8(n)

	// Indexer
	case "indexer.rps":
		cfg.Indexer.RPS, err = strconv.ParseFloat(value, 64)
	case "indexer.burst":
		cfg.Indexer.Burst, err = strconv.Atoi(value)
	case "indexer.timeout":
		cfg.Indexer.Timeout, err = time.ParseDuration(value)

	// Kaspa
	case "kaspa.indexer":
		cfg.Kaspa.IndexerURL = value
	case "kaspa.feerate":
		cfg.Kaspa.FeeRate, err = strconv.ParseUint(value, 10, 64)
	case "kaspa.confirmations":
		cfg.Kaspa.Confirmations, err = strconv.ParseUint(value, 10, 64)
	case "kaspa.maxutxos":
		cfg.Kaspa.MaxUTXOs, err = strconv.Atoi(value)
	case "kaspa.commit.poll":
		cfg.Kaspa.CommitPollInterval, err = time.ParseDuration(value)
	case "kaspa.commit.timeout":
		cfg.Kaspa.CommitTimeout, err = time.ParseDuration(value)
	case "kaspa.utxo.ttl":
		cfg.Kaspa.UTXOCacheTTL, err = time.ParseDuration(value)

	// Aptos
	case "aptos.node":
		cfg.Aptos.NodeURL = value
	case "aptos.maxgas":
		cfg.Aptos.MaxGas, err = strconv.ParseUint(value, 10, 64)
	case "aptos.expiration":
		cfg.Aptos.Expiration, err = time.ParseDuration(value)
	case "aptos.chainid":
		var n uint64
		n, err = strconv.ParseUint(value, 10, 8)
		cfg.Aptos.ChainID = uint8(n)
	case "aptos.simulate":
		cfg.Aptos.SimulateGas = parseBool(value)

	// EVM
	case "evm.rpc":
		cfg.EVM.RPCURL = value
	case "evm.chainid":
		cfg.EVM.ChainID, err = strconv.ParseUint(value, 10, 64)
	case "evm.symbol":
		cfg.EVM.Symbol = value

	default:
		// Unknown keys are ignored
	}
	return err
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseUint32(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	return uint32(n), err
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	def := Default(network)
	content := `# Klingvault Configuration
#
# Flags given on the command line override values in this file.

# Network: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.klingvault)
# datadir = ~/.klingvault

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false

# ============================================================================
# Keystore (Argon2id parameters for newly sealed secrets)
# ============================================================================

# keystore.memory = ` + strconv.FormatUint(uint64(def.Keystore.Memory), 10) + `
# keystore.iterations = ` + strconv.FormatUint(uint64(def.Keystore.Iterations), 10) + `
# keystore.parallelism = ` + strconv.FormatUint(uint64(def.Keystore.Parallelism), 10) + `

# ============================================================================
# Indexer clients
# ============================================================================

# indexer.rps = ` + strconv.FormatFloat(def.Indexer.RPS, 'f', -1, 64) + `
# indexer.burst = ` + strconv.Itoa(def.Indexer.Burst) + `
# indexer.timeout = ` + def.Indexer.Timeout.String() + `

# ============================================================================
# Kaspa
# ============================================================================

kaspa.indexer = ` + def.Kaspa.IndexerURL + `
# Fee rate in sompi per gram of mass
# kaspa.feerate = ` + strconv.FormatUint(def.Kaspa.FeeRate, 10) + `
# kaspa.confirmations = ` + strconv.FormatUint(def.Kaspa.Confirmations, 10) + `
# kaspa.maxutxos = ` + strconv.Itoa(def.Kaspa.MaxUTXOs) + `
# kaspa.commit.poll = ` + def.Kaspa.CommitPollInterval.String() + `
# kaspa.commit.timeout = ` + def.Kaspa.CommitTimeout.String() + `
# kaspa.utxo.ttl = ` + def.Kaspa.UTXOCacheTTL.String() + `

# ============================================================================
# Aptos
# ============================================================================

aptos.node = ` + def.Aptos.NodeURL + `
# aptos.maxgas = ` + strconv.FormatUint(def.Aptos.MaxGas, 10) + `
# aptos.expiration = ` + def.Aptos.Expiration.String() + `
# aptos.chainid = ` + strconv.Itoa(int(def.Aptos.ChainID)) + `
# aptos.simulate = false

# ============================================================================
# EVM
# ============================================================================

evm.rpc = ` + def.EVM.RPCURL + `
# evm.chainid = ` + strconv.FormatUint(def.EVM.ChainID, 10) + `
# evm.symbol = ` + def.EVM.Symbol + `
`
	return os.WriteFile(path, []byte(content), 0600)
}
