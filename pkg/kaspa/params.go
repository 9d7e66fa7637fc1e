// Package kaspa implements the Kaspa transaction model: addresses, scripts,
// the binary wire codec, mass accounting and signature hashing.
package kaspa

import "strings"

// Chain constants.
const (
	Decimals      = 8
	SompiPerKaspa = 100_000_000

	// DustAmount is the smallest output the wallet will create.
	DustAmount uint64 = 546
	// ConfirmationCount is the DAA score distance before a UTXO is spendable.
	ConfirmationCount uint64 = 10
	// DefaultFeeRate is in sompi per gram of mass.
	DefaultFeeRate uint64 = 1

	MaxOrphanTxMass uint64 = 100_000
	MaxBlockSize    uint64 = 1_000_000
	MaxUTXOsPerTx          = 500

	MassPerTxByte           uint64 = 1
	MassPerScriptPubKeyByte uint64 = 10
	MassPerSigOp            uint64 = 1000

	TxVersion     uint16 = 0
	ScriptVersion uint16 = 0

	// KRC20CommitAmount is the value locked at the commit P2SH address.
	KRC20CommitAmount uint64 = 30_000_000
)

// SubnetworkIDSize is the length of a subnetwork id.
const SubnetworkIDSize = 20

// SubnetworkID identifies the subnetwork a transaction belongs to.
type SubnetworkID [SubnetworkIDSize]byte

// SubnetworkIDNative is the subnetwork of ordinary transfers.
var SubnetworkIDNative = SubnetworkID{}

// Network holds per-network address parameters.
type Network struct {
	Name   string
	Prefix string
}

var (
	Mainnet = Network{Name: "mainnet", Prefix: "kaspa"}
	Testnet = Network{Name: "testnet", Prefix: "kaspatest"}
	Devnet  = Network{Name: "devnet", Prefix: "kaspadev"}
	Simnet  = Network{Name: "simnet", Prefix: "kaspasim"}
)

var networks = [...]Network{Mainnet, Testnet, Devnet, Simnet}

// NetworkByName looks up a network by name or address prefix.
func NetworkByName(name string) (Network, bool) {
	name = strings.ToLower(name)
	for _, n := range networks {
		if n.Name == name || n.Prefix == name {
			return n, true
		}
	}
	return Network{}, false
}
