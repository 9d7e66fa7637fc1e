// Package chains is the static registry of supported chains. Each entry
// knows how to build a vault and a core signer from the node clients and
// per-chain configuration; nothing is registered at runtime.
package chains

import (
	"fmt"
	"sort"

	"github.com/Klingon-tech/klingnet-vault/internal/chains/aptos"
	"github.com/Klingon-tech/klingnet-vault/internal/chains/evm"
	"github.com/Klingon-tech/klingnet-vault/internal/chains/kaspa"
	"github.com/Klingon-tech/klingnet-vault/internal/keyring"
	"github.com/Klingon-tech/klingnet-vault/internal/vault"
	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

// Params carries everything a chain entry may need. Clients for chains
// that are not used may be left nil.
type Params struct {
	Kaspa kaspa.Config
	Aptos aptos.Config
	EVM   evm.Config

	KaspaIndexer kaspa.Indexer
	AptosNode    aptos.Indexer
	EVMClient    evm.Client
}

// Entry describes one chain.
type Entry struct {
	Name         string
	Scheme       crypto.Scheme
	PathTemplate string

	newVault func(signer keyring.Signer, p Params) (vault.Vault, error)
	newCore  func(p Params) vault.CoreChain
}

var registry = map[string]Entry{
	kaspa.ChainName: {
		Name:         kaspa.ChainName,
		Scheme:       crypto.SchemeSchnorr,
		PathTemplate: kaspa.DefaultPathTemplate,
		newVault: func(signer keyring.Signer, p Params) (vault.Vault, error) {
			if p.KaspaIndexer == nil {
				return nil, fmt.Errorf("kaspa: no indexer configured")
			}
			return kaspa.New(p.Kaspa, signer, p.KaspaIndexer)
		},
		newCore: func(p Params) vault.CoreChain { return kaspa.NewCore(p.Kaspa.Network) },
	},
	aptos.ChainName: {
		Name:         aptos.ChainName,
		Scheme:       crypto.SchemeEd25519,
		PathTemplate: aptos.DefaultPathTemplate,
		newVault: func(signer keyring.Signer, p Params) (vault.Vault, error) {
			if p.AptosNode == nil {
				return nil, fmt.Errorf("aptos: no node configured")
			}
			return aptos.New(p.Aptos, signer, p.AptosNode)
		},
		newCore: func(Params) vault.CoreChain { return aptos.NewCore() },
	},
	evm.ChainName: {
		Name:         evm.ChainName,
		Scheme:       crypto.SchemeECDSA,
		PathTemplate: evm.DefaultPathTemplate,
		newVault: func(signer keyring.Signer, p Params) (vault.Vault, error) {
			if p.EVMClient == nil {
				return nil, fmt.Errorf("evm: no rpc client configured")
			}
			return evm.New(p.EVM, signer, p.EVMClient)
		},
		newCore: func(Params) vault.CoreChain { return evm.NewCore() },
	},
}

// Lookup returns the entry for chain.
func Lookup(chain string) (Entry, error) {
	e, ok := registry[chain]
	if !ok {
		return Entry{}, vaulterr.Newf(vaulterr.ErrNotSupported, "chain %q", chain)
	}
	return e, nil
}

// Names returns the registered chain names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NewVault builds the vault for the signer's account chain.
func NewVault(signer keyring.Signer, p Params) (vault.Vault, error) {
	if signer == nil {
		return nil, fmt.Errorf("chains: nil signer")
	}
	e, err := Lookup(signer.Account().Chain)
	if err != nil {
		return nil, err
	}
	return e.newVault(signer, p)
}

// Core returns the core signer for chain.
func Core(chain string, p Params) (vault.CoreChain, error) {
	e, err := Lookup(chain)
	if err != nil {
		return nil, err
	}
	return e.newCore(p), nil
}
