// derive_key.go prints the public key and address of a private key file on
// every chain whose curve accepts it.
// Usage: go run scripts/derive_key.go [-network testnet] <keyfile>
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/klingnet-vault/config"
	"github.com/Klingon-tech/klingnet-vault/internal/chains"
	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
	"github.com/Klingon-tech/klingnet-vault/pkg/keyformat"
)

func main() {
	network := flag.String("network", "mainnet", "mainnet or testnet")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: derive_key [-network testnet] <keyfile>")
		os.Exit(1)
	}
	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	key := strings.TrimSpace(string(data))
	secret, err := keyformat.Decode(key)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer crypto.Zero(secret)

	alg, prefixed := keyformat.DetectAlgorithm(key)
	params := config.Default(config.NetworkType(*network)).ChainParams()
	for _, name := range chains.Names() {
		entry, _ := chains.Lookup(name)
		if prefixed && string(alg) != entry.Scheme.Curve() {
			continue
		}
		core, err := chains.Core(name, params)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		pub, err := crypto.PublicKeyFor(entry.Scheme, secret)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			continue
		}
		addr, err := core.AddressFromPrivateKey(secret)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			continue
		}
		fmt.Printf("%s\n  pubkey:  %s\n  address: %s\n", name, hex.EncodeToString(pub), addr)
	}
}
