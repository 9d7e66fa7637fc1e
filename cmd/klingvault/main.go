// Command klingvault manages vault wallets and sends transactions on the
// supported chains.
//
// Usage:
//
//	klingvault wallet create --name main
//	klingvault wallet import-key --chain aptos
//	klingvault address --wallet main --chain kaspa --index 0,1,2
//	klingvault send --from <account> --to <address> --amount 1.5
//	klingvault backup --out vault.bak
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Klingon-tech/klingnet-vault/config"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp()
	err := newRootCmd(a).ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:     "klingvault",
		Short:   "Multi-chain wallet vault",
		Long:    "klingvault keeps encrypted wallets and builds, signs and broadcasts transactions on Kaspa, Aptos and EVM chains.",
		Version: version,

		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.open()
		},
	}
	a.flags = config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newWalletCmd(a),
		newAddressCmd(a),
		newKeyCmd(a),
		newSendCmd(a),
		newBackupCmd(a),
		newRestoreCmd(a),
	)
	return root
}
