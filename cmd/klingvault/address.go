package main

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Klingon-tech/klingnet-vault/internal/chains"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
)

func newAddressCmd(a *app) *cobra.Command {
	var (
		walletName string
		chain      string
		indexes    []uint
		save       bool
	)
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Derive addresses from an HD wallet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := chains.Lookup(chain); err != nil {
				return err
			}
			idx := make([]uint32, 0, len(indexes))
			for _, i := range indexes {
				if i >= math.MaxInt32 {
					return fmt.Errorf("index %d out of range", i)
				}
				idx = append(idx, uint32(i))
			}

			password, err := a.readPassword("Password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			defer crypto.Zero(password)

			var accts []wallet.Account
			err = a.ks.WithSeed(walletName, password, func(seed []byte) error {
				var err error
				accts, err = a.deriveAccounts(cmd.Context(), walletName, seed, []string{chain}, idx)
				return err
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tADDRESS")
			for _, acct := range accts {
				fmt.Fprintf(w, "%s\t%s\n", acct.Path, acct.Address)
			}
			w.Flush()

			if !save {
				return nil
			}
			for _, acct := range accts {
				if err := a.ks.AddAccount(acct); err != nil {
					return fmt.Errorf("add account: %w", err)
				}
			}
			fmt.Fprintf(a.out, "Saved %d account(s).\n", len(accts))
			return nil
		},
	}
	cmd.Flags().StringVar(&walletName, "wallet", "", "HD wallet name")
	cmd.Flags().StringVar(&chain, "chain", "", "Chain to derive for")
	cmd.Flags().UintSliceVar(&indexes, "index", []uint{0}, "Address indexes (comma-separated)")
	cmd.Flags().BoolVar(&save, "save", false, "Store the derived accounts")
	_ = cmd.MarkFlagRequired("wallet")
	_ = cmd.MarkFlagRequired("chain")
	return cmd
}
