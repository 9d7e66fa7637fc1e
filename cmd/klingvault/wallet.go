package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Klingon-tech/klingnet-vault/internal/chains"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
	"github.com/Klingon-tech/klingnet-vault/pkg/keyformat"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

func newWalletCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage HD wallets and imported keys",
	}
	cmd.AddCommand(
		newWalletCreateCmd(a),
		newWalletImportKeyCmd(a),
		newWalletListCmd(a),
	)
	return cmd
}

func newWalletCreateCmd(a *app) *cobra.Command {
	var (
		name       string
		restore    bool
		words      int
		chainNames []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an HD wallet and its first account on each chain",
		Long: `Generates a BIP-39 mnemonic (or reads one with --restore), seals the
seed under a password and derives account 0 on every selected chain.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var mnemonic string
			if restore {
				m, err := a.readPassword("Mnemonic: ")
				if err != nil {
					return fmt.Errorf("read mnemonic: %w", err)
				}
				mnemonic = wallet.NormalizeMnemonic(string(m))
				crypto.Zero(m)
				if !wallet.ValidateMnemonic(mnemonic) {
					return wallet.ErrInvalidMnemonic
				}
			} else {
				m, err := wallet.GenerateMnemonic(words)
				if err != nil {
					return fmt.Errorf("generate mnemonic: %w", err)
				}
				mnemonic = m
				fmt.Fprintln(a.out, "Mnemonic (write this down!):")
				fmt.Fprintf(a.out, "  %s\n\n", mnemonic)
			}

			password, err := a.newPassword()
			if err != nil {
				return err
			}
			defer crypto.Zero(password)

			seed, err := wallet.SeedFromMnemonic(mnemonic, "")
			if err != nil {
				return fmt.Errorf("derive seed: %w", err)
			}
			defer crypto.Zero(seed)

			accts, err := a.deriveAccounts(cmd.Context(), name, seed, chainNames, []uint32{0})
			if err != nil {
				return err
			}
			if err := a.ks.CreateWallet(name, seed, password); err != nil {
				return fmt.Errorf("create wallet: %w", err)
			}
			for _, acct := range accts {
				if err := a.ks.AddAccount(acct); err != nil {
					return fmt.Errorf("add account: %w", err)
				}
			}

			fmt.Fprintf(a.out, "Wallet created: %s\n", name)
			printAccounts(a, accts)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Wallet name")
	cmd.Flags().BoolVar(&restore, "restore", false, "Restore from an existing mnemonic")
	cmd.Flags().IntVar(&words, "words", wallet.DefaultMnemonicWords, "Length of a generated mnemonic")
	cmd.Flags().StringSliceVar(&chainNames, "chains", chains.Names(), "Chains to derive account 0 on")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newWalletImportKeyCmd(a *app) *cobra.Command {
	var chain, label string
	cmd := &cobra.Command{
		Use:   "import-key",
		Short: "Import a private key as a standalone account",
		Long: `Reads a private key in legacy ("0x" + 64 hex) or AIP-80 form and stores
it encrypted under a password.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entry, err := chains.Lookup(chain)
			if err != nil {
				return err
			}
			raw, err := a.readPassword("Private key: ")
			if err != nil {
				return fmt.Errorf("read key: %w", err)
			}
			key := strings.TrimSpace(string(raw))
			crypto.Zero(raw)
			if alg, ok := keyformat.DetectAlgorithm(key); ok && string(alg) != entry.Scheme.Curve() {
				return vaulterr.Newf(vaulterr.ErrInvalidKeyFormat, "%s key cannot be used on %s", alg, chain)
			}
			secret, err := keyformat.Decode(key)
			if err != nil {
				return err
			}
			defer crypto.Zero(secret)

			core, err := chains.Core(chain, a.cfg.ChainParams())
			if err != nil {
				return err
			}
			addr, err := core.AddressFromPrivateKey(secret)
			if err != nil {
				return err
			}
			pub, err := crypto.PublicKeyFor(entry.Scheme, secret)
			if err != nil {
				return vaulterr.Wrap(vaulterr.ErrInvalidKeyFormat, err)
			}

			password, err := a.newPassword()
			if err != nil {
				return err
			}
			defer crypto.Zero(password)

			acct := wallet.Account{
				ID:         wallet.AccountID(wallet.ProvenanceImported, chain, addr),
				Name:       label,
				Chain:      chain,
				Address:    addr,
				PublicKey:  pub,
				Provenance: wallet.ProvenanceImported,
			}
			if err := a.ks.ImportKey(acct, secret, password); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Key imported: %s\n", acct.ID)
			fmt.Fprintf(a.out, "Address: %s\n", addr)
			return nil
		},
	}
	cmd.Flags().StringVar(&chain, "chain", "", "Chain the key belongs to ("+strings.Join(chains.Names(), ", ")+")")
	cmd.Flags().StringVar(&label, "label", "", "Optional account label")
	_ = cmd.MarkFlagRequired("chain")
	return cmd
}

func newWalletListCmd(a *app) *cobra.Command {
	var chain string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List wallets and accounts",
		RunE: func(*cobra.Command, []string) error {
			names, err := a.ks.Wallets()
			if err != nil {
				return err
			}
			accts, err := a.ks.Accounts(chain)
			if err != nil {
				return err
			}
			if len(names) == 0 && len(accts) == 0 {
				fmt.Fprintln(a.out, "No wallets found.")
				return nil
			}
			if len(names) > 0 {
				fmt.Fprintf(a.out, "Wallets: %s\n\n", strings.Join(names, ", "))
			}
			printAccounts(a, accts)
			return nil
		},
	}
	cmd.Flags().StringVar(&chain, "chain", "", "Only list accounts on this chain")
	return cmd
}

func printAccounts(a *app, accts []wallet.Account) {
	sort.Slice(accts, func(i, j int) bool { return accts[i].ID < accts[j].ID })
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHAIN\tADDRESS\tPROVENANCE\tID")
	for _, acct := range accts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", acct.Chain, acct.Address, acct.Provenance, acct.ID)
	}
	w.Flush()
}
