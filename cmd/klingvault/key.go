package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Klingon-tech/klingnet-vault/internal/chains"
	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
	"github.com/Klingon-tech/klingnet-vault/pkg/keyformat"
)

func newKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Convert, export and sign with private keys",
	}
	cmd.AddCommand(
		newKeyNormalizeCmd(a),
		newKeyExportCmd(a),
		newKeySignMessageCmd(a),
	)
	return cmd
}

func newKeyNormalizeCmd(a *app) *cobra.Command {
	var to, alg string
	cmd := &cobra.Command{
		Use:   "normalize [key]",
		Short: "Convert a private key between legacy and AIP-80 form",
		Long: `Converts a key between legacy ("0x" + 64 hex) and AIP-80
("<algorithm>-priv-0x...") form. The key is read from the terminal when
not given as an argument.`,
		Args: cobra.MaximumNArgs(1),
		// Pure conversion, no config or database needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(_ *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				raw, err := a.readPassword("Private key: ")
				if err != nil {
					return fmt.Errorf("read key: %w", err)
				}
				key = strings.TrimSpace(string(raw))
				crypto.Zero(raw)
			}
			out, err := keyformat.Normalize(key, keyformat.Format(strings.ToLower(to)), keyformat.Algorithm(strings.ToLower(alg)))
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", string(keyformat.Legacy), "Target format (legacy or aip80)")
	cmd.Flags().StringVar(&alg, "alg", "", "Algorithm for AIP-80 output (ed25519 or secp256k1)")
	return cmd
}

func newKeyExportCmd(a *app) *cobra.Command {
	var from, chain, format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an account's private key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			acct, err := a.account(from, chain)
			if err != nil {
				return err
			}
			signer, err := a.signer(acct)
			if err != nil {
				return err
			}
			core, err := chains.Core(acct.Chain, a.cfg.ChainParams())
			if err != nil {
				return err
			}
			password, err := a.readPassword("Password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			defer crypto.Zero(password)

			key, err := core.ExportSecretKey(cmd.Context(), signer, password, keyformat.Format(strings.ToLower(format)))
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, key)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "account", "", "Account id or address")
	cmd.Flags().StringVar(&chain, "chain", "", "Chain to look the address up on")
	cmd.Flags().StringVar(&format, "format", "", "Output format (legacy or aip80, default per chain)")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func newKeySignMessageCmd(a *app) *cobra.Command {
	var from, chain, message string
	cmd := &cobra.Command{
		Use:   "sign-message",
		Short: "Sign an arbitrary message with an account key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			acct, err := a.account(from, chain)
			if err != nil {
				return err
			}
			signer, err := a.signer(acct)
			if err != nil {
				return err
			}
			core, err := chains.Core(acct.Chain, a.cfg.ChainParams())
			if err != nil {
				return err
			}
			password, err := a.readPassword("Password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			defer crypto.Zero(password)

			sig, err := core.SignMessage(cmd.Context(), signer, []byte(message), password)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, sig)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "account", "", "Account id or address")
	cmd.Flags().StringVar(&chain, "chain", "", "Chain to look the address up on")
	cmd.Flags().StringVar(&message, "message", "", "Message to sign")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}
