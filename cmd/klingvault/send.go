package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Klingon-tech/klingnet-vault/internal/chains"
	"github.com/Klingon-tech/klingnet-vault/internal/vault"
	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
)

type sendFlags struct {
	from    string
	chain   string
	to      string
	amount  string
	feeRate string

	token         string
	tokenSymbol   string
	tokenDecimals int32

	gasPrice string
	gasLimit string

	dryRun      bool
	signOnly    bool
	wait        bool
	waitTimeout time.Duration
}

func newSendCmd(a *app) *cobra.Command {
	var f sendFlags
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Build, sign and broadcast a transfer",
		Long: `Sends one transfer from a stored account. With --token the transfer
moves a token: a KRC20 ticker on Kaspa, a coin type on Aptos or an ERC-20
contract on EVM. KRC20 transfers commit first and reveal once the commit
confirms.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			acct, err := a.account(f.from, f.chain)
			if err != nil {
				return err
			}
			signer, err := a.signer(acct)
			if err != nil {
				return err
			}
			params, err := a.connect(ctx, acct.Chain)
			if err != nil {
				return err
			}
			v, err := chains.NewVault(signer, params)
			if err != nil {
				return err
			}
			if err := v.ValidateAddress(f.to); err != nil {
				return err
			}

			transfer := vault.TransferInfo{
				From:    acct.Address,
				To:      f.to,
				Amount:  f.amount,
				FeeRate: f.feeRate,
			}
			if f.token != "" {
				transfer.Token = &vault.TokenInfo{
					Address:  f.token,
					Symbol:   f.tokenSymbol,
					Decimals: f.tokenDecimals,
				}
			}
			var fee *vault.FeeInfo
			if f.gasPrice != "" {
				fee = &vault.FeeInfo{GasPrice: f.gasPrice, GasLimit: f.gasLimit}
			}

			engine := a.engine(v, f.waitTimeout)
			if f.dryRun {
				_, decoded, err := engine.Prepare(ctx, transfer, fee)
				if err != nil {
					return err
				}
				return printJSON(a, decoded)
			}

			password, err := a.readPassword("Password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			defer crypto.Zero(password)

			res, err := engine.Send(ctx, transfer, vault.SendOptions{
				Password:    password,
				Fee:         fee,
				SignOnly:    f.signOnly,
				WaitConfirm: f.wait,
			})
			if res != nil && res.Unsigned != nil {
				if perr := printJSON(a, res.Decoded); perr != nil {
					return perr
				}
			}
			if err != nil {
				return err
			}
			printResult(a, res)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.from, "from", "", "Sending account id or address")
	fs.StringVar(&f.chain, "chain", "", "Chain to look the sending address up on")
	fs.StringVar(&f.to, "to", "", "Destination address")
	fs.StringVar(&f.amount, "amount", "", "Amount in display units")
	fs.StringVar(&f.feeRate, "fee-rate", "", "Fee rate override in the chain's fee units")
	fs.StringVar(&f.token, "token", "", "Token contract, coin type or ticker")
	fs.StringVar(&f.tokenSymbol, "token-symbol", "", "Token symbol for display")
	fs.Int32Var(&f.tokenDecimals, "token-decimals", 0, "Token decimals")
	fs.StringVar(&f.gasPrice, "gas-price", "", "Replace the built fee with this gas price")
	fs.StringVar(&f.gasLimit, "gas-limit", "", "Gas limit to use with --gas-price")
	fs.BoolVar(&f.dryRun, "dry-run", false, "Build and decode only")
	fs.BoolVar(&f.signOnly, "sign-only", false, "Sign without broadcasting and print the raw transaction")
	fs.BoolVar(&f.wait, "wait", false, "Wait for the final transaction to confirm")
	fs.DurationVar(&f.waitTimeout, "wait-timeout", vault.DefaultConfirmTimeout, "How long --wait polls")
	for _, name := range []string{"from", "to", "amount"} {
		_ = cmd.MarkFlagRequired(name)
	}
	cmd.MarkFlagsMutuallyExclusive("dry-run", "sign-only")
	return cmd
}

func printJSON(a *app, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(data))
	return nil
}

func printResult(a *app, res *vault.SendResult) {
	fmt.Fprintf(a.out, "Stage: %s\n", res.Stage)
	if res.Signed == nil {
		return
	}
	if res.Signed.TxID != "" {
		fmt.Fprintf(a.out, "TxID: %s\n", res.Signed.TxID)
	}
	if res.Stage == vault.StageSigned {
		fmt.Fprintf(a.out, "Raw: %s\n", res.Signed.RawHex())
	}
	if res.Reveal != nil {
		fmt.Fprintf(a.out, "Reveal TxID: %s\n", res.Reveal.TxID)
	}
}
