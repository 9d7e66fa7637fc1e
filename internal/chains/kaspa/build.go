package kaspa

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Klingon-tech/klingnet-vault/internal/metrics"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	"github.com/Klingon-tech/klingnet-vault/pkg/amount"
	kas "github.com/Klingon-tech/klingnet-vault/pkg/kaspa"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

// payment is one output the builder must fund.
type payment struct {
	to     kas.Address
	amount uint64
	rate   uint64
}

// confirmedUTXOs fetches the account's spendable outputs through the memo.
// Only outputs at least ConfirmationCount DAA scores deep are returned.
func (v *Vault) confirmedUTXOs(ctx context.Context) ([]wallet.UTXO, error) {
	return v.utxos.Get(ctx, v.acct.Address, func(ctx context.Context) ([]wallet.UTXO, error) {
		info, err := v.idx.NetworkInfo(ctx)
		if err != nil {
			return nil, err
		}
		entries, err := v.idx.UTXOs(ctx, v.acct.Address)
		if err != nil {
			return nil, err
		}
		out := make([]wallet.UTXO, 0, len(entries))
		for _, e := range entries {
			if e.Entry.ScriptPublicKey.Version != kas.ScriptVersion {
				continue
			}
			if e.Entry.BlockDAAScore > info.VirtualDAAScore ||
				info.VirtualDAAScore-e.Entry.BlockDAAScore < v.cfg.ConfirmationCount {
				continue
			}
			out = append(out, wallet.UTXO{
				Outpoint: e.Outpoint,
				Value:    e.Entry.Amount,
				Score:    e.Entry.BlockDAAScore,
				Script:   e.Entry.ScriptPublicKey.Script,
			})
		}
		v.logger.Debug().
			Int("fetched", len(entries)).
			Int("confirmed", len(out)).
			Uint64("virtual_daa", info.VirtualDAAScore).
			Msg("UTXOs loaded")
		return out, nil
	})
}

// buildWithLimits builds p and, when the result breaks the mass, size or
// input ceilings, rebuilds once preferring the largest outputs.
func (v *Vault) buildWithLimits(utxos []wallet.UTXO, p payment) (*EncodedTx, error) {
	enc, err := v.buildPayment(utxos, p, wallet.PriorityOldest)
	if err != nil {
		return nil, err
	}
	if v.withinLimits(enc) {
		return enc, nil
	}

	metrics.SizeRetries.WithLabelValues(ChainName).Inc()
	v.logger.Debug().
		Int("inputs", len(enc.Tx.Inputs)).
		Uint64("mass", enc.Mass).
		Msg("Transaction over limits, reselecting largest first")

	enc, err = v.buildPayment(utxos, p, wallet.PriorityLargest)
	if err != nil {
		return nil, err
	}
	if n := len(enc.Tx.Inputs); n > v.cfg.MaxUTXOs {
		ceiling := wallet.MaxSpendable(utxos, v.cfg.MaxUTXOs)
		return nil, vaulterr.ErrUTXOLimitExceeded.
			With("inputs", n).
			With("limit", v.cfg.MaxUTXOs).
			With("maxSpendable", amount.FromUint64(ceiling, kas.Decimals)).
			With("symbol", "KAS")
	}
	if !v.withinLimits(enc) {
		return nil, vaulterr.ErrTransactionTooLarge.
			With("mass", enc.Mass).
			With("size", enc.Size())
	}
	return enc, nil
}

func (v *Vault) withinLimits(enc *EncodedTx) bool {
	return len(enc.Tx.Inputs) <= v.cfg.MaxUTXOs &&
		enc.Mass <= kas.MaxOrphanTxMass &&
		enc.Size() <= kas.MaxBlockSize
}

// buildPayment selects inputs for p and assembles the transaction. Change
// below dust is left to the fee; a max send pays the fee from the
// destination output.
func (v *Vault) buildPayment(utxos []wallet.UTXO, p payment, priority wallet.Priority) (*EncodedTx, error) {
	if p.amount < kas.DustAmount {
		return nil, vaulterr.ErrAmountTooSmall.
			With("amount", amount.FromUint64(p.amount, kas.Decimals)).
			With("min", amount.FromUint64(kas.DustAmount, kas.Decimals))
	}
	dest, err := kas.PayToAddrScript(p.to)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.ErrInvalidDestination, err)
	}

	sel, err := wallet.SelectCoins(utxos, wallet.SelectRequest{
		Target:   p.amount,
		Priority: priority,
		Dust:     kas.DustAmount,
		FeeRate:  p.rate,
		Weigh: func(inputs []wallet.UTXO) uint64 {
			draft := v.draft(inputs, []*kas.Output{
				{Value: p.amount, ScriptPublicKey: dest},
				{Value: 0, ScriptPublicKey: v.ownScript},
			})
			return kas.Mass(draft, kas.SchnorrSignatureScriptSize)
		},
	})
	if err != nil {
		return nil, err
	}

	outputs := []*kas.Output{{Value: p.amount, ScriptPublicKey: dest}}
	if sel.MaxSend {
		if sel.Total <= sel.Fee || sel.Total-sel.Fee < kas.DustAmount {
			return nil, vaulterr.ErrAmountTooSmall.
				With("amount", amount.FromUint64(sel.Total, kas.Decimals)).
				With("fee", amount.FromUint64(sel.Fee, kas.Decimals))
		}
		outputs[0].Value = sel.Total - sel.Fee
	} else if change := sel.Change(p.amount); change >= kas.DustAmount {
		outputs = append(outputs, &kas.Output{Value: change, ScriptPublicKey: v.ownScript})
	}

	tx := v.draft(sel.Inputs, outputs)
	if tx.TotalOut() > tx.TotalIn() {
		return nil, fmt.Errorf("kaspa build: outputs %d exceed inputs %d", tx.TotalOut(), tx.TotalIn())
	}
	enc := &EncodedTx{
		Tx:         tx,
		Fee:        tx.TotalIn() - tx.TotalOut(),
		FeeRate:    p.rate,
		Mass:       kas.Mass(tx, kas.SchnorrSignatureScriptSize),
		HasMaxSend: sel.MaxSend,
	}
	metrics.SelectedInputs.WithLabelValues(ChainName).Observe(float64(len(sel.Inputs)))
	return enc, nil
}

// draft assembles an unsigned transaction spending inputs.
func (v *Vault) draft(inputs []wallet.UTXO, outputs []*kas.Output) *kas.Transaction {
	tx := &kas.Transaction{
		Version:      kas.TxVersion,
		Inputs:       make([]*kas.Input, len(inputs)),
		Outputs:      outputs,
		SubnetworkID: kas.SubnetworkIDNative,
	}
	for i, u := range inputs {
		tx.Inputs[i] = &kas.Input{
			PreviousOutpoint: u.Outpoint,
			SigOpCount:       1,
			UTXO: &kas.UTXOEntry{
				Amount:          u.Value,
				ScriptPublicKey: kas.ScriptPublicKey{Version: kas.ScriptVersion, Script: u.Script},
				BlockDAAScore:   u.Score,
			},
		}
	}
	return tx
}

// feeRate resolves an override in sompi per gram, rounding up.
func (v *Vault) feeRate(override string) (uint64, error) {
	if override == "" {
		return v.cfg.FeeRate, nil
	}
	d, err := amount.Parse(override)
	if err != nil || !d.IsPositive() {
		return 0, vaulterr.Newf(vaulterr.ErrInvalidFee, "fee rate %q", override).With("field", "feeRate")
	}
	rate := d.Ceil()
	if !rate.BigInt().IsUint64() {
		return 0, vaulterr.Newf(vaulterr.ErrInvalidFee, "fee rate %q overflows", override).With("field", "feeRate")
	}
	return rate.BigInt().Uint64(), nil
}

// feeRateFromPrice converts a gas price in KAS per gram to sompi per gram.
func feeRateFromPrice(price string) (string, error) {
	d, err := amount.Shift(price, kas.Decimals)
	if err != nil {
		return "", vaulterr.Newf(vaulterr.ErrInvalidFee, "gas price %q", price).With("field", "gasPrice")
	}
	if !d.GreaterThan(decimal.Zero) {
		return "", vaulterr.Newf(vaulterr.ErrInvalidFee, "gas price %q must be positive", price).With("field", "gasPrice")
	}
	return d.String(), nil
}
