package kaspa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Klingon-tech/klingnet-vault/internal/indexer"
	"github.com/Klingon-tech/klingnet-vault/internal/metrics"
	"github.com/Klingon-tech/klingnet-vault/internal/poll"
	"github.com/Klingon-tech/klingnet-vault/internal/vault"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	"github.com/Klingon-tech/klingnet-vault/pkg/amount"
	kas "github.com/Klingon-tech/klingnet-vault/pkg/kaspa"
	"github.com/Klingon-tech/klingnet-vault/pkg/types"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

// buildCommit builds the first half of a KRC20 transfer: a payment of
// CommitAmount to the P2SH address of the inscription's redeem script.
func (v *Vault) buildCommit(utxos []wallet.UTXO, t vault.TransferInfo, to kas.Address, rate uint64) (*EncodedTx, error) {
	tick := t.Token.Address
	if tick == "" {
		tick = t.Token.Symbol
	}
	if tick == "" {
		return nil, vaulterr.Field("token.address")
	}
	amt, err := amount.ToBaseUnits(t.Amount, t.Token.Decimals)
	if err != nil {
		return nil, err
	}
	if amt.Sign() == 0 {
		return nil, vaulterr.ErrAmountTooSmall.With("amount", t.Amount)
	}
	xonly, err := v.core.accountKey(v.acct)
	if err != nil {
		return nil, err
	}

	data := kas.NewTransferData(tick, amt.String(), to.String())
	script, err := kas.CommitScript(xonly, data)
	if err != nil {
		return nil, fmt.Errorf("commit script: %w", err)
	}
	commitAddr := kas.NewScriptHashAddress(script, v.cfg.Network.Prefix)

	enc, err := v.buildWithLimits(utxos, payment{to: commitAddr, amount: v.cfg.CommitAmount, rate: rate})
	if err != nil {
		return nil, err
	}
	enc.Commit = &CommitInfo{RedeemScript: script, Address: commitAddr.String(), Data: data}
	return enc, nil
}

// AfterSend waits for a KRC20 commit to confirm and returns the reveal
// transaction that spends it back to the account. The reveal is only built
// after the commit reports success. Anything other than a commit returns
// nil.
func (v *Vault) AfterSend(ctx context.Context, signed *vault.SignedTx) (*vault.UnsignedTx, error) {
	if signed == nil {
		return nil, vaulterr.Field("signedTx")
	}
	enc, ok := signed.Encoded.(*EncodedTx)
	if !ok || enc.Commit == nil {
		return nil, nil
	}
	if signed.TxID == "" {
		return nil, vaulterr.Field("txid")
	}
	commitID, err := types.HexToHash(signed.TxID)
	if err != nil {
		return nil, fmt.Errorf("commit txid: %w", err)
	}
	if len(enc.Tx.Outputs) == 0 {
		return nil, fmt.Errorf("commit %s has no outputs", signed.TxID)
	}
	locked := enc.Tx.Outputs[0]
	if !kas.IsPayToScriptHash(locked.ScriptPublicKey) {
		return nil, fmt.Errorf("commit %s output 0 is not pay-to-script-hash", signed.TxID)
	}

	if err := v.waitCommit(ctx, signed.TxID); err != nil {
		return nil, err
	}

	reveal, err := v.revealTx(types.Outpoint{TxID: commitID, Index: 0}, locked.Value, enc.Commit, enc.FeeRate)
	if err != nil {
		return nil, err
	}
	data := enc.Commit.Data
	return &vault.UnsignedTx{
		Encoded: reveal,
		Transfer: vault.TransferInfo{
			From:   v.acct.Address,
			To:     data.To,
			Amount: data.Amt,
			Token:  &vault.TokenInfo{Address: data.Tick, Symbol: data.Tick},
		},
		RevealOf: signed.TxID,
	}, nil
}

// waitCommit polls the commit status until it succeeds. Indexer failures
// are retried until the timeout; a failed commit or a timeout ends the
// wait with a typed error. Cancelling ctx returns ctx.Err().
func (v *Vault) waitCommit(ctx context.Context, txid string) error {
	start := time.Now()
	err := poll.Until(ctx, v.cfg.CommitPollInterval, v.cfg.CommitTimeout, func(ctx context.Context) (bool, error) {
		status, err := v.idx.TxStatus(ctx, txid)
		switch {
		case vaulterr.Retryable(err):
			v.logger.Debug().Err(err).Str("txid", txid).Msg("Commit status unavailable")
			return false, nil
		case err != nil:
			return false, err
		case status == indexer.TxFailed:
			return false, vaulterr.ErrCommitFailed.With("txid", txid)
		}
		return status == indexer.TxSuccess, nil
	})
	if errors.Is(err, poll.ErrTimeout) {
		err = vaulterr.Wrap(vaulterr.ErrCommitTimeout, err).
			With("txid", txid).
			With("timeout", v.cfg.CommitTimeout)
	}
	metrics.CommitWait.WithLabelValues(ChainName, metrics.Result(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	v.logger.Info().Str("txid", txid).Dur("waited", time.Since(start)).Msg("Commit confirmed")
	return nil
}

// revealTx spends the commit output back to the account. The fee is the
// reveal's own mass at the commit's fee rate.
func (v *Vault) revealTx(commit types.Outpoint, value uint64, info *CommitInfo, rate uint64) (*EncodedTx, error) {
	addr, err := kas.DecodeAddress(info.Address, v.cfg.Network.Prefix)
	if err != nil {
		return nil, fmt.Errorf("commit address: %w", err)
	}
	spk, err := kas.PayToAddrScript(addr)
	if err != nil {
		return nil, fmt.Errorf("commit address: %w", err)
	}
	tx := &kas.Transaction{
		Version: kas.TxVersion,
		Inputs: []*kas.Input{{
			PreviousOutpoint: commit,
			SigOpCount:       1,
			UTXO:             &kas.UTXOEntry{Amount: value, ScriptPublicKey: spk},
		}},
		Outputs:      []*kas.Output{{Value: value, ScriptPublicKey: v.ownScript}},
		SubnetworkID: kas.SubnetworkIDNative,
	}
	sigSize := revealSigScriptSize(info.RedeemScript)
	mass := kas.Mass(tx, sigSize)
	fee := mass * rate
	if value <= fee || value-fee < kas.DustAmount {
		return nil, vaulterr.ErrInsufficientFunds.
			With("required", amount.FromUint64(fee+kas.DustAmount, kas.Decimals)).
			With("available", amount.FromUint64(value, kas.Decimals))
	}
	tx.Outputs[0].Value = value - fee
	return &EncodedTx{
		Tx:      tx,
		Fee:     fee,
		FeeRate: rate,
		Mass:    mass,
		Reveal:  info,
	}, nil
}
