package kaspa

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-vault/internal/cache"
	"github.com/Klingon-tech/klingnet-vault/internal/indexer"
	"github.com/Klingon-tech/klingnet-vault/internal/keyring"
	"github.com/Klingon-tech/klingnet-vault/internal/log"
	"github.com/Klingon-tech/klingnet-vault/internal/vault"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	"github.com/Klingon-tech/klingnet-vault/pkg/amount"
	kas "github.com/Klingon-tech/klingnet-vault/pkg/kaspa"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

// Vault is the Kaspa vault for one account.
type Vault struct {
	cfg    Config
	acct   wallet.Account
	signer keyring.Signer
	core   *Core
	idx    Indexer
	utxos  *cache.Memo[[]wallet.UTXO]
	logger zerolog.Logger

	own       kas.Address
	ownScript kas.ScriptPublicKey
}

var _ vault.Vault = (*Vault)(nil)

// New creates the vault for the signer's account.
func New(cfg Config, signer keyring.Signer, idx Indexer) (*Vault, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if signer == nil || idx == nil {
		return nil, errors.New("kaspa vault: signer and indexer are required")
	}
	acct := signer.Account()
	if acct.Chain != ChainName {
		return nil, fmt.Errorf("kaspa vault: account %s is on chain %q", acct.ID, acct.Chain)
	}
	own, err := kas.DecodeAddress(acct.Address, cfg.Network.Prefix)
	if err != nil {
		return nil, fmt.Errorf("kaspa vault: account address: %w", err)
	}
	ownScript, err := kas.PayToAddrScript(own)
	if err != nil {
		return nil, fmt.Errorf("kaspa vault: account address: %w", err)
	}
	return &Vault{
		cfg:       cfg,
		acct:      acct,
		signer:    signer,
		core:      NewCore(cfg.Network),
		idx:       idx,
		utxos:     cache.New[[]wallet.UTXO](cfg.UTXOCacheTTL),
		logger:    log.WithChain(ChainName).With().Str("account", acct.ID).Logger(),
		own:       own,
		ownScript: ownScript,
	}, nil
}

// Chain returns "kaspa".
func (v *Vault) Chain() string { return ChainName }

// Account returns the vault's account.
func (v *Vault) Account() wallet.Account { return v.acct }

// Core returns the vault's signing front.
func (v *Vault) Core() *Core { return v.core }

// ValidateAddress checks address against the configured network prefix.
func (v *Vault) ValidateAddress(address string) error {
	if _, err := kas.DecodeAddress(address, v.cfg.Network.Prefix); err != nil {
		return vaulterr.Wrap(vaulterr.ErrInvalidDestination, err).With("field", "to")
	}
	return nil
}

// BuildEncodedTx builds a native transfer or, for a token transfer, the
// KRC20 commit transaction. The UTXO set is fetched fresh and dropped
// when the build returns.
func (v *Vault) BuildEncodedTx(ctx context.Context, transfers []vault.TransferInfo) (vault.EncodedTx, error) {
	t, err := vault.SingleTransfer(transfers)
	if err != nil {
		return nil, err
	}
	if err := v.ValidateAddress(t.To); err != nil {
		return nil, err
	}
	to, _ := kas.DecodeAddress(t.To, v.cfg.Network.Prefix)
	rate, err := v.feeRate(t.FeeRate)
	if err != nil {
		return nil, err
	}

	defer v.utxos.Forget(v.acct.Address)
	utxos, err := v.confirmedUTXOs(ctx)
	if err != nil {
		return nil, err
	}
	if len(utxos) == 0 {
		return nil, vaulterr.ErrInsufficientFunds.With("available", "0")
	}

	var enc *EncodedTx
	if t.IsToken() {
		enc, err = v.buildCommit(utxos, t, to, rate)
	} else {
		var sompi uint64
		sompi, err = amount.ToBaseUnitsUint64(t.Amount, kas.Decimals)
		if err != nil {
			return nil, err
		}
		enc, err = v.buildWithLimits(utxos, payment{to: to, amount: sompi, rate: rate})
	}
	if err != nil {
		return nil, err
	}
	v.logger.Debug().
		Int("inputs", len(enc.Tx.Inputs)).
		Int("outputs", len(enc.Tx.Outputs)).
		Uint64("mass", enc.Mass).
		Uint64("fee", enc.Fee).
		Bool("max_send", enc.HasMaxSend).
		Bool("commit", enc.Commit != nil).
		Msg("Built transaction")
	return enc, nil
}

// BuildDecodedTx renders the transaction for display.
func (v *Vault) BuildDecodedTx(unsigned *vault.UnsignedTx) vault.DecodedTx {
	out := vault.DecodedTx{Chain: ChainName, Signer: v.acct.Address}
	unknown := vault.Action{Kind: vault.ActionUnknown, From: v.acct.Address}
	if unsigned == nil {
		out.Actions = []vault.Action{unknown}
		return out
	}
	enc, ok := unsigned.Encoded.(*EncodedTx)
	if !ok || enc == nil || enc.Tx == nil {
		out.Actions = []vault.Action{unknown}
		return out
	}
	out.Fee = amount.FromUint64(enc.Fee, kas.Decimals)
	out.Extra = map[string]string{
		"mass":       strconv.FormatUint(enc.Mass, 10),
		"feeRate":    strconv.FormatUint(enc.FeeRate, 10),
		"inputs":     strconv.Itoa(len(enc.Tx.Inputs)),
		"hasMaxSend": strconv.FormatBool(enc.HasMaxSend),
	}

	switch {
	case enc.Commit != nil:
		out.Actions = []vault.Action{v.inscriptionAction(enc.Commit, unsigned.Transfer, "commit")}
		out.Extra["commitAddress"] = enc.Commit.Address
	case enc.Reveal != nil:
		out.Actions = []vault.Action{v.inscriptionAction(enc.Reveal, unsigned.Transfer, "reveal")}
		out.Extra["revealOf"] = unsigned.RevealOf
	case len(enc.Tx.Outputs) > 0:
		first := enc.Tx.Outputs[0]
		to := ""
		if addr, ok := kas.ExtractAddress(first.ScriptPublicKey, v.cfg.Network.Prefix); ok {
			to = addr.String()
		}
		out.Actions = []vault.Action{{
			Kind:   vault.ActionTransfer,
			From:   v.acct.Address,
			To:     to,
			Amount: amount.FromUint64(first.Value, kas.Decimals),
			Token:  "KAS",
		}}
	default:
		out.Actions = []vault.Action{unknown}
	}
	return out
}

func (v *Vault) inscriptionAction(info *CommitInfo, t vault.TransferInfo, phase string) vault.Action {
	a := vault.Action{
		Kind:   vault.ActionTokenTransfer,
		From:   v.acct.Address,
		To:     info.Data.To,
		Token:  info.Data.Tick,
		Amount: t.Amount,
		Detail: map[string]string{"phase": phase, "amt": info.Data.Amt},
	}
	if a.Amount == "" || t.Token == nil {
		a.Amount = info.Data.Amt
	}
	return a
}

// UpdateUnsignedTx rebuilds unsigned at the fee rate implied by fee. Both
// gas price and gas limit are required; the price is in KAS per gram.
// Coin selection runs again since a new rate can change the inputs.
func (v *Vault) UpdateUnsignedTx(ctx context.Context, unsigned *vault.UnsignedTx, fee vault.FeeInfo) (*vault.UnsignedTx, error) {
	if fee.GasLimit == "" {
		return nil, vaulterr.Field("gasLimit")
	}
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	enc, err := encodedOf(unsigned)
	if err != nil {
		return nil, err
	}
	rateStr, err := feeRateFromPrice(fee.GasPrice)
	if err != nil {
		return nil, err
	}
	rate, err := v.feeRate(rateStr)
	if err != nil {
		return nil, err
	}

	out := *unsigned
	out.Fee = &fee
	if enc.Reveal != nil {
		reveal, err := v.revealTx(enc.Tx.Inputs[0].PreviousOutpoint, enc.Tx.Inputs[0].UTXO.Amount, enc.Reveal, rate)
		if err != nil {
			return nil, err
		}
		out.Encoded = reveal
		return &out, nil
	}

	out.Transfer.FeeRate = strconv.FormatUint(rate, 10)
	rebuilt, err := v.BuildEncodedTx(ctx, []vault.TransferInfo{out.Transfer})
	if err != nil {
		return nil, err
	}
	out.Encoded = rebuilt
	return &out, nil
}

// SignTransaction signs through the account's keyring.
func (v *Vault) SignTransaction(ctx context.Context, unsigned *vault.UnsignedTx, password []byte) (*vault.SignedTx, error) {
	return v.core.SignTransaction(ctx, v.signer, unsigned, password)
}

// Broadcast submits the JSON rendering of the signed payload.
func (v *Vault) Broadcast(ctx context.Context, signed *vault.SignedTx) (*vault.SignedTx, error) {
	if signed == nil || len(signed.Raw) == 0 {
		return nil, vaulterr.Field("rawTx")
	}
	tx, err := kas.Deserialize(signed.Raw)
	if err != nil {
		return nil, err
	}
	txid, err := v.idx.Submit(ctx, kas.ToRPC(tx))
	if err != nil {
		return nil, fmt.Errorf("kaspa broadcast: %w", err)
	}
	if local := tx.ID().String(); local != txid {
		v.logger.Warn().Str("local", local).Str("remote", txid).Msg("Indexer returned a different txid")
	}
	out := *signed
	out.TxID = txid
	return &out, nil
}

// TxStatus reports whether txid has been accepted.
func (v *Vault) TxStatus(ctx context.Context, txid string) (indexer.TxStatus, error) {
	return v.idx.TxStatus(ctx, txid)
}
