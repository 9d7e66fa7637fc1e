package aptos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/klingnet-vault/internal/indexer"
	"github.com/Klingon-tech/klingnet-vault/internal/keyring"
	"github.com/Klingon-tech/klingnet-vault/internal/log"
	"github.com/Klingon-tech/klingnet-vault/internal/vault"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	"github.com/Klingon-tech/klingnet-vault/pkg/amount"
	apt "github.com/Klingon-tech/klingnet-vault/pkg/aptos"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

// Vault is the Aptos vault for one account.
type Vault struct {
	cfg    Config
	acct   wallet.Account
	signer keyring.Signer
	core   *Core
	idx    Indexer
	logger zerolog.Logger

	sender apt.AccountAddress
}

var _ vault.Vault = (*Vault)(nil)

// New creates the vault for the signer's account.
func New(cfg Config, signer keyring.Signer, idx Indexer) (*Vault, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if signer == nil || idx == nil {
		return nil, errors.New("aptos vault: signer and indexer are required")
	}
	acct := signer.Account()
	if acct.Chain != ChainName {
		return nil, fmt.Errorf("aptos vault: account %s is on chain %q", acct.ID, acct.Chain)
	}
	sender, err := apt.ParseAddress(acct.Address)
	if err != nil {
		return nil, fmt.Errorf("aptos vault: account address: %w", err)
	}
	return &Vault{
		cfg:    cfg,
		acct:   acct,
		signer: signer,
		core:   NewCore(),
		idx:    idx,
		logger: log.WithChain(ChainName).With().Str("account", acct.ID).Logger(),
		sender: sender,
	}, nil
}

// Chain returns "aptos".
func (v *Vault) Chain() string { return ChainName }

// Account returns the vault's account.
func (v *Vault) Account() wallet.Account { return v.acct }

// Core returns the vault's signing front.
func (v *Vault) Core() *Core { return v.core }

// ValidateAddress accepts long and short 0x-hex addresses.
func (v *Vault) ValidateAddress(address string) error {
	if _, err := apt.ParseAddress(address); err != nil {
		return vaulterr.Wrap(vaulterr.ErrInvalidDestination, err).With("field", "to")
	}
	return nil
}

// chainState is what a build reads from the node.
type chainState struct {
	sequence uint64
	ledger   indexer.AptosLedger
	gas      indexer.AptosGasEstimate
}

func (v *Vault) fetchState(ctx context.Context) (chainState, error) {
	var st chainState
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		acct, err := v.idx.Account(gctx, v.sender.StringLong())
		// An account that never received a transaction has no resource yet.
		if indexer.StatusOf(err) == http.StatusNotFound {
			return nil
		}
		if err != nil {
			return fmt.Errorf("account: %w", err)
		}
		st.sequence = acct.SequenceNumber
		return nil
	})
	g.Go(func() error {
		l, err := v.idx.Ledger(gctx)
		if err != nil {
			return fmt.Errorf("ledger: %w", err)
		}
		st.ledger = l
		return nil
	})
	g.Go(func() error {
		gas, err := v.idx.GasPrice(gctx)
		if err != nil {
			return fmt.Errorf("gas price: %w", err)
		}
		st.gas = gas
		return nil
	})
	return st, g.Wait()
}

func (v *Vault) expiration(l indexer.AptosLedger) uint64 {
	return l.LedgerTimestampUsec/uint64(time.Second/time.Microsecond) + uint64(v.cfg.Expiration/time.Second)
}

// BuildEncodedTx builds a coin transfer. A token's Address is its coin
// type; the native coin uses aptos_account::transfer.
func (v *Vault) BuildEncodedTx(ctx context.Context, transfers []vault.TransferInfo) (vault.EncodedTx, error) {
	t, err := vault.SingleTransfer(transfers)
	if err != nil {
		return nil, err
	}
	to, err := apt.ParseAddress(t.To)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.ErrInvalidDestination, err).With("field", "to")
	}

	coinType, decimals := apt.NativeCoinType, int32(apt.NativeDecimals)
	if t.IsToken() {
		if t.Token.Address == "" {
			return nil, vaulterr.Field("token.address")
		}
		coinType, decimals = t.Token.Address, t.Token.Decimals
	}
	value, err := amount.ToBaseUnitsUint64(t.Amount, decimals)
	if err != nil {
		return nil, err
	}
	if value == 0 {
		return nil, vaulterr.ErrAmountTooSmall.With("field", "amount")
	}
	payload, err := apt.NewTransferPayload(to, value, coinType)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.ErrNotSupported, err).With("field", "token.address")
	}

	st, err := v.fetchState(ctx)
	if err != nil {
		return nil, err
	}
	price, err := v.gasUnitPrice(t.FeeRate, st.gas)
	if err != nil {
		return nil, err
	}
	chainID := st.ledger.ChainID
	if v.cfg.ChainID != 0 {
		chainID = v.cfg.ChainID
	}

	enc := &EncodedTx{Tx: &apt.Transaction{
		Shape: apt.ShapeSimple,
		Raw: &apt.RawTransaction{
			Sender:                  v.sender,
			SequenceNumber:          st.sequence,
			Payload:                 payload,
			MaxGasAmount:            v.cfg.MaxGasAmount,
			GasUnitPrice:            price,
			ExpirationTimestampSecs: v.expiration(st.ledger),
			ChainID:                 chainID,
		},
	}}
	v.sizeGas(ctx, enc)

	v.logger.Debug().
		Str("function", payload.FunctionID()).
		Uint64("sequence", st.sequence).
		Uint64("gas_unit_price", price).
		Uint64("max_gas", enc.Tx.Raw.MaxGasAmount).
		Msg("Built transaction")
	return enc, nil
}

// sizeGas lowers MaxGasAmount to the simulated usage plus half again.
// Simulation failures leave the configured ceiling in place.
func (v *Vault) sizeGas(ctx context.Context, enc *EncodedTx) {
	sim, ok := v.idx.(Simulator)
	if !ok || !v.cfg.SimulateGas || len(v.acct.PublicKey) == 0 {
		return
	}
	used, err := sim.Simulate(ctx, enc.Tx, v.acct.PublicKey)
	if err != nil {
		v.logger.Debug().Err(err).Msg("Gas simulation failed")
		return
	}
	if padded := used + used/2; padded > 0 && padded < enc.Tx.Raw.MaxGasAmount {
		enc.Tx.Raw.MaxGasAmount = padded
	}
}

// gasUnitPrice returns the override in octas, or the node's normal
// estimate raised to the configured floor.
func (v *Vault) gasUnitPrice(override string, est indexer.AptosGasEstimate) (uint64, error) {
	if override != "" {
		d, err := amount.Parse(override)
		if err != nil || !d.IsPositive() {
			return 0, vaulterr.Newf(vaulterr.ErrInvalidFee, "gas unit price %q", override).With("field", "feeRate")
		}
		return d.Ceil().BigInt().Uint64(), nil
	}
	return max(est.Normal, v.cfg.MinGasUnitPrice), nil
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
	if !ok || enc == nil || enc.Tx == nil || enc.Tx.Raw == nil {
		out.Actions = []vault.Action{unknown}
		return out
	}
	raw := enc.Tx.Raw
	out.Fee = amount.FromUint64(enc.MaxFee(), apt.NativeDecimals)
	out.Extra = map[string]string{
		"sequenceNumber": strconv.FormatUint(raw.SequenceNumber, 10),
		"maxGasAmount":   strconv.FormatUint(raw.MaxGasAmount, 10),
		"gasUnitPrice":   strconv.FormatUint(raw.GasUnitPrice, 10),
		"expiration":     strconv.FormatUint(raw.ExpirationTimestampSecs, 10),
		"chainId":        strconv.Itoa(int(raw.ChainID)),
		"shape":          enc.Tx.Shape.String(),
	}

	tr, ok := apt.ParseTransfer(raw.Payload)
	if !ok {
		if ef, isEntry := raw.Payload.(*apt.EntryFunction); isEntry {
			unknown.Detail = map[string]string{"function": ef.FunctionID()}
		}
		out.Actions = []vault.Action{unknown}
		return out
	}
	a := vault.Action{
		Kind: vault.ActionTransfer,
		From: raw.Sender.StringLong(),
		To:   tr.To.StringLong(),
	}
	if tr.CoinType == apt.NativeCoinType {
		a.Amount = amount.FromUint64(tr.Amount, apt.NativeDecimals)
		a.Token = NativeSymbol
	} else {
		a.Kind = vault.ActionTokenTransfer
		a.Token = tr.CoinType
		a.Detail = map[string]string{"coinType": tr.CoinType}
		if tok := unsigned.Transfer.Token; tok != nil && tok.Address == tr.CoinType {
			a.Amount = amount.FromUint64(tr.Amount, tok.Decimals)
			if tok.Symbol != "" {
				a.Token = tok.Symbol
			}
		} else {
			a.Detail["baseUnits"] = strconv.FormatUint(tr.Amount, 10)
		}
	}
	out.Actions = []vault.Action{a}
	return out
}

// UpdateUnsignedTx applies a new gas price, given in APT per gas unit,
// and raises MaxGasAmount to the gas limit when that is higher. The
// expiration moves forward if it would lapse sooner than a fresh build.
func (v *Vault) UpdateUnsignedTx(ctx context.Context, unsigned *vault.UnsignedTx, fee vault.FeeInfo) (*vault.UnsignedTx, error) {
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	enc, err := encodedOf(unsigned)
	if err != nil {
		return nil, err
	}
	octas, err := amount.Shift(fee.GasPrice, apt.NativeDecimals)
	if err != nil || !octas.IsPositive() || !octas.Equal(octas.Truncate(0)) {
		return nil, vaulterr.Newf(vaulterr.ErrInvalidFee, "gas price %q", fee.GasPrice).With("field", "gasPrice")
	}

	raw := *enc.Tx.Raw
	raw.GasUnitPrice = octas.BigInt().Uint64()
	if fee.GasLimit != "" {
		limit, _ := decimal.NewFromString(fee.GasLimit)
		if !limit.IsPositive() || !limit.Equal(limit.Truncate(0)) {
			return nil, vaulterr.Newf(vaulterr.ErrInvalidFee, "gas limit %q", fee.GasLimit).With("field", "gasLimit")
		}
		raw.MaxGasAmount = max(raw.MaxGasAmount, limit.BigInt().Uint64())
	}
	ledger, err := v.idx.Ledger(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	raw.ExpirationTimestampSecs = max(raw.ExpirationTimestampSecs, v.expiration(ledger))

	out := *unsigned
	out.Fee = &fee
	out.Encoded = enc.withRaw(raw)
	return &out, nil
}

// SignTransaction signs through the account's keyring.
func (v *Vault) SignTransaction(ctx context.Context, unsigned *vault.UnsignedTx, password []byte) (*vault.SignedTx, error) {
	return v.core.SignTransaction(ctx, v.signer, unsigned, password)
}

// Broadcast submits the BCS signed transaction.
func (v *Vault) Broadcast(ctx context.Context, signed *vault.SignedTx) (*vault.SignedTx, error) {
	if signed == nil || len(signed.Raw) == 0 {
		return nil, vaulterr.Field("rawTx")
	}
	st, err := apt.DeserializeSigned(signed.Raw)
	if err != nil {
		return nil, err
	}
	hash, err := v.idx.Submit(ctx, signed.Raw)
	if err != nil {
		return nil, fmt.Errorf("aptos broadcast: %w", err)
	}
	if local := st.Hash(); local != hash {
		v.logger.Warn().Str("local", local).Str("remote", hash).Msg("Node returned a different hash")
	}
	out := *signed
	out.TxID = hash
	return &out, nil
}

// TxStatus reports whether hash has been committed.
func (v *Vault) TxStatus(ctx context.Context, hash string) (indexer.TxStatus, error) {
	return v.idx.TxStatus(ctx, hash)
}

// AfterSend returns nil: Aptos transfers complete in one transaction.
func (v *Vault) AfterSend(context.Context, *vault.SignedTx) (*vault.UnsignedTx, error) {
	return nil, nil
}
