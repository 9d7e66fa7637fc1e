package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/klingnet-vault/internal/indexer"
	"github.com/Klingon-tech/klingnet-vault/internal/keyring"
	"github.com/Klingon-tech/klingnet-vault/internal/log"
	"github.com/Klingon-tech/klingnet-vault/internal/vault"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	"github.com/Klingon-tech/klingnet-vault/pkg/amount"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

// gweiDecimals converts gwei fee quotes to wei.
const gweiDecimals = 9

// Vault is the EVM vault for one account.
type Vault struct {
	cfg    Config
	acct   wallet.Account
	signer keyring.Signer
	core   *Core
	client Client
	logger zerolog.Logger

	from common.Address
}

var _ vault.Vault = (*Vault)(nil)

// New creates the vault for the signer's account.
func New(cfg Config, signer keyring.Signer, client Client) (*Vault, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if signer == nil || client == nil {
		return nil, errors.New("evm vault: signer and client are required")
	}
	acct := signer.Account()
	if acct.Chain != ChainName {
		return nil, fmt.Errorf("evm vault: account %s is on chain %q", acct.ID, acct.Chain)
	}
	if !common.IsHexAddress(acct.Address) {
		return nil, fmt.Errorf("evm vault: account address %q", acct.Address)
	}
	return &Vault{
		cfg:    cfg,
		acct:   acct,
		signer: signer,
		core:   NewCore(),
		client: client,
		logger: log.WithChain(ChainName).With().Str("account", acct.ID).Logger(),
		from:   common.HexToAddress(acct.Address),
	}, nil
}

// Chain returns "evm".
func (v *Vault) Chain() string { return ChainName }

// Account returns the vault's account.
func (v *Vault) Account() wallet.Account { return v.acct }

// Core returns the vault's signing front.
func (v *Vault) Core() *Core { return v.core }

// ValidateAddress accepts 0x-prefixed 20-byte hex addresses.
func (v *Vault) ValidateAddress(address string) error {
	if !common.IsHexAddress(address) || !strings.HasPrefix(strings.ToLower(address), "0x") {
		return vaulterr.Newf(vaulterr.ErrInvalidDestination, "%q", address).With("field", "to")
	}
	return nil
}

type chainState struct {
	chainID *big.Int
	nonce   uint64
	tip     *big.Int
	baseFee *big.Int
	balance *big.Int
}

func (v *Vault) fetchState(ctx context.Context) (chainState, error) {
	st := chainState{chainID: new(big.Int).SetUint64(v.cfg.ChainID)}
	g, gctx := errgroup.WithContext(ctx)
	if v.cfg.ChainID == 0 {
		g.Go(func() error {
			id, err := v.client.ChainID(gctx)
			if err != nil {
				return fmt.Errorf("chain id: %w", err)
			}
			st.chainID = id
			return nil
		})
	}
	g.Go(func() error {
		n, err := v.client.PendingNonceAt(gctx, v.from)
		if err != nil {
			return fmt.Errorf("nonce: %w", err)
		}
		st.nonce = n
		return nil
	})
	g.Go(func() error {
		tip, err := v.client.SuggestGasTipCap(gctx)
		if err != nil {
			return fmt.Errorf("gas tip: %w", err)
		}
		st.tip = tip
		return nil
	})
	g.Go(func() error {
		head, err := v.client.HeaderByNumber(gctx, nil)
		if err != nil {
			return fmt.Errorf("latest header: %w", err)
		}
		st.baseFee = head.BaseFee
		if st.baseFee == nil {
			st.baseFee = new(big.Int)
		}
		return nil
	})
	g.Go(func() error {
		bal, err := v.client.BalanceAt(gctx, v.from, nil)
		if err != nil {
			return fmt.Errorf("balance: %w", err)
		}
		st.balance = bal
		return nil
	})
	return st, g.Wait()
}

// BuildEncodedTx builds a native transfer or, when a token is given, an
// ERC-20 transfer call to the token contract. FeeRate overrides the
// priority fee, in gwei.
func (v *Vault) BuildEncodedTx(ctx context.Context, transfers []vault.TransferInfo) (vault.EncodedTx, error) {
	t, err := vault.SingleTransfer(transfers)
	if err != nil {
		return nil, err
	}
	if err := v.ValidateAddress(t.To); err != nil {
		return nil, err
	}
	dest := common.HexToAddress(t.To)

	decimals := int32(NativeDecimals)
	if t.IsToken() {
		if !common.IsHexAddress(t.Token.Address) {
			return nil, vaulterr.Field("token.address")
		}
		decimals = t.Token.Decimals
	}
	value, err := amount.ToBaseUnits(t.Amount, decimals)
	if err != nil {
		return nil, err
	}
	if value.Sign() == 0 {
		return nil, vaulterr.ErrAmountTooSmall.With("field", "amount")
	}

	st, err := v.fetchState(ctx)
	if err != nil {
		return nil, err
	}
	if t.FeeRate != "" {
		tip, err := weiFromGwei(t.FeeRate, "feeRate")
		if err != nil {
			return nil, err
		}
		st.tip = tip
	}
	feeCap := new(big.Int).Mul(st.baseFee, big.NewInt(v.cfg.BaseFeeMultiplier))
	feeCap.Add(feeCap, st.tip)

	to, txValue, data := dest, value, []byte(nil)
	if t.IsToken() {
		to = common.HexToAddress(t.Token.Address)
		txValue = new(big.Int)
		if data, err = packTransfer(dest, value); err != nil {
			return nil, fmt.Errorf("pack transfer: %w", err)
		}
		if err := v.checkTokenBalance(ctx, to, value, decimals); err != nil {
			return nil, err
		}
	}
	gas := v.gasLimit(ctx, ethereum.CallMsg{From: v.from, To: &to, Value: txValue, Data: data, GasFeeCap: feeCap, GasTipCap: st.tip})

	maxFee := new(big.Int).Mul(new(big.Int).SetUint64(gas), feeCap)
	required := new(big.Int).Add(maxFee, txValue)
	if required.Cmp(st.balance) > 0 {
		return nil, vaulterr.ErrInsufficientFunds.
			With("required", amount.FromBaseUnits(required, NativeDecimals)).
			With("available", amount.FromBaseUnits(st.balance, NativeDecimals)).
			With("symbol", v.cfg.NativeSymbol)
	}

	enc := &EncodedTx{From: v.from, Tx: types.NewTx(&types.DynamicFeeTx{
		ChainID:   st.chainID,
		Nonce:     st.nonce,
		GasTipCap: st.tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     txValue,
		Data:      data,
	})}
	v.logger.Debug().
		Uint64("nonce", st.nonce).
		Uint64("gas", gas).
		Str("fee_cap", feeCap.String()).
		Bool("token", t.IsToken()).
		Msg("Built transaction")
	return enc, nil
}

// gasLimit is the node estimate, padded for contract calls. Plain value
// transfers and failed estimates fall back to the configured limits.
func (v *Vault) gasLimit(ctx context.Context, msg ethereum.CallMsg) uint64 {
	if len(msg.Data) == 0 {
		return v.cfg.NativeGasLimit
	}
	est, err := v.client.EstimateGas(ctx, msg)
	if err != nil || est == 0 {
		v.logger.Debug().Err(err).Msg("Gas estimation failed, using fallback")
		return v.cfg.TokenGasLimit
	}
	return est + est*v.cfg.GasBufferPercent/100
}

func (v *Vault) checkTokenBalance(ctx context.Context, token common.Address, want *big.Int, decimals int32) error {
	data, err := packBalanceOf(v.from)
	if err != nil {
		return fmt.Errorf("pack balanceOf: %w", err)
	}
	out, err := v.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("token balance: %w", err)
	}
	bal, err := unpackBalance(out)
	if err != nil {
		return fmt.Errorf("token balance: %w", err)
	}
	if bal.Cmp(want) < 0 {
		return vaulterr.ErrInsufficientFunds.
			With("required", amount.FromBaseUnits(want, decimals)).
			With("available", amount.FromBaseUnits(bal, decimals)).
			With("token", token.Hex())
	}
	return nil
}

func weiFromGwei(s, field string) (*big.Int, error) {
	d, err := amount.Shift(s, gweiDecimals)
	if err != nil || !d.IsPositive() {
		return nil, vaulterr.Newf(vaulterr.ErrInvalidFee, "%s %q", field, s).With("field", field)
	}
	return d.Ceil().BigInt(), nil
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
	tx := enc.Tx
	out.Fee = amount.FromBaseUnits(enc.MaxFee(), NativeDecimals)
	out.Extra = map[string]string{
		"nonce":                strconv.FormatUint(tx.Nonce(), 10),
		"gasLimit":             strconv.FormatUint(tx.Gas(), 10),
		"maxFeePerGas":         tx.GasFeeCap().String(),
		"maxPriorityFeePerGas": tx.GasTipCap().String(),
		"chainId":              tx.ChainId().String(),
	}
	if tx.To() == nil {
		unknown.Detail = map[string]string{"contractCreation": "true"}
		out.Actions = []vault.Action{unknown}
		return out
	}
	to := tx.To().Hex()

	if len(tx.Data()) == 0 {
		out.Actions = []vault.Action{{
			Kind:   vault.ActionTransfer,
			From:   enc.From.Hex(),
			To:     to,
			Amount: amount.FromBaseUnits(tx.Value(), NativeDecimals),
			Token:  v.cfg.NativeSymbol,
		}}
		return out
	}

	c, ok := decodeCall(tx.Data())
	if !ok {
		unknown.To = to
		unknown.Detail = map[string]string{"selector": "0x" + c.selector}
		out.Actions = []vault.Action{unknown}
		return out
	}
	a := vault.Action{
		Kind:   vault.ActionTokenTransfer,
		From:   enc.From.Hex(),
		To:     c.target.Hex(),
		Token:  to,
		Detail: map[string]string{"contract": to},
	}
	if c.method == "approve" {
		a.Kind = vault.ActionApprove
		a.Detail["spender"] = c.target.Hex()
	}
	if tok := unsigned.Transfer.Token; tok != nil && strings.EqualFold(tok.Address, to) {
		a.Amount = amount.FromBaseUnits(c.value, tok.Decimals)
		if tok.Symbol != "" {
			a.Token = tok.Symbol
		}
	} else {
		a.Detail["baseUnits"] = c.value.String()
	}
	out.Actions = []vault.Action{a}
	return out
}

// UpdateUnsignedTx sets the fee cap from a gas price in gwei and the gas
// limit when given. The priority fee is lowered to the new cap if needed.
func (v *Vault) UpdateUnsignedTx(_ context.Context, unsigned *vault.UnsignedTx, fee vault.FeeInfo) (*vault.UnsignedTx, error) {
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	enc, err := encodedOf(unsigned)
	if err != nil {
		return nil, err
	}
	feeCap, err := weiFromGwei(fee.GasPrice, "gasPrice")
	if err != nil {
		return nil, err
	}
	dyn := enc.dynamicFee()
	dyn.GasFeeCap = feeCap
	if dyn.GasTipCap.Cmp(feeCap) > 0 {
		dyn.GasTipCap = new(big.Int).Set(feeCap)
	}
	if fee.GasLimit != "" {
		gas, err := strconv.ParseUint(fee.GasLimit, 10, 64)
		if err != nil || gas < 21_000 {
			return nil, vaulterr.Newf(vaulterr.ErrInvalidFee, "gas limit %q", fee.GasLimit).With("field", "gasLimit")
		}
		dyn.Gas = gas
	}

	out := *unsigned
	out.Fee = &fee
	out.Encoded = &EncodedTx{From: enc.From, Tx: types.NewTx(dyn)}
	return &out, nil
}

// SignTransaction signs through the account's keyring.
func (v *Vault) SignTransaction(ctx context.Context, unsigned *vault.UnsignedTx, password []byte) (*vault.SignedTx, error) {
	return v.core.SignTransaction(ctx, v.signer, unsigned, password)
}

// Broadcast sends the signed transaction. A node that already has it is
// treated as success since the hash is known locally.
func (v *Vault) Broadcast(ctx context.Context, signed *vault.SignedTx) (*vault.SignedTx, error) {
	if signed == nil || len(signed.Raw) == 0 {
		return nil, vaulterr.Field("rawTx")
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(signed.Raw); err != nil {
		return nil, vaulterr.Wrap(vaulterr.ErrDeserializationFailed, err)
	}
	if err := v.client.SendTransaction(ctx, tx); err != nil {
		if !strings.Contains(strings.ToLower(err.Error()), "already known") {
			return nil, fmt.Errorf("evm broadcast: %w", err)
		}
		v.logger.Info().Str("txid", tx.Hash().Hex()).Msg("Node already has transaction")
	}
	out := *signed
	out.TxID = tx.Hash().Hex()
	return &out, nil
}

// TxStatus maps the receipt to a status. No receipt yet is pending.
func (v *Vault) TxStatus(ctx context.Context, txid string) (indexer.TxStatus, error) {
	r, err := v.client.TransactionReceipt(ctx, common.HexToHash(txid))
	if errors.Is(err, ethereum.NotFound) {
		return indexer.TxPending, nil
	}
	if err != nil {
		return indexer.TxPending, vaulterr.Transient(err)
	}
	if r.Status == types.ReceiptStatusSuccessful {
		return indexer.TxSuccess, nil
	}
	return indexer.TxFailed, nil
}

// AfterSend returns nil: EVM transfers complete in one transaction.
func (v *Vault) AfterSend(context.Context, *vault.SignedTx) (*vault.UnsignedTx, error) {
	return nil, nil
}
