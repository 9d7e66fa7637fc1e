package vault

import (
	"encoding/hex"
	"strings"

	"github.com/Klingon-tech/klingnet-vault/pkg/amount"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

// TokenInfo identifies the asset of a transfer. A nil *TokenInfo is the
// chain's native coin.
type TokenInfo struct {
	// Address is the contract, coin type or ticker, depending on the chain.
	Address  string `json:"address"`
	Symbol   string `json:"symbol,omitempty"`
	Decimals int32  `json:"decimals"`
}

// TransferInfo is a caller's transfer intent.
type TransferInfo struct {
	From   string     `json:"from"`
	To     string     `json:"to"`
	Amount string     `json:"amount"` // display units
	Token  *TokenInfo `json:"token,omitempty"`
	Memo   string     `json:"memo,omitempty"`
	// FeeRate overrides the chain's default fee rate when set.
	FeeRate string `json:"feeRate,omitempty"`
}

// IsToken reports whether the transfer moves a non-native asset.
func (t TransferInfo) IsToken() bool { return t.Token != nil }

// FeeInfo is a fee update for an unsigned transaction. Both values are
// decimal strings in the chain's fee units.
type FeeInfo struct {
	GasPrice string `json:"gasPrice"`
	GasLimit string `json:"gasLimit,omitempty"`
}

// Validate checks that the values parse as numbers.
func (f FeeInfo) Validate() error {
	if _, err := amount.Parse(f.GasPrice); err != nil {
		return vaulterr.Newf(vaulterr.ErrInvalidFee, "gas price %q", f.GasPrice).With("field", "gasPrice")
	}
	if f.GasLimit != "" {
		if _, err := amount.Parse(f.GasLimit); err != nil {
			return vaulterr.Newf(vaulterr.ErrInvalidFee, "gas limit %q", f.GasLimit).With("field", "gasLimit")
		}
	}
	return nil
}

// EncodedTx is a chain's structured transaction as built for one intent.
type EncodedTx interface {
	Chain() string
}

// Revealer is implemented by encoded transactions that need a follow-up
// transaction once they confirm.
type Revealer interface {
	RequiresReveal() bool
}

// RequiresReveal reports whether enc starts a two-phase transfer.
func RequiresReveal(enc EncodedTx) bool {
	r, ok := enc.(Revealer)
	return ok && r.RequiresReveal()
}

// UnsignedTx pairs an encoded transaction with the intent that produced it.
type UnsignedTx struct {
	Encoded  EncodedTx    `json:"-"`
	Transfer TransferInfo `json:"transfer"`
	Fee      *FeeInfo     `json:"fee,omitempty"`
	// Context carries display-only details such as swap or staking info.
	Context map[string]string `json:"context,omitempty"`
	// RevealOf is the commit txid when this is a reveal transaction.
	RevealOf string `json:"revealOf,omitempty"`
}

// BuildUnsignedTx wraps enc with the transfer it was built from.
func BuildUnsignedTx(enc EncodedTx, transfer TransferInfo) (*UnsignedTx, error) {
	if enc == nil {
		return nil, vaulterr.Field("encodedTx")
	}
	return &UnsignedTx{Encoded: enc, Transfer: transfer}, nil
}

// SignedTx is a broadcastable transaction. TxID is set once known.
type SignedTx struct {
	TxID    string    `json:"txid,omitempty"`
	Raw     []byte    `json:"-"`
	Encoded EncodedTx `json:"-"`
}

// RawHex returns the hex encoding of Raw.
func (s *SignedTx) RawHex() string {
	return hex.EncodeToString(s.Raw)
}

// ActionKind classifies a decoded action.
type ActionKind string

const (
	ActionTransfer      ActionKind = "transfer"
	ActionTokenTransfer ActionKind = "token_transfer"
	ActionApprove       ActionKind = "approve"
	ActionSwap          ActionKind = "swap"
	ActionUnknown       ActionKind = "unknown"
)

// Action is one human-readable effect of a transaction.
type Action struct {
	Kind   ActionKind        `json:"kind"`
	From   string            `json:"from,omitempty"`
	To     string            `json:"to,omitempty"`
	Amount string            `json:"amount,omitempty"` // display units
	Token  string            `json:"token,omitempty"`
	Detail map[string]string `json:"detail,omitempty"`
}

// DecodedTx is the display form of an unsigned transaction.
type DecodedTx struct {
	Chain   string            `json:"chain"`
	Signer  string            `json:"signer"`
	Actions []Action          `json:"actions"`
	Fee     string            `json:"fee,omitempty"` // display units
	Extra   map[string]string `json:"extra,omitempty"`
}

// DerivedAddress is one address produced from an HD path.
type DerivedAddress struct {
	Path      string `json:"path"`
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
}

// SingleTransfer returns the only transfer in transfers and checks its
// required fields.
func SingleTransfer(transfers []TransferInfo) (TransferInfo, error) {
	switch len(transfers) {
	case 0:
		return TransferInfo{}, vaulterr.Field("transfersInfo")
	case 1:
	default:
		return TransferInfo{}, vaulterr.ErrBatchNotSupported.With("count", len(transfers))
	}
	t := transfers[0]
	t.To = strings.TrimSpace(t.To)
	if t.From == "" {
		return TransferInfo{}, vaulterr.Field("from")
	}
	if t.To == "" {
		return TransferInfo{}, vaulterr.Field("to")
	}
	if t.Amount == "" {
		return TransferInfo{}, vaulterr.Field("amount")
	}
	return t, nil
}
