package indexer

import (
	"bytes"
	"context"
	"net/http"
	"net/url"

	"github.com/Klingon-tech/klingnet-vault/pkg/aptos"
)

// AptosAccount is the on-chain state needed to build a transaction.
type AptosAccount struct {
	SequenceNumber    uint64
	AuthenticationKey string
}

// AptosLedger is the node's ledger info.
type AptosLedger struct {
	ChainID             uint8
	LedgerVersion       uint64
	LedgerTimestampUsec uint64
}

// AptosGasEstimate holds gas unit prices in octas.
type AptosGasEstimate struct {
	Deprioritized uint64
	Normal        uint64
	Prioritized   uint64
}

// Aptos is a client for the Aptos node REST API (/v1).
type Aptos struct {
	rest *restClient
}

// NewAptos creates a client for the node at baseURL, which includes /v1.
func NewAptos(baseURL string, opts Options) *Aptos {
	return &Aptos{rest: newREST("aptos", baseURL, opts)}
}

// Account returns the sequence number and auth key of address.
func (a *Aptos) Account(ctx context.Context, address string) (AptosAccount, error) {
	var raw struct {
		SequenceNumber    Uint64 `json:"sequence_number"`
		AuthenticationKey string `json:"authentication_key"`
	}
	err := a.rest.do(ctx, request{op: "account", method: http.MethodGet, path: "/accounts/" + url.PathEscape(address)}, &raw)
	if err != nil {
		return AptosAccount{}, err
	}
	return AptosAccount{SequenceNumber: uint64(raw.SequenceNumber), AuthenticationKey: raw.AuthenticationKey}, nil
}

// Ledger returns chain id and ledger time.
func (a *Aptos) Ledger(ctx context.Context) (AptosLedger, error) {
	var raw struct {
		ChainID         uint8  `json:"chain_id"`
		LedgerVersion   Uint64 `json:"ledger_version"`
		LedgerTimestamp Uint64 `json:"ledger_timestamp"`
	}
	if err := a.rest.do(ctx, request{op: "ledger", method: http.MethodGet, path: "/"}, &raw); err != nil {
		return AptosLedger{}, err
	}
	return AptosLedger{
		ChainID:             raw.ChainID,
		LedgerVersion:       uint64(raw.LedgerVersion),
		LedgerTimestampUsec: uint64(raw.LedgerTimestamp),
	}, nil
}

// GasPrice returns the node's gas unit price estimate.
func (a *Aptos) GasPrice(ctx context.Context) (AptosGasEstimate, error) {
	var raw struct {
		Deprioritized Uint64 `json:"deprioritized_gas_estimate"`
		Normal        Uint64 `json:"gas_estimate"`
		Prioritized   Uint64 `json:"prioritized_gas_estimate"`
	}
	if err := a.rest.do(ctx, request{op: "gas", method: http.MethodGet, path: "/estimate_gas_price"}, &raw); err != nil {
		return AptosGasEstimate{}, err
	}
	est := AptosGasEstimate{
		Deprioritized: uint64(raw.Deprioritized),
		Normal:        uint64(raw.Normal),
		Prioritized:   uint64(raw.Prioritized),
	}
	if est.Deprioritized == 0 {
		est.Deprioritized = est.Normal
	}
	if est.Prioritized == 0 {
		est.Prioritized = est.Normal
	}
	return est, nil
}

// Submit posts a BCS signed transaction and returns its hash.
func (a *Aptos) Submit(ctx context.Context, signed []byte) (string, error) {
	var raw struct {
		Hash string `json:"hash"`
	}
	err := a.rest.do(ctx, request{
		op:          "submit",
		method:      http.MethodPost,
		path:        "/transactions",
		body:        bytes.NewReader(signed),
		contentType: "application/x.aptos.signed_transaction+bcs",
	}, &raw)
	if err != nil {
		return "", err
	}
	return raw.Hash, nil
}

// TxStatus looks up a transaction by hash. Unknown and pending transactions
// are pending; committed ones succeed or fail on their VM status.
func (a *Aptos) TxStatus(ctx context.Context, hash string) (TxStatus, error) {
	var raw struct {
		Type     string `json:"type"`
		Success  bool   `json:"success"`
		VMStatus string `json:"vm_status"`
	}
	err := a.rest.do(ctx, request{op: "tx", method: http.MethodGet, path: "/transactions/by_hash/" + url.PathEscape(hash)}, &raw)
	if StatusOf(err) == http.StatusNotFound {
		return TxPending, nil
	}
	if err != nil {
		return TxPending, err
	}
	switch {
	case raw.Type == "pending_transaction":
		return TxPending, nil
	case raw.Success:
		return TxSuccess, nil
	default:
		return TxFailed, nil
	}
}

// Simulate dry-runs a transaction signed with a zero signature and returns
// the gas used.
func (a *Aptos) Simulate(ctx context.Context, tx *aptos.Transaction, publicKey []byte) (uint64, error) {
	st, err := aptos.Sign(tx, publicKey, make([]byte, 64))
	if err != nil {
		return 0, err
	}
	var raw []struct {
		GasUsed  Uint64 `json:"gas_used"`
		Success  bool   `json:"success"`
		VMStatus string `json:"vm_status"`
	}
	err = a.rest.do(ctx, request{
		op:          "simulate",
		method:      http.MethodPost,
		path:        "/transactions/simulate",
		body:        bytes.NewReader(st.Serialize()),
		contentType: "application/x.aptos.signed_transaction+bcs",
	}, &raw)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, &HTTPError{Status: http.StatusOK, Body: "empty simulation result"}
	}
	if !raw[0].Success {
		return uint64(raw[0].GasUsed), &HTTPError{Status: http.StatusOK, Body: raw[0].VMStatus}
	}
	return uint64(raw[0].GasUsed), nil
}
