package indexer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Klingon-tech/klingnet-vault/pkg/kaspa"
	"github.com/Klingon-tech/klingnet-vault/pkg/types"
)

// KaspaUTXO is one unspent output as reported by the Kaspa REST indexer.
type KaspaUTXO struct {
	Outpoint types.Outpoint
	Entry    kaspa.UTXOEntry
}

// KaspaNetworkInfo is the subset of blockdag info the vault needs.
type KaspaNetworkInfo struct {
	NetworkName     string
	VirtualDAAScore uint64
}

// Kaspa is a client for the Kaspa REST API.
type Kaspa struct {
	rest *restClient
}

// NewKaspa creates a client for the REST API at baseURL.
func NewKaspa(baseURL string, opts Options) *Kaspa {
	return &Kaspa{rest: newREST("kaspa", baseURL, opts)}
}

type kaspaUTXOResponse struct {
	Outpoint struct {
		TransactionID string `json:"transactionId"`
		Index         uint32 `json:"index"`
	} `json:"outpoint"`
	UTXOEntry struct {
		Amount          Uint64 `json:"amount"`
		ScriptPublicKey struct {
			Version         uint16 `json:"version"`
			ScriptPublicKey string `json:"scriptPublicKey"`
		} `json:"scriptPublicKey"`
		BlockDAAScore Uint64 `json:"blockDaaScore"`
		IsCoinbase    bool   `json:"isCoinbase"`
	} `json:"utxoEntry"`
}

// UTXOs returns the unspent outputs of address. Entries with an unparseable
// outpoint or script are skipped.
func (k *Kaspa) UTXOs(ctx context.Context, address string) ([]KaspaUTXO, error) {
	var raw []kaspaUTXOResponse
	err := k.rest.do(ctx, request{
		op:     "utxos",
		method: http.MethodGet,
		path:   "/addresses/" + url.PathEscape(address) + "/utxos",
	}, &raw)
	if err != nil {
		return nil, err
	}
	out := make([]KaspaUTXO, 0, len(raw))
	for _, r := range raw {
		txid, err := types.HexToHash(r.Outpoint.TransactionID)
		if err != nil {
			continue
		}
		script, err := hex.DecodeString(r.UTXOEntry.ScriptPublicKey.ScriptPublicKey)
		if err != nil {
			continue
		}
		out = append(out, KaspaUTXO{
			Outpoint: types.Outpoint{TxID: txid, Index: r.Outpoint.Index},
			Entry: kaspa.UTXOEntry{
				Amount:          uint64(r.UTXOEntry.Amount),
				ScriptPublicKey: kaspa.ScriptPublicKey{Version: r.UTXOEntry.ScriptPublicKey.Version, Script: script},
				BlockDAAScore:   uint64(r.UTXOEntry.BlockDAAScore),
				IsCoinbase:      r.UTXOEntry.IsCoinbase,
			},
		})
	}
	return out, nil
}

// NetworkInfo returns the current virtual DAA score.
func (k *Kaspa) NetworkInfo(ctx context.Context) (KaspaNetworkInfo, error) {
	var raw struct {
		NetworkName     string `json:"networkName"`
		VirtualDAAScore Uint64 `json:"virtualDaaScore"`
	}
	err := k.rest.do(ctx, request{op: "blockdag", method: http.MethodGet, path: "/info/blockdag"}, &raw)
	if err != nil {
		return KaspaNetworkInfo{}, err
	}
	return KaspaNetworkInfo{NetworkName: raw.NetworkName, VirtualDAAScore: uint64(raw.VirtualDAAScore)}, nil
}

// TxStatus reports whether txid has been accepted. Unknown transactions are
// pending.
func (k *Kaspa) TxStatus(ctx context.Context, txid string) (TxStatus, error) {
	var raw struct {
		IsAccepted bool `json:"is_accepted"`
	}
	err := k.rest.do(ctx, request{
		op:     "tx",
		method: http.MethodGet,
		path:   "/transactions/" + url.PathEscape(txid) + "?inputs=false&outputs=false&resolve_previous_outpoints=no",
	}, &raw)
	if StatusOf(err) == http.StatusNotFound {
		return TxPending, nil
	}
	if err != nil {
		return TxPending, err
	}
	if raw.IsAccepted {
		return TxSuccess, nil
	}
	return TxPending, nil
}

// Submit broadcasts tx and returns its id.
func (k *Kaspa) Submit(ctx context.Context, tx kaspa.RPCTransaction) (string, error) {
	body, err := json.Marshal(struct {
		Transaction kaspa.RPCTransaction `json:"transaction"`
		AllowOrphan bool                 `json:"allowOrphan"`
	}{Transaction: tx})
	if err != nil {
		return "", fmt.Errorf("marshal transaction: %w", err)
	}
	var raw struct {
		TransactionID string `json:"transactionId"`
		Error         string `json:"error"`
	}
	err = k.rest.do(ctx, request{
		op:          "submit",
		method:      http.MethodPost,
		path:        "/transactions",
		body:        bytes.NewReader(body),
		contentType: "application/json",
	}, &raw)
	if err != nil {
		return "", err
	}
	if raw.Error != "" {
		return "", &HTTPError{Status: http.StatusOK, Body: raw.Error}
	}
	if raw.TransactionID == "" {
		return "", fmt.Errorf("kaspa submit: empty transaction id")
	}
	return raw.TransactionID, nil
}
