package kaspa

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// KRC20 inscription constants.
const (
	KRC20Protocol   = "krc-20"
	KRC20Envelope   = "kasplex"
	KRC20OpTransfer = "transfer"
)

// TransferData is the KRC20 transfer inscription. Field order is the wire order.
type TransferData struct {
	P    string `json:"p"`
	Op   string `json:"op"`
	Tick string `json:"tick"`
	Amt  string `json:"amt"`
	To   string `json:"to"`
}

// NewTransferData builds a transfer inscription. amt is in base units.
func NewTransferData(tick, amt, to string) TransferData {
	return TransferData{
		P:    KRC20Protocol,
		Op:   KRC20OpTransfer,
		Tick: strings.ToLower(tick),
		Amt:  amt,
		To:   to,
	}
}

// CommitScript returns the redeem script that commits to data and is
// spendable by the owner of xonly:
//
//	<xonly> OP_CHECKSIG OP_FALSE OP_IF "kasplex" 0 <json> OP_ENDIF
func CommitScript(xonly []byte, data TransferData) ([]byte, error) {
	if len(xonly) != 32 {
		return nil, fmt.Errorf("x-only public key must be 32 bytes, got %d", len(xonly))
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal inscription: %w", err)
	}
	return NewScriptBuilder().
		AddData(xonly).
		AddOp(OpCheckSig).
		AddOp(OpFalse).
		AddOp(OpIf).
		AddData([]byte(KRC20Envelope)).
		AddInt64(0).
		AddData(payload).
		AddOp(OpEndIf).
		Script()
}

// ParseCommitScript extracts the inscription from a commit redeem script.
func ParseCommitScript(script []byte) (TransferData, bool) {
	marker := append([]byte{byte(len(KRC20Envelope))}, KRC20Envelope...)
	i := bytes.Index(script, marker)
	if i < 0 {
		return TransferData{}, false
	}
	rest := script[i+len(marker):]
	if len(rest) < 2 || rest[0] != Op0 {
		return TransferData{}, false
	}
	data, ok := readPush(rest[1:])
	if !ok {
		return TransferData{}, false
	}
	var td TransferData
	if err := json.Unmarshal(data, &td); err != nil || td.P != KRC20Protocol {
		return TransferData{}, false
	}
	return td, true
}

func readPush(s []byte) ([]byte, bool) {
	if len(s) == 0 {
		return nil, false
	}
	op := s[0]
	var n, hdr int
	switch {
	case op >= OpData1 && op <= OpData75:
		n, hdr = int(op), 1
	case op == OpPushData1 && len(s) >= 2:
		n, hdr = int(s[1]), 2
	case op == OpPushData2 && len(s) >= 3:
		n, hdr = int(s[1])|int(s[2])<<8, 3
	default:
		return nil, false
	}
	if len(s) < hdr+n {
		return nil, false
	}
	return s[hdr : hdr+n], true
}
