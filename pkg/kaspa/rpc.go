package kaspa

import (
	"encoding/hex"
)

// RPCOutpoint is the REST/JSON rendering of an outpoint.
type RPCOutpoint struct {
	TransactionID string `json:"transactionId"`
	Index         uint32 `json:"index"`
}

// RPCInput is the REST/JSON rendering of an input.
type RPCInput struct {
	PreviousOutpoint RPCOutpoint `json:"previousOutpoint"`
	SignatureScript  string      `json:"signatureScript"`
	Sequence         uint64      `json:"sequence"`
	SigOpCount       uint8       `json:"sigOpCount"`
}

// RPCScriptPublicKey is the REST/JSON rendering of a locking script.
type RPCScriptPublicKey struct {
	Version         uint16 `json:"version"`
	ScriptPublicKey string `json:"scriptPublicKey"`
}

// RPCOutput is the REST/JSON rendering of an output.
type RPCOutput struct {
	Amount          uint64             `json:"amount"`
	ScriptPublicKey RPCScriptPublicKey `json:"scriptPublicKey"`
}

// RPCTransaction is the body accepted by the Kaspa REST submit endpoint.
type RPCTransaction struct {
	Version      uint16      `json:"version"`
	Inputs       []RPCInput  `json:"inputs"`
	Outputs      []RPCOutput `json:"outputs"`
	LockTime     uint64      `json:"lockTime"`
	SubnetworkID string      `json:"subnetworkId"`
	Gas          uint64      `json:"gas,omitempty"`
	Payload      string      `json:"payload,omitempty"`
}

// ToRPC renders tx for the REST API.
func ToRPC(tx *Transaction) RPCTransaction {
	out := RPCTransaction{
		Version:      tx.Version,
		Inputs:       make([]RPCInput, len(tx.Inputs)),
		Outputs:      make([]RPCOutput, len(tx.Outputs)),
		LockTime:     tx.LockTime,
		SubnetworkID: hex.EncodeToString(tx.SubnetworkID[:]),
		Gas:          tx.Gas,
		Payload:      hex.EncodeToString(tx.Payload),
	}
	for i, in := range tx.Inputs {
		out.Inputs[i] = RPCInput{
			PreviousOutpoint: RPCOutpoint{
				TransactionID: in.PreviousOutpoint.TxID.String(),
				Index:         in.PreviousOutpoint.Index,
			},
			SignatureScript: hex.EncodeToString(in.SignatureScript),
			Sequence:        in.Sequence,
			SigOpCount:      in.SigOpCount,
		}
	}
	for i, o := range tx.Outputs {
		out.Outputs[i] = RPCOutput{
			Amount: o.Value,
			ScriptPublicKey: RPCScriptPublicKey{
				Version:         o.ScriptPublicKey.Version,
				ScriptPublicKey: hex.EncodeToString(o.ScriptPublicKey.Script),
			},
		}
	}
	return out
}
