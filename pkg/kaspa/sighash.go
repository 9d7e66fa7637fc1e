package kaspa

import (
	"encoding/binary"
	"fmt"

	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
	"github.com/Klingon-tech/klingnet-vault/pkg/types"
)

const sigHashDomain = "TransactionSigningHash"

// SignatureHash computes the SigHashAll digest for input idx. Every input
// must carry its UTXO entry.
func SignatureHash(tx *Transaction, idx int) (types.Hash, error) {
	if idx < 0 || idx >= len(tx.Inputs) {
		return types.Hash{}, fmt.Errorf("input index %d out of range", idx)
	}
	in := tx.Inputs[idx]
	if in.UTXO == nil {
		return types.Hash{}, fmt.Errorf("input %d has no utxo entry", idx)
	}

	b := make([]byte, 0, 512)
	b = binary.LittleEndian.AppendUint16(b, tx.Version)
	prev := previousOutputsHash(tx)
	b = append(b, prev[:]...)
	seq := sequencesHash(tx)
	b = append(b, seq[:]...)
	ops := sigOpCountsHash(tx)
	b = append(b, ops[:]...)

	b = append(b, in.PreviousOutpoint.TxID[:]...)
	b = binary.LittleEndian.AppendUint32(b, in.PreviousOutpoint.Index)
	b = binary.LittleEndian.AppendUint16(b, in.UTXO.ScriptPublicKey.Version)
	b = appendVarBytes(b, in.UTXO.ScriptPublicKey.Script)
	b = binary.LittleEndian.AppendUint64(b, in.UTXO.Amount)
	b = binary.LittleEndian.AppendUint64(b, in.Sequence)
	b = append(b, in.SigOpCount)

	outs := outputsHash(tx)
	b = append(b, outs[:]...)
	b = binary.LittleEndian.AppendUint64(b, tx.LockTime)
	b = append(b, tx.SubnetworkID[:]...)
	b = binary.LittleEndian.AppendUint64(b, tx.Gas)
	payload := payloadHash(tx)
	b = append(b, payload[:]...)
	b = append(b, SigHashAll)

	return crypto.KeyedHash(sigHashDomain, b), nil
}

func previousOutputsHash(tx *Transaction) types.Hash {
	b := make([]byte, 0, len(tx.Inputs)*36)
	for _, in := range tx.Inputs {
		b = append(b, in.PreviousOutpoint.TxID[:]...)
		b = binary.LittleEndian.AppendUint32(b, in.PreviousOutpoint.Index)
	}
	return crypto.KeyedHash(sigHashDomain, b)
}

func sequencesHash(tx *Transaction) types.Hash {
	b := make([]byte, 0, len(tx.Inputs)*8)
	for _, in := range tx.Inputs {
		b = binary.LittleEndian.AppendUint64(b, in.Sequence)
	}
	return crypto.KeyedHash(sigHashDomain, b)
}

func sigOpCountsHash(tx *Transaction) types.Hash {
	b := make([]byte, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		b = append(b, in.SigOpCount)
	}
	return crypto.KeyedHash(sigHashDomain, b)
}

func outputsHash(tx *Transaction) types.Hash {
	b := make([]byte, 0, len(tx.Outputs)*52)
	for _, out := range tx.Outputs {
		b = binary.LittleEndian.AppendUint64(b, out.Value)
		b = binary.LittleEndian.AppendUint16(b, out.ScriptPublicKey.Version)
		b = appendVarBytes(b, out.ScriptPublicKey.Script)
	}
	return crypto.KeyedHash(sigHashDomain, b)
}

func payloadHash(tx *Transaction) types.Hash {
	if tx.SubnetworkID == SubnetworkIDNative && len(tx.Payload) == 0 {
		return types.Hash{}
	}
	return crypto.KeyedHash(sigHashDomain, appendVarBytes(nil, tx.Payload))
}
