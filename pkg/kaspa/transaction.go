package kaspa

import (
	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
	"github.com/Klingon-tech/klingnet-vault/pkg/types"
)

// UTXOEntry describes the output an input spends. It is not serialized but
// is required for signature hashing.
type UTXOEntry struct {
	Amount          uint64
	ScriptPublicKey ScriptPublicKey
	BlockDAAScore   uint64
	IsCoinbase      bool
}

// Input spends a previous output.
type Input struct {
	PreviousOutpoint types.Outpoint
	SignatureScript  []byte
	Sequence         uint64
	SigOpCount       uint8
	UTXO             *UTXOEntry
}

// Output creates a new spendable output.
type Output struct {
	Value           uint64
	ScriptPublicKey ScriptPublicKey
}

// Transaction is a Kaspa transaction.
type Transaction struct {
	Version      uint16
	Inputs       []*Input
	Outputs      []*Output
	LockTime     uint64
	SubnetworkID SubnetworkID
	Gas          uint64
	Payload      []byte
}

// ID returns the transaction id, which excludes signature scripts.
func (tx *Transaction) ID() types.Hash {
	return crypto.KeyedHash("TransactionID", serialize(tx, excludeSignatureScript))
}

// TotalIn sums the amounts of the inputs' UTXO entries.
func (tx *Transaction) TotalIn() uint64 {
	var sum uint64
	for _, in := range tx.Inputs {
		if in.UTXO != nil {
			sum += in.UTXO.Amount
		}
	}
	return sum
}

// TotalOut sums output values.
func (tx *Transaction) TotalOut() uint64 {
	var sum uint64
	for _, out := range tx.Outputs {
		sum += out.Value
	}
	return sum
}

// Clone returns a deep copy.
func (tx *Transaction) Clone() *Transaction {
	c := &Transaction{
		Version:      tx.Version,
		LockTime:     tx.LockTime,
		SubnetworkID: tx.SubnetworkID,
		Gas:          tx.Gas,
		Payload:      append([]byte(nil), tx.Payload...),
		Inputs:       make([]*Input, len(tx.Inputs)),
		Outputs:      make([]*Output, len(tx.Outputs)),
	}
	for i, in := range tx.Inputs {
		ci := *in
		ci.SignatureScript = append([]byte(nil), in.SignatureScript...)
		if in.UTXO != nil {
			u := *in.UTXO
			u.ScriptPublicKey.Script = append([]byte(nil), in.UTXO.ScriptPublicKey.Script...)
			ci.UTXO = &u
		}
		c.Inputs[i] = &ci
	}
	for i, out := range tx.Outputs {
		co := *out
		co.ScriptPublicKey.Script = append([]byte(nil), out.ScriptPublicKey.Script...)
		c.Outputs[i] = &co
	}
	return c
}
