package aptos

import (
	apt "github.com/Klingon-tech/klingnet-vault/pkg/aptos"
)

// EncodedTx is an unsigned Aptos transaction envelope.
type EncodedTx struct {
	Tx *apt.Transaction
}

// Chain returns "aptos".
func (e *EncodedTx) Chain() string { return ChainName }

// MaxFee is the most the transaction can cost, in octas.
func (e *EncodedTx) MaxFee() uint64 {
	return e.Tx.Raw.MaxGasAmount * e.Tx.Raw.GasUnitPrice
}

// BCS returns the envelope as hex without a 0x marker.
func (e *EncodedTx) BCS() string {
	return e.Tx.SerializeHex()
}

// withRaw returns a copy of e carrying raw in the same envelope shape.
func (e *EncodedTx) withRaw(raw apt.RawTransaction) *EncodedTx {
	tx := *e.Tx
	tx.Raw = &raw
	return &EncodedTx{Tx: &tx}
}
