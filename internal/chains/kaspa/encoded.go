package kaspa

import (
	kas "github.com/Klingon-tech/klingnet-vault/pkg/kaspa"
)

// CommitInfo describes the P2SH output that carries a KRC20 inscription.
type CommitInfo struct {
	RedeemScript []byte
	Address      string
	Data         kas.TransferData
}

// EncodedTx is an unsigned Kaspa transaction with its fee accounting.
type EncodedTx struct {
	Tx *kas.Transaction
	// Fee is the sompi paid: inputs minus outputs.
	Fee     uint64
	FeeRate uint64
	Mass    uint64
	// HasMaxSend is set when the whole balance is sent and the fee comes
	// out of the destination output.
	HasMaxSend bool

	// Commit is set on a KRC20 commit; output 0 pays the commit address.
	Commit *CommitInfo
	// Reveal is set on the transaction spending a commit output.
	Reveal *CommitInfo
}

// Chain implements vault.EncodedTx.
func (*EncodedTx) Chain() string { return ChainName }

// RequiresReveal reports whether a reveal must follow once this confirms.
func (e *EncodedTx) RequiresReveal() bool { return e.Commit != nil }

// Size returns the estimated serialized size of the signed transaction.
func (e *EncodedTx) Size() uint64 {
	return kas.SerializedSize(e.Tx, e.sigScriptSize())
}

func (e *EncodedTx) sigScriptSize() int {
	if e.Reveal != nil {
		return revealSigScriptSize(e.Reveal.RedeemScript)
	}
	return kas.SchnorrSignatureScriptSize
}

// revealSigScriptSize is the length of <sig+hashtype> <redeemScript>.
func revealSigScriptSize(redeem []byte) int {
	return kas.PushDataSize(65) + kas.PushDataSize(len(redeem))
}
