package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// EncodedTx is an unsigned EIP-1559 transaction.
type EncodedTx struct {
	Tx   *types.Transaction
	From common.Address
}

// Chain returns "evm".
func (e *EncodedTx) Chain() string { return ChainName }

// MaxFee is gas limit times fee cap, in wei.
func (e *EncodedTx) MaxFee() *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(e.Tx.Gas()), e.Tx.GasFeeCap())
}

// dynamicFee returns a copy of the transaction's fields.
func (e *EncodedTx) dynamicFee() *types.DynamicFeeTx {
	tx := e.Tx
	return &types.DynamicFeeTx{
		ChainID:   tx.ChainId(),
		Nonce:     tx.Nonce(),
		GasTipCap: tx.GasTipCap(),
		GasFeeCap: tx.GasFeeCap(),
		Gas:       tx.Gas(),
		To:        tx.To(),
		Value:     tx.Value(),
		Data:      tx.Data(),
	}
}
