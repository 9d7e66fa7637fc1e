package kaspa

// SerializedSize returns the byte size used for mass accounting. Inputs
// with an empty signature script are counted as carrying sigScriptSize bytes
// so unsigned transactions can be estimated.
func SerializedSize(tx *Transaction, sigScriptSize int) uint64 {
	size := uint64(2) // version
	size += 8         // input count
	for _, in := range tx.Inputs {
		n := len(in.SignatureScript)
		if n == 0 {
			n = sigScriptSize
		}
		size += 32 + 4 + 8 + uint64(n) + 8 + 1
	}
	size += 8 // output count
	for _, out := range tx.Outputs {
		size += 8 + 2 + 8 + uint64(len(out.ScriptPublicKey.Script))
	}
	size += 8                // lock time
	size += SubnetworkIDSize // subnetwork
	size += 8                // gas
	size += 32               // payload hash
	size += 8 + uint64(len(tx.Payload))
	return size
}

// Mass returns the transaction mass:
// size*MassPerTxByte + scriptPubKey bytes*MassPerScriptPubKeyByte + sigops*MassPerSigOp.
func Mass(tx *Transaction, sigScriptSize int) uint64 {
	mass := SerializedSize(tx, sigScriptSize) * MassPerTxByte

	var spkBytes uint64
	for _, out := range tx.Outputs {
		spkBytes += 2 + uint64(len(out.ScriptPublicKey.Script))
	}
	mass += spkBytes * MassPerScriptPubKeyByte

	var sigOps uint64
	for _, in := range tx.Inputs {
		ops := uint64(in.SigOpCount)
		if ops == 0 {
			ops = 1
		}
		sigOps += ops
	}
	return mass + sigOps*MassPerSigOp
}
