package kaspa

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/klingnet-vault/internal/indexer"
	"github.com/Klingon-tech/klingnet-vault/internal/keyring"
	"github.com/Klingon-tech/klingnet-vault/internal/metrics"
	"github.com/Klingon-tech/klingnet-vault/internal/vault"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
	kas "github.com/Klingon-tech/klingnet-vault/pkg/kaspa"
	"github.com/Klingon-tech/klingnet-vault/pkg/keyformat"
	"github.com/Klingon-tech/klingnet-vault/pkg/types"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

const virtualDAA = 1_000_000

var testSecret = bytes.Repeat([]byte{0x11}, 32)

// keySigner signs with a fixed secret.
type keySigner struct {
	acct  wallet.Account
	calls int
}

func (s *keySigner) Account() wallet.Account { return s.acct }

func (s *keySigner) Sign(_ context.Context, req keyring.SignRequest) ([][]byte, error) {
	s.calls++
	out := make([][]byte, len(req.Payloads))
	for i, p := range req.Payloads {
		sig, err := crypto.SignDigest(req.Scheme, testSecret, p)
		if err != nil {
			return nil, err
		}
		out[i] = sig
	}
	return out, nil
}

func (s *keySigner) ExportSecret(context.Context, crypto.Scheme, []byte) ([]byte, error) {
	return append([]byte(nil), testSecret...), nil
}

type fakeIndexer struct {
	mu          sync.Mutex
	utxos       []indexer.KaspaUTXO
	statuses    []indexer.TxStatus
	statusErrs  []error
	statusCalls int
	utxoCalls   int
	submitted   []kas.RPCTransaction
	submitErr   error
}

func (f *fakeIndexer) UTXOs(context.Context, string) ([]indexer.KaspaUTXO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.utxoCalls++
	return f.utxos, nil
}

func (f *fakeIndexer) NetworkInfo(context.Context) (indexer.KaspaNetworkInfo, error) {
	return indexer.KaspaNetworkInfo{NetworkName: "kaspa-testnet", VirtualDAAScore: virtualDAA}, nil
}

func (f *fakeIndexer) TxStatus(context.Context, string) (indexer.TxStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.statusCalls
	f.statusCalls++
	if i < len(f.statusErrs) && f.statusErrs[i] != nil {
		return indexer.TxPending, f.statusErrs[i]
	}
	if len(f.statuses) == 0 {
		return indexer.TxPending, nil
	}
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return f.statuses[i], nil
}

func (f *fakeIndexer) Submit(_ context.Context, tx kas.RPCTransaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, tx)
	return fmt.Sprintf("%064x", len(f.submitted)), nil
}

func (f *fakeIndexer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

func testAccount(t *testing.T) wallet.Account {
	t.Helper()
	pub, err := crypto.PublicKeyFor(crypto.SchemeSchnorr, testSecret)
	require.NoError(t, err)
	addr, err := NewCore(kas.Testnet).AddressFromPublicKey(pub)
	require.NoError(t, err)
	return wallet.Account{
		ID:         wallet.AccountID(wallet.ProvenanceImported, ChainName, addr),
		Chain:      ChainName,
		Address:    addr,
		PublicKey:  pub,
		Provenance: wallet.ProvenanceImported,
	}
}

func testConfig() Config {
	cfg := DefaultConfig(kas.Testnet)
	cfg.CommitPollInterval = 5 * time.Millisecond
	cfg.CommitTimeout = 200 * time.Millisecond
	return cfg
}

// utxo returns a confirmed output; older outputs get lower DAA scores.
func utxo(t *testing.T, acct wallet.Account, n int, value, age uint64) indexer.KaspaUTXO {
	t.Helper()
	addr, err := kas.DecodeAddress(acct.Address, kas.Testnet.Prefix)
	require.NoError(t, err)
	spk, err := kas.PayToAddrScript(addr)
	require.NoError(t, err)
	var id types.Hash
	id[0], id[1] = byte(n), byte(n>>8)
	return indexer.KaspaUTXO{
		Outpoint: types.Outpoint{TxID: id, Index: uint32(n)},
		Entry:    kas.UTXOEntry{Amount: value, ScriptPublicKey: spk, BlockDAAScore: virtualDAA - age},
	}
}

func newVault(t *testing.T, cfg Config, values ...uint64) (*Vault, *fakeIndexer, *keySigner) {
	t.Helper()
	acct := testAccount(t)
	idx := &fakeIndexer{}
	for i, v := range values {
		idx.utxos = append(idx.utxos, utxo(t, acct, i, v, uint64(1000-i)))
	}
	signer := &keySigner{acct: acct}
	v, err := New(cfg, signer, idx)
	require.NoError(t, err)
	return v, idx, signer
}

func otherAddress(t *testing.T) string {
	t.Helper()
	addr, err := kas.NewPubKeyAddress(bytes.Repeat([]byte{0x42}, 32), kas.Testnet.Prefix)
	require.NoError(t, err)
	return addr.String()
}

func transfer(from, to, amt string) []vault.TransferInfo {
	return []vault.TransferInfo{{From: from, To: to, Amount: amt}}
}

func build(t *testing.T, v *Vault, transfers []vault.TransferInfo) (*EncodedTx, error) {
	t.Helper()
	enc, err := v.BuildEncodedTx(context.Background(), transfers)
	if err != nil {
		return nil, err
	}
	return enc.(*EncodedTx), nil
}

func TestBuild_TransferWithChange(t *testing.T) {
	v, _, _ := newVault(t, testConfig(), 5*kas.SompiPerKaspa, 3*kas.SompiPerKaspa)
	to := otherAddress(t)

	enc, err := build(t, v, transfer(v.acct.Address, to, "1"))
	require.NoError(t, err)

	require.Len(t, enc.Tx.Inputs, 1)
	assert.Equal(t, uint64(5*kas.SompiPerKaspa), enc.Tx.Inputs[0].UTXO.Amount, "oldest output first")
	require.Len(t, enc.Tx.Outputs, 2)
	assert.Equal(t, uint64(kas.SompiPerKaspa), enc.Tx.Outputs[0].Value)
	assert.True(t, enc.Tx.Outputs[1].ScriptPublicKey.Equal(v.ownScript))
	assert.False(t, enc.HasMaxSend)
	assert.Equal(t, enc.Tx.TotalIn(), enc.Tx.TotalOut()+enc.Fee)
	assert.Equal(t, enc.Mass*kas.DefaultFeeRate, enc.Fee)
}

func TestBuild_ExactTotalIsMaxSend(t *testing.T) {
	v, _, _ := newVault(t, testConfig(), 1*kas.SompiPerKaspa, 2*kas.SompiPerKaspa)

	enc, err := build(t, v, transfer(v.acct.Address, otherAddress(t), "3"))
	require.NoError(t, err)

	assert.True(t, enc.HasMaxSend)
	require.Len(t, enc.Tx.Inputs, 2)
	require.Len(t, enc.Tx.Outputs, 1, "no change on a max send")
	assert.Positive(t, enc.Fee)
	assert.Equal(t, 3*kas.SompiPerKaspa-enc.Fee, enc.Tx.Outputs[0].Value, "fee paid by the destination")
}

func TestBuild_DustChangeFoldedIntoFee(t *testing.T) {
	probe, _, _ := newVault(t, testConfig(), 10*kas.SompiPerKaspa)
	first, err := build(t, probe, transfer(probe.acct.Address, otherAddress(t), "1"))
	require.NoError(t, err)
	fee := first.Fee

	v, _, _ := newVault(t, testConfig(), kas.SompiPerKaspa+fee+100)
	enc, err := build(t, v, transfer(v.acct.Address, otherAddress(t), "1"))
	require.NoError(t, err)

	require.Len(t, enc.Tx.Outputs, 1)
	assert.Equal(t, fee+100, enc.Fee)
	assert.False(t, enc.HasMaxSend)
}

func TestBuild_OnlyConfirmedOutputs(t *testing.T) {
	cfg := testConfig()
	v, idx, _ := newVault(t, cfg, kas.SompiPerKaspa)
	fresh := utxo(t, v.acct, 99, 50*kas.SompiPerKaspa, cfg.ConfirmationCount-1)
	idx.utxos = append(idx.utxos, fresh)

	_, err := build(t, v, transfer(v.acct.Address, otherAddress(t), "10"))
	require.ErrorIs(t, err, vaulterr.ErrInsufficientFunds)

	var verr *vaulterr.Error
	require.True(t, errors.As(err, &verr))
	avail, _ := verr.Attr("available")
	assert.Equal(t, fmt.Sprint(kas.SompiPerKaspa), avail)
}

func TestBuild_Validation(t *testing.T) {
	v, _, _ := newVault(t, testConfig(), kas.SompiPerKaspa)
	to := otherAddress(t)

	_, err := build(t, v, transfer(v.acct.Address, to, "0.000001"))
	assert.ErrorIs(t, err, vaulterr.ErrAmountTooSmall)

	_, err = build(t, v, transfer(v.acct.Address, "kaspa:"+to[len("kaspatest:"):], "0.1"))
	assert.ErrorIs(t, err, vaulterr.ErrInvalidDestination)

	_, err = build(t, v, append(transfer(v.acct.Address, to, "0.1"), transfer(v.acct.Address, to, "0.2")...))
	assert.ErrorIs(t, err, vaulterr.ErrBatchNotSupported)

	_, err = build(t, v, []vault.TransferInfo{{From: v.acct.Address, To: to, Amount: "0.1", FeeRate: "abc"}})
	assert.ErrorIs(t, err, vaulterr.ErrInvalidFee)
}

func TestBuild_UTXOSetFetchedPerBuild(t *testing.T) {
	v, idx, _ := newVault(t, testConfig(), 5*kas.SompiPerKaspa)
	for i := 0; i < 2; i++ {
		_, err := build(t, v, transfer(v.acct.Address, otherAddress(t), "1"))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, idx.utxoCalls)
	assert.Zero(t, v.utxos.Len())
}

func TestBuild_SizeRetryPrefersLargest(t *testing.T) {
	values := make([]uint64, 0, 151)
	for i := 0; i < 150; i++ {
		values = append(values, 50_000)
	}
	values = append(values, 10*kas.SompiPerKaspa) // newest
	v, idx, _ := newVault(t, testConfig(), values...)
	before := testutil.ToFloat64(metrics.SizeRetries.WithLabelValues(ChainName))

	enc, err := build(t, v, transfer(v.acct.Address, otherAddress(t), "0.05"))
	require.NoError(t, err)

	require.Len(t, enc.Tx.Inputs, 1)
	assert.Equal(t, uint64(10*kas.SompiPerKaspa), enc.Tx.Inputs[0].UTXO.Amount)
	assert.LessOrEqual(t, enc.Mass, kas.MaxOrphanTxMass)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SizeRetries.WithLabelValues(ChainName)))
	assert.Equal(t, 1, idx.utxoCalls, "retry reselects from the set already fetched")
	assert.Zero(t, v.utxos.Len(), "set dropped when the build returns")
}

func TestBuild_TooLargeAfterRetry(t *testing.T) {
	values := make([]uint64, 200)
	for i := range values {
		values[i] = 50_000
	}
	v, _, _ := newVault(t, testConfig(), values...)

	_, err := build(t, v, transfer(v.acct.Address, otherAddress(t), "0.05"))
	require.ErrorIs(t, err, vaulterr.ErrTransactionTooLarge)
	assert.Equal(t, vaulterr.KindResource, vaulterr.KindOf(err))
}

func TestBuild_UTXOLimitReportsMaxSpendable(t *testing.T) {
	values := make([]uint64, 600)
	for i := range values {
		values[i] = 100_000
	}
	v, _, _ := newVault(t, testConfig(), values...)

	_, err := build(t, v, transfer(v.acct.Address, otherAddress(t), "0.55"))
	require.ErrorIs(t, err, vaulterr.ErrUTXOLimitExceeded)

	var verr *vaulterr.Error
	require.True(t, errors.As(err, &verr))
	maxSpendable, ok := verr.Attr("maxSpendable")
	require.True(t, ok)
	assert.Equal(t, "0.5", maxSpendable, "top 500 inputs by value")
	limit, _ := verr.Attr("limit")
	assert.Equal(t, "500", limit)
}

func TestSignAndBroadcast(t *testing.T) {
	v, idx, signer := newVault(t, testConfig(), 2*kas.SompiPerKaspa, 2*kas.SompiPerKaspa)
	enc, err := build(t, v, transfer(v.acct.Address, otherAddress(t), "3"))
	require.NoError(t, err)
	unsigned, err := vault.BuildUnsignedTx(enc, transfer(v.acct.Address, otherAddress(t), "3")[0])
	require.NoError(t, err)

	signed, err := v.SignTransaction(context.Background(), unsigned, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, signer.calls, "one request for every input")
	assert.Empty(t, signed.TxID)

	signedTx := signed.Encoded.(*EncodedTx).Tx
	pub, _ := crypto.XOnly(v.acct.PublicKey)
	for i, in := range signedTx.Inputs {
		require.Len(t, in.SignatureScript, kas.SchnorrSignatureScriptSize)
		assert.Equal(t, kas.SigHashAll, in.SignatureScript[65])
		h, err := kas.SignatureHash(signedTx, i)
		require.NoError(t, err)
		assert.True(t, crypto.VerifySchnorr(h.Bytes(), in.SignatureScript[1:65], pub))
	}
	assert.Empty(t, enc.Tx.Inputs[0].SignatureScript, "encoded tx left untouched")

	decoded, err := kas.Deserialize(signed.Raw)
	require.NoError(t, err)
	assert.Equal(t, signedTx.ID(), decoded.ID())
	assert.Equal(t, enc.Tx.TotalOut(), decoded.TotalOut())

	out, err := v.Broadcast(context.Background(), signed)
	require.NoError(t, err)
	assert.NotEmpty(t, out.TxID)
	require.Len(t, idx.submitted, 1)
	assert.Len(t, idx.submitted[0].Inputs, 2)
}

func TestSign_WatchingAccount(t *testing.T) {
	v, _, _ := newVault(t, testConfig(), 2*kas.SompiPerKaspa)
	enc, err := build(t, v, transfer(v.acct.Address, otherAddress(t), "1"))
	require.NoError(t, err)

	watching, err := keyring.New(wallet.Account{ID: "w", Chain: ChainName, Address: v.acct.Address, Provenance: wallet.ProvenanceWatching}, keyring.Deps{})
	require.NoError(t, err)
	_, err = v.core.SignTransaction(context.Background(), watching, &vault.UnsignedTx{Encoded: enc}, nil)
	assert.ErrorIs(t, err, vaulterr.ErrSigningNotSupported)
}

func tokenTransfer(from, to string) vault.TransferInfo {
	return vault.TransferInfo{
		From:   from,
		To:     to,
		Amount: "12.5",
		Token:  &vault.TokenInfo{Address: "KASP", Symbol: "KASP", Decimals: 8},
	}
}

func TestKRC20_CommitShape(t *testing.T) {
	v, _, _ := newVault(t, testConfig(), 5*kas.SompiPerKaspa)
	to := otherAddress(t)

	enc, err := build(t, v, []vault.TransferInfo{tokenTransfer(v.acct.Address, to)})
	require.NoError(t, err)

	require.NotNil(t, enc.Commit)
	assert.True(t, vault.RequiresReveal(enc))
	assert.Equal(t, kas.KRC20CommitAmount, enc.Tx.Outputs[0].Value)

	commitAddr, err := kas.DecodeAddress(enc.Commit.Address, kas.Testnet.Prefix)
	require.NoError(t, err)
	spk, err := kas.PayToAddrScript(commitAddr)
	require.NoError(t, err)
	assert.True(t, enc.Tx.Outputs[0].ScriptPublicKey.Equal(spk))

	data, ok := kas.ParseCommitScript(enc.Commit.RedeemScript)
	require.True(t, ok)
	assert.Equal(t, kas.TransferData{P: "krc-20", Op: "transfer", Tick: "kasp", Amt: "1250000000", To: to}, data)

	decoded := v.BuildDecodedTx(&vault.UnsignedTx{Encoded: enc, Transfer: tokenTransfer(v.acct.Address, to)})
	require.Len(t, decoded.Actions, 1)
	assert.Equal(t, vault.ActionTokenTransfer, decoded.Actions[0].Kind)
	assert.Equal(t, "12.5", decoded.Actions[0].Amount)
	assert.Equal(t, "commit", decoded.Actions[0].Detail["phase"])
}

func sendCommit(t *testing.T, v *Vault) *vault.SignedTx {
	t.Helper()
	tt := tokenTransfer(v.acct.Address, otherAddress(t))
	enc, err := v.BuildEncodedTx(context.Background(), []vault.TransferInfo{tt})
	require.NoError(t, err)
	unsigned, err := vault.BuildUnsignedTx(enc, tt)
	require.NoError(t, err)
	signed, err := v.SignTransaction(context.Background(), unsigned, nil)
	require.NoError(t, err)
	signed, err = v.Broadcast(context.Background(), signed)
	require.NoError(t, err)
	return signed
}

func TestKRC20_RevealAfterCommitConfirms(t *testing.T) {
	v, idx, _ := newVault(t, testConfig(), 5*kas.SompiPerKaspa)
	commit := sendCommit(t, v)
	idx.statuses = []indexer.TxStatus{indexer.TxPending, indexer.TxPending, indexer.TxSuccess}

	unsigned, err := v.AfterSend(context.Background(), commit)
	require.NoError(t, err)
	require.NotNil(t, unsigned)
	assert.Equal(t, 3, idx.calls(), "reveal built only after success")
	assert.Equal(t, commit.TxID, unsigned.RevealOf)

	reveal := unsigned.Encoded.(*EncodedTx)
	require.NotNil(t, reveal.Reveal)
	assert.False(t, reveal.RequiresReveal())
	require.Len(t, reveal.Tx.Inputs, 1)
	assert.Equal(t, commit.TxID, reveal.Tx.Inputs[0].PreviousOutpoint.TxID.String())
	assert.Equal(t, uint32(0), reveal.Tx.Inputs[0].PreviousOutpoint.Index)
	require.Len(t, reveal.Tx.Outputs, 1)
	assert.True(t, reveal.Tx.Outputs[0].ScriptPublicKey.Equal(v.ownScript))
	assert.Equal(t, kas.KRC20CommitAmount-reveal.Fee, reveal.Tx.Outputs[0].Value)

	signed, err := v.SignTransaction(context.Background(), unsigned, nil)
	require.NoError(t, err)
	script := signed.Encoded.(*EncodedTx).Tx.Inputs[0].SignatureScript
	assert.True(t, bytes.HasSuffix(script, reveal.Reveal.RedeemScript), "P2SH unlock carries the redeem script")
	assert.Equal(t, byte(65), script[0])
}

func TestKRC20_CommitTimeoutNeverReveals(t *testing.T) {
	cfg := testConfig()
	cfg.CommitTimeout = 50 * time.Millisecond
	v, idx, signer := newVault(t, cfg, 5*kas.SompiPerKaspa)
	commit := sendCommit(t, v)
	signs := signer.calls

	unsigned, err := v.AfterSend(context.Background(), commit)
	require.ErrorIs(t, err, vaulterr.ErrCommitTimeout)
	assert.Nil(t, unsigned)
	assert.Equal(t, vaulterr.KindTiming, vaulterr.KindOf(err))
	assert.Positive(t, idx.calls())
	assert.Equal(t, signs, signer.calls)
	assert.Len(t, idx.submitted, 1, "only the commit was submitted")
}

func TestKRC20_CommitFailed(t *testing.T) {
	v, idx, _ := newVault(t, testConfig(), 5*kas.SompiPerKaspa)
	commit := sendCommit(t, v)
	idx.statuses = []indexer.TxStatus{indexer.TxFailed}

	unsigned, err := v.AfterSend(context.Background(), commit)
	assert.ErrorIs(t, err, vaulterr.ErrCommitFailed)
	assert.Nil(t, unsigned)
}

func TestKRC20_TransientStatusRetried(t *testing.T) {
	v, idx, _ := newVault(t, testConfig(), 5*kas.SompiPerKaspa)
	commit := sendCommit(t, v)
	idx.statusErrs = []error{vaulterr.Transient(errors.New("connection reset"))}
	idx.statuses = []indexer.TxStatus{indexer.TxPending, indexer.TxSuccess}

	unsigned, err := v.AfterSend(context.Background(), commit)
	require.NoError(t, err)
	assert.NotNil(t, unsigned)
}

func TestKRC20_CancelStopsPoll(t *testing.T) {
	v, idx, _ := newVault(t, testConfig(), 5*kas.SompiPerKaspa)
	commit := sendCommit(t, v)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	unsigned, err := v.AfterSend(ctx, commit)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, unsigned)

	n := idx.calls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, idx.calls(), "no polling after cancel")
}

func TestAfterSend_NativeTransferHasNoFollowUp(t *testing.T) {
	v, idx, _ := newVault(t, testConfig(), 5*kas.SompiPerKaspa)
	enc, err := build(t, v, transfer(v.acct.Address, otherAddress(t), "1"))
	require.NoError(t, err)

	unsigned, err := v.AfterSend(context.Background(), &vault.SignedTx{TxID: "ab", Encoded: enc})
	require.NoError(t, err)
	assert.Nil(t, unsigned)
	assert.Zero(t, idx.calls())
}

func TestEngine_TokenSendRunsReveal(t *testing.T) {
	v, idx, _ := newVault(t, testConfig(), 5*kas.SompiPerKaspa)
	idx.statuses = []indexer.TxStatus{indexer.TxSuccess}

	res, err := vault.NewEngine(v).Send(context.Background(), tokenTransfer(v.acct.Address, otherAddress(t)), vault.SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, vault.StageRevealSubmitted, res.Stage)
	require.NotNil(t, res.Reveal)
	assert.Len(t, idx.submitted, 2)
}

func TestUpdateUnsignedTx(t *testing.T) {
	v, _, _ := newVault(t, testConfig(), 5*kas.SompiPerKaspa)
	tt := transfer(v.acct.Address, otherAddress(t), "1")[0]
	enc, err := build(t, v, []vault.TransferInfo{tt})
	require.NoError(t, err)
	unsigned, err := vault.BuildUnsignedTx(enc, tt)
	require.NoError(t, err)

	updated, err := v.UpdateUnsignedTx(context.Background(), unsigned, vault.FeeInfo{GasPrice: "0.00000002", GasLimit: "3000"})
	require.NoError(t, err)
	re := updated.Encoded.(*EncodedTx)
	assert.Equal(t, uint64(2), re.FeeRate)
	assert.Equal(t, 2*enc.Fee, re.Fee)
	assert.Equal(t, "2", updated.Transfer.FeeRate)

	_, err = v.UpdateUnsignedTx(context.Background(), unsigned, vault.FeeInfo{GasPrice: "0.00000002"})
	assert.ErrorIs(t, err, vaulterr.ErrMissingField)
	_, err = v.UpdateUnsignedTx(context.Background(), unsigned, vault.FeeInfo{GasPrice: "NaN", GasLimit: "1"})
	assert.ErrorIs(t, err, vaulterr.ErrInvalidFee)
}

func TestBuildDecodedTx(t *testing.T) {
	v, _, _ := newVault(t, testConfig(), 5*kas.SompiPerKaspa)
	to := otherAddress(t)
	enc, err := build(t, v, transfer(v.acct.Address, to, "1.5"))
	require.NoError(t, err)

	d := v.BuildDecodedTx(&vault.UnsignedTx{Encoded: enc})
	require.Len(t, d.Actions, 1)
	assert.Equal(t, vault.ActionTransfer, d.Actions[0].Kind)
	assert.Equal(t, to, d.Actions[0].To)
	assert.Equal(t, "1.5", d.Actions[0].Amount)
	assert.NotEmpty(t, d.Fee)

	d = v.BuildDecodedTx(nil)
	assert.Equal(t, vault.ActionUnknown, d.Actions[0].Kind)
	d = v.BuildDecodedTx(&vault.UnsignedTx{Encoded: &EncodedTx{}})
	assert.Equal(t, vault.ActionUnknown, d.Actions[0].Kind)
}

func TestCore_Addresses(t *testing.T) {
	core := NewCore(kas.Testnet)
	pub, err := crypto.PublicKeyFor(crypto.SchemeSchnorr, testSecret)
	require.NoError(t, err)

	fromPub, err := core.AddressFromPublicKey(pub)
	require.NoError(t, err)
	fromPriv, err := core.AddressFromPrivateKey(testSecret)
	require.NoError(t, err)
	assert.Equal(t, fromPub, fromPriv)
	assert.True(t, kas.IsValidAddress(fromPub, "kaspatest"))

	_, err = core.AddressFromPrivateKey(make([]byte, 32))
	assert.ErrorIs(t, err, vaulterr.ErrInvalidKeyFormat)

	seed := make([]byte, 64)
	addrs, err := core.AddressesFromHDPath(context.Background(), seed, DefaultPathTemplate, []uint32{0, 1})
	require.NoError(t, err)
	require.Len(t, addrs, 2)
	assert.Equal(t, "m/44'/111111'/0'/0/1", addrs[1].Path)
	assert.NotEqual(t, addrs[0].Address, addrs[1].Address)

	raw, _ := hex.DecodeString(addrs[0].PublicKey)
	again, err := core.AddressFromPublicKey(raw)
	require.NoError(t, err)
	assert.Equal(t, addrs[0].Address, again)
}

func TestCore_ExportAndMessage(t *testing.T) {
	core := NewCore(kas.Testnet)
	signer := &keySigner{acct: testAccount(t)}
	ctx := context.Background()
	body := hex.EncodeToString(testSecret)

	got, err := core.ExportSecretKey(ctx, signer, nil, "")
	require.NoError(t, err)
	assert.Equal(t, body, got)

	got, err = core.ExportSecretKey(ctx, signer, nil, keyformat.Legacy)
	require.NoError(t, err)
	assert.Equal(t, "0x"+body, got)

	got, err = core.ExportSecretKey(ctx, signer, nil, keyformat.AIP80)
	require.NoError(t, err)
	assert.Equal(t, "secp256k1-priv-0x"+body, got)

	watching, err := keyring.New(wallet.Account{ID: "w", Provenance: wallet.ProvenanceWatching}, keyring.Deps{})
	require.NoError(t, err)
	_, err = core.ExportSecretKey(ctx, watching, nil, "")
	assert.ErrorIs(t, err, vaulterr.ErrNotSupported)

	_, err = core.SignMessage(ctx, signer, []byte("hi"), nil)
	assert.ErrorIs(t, err, vaulterr.ErrNotSupported)
}
