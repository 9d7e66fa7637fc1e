package aptos

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/klingnet-vault/internal/indexer"
	"github.com/Klingon-tech/klingnet-vault/internal/keyring"
	"github.com/Klingon-tech/klingnet-vault/internal/vault"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	apt "github.com/Klingon-tech/klingnet-vault/pkg/aptos"
	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
	"github.com/Klingon-tech/klingnet-vault/pkg/keyformat"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

const (
	ledgerUsec = 1_700_000_000_000_000
	ledgerSecs = 1_700_000_000
	coinType   = "0x1::usdc::USDC"
)

var testSeed = bytes.Repeat([]byte{0x22}, 32)

type keySigner struct {
	acct wallet.Account
}

func (s *keySigner) Account() wallet.Account { return s.acct }

func (s *keySigner) Sign(_ context.Context, req keyring.SignRequest) ([][]byte, error) {
	out := make([][]byte, len(req.Payloads))
	for i, p := range req.Payloads {
		sig, err := crypto.SignDigest(req.Scheme, testSeed, p)
		if err != nil {
			return nil, err
		}
		out[i] = sig
	}
	return out, nil
}

func (s *keySigner) ExportSecret(context.Context, crypto.Scheme, []byte) ([]byte, error) {
	return append([]byte(nil), testSeed...), nil
}

type fakeNode struct {
	mu         sync.Mutex
	sequence   uint64
	noAccount  bool
	gas        uint64
	ledgerUsec uint64
	submitted  [][]byte
	submitErr  error
	status     indexer.TxStatus
}

func (f *fakeNode) Account(context.Context, string) (indexer.AptosAccount, error) {
	if f.noAccount {
		return indexer.AptosAccount{}, &indexer.HTTPError{Status: 404, Body: "account_not_found"}
	}
	return indexer.AptosAccount{SequenceNumber: f.sequence}, nil
}

func (f *fakeNode) Ledger(context.Context) (indexer.AptosLedger, error) {
	ts := f.ledgerUsec
	if ts == 0 {
		ts = ledgerUsec
	}
	return indexer.AptosLedger{ChainID: 2, LedgerVersion: 10, LedgerTimestampUsec: ts}, nil
}

func (f *fakeNode) GasPrice(context.Context) (indexer.AptosGasEstimate, error) {
	return indexer.AptosGasEstimate{Deprioritized: f.gas, Normal: f.gas, Prioritized: f.gas}, nil
}

func (f *fakeNode) Submit(_ context.Context, signed []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, signed)
	st, err := apt.DeserializeSigned(signed)
	if err != nil {
		return "", err
	}
	return st.Hash(), nil
}

func (f *fakeNode) TxStatus(context.Context, string) (indexer.TxStatus, error) {
	return f.status, nil
}

type simulatingNode struct {
	*fakeNode
	used uint64
}

func (s *simulatingNode) Simulate(context.Context, *apt.Transaction, []byte) (uint64, error) {
	return s.used, nil
}

func testAccount(t *testing.T) wallet.Account {
	t.Helper()
	addr, err := NewCore().AddressFromPrivateKey(testSeed)
	require.NoError(t, err)
	pub, err := crypto.PublicKeyFor(crypto.SchemeEd25519, testSeed)
	require.NoError(t, err)
	return wallet.Account{
		ID:         wallet.AccountID(wallet.ProvenanceImported, ChainName, addr),
		Chain:      ChainName,
		Address:    addr,
		PublicKey:  pub,
		Provenance: wallet.ProvenanceImported,
	}
}

func newVault(t *testing.T, node Indexer) (*Vault, *keySigner) {
	t.Helper()
	s := &keySigner{acct: testAccount(t)}
	v, err := New(DefaultConfig(), s, node)
	require.NoError(t, err)
	return v, s
}

func destination() string {
	return apt.AccountAddress{0: 0xab, 31: 0xcd}.StringLong()
}

func transfer(from, amt string) vault.TransferInfo {
	return vault.TransferInfo{From: from, To: destination(), Amount: amt}
}

func build(t *testing.T, v *Vault, tr vault.TransferInfo) *EncodedTx {
	t.Helper()
	enc, err := v.BuildEncodedTx(context.Background(), []vault.TransferInfo{tr})
	require.NoError(t, err)
	return enc.(*EncodedTx)
}

func TestBuild_NativeTransfer(t *testing.T) {
	node := &fakeNode{sequence: 7, gas: 150}
	v, _ := newVault(t, node)

	enc := build(t, v, transfer(v.Account().Address, "1.5"))
	raw := enc.Tx.Raw
	assert.Equal(t, apt.ShapeSimple, enc.Tx.Shape)
	assert.Equal(t, uint64(7), raw.SequenceNumber)
	assert.Equal(t, uint64(150), raw.GasUnitPrice)
	assert.Equal(t, DefaultConfig().MaxGasAmount, raw.MaxGasAmount)
	assert.Equal(t, uint64(ledgerSecs+60), raw.ExpirationTimestampSecs)
	assert.Equal(t, uint8(2), raw.ChainID)
	assert.Equal(t, v.Account().Address, raw.Sender.StringLong())

	tr, ok := apt.ParseTransfer(raw.Payload)
	require.True(t, ok)
	assert.Equal(t, apt.NativeCoinType, tr.CoinType)
	assert.Equal(t, uint64(150_000_000), tr.Amount)
	assert.Equal(t, destination(), tr.To.StringLong())
	assert.Equal(t, "0x1::aptos_account::transfer", raw.Payload.(*apt.EntryFunction).FunctionID())
}

func TestBuild_CoinTransfer(t *testing.T) {
	v, _ := newVault(t, &fakeNode{gas: 100})
	tr := transfer(v.Account().Address, "2.25")
	tr.Token = &vault.TokenInfo{Address: coinType, Symbol: "USDC", Decimals: 6}

	enc := build(t, v, tr)
	ef := enc.Tx.Raw.Payload.(*apt.EntryFunction)
	assert.Equal(t, "0x1::aptos_account::transfer_coins", ef.FunctionID())
	parsed, ok := apt.ParseTransfer(ef)
	require.True(t, ok)
	assert.Equal(t, coinType, parsed.CoinType)
	assert.Equal(t, uint64(2_250_000), parsed.Amount)
}

func TestBuild_FreshAccountStartsAtZero(t *testing.T) {
	v, _ := newVault(t, &fakeNode{noAccount: true, gas: 100})
	enc := build(t, v, transfer(v.Account().Address, "1"))
	assert.Zero(t, enc.Tx.Raw.SequenceNumber)
}

func TestBuild_GasPriceFloorAndOverride(t *testing.T) {
	v, _ := newVault(t, &fakeNode{gas: 0})
	enc := build(t, v, transfer(v.Account().Address, "1"))
	assert.Equal(t, uint64(100), enc.Tx.Raw.GasUnitPrice)

	tr := transfer(v.Account().Address, "1")
	tr.FeeRate = "250.2"
	enc = build(t, v, tr)
	assert.Equal(t, uint64(251), enc.Tx.Raw.GasUnitPrice)

	tr.FeeRate = "-1"
	_, err := v.BuildEncodedTx(context.Background(), []vault.TransferInfo{tr})
	assert.ErrorIs(t, err, vaulterr.ErrInvalidFee)
}

func TestBuild_SimulationSizesGas(t *testing.T) {
	node := &simulatingNode{fakeNode: &fakeNode{gas: 100}, used: 1000}
	s := &keySigner{acct: testAccount(t)}
	cfg := DefaultConfig()
	cfg.SimulateGas = true
	v, err := New(cfg, s, node)
	require.NoError(t, err)

	enc := build(t, v, transfer(v.Account().Address, "1"))
	assert.Equal(t, uint64(1500), enc.Tx.Raw.MaxGasAmount)
}

func TestBuild_Validation(t *testing.T) {
	v, _ := newVault(t, &fakeNode{gas: 100})
	from := v.Account().Address
	ctx := context.Background()

	tests := []struct {
		name string
		in   []vault.TransferInfo
		want error
	}{
		{"empty batch", nil, vaulterr.ErrMissingField},
		{"batch", []vault.TransferInfo{transfer(from, "1"), transfer(from, "2")}, vaulterr.ErrBatchNotSupported},
		{"bad destination", []vault.TransferInfo{{From: from, To: "0xzz", Amount: "1"}}, vaulterr.ErrInvalidDestination},
		{"zero amount", []vault.TransferInfo{transfer(from, "0")}, vaulterr.ErrAmountTooSmall},
		{"too precise", []vault.TransferInfo{transfer(from, "0.000000001")}, vaulterr.ErrInvalidAmount},
		{"bad coin type", []vault.TransferInfo{{From: from, To: destination(), Amount: "1", Token: &vault.TokenInfo{Address: "nope", Decimals: 6}}}, vaulterr.ErrNotSupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.BuildEncodedTx(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSignAndBroadcast(t *testing.T) {
	node := &fakeNode{sequence: 3, gas: 100}
	v, _ := newVault(t, node)
	ctx := context.Background()

	tr := transfer(v.Account().Address, "0.1")
	enc := build(t, v, tr)
	unsigned, err := vault.BuildUnsignedTx(enc, tr)
	require.NoError(t, err)

	signed, err := v.SignTransaction(ctx, unsigned, nil)
	require.NoError(t, err)
	st, err := apt.DeserializeSigned(signed.Raw)
	require.NoError(t, err)
	assert.Equal(t, v.Account().PublicKey, st.PublicKey)
	assert.True(t, ed25519.Verify(st.PublicKey, enc.Tx.SigningMessage(), st.Signature))
	assert.Equal(t, st.Hash(), signed.TxID)

	sent, err := v.Broadcast(ctx, signed)
	require.NoError(t, err)
	assert.Equal(t, signed.TxID, sent.TxID)
	require.Len(t, node.submitted, 1)
	assert.Equal(t, signed.Raw, node.submitted[0])

	node.submitErr = errors.New("boom")
	_, err = v.Broadcast(ctx, signed)
	assert.ErrorContains(t, err, "aptos broadcast")
}

func TestSign_Rejections(t *testing.T) {
	v, s := newVault(t, &fakeNode{gas: 100})
	ctx := context.Background()
	tr := transfer(v.Account().Address, "1")
	enc := build(t, v, tr)

	multi := &EncodedTx{Tx: &apt.Transaction{Shape: apt.ShapeMultiAgent, Raw: enc.Tx.Raw, SecondarySigners: []apt.AccountAddress{apt.AddressOne}}}
	_, err := v.SignTransaction(ctx, &vault.UnsignedTx{Encoded: multi}, nil)
	assert.ErrorIs(t, err, vaulterr.ErrNotSupported)

	watching, err := keyring.New(wallet.Account{
		ID: "watching--aptos--x", Chain: ChainName, Address: s.acct.Address,
		PublicKey: s.acct.PublicKey, Provenance: wallet.ProvenanceWatching,
	}, keyring.Deps{})
	require.NoError(t, err)
	_, err = NewCore().SignTransaction(ctx, watching, &vault.UnsignedTx{Encoded: enc}, nil)
	assert.ErrorIs(t, err, vaulterr.ErrSigningNotSupported)

	_, err = v.SignTransaction(ctx, nil, nil)
	assert.ErrorIs(t, err, vaulterr.ErrMissingField)
}

func TestUpdateUnsignedTx(t *testing.T) {
	node := &fakeNode{gas: 100}
	v, _ := newVault(t, node)
	ctx := context.Background()
	tr := transfer(v.Account().Address, "1")
	enc := build(t, v, tr)
	unsigned, err := vault.BuildUnsignedTx(enc, tr)
	require.NoError(t, err)

	node.ledgerUsec = ledgerUsec + 120_000_000
	updated, err := v.UpdateUnsignedTx(ctx, unsigned, vault.FeeInfo{GasPrice: "0.0000015", GasLimit: "300000"})
	require.NoError(t, err)
	raw := updated.Encoded.(*EncodedTx).Tx.Raw
	assert.Equal(t, uint64(150), raw.GasUnitPrice)
	assert.Equal(t, uint64(300_000), raw.MaxGasAmount)
	assert.Equal(t, uint64(ledgerSecs+180), raw.ExpirationTimestampSecs)
	assert.Equal(t, enc.Tx.Raw.SequenceNumber, raw.SequenceNumber)
	// the original is untouched
	assert.Equal(t, uint64(100), enc.Tx.Raw.GasUnitPrice)

	lower, err := v.UpdateUnsignedTx(ctx, unsigned, vault.FeeInfo{GasPrice: "0.000001", GasLimit: "10"})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().MaxGasAmount, lower.Encoded.(*EncodedTx).Tx.Raw.MaxGasAmount)

	for _, fee := range []vault.FeeInfo{{GasPrice: "NaN"}, {GasPrice: "0"}, {GasPrice: "0.000000001"}, {GasPrice: "0.000001", GasLimit: "1.5"}} {
		_, err := v.UpdateUnsignedTx(ctx, unsigned, fee)
		assert.ErrorIs(t, err, vaulterr.ErrInvalidFee, "fee %+v", fee)
	}
}

func TestBuildDecodedTx(t *testing.T) {
	v, _ := newVault(t, &fakeNode{gas: 100})
	tr := transfer(v.Account().Address, "1.5")
	enc := build(t, v, tr)

	d := v.BuildDecodedTx(&vault.UnsignedTx{Encoded: enc, Transfer: tr})
	require.Len(t, d.Actions, 1)
	a := d.Actions[0]
	assert.Equal(t, vault.ActionTransfer, a.Kind)
	assert.Equal(t, "1.5", a.Amount)
	assert.Equal(t, NativeSymbol, a.Token)
	assert.Equal(t, destination(), a.To)
	assert.Equal(t, "0.2", d.Fee)
	assert.Equal(t, "simple", d.Extra["shape"])

	tok := transfer(v.Account().Address, "3")
	tok.Token = &vault.TokenInfo{Address: coinType, Symbol: "USDC", Decimals: 6}
	d = v.BuildDecodedTx(&vault.UnsignedTx{Encoded: build(t, v, tok), Transfer: tok})
	assert.Equal(t, vault.ActionTokenTransfer, d.Actions[0].Kind)
	assert.Equal(t, "3", d.Actions[0].Amount)
	assert.Equal(t, "USDC", d.Actions[0].Token)

	other := &EncodedTx{Tx: &apt.Transaction{Raw: &apt.RawTransaction{
		Sender:  apt.AddressOne,
		Payload: &apt.EntryFunction{Module: apt.ModuleID{Address: apt.AddressOne, Name: "dex"}, Function: "swap"},
	}}}
	d = v.BuildDecodedTx(&vault.UnsignedTx{Encoded: other})
	assert.Equal(t, vault.ActionUnknown, d.Actions[0].Kind)
	assert.Equal(t, "0x1::dex::swap", d.Actions[0].Detail["function"])

	assert.Equal(t, vault.ActionUnknown, v.BuildDecodedTx(nil).Actions[0].Kind)
}

func TestEncodedRoundTrip(t *testing.T) {
	v, _ := newVault(t, &fakeNode{gas: 100})
	enc := build(t, v, transfer(v.Account().Address, "1"))
	back, err := apt.DeserializeHex(enc.BCS())
	require.NoError(t, err)
	assert.Equal(t, enc.Tx.Serialize(), back.Serialize())
}

func TestAfterSendIsNoop(t *testing.T) {
	v, _ := newVault(t, &fakeNode{gas: 100})
	next, err := v.AfterSend(context.Background(), &vault.SignedTx{TxID: "0x1"})
	assert.NoError(t, err)
	assert.Nil(t, next)
}

func TestCore_Addresses(t *testing.T) {
	c := NewCore()
	pub, err := crypto.PublicKeyFor(crypto.SchemeEd25519, testSeed)
	require.NoError(t, err)

	addr, err := c.AddressFromPublicKey(pub)
	require.NoError(t, err)
	sum := crypto.Sha3(pub, []byte{0})
	assert.Equal(t, "0x"+hex.EncodeToString(sum[:]), addr)

	_, err = c.AddressFromPublicKey(pub[:31])
	assert.Error(t, err)
	_, err = c.AddressFromPrivateKey([]byte{1, 2})
	assert.ErrorIs(t, err, vaulterr.ErrInvalidKeyFormat)

	seed := bytes.Repeat([]byte{0x05}, 64)
	derived, err := c.AddressesFromHDPath(context.Background(), seed, DefaultPathTemplate, []uint32{0, 1})
	require.NoError(t, err)
	require.Len(t, derived, 2)
	assert.Equal(t, "m/44'/637'/0'/0'/0'", derived[0].Path)
	assert.Equal(t, "m/44'/637'/1'/0'/0'", derived[1].Path)
	assert.NotEqual(t, derived[0].Address, derived[1].Address)

	key, _, err := wallet.DeriveEd25519(seed, derived[1].Path)
	require.NoError(t, err)
	want, err := c.AddressFromPrivateKey(key)
	require.NoError(t, err)
	assert.Equal(t, want, derived[1].Address)

	_, err = c.AddressesFromHDPath(context.Background(), seed, "m/44'/637'/{index}'/0/0", []uint32{0})
	assert.Error(t, err, "ed25519 rejects unhardened components")
}

func TestCore_ExportAndMessage(t *testing.T) {
	c := NewCore()
	s := &keySigner{acct: testAccount(t)}
	ctx := context.Background()

	aip80, err := c.ExportSecretKey(ctx, s, nil, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(aip80, "ed25519-priv-0x"))
	assert.True(t, keyformat.IsAIP80Format(aip80))

	legacy, err := c.ExportSecretKey(ctx, s, nil, keyformat.Legacy)
	require.NoError(t, err)
	assert.Equal(t, "0x"+hex.EncodeToString(testSeed), legacy)

	_, err = c.ExportSecretKey(ctx, &keyring.Watching{}, nil, "")
	assert.ErrorIs(t, err, vaulterr.ErrNotSupported)

	msg := []byte("hello aptos")
	sigHex, err := c.SignMessage(ctx, s, msg, nil)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sigHex, "0x"))
	sig, err := hex.DecodeString(sigHex[2:])
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(s.acct.PublicKey, msg, sig))

	_, err = c.SignMessage(ctx, s, nil, nil)
	assert.ErrorIs(t, err, vaulterr.ErrMissingField)
}
