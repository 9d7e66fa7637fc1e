package chains

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/klingnet-vault/internal/chains/aptos"
	"github.com/Klingon-tech/klingnet-vault/internal/chains/evm"
	"github.com/Klingon-tech/klingnet-vault/internal/chains/kaspa"
	"github.com/Klingon-tech/klingnet-vault/internal/indexer"
	"github.com/Klingon-tech/klingnet-vault/internal/keyring"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
	kas "github.com/Klingon-tech/klingnet-vault/pkg/kaspa"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

type nopClient struct{ evm.Client }

func testParams() Params {
	return Params{
		Kaspa:        kaspa.DefaultConfig(kas.Testnet),
		Aptos:        aptos.DefaultConfig(),
		EVM:          evm.DefaultConfig(),
		KaspaIndexer: indexer.NewKaspa("http://127.0.0.1:1", indexer.Options{}),
		AptosNode:    indexer.NewAptos("http://127.0.0.1:1", indexer.Options{}),
		EVMClient:    nopClient{},
	}
}

func watchingSigner(t *testing.T, chain string, p Params) keyring.Signer {
	t.Helper()
	core, err := Core(chain, p)
	require.NoError(t, err)
	secret := bytes.Repeat([]byte{0x11}, 32)
	addr, err := core.AddressFromPrivateKey(secret)
	require.NoError(t, err)

	e, err := Lookup(chain)
	require.NoError(t, err)
	pub, err := crypto.PublicKeyFor(e.Scheme, secret)
	require.NoError(t, err)

	signer, err := keyring.New(wallet.Account{
		ID:         chain + "-watch",
		Chain:      chain,
		Address:    addr,
		PublicKey:  pub,
		Provenance: wallet.ProvenanceWatching,
	}, keyring.Deps{})
	require.NoError(t, err)
	return signer
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"aptos", "evm", "kaspa"}, Names())
}

func TestLookup(t *testing.T) {
	e, err := Lookup("kaspa")
	require.NoError(t, err)
	assert.Equal(t, crypto.SchemeSchnorr, e.Scheme)
	assert.Equal(t, kaspa.DefaultPathTemplate, e.PathTemplate)

	e, err = Lookup("aptos")
	require.NoError(t, err)
	assert.Equal(t, crypto.SchemeEd25519, e.Scheme)

	_, err = Lookup("dogecoin")
	assert.True(t, errors.Is(err, vaulterr.ErrNotSupported))
}

func TestNewVault_PerChain(t *testing.T) {
	p := testParams()
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			v, err := NewVault(watchingSigner(t, name, p), p)
			require.NoError(t, err)
			assert.Equal(t, name, v.Chain())
			assert.Equal(t, name+"-watch", v.Account().ID)
		})
	}
}

func TestNewVault_MissingClient(t *testing.T) {
	p := testParams()
	signers := map[string]keyring.Signer{}
	for _, name := range Names() {
		signers[name] = watchingSigner(t, name, p)
	}
	p.KaspaIndexer = nil
	p.AptosNode = nil
	p.EVMClient = nil
	for name, s := range signers {
		_, err := NewVault(s, p)
		assert.Error(t, err, name)
	}
}

func TestNewVault_UnknownChain(t *testing.T) {
	signer, err := keyring.New(wallet.Account{
		ID:         "x",
		Chain:      "solana",
		Provenance: wallet.ProvenanceWatching,
	}, keyring.Deps{})
	require.NoError(t, err)

	_, err = NewVault(signer, testParams())
	assert.True(t, errors.Is(err, vaulterr.ErrNotSupported))

	_, err = NewVault(nil, testParams())
	assert.Error(t, err)
}
