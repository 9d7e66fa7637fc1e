package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/klingnet-vault/internal/storage"
)

func TestJournal_RecordLookup(t *testing.T) {
	j := New(storage.NewMemory())
	raw := []byte{0x01, 0x02, 0x03}

	_, ok, err := j.Lookup("kaspa", raw)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, j.Record("kaspa", raw, "abc"))
	e, ok, err := j.Lookup("kaspa", raw)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", e.TxID)
	assert.Equal(t, Digest(raw), e.Digest)

	// chains are separate
	_, ok, _ = j.Lookup("aptos", raw)
	assert.False(t, ok)
}

func TestJournal_FirstRecordWins(t *testing.T) {
	j := New(storage.NewMemory())
	raw := []byte("payload")
	require.NoError(t, j.Record("evm", raw, "first"))
	require.NoError(t, j.Record("evm", raw, "second"))
	e, _, _ := j.Lookup("evm", raw)
	assert.Equal(t, "first", e.TxID)
	assert.Error(t, j.Record("evm", []byte("x"), ""))
}

func TestJournal_EntriesAndPrune(t *testing.T) {
	db := storage.NewMemory()
	j := New(db)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return now }
	require.NoError(t, j.Record("kaspa", []byte("old"), "t1"))
	now = now.Add(48 * time.Hour)
	require.NoError(t, j.Record("kaspa", []byte("new"), "t2"))
	require.NoError(t, j.Record("aptos", []byte("new"), "t3"))

	all, err := j.Entries("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	kas, err := j.Entries("kaspa")
	require.NoError(t, err)
	require.Len(t, kas, 2)
	assert.Equal(t, "t2", kas[0].TxID)

	n, err := j.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok, _ := j.Lookup("kaspa", []byte("old"))
	assert.False(t, ok)

	// other namespaces untouched
	require.NoError(t, db.Put([]byte("ks/x"), []byte("y")))
	_, err = j.Prune(0)
	require.NoError(t, err)
	has, _ := db.Has([]byte("ks/x"))
	assert.True(t, has)
}
