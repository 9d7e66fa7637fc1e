// Package journal records broadcast transactions so an identical payload can
// be resolved to its transaction id on re-broadcast.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Klingon-tech/klingnet-vault/internal/log"
	"github.com/Klingon-tech/klingnet-vault/internal/storage"
	"github.com/Klingon-tech/klingnet-vault/pkg/crypto"
	"github.com/Klingon-tech/klingnet-vault/pkg/types"
)

// Entry is one recorded broadcast.
type Entry struct {
	Chain     string     `json:"chain"`
	TxID      string     `json:"txid"`
	Digest    types.Hash `json:"digest"`
	Submitted time.Time  `json:"submitted"`
}

// Journal stores entries under the journal namespace of a DB.
type Journal struct {
	db  *storage.PrefixDB
	now func() time.Time
}

// New creates a journal over db.
func New(db storage.DB) *Journal {
	return &Journal{
		db:  storage.NewPrefixDB(db, storage.PrefixJournal),
		now: time.Now,
	}
}

// Digest returns the journal key digest of a raw payload.
func Digest(raw []byte) types.Hash {
	return crypto.Hash(raw)
}

func entryKey(chain string, digest types.Hash) []byte {
	return []byte(chain + "/" + digest.String())
}

// Record stores raw → txid for chain. Recording the same payload twice
// keeps the first entry.
func (j *Journal) Record(chain string, raw []byte, txid string) error {
	if txid == "" {
		return errors.New("journal: empty txid")
	}
	d := Digest(raw)
	key := entryKey(chain, d)
	if ok, err := j.db.Has(key); err != nil {
		return err
	} else if ok {
		return nil
	}
	data, err := json.Marshal(Entry{Chain: chain, TxID: txid, Digest: d, Submitted: j.now().UTC()})
	if err != nil {
		return fmt.Errorf("journal: marshal: %w", err)
	}
	if err := j.db.Put(key, data); err != nil {
		return fmt.Errorf("journal: put: %w", err)
	}
	log.Chain.Debug().Str("chain", chain).Str("txid", txid).Msg("Broadcast journaled")
	return nil
}

// Lookup returns the entry for a previously broadcast payload.
func (j *Journal) Lookup(chain string, raw []byte) (Entry, bool, error) {
	data, err := j.db.Get(entryKey(chain, Digest(raw)))
	if errors.Is(err, storage.ErrNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false, fmt.Errorf("journal: corrupt entry: %w", err)
	}
	return e, true, nil
}

// Entries returns the entries for chain, or all entries when chain is empty,
// newest first.
func (j *Journal) Entries(chain string) ([]Entry, error) {
	var prefix []byte
	if chain != "" {
		prefix = []byte(chain + "/")
	}
	var out []Entry
	err := j.db.ForEach(prefix, func(_, value []byte) error {
		var e Entry
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("journal: corrupt entry: %w", err)
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Submitted.After(out[b].Submitted) })
	return out, nil
}

// Prune drops entries older than age and returns how many were removed.
func (j *Journal) Prune(age time.Duration) (int, error) {
	cutoff := j.now().Add(-age)
	var stale [][]byte
	err := j.db.ForEach(nil, func(key, value []byte) error {
		var e Entry
		if err := json.Unmarshal(value, &e); err != nil || e.Submitted.Before(cutoff) {
			stale = append(stale, append([]byte(nil), key...))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	b := j.db.NewBatch()
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return 0, err
		}
	}
	if err := b.Commit(); err != nil {
		return 0, err
	}
	return len(stale), nil
}
