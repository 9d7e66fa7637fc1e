package storage

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// ErrLocked is returned when another process holds the database directory.
var ErrLocked = errors.New("database is locked by another klingvault process")

// BadgerOptions tunes a badger store.
type BadgerOptions struct {
	// InMemory keeps all data in RAM. The path is ignored.
	InMemory bool
	// SyncWrites fsyncs each commit before it returns.
	SyncWrites bool
}

// BadgerDB implements DB, Batcher and Snapshotter on badger.
type BadgerDB struct {
	db *badger.DB
}

// NewBadger opens the vault database at path with synced writes.
func NewBadger(path string) (*BadgerDB, error) {
	return OpenBadger(path, BadgerOptions{SyncWrites: true})
}

// OpenBadger opens a store with explicit options.
func OpenBadger(path string, o BadgerOptions) (*BadgerDB, error) {
	dir := path
	if o.InMemory {
		dir = ""
	}
	// The keystore and journal hold a few KB; small tables keep the
	// footprint of an idle vault low.
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithInMemory(o.InMemory).
		WithSyncWrites(o.SyncWrites).
		WithNumVersionsToKeep(1).
		WithMemTableSize(8 << 20).
		WithValueLogFileSize(16 << 20)

	db, err := badger.Open(opts)
	switch {
	case err == nil:
		return &BadgerDB{db: db}, nil
	case isLockError(err):
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	default:
		return nil, fmt.Errorf("open database at %s: %w", path, err)
	}
}

func isLockError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Cannot acquire directory lock") ||
		strings.Contains(msg, "resource temporarily unavailable")
}

// lookup reads key inside one read transaction. A missing key is not an error.
func (b *BadgerDB) lookup(key []byte, copyValue bool) (val []byte, found bool, err error) {
	err = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		found = true
		if copyValue {
			val, err = item.ValueCopy(nil)
		}
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	return val, found, err
}

func (b *BadgerDB) Get(key []byte) ([]byte, error) {
	val, found, err := b.lookup(key, true)
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}
	if val == nil {
		val = []byte{}
	}
	return val, nil
}

func (b *BadgerDB) Has(key []byte) (bool, error) {
	_, found, err := b.lookup(key, false)
	if err != nil {
		return false, fmt.Errorf("badger has: %w", err)
	}
	return found, nil
}

func (b *BadgerDB) Put(key, value []byte) error {
	return b.update("put", func(txn *badger.Txn) error { return txn.Set(key, value) })
}

func (b *BadgerDB) Delete(key []byte) error {
	return b.update("delete", func(txn *badger.Txn) error { return txn.Delete(key) })
}

func (b *BadgerDB) update(op string, fn func(*badger.Txn) error) error {
	if err := b.db.Update(fn); err != nil {
		return fmt.Errorf("badger %s: %w", op, err)
	}
	return nil
}

// ForEach visits keys under prefix in order. Keys and values are copies.
func (b *BadgerDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(item.KeyCopy(nil), val); err != nil {
				return err
			}
		}
		return nil
	})
}

// NewBatch returns a batch backed by a badger WriteBatch.
func (b *BadgerDB) NewBatch() Batch {
	return &badgerBatch{wb: b.db.NewWriteBatch()}
}

type badgerBatch struct {
	wb *badger.WriteBatch
}

// WriteBatch keeps references until Flush.
func (bb *badgerBatch) Put(key, value []byte) error {
	return bb.wb.Set(clone(key), clone(value))
}

func (bb *badgerBatch) Delete(key []byte) error {
	return bb.wb.Delete(clone(key))
}

func (bb *badgerBatch) Commit() error {
	if err := bb.wb.Flush(); err != nil {
		return fmt.Errorf("badger batch: %w", err)
	}
	return nil
}

// Backup streams a full snapshot to w.
func (b *BadgerDB) Backup(w io.Writer) error {
	if _, err := b.db.Backup(w, 0); err != nil {
		return fmt.Errorf("badger backup: %w", err)
	}
	return nil
}

// Restore loads a snapshot written by Backup. Existing keys are overwritten.
func (b *BadgerDB) Restore(r io.Reader) error {
	if err := b.db.Load(r, 16); err != nil {
		return fmt.Errorf("badger restore: %w", err)
	}
	return nil
}

func (b *BadgerDB) Close() error {
	return b.db.Close()
}

func clone(b []byte) []byte {
	return append([]byte{}, b...)
}
