package storage

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

type backend struct {
	name string
	open func(t *testing.T) DB
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) DB { return NewMemory() }},
		{"badger", func(t *testing.T) DB {
			db, err := NewBadger(t.TempDir())
			if err != nil {
				t.Fatalf("NewBadger: %v", err)
			}
			return db
		}},
		{"badger-inmemory", func(t *testing.T) DB {
			db, err := OpenBadger("", BadgerOptions{InMemory: true})
			if err != nil {
				t.Fatalf("OpenBadger: %v", err)
			}
			return db
		}},
	}
}

func eachBackend(t *testing.T, fn func(t *testing.T, db DB)) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			db := b.open(t)
			defer db.Close()
			fn(t, db)
		})
	}
}

func TestDB_ReadWrite(t *testing.T) {
	eachBackend(t, func(t *testing.T, db DB) {
		if _, err := db.Get([]byte("acct/missing")); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Get missing = %v, want ErrNotFound", err)
		}
		if ok, err := db.Has([]byte("acct/missing")); err != nil || ok {
			t.Fatalf("Has missing = %v, %v", ok, err)
		}

		db.Put([]byte("acct/a"), []byte("first"))
		db.Put([]byte("acct/a"), []byte("second"))
		got, err := db.Get([]byte("acct/a"))
		if err != nil || string(got) != "second" {
			t.Fatalf("Get after overwrite = %q, %v", got, err)
		}
		got[0] = 'X'
		if again, _ := db.Get([]byte("acct/a")); string(again) != "second" {
			t.Error("Get returned an aliased slice")
		}

		if err := db.Delete([]byte("acct/a")); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if ok, _ := db.Has([]byte("acct/a")); ok {
			t.Error("key present after Delete")
		}
		if err := db.Delete([]byte("acct/never")); err != nil {
			t.Errorf("Delete of absent key: %v", err)
		}
	})
}

func TestDB_Values(t *testing.T) {
	sealed := make([]byte, 256)
	for i := range sealed {
		sealed[i] = byte(i)
	}
	cases := map[string][]byte{
		"empty":        {},
		"sealed":       sealed,
		"\x00\x01\xff": []byte("binary key"),
	}
	eachBackend(t, func(t *testing.T, db DB) {
		for k, v := range cases {
			if err := db.Put([]byte(k), v); err != nil {
				t.Fatalf("Put %q: %v", k, err)
			}
		}
		for k, v := range cases {
			got, err := db.Get([]byte(k))
			if err != nil {
				t.Fatalf("Get %q: %v", k, err)
			}
			if !bytes.Equal(got, v) {
				t.Errorf("Get %q = %x, want %x", k, got, v)
			}
		}
	})
}

func TestDB_ForEach(t *testing.T) {
	eachBackend(t, func(t *testing.T, db DB) {
		for _, k := range []string{"tx/c", "tx/a", "tx/b", "txn", "wallet/x"} {
			db.Put([]byte(k), []byte(k))
		}

		var keys []string
		err := db.ForEach([]byte("tx/"), func(k, v []byte) error {
			if !bytes.Equal(k, v) {
				t.Errorf("value for %s = %s", k, v)
			}
			keys = append(keys, string(k))
			return nil
		})
		if err != nil {
			t.Fatalf("ForEach: %v", err)
		}
		if fmt.Sprint(keys) != "[tx/a tx/b tx/c]" {
			t.Errorf("keys = %v", keys)
		}

		stop := errors.New("stop")
		var n int
		err = db.ForEach([]byte("tx/"), func(_, _ []byte) error { n++; return stop })
		if !errors.Is(err, stop) || n != 1 {
			t.Errorf("early stop: n=%d err=%v", n, err)
		}

		n = 0
		db.ForEach([]byte("none/"), func(_, _ []byte) error { n++; return nil })
		if n != 0 {
			t.Errorf("empty prefix visited %d keys", n)
		}
	})
}

func TestDB_Batch(t *testing.T) {
	eachBackend(t, func(t *testing.T, db DB) {
		batcher, ok := db.(Batcher)
		if !ok {
			t.Fatalf("%T has no batches", db)
		}
		db.Put([]byte("secret/old"), []byte("x"))

		b := batcher.NewBatch()
		key, val := []byte("secret/new"), []byte("y")
		b.Put(key, val)
		b.Delete([]byte("secret/old"))
		key[0], val[0] = 'Z', 'Z'
		if err := b.Commit(); err != nil {
			t.Fatalf("Commit: %v", err)
		}
		if ok, _ := db.Has([]byte("secret/old")); ok {
			t.Error("batch delete not applied")
		}
		if v, _ := db.Get([]byte("secret/new")); string(v) != "y" {
			t.Errorf("batch put = %q", v)
		}
	})
}

func TestBadgerDB_Reopen(t *testing.T) {
	dir := t.TempDir()
	db, err := NewBadger(dir)
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	db.Put([]byte("wallet/main"), []byte("sealed"))

	if _, err := NewBadger(dir); !errors.Is(err, ErrLocked) {
		t.Errorf("second open = %v, want ErrLocked", err)
	}
	db.Close()

	db, err = NewBadger(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if v, err := db.Get([]byte("wallet/main")); err != nil || string(v) != "sealed" {
		t.Errorf("after reopen = %q, %v", v, err)
	}
}

func TestBadgerDB_BackupRestore(t *testing.T) {
	src, err := OpenBadger("", BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	ks := NewPrefixDB(src, PrefixKeystore)
	ks.Put([]byte("wallet/main"), []byte("sealed seed"))
	NewPrefixDB(src, PrefixJournal).Put([]byte("evm/abc"), []byte("entry"))

	var snap bytes.Buffer
	if err := src.Backup(&snap); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	dst, err := NewBadger(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Close()
	var _ Snapshotter = dst
	if err := dst.Restore(&snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if v, _ := NewPrefixDB(dst, PrefixKeystore).Get([]byte("wallet/main")); string(v) != "sealed seed" {
		t.Errorf("restored keystore value = %q", v)
	}
	if ok, _ := NewPrefixDB(dst, PrefixJournal).Has([]byte("evm/abc")); !ok {
		t.Error("journal entry missing after restore")
	}
}
