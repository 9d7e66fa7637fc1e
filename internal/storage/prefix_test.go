package storage

import (
	"errors"
	"testing"
)

func TestPrefixDB_Isolation(t *testing.T) {
	inner := NewMemory()
	ks := NewPrefixDB(inner, PrefixKeystore)
	jr := NewPrefixDB(inner, PrefixJournal)

	if err := ks.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := jr.Put([]byte("a"), []byte("2")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := ks.Get([]byte("a"))
	if err != nil || string(got) != "1" {
		t.Fatalf("keystore Get = %q, %v", got, err)
	}
	got, _ = jr.Get([]byte("a"))
	if string(got) != "2" {
		t.Fatalf("journal Get = %q", got)
	}
	raw, _ := inner.Get([]byte("ks/a"))
	if string(raw) != "1" {
		t.Errorf("inner key ks/a = %q", raw)
	}

	if err := ks.Delete([]byte("a")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := ks.Has([]byte("a")); ok {
		t.Error("key still present after Delete")
	}
	if ok, _ := jr.Has([]byte("a")); !ok {
		t.Error("delete leaked into another namespace")
	}
	if _, err := ks.Get([]byte("a")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestPrefixDB_ForEachStripsPrefix(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(inner, []byte("ns/"))
	db.Put([]byte("acct/1"), []byte("x"))
	db.Put([]byte("acct/2"), []byte("y"))
	db.Put([]byte("seed"), []byte("z"))
	inner.Put([]byte("acct/3"), []byte("outside"))

	var keys []string
	err := db.ForEach([]byte("acct/"), func(k, _ []byte) error {
		keys = append(keys, string(k))
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if len(keys) != 2 || keys[0] != "acct/1" || keys[1] != "acct/2" {
		t.Errorf("keys = %v", keys)
	}
}

func TestPrefixDB_DeleteAll(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(inner, []byte("ns/"))
	for _, k := range []string{"a", "b", "c"} {
		db.Put([]byte(k), []byte(k))
	}
	inner.Put([]byte("keep"), []byte("1"))

	if err := db.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	var n int
	db.ForEach(nil, func(_, _ []byte) error { n++; return nil })
	if n != 0 {
		t.Errorf("%d keys left in namespace", n)
	}
	if ok, _ := inner.Has([]byte("keep")); !ok {
		t.Error("DeleteAll removed a key outside the namespace")
	}
}

func TestPrefixDB_Batch(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(inner, []byte("ns/"))
	db.Put([]byte("old"), []byte("1"))

	b := db.NewBatch()
	b.Put([]byte("new"), []byte("2"))
	b.Delete([]byte("old"))
	if ok, _ := db.Has([]byte("new")); ok {
		t.Fatal("batch visible before Commit")
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if ok, _ := db.Has([]byte("old")); ok {
		t.Error("old key survived batch delete")
	}
	if v, _ := inner.Get([]byte("ns/new")); string(v) != "2" {
		t.Errorf("ns/new = %q", v)
	}
}

func TestPrefixDB_BufferedBatch(t *testing.T) {
	inner := NewMemory()
	// Hide MemoryDB.NewBatch.
	db := NewPrefixDB(struct{ DB }{inner}, []byte("ns/"))
	b := db.NewBatch()
	if _, ok := b.(*bufferedBatch); !ok {
		t.Fatalf("batch type = %T, want buffered", b)
	}
	b.Put([]byte("k"), []byte("v"))
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if v, _ := inner.Get([]byte("ns/k")); string(v) != "v" {
		t.Errorf("ns/k = %q", v)
	}
}
