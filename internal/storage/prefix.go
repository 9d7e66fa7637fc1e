package storage

// Namespaces used inside one database file.
var (
	PrefixKeystore = []byte("ks/")
	PrefixJournal  = []byte("jr/")
)

// PrefixDB wraps a DB and prepends a fixed prefix to all keys, so the
// keystore and the journal can share one database.
type PrefixDB struct {
	inner  DB
	prefix []byte
}

// NewPrefixDB creates a new PrefixDB wrapping inner with the given prefix.
func NewPrefixDB(inner DB, prefix []byte) *PrefixDB {
	return &PrefixDB{inner: inner, prefix: append([]byte(nil), prefix...)}
}

func withPrefix(prefix, key []byte) []byte {
	out := make([]byte, len(prefix)+len(key))
	copy(out, prefix)
	copy(out[len(prefix):], key)
	return out
}

func (p *PrefixDB) Get(key []byte) ([]byte, error) {
	return p.inner.Get(withPrefix(p.prefix, key))
}

func (p *PrefixDB) Put(key, value []byte) error {
	return p.inner.Put(withPrefix(p.prefix, key), value)
}

func (p *PrefixDB) Delete(key []byte) error {
	return p.inner.Delete(withPrefix(p.prefix, key))
}

func (p *PrefixDB) Has(key []byte) (bool, error) {
	return p.inner.Has(withPrefix(p.prefix, key))
}

// ForEach iterates within the namespace. Keys passed to fn have the
// namespace prefix stripped.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return p.inner.ForEach(withPrefix(p.prefix, prefix), func(key, value []byte) error {
		return fn(key[len(p.prefix):], value)
	})
}

// DeleteAll removes every key in the namespace.
func (p *PrefixDB) DeleteAll() error {
	var keys [][]byte
	err := p.inner.ForEach(p.prefix, func(key, _ []byte) error {
		keys = append(keys, append([]byte(nil), key...))
		return nil
	})
	if err != nil {
		return err
	}
	b := p.inner
	if batcher, ok := b.(Batcher); ok {
		batch := batcher.NewBatch()
		for _, k := range keys {
			if err := batch.Delete(k); err != nil {
				return err
			}
		}
		return batch.Commit()
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the outer DB manages its own lifecycle.
func (p *PrefixDB) Close() error {
	return nil
}

// NewBatch returns a batch in the namespace. Stores without native batches
// get a buffered batch applied key by key.
func (p *PrefixDB) NewBatch() Batch {
	if batcher, ok := p.inner.(Batcher); ok {
		return &prefixBatch{inner: batcher.NewBatch(), prefix: p.prefix}
	}
	return &bufferedBatch{db: p}
}

type prefixBatch struct {
	inner  Batch
	prefix []byte
}

func (pb *prefixBatch) Put(key, value []byte) error {
	return pb.inner.Put(withPrefix(pb.prefix, key), value)
}

func (pb *prefixBatch) Delete(key []byte) error {
	return pb.inner.Delete(withPrefix(pb.prefix, key))
}

func (pb *prefixBatch) Commit() error {
	return pb.inner.Commit()
}

type bufferedBatch struct {
	db  DB
	ops []memoryOp
}

func (bb *bufferedBatch) Put(key, value []byte) error {
	bb.ops = append(bb.ops, memoryOp{string(key), append([]byte{}, value...)})
	return nil
}

func (bb *bufferedBatch) Delete(key []byte) error {
	bb.ops = append(bb.ops, memoryOp{key: string(key)})
	return nil
}

func (bb *bufferedBatch) Commit() error {
	for _, op := range bb.ops {
		var err error
		if op.value == nil {
			err = bb.db.Delete([]byte(op.key))
		} else {
			err = bb.db.Put([]byte(op.key), op.value)
		}
		if err != nil {
			return err
		}
	}
	bb.ops = nil
	return nil
}
