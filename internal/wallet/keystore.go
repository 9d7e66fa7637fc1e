package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Klingon-tech/klingnet-vault/internal/log"
	"github.com/Klingon-tech/klingnet-vault/internal/storage"
)

// Keystore errors.
var (
	ErrWalletExists    = errors.New("wallet already exists")
	ErrWalletNotFound  = errors.New("wallet not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrAccountNotFound = errors.New("account not found")
	ErrKeyNotFound     = errors.New("no stored key for account")
)

const recordVersion = 1

var (
	walletPrefix  = []byte("wallet/")
	accountPrefix = []byte("account/")
	keyPrefix     = []byte("key/")
)

type walletRecord struct {
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	EncryptedSeed []byte    `json:"encrypted_seed"`
}

type keyRecord struct {
	Version         int    `json:"version"`
	EncryptedSecret []byte `json:"encrypted_secret"`
}

// Keystore keeps encrypted seeds, encrypted imported keys and account
// records in a storage.DB namespace. Decrypted material never leaves a
// WithSeed or WithKey callback.
type Keystore struct {
	db     storage.DB
	params EncryptionParams
}

// NewKeystore returns a keystore over db. New secrets are sealed with params.
func NewKeystore(db storage.DB, params EncryptionParams) *Keystore {
	return &Keystore{db: db, params: params}
}

func walletKey(name string) []byte { return append(append([]byte(nil), walletPrefix...), name...) }
func accountKey(id string) []byte  { return append(append([]byte(nil), accountPrefix...), id...) }
func secretKey(id string) []byte   { return append(append([]byte(nil), keyPrefix...), id...) }

func (ks *Keystore) getJSON(key []byte, v any, notFound error) error {
	data, err := ks.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	return nil
}

func marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return data, nil
}

// CreateWallet seals seed under password and stores it as name.
func (ks *Keystore) CreateWallet(name string, seed, password []byte) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid wallet name %q", name)
	}
	if ok, err := ks.db.Has(walletKey(name)); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %q", ErrWalletExists, name)
	}

	sealed, err := Encrypt(seed, password, ks.params)
	if err != nil {
		return fmt.Errorf("encrypt seed: %w", err)
	}
	data, err := marshal(walletRecord{Version: recordVersion, CreatedAt: time.Now().UTC(), EncryptedSeed: sealed})
	if err != nil {
		return err
	}
	if err := ks.db.Put(walletKey(name), data); err != nil {
		return fmt.Errorf("store wallet: %w", err)
	}
	log.Keystore.Info().Str("wallet", name).Msg("wallet created")
	return nil
}

// WithSeed decrypts the seed of wallet name for the duration of fn.
func (ks *Keystore) WithSeed(name string, password []byte, fn func(seed []byte) error) error {
	var rec walletRecord
	if err := ks.getJSON(walletKey(name), &rec, fmt.Errorf("%w: %q", ErrWalletNotFound, name)); err != nil {
		return err
	}
	if rec.Version != recordVersion {
		return fmt.Errorf("unsupported wallet version: %d", rec.Version)
	}
	return WithDecrypted(rec.EncryptedSeed, password, fn)
}

// Wallets returns wallet names in lexical order.
func (ks *Keystore) Wallets() ([]string, error) {
	var names []string
	err := ks.db.ForEach(walletPrefix, func(key, _ []byte) error {
		names = append(names, string(key[len(walletPrefix):]))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// DeleteWallet removes a wallet seed. Accounts derived from it are kept
// and become unusable for signing.
func (ks *Keystore) DeleteWallet(name string) error {
	ok, err := ks.db.Has(walletKey(name))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrWalletNotFound, name)
	}
	log.Keystore.Info().Str("wallet", name).Msg("wallet deleted")
	return ks.db.Delete(walletKey(name))
}

// AddAccount stores acct. Re-adding an identical account is a no-op;
// a different account under the same id is rejected.
func (ks *Keystore) AddAccount(acct Account) error {
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now().UTC()
	}
	if err := acct.Validate(); err != nil {
		return err
	}
	var existing Account
	switch err := ks.getJSON(accountKey(acct.ID), &existing, ErrAccountNotFound); {
	case err == nil:
		if existing.Address == acct.Address && existing.Provenance == acct.Provenance && existing.Path == acct.Path {
			return nil
		}
		return fmt.Errorf("%w: %q", ErrAccountExists, acct.ID)
	case !errors.Is(err, ErrAccountNotFound):
		return err
	}
	data, err := marshal(acct)
	if err != nil {
		return err
	}
	return ks.db.Put(accountKey(acct.ID), data)
}

// ImportKey stores acct together with its sealed secret.
func (ks *Keystore) ImportKey(acct Account, secret, password []byte) error {
	if acct.Provenance != ProvenanceImported {
		return fmt.Errorf("account %q is %s, not imported", acct.ID, acct.Provenance)
	}
	if ok, err := ks.db.Has(accountKey(acct.ID)); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %q", ErrAccountExists, acct.ID)
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now().UTC()
	}
	if err := acct.Validate(); err != nil {
		return err
	}

	sealed, err := Encrypt(secret, password, ks.params)
	if err != nil {
		return fmt.Errorf("encrypt key: %w", err)
	}
	keyData, err := marshal(keyRecord{Version: recordVersion, EncryptedSecret: sealed})
	if err != nil {
		return err
	}
	acctData, err := marshal(acct)
	if err != nil {
		return err
	}

	if err := ks.write(func(b storage.Batch) error {
		if err := b.Put(secretKey(acct.ID), keyData); err != nil {
			return err
		}
		return b.Put(accountKey(acct.ID), acctData)
	}); err != nil {
		return fmt.Errorf("store imported key: %w", err)
	}
	log.Keystore.Info().Str("account", acct.ID).Str("chain", acct.Chain).Msg("key imported")
	return nil
}

// WithKey decrypts the imported secret of accountID for the duration of fn.
func (ks *Keystore) WithKey(accountID string, password []byte, fn func(secret []byte) error) error {
	var rec keyRecord
	if err := ks.getJSON(secretKey(accountID), &rec, fmt.Errorf("%w: %q", ErrKeyNotFound, accountID)); err != nil {
		return err
	}
	if rec.Version != recordVersion {
		return fmt.Errorf("unsupported key version: %d", rec.Version)
	}
	return WithDecrypted(rec.EncryptedSecret, password, fn)
}

// Account loads one account.
func (ks *Keystore) Account(id string) (Account, error) {
	var a Account
	err := ks.getJSON(accountKey(id), &a, fmt.Errorf("%w: %q", ErrAccountNotFound, id))
	return a, err
}

// Accounts lists accounts, filtered by chain when chain is non-empty.
func (ks *Keystore) Accounts(chain string) ([]Account, error) {
	var out []Account
	err := ks.db.ForEach(accountPrefix, func(_, value []byte) error {
		var a Account
		if err := json.Unmarshal(value, &a); err != nil {
			return fmt.Errorf("parse account: %w", err)
		}
		if chain == "" || a.Chain == chain {
			out = append(out, a)
		}
		return nil
	})
	return out, err
}

// DeleteAccount removes an account and any stored key.
func (ks *Keystore) DeleteAccount(id string) error {
	ok, err := ks.db.Has(accountKey(id))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrAccountNotFound, id)
	}
	return ks.write(func(b storage.Batch) error {
		if err := b.Delete(secretKey(id)); err != nil {
			return err
		}
		return b.Delete(accountKey(id))
	})
}

func (ks *Keystore) write(fn func(b storage.Batch) error) error {
	batcher, ok := ks.db.(storage.Batcher)
	if !ok {
		batcher = storage.NewPrefixDB(ks.db, nil)
	}
	b := batcher.NewBatch()
	if err := fn(b); err != nil {
		return err
	}
	return b.Commit()
}
