package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/Klingon-tech/klingnet-vault/config"
	"github.com/Klingon-tech/klingnet-vault/internal/chains"
	"github.com/Klingon-tech/klingnet-vault/internal/chains/aptos"
	"github.com/Klingon-tech/klingnet-vault/internal/chains/evm"
	"github.com/Klingon-tech/klingnet-vault/internal/chains/kaspa"
	"github.com/Klingon-tech/klingnet-vault/internal/indexer"
	"github.com/Klingon-tech/klingnet-vault/internal/journal"
	"github.com/Klingon-tech/klingnet-vault/internal/keyring"
	"github.com/Klingon-tech/klingnet-vault/internal/log"
	"github.com/Klingon-tech/klingnet-vault/internal/rpcclient"
	"github.com/Klingon-tech/klingnet-vault/internal/storage"
	"github.com/Klingon-tech/klingnet-vault/internal/vault"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
)

// app is the state shared by every command: config, the open database and
// the stores built on it.
type app struct {
	flags   *config.Flags
	cfg     *config.Config
	db      storage.DB
	ownsDB  bool
	ks      *wallet.Keystore
	journal *journal.Journal

	out          io.Writer
	readPassword func(prompt string) ([]byte, error)
	// connect attaches node clients for chain to the configured params.
	connect func(ctx context.Context, chain string) (chains.Params, error)

	closers []func()
}

func newApp() *app {
	a := &app{out: os.Stdout, readPassword: terminalPassword}
	a.connect = a.dial
	return a
}

// open loads config and opens the database unless they are already set.
func (a *app) open() error {
	if a.cfg == nil {
		cfg, err := config.Load(a.flags)
		if err != nil {
			return err
		}
		if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		a.cfg = cfg
	}
	if a.db == nil {
		db, err := storage.NewBadger(a.cfg.DBDir())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		a.db, a.ownsDB = db, true
	}
	a.ks = wallet.NewKeystore(storage.NewPrefixDB(a.db, storage.PrefixKeystore), a.cfg.EncryptionParams())
	a.journal = journal.New(a.db)
	return nil
}

func (a *app) close() error {
	for _, c := range a.closers {
		c()
	}
	a.closers = nil
	if !a.ownsDB || a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db, a.ownsDB = nil, false
	return err
}

func (a *app) dial(ctx context.Context, chain string) (chains.Params, error) {
	p := a.cfg.ChainParams()
	opts := a.cfg.IndexerOptions()
	switch chain {
	case kaspa.ChainName:
		p.KaspaIndexer = indexer.NewKaspa(a.cfg.Kaspa.IndexerURL, opts)
	case aptos.ChainName:
		p.AptosNode = indexer.NewAptos(a.cfg.Aptos.NodeURL, opts)
	case evm.ChainName:
		client, err := evm.Dial(ctx, a.cfg.EVM.RPCURL)
		if err != nil {
			return p, err
		}
		a.closers = append(a.closers, client.Close)
		p.EVMClient = client
	}
	return p, nil
}

func (a *app) signer(acct wallet.Account) (keyring.Signer, error) {
	return keyring.New(acct, keyring.Deps{
		Seeds: a.ks,
		Keys:  a.ks,
		Remote: func(endpoint string) *rpcclient.Client {
			return rpcclient.New(endpoint, rpcclient.WithTimeout(a.cfg.Indexer.Timeout))
		},
	})
}

// account resolves ref as an account id, or else as an address on chain.
func (a *app) account(ref, chain string) (wallet.Account, error) {
	acct, err := a.ks.Account(ref)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, wallet.ErrAccountNotFound) {
		return wallet.Account{}, err
	}
	accts, err := a.ks.Accounts(chain)
	if err != nil {
		return wallet.Account{}, err
	}
	var found []wallet.Account
	for _, acct := range accts {
		if strings.EqualFold(acct.Address, ref) {
			found = append(found, acct)
		}
	}
	switch len(found) {
	case 0:
		return wallet.Account{}, fmt.Errorf("%w: %q", wallet.ErrAccountNotFound, ref)
	case 1:
		return found[0], nil
	default:
		return wallet.Account{}, fmt.Errorf("address %s matches %d accounts, use an account id", ref, len(found))
	}
}

// deriveAccounts derives HD accounts for every chain at indexes.
func (a *app) deriveAccounts(ctx context.Context, walletName string, seed []byte, chainNames []string, indexes []uint32) ([]wallet.Account, error) {
	params := a.cfg.ChainParams()
	var out []wallet.Account
	for _, name := range chainNames {
		entry, err := chains.Lookup(name)
		if err != nil {
			return nil, err
		}
		core, err := chains.Core(name, params)
		if err != nil {
			return nil, err
		}
		addrs, err := core.AddressesFromHDPath(ctx, seed, entry.PathTemplate, indexes)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		for _, d := range addrs {
			pub, err := hex.DecodeString(strings.TrimPrefix(d.PublicKey, "0x"))
			if err != nil {
				return nil, fmt.Errorf("%s: public key: %w", name, err)
			}
			out = append(out, wallet.Account{
				ID:         wallet.AccountID(wallet.ProvenanceHD, name, walletName+d.Path),
				Chain:      name,
				Address:    d.Address,
				PublicKey:  pub,
				Provenance: wallet.ProvenanceHD,
				Wallet:     walletName,
				Path:       d.Path,
			})
		}
	}
	return out, nil
}

// newPassword asks for a password twice.
func (a *app) newPassword() ([]byte, error) {
	password, err := a.readPassword("Enter password: ")
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	confirm, err := a.readPassword("Confirm password: ")
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	if string(password) != string(confirm) {
		return nil, errors.New("passwords do not match")
	}
	if len(password) == 0 {
		return nil, errors.New("empty password")
	}
	return password, nil
}

var stdin = bufio.NewReader(os.Stdin)

// terminalPassword reads a hidden line from the terminal, or a plain line
// when stdin is not a terminal.
func terminalPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return nil, err
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func (a *app) engine(v vault.Vault, waitTimeout time.Duration) *vault.Engine {
	return vault.NewEngine(v,
		vault.WithJournal(a.journal),
		vault.WithConfirmWait(0, waitTimeout),
	)
}
