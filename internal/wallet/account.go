package wallet

import (
	"fmt"
	"strings"
	"time"
)

// Provenance says where an account's signing key lives.
type Provenance string

const (
	ProvenanceHD       Provenance = "hd"
	ProvenanceHardware Provenance = "hardware"
	ProvenanceImported Provenance = "imported"
	ProvenanceWatching Provenance = "watching"
	ProvenanceExternal Provenance = "external"
)

// Valid reports whether p is a known provenance.
func (p Provenance) Valid() bool {
	switch p {
	case ProvenanceHD, ProvenanceHardware, ProvenanceImported, ProvenanceWatching, ProvenanceExternal:
		return true
	}
	return false
}

// Account is an address on one chain together with how to sign for it.
// Accounts are immutable once stored.
type Account struct {
	ID                string     `json:"id"`
	Name              string     `json:"name,omitempty"`
	Chain             string     `json:"chain"`
	Address           string     `json:"address"`
	PublicKey         []byte     `json:"public_key,omitempty"`
	ExtendedPublicKey string     `json:"xpub,omitempty"`
	Provenance        Provenance `json:"provenance"`

	// HD: the wallet holding the seed. Hardware: the device id.
	Wallet string `json:"wallet,omitempty"`
	// HD and hardware derivation path.
	Path string `json:"path,omitempty"`
	// External signer endpoint.
	Endpoint string `json:"endpoint,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// AccountID builds the canonical id "<provenance>--<chain>--<key>".
func AccountID(p Provenance, chain, key string) string {
	return strings.Join([]string{string(p), chain, key}, "--")
}

// Validate checks the fields each provenance needs.
func (a *Account) Validate() error {
	if !a.Provenance.Valid() {
		return fmt.Errorf("account %q: unknown provenance %q", a.ID, a.Provenance)
	}
	if a.ID == "" || a.Chain == "" || a.Address == "" {
		return fmt.Errorf("account %q: id, chain and address are required", a.ID)
	}
	switch a.Provenance {
	case ProvenanceHD:
		if a.Wallet == "" || a.Path == "" {
			return fmt.Errorf("hd account %q: wallet and path are required", a.ID)
		}
	case ProvenanceHardware:
		if a.Path == "" {
			return fmt.Errorf("hardware account %q: path is required", a.ID)
		}
	case ProvenanceExternal:
		if a.Endpoint == "" {
			return fmt.Errorf("external account %q: endpoint is required", a.ID)
		}
	}
	return nil
}
