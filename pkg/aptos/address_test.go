package aptos

import (
	"crypto/ed25519"
	"strings"
	"testing"
)

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress("0x1")
	if err != nil {
		t.Fatalf("ParseAddress() error: %v", err)
	}
	if a != AddressOne {
		t.Errorf("0x1 = %s", a.StringLong())
	}
	if a.String() != "0x1" {
		t.Errorf("String() = %s, want 0x1", a)
	}
	if !strings.HasSuffix(a.StringLong(), "01") || len(a.StringLong()) != 66 {
		t.Errorf("StringLong() = %s", a.StringLong())
	}

	long := "0x" + strings.Repeat("ab", 32)
	b, err := ParseAddress(long)
	if err != nil || b.String() != long {
		t.Errorf("long address = %s, %v", b, err)
	}

	for _, bad := range []string{"", "0x", "0xzz", "0x" + strings.Repeat("a", 65)} {
		if _, err := ParseAddress(bad); err == nil {
			t.Errorf("ParseAddress(%q) should fail", bad)
		}
	}
}

func TestAddressFromPublicKey(t *testing.T) {
	key := ed25519.NewKeyFromSeed(make([]byte, 32))
	pub := key.Public().(ed25519.PublicKey)
	a := AddressFromPublicKey(pub)
	if a == (AccountAddress{}) {
		t.Fatal("zero address")
	}
	if AddressFromPublicKey(pub) != a {
		t.Error("derivation not deterministic")
	}
	if a.IsSpecial() {
		t.Error("derived address should not be special")
	}
}
