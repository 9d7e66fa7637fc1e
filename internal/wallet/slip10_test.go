package wallet

import (
	"encoding/hex"
	"testing"
)

// SLIP-10 ed25519 test vector 1.
func TestDeriveEd25519_Vector1(t *testing.T) {
	tests := []struct {
		path      string
		chainCode string
		key       string
	}{
		{"m", "90046a93de5380a72b5e45010748567d5ea02bbf6522f979e05c0d8d8ca9fffb", "2b4be7f19ee27bbf30c667b642d5f4aa69fd169872f8fc3059c08ebae2eb19e7"},
		{"m/0'", "8b59aa11380b624e81507a27fedda59fea6d0b779a778918a2fd3590e16e9c69", "68e0fe46dfb67e368c75379acec591dad19df3cde26e63b93a8e704f1dade7a3"},
	}
	for _, tt := range tests {
		key, cc, err := DeriveEd25519(vector1Seed, tt.path)
		if err != nil {
			t.Fatalf("DeriveEd25519(%q) error: %v", tt.path, err)
		}
		if hex.EncodeToString(key) != tt.key {
			t.Errorf("%s key = %x, want %s", tt.path, key, tt.key)
		}
		if hex.EncodeToString(cc) != tt.chainCode {
			t.Errorf("%s chain code = %x, want %s", tt.path, cc, tt.chainCode)
		}
	}
}

func TestDeriveEd25519_RequiresHardened(t *testing.T) {
	if _, _, err := DeriveEd25519(vector1Seed, "m/44'/637'/0'/0/0"); err == nil {
		t.Error("non-hardened component accepted")
	}
	if _, _, err := DeriveEd25519(vector1Seed, "m/44'/637'/0'/0'/0'"); err != nil {
		t.Errorf("aptos path rejected: %v", err)
	}
}

func TestDeriveEd25519_RejectsBeforeDeriving(t *testing.T) {
	key, cc, err := DeriveEd25519(vector1Seed, "m/0'/1/2'")
	if err == nil {
		t.Fatal("non-hardened middle component accepted")
	}
	if key != nil || cc != nil {
		t.Error("key material returned with an error")
	}
}

func TestDeriveEd25519_ReturnsFreshBuffer(t *testing.T) {
	a, _, err := DeriveEd25519(vector1Seed, "m/0'")
	if err != nil {
		t.Fatal(err)
	}
	want := hex.EncodeToString(a)
	for i := range a {
		a[i] = 0
	}
	b, _, _ := DeriveEd25519(vector1Seed, "m/0'")
	if hex.EncodeToString(b) != want {
		t.Error("zeroing one derived key changed a later derivation")
	}
}
