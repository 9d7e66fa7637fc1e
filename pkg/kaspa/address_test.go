package kaspa

import (
	"bytes"
	"strings"
	"testing"
)

func testXOnly() []byte {
	b := make([]byte, 32)
	for i := range b {
		b[i] = byte(i + 1)
	}
	return b
}

func TestAddress_RoundTrip(t *testing.T) {
	for _, prefix := range []string{Mainnet.Prefix, Testnet.Prefix} {
		addr, err := NewPubKeyAddress(testXOnly(), prefix)
		if err != nil {
			t.Fatalf("NewPubKeyAddress() error: %v", err)
		}
		s := addr.String()
		if !strings.HasPrefix(s, prefix+":q") {
			t.Errorf("version 0 address should start with %s:q, got %s", prefix, s)
		}

		back, err := DecodeAddress(s, prefix)
		if err != nil {
			t.Fatalf("DecodeAddress(%s) error: %v", s, err)
		}
		if back.Version != VersionPubKey || !bytes.Equal(back.Payload, testXOnly()) {
			t.Errorf("decoded = %+v", back)
		}
	}
}

func TestAddress_ScriptHash(t *testing.T) {
	addr := NewScriptHashAddress([]byte{OpCheckSig}, Mainnet.Prefix)
	s := addr.String()
	if !strings.HasPrefix(s, "kaspa:p") {
		t.Errorf("P2SH address should start with kaspa:p, got %s", s)
	}
	back, err := DecodeAddress(s, "")
	if err != nil {
		t.Fatalf("DecodeAddress() error: %v", err)
	}
	if back.Version != VersionScriptHash {
		t.Errorf("version = %d, want %d", back.Version, VersionScriptHash)
	}
}

func TestDecodeAddress_Errors(t *testing.T) {
	addr, _ := NewPubKeyAddress(testXOnly(), Mainnet.Prefix)
	good := addr.String()

	// Flip one data character.
	i := len(good) - 10
	flipped := []byte(good)
	if flipped[i] == 'q' {
		flipped[i] = 'p'
	} else {
		flipped[i] = 'q'
	}

	tests := map[string]struct {
		addr   string
		prefix string
	}{
		"empty":          {"", ""},
		"wrong prefix":   {good, Testnet.Prefix},
		"no separator":   {strings.TrimPrefix(good, "kaspa:"), ""},
		"bad checksum":   {string(flipped), ""},
		"bad character":  {good[:len(good)-1] + "b", ""},
		"mixed case":     {"kaspa:Q" + good[7:], ""},
		"truncated body": {"kaspa:qq", ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeAddress(tt.addr, tt.prefix); err == nil {
				t.Errorf("DecodeAddress(%q) should fail", tt.addr)
			}
		})
	}
}

func TestDecodeAddress_UpperCase(t *testing.T) {
	addr, _ := NewPubKeyAddress(testXOnly(), Mainnet.Prefix)
	if _, err := DecodeAddress(strings.ToUpper(addr.String()), Mainnet.Prefix); err != nil {
		t.Errorf("upper-case address should decode: %v", err)
	}
}

func TestNetworkByName(t *testing.T) {
	if n, ok := NetworkByName("kaspatest"); !ok || n != Testnet {
		t.Errorf("NetworkByName(kaspatest) = %v, %v", n, ok)
	}
	if n, ok := NetworkByName("Mainnet"); !ok || n != Mainnet {
		t.Errorf("NetworkByName(Mainnet) = %v, %v", n, ok)
	}
	if _, ok := NetworkByName("bitcoin"); ok {
		t.Error("unknown network should not resolve")
	}
}
