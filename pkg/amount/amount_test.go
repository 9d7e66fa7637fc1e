package amount

import (
	"errors"
	"math/big"
	"testing"

	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		in       string
		decimals int32
		want     string
	}{
		{"1", 8, "100000000"},
		{"0.3", 8, "30000000"},
		{"0.00000001", 8, "1"},
		{"12.5", 18, "12500000000000000000"},
		{"0", 8, "0"},
		{" 2 ", 0, "2"},
	}
	for _, tt := range tests {
		got, err := ToBaseUnits(tt.in, tt.decimals)
		if err != nil {
			t.Fatalf("ToBaseUnits(%q, %d) error: %v", tt.in, tt.decimals, err)
		}
		if got.String() != tt.want {
			t.Errorf("ToBaseUnits(%q, %d) = %s, want %s", tt.in, tt.decimals, got, tt.want)
		}
	}
}

func TestToBaseUnits_Rejects(t *testing.T) {
	for _, in := range []string{"", "NaN", "abc", "-1", "0.000000001"} {
		_, err := ToBaseUnits(in, 8)
		if !errors.Is(err, vaulterr.ErrInvalidAmount) {
			t.Errorf("ToBaseUnits(%q) error = %v, want ErrInvalidAmount", in, err)
		}
	}
}

func TestToBaseUnitsUint64_Overflow(t *testing.T) {
	_, err := ToBaseUnitsUint64("1000000000000", 18)
	if !errors.Is(err, vaulterr.ErrInvalidAmount) {
		t.Fatalf("expected overflow error, got %v", err)
	}
}

func TestFromBaseUnits(t *testing.T) {
	if got := FromUint64(30000000, 8); got != "0.3" {
		t.Errorf("FromUint64 = %s, want 0.3", got)
	}
	if got := FromBaseUnits(big.NewInt(123456789), 8); got != "1.23456789" {
		t.Errorf("FromBaseUnits = %s, want 1.23456789", got)
	}
	if got := FromBaseUnits(nil, 8); got != "0" {
		t.Errorf("FromBaseUnits(nil) = %s", got)
	}
}

func TestShift(t *testing.T) {
	d, err := Shift("0.0001", 8)
	if err != nil {
		t.Fatalf("Shift error: %v", err)
	}
	if d.String() != "10000" {
		t.Errorf("Shift = %s, want 10000", d)
	}
}
