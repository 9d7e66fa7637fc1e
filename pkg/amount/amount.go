// Package amount converts between display-unit decimal strings and on-chain
// integer base units.
package amount

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

// Parse parses a decimal string. Empty strings, NaN and non-numeric input
// are rejected.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, vaulterr.Newf(vaulterr.ErrInvalidAmount, "empty value")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, vaulterr.Newf(vaulterr.ErrInvalidAmount, "%q is not a number", s)
	}
	return d, nil
}

// ToBaseUnits converts a display amount into base units. Amounts with more
// fractional digits than decimals, or negative amounts, are rejected.
func ToBaseUnits(s string, decimals int32) (*big.Int, error) {
	d, err := Parse(s)
	if err != nil {
		return nil, err
	}
	if d.IsNegative() {
		return nil, vaulterr.Newf(vaulterr.ErrInvalidAmount, "%s is negative", s)
	}
	shifted := d.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, vaulterr.Newf(vaulterr.ErrInvalidAmount, "%s has more than %d decimals", s, decimals)
	}
	return shifted.BigInt(), nil
}

// ToBaseUnitsUint64 is ToBaseUnits for chains with 64-bit amounts.
func ToBaseUnitsUint64(s string, decimals int32) (uint64, error) {
	v, err := ToBaseUnits(s, decimals)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, vaulterr.Newf(vaulterr.ErrInvalidAmount, "%s overflows", s)
	}
	return v.Uint64(), nil
}

// FromBaseUnits renders base units as a display amount without trailing zeros.
func FromBaseUnits(v *big.Int, decimals int32) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -decimals).String()
}

// FromUint64 is FromBaseUnits for 64-bit amounts.
func FromUint64(v uint64, decimals int32) string {
	return FromBaseUnits(new(big.Int).SetUint64(v), decimals)
}

// Shift parses s and moves its decimal point by places. Used for fee rates
// quoted in a different unit than the one the chain charges in.
func Shift(s string, places int32) (decimal.Decimal, error) {
	d, err := Parse(s)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Shift(places), nil
}
