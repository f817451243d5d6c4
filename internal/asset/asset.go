// Package asset decodes and manipulates on-chain token amounts.
//
// Amounts are exact: an Asset stores the integer number of base units scaled
// by 10^Precision as a shopspring/decimal value, never a float64. Conversion
// to float64 happens only at the boundary into the risk model.
package asset

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Well-known symbol codes.
const (
	VIGOR = "VIGOR" // stablecoin, valued 1:1 with USD in collateral ratios
	VIG   = "VIG"   // protocol utility token
	EOS   = "EOS"
)

// DefaultPrecision is used for codes missing from the canonical table.
const DefaultPrecision uint8 = 4

// maxPrecision is the largest precision an EOSIO symbol can carry.
const maxPrecision = 18

// canonicalPrecision fixes one display precision per code. VIG is tracked at
// 10 decimals inside the lending contract but at 4 by its token contract;
// everything here uses 4 so USD conversion is consistent.
var canonicalPrecision = map[string]uint8{
	VIGOR:  4,
	VIG:    4,
	EOS:    4,
	"IQ":   3,
	"PBTC": 8,
	"USDT": 4,
}

// assetRegex matches: {amount} {CODE}
// Example: 123.4500 EOS
var assetRegex = regexp.MustCompile(`^(-?)(\d+)(?:\.(\d+))?\s+([A-Z][A-Z0-9]{0,6})$`)

var (
	ErrInvalidAsset   = errors.New("asset: invalid asset string")
	ErrCodeMismatch   = errors.New("asset: symbol code mismatch")
	ErrPrecisionRange = errors.New("asset: precision out of range")
)

// Asset is an immutable token amount.
type Asset struct {
	Code      string
	Precision uint8
	Units     decimal.Decimal // integer amount in 10^-Precision units
}

// CanonicalPrecision returns the precision every amount of code is normalized to.
func CanonicalPrecision(code string) uint8 {
	if p, ok := canonicalPrecision[code]; ok {
		return p
	}
	return DefaultPrecision
}

// Parse decodes a wire string "<decimal> <CODE>". The precision is the number
// of fraction digits, exactly as written.
func Parse(s string) (Asset, error) {
	matches := assetRegex.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return Asset{}, fmt.Errorf("%w: %q (expected \"<amount> <CODE>\")", ErrInvalidAsset, s)
	}

	sign, whole, frac, code := matches[1], matches[2], matches[3], matches[4]
	if len(frac) > maxPrecision {
		return Asset{}, fmt.Errorf("%w: %q has %d decimals", ErrPrecisionRange, s, len(frac))
	}

	units, err := decimal.NewFromString(sign + whole + frac)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %q", ErrInvalidAsset, s)
	}

	return Asset{
		Code:      code,
		Precision: uint8(len(frac)),
		Units:     units,
	}, nil
}

// ParseNormalized decodes s and rescales it to the canonical precision of
// its code.
func ParseNormalized(s string) (Asset, error) {
	a, err := Parse(s)
	if err != nil {
		return Asset{}, err
	}
	return a.Rescale(CanonicalPrecision(a.Code)), nil
}

// MustParse is Parse for literals; it panics on malformed input.
func MustParse(s string) Asset {
	a, err := ParseNormalized(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Zero returns a zero amount of code at its canonical precision.
func Zero(code string) Asset {
	return Asset{Code: code, Precision: CanonicalPrecision(code), Units: decimal.Zero}
}

// FromAmount builds an asset from a decimal quantity, truncating anything
// finer than the given precision.
func FromAmount(code string, precision uint8, amount decimal.Decimal) Asset {
	return Asset{
		Code:      code,
		Precision: precision,
		Units:     amount.Shift(int32(precision)).Truncate(0),
	}
}

// Amount returns the token quantity, i.e. Units / 10^Precision.
func (a Asset) Amount() decimal.Decimal {
	return a.Units.Shift(-int32(a.Precision))
}

// Float converts the quantity to float64 for the risk model.
func (a Asset) Float() float64 {
	return a.Amount().InexactFloat64()
}

// IsZero reports whether the amount is zero.
func (a Asset) IsZero() bool {
	return a.Units.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (a Asset) IsNegative() bool {
	return a.Units.IsNegative()
}

// Neg returns the asset with its sign flipped.
func (a Asset) Neg() Asset {
	a.Units = a.Units.Neg()
	return a
}

// Rescale converts the asset to another precision. Widening is exact;
// narrowing truncates toward zero.
func (a Asset) Rescale(precision uint8) Asset {
	if precision == a.Precision {
		return a
	}
	shift := int32(precision) - int32(a.Precision)
	units := a.Units.Shift(shift)
	if shift < 0 {
		units = units.Truncate(0)
	}
	return Asset{Code: a.Code, Precision: precision, Units: units}
}

// Add sums two amounts of the same code. b is rescaled to a's precision.
func (a Asset) Add(b Asset) (Asset, error) {
	if a.Code != b.Code {
		return Asset{}, fmt.Errorf("%w: %s + %s", ErrCodeMismatch, a.Code, b.Code)
	}
	a.Units = a.Units.Add(b.Rescale(a.Precision).Units)
	return a, nil
}

// String formats the asset in wire form, e.g. "100.0000 EOS".
func (a Asset) String() string {
	return a.Amount().StringFixed(int32(a.Precision)) + " " + a.Code
}

// MarshalText implements encoding.TextMarshaler.
func (a Asset) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using the canonical precision.
func (a *Asset) UnmarshalText(text []byte) error {
	parsed, err := ParseNormalized(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
