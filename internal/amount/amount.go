// internal/amount/amount.go
package amount

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmountFormat = errors.New("invalid amount format: use numbers like 1000 or 123.45")
	ErrAmountOverflow      = errors.New("amount exceeds the token program u64 limit")
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

var maxUint64 = new(big.Int).SetUint64(math.MaxUint64)

// Conversion is the exact base-unit value of a human amount.
type Conversion struct {
	Value *big.Int
	// Truncated is set when non-zero fractional digits beyond the decimal
	// precision were dropped.
	Truncated bool
}

// ToBaseUnits converts a decimal string like "123.456" into base units for the
// given precision. Extra fractional digits are truncated, never rounded.
func ToBaseUnits(human string, decimals uint8) (Conversion, error) {
	intPart, fracPart, _ := strings.Cut(strings.TrimSpace(human), ".")
	if intPart == "" && fracPart == "" {
		return Conversion{}, ErrInvalidAmountFormat
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return Conversion{}, fmt.Errorf("%w: %q", ErrInvalidAmountFormat, human)
	}

	normalized := intPart
	if fracPart != "" {
		normalized += "." + fracPart
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return Conversion{}, fmt.Errorf("%w: %v", ErrInvalidAmountFormat, err)
	}

	scaled := d.Shift(int32(decimals))
	whole := scaled.Truncate(0)
	return Conversion{
		Value:     whole.BigInt(),
		Truncated: !scaled.Equal(whole),
	}, nil
}

// Uint64 returns the value as the token program's native amount type.
func (c Conversion) Uint64() (uint64, error) {
	if c.Value == nil || c.Value.Sign() < 0 {
		return 0, ErrInvalidAmountFormat
	}
	if c.Value.Cmp(maxUint64) > 0 {
		return 0, fmt.Errorf("%w: %s", ErrAmountOverflow, c.Value.String())
	}
	return c.Value.Uint64(), nil
}

// FormatLamports renders lamports as a SOL string, e.g. "0.015 SOL".
func FormatLamports(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9).String() + " SOL"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
