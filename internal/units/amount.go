package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyAmount      = errors.New("amount is empty")
	ErrNegativeAmount   = errors.New("amount is negative")
	ErrFractionalDigits = errors.New("amount has more fractional digits than token decimals")
)

// ToRaw converts a decimal token quantity such as "1.5" into raw units.
func ToRaw(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, ErrEmptyAmount
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if value.IsNegative() {
		return nil, ErrNegativeAmount
	}
	raw := value.Shift(int32(decimals))
	if !raw.IsInteger() {
		return nil, fmt.Errorf("%w: %s with %d decimals", ErrFractionalDigits, amount, decimals)
	}
	return raw.BigInt(), nil
}

// ParseRaw parses a base-10 integer amount in raw units.
func ParseRaw(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, ErrEmptyAmount
	}
	value, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return nil, fmt.Errorf("parse raw amount %q", amount)
	}
	if value.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	return value, nil
}

// FormatAmount renders raw units as a fixed-point token quantity.
func FormatAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).StringFixed(int32(decimals))
}
