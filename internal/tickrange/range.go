// Package tickrange derives an asymmetric tick range from a two-token deposit.
package tickrange

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

const (
	// ScaleDecimals is the fixed-point precision both deposits are normalized to.
	ScaleDecimals = 18

	MinInt24 = -1 << 23
	MaxInt24 = 1<<23 - 1
)

var (
	ErrZeroAmount1      = errors.New("amount1 must be greater than zero")
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrNonPositiveWidth = errors.New("width must be greater than zero")
	ErrDecimalsTooLarge = errors.New("token decimals exceed 18")
	ErrAmountOverflow   = errors.New("amount overflows 256-bit arithmetic")
	ErrOffsetOverflow   = errors.New("tick offset overflows int24")
)

var one = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(ScaleDecimals))

// Range holds tick offsets below and above the current tick. Lower+Upper always
// equals the width it was computed for.
type Range struct {
	Lower int32 `json:"lower"`
	Upper int32 `json:"upper"`
}

// Width returns the total range size.
func (r Range) Width() int32 {
	return r.Lower + r.Upper
}

// Compute splits width into lower and upper offsets inversely to the value ratio
// amount0/amount1 after both amounts are normalized to 18 decimals:
//
//	R     = floor(n0 * 1e18 / n1) + 1e18
//	lower = floor(width * 1e18 / R)
//	upper = width - lower
//
// amount1 must be non-zero; callers validate deposits before reaching here.
// Offsets outside the int24 domain fail with ErrOffsetOverflow rather than saturate.
func Compute(width int32, amount0 *big.Int, decimals0 uint8, amount1 *big.Int, decimals1 uint8) (Range, error) {
	if width <= 0 {
		return Range{}, ErrNonPositiveWidth
	}
	if width > MaxInt24 {
		return Range{}, fmt.Errorf("width %d: %w", width, ErrOffsetOverflow)
	}

	n0, err := normalize(amount0, decimals0)
	if err != nil {
		return Range{}, fmt.Errorf("amount0: %w", err)
	}
	n1, err := normalize(amount1, decimals1)
	if err != nil {
		return Range{}, fmt.Errorf("amount1: %w", err)
	}
	if n1.IsZero() {
		return Range{}, ErrZeroAmount1
	}

	ratio, err := valueRatio(n0, n1)
	if err != nil {
		return Range{}, err
	}

	w := uint256.NewInt(uint64(width))
	scaled, overflow := new(uint256.Int).MulOverflow(w, one)
	if overflow {
		return Range{}, ErrAmountOverflow
	}
	lower := new(uint256.Int).Div(scaled, ratio)
	if !lower.IsUint64() || lower.Uint64() > uint64(width) {
		return Range{}, fmt.Errorf("lower offset %s: %w", lower.ToBig().String(), ErrOffsetOverflow)
	}

	lowerOffset := int64(lower.Uint64())
	upperOffset := int64(width) - lowerOffset
	if err := checkInt24(lowerOffset); err != nil {
		return Range{}, err
	}
	if err := checkInt24(upperOffset); err != nil {
		return Range{}, err
	}

	return Range{Lower: int32(lowerOffset), Upper: int32(upperOffset)}, nil
}

// valueRatio returns floor(n0*1e18/n1) + 1e18, i.e. (amount0/amount1 + 1) in 18-decimal fixed point.
func valueRatio(n0, n1 *uint256.Int) (*uint256.Int, error) {
	scaled, overflow := new(uint256.Int).MulOverflow(n0, one)
	if overflow {
		return nil, ErrAmountOverflow
	}
	ratio := new(uint256.Int).Div(scaled, n1)
	if _, overflow := ratio.AddOverflow(ratio, one); overflow {
		return nil, ErrAmountOverflow
	}
	return ratio, nil
}

func normalize(amount *big.Int, decimals uint8) (*uint256.Int, error) {
	if amount == nil {
		return new(uint256.Int), nil
	}
	if amount.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	if decimals > ScaleDecimals {
		return nil, fmt.Errorf("decimals %d: %w", decimals, ErrDecimalsTooLarge)
	}
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrAmountOverflow
	}
	factor := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(ScaleDecimals-decimals)))
	normalized, overflow := new(uint256.Int).MulOverflow(value, factor)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return normalized, nil
}

func checkInt24(value int64) error {
	if value < MinInt24 || value > MaxInt24 {
		return fmt.Errorf("offset %d: %w", value, ErrOffsetOverflow)
	}
	return nil
}
