package minter

import "math/big"

// Mint policy.
const (
	// SlippageNumerator/SlippageDenominator set the minimum accepted amount to 95% of desired.
	SlippageNumerator   = 95
	SlippageDenominator = 100

	// DeadlineGrace is added to the current block time; zero means the mint must land
	// in the block whose time was observed.
	DeadlineGrace = 0
)

// Uniswap V3 tick bounds.
const (
	MinTick = -887272
	MaxTick = 887272
)

// MinAmount applies the slippage tolerance to a desired amount.
func MinAmount(desired *big.Int) *big.Int {
	out := new(big.Int).Mul(desired, big.NewInt(SlippageNumerator))
	return out.Quo(out, big.NewInt(SlippageDenominator))
}
