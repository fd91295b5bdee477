package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MintParams mirrors INonfungiblePositionManager.MintParams.
type MintParams struct {
	Token0         common.Address
	Token1         common.Address
	Fee            *big.Int
	TickLower      *big.Int
	TickUpper      *big.Int
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
	Recipient      common.Address
	Deadline       *big.Int
}

// MintResult is what the position manager reports for a successful mint.
type MintResult struct {
	TokenID     *big.Int
	Liquidity   *big.Int
	Amount0     *big.Int
	Amount1     *big.Int
	TxHash      common.Hash
	BlockNumber uint64
}
