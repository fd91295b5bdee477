package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"lpMinter/internal/model"
)

// ContractCaller performs read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// PoolReader reads V3 pool state via eth_call.
type PoolReader struct {
	caller ContractCaller
}

func NewPoolReader(caller ContractCaller) *PoolReader {
	return &PoolReader{caller: caller}
}

// PoolState loads token addresses, fee, tick spacing and the current slot0 tick.
func (r *PoolReader) PoolState(ctx context.Context, pool common.Address) (model.PoolState, error) {
	if r.caller == nil {
		return model.PoolState{}, fmt.Errorf("contract caller is nil")
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return model.PoolState{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := callMethod(ctx, r.caller, pool, poolABI, "token0")
	if err != nil {
		return model.PoolState{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("token0: %w", err)
	}

	values, err = callMethod(ctx, r.caller, pool, poolABI, "token1")
	if err != nil {
		return model.PoolState{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("token1: %w", err)
	}

	values, err = callMethod(ctx, r.caller, pool, poolABI, "fee")
	if err != nil {
		return model.PoolState{}, err
	}
	feeInt, err := asBigInt(values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("fee: %w", err)
	}

	values, err = callMethod(ctx, r.caller, pool, poolABI, "tickSpacing")
	if err != nil {
		return model.PoolState{}, err
	}
	tickSpacingInt, err := asBigInt(values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("tick spacing: %w", err)
	}
	tickSpacing, err := int24FromBig(tickSpacingInt)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("tick spacing: %w", err)
	}

	values, err = callMethod(ctx, r.caller, pool, poolABI, "slot0")
	if err != nil {
		return model.PoolState{}, err
	}
	if len(values) < 2 {
		return model.PoolState{}, fmt.Errorf("slot0: unexpected values: %d", len(values))
	}
	sqrtPrice, err := asBigInt(values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("slot0 sqrt price: %w", err)
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("slot0 tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("slot0 tick: %w", err)
	}

	return model.PoolState{
		Address:      pool.Hex(),
		Token0:       token0.Hex(),
		Token1:       token1.Hex(),
		Fee:          uint32(feeInt.Uint64()),
		TickSpacing:  tickSpacing,
		Tick:         tick,
		SqrtPriceX96: sqrtPrice.String(),
	}, nil
}

func callMethod(ctx context.Context, caller ContractCaller, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}
