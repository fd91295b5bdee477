package dex

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// bytes32ToString decodes a NUL-padded bytes32 symbol.
func bytes32ToString(value interface{}) (string, bool) {
	v, ok := value.([32]byte)
	if !ok {
		return "", false
	}
	return string(bytes.TrimRight(v[:], "\x00")), true
}

func asAddress(value interface{}) (common.Address, error) {
	v, ok := value.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
	return v, nil
}

// asBigInt copies a decoded uint24/int24/uint128/uint160/uint256 value; go-ethereum
// decodes all of them to *big.Int.
func asBigInt(value interface{}) (*big.Int, error) {
	v, ok := value.(*big.Int)
	if !ok || v == nil {
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
	return new(big.Int).Set(v), nil
}

func asUint8(value interface{}) (uint8, error) {
	v, ok := value.(uint8)
	if !ok {
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
	return v, nil
}

var (
	minInt24 = big.NewInt(-1 << 23)
	maxInt24 = big.NewInt(1<<23 - 1)
)

func int24FromBig(value *big.Int) (int32, error) {
	if value.Cmp(minInt24) < 0 || value.Cmp(maxInt24) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value)
	}
	return int32(value.Int64()), nil
}
