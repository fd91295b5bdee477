package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"lpMinter/internal/model"
)

// DefaultPositionManager is the Uniswap V3 NonfungiblePositionManager on Ethereum
// mainnet and most L2 deployments.
const DefaultPositionManager = "0xC36442b4a4522E871399CD717aBDD847Ab11FE88"

// PositionManager mints positions through a NonfungiblePositionManager.
type PositionManager struct {
	address common.Address
	sender  Sender
	logger  *zap.Logger
}

func NewPositionManager(address common.Address, sender Sender, logger *zap.Logger) *PositionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PositionManager{address: address, sender: sender, logger: logger}
}

// Address returns the position manager contract address.
func (m *PositionManager) Address() common.Address {
	return m.address
}

// Mint submits mint(params) and reports the token id and consumed amounts from the receipt.
func (m *PositionManager) Mint(ctx context.Context, params model.MintParams) (model.MintResult, error) {
	if m.sender == nil {
		return model.MintResult{}, fmt.Errorf("sender is nil")
	}
	data, err := PackMint(params)
	if err != nil {
		return model.MintResult{}, err
	}

	receipt, err := m.sender.Send(ctx, m.address, data)
	if err != nil {
		return model.MintResult{}, err
	}

	result, err := DecodeMintReceipt(receipt, m.address)
	if err != nil {
		return model.MintResult{}, err
	}
	m.logger.Debug("mint receipt decoded",
		zap.String("token_id", result.TokenID.String()),
		zap.String("liquidity", result.Liquidity.String()),
	)
	return result, nil
}

// PackMint ABI-encodes a mint call.
func PackMint(params model.MintParams) ([]byte, error) {
	parsed, err := PositionManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse position manager abi: %w", err)
	}
	data, err := parsed.Pack("mint", params)
	if err != nil {
		return nil, fmt.Errorf("pack mint: %w", err)
	}
	return data, nil
}

// DecodeMintReceipt extracts the IncreaseLiquidity event emitted by manager.
func DecodeMintReceipt(receipt *types.Receipt, manager common.Address) (model.MintResult, error) {
	if receipt == nil {
		return model.MintResult{}, fmt.Errorf("receipt is nil")
	}
	parsed, err := PositionManagerABI()
	if err != nil {
		return model.MintResult{}, fmt.Errorf("parse position manager abi: %w", err)
	}
	event := parsed.Events["IncreaseLiquidity"]

	for _, log := range receipt.Logs {
		if log == nil || log.Address != manager || len(log.Topics) != 2 || log.Topics[0] != event.ID {
			continue
		}

		values, err := event.Inputs.NonIndexed().Unpack(log.Data)
		if err != nil {
			return model.MintResult{}, fmt.Errorf("unpack %s: %w", event.Name, err)
		}
		if len(values) != 3 {
			return model.MintResult{}, fmt.Errorf("unexpected %s values: %d", event.Name, len(values))
		}
		liquidity, err := asBigInt(values[0])
		if err != nil {
			return model.MintResult{}, err
		}
		amount0, err := asBigInt(values[1])
		if err != nil {
			return model.MintResult{}, err
		}
		amount1, err := asBigInt(values[2])
		if err != nil {
			return model.MintResult{}, err
		}

		var blockNumber uint64
		if receipt.BlockNumber != nil {
			blockNumber = receipt.BlockNumber.Uint64()
		}
		return model.MintResult{
			TokenID:     new(big.Int).SetBytes(log.Topics[1].Bytes()),
			Liquidity:   liquidity,
			Amount0:     amount0,
			Amount1:     amount1,
			TxHash:      receipt.TxHash,
			BlockNumber: blockNumber,
		}, nil
	}

	return model.MintResult{}, fmt.Errorf("no %s event from %s in tx %s", event.Name, manager.Hex(), receipt.TxHash.Hex())
}
