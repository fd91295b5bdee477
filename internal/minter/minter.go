// Package minter opens a concentrated-liquidity position from a two-token deposit.
package minter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"lpMinter/internal/model"
	"lpMinter/internal/tickrange"
)

// PoolReader reads pool state.
type PoolReader interface {
	PoolState(ctx context.Context, pool common.Address) (model.PoolState, error)
}

// TokenClient moves ERC20 funds on behalf of the custody account.
type TokenClient interface {
	Decimals(ctx context.Context, token common.Address) (uint8, error)
	// TransferFrom pulls amount from owner into custody.
	TransferFrom(ctx context.Context, token, owner common.Address, amount *big.Int) error
	// Transfer sends amount from custody to recipient.
	Transfer(ctx context.Context, token, recipient common.Address, amount *big.Int) error
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) error
}

// PositionManager mints position NFTs.
type PositionManager interface {
	Address() common.Address
	Mint(ctx context.Context, params model.MintParams) (model.MintResult, error)
}

// Clock reports the current block time in unix seconds.
type Clock interface {
	BlockTime(ctx context.Context) (uint64, error)
}

// Notifier receives one record per minted position.
type Notifier interface {
	Notify(ctx context.Context, record model.MintRecord) error
}

// Config controls minting behavior.
type Config struct {
	ChainID uint64
	// AlignTicks rounds the lower tick down and the upper tick up to the pool's tick spacing.
	AlignTicks bool
}

// Request describes one mint.
type Request struct {
	Caller  common.Address
	Pool    common.Address
	Amount0 *big.Int
	Amount1 *big.Int
	Width   int32
}

// Validate checks the request before any external call is made.
func (r Request) Validate() error {
	if r.Pool == (common.Address{}) {
		return ErrZeroPoolAddress
	}
	if r.Caller == (common.Address{}) {
		return ErrZeroCaller
	}
	if r.Amount0 == nil || r.Amount0.Sign() <= 0 || r.Amount1 == nil || r.Amount1.Sign() <= 0 {
		return ErrZeroAmount
	}
	if r.Width <= 0 {
		return ErrZeroWidth
	}
	return nil
}

// Plan is everything derived from chain reads before funds move.
type Plan struct {
	Request   Request
	Pool      model.PoolState
	Decimals0 uint8
	Decimals1 uint8
	Range     tickrange.Range
	TickLower int32
	TickUpper int32
	Params    model.MintParams
}

// Minter orchestrates custody, approval and minting.
type Minter struct {
	cfg      Config
	pools    PoolReader
	tokens   TokenClient
	manager  PositionManager
	clock    Clock
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// New builds a Minter. notifier may be nil.
func New(cfg Config, pools PoolReader, tokens TokenClient, manager PositionManager, clock Clock, notifier Notifier, logger *zap.Logger) *Minter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Minter{
		cfg:      cfg,
		pools:    pools,
		tokens:   tokens,
		manager:  manager,
		clock:    clock,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Plan validates the request, reads pool state and token decimals, and derives the
// tick range and mint parameters. It moves no funds.
func (m *Minter) Plan(ctx context.Context, req Request) (Plan, error) {
	if err := req.Validate(); err != nil {
		return Plan{}, err
	}

	state, err := m.pools.PoolState(ctx, req.Pool)
	if err != nil {
		return Plan{}, fmt.Errorf("read pool state: %w", err)
	}
	token0 := common.HexToAddress(state.Token0)
	token1 := common.HexToAddress(state.Token1)

	decimals0, err := m.tokens.Decimals(ctx, token0)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: token0 %s: %w", ErrDecimalsFailed, token0.Hex(), err)
	}
	decimals1, err := m.tokens.Decimals(ctx, token1)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: token1 %s: %w", ErrDecimalsFailed, token1.Hex(), err)
	}

	rng, err := tickrange.Compute(req.Width, req.Amount0, decimals0, req.Amount1, decimals1)
	if err != nil {
		return Plan{}, fmt.Errorf("compute range: %w", err)
	}

	tickLower, tickUpper, err := m.ticks(state, rng)
	if err != nil {
		return Plan{}, err
	}

	return Plan{
		Request:   req,
		Pool:      state,
		Decimals0: decimals0,
		Decimals1: decimals1,
		Range:     rng,
		TickLower: tickLower,
		TickUpper: tickUpper,
		Params: model.MintParams{
			Token0:         token0,
			Token1:         token1,
			Fee:            new(big.Int).SetUint64(uint64(state.Fee)),
			TickLower:      big.NewInt(int64(tickLower)),
			TickUpper:      big.NewInt(int64(tickUpper)),
			Amount0Desired: new(big.Int).Set(req.Amount0),
			Amount1Desired: new(big.Int).Set(req.Amount1),
			Amount0Min:     MinAmount(req.Amount0),
			Amount1Min:     MinAmount(req.Amount1),
			Recipient:      req.Caller,
		},
	}, nil
}

func (m *Minter) ticks(state model.PoolState, rng tickrange.Range) (int32, int32, error) {
	lower := int64(state.Tick) - int64(rng.Lower)
	upper := int64(state.Tick) + int64(rng.Upper)
	if m.cfg.AlignTicks && state.TickSpacing > 0 {
		lower = floorToSpacing(lower, int64(state.TickSpacing))
		upper = ceilToSpacing(upper, int64(state.TickSpacing))
	}
	if lower < MinTick || upper > MaxTick {
		return 0, 0, fmt.Errorf("%w: [%d, %d]", ErrTickOutOfRange, lower, upper)
	}
	return int32(lower), int32(upper), nil
}

// MintNewPosition pulls both deposits from the caller into custody, approves the position
// manager and mints a position to the caller.
//
// A failure before the mint succeeds unwinds every completed transfer and approval. Once
// the mint has succeeded its result is always returned; a later failure to refund the
// unused remainder or to deliver the notification is returned alongside it.
func (m *Minter) MintNewPosition(ctx context.Context, req Request) (model.MintResult, error) {
	plan, err := m.Plan(ctx, req)
	if err != nil {
		return model.MintResult{}, err
	}

	log := m.logger.With(
		zap.String("pool", req.Pool.Hex()),
		zap.String("caller", req.Caller.Hex()),
		zap.Int32("tick", plan.Pool.Tick),
		zap.Int32("tick_lower", plan.TickLower),
		zap.Int32("tick_upper", plan.TickUpper),
	)
	log.Info("mint planned",
		zap.String("amount0", req.Amount0.String()),
		zap.String("amount1", req.Amount1.String()),
		zap.Int32("width", req.Width),
		zap.Int32("lower_offset", plan.Range.Lower),
		zap.Int32("upper_offset", plan.Range.Upper),
	)

	undo := &compensator{}

	if err := m.takeCustody(ctx, plan, undo); err != nil {
		return model.MintResult{}, m.abort(ctx, log, undo, err)
	}
	if err := m.approve(ctx, plan, undo); err != nil {
		return model.MintResult{}, m.abort(ctx, log, undo, err)
	}

	blockTime, err := m.clock.BlockTime(ctx)
	if err != nil {
		return model.MintResult{}, m.abort(ctx, log, undo, fmt.Errorf("read block time: %w", err))
	}
	params := plan.Params
	params.Deadline = new(big.Int).SetUint64(blockTime + DeadlineGrace)

	result, err := m.manager.Mint(ctx, params)
	if err != nil {
		return model.MintResult{}, m.abort(ctx, log, undo, fmt.Errorf("mint: %w", err))
	}

	log.Info("position minted",
		zap.String("token_id", result.TokenID.String()),
		zap.String("amount0", result.Amount0.String()),
		zap.String("amount1", result.Amount1.String()),
		zap.String("tx", result.TxHash.Hex()),
	)

	refund0, refund1, refundErr := m.refundUnused(ctx, plan, result)
	if refundErr != nil {
		log.Error("refund unused deposit failed", zap.Error(refundErr))
	}

	record := m.buildRecord(plan, result, refund0, refund1)
	var notifyErr error
	if m.notifier != nil {
		if err := m.notifier.Notify(ctx, record); err != nil {
			notifyErr = fmt.Errorf("notify: %w", err)
			log.Error("notify failed", zap.Error(err))
		}
	}

	return result, errors.Join(refundErr, notifyErr)
}

func (m *Minter) takeCustody(ctx context.Context, plan Plan, undo *compensator) error {
	req := plan.Request
	legs := []struct {
		name   string
		token  common.Address
		amount *big.Int
	}{
		{"token0", plan.Params.Token0, req.Amount0},
		{"token1", plan.Params.Token1, req.Amount1},
	}
	for _, leg := range legs {
		if err := m.tokens.TransferFrom(ctx, leg.token, req.Caller, leg.amount); err != nil {
			return fmt.Errorf("transfer %s into custody: %w", leg.name, err)
		}
		token, amount := leg.token, leg.amount
		undo.push("refund "+leg.name, func(ctx context.Context) error {
			return m.tokens.Transfer(ctx, token, req.Caller, amount)
		})
	}
	return nil
}

func (m *Minter) approve(ctx context.Context, plan Plan, undo *compensator) error {
	spender := m.manager.Address()
	legs := []struct {
		name   string
		token  common.Address
		amount *big.Int
	}{
		{"token0", plan.Params.Token0, plan.Params.Amount0Desired},
		{"token1", plan.Params.Token1, plan.Params.Amount1Desired},
	}
	for _, leg := range legs {
		if err := m.tokens.Approve(ctx, leg.token, spender, leg.amount); err != nil {
			return fmt.Errorf("approve %s: %w", leg.name, err)
		}
		token := leg.token
		undo.push("revoke "+leg.name, func(ctx context.Context) error {
			return m.tokens.Approve(ctx, token, spender, new(big.Int))
		})
	}
	return nil
}

func (m *Minter) abort(ctx context.Context, log *zap.Logger, undo *compensator, cause error) error {
	if undo.len() == 0 {
		return cause
	}
	log.Warn("mint aborted, unwinding", zap.Error(cause), zap.Int("steps", undo.len()))
	// Compensation must run even when ctx is what failed.
	if err := undo.run(context.WithoutCancel(ctx)); err != nil {
		log.Error("unwind incomplete", zap.Error(err))
		return errors.Join(cause, fmt.Errorf("%w: %w", ErrCompensationFailed, err))
	}
	return cause
}

// refundUnused returns whatever the position manager did not consume and clears the
// leftover allowance.
func (m *Minter) refundUnused(ctx context.Context, plan Plan, result model.MintResult) (*big.Int, *big.Int, error) {
	spender := m.manager.Address()
	refund := func(name string, token common.Address, desired, used *big.Int) (*big.Int, error) {
		left := new(big.Int).Sub(desired, used)
		if left.Sign() <= 0 {
			return new(big.Int), nil
		}
		if err := m.tokens.Approve(ctx, token, spender, new(big.Int)); err != nil {
			return new(big.Int), fmt.Errorf("%w: revoke %s: %w", ErrRefundFailed, name, err)
		}
		if err := m.tokens.Transfer(ctx, token, plan.Request.Caller, left); err != nil {
			return new(big.Int), fmt.Errorf("%w: %s: %w", ErrRefundFailed, name, err)
		}
		return left, nil
	}

	refund0, err0 := refund("token0", plan.Params.Token0, plan.Params.Amount0Desired, result.Amount0)
	refund1, err1 := refund("token1", plan.Params.Token1, plan.Params.Amount1Desired, result.Amount1)
	return refund0, refund1, errors.Join(err0, err1)
}

func (m *Minter) buildRecord(plan Plan, result model.MintResult, refund0, refund1 *big.Int) model.MintRecord {
	return model.MintRecord{
		ID:          uuid.NewString(),
		ChainID:     m.cfg.ChainID,
		Pool:        plan.Request.Pool.Hex(),
		Caller:      plan.Request.Caller.Hex(),
		Token0:      plan.Params.Token0.Hex(),
		Token1:      plan.Params.Token1.Hex(),
		Fee:         plan.Pool.Fee,
		TokenID:     bigString(result.TokenID),
		Liquidity:   bigString(result.Liquidity),
		Amount0:     bigString(result.Amount0),
		Amount1:     bigString(result.Amount1),
		Refund0:     bigString(refund0),
		Refund1:     bigString(refund1),
		CurrentTick: plan.Pool.Tick,
		TickLower:   plan.TickLower,
		TickUpper:   plan.TickUpper,
		Width:       plan.Request.Width,
		TxHash:      result.TxHash.Hex(),
		BlockNumber: result.BlockNumber,
		CreatedAt:   m.now().UTC().Format(time.RFC3339Nano),
	}
}

func floorToSpacing(tick, spacing int64) int64 {
	q := tick / spacing
	if tick%spacing != 0 && tick < 0 {
		q--
	}
	return q * spacing
}

func ceilToSpacing(tick, spacing int64) int64 {
	q := tick / spacing
	if tick%spacing != 0 && tick > 0 {
		q++
	}
	return q * spacing
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
