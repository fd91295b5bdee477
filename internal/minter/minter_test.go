package minter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lpMinter/internal/model"
	"lpMinter/internal/tickrange"
)

var (
	poolAddr    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	caller      = common.HexToAddress("0x2222222222222222222222222222222222222222")
	custody     = common.HexToAddress("0x3333333333333333333333333333333333333333")
	managerAddr = common.HexToAddress("0x4444444444444444444444444444444444444444")
	tokenA      = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	tokenB      = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

// ledger is an in-memory ERC20 world seen from the custody account.
type ledger struct {
	balances    map[common.Address]map[common.Address]*big.Int
	allowances  map[common.Address]map[allowanceKey]*big.Int
	decimals    map[common.Address]uint8
	decimalsErr map[common.Address]error
	fail        map[string]error
	calls       []string
}

func newLedger() *ledger {
	return &ledger{
		balances:    make(map[common.Address]map[common.Address]*big.Int),
		allowances:  make(map[common.Address]map[allowanceKey]*big.Int),
		decimals:    make(map[common.Address]uint8),
		decimalsErr: make(map[common.Address]error),
		fail:        make(map[string]error),
	}
}

func (l *ledger) balance(token, holder common.Address) *big.Int {
	if l.balances[token] == nil {
		l.balances[token] = make(map[common.Address]*big.Int)
	}
	if l.balances[token][holder] == nil {
		l.balances[token][holder] = new(big.Int)
	}
	return l.balances[token][holder]
}

func (l *ledger) allowance(token, owner, spender common.Address) *big.Int {
	if l.allowances[token] == nil {
		l.allowances[token] = make(map[allowanceKey]*big.Int)
	}
	key := allowanceKey{owner: owner, spender: spender}
	if l.allowances[token][key] == nil {
		l.allowances[token][key] = new(big.Int)
	}
	return l.allowances[token][key]
}

func (l *ledger) move(token, from, to common.Address, amount *big.Int) error {
	bal := l.balance(token, from)
	if bal.Cmp(amount) < 0 {
		return errors.New("ERC20: transfer amount exceeds balance")
	}
	bal.Sub(bal, amount)
	dst := l.balance(token, to)
	dst.Add(dst, amount)
	return nil
}

func (l *ledger) spend(token, owner, spender, to common.Address, amount *big.Int) error {
	allowed := l.allowance(token, owner, spender)
	if allowed.Cmp(amount) < 0 {
		return errors.New("ERC20: insufficient allowance")
	}
	if err := l.move(token, owner, to, amount); err != nil {
		return err
	}
	allowed.Sub(allowed, amount)
	return nil
}

func (l *ledger) record(op string, token common.Address) error {
	key := fmt.Sprintf("%s:%s", op, token.Hex())
	l.calls = append(l.calls, key)
	return l.fail[key]
}

func (l *ledger) countOps(op string) int {
	n := 0
	for _, call := range l.calls {
		if len(call) > len(op) && call[:len(op)+1] == op+":" {
			n++
		}
	}
	return n
}

func (l *ledger) Decimals(_ context.Context, token common.Address) (uint8, error) {
	if err := l.decimalsErr[token]; err != nil {
		return 0, err
	}
	return l.decimals[token], nil
}

func (l *ledger) TransferFrom(_ context.Context, token, owner common.Address, amount *big.Int) error {
	if err := l.record("transferFrom", token); err != nil {
		return err
	}
	return l.spend(token, owner, custody, custody, amount)
}

func (l *ledger) Transfer(_ context.Context, token, recipient common.Address, amount *big.Int) error {
	if err := l.record("transfer", token); err != nil {
		return err
	}
	return l.move(token, custody, recipient, amount)
}

func (l *ledger) Approve(_ context.Context, token, spender common.Address, amount *big.Int) error {
	if err := l.record("approve", token); err != nil {
		return err
	}
	l.allowance(token, custody, spender).Set(amount)
	return nil
}

type fakePool struct {
	state model.PoolState
	err   error
	calls int
}

func (p *fakePool) PoolState(_ context.Context, pool common.Address) (model.PoolState, error) {
	p.calls++
	if p.err != nil {
		return model.PoolState{}, p.err
	}
	state := p.state
	state.Address = pool.Hex()
	return state, nil
}

type fakeClock struct {
	time uint64
	err  error
}

func (c *fakeClock) BlockTime(context.Context) (uint64, error) {
	return c.time, c.err
}

// fakeManager consumes consumeBps/10000 of each desired amount and enforces the
// same slippage and deadline checks as the real position manager.
type fakeManager struct {
	ledger     *ledger
	clock      *fakeClock
	consumeBps int64
	nextID     int64
	err        error
	params     []model.MintParams
}

func (m *fakeManager) Address() common.Address {
	return managerAddr
}

func (m *fakeManager) Mint(_ context.Context, params model.MintParams) (model.MintResult, error) {
	m.params = append(m.params, params)
	if m.err != nil {
		return model.MintResult{}, m.err
	}
	if params.Deadline.Uint64() < m.clock.time {
		return model.MintResult{}, errors.New("Transaction too old")
	}
	used0 := new(big.Int).Mul(params.Amount0Desired, big.NewInt(m.consumeBps))
	used0.Quo(used0, big.NewInt(10000))
	used1 := new(big.Int).Mul(params.Amount1Desired, big.NewInt(m.consumeBps))
	used1.Quo(used1, big.NewInt(10000))
	if used0.Cmp(params.Amount0Min) < 0 || used1.Cmp(params.Amount1Min) < 0 {
		return model.MintResult{}, errors.New("Price slippage check")
	}
	if err := m.ledger.spend(params.Token0, custody, managerAddr, managerAddr, used0); err != nil {
		return model.MintResult{}, err
	}
	if err := m.ledger.spend(params.Token1, custody, managerAddr, managerAddr, used1); err != nil {
		return model.MintResult{}, err
	}
	m.nextID++
	return model.MintResult{
		TokenID:     big.NewInt(m.nextID),
		Liquidity:   big.NewInt(123456),
		Amount0:     used0,
		Amount1:     used1,
		TxHash:      common.BigToHash(big.NewInt(m.nextID)),
		BlockNumber: 100 + uint64(m.nextID),
	}, nil
}

type recordingNotifier struct {
	records []model.MintRecord
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, record model.MintRecord) error {
	n.records = append(n.records, record)
	return n.err
}

type harness struct {
	ledger   *ledger
	pool     *fakePool
	clock    *fakeClock
	manager  *fakeManager
	notifier *recordingNotifier
	minter   *Minter
}

func newHarness(cfg Config) *harness {
	l := newLedger()
	l.decimals[tokenA] = 18
	l.decimals[tokenB] = 6
	l.balance(tokenA, caller).Set(pow10(30))
	l.balance(tokenB, caller).Set(pow10(30))
	l.allowance(tokenA, caller, custody).Set(pow10(30))
	l.allowance(tokenB, caller, custody).Set(pow10(30))

	pool := &fakePool{state: model.PoolState{
		Token0:      tokenA.Hex(),
		Token1:      tokenB.Hex(),
		Fee:         3000,
		TickSpacing: 60,
		Tick:        100,
	}}
	clock := &fakeClock{time: 1700000000}
	manager := &fakeManager{ledger: l, clock: clock, consumeBps: 9700}
	notifier := &recordingNotifier{}

	return &harness{
		ledger:   l,
		pool:     pool,
		clock:    clock,
		manager:  manager,
		notifier: notifier,
		minter:   New(cfg, pool, l, manager, clock, notifier, zap.NewNop()),
	}
}

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

func units(amount, decimals int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(amount), pow10(decimals))
}

func validRequest() Request {
	return Request{
		Caller:  caller,
		Pool:    poolAddr,
		Amount0: units(1000, 18),
		Amount1: units(2000, 6),
		Width:   4000,
	}
}

func TestMintNewPositionEndToEnd(t *testing.T) {
	h := newHarness(Config{ChainID: 1})
	req := validRequest()

	result, err := h.minter.MintNewPosition(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, int64(1), result.TokenID.Int64())

	require.Len(t, h.manager.params, 1)
	params := h.manager.params[0]
	require.Equal(t, int64(100-2666), params.TickLower.Int64())
	require.Equal(t, int64(100+1334), params.TickUpper.Int64())
	require.Equal(t, int64(4000), params.TickUpper.Int64()-params.TickLower.Int64())
	require.Equal(t, uint64(3000), params.Fee.Uint64())
	require.Equal(t, caller, params.Recipient)
	require.Equal(t, uint64(1700000000), params.Deadline.Uint64())
	requireBig(t, MinAmount(req.Amount0), params.Amount0Min)
	requireBig(t, units(1900, 6), params.Amount1Min)

	require.True(t, result.Amount0.Cmp(params.Amount0Min) >= 0)
	require.True(t, result.Amount1.Cmp(params.Amount1Min) >= 0)

	// Caller paid exactly what the manager consumed; the rest came back.
	spent0 := new(big.Int).Sub(pow10(30), h.ledger.balance(tokenA, caller))
	spent1 := new(big.Int).Sub(pow10(30), h.ledger.balance(tokenB, caller))
	requireBig(t, result.Amount0, spent0)
	requireBig(t, result.Amount1, spent1)
	require.Zero(t, h.ledger.balance(tokenA, custody).Sign())
	require.Zero(t, h.ledger.balance(tokenB, custody).Sign())
	require.Zero(t, h.ledger.allowance(tokenA, custody, managerAddr).Sign())
	require.Zero(t, h.ledger.allowance(tokenB, custody, managerAddr).Sign())

	require.Len(t, h.notifier.records, 1)
	record := h.notifier.records[0]
	require.Equal(t, "1", record.TokenID)
	require.Equal(t, result.Amount0.String(), record.Amount0)
	require.Equal(t, result.Amount1.String(), record.Amount1)
	require.Equal(t, spentRefund(req.Amount0, result.Amount0), record.Refund0)
	require.Equal(t, uint64(1), record.ChainID)
	require.Equal(t, int32(4000), record.Width)
	require.NotEmpty(t, record.ID)
}

func requireBig(t *testing.T, want, got *big.Int) {
	t.Helper()
	require.NotNil(t, got)
	require.Zero(t, want.Cmp(got), "want %s, got %s", want, got)
}

func spentRefund(desired, used *big.Int) string {
	return new(big.Int).Sub(desired, used).String()
}

func TestMintNewPositionFullConsumptionSkipsRefund(t *testing.T) {
	h := newHarness(Config{})
	h.manager.consumeBps = 10000

	_, err := h.minter.MintNewPosition(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, 0, h.ledger.countOps("transfer"))
	require.Equal(t, "0", h.notifier.records[0].Refund0)
}

func TestMintNewPositionDistinctPositionIDs(t *testing.T) {
	h := newHarness(Config{})

	first, err := h.minter.MintNewPosition(context.Background(), validRequest())
	require.NoError(t, err)
	second, err := h.minter.MintNewPosition(context.Background(), validRequest())
	require.NoError(t, err)

	require.NotEqual(t, first.TokenID.String(), second.TokenID.String())
	require.NotEqual(t, h.notifier.records[0].ID, h.notifier.records[1].ID)
}

func TestMintNewPositionValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"zero pool", func(r *Request) { r.Pool = common.Address{} }, ErrZeroPoolAddress},
		{"zero caller", func(r *Request) { r.Caller = common.Address{} }, ErrZeroCaller},
		{"zero amount0", func(r *Request) { r.Amount0 = big.NewInt(0) }, ErrZeroAmount},
		{"zero amount1", func(r *Request) { r.Amount1 = big.NewInt(0) }, ErrZeroAmount},
		{"negative amount1", func(r *Request) { r.Amount1 = big.NewInt(-3) }, ErrZeroAmount},
		{"nil amount0", func(r *Request) { r.Amount0 = nil }, ErrZeroAmount},
		{"zero width", func(r *Request) { r.Width = 0 }, ErrZeroWidth},
		{"negative width", func(r *Request) { r.Width = -60 }, ErrZeroWidth},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(Config{})
			req := validRequest()
			tc.mutate(&req)

			_, err := h.minter.MintNewPosition(context.Background(), req)
			require.ErrorIs(t, err, tc.want)
			require.Zero(t, h.pool.calls)
			require.Empty(t, h.ledger.calls)
		})
	}

	require.NotErrorIs(t, ErrZeroWidth, ErrZeroAmount)
}

func TestMintNewPositionDecimalsFailure(t *testing.T) {
	h := newHarness(Config{})
	native := errors.New("execution reverted")
	h.ledger.decimalsErr[tokenB] = native

	_, err := h.minter.MintNewPosition(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrDecimalsFailed)
	require.ErrorIs(t, err, native)
	require.Empty(t, h.ledger.calls)
	require.Empty(t, h.manager.params)
}

func TestMintNewPositionDecimalsTooLarge(t *testing.T) {
	h := newHarness(Config{})
	h.ledger.decimals[tokenA] = 24

	_, err := h.minter.MintNewPosition(context.Background(), validRequest())
	require.ErrorIs(t, err, tickrange.ErrDecimalsTooLarge)
	require.Empty(t, h.ledger.calls)
}

func TestMintNewPositionPoolFailure(t *testing.T) {
	h := newHarness(Config{})
	h.pool.err = errors.New("connection refused")

	_, err := h.minter.MintNewPosition(context.Background(), validRequest())
	require.ErrorContains(t, err, "connection refused")
	require.Empty(t, h.ledger.calls)
}

func TestMintNewPositionSecondTransferFailureRefundsFirst(t *testing.T) {
	h := newHarness(Config{})
	native := errors.New("ERC20: transfer amount exceeds balance")
	h.ledger.fail["transferFrom:"+tokenB.Hex()] = native

	_, err := h.minter.MintNewPosition(context.Background(), validRequest())
	require.ErrorIs(t, err, native)
	requireBig(t, pow10(30), h.ledger.balance(tokenA, caller))
	require.Zero(t, h.ledger.balance(tokenA, custody).Sign())
	require.Equal(t, 0, h.ledger.countOps("approve"))
	require.Empty(t, h.manager.params)
}

func TestMintNewPositionApproveFailureUnwinds(t *testing.T) {
	h := newHarness(Config{})
	native := errors.New("approve reverted")
	h.ledger.fail["approve:"+tokenB.Hex()] = native

	_, err := h.minter.MintNewPosition(context.Background(), validRequest())
	require.ErrorIs(t, err, native)
	requireBig(t, pow10(30), h.ledger.balance(tokenA, caller))
	requireBig(t, pow10(30), h.ledger.balance(tokenB, caller))
	require.Zero(t, h.ledger.allowance(tokenA, custody, managerAddr).Sign())
}

func TestMintNewPositionMintFailureUnwinds(t *testing.T) {
	h := newHarness(Config{})
	h.manager.consumeBps = 9000

	_, err := h.minter.MintNewPosition(context.Background(), validRequest())
	require.ErrorContains(t, err, "Price slippage check")
	require.NotErrorIs(t, err, ErrCompensationFailed)

	requireBig(t, pow10(30), h.ledger.balance(tokenA, caller))
	requireBig(t, pow10(30), h.ledger.balance(tokenB, caller))
	require.Zero(t, h.ledger.balance(tokenA, custody).Sign())
	require.Zero(t, h.ledger.balance(tokenB, custody).Sign())
	require.Zero(t, h.ledger.allowance(tokenA, custody, managerAddr).Sign())
	require.Zero(t, h.ledger.allowance(tokenB, custody, managerAddr).Sign())
	require.Empty(t, h.notifier.records)
}

func TestMintNewPositionClockFailureUnwinds(t *testing.T) {
	h := newHarness(Config{})
	h.clock.err = errors.New("header not found")

	_, err := h.minter.MintNewPosition(context.Background(), validRequest())
	require.ErrorContains(t, err, "header not found")
	require.Empty(t, h.manager.params)
	requireBig(t, pow10(30), h.ledger.balance(tokenB, caller))
}

func TestMintNewPositionCompensationFailure(t *testing.T) {
	h := newHarness(Config{})
	h.manager.err = errors.New("mint reverted")
	h.ledger.fail["transfer:"+tokenA.Hex()] = errors.New("refund reverted")

	_, err := h.minter.MintNewPosition(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrCompensationFailed)
	require.ErrorContains(t, err, "mint reverted")
	require.ErrorContains(t, err, "refund reverted")
	// token1 is still refunded even though token0 could not be.
	requireBig(t, pow10(30), h.ledger.balance(tokenB, caller))
}

func TestMintNewPositionRefundFailureKeepsResult(t *testing.T) {
	h := newHarness(Config{})
	h.ledger.fail["transfer:"+tokenA.Hex()] = errors.New("refund reverted")

	result, err := h.minter.MintNewPosition(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrRefundFailed)
	require.NotNil(t, result.TokenID)
	require.Len(t, h.notifier.records, 1)
}

func TestMintNewPositionNotifyFailureKeepsResult(t *testing.T) {
	h := newHarness(Config{})
	h.notifier.err = errors.New("disk full")

	result, err := h.minter.MintNewPosition(context.Background(), validRequest())
	require.ErrorContains(t, err, "disk full")
	require.Equal(t, int64(1), result.TokenID.Int64())
}

func TestPlanAlignTicks(t *testing.T) {
	h := newHarness(Config{AlignTicks: true})

	plan, err := h.minter.Plan(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, int32(-2580), plan.TickLower)
	require.Equal(t, int32(1440), plan.TickUpper)
	require.Equal(t, int32(2666), plan.Range.Lower)
	require.Equal(t, int32(1334), plan.Range.Upper)
}

func TestPlanTickOutOfRange(t *testing.T) {
	h := newHarness(Config{})
	h.pool.state.Tick = MaxTick - 10

	_, err := h.minter.Plan(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrTickOutOfRange)
}

func TestTickSpacingRounding(t *testing.T) {
	require.Equal(t, int64(-120), floorToSpacing(-61, 60))
	require.Equal(t, int64(-60), floorToSpacing(-60, 60))
	require.Equal(t, int64(60), floorToSpacing(61, 60))
	require.Equal(t, int64(120), ceilToSpacing(61, 60))
	require.Equal(t, int64(-60), ceilToSpacing(-61, 60))
	require.Equal(t, int64(0), ceilToSpacing(0, 60))
}

func TestMinAmount(t *testing.T) {
	requireBig(t, big.NewInt(95), MinAmount(big.NewInt(100)))
	requireBig(t, big.NewInt(0), MinAmount(big.NewInt(1)))
	requireBig(t, big.NewInt(1899), MinAmount(big.NewInt(1999)))
}
