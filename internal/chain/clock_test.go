package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
)

type stubHeaders struct {
	pending *types.Header
	latest  *types.Header
	err     error
}

func (s stubHeaders) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	if number == nil {
		if s.latest == nil {
			return nil, s.err
		}
		return s.latest, nil
	}
	if s.pending == nil {
		return nil, errors.New("pending block not available")
	}
	return s.pending, nil
}

func TestClockPendingHeader(t *testing.T) {
	clock := NewClock(stubHeaders{
		pending: &types.Header{Time: 1700000012},
		latest:  &types.Header{Time: 1700000000},
	})
	ts, err := clock.BlockTime(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts != 1700000012 {
		t.Fatalf("block time mismatch: %d", ts)
	}
}

func TestClockRejectsLatestOnlyNode(t *testing.T) {
	clock := NewClock(stubHeaders{latest: &types.Header{Time: 1700000000}})
	ts, err := clock.BlockTime(context.Background())
	if !errors.Is(err, ErrNoPendingBlock) {
		t.Fatalf("expected pending block error, got %v", err)
	}
	if ts != 0 {
		t.Fatalf("expected no block time, got %d", ts)
	}
}

func TestClockError(t *testing.T) {
	clock := NewClock(stubHeaders{err: errors.New("rpc down")})
	if _, err := clock.BlockTime(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
