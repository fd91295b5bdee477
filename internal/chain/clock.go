package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// ErrNoPendingBlock is returned when the node does not serve the pending block.
var ErrNoPendingBlock = errors.New("pending block unavailable")

// HeaderReader reads block headers.
type HeaderReader interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Clock reports block time from chain headers.
type Clock struct {
	headers HeaderReader
}

func NewClock(headers HeaderReader) *Clock {
	return &Clock{headers: headers}
}

// BlockTime returns the timestamp of the pending block, i.e. the block a transaction
// sent now is expected to land in.
func (c *Clock) BlockTime(ctx context.Context) (uint64, error) {
	header, err := c.headers.HeaderByNumber(ctx, big.NewInt(int64(rpc.PendingBlockNumber)))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNoPendingBlock, err)
	}
	if header == nil {
		return 0, ErrNoPendingBlock
	}
	return header.Time, nil
}
