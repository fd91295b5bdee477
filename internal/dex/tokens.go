package dex

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"lpMinter/internal/model"
)

// Sender submits state-changing transactions from the custody account.
type Sender interface {
	From() common.Address
	Send(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error)
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// Tokens reads ERC20 metadata and moves funds for the custody account.
type Tokens struct {
	caller ContractCaller
	sender Sender
	cache  *TokenMetaCache
	logger *zap.Logger
}

// NewTokens builds a token client. sender may be nil for read-only use.
func NewTokens(caller ContractCaller, sender Sender, logger *zap.Logger) *Tokens {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tokens{
		caller: caller,
		sender: sender,
		cache:  NewTokenMetaCache(),
		logger: logger,
	}
}

// Meta loads decimals and symbol. A decimals failure is returned as an error; a
// missing symbol is not. Only successful lookups are cached.
func (t *Tokens) Meta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	if meta, ok := t.cache.Get(token); ok {
		return meta, nil
	}
	if t.caller == nil {
		return model.TokenMeta{}, fmt.Errorf("contract caller is nil")
	}

	parsed, err := ERC20ABI()
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("parse erc20 abi: %w", err)
	}

	values, err := callMethod(ctx, t.caller, token, parsed, "decimals")
	if err != nil {
		return model.TokenMeta{}, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("decimals: %w", err)
	}

	meta := model.TokenMeta{Address: token.Hex(), Decimals: decimals}
	if values, err := callMethod(ctx, t.caller, token, parsed, "symbol"); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if bytes32ABI, abiErr := erc20ABIBytes32Instance(); abiErr == nil {
		if values, err := callMethod(ctx, t.caller, token, bytes32ABI, "symbol"); err == nil {
			if symbol, ok := bytes32ToString(values[0]); ok {
				meta.Symbol = symbol
			}
		} else {
			t.logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
		}
	}

	t.cache.Set(token, meta)
	return meta, nil
}

// Decimals returns the token's decimal precision.
func (t *Tokens) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	meta, err := t.Meta(ctx, token)
	if err != nil {
		return 0, err
	}
	return meta.Decimals, nil
}

// TransferFrom pulls amount from owner into the custody account.
func (t *Tokens) TransferFrom(ctx context.Context, token, owner common.Address, amount *big.Int) error {
	if t.sender == nil {
		return fmt.Errorf("sender is nil")
	}
	return t.send(ctx, token, "transferFrom", owner, t.sender.From(), amount)
}

// Transfer sends amount from the custody account to recipient.
func (t *Tokens) Transfer(ctx context.Context, token, recipient common.Address, amount *big.Int) error {
	return t.send(ctx, token, "transfer", recipient, amount)
}

// Approve sets the custody account's allowance for spender.
func (t *Tokens) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) error {
	return t.send(ctx, token, "approve", spender, amount)
}

func (t *Tokens) send(ctx context.Context, token common.Address, method string, args ...interface{}) error {
	if t.sender == nil {
		return fmt.Errorf("sender is nil")
	}
	parsed, err := ERC20ABI()
	if err != nil {
		return fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	receipt, err := t.sender.Send(ctx, token, data)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, token.Hex(), err)
	}
	t.logger.Info("token tx confirmed",
		zap.String("method", method),
		zap.String("token", token.Hex()),
		zap.String("tx", receipt.TxHash.Hex()),
	)
	return nil
}
