package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// ErrTxReverted is returned when a mined transaction has a failed status.
var ErrTxReverted = errors.New("transaction reverted")

// gasHeadroomPercent is added on top of the node's gas estimate.
const gasHeadroomPercent = 20

// TxBackend is the subset of Client needed to send transactions.
type TxBackend interface {
	ReceiptReader
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// TransactorConfig controls how transactions are confirmed.
type TransactorConfig struct {
	ChainID        *big.Int
	ReceiptTimeout time.Duration
	ReceiptPoll    time.Duration
}

// Transactor signs and sends transactions from a single account.
type Transactor struct {
	cfg     TransactorConfig
	backend TxBackend
	key     *ecdsa.PrivateKey
	from    common.Address
	logger  *zap.Logger
}

func NewTransactor(cfg TransactorConfig, backend TxBackend, key *ecdsa.PrivateKey, logger *zap.Logger) *Transactor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transactor{
		cfg:     cfg,
		backend: backend,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		logger:  logger,
	}
}

// From returns the sending account.
func (t *Transactor) From() common.Address {
	return t.from
}

// Send signs a call to `to` with `data`, submits it and waits for a successful receipt.
// Gas estimation failures surface the node's revert reason before anything is sent.
func (t *Transactor) Send(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error) {
	if t.cfg.ChainID == nil {
		return nil, fmt.Errorf("chain id is nil")
	}

	nonce, err := t.backend.PendingNonceAt(ctx, t.from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := t.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}
	gas, err := t.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  t.from,
		To:    &to,
		Data:  data,
		Value: big.NewInt(0),
	})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}
	gas += gas * gasHeadroomPercent / 100

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(t.cfg.ChainID), t.key)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}

	if err := t.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send tx: %w", err)
	}
	t.logger.Debug("tx sent",
		zap.String("tx", signed.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gas),
	)

	receipt, err := WaitReceipt(ctx, t.backend, signed.Hash(), t.cfg.ReceiptTimeout, t.cfg.ReceiptPoll)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTxReverted, signed.Hash().Hex())
	}

	t.logger.Debug("tx mined",
		zap.String("tx", signed.Hash().Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
		zap.Uint64("gas_used", receipt.GasUsed),
	)
	return receipt, nil
}
