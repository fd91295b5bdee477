package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lpMinter/internal/chain"
	"lpMinter/internal/config"
	"lpMinter/internal/dex"
	"lpMinter/internal/minter"
	"lpMinter/internal/model"
	"lpMinter/internal/storage"
	"lpMinter/internal/storage/postgres"
	"lpMinter/internal/units"
)

type planOutput struct {
	Pool            string `json:"pool"`
	Caller          string `json:"caller"`
	Token0          string `json:"token0"`
	Token1          string `json:"token1"`
	Fee             uint32 `json:"fee"`
	TickSpacing     int32  `json:"tick_spacing"`
	CurrentTick     int32  `json:"current_tick"`
	LowerOffset     int32  `json:"lower_offset"`
	UpperOffset     int32  `json:"upper_offset"`
	TickLower       int32  `json:"tick_lower"`
	TickUpper       int32  `json:"tick_upper"`
	Amount0Desired  string `json:"amount0_desired"`
	Amount1Desired  string `json:"amount1_desired"`
	Amount0Min      string `json:"amount0_min"`
	Amount1Min      string `json:"amount1_min"`
	Amount0Decimal  string `json:"amount0_decimal"`
	Amount1Decimal  string `json:"amount1_decimal"`
	PositionManager string `json:"position_manager"`
}

type mintOutput struct {
	TokenID     string `json:"token_id"`
	Liquidity   string `json:"liquidity"`
	Amount0     string `json:"amount0"`
	Amount1     string `json:"amount1"`
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
}

func runMint(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadMint(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pool, err := parseAddress("pool", cfg.Pool)
	if err != nil {
		return err
	}
	manager, err := parseAddress("position-manager", cfg.PositionManager)
	if err != nil {
		return err
	}
	amount0, err := units.ParseRaw(cfg.Amount0)
	if err != nil {
		return fmt.Errorf("amount0: %w", err)
	}
	amount1, err := units.ParseRaw(cfg.Amount1)
	if err != nil {
		return fmt.Errorf("amount1: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	var sender dex.Sender
	var caller common.Address
	if cfg.PrivateKey != "" || cfg.Mnemonic != "" {
		key, err := chain.LoadKey(cfg.PrivateKey, cfg.Mnemonic, cfg.DerivationPath)
		if err != nil {
			return err
		}
		transactor := chain.NewTransactor(chain.TransactorConfig{
			ChainID:        chainID,
			ReceiptTimeout: cfg.ReceiptTimeout,
			ReceiptPoll:    cfg.ReceiptPoll,
		}, chainClient, key, logger)
		sender = transactor
		caller = transactor.From()
	}
	if cfg.Caller != "" {
		caller, err = parseAddress("caller", cfg.Caller)
		if err != nil {
			return err
		}
	}

	sinks := storage.MultiSink{storage.NewJsonlSink(cfg.Out)}
	if cfg.PGDSN != "" && !cfg.DryRun {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
	}

	m := minter.New(
		minter.Config{ChainID: chainID.Uint64(), AlignTicks: cfg.AlignTicks},
		dex.NewPoolReader(chainClient),
		dex.NewTokens(chainClient, sender, logger),
		dex.NewPositionManager(manager, sender, logger),
		chain.NewClock(chainClient),
		storage.Notifier{Sink: sinks},
		logger,
	)
	req := minter.Request{
		Caller:  caller,
		Pool:    pool,
		Amount0: amount0,
		Amount1: amount1,
		Width:   cfg.Width,
	}

	logger.Info("mint start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("chain_id", chainID.Uint64()),
		zap.String("pool", pool.Hex()),
		zap.String("caller", caller.Hex()),
		zap.String("position_manager", manager.Hex()),
		zap.Int32("width", cfg.Width),
		zap.Bool("align_ticks", cfg.AlignTicks),
		zap.Bool("dry_run", cfg.DryRun),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	if cfg.DryRun {
		plan, err := m.Plan(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(newPlanOutput(plan, manager))
	}

	result, err := m.MintNewPosition(ctx, req)
	if result.TokenID != nil {
		if printErr := printJSON(newMintOutput(result)); printErr != nil {
			err = errors.Join(err, printErr)
		}
	}
	return err
}

func newPlanOutput(plan minter.Plan, manager common.Address) planOutput {
	return planOutput{
		Pool:            plan.Pool.Address,
		Caller:          plan.Request.Caller.Hex(),
		Token0:          plan.Pool.Token0,
		Token1:          plan.Pool.Token1,
		Fee:             plan.Pool.Fee,
		TickSpacing:     plan.Pool.TickSpacing,
		CurrentTick:     plan.Pool.Tick,
		LowerOffset:     plan.Range.Lower,
		UpperOffset:     plan.Range.Upper,
		TickLower:       plan.TickLower,
		TickUpper:       plan.TickUpper,
		Amount0Desired:  plan.Params.Amount0Desired.String(),
		Amount1Desired:  plan.Params.Amount1Desired.String(),
		Amount0Min:      plan.Params.Amount0Min.String(),
		Amount1Min:      plan.Params.Amount1Min.String(),
		Amount0Decimal:  units.FormatAmount(plan.Params.Amount0Desired, plan.Decimals0),
		Amount1Decimal:  units.FormatAmount(plan.Params.Amount1Desired, plan.Decimals1),
		PositionManager: manager.Hex(),
	}
}

func newMintOutput(result model.MintResult) mintOutput {
	return mintOutput{
		TokenID:     result.TokenID.String(),
		Liquidity:   result.Liquidity.String(),
		Amount0:     result.Amount0.String(),
		Amount1:     result.Amount1.String(),
		TxHash:      result.TxHash.Hex(),
		BlockNumber: result.BlockNumber,
	}
}

func parseAddress(name, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid %s address: %q", name, input)
	}
	return common.HexToAddress(input), nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
